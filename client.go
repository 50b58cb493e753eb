// Package archivesync keeps a local, always-current view of an archival
// server's scheduled archivals and tracked collections.
//
// A Client owns one typed event bus, one server connection and one keyed
// collection per entity type. Change notifications arrive over a websocket,
// are decoded into change envelopes, published on the bus and folded into
// the collections. Every time the connection opens, the collections are
// replaced by a fresh snapshot from the query API, so changes missed while
// disconnected do not leave them stale.
//
// Example usage:
//
//	c, err := archivesync.New(archivesync.WithServerURL("https://archive.example.com/api"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	c.OnStateChange(func(sc realtime.StateChange) {
//	    log.Printf("connection %s (%s)", sc.To, sc.Reason)
//	})
//	c.OnScheduledArchival(func(e store.Event[archive.ScheduledArchival]) {
//	    log.Printf("%s %s", e.Action, e.Key)
//	})
//
//	c.Connect()
//
//	for _, s := range c.ScheduledArchivals().List() {
//	    fmt.Println(s.ID, s.URL)
//	}
package archivesync

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/query"
	"github.com/immortalis/archivesync/pkg/realtime"
	"github.com/immortalis/archivesync/pkg/store"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Connection controls the server connection.
type Connection interface {
	// Connect opens the connection; a no-op while connecting or open
	Connect()

	// Disconnect closes the connection and cancels any pending retry
	Disconnect()

	// State returns the current connection state
	State() realtime.State

	// Stats returns connection counters
	Stats() realtime.Stats

	// Wait blocks until the connection loop has exited
	Wait(ctx context.Context) error
}

// Collections gives read access to the synchronized collections.
type Collections interface {
	// ScheduledArchivals returns the collection of queued archivals
	ScheduledArchivals() *store.Collection[archive.ScheduledArchival]

	// TrackedCollections returns the collection of tracked channels and playlists
	TrackedCollections() *store.Collection[archive.TrackedCollection]

	// Refresh replaces both collections with fresh snapshots
	Refresh(ctx context.Context) error
}

// Client keeps collections in step with an archival server.
type Client interface {

	// Connection controls the server connection
	Connection

	// Collections gives access to the synchronized collections
	Collections

	// AutoRefresher controls periodic snapshot refreshes
	AutoRefresher

	// Hooks registers change and state callbacks
	Hooks

	// Bus returns the event bus, for subscribing to raw change envelopes
	Bus() *bus.Bus

	// Query returns the query API client
	Query() *query.Client

	// Close disconnects and releases every subscription
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	logger  *zerolog.Logger

	bus     *bus.Bus
	router  *realtime.Router
	adapter *realtime.Adapter
	query   *query.Client

	scheduled     *store.Collection[archive.ScheduledArchival]
	tracked       *store.Collection[archive.TrackedCollection]
	scheduledSync *store.Syncer[archive.ScheduledArchival]
	trackedSync   *store.Syncer[archive.TrackedCollection]
	subscriptions []*bus.Subscription

	// auto refresh state
	mu            sync.Mutex
	refreshCancel context.CancelFunc
	refreshDone   chan struct{}
	closed        bool
}

// New creates a Client. It does not connect; call Connect.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	logger := logging.OrDefault(o.logger)
	c := &client{options: o, logger: logger}

	busOpts := []bus.Option{bus.WithLogger(logger)}
	if o.errorHandler != nil {
		busOpts = append(busOpts, bus.WithErrorHandler(o.errorHandler))
	}
	c.bus = bus.New(busOpts...)

	c.router = realtime.NewRouter()
	realtime.Route(c.router, c.bus, archive.ScheduledArchivals, archive.ScheduledArchivalAliases...)
	realtime.Route(c.router, c.bus, archive.TrackedCollections, archive.TrackedCollectionAliases...)

	if c.query, err = query.New(o.serverURL,
		query.WithHTTPClient(o.httpClient),
		query.WithHeader(o.header),
		query.WithLogger(logger),
	); err != nil {
		return nil, errors.WrapResource("create", "query client", o.serverURL, err)
	}

	wsURL := o.websocketURL
	if wsURL == "" {
		if wsURL, err = WebSocketURL(o.serverURL); err != nil {
			return nil, err
		}
	}

	adapterOpts := []realtime.Option{
		realtime.WithLogger(logger),
		realtime.WithBackoff(o.backoff),
		realtime.WithHeader(o.header),
		realtime.WithPingInterval(o.pingInterval),
	}
	if o.dialer != nil {
		adapterOpts = append(adapterOpts, realtime.WithDialer(o.dialer))
	}
	if o.errorHandler != nil {
		adapterOpts = append(adapterOpts, realtime.WithErrorHandler(o.errorHandler))
	}
	c.adapter = realtime.New(wsURL, c.bus, c.router, adapterOpts...)

	c.scheduled = store.NewCollection[archive.ScheduledArchival]("scheduled archivals")
	c.tracked = store.NewCollection[archive.TrackedCollection]("tracked collections")
	c.subscriptions = append(c.subscriptions,
		store.Bind(c.bus, archive.ScheduledArchivals, c.scheduled),
		store.Bind(c.bus, archive.TrackedCollections, c.tracked),
	)

	syncOpts := []store.SyncOption{store.WithSyncLogger(logger), store.WithSyncTimeout(o.resyncTimeout)}
	c.scheduledSync = store.NewSyncer(c.scheduled, c.query.ScheduledArchivals, syncOpts...)
	c.trackedSync = store.NewSyncer(c.tracked, c.query.TrackedCollections, syncOpts...)
	if o.resync {
		c.subscriptions = append(c.subscriptions,
			c.scheduledSync.Start(c.bus),
			c.trackedSync.Start(c.bus),
		)
	}

	if o.autoRefreshInterval > 0 {
		if err := c.AutoRefreshOn(o.autoRefreshInterval); err != nil {
			return nil, errors.WrapResource("start", "auto-refresh", "", err)
		}
	}

	logger.Debug().
		Str("server", c.query.BaseURL()).
		Str("websocket", wsURL).
		Bool("resync", o.resync).
		Msg("Client created")

	return c, nil
}

// Bus returns the event bus.
func (c *client) Bus() *bus.Bus {
	return c.bus
}

// Query returns the query API client.
func (c *client) Query() *query.Client {
	return c.query
}

// ScheduledArchivals returns the collection of queued archivals.
func (c *client) ScheduledArchivals() *store.Collection[archive.ScheduledArchival] {
	return c.scheduled
}

// TrackedCollections returns the collection of tracked channels and playlists.
func (c *client) TrackedCollections() *store.Collection[archive.TrackedCollection] {
	return c.tracked
}

// WebSocketURL derives the change-notification endpoint from a server base
// URL: http becomes ws, https becomes wss, and the websocket path is appended.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", errors.NewValidationError("server_url", serverURL, err.Error())
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.NewValidationError("server_url", serverURL, "scheme must be http or https")
	}
	if u.Host == "" {
		return "", errors.NewValidationError("server_url", serverURL, "host is required")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + constants.WebSocketPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
