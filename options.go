package archivesync

import (
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/realtime"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the Client configuration.
type options struct {
	serverURL           string
	websocketURL        string
	logger              *zerolog.Logger
	httpClient          *http.Client
	header              http.Header
	dialer              realtime.Dialer
	backoff             func() backoff.BackOff
	pingInterval        time.Duration
	resync              bool
	resyncTimeout       time.Duration
	autoRefreshInterval time.Duration
	errorHandler        func(error)
}

// defaults returns the default options.
func defaults() *options {
	return &options{
		serverURL:     constants.DefaultServerURL,
		backoff:       realtime.DefaultBackoff,
		pingInterval:  constants.PingPeriod,
		resync:        true,
		resyncTimeout: constants.ResyncTimeout,
	}
}

// apply applies the given options.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithServerURL sets the query API base URL. Unless WithWebSocketURL is
// given, the websocket endpoint is derived from it.
func WithServerURL(serverURL string) Option {
	return func(o *options) error {
		if strings.TrimSpace(serverURL) == "" {
			return errors.NewValidationError("server_url", serverURL, "must not be empty")
		}
		o.serverURL = serverURL
		return nil
	}
}

// WithWebSocketURL sets the change-notification endpoint explicitly.
func WithWebSocketURL(wsURL string) Option {
	return func(o *options) error {
		if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
			return errors.NewValidationError("websocket_url", wsURL, "scheme must be ws or wss")
		}
		o.websocketURL = wsURL
		return nil
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client for the query API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		o.httpClient = c
		return nil
	}
}

// WithHeader adds headers to query requests and the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) error {
		o.header = h.Clone()
		return nil
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d realtime.Dialer) Option {
	return func(o *options) error {
		o.dialer = d
		return nil
	}
}

// WithBackoff sets the reconnect policy factory.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(o *options) error {
		if factory == nil {
			return errors.NewValidationError("backoff", nil, "factory must not be nil")
		}
		o.backoff = factory
		return nil
	}
}

// WithReconnectInterval configures the default exponential reconnect policy.
func WithReconnectInterval(initial, max time.Duration) Option {
	return func(o *options) error {
		if initial <= 0 || max < initial {
			return errors.NewValidationError("reconnect", initial, "need 0 < initial <= max")
		}
		o.backoff = func() backoff.BackOff {
			b := realtime.DefaultBackoff().(*backoff.ExponentialBackOff)
			b.InitialInterval = initial
			b.MaxInterval = max
			b.Reset()
			return b
		}
		return nil
	}
}

// WithPingInterval sets the websocket keepalive period; zero disables it.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.NewValidationError("ping_interval", d, "must not be negative")
		}
		o.pingInterval = d
		return nil
	}
}

// WithResync configures whether collections are re-fetched on every open.
func WithResync(enabled bool) Option {
	return func(o *options) error {
		o.resync = enabled
		return nil
	}
}

// WithAutoRefresh refreshes both collections periodically, in addition to
// the refresh on every open. Zero disables it.
func WithAutoRefresh(interval time.Duration) Option {
	return func(o *options) error {
		if interval < 0 {
			return errors.NewValidationError("refresh_interval", interval, "must not be negative")
		}
		o.autoRefreshInterval = interval
		return nil
	}
}

// WithErrorHandler receives every reported failure: connection failures,
// dropped frames and failing handlers.
func WithErrorHandler(h func(error)) Option {
	return func(o *options) error {
		o.errorHandler = h
		return nil
	}
}
