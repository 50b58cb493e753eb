// Package query is a client for the archival server's request/response API.
// It supplies the authoritative snapshots the sync layer re-fetches after a
// reconnect, and the write operations that cause change notifications.
package query

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/internal/transport"
	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
)

// API paths.
const (
	PathHealth            = "/health"
	PathSchedule          = "/schedule"
	PathTrackedCollection = "/tracked_collection"
	PathSearch            = "/search"
	PathFile              = "/file"
)

// Outcome reports what a write request did.
type Outcome int

// Write outcomes.
const (
	// Created means the server added a new entry.
	Created Outcome = iota + 1
	// Existing means the entry was already present; nothing changed.
	Existing
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Existing:
		return "existing"
	default:
		return "unknown"
	}
}

// Client calls the query API. GET requests are retried with backoff.
type Client struct {
	transport *transport.Client
	logger    *zerolog.Logger
	retry     func() backoff.BackOff
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{retry: DefaultRetry}
	for _, opt := range opts {
		opt(&o)
	}

	t, err := transport.New(baseURL, o.httpClient, o.header)
	if err != nil {
		return nil, err
	}

	logger := logging.OrDefault(o.logger).With().Str("server", t.BaseURL().String()).Logger()
	return &Client{transport: t, logger: &logger, retry: o.retry}, nil
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL().String()
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	var healthy bool
	if err := c.get(ctx, PathHealth, nil, &healthy); err != nil {
		return err
	}
	if !healthy {
		return errors.NewAPIError("GET "+PathHealth, http.StatusOK, "server reported unhealthy")
	}
	return nil
}

// ScheduledArchivals returns every URL queued for archiving.
func (c *Client) ScheduledArchivals(ctx context.Context) ([]archive.ScheduledArchival, error) {
	var items []archive.ScheduledArchival
	if err := c.get(ctx, PathSchedule, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// TrackedCollections returns every tracked channel or playlist.
func (c *Client) TrackedCollections(ctx context.Context) ([]archive.TrackedCollection, error) {
	var items []archive.TrackedCollection
	if err := c.get(ctx, PathTrackedCollection, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Search returns archived videos whose title contains term, newest first.
// An empty term lists everything.
func (c *Client) Search(ctx context.Context, term string) ([]archive.Video, error) {
	var query url.Values
	if term = strings.TrimSpace(term); term != "" {
		query = url.Values{"term": {term}}
	}

	var videos []archive.Video
	if err := c.get(ctx, PathSearch, query, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Schedule queues a video URL for archiving.
func (c *Client) Schedule(ctx context.Context, videoURL string) (Outcome, error) {
	return c.submit(ctx, PathSchedule, videoURL)
}

// Track starts tracking a channel or playlist URL.
func (c *Client) Track(ctx context.Context, collectionURL string) (Outcome, error) {
	return c.submit(ctx, PathTrackedCollection, collectionURL)
}

// FileURL returns the download URL of an archived file.
func (c *Client) FileURL(fileID string) string {
	return c.transport.URL(PathFile, url.Values{"file_id": {fileID}})
}

func (c *Client) submit(ctx context.Context, path, target string) (Outcome, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, errors.NewValidationError("url", target, "url is required")
	}

	endpoint := "POST " + path
	start := time.Now()
	resp, err := c.transport.PostJSON(ctx, path, map[string]string{"url": target})
	if err != nil {
		return 0, requestError(endpoint, err)
	}
	status := resp.StatusCode
	if err := transport.DecodeResponse(resp, endpoint, nil); err != nil {
		return 0, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", status).
		Dur("took", time.Since(start)).
		Msg("Query request")

	if status == http.StatusCreated {
		return Created, nil
	}
	return Existing, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	endpoint := "GET " + path

	attempt := 0
	operation := func() error {
		attempt++
		start := time.Now()
		resp, err := c.transport.Get(ctx, path, query)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return requestError(endpoint, err)
		}
		status := resp.StatusCode
		if err := transport.DecodeResponse(resp, endpoint, target); err != nil {
			var apiErr *errors.APIError
			if errors.As(err, &apiErr) && apiErr.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", status).
			Int("attempt", attempt).
			Dur("took", time.Since(start)).
			Msg("Query request")
		return nil
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying query request")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(c.retry(), ctx), notify)
}

// requestError wraps a transport failure that produced no response.
func requestError(endpoint string, err error) error {
	return &errors.APIError{Endpoint: endpoint, Message: "request failed", Err: err}
}

// DefaultRetry is the retry policy for GET requests.
func DefaultRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = constants.ReconnectInitialInterval
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = constants.QueryRetryElapsed
	b.Reset()
	return b
}
