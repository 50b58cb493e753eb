package query

import (
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	header     http.Header
	logger     *zerolog.Logger
	retry      func() backoff.BackOff
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithHeader adds headers to every request.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRetry sets the retry policy for GET requests. Use
// backoff.StopBackOff to disable retries.
func WithRetry(factory func() backoff.BackOff) Option {
	return func(o *options) { o.retry = factory }
}
