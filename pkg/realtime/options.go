package realtime

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/constants"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(a *Adapter) { a.dialer = d }
}

// WithLogger sets the adapter logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithBackoff sets the reconnect policy. The factory is called once per
// connection loop; the returned policy is reset after every successful open.
// A policy that returns backoff.Stop leaves the adapter Closed.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(a *Adapter) { a.newBackoff = factory }
}

// WithErrorHandler receives every reported failure: connection failures,
// malformed frames and frames for unknown channels.
func WithErrorHandler(h func(error)) Option {
	return func(a *Adapter) { a.errorHandler = h }
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option {
	return func(a *Adapter) { a.header = h.Clone() }
}

// WithPingInterval sets the keepalive period. Zero disables pings and read
// deadlines.
func WithPingInterval(d time.Duration) Option {
	return func(a *Adapter) { a.pingInterval = d }
}

// WithReadLimit sets the maximum inbound frame size in bytes.
func WithReadLimit(n int64) Option {
	return func(a *Adapter) { a.readLimit = n }
}

// DefaultBackoff is the reconnect policy used when none is configured:
// exponential from 500ms to a 30s ceiling with jitter, never giving up.
func DefaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = constants.ReconnectInitialInterval
	b.MaxInterval = constants.ReconnectMaxInterval
	b.Multiplier = constants.ReconnectMultiplier
	b.RandomizationFactor = constants.ReconnectJitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
