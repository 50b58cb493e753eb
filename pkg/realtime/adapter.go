// Package realtime owns the persistent connection to the server's
// change-notification endpoint. It decodes inbound frames, routes them onto
// the typed bus, and keeps the connection alive with reconnect and backoff.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
)

// Adapter owns exactly one logical server connection.
//
// Every state transition is stamped with the generation of the loop that
// applies it. Connect and Disconnect start a new generation, so a loop that
// has been superseded can neither change state nor deliver frames.
type Adapter struct {
	id           string
	url          string
	bus          *bus.Bus
	router       *Router
	dialer       Dialer
	header       http.Header
	logger       *zerolog.Logger
	newBackoff   func() backoff.BackOff
	errorHandler func(error)
	pingInterval time.Duration
	readLimit    int64
	ctx          context.Context

	mu         sync.Mutex
	state      State
	reason     string
	generation uint64
	cancel     context.CancelFunc
	conn       Conn
	done       chan struct{}
	pending    []StateChange
	flushing   bool

	stats counters
}

// New creates an adapter for the websocket endpoint at url. State changes
// are published on b; frames are routed through router.
func New(url string, b *bus.Bus, router *Router, opts ...Option) *Adapter {
	a := &Adapter{
		id:           uuid.NewString(),
		url:          url,
		bus:          b,
		router:       router,
		dialer:       WebSocketDialer{},
		newBackoff:   DefaultBackoff,
		pingInterval: constants.PingPeriod,
		readLimit:    constants.MaxFrameSize,
	}
	for _, opt := range opts {
		opt(a)
	}

	logger := logging.OrDefault(a.logger).With().Str("url", url).Logger()
	a.ctx = logging.WithConnection(logging.WithLogger(context.Background(), &logger), a.id)
	a.logger = logging.FromContext(a.ctx)
	return a
}

// ID returns the adapter's unique id, attached to its log lines and state changes.
func (a *Adapter) ID() string {
	return a.id
}

// URL returns the endpoint the adapter connects to.
func (a *Adapter) URL() string {
	return a.url
}

// State returns the current connection state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Reason returns the reason of the last transition into Closed.
func (a *Adapter) Reason() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason
}

// Stats returns a snapshot of the adapter counters.
func (a *Adapter) Stats() Stats {
	return a.stats.snapshot(a.State())
}

// Connect starts the connection loop. It is a no-op while Connecting or
// Open. Called while Closed and waiting to retry, it retries immediately.
func (a *Adapter) Connect() {
	a.mu.Lock()
	if a.state == Connecting || a.state == Open {
		a.mu.Unlock()
		return
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.generation++
	gen := a.generation
	ctx, cancel := context.WithCancel(a.ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.apply(Connecting, "", 1, nil)
	a.mu.Unlock()

	a.flush()
	go a.run(ctx, gen, done)
}

// Disconnect closes the connection and cancels any pending retry. The state
// becomes Closed("client-requested") and no further transitions or
// deliveries happen until the next Connect.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	if a.state == Idle || (a.state == Closed && a.reason == ReasonClientRequested) {
		a.mu.Unlock()
		return
	}
	a.generation++
	cancel := a.cancel
	conn := a.conn
	a.cancel = nil
	a.apply(Closed, ReasonClientRequested, 0, nil)
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(constants.WriteWait))
		_ = conn.Close()
	}
	a.flush()
}

// Wait blocks until the current connection loop has exited or ctx is done.
func (a *Adapter) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	policy := a.newBackoff()
	policy.Reset()
	attempt := 1

	for {
		dialCtx, cancelDial := context.WithTimeout(ctx, constants.DialTimeout)
		conn, err := a.dialer.Dial(dialCtx, a.url, a.header)
		cancelDial()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.stats.dialFailures.Add(1)
			a.report(errors.NewConnectionError(a.url, attempt, err))
			if !a.transition(gen, Closed, ReasonUnreachable, attempt, nil) {
				return
			}
		} else {
			if !a.transition(gen, Open, "", attempt, conn) {
				_ = conn.Close()
				return
			}
			a.stats.opens.Add(1)
			policy.Reset()

			err = a.read(ctx, gen, conn)
			_ = conn.Close()
			if err == nil || ctx.Err() != nil {
				return
			}
			a.report(errors.NewConnectionError(a.url, 0, err))
			if !a.transition(gen, Closed, ReasonUnexpected, attempt, nil) {
				return
			}
			attempt = 0
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			a.logger.Warn().Int("attempt", attempt).Msg("Reconnect policy exhausted, staying closed")
			return
		}
		a.logger.Info().
			Dur("delay", delay).
			Int("attempt", attempt+1).
			Msg("Reconnecting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		attempt++
		a.stats.reconnects.Add(1)
		if !a.transition(gen, Connecting, "", attempt, nil) {
			return
		}
	}
}

// read delivers frames until the connection fails. It returns the read
// error, or nil when the loop has been superseded.
func (a *Adapter) read(ctx context.Context, gen uint64, conn Conn) error {
	if a.readLimit > 0 {
		conn.SetReadLimit(a.readLimit)
	}

	var pongWait time.Duration
	if a.pingInterval > 0 {
		pongWait = a.pingInterval + constants.PongWait - constants.PingPeriod
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		stop := make(chan struct{})
		defer close(stop)
		go a.keepalive(conn, stop)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if pongWait > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		if !a.current(gen) {
			return nil
		}
		a.handleFrame(ctx, data)
	}
}

func (a *Adapter) keepalive(conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(a.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(constants.WriteWait)); err != nil {
				a.logger.Debug().Err(err).Msg("Ping failed")
				return
			}
		}
	}
}

func (a *Adapter) handleFrame(ctx context.Context, data []byte) {
	a.stats.frames.Add(1)

	frame, err := change.DecodeFrame(data)
	if err != nil {
		a.stats.malformed.Add(1)
		a.report(err)
		return
	}

	ctx = logging.WithChannel(ctx, frame.Channel)
	switch err := a.router.Dispatch(ctx, frame); {
	case err == nil:
		a.stats.published.Add(1)
	case errors.IsUnknownChannel(err):
		a.stats.unknown.Add(1)
		a.report(err)
	case errors.IsMalformedEnvelope(err):
		a.stats.malformed.Add(1)
		a.report(err)
	default:
		a.report(err)
	}
}

func (a *Adapter) report(err error) {
	switch {
	case errors.IsConnectionFailure(err):
		a.logger.Warn().Err(err).Msg("Connection failure")
	case errors.IsUnknownChannel(err):
		a.logger.Warn().Err(err).Msg("Dropped frame for unknown channel")
	case errors.IsMalformedEnvelope(err):
		a.logger.Warn().Err(err).Msg("Dropped malformed frame")
	default:
		a.logger.Error().Err(err).Msg("Frame handling failed")
	}
	if a.errorHandler != nil {
		a.errorHandler(err)
	}
}

func (a *Adapter) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation == gen
}

// transition applies a state change on behalf of loop gen. It reports false
// when the loop has been superseded.
func (a *Adapter) transition(gen uint64, to State, reason string, attempt int, conn Conn) bool {
	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		return false
	}
	a.apply(to, reason, attempt, conn)
	a.mu.Unlock()

	a.flush()
	return true
}

// apply records a transition and queues its notification. Callers hold mu.
func (a *Adapter) apply(to State, reason string, attempt int, conn Conn) {
	from := a.state
	a.state = to
	a.conn = conn
	if to == Closed {
		a.reason = reason
	}
	a.pending = append(a.pending, StateChange{
		From:       from,
		To:         to,
		Reason:     reason,
		Attempt:    attempt,
		At:         time.Now(),
		Connection: a.id,
	})
}

// flush publishes queued state changes in the order they were applied. A
// call made while another flush is running, including one from a state
// handler calling Connect or Disconnect, leaves its changes to that flush.
func (a *Adapter) flush() {
	a.mu.Lock()
	if a.flushing {
		a.mu.Unlock()
		return
	}
	a.flushing = true
	for len(a.pending) > 0 {
		batch := a.pending
		a.pending = nil
		a.mu.Unlock()

		for _, sc := range batch {
			event := a.logger.Info().
				Stringer("from", sc.From).
				Stringer("state", sc.To).
				Int("attempt", sc.Attempt)
			if sc.Reason != "" {
				event = event.Str("reason", sc.Reason)
			}
			event.Msg("Connection state changed")
			bus.Publish(a.ctx, a.bus, ConnectionState, sc)
		}

		a.mu.Lock()
	}
	a.flushing = false
	a.mu.Unlock()
}
