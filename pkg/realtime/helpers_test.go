package realtime_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/realtime"
)

const waitTimeout = 2 * time.Second

// fakeConn is an in-memory Conn fed by the test.
type fakeConn struct {
	frames    chan []byte
	drops     chan error
	closed    chan struct{}
	closeOnce sync.Once
	pings     atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		drops:  make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, net.ErrClosed
	default:
	}
	select {
	case data := <-c.frames:
		return websocket.TextMessage, data, nil
	case err := <-c.drops:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if messageType == websocket.PingMessage {
		c.pings.Add(1)
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) SetReadLimit(int64) {}

func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(data string) {
	c.frames <- []byte(data)
}

func (c *fakeConn) drop() {
	c.drops <- &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out queued connections or errors, one per Dial.
type fakeDialer struct {
	results chan any
	dials   atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan any, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string, _ http.Header) (realtime.Conn, error) {
	d.dials.Add(1)
	select {
	case r := <-d.results:
		if err, ok := r.(error); ok {
			return nil, err
		}
		return r.(realtime.Conn), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) accept() *fakeConn {
	c := newFakeConn()
	d.results <- c
	return c
}

func (d *fakeDialer) refuse() {
	d.results <- fmt.Errorf("dial tcp: connection refused")
}

func fastBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(5 * time.Millisecond)
}

type harness struct {
	bus     *bus.Bus
	router  *realtime.Router
	adapter *realtime.Adapter
	states  chan realtime.StateChange

	mu     sync.Mutex
	errs   []error
	events []change.Envelope[archive.ScheduledArchival]
}

func newHarness(t *testing.T, dialer realtime.Dialer, opts ...realtime.Option) *harness {
	t.Helper()
	return newHarnessAt(t, "ws://archive.test/ws/", dialer, opts...)
}

func newHarnessAt(t *testing.T, url string, dialer realtime.Dialer, opts ...realtime.Option) *harness {
	t.Helper()

	h := &harness{
		bus:    bus.New(bus.WithLogger(logging.NewNopLogger())),
		router: realtime.NewRouter(),
		states: make(chan realtime.StateChange, 64),
	}
	realtime.Route(h.router, h.bus, archive.ScheduledArchivals, archive.ScheduledArchivalAliases...)
	realtime.Route(h.router, h.bus, archive.TrackedCollections, archive.TrackedCollectionAliases...)

	bus.Subscribe(h.bus, realtime.ConnectionState, func(_ context.Context, sc realtime.StateChange) error {
		h.states <- sc
		return nil
	})
	bus.Subscribe(h.bus, archive.ScheduledArchivals, func(_ context.Context, env change.Envelope[archive.ScheduledArchival]) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, env)
		return nil
	})

	base := []realtime.Option{
		realtime.WithDialer(dialer),
		realtime.WithLogger(logging.NewNopLogger()),
		realtime.WithBackoff(fastBackoff),
		realtime.WithPingInterval(0),
		realtime.WithErrorHandler(func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.errs = append(h.errs, err)
		}),
	}
	h.adapter = realtime.New(url, h.bus, h.router, append(base, opts...)...)

	t.Cleanup(func() {
		h.adapter.Disconnect()
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = h.adapter.Wait(ctx)
	})
	return h
}

// expect reads the next transitions and checks their targets and reasons.
// Each want is "state" or "state:reason".
func (h *harness) expect(t *testing.T, want ...string) []realtime.StateChange {
	t.Helper()
	got := make([]realtime.StateChange, 0, len(want))
	for _, w := range want {
		select {
		case sc := <-h.states:
			label := sc.To.String()
			if sc.Reason != "" {
				label += ":" + sc.Reason
			}
			require.Equal(t, w, label, "after %v", got)
			got = append(got, sc)
		case <-time.After(waitTimeout):
			require.FailNow(t, "timed out waiting for state "+w, "after %v", got)
		}
	}
	return got
}

func (h *harness) noMoreStates(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case sc := <-h.states:
		require.FailNow(t, "unexpected state change", "%+v", sc)
	case <-time.After(within):
	}
}

func (h *harness) Events() []change.Envelope[archive.ScheduledArchival] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]change.Envelope[archive.ScheduledArchival](nil), h.events...)
}

func (h *harness) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitTimeout, 5*time.Millisecond, msg)
}
