package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/realtime"
)

// notifyServer pushes one frame per connection and then, on the first
// connection only, drops the socket without a close handshake.
func notifyServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var connections atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := connections.Add(1)

		frame, err := change.EncodeFrame("scheduled_archivals", change.New(change.Insert, archive.ScheduledArchival{
			ID:  archive.EntityID(strings.Repeat("a", int(n))),
			URL: "https://example.com/watch",
		}))
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}

		if n == 1 {
			time.Sleep(20 * time.Millisecond)
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &connections
}

func TestAdapterOverWebSocket(t *testing.T) {
	srv, connections := notifyServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"

	h := newHarnessAt(t, url, realtime.WebSocketDialer{}, realtime.WithPingInterval(10*time.Millisecond))

	h.adapter.Connect()
	h.expect(t, "connecting", "open", "closed:unexpected", "connecting", "open")

	waitFor(t, func() bool { return len(h.Events()) == 2 }, "one envelope per connection")
	events := h.Events()
	assert.Equal(t, archive.EntityID("a"), events[0].Record().ID)
	assert.Equal(t, archive.EntityID("aa"), events[1].Record().ID)
	assert.Equal(t, int32(2), connections.Load())

	// Pings are answered by the server's default handler.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, realtime.Open, h.adapter.State())

	h.adapter.Disconnect()
	h.expect(t, "closed:client-requested")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.adapter.Wait(ctx), "connection loop exits after Disconnect")
}
