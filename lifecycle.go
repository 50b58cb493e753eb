package archivesync

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/immortalis/archivesync/pkg/realtime"
)

// Connect opens the server connection. Collections are re-fetched each time
// it opens unless resync was disabled.
func (c *client) Connect() {
	c.adapter.Connect()
}

// Disconnect closes the server connection and cancels any pending retry.
// It does not wait for the connection loop; use Wait for that.
func (c *client) Disconnect() {
	c.adapter.Disconnect()
}

// State returns the current connection state.
func (c *client) State() realtime.State {
	return c.adapter.State()
}

// Stats returns connection counters.
func (c *client) Stats() realtime.Stats {
	return c.adapter.Stats()
}

// Wait blocks until the connection loop has exited or ctx is done.
func (c *client) Wait(ctx context.Context) error {
	return c.adapter.Wait(ctx)
}

// Refresh replaces both collections with fresh snapshots from the query API.
// Both fetches run concurrently; a failed fetch leaves its collection as it
// was.
func (c *client) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.scheduledSync.Sync(ctx) })
	g.Go(func() error { return c.trackedSync.Sync(ctx) })
	return g.Wait()
}

// Close stops auto-refresh, disconnects and releases every subscription.
// It is safe to call more than once.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopRefreshLocked()
	subs := c.subscriptions
	c.subscriptions = nil
	c.mu.Unlock()

	c.adapter.Disconnect()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	c.logger.Debug().Msg("Client closed")
	return nil
}
