package archivesync

import (
	"context"
	"time"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoRefresher = (*client)(nil)

// AutoRefresher provides controls for periodic snapshot refreshes.
type AutoRefresher interface {
	// AutoRefreshOn begins periodic refreshes every interval, replacing any
	// running loop
	AutoRefreshOn(interval time.Duration) error

	// AutoRefreshOff stops periodic refreshes
	AutoRefreshOff() error
}

// AutoRefreshOn begins periodic refreshes every interval.
func (c *client) AutoRefreshOn(interval time.Duration) error {
	if interval <= 0 {
		return errors.NewValidationError("refresh_interval", interval, "refresh interval must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NewResourceError("start", "auto-refresh", "", errors.New("client closed"))
	}

	// Stop any existing loop first
	c.stopRefreshLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.refreshCancel = cancel
	c.refreshDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					c.logger.Error().Err(err).Msg("Auto-refresh failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	c.logger.Debug().Dur("interval", interval).Msg("Auto-refresh started")
	return nil
}

// AutoRefreshOff stops periodic refreshes and waits for an in-flight
// refresh to finish. Calling it when no loop is running is a no-op.
func (c *client) AutoRefreshOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRefreshLocked()
	return nil
}

// stopRefreshLocked cancels the refresh loop and waits for it to exit.
// The loop never takes c.mu, so waiting under the lock is safe.
func (c *client) stopRefreshLocked() {
	if c.refreshCancel == nil {
		return
	}
	c.refreshCancel()
	<-c.refreshDone
	c.refreshCancel, c.refreshDone = nil, nil
}
