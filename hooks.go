package archivesync

import (
	"context"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/realtime"
	"github.com/immortalis/archivesync/pkg/store"
)

// Hook function types for collection and connection events
type (
	// StateChangeHook is called for every connection state transition
	StateChangeHook func(sc realtime.StateChange)

	// ScheduledArchivalHook is called after the scheduled archivals collection changes
	ScheduledArchivalHook func(e store.Event[archive.ScheduledArchival])

	// TrackedCollectionHook is called after the tracked collections collection changes
	TrackedCollectionHook func(e store.Event[archive.TrackedCollection])
)

// Hooks registers callbacks. Each registration returns a function that
// removes it.
type Hooks interface {
	// OnStateChange registers a callback for connection state transitions
	OnStateChange(fn StateChangeHook) (remove func())

	// OnScheduledArchival registers a callback for scheduled archival changes
	OnScheduledArchival(fn ScheduledArchivalHook) (remove func())

	// OnTrackedCollection registers a callback for tracked collection changes
	OnTrackedCollection(fn TrackedCollectionHook) (remove func())
}

// OnStateChange registers a callback for connection state transitions.
func (c *client) OnStateChange(fn StateChangeHook) func() {
	sub := bus.Subscribe(c.bus, realtime.ConnectionState, func(_ context.Context, sc realtime.StateChange) error {
		fn(sc)
		return nil
	})
	return sub.Unsubscribe
}

// OnScheduledArchival registers a callback for scheduled archival changes.
func (c *client) OnScheduledArchival(fn ScheduledArchivalHook) func() {
	return c.scheduled.Watch(fn)
}

// OnTrackedCollection registers a callback for tracked collection changes.
func (c *client) OnTrackedCollection(fn TrackedCollectionHook) func() {
	return c.tracked.Watch(fn)
}
