package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/realtime"
	"github.com/immortalis/archivesync/pkg/store"
)

func TestSyncerResetsOnOpen(t *testing.T) {
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	coll := store.NewCollection[archive.ScheduledArchival]("scheduled archivals")

	snapshots := [][]archive.ScheduledArchival{
		{{ID: "1"}, {ID: "2"}},
		{{ID: "3"}},
	}
	calls := 0
	syncer := store.NewSyncer(coll, func(context.Context) ([]archive.ScheduledArchival, error) {
		s := snapshots[calls]
		calls++
		return s, nil
	}, store.WithSyncLogger(logging.NewNopLogger()))
	sub := syncer.Start(b)
	defer sub.Unsubscribe()

	ctx := context.Background()
	bus.Publish(ctx, b, realtime.ConnectionState, realtime.StateChange{From: realtime.Idle, To: realtime.Connecting})
	assert.Equal(t, 0, calls)

	bus.Publish(ctx, b, realtime.ConnectionState, realtime.StateChange{From: realtime.Connecting, To: realtime.Open})
	assert.Equal(t, 2, coll.Len())

	bus.Publish(ctx, b, realtime.ConnectionState, realtime.StateChange{From: realtime.Open, To: realtime.Closed, Reason: realtime.ReasonUnexpected})
	assert.Equal(t, 2, coll.Len())

	bus.Publish(ctx, b, realtime.ConnectionState, realtime.StateChange{From: realtime.Connecting, To: realtime.Open})
	assert.Equal(t, []archive.ScheduledArchival{{ID: "3"}}, coll.List())
	assert.Equal(t, 2, syncer.Syncs())

	last, err := syncer.LastSync()
	assert.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestSyncerFailureKeepsContent(t *testing.T) {
	tl := logging.NewTestLogger(t)
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	coll := store.NewCollection[archive.TrackedCollection]("tracked collections")
	coll.Reset([]archive.TrackedCollection{{ID: "1"}})

	syncer := store.NewSyncer(coll, func(context.Context) ([]archive.TrackedCollection, error) {
		return nil, fmt.Errorf("server not reachable")
	}, store.WithSyncLogger(tl.Logger))
	syncer.Start(b)

	n := bus.Publish(context.Background(), b, realtime.ConnectionState, realtime.StateChange{To: realtime.Open})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, coll.Len())

	_, err := syncer.LastSync()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server not reachable")
	tl.AssertContains(t, "Snapshot fetch failed")
	assert.Equal(t, 0, syncer.Syncs())
}

func TestSyncerTimeout(t *testing.T) {
	coll := store.NewCollection[archive.TrackedCollection]("tracked collections")
	syncer := store.NewSyncer(coll, func(ctx context.Context) ([]archive.TrackedCollection, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, store.WithSyncTimeout(10*time.Millisecond), store.WithSyncLogger(logging.NewNopLogger()))

	err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var resErr *errors.ResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "tracked collections", resErr.Resource)
}

func TestSyncerKeepsChangesFoldedDuringFetch(t *testing.T) {
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	coll := store.NewCollection[archive.ScheduledArchival]("scheduled archivals")
	coll.Reset([]archive.ScheduledArchival{{ID: "gone"}, {ID: "old"}})
	sub := store.Bind(b, archive.ScheduledArchivals, coll)
	defer sub.Unsubscribe()

	ctx := context.Background()
	syncer := store.NewSyncer(coll, func(context.Context) ([]archive.ScheduledArchival, error) {
		// the connection loop folds live changes while the snapshot is in flight
		bus.Publish(ctx, b, archive.ScheduledArchivals, change.New(change.Insert, archive.ScheduledArchival{ID: "new"}))
		bus.Publish(ctx, b, archive.ScheduledArchivals, change.New(change.Delete, archive.ScheduledArchival{ID: "old"}))
		return []archive.ScheduledArchival{{ID: "old"}}, nil
	}, store.WithSyncLogger(logging.NewNopLogger()))

	require.NoError(t, syncer.Sync(ctx))
	assert.Equal(t, []archive.ScheduledArchival{{ID: "new"}}, coll.List())

	// Later folds are no longer replayed into the next snapshot.
	bus.Publish(ctx, b, archive.ScheduledArchivals, change.New(change.Insert, archive.ScheduledArchival{ID: "later"}))
	syncer = store.NewSyncer(coll, func(context.Context) ([]archive.ScheduledArchival, error) {
		return []archive.ScheduledArchival{{ID: "fresh"}}, nil
	}, store.WithSyncLogger(logging.NewNopLogger()))
	require.NoError(t, syncer.Sync(ctx))
	assert.Equal(t, []archive.ScheduledArchival{{ID: "fresh"}}, coll.List())
}
