package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/realtime"
	"github.com/immortalis/archivesync/pkg/store"
)

func TestBindFoldsPublishedEnvelopes(t *testing.T) {
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	coll := store.NewCollection[archive.TrackedCollection]("tracked collections")
	sub := store.Bind(b, archive.TrackedCollections, coll)

	ctx := context.Background()
	bus.Publish(ctx, b, archive.TrackedCollections, change.New(change.Insert, archive.TrackedCollection{ID: "1", URL: "u"}))
	bus.Publish(ctx, b, archive.TrackedCollections, change.New(change.Insert, archive.TrackedCollection{ID: "2", URL: "v"}))
	assert.Equal(t, 2, coll.Len())

	sub.Unsubscribe()
	bus.Publish(ctx, b, archive.TrackedCollections, change.New(change.Delete, archive.TrackedCollection{ID: "1"}))
	assert.Equal(t, 2, coll.Len())
}

func TestFrameToFold(t *testing.T) {
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	router := realtime.NewRouter()
	realtime.Route(router, b, archive.ScheduledArchivals, archive.ScheduledArchivalAliases...)

	coll := store.NewCollection[archive.ScheduledArchival]("scheduled archivals")
	store.Bind(b, archive.ScheduledArchivals, coll)

	frame, err := change.DecodeFrame([]byte(`{"channel":"scheduled-archival","action":"insert","record":{"id":"abc","url":"http://x"}}`))
	require.NoError(t, err)
	require.NoError(t, router.Dispatch(context.Background(), frame))

	got, ok := coll.Get("abc")
	require.True(t, ok)
	assert.Equal(t, archive.ScheduledArchival{ID: "abc", URL: "http://x"}, got)

	bad, err := change.DecodeFrame([]byte(`{"channel":"scheduled-archival","action":"replace","record":{"id":"abc"}}`))
	require.NoError(t, err)
	assert.Error(t, router.Dispatch(context.Background(), bad))
	assert.Equal(t, 1, coll.Len())
	assert.Equal(t, uint64(1), coll.Version())
}
