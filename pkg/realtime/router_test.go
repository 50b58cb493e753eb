package realtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/realtime"
)

func newRoutedBus(t *testing.T) (*bus.Bus, *realtime.Router) {
	t.Helper()
	b := bus.New(bus.WithLogger(logging.NewNopLogger()))
	r := realtime.NewRouter()
	realtime.Route(r, b, archive.ScheduledArchivals, archive.ScheduledArchivalAliases...)
	realtime.Route(r, b, archive.TrackedCollections, archive.TrackedCollectionAliases...)
	return b, r
}

func TestRouterDispatchByNameAndAlias(t *testing.T) {
	b, r := newRoutedBus(t)
	ctx := context.Background()

	var got []archive.EntityID
	bus.Subscribe(b, archive.TrackedCollections, func(_ context.Context, env change.Envelope[archive.TrackedCollection]) error {
		got = append(got, env.Record().ID)
		return nil
	})

	for i, name := range []string{"tracked-collection", "tracked_collections", "webSocketTrackedCollection"} {
		f, err := change.DecodeFrame([]byte(`{"channel":"` + name + `","action":"update","record":{"id":` + string(rune('1'+i)) + `}}`))
		require.NoError(t, err)
		require.NoError(t, r.Dispatch(ctx, f))
	}

	assert.Equal(t, []archive.EntityID{"1", "2", "3"}, got)
}

func TestRouterUnknownChannel(t *testing.T) {
	_, r := newRoutedBus(t)

	err := r.Dispatch(context.Background(), change.Frame{Channel: "videos", Payload: []byte(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.IsUnknownChannel(err))

	var unknown *errors.UnknownChannelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "videos", unknown.Channel)
}

func TestRouterMalformedPublishesNothing(t *testing.T) {
	b, r := newRoutedBus(t)

	calls := 0
	bus.Subscribe(b, archive.ScheduledArchivals, func(context.Context, change.Envelope[archive.ScheduledArchival]) error {
		calls++
		return nil
	})

	f, err := change.DecodeFrame([]byte(`{"channel":"scheduled_archivals","data":{"action":"replace","record":{"id":1}}}`))
	require.NoError(t, err)

	err = r.Dispatch(context.Background(), f)
	assert.True(t, errors.IsMalformedEnvelope(err))
	assert.Contains(t, err.Error(), "scheduled-archival")
	assert.Equal(t, 0, calls)
}

func TestRouterIntrospection(t *testing.T) {
	_, r := newRoutedBus(t)

	name, ok := r.Resolve("webSocketScheduledArchival")
	assert.True(t, ok)
	assert.Equal(t, "scheduled-archival", name)

	_, ok = r.Resolve("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{
		"scheduled-archival",
		"scheduled_archivals",
		"tracked-collection",
		"tracked_collections",
		"webSocketScheduledArchival",
		"webSocketTrackedCollection",
	}, r.Names())
}
