package store

import (
	"context"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/logging"
)

// Bind folds every envelope published on ch into coll. Unsubscribe the
// returned subscription to stop.
func Bind[T archive.Keyed](b *bus.Bus, ch bus.Channel[change.Envelope[T]], coll *Collection[T]) *bus.Subscription {
	return bus.Subscribe(b, ch, func(ctx context.Context, env change.Envelope[T]) error {
		changed := coll.Apply(env)
		logging.FromContext(ctx).Debug().
			Str("collection", coll.Name()).
			Stringer("action", env.Action()).
			Str("key", env.Record().Key().String()).
			Bool("changed", changed).
			Msg("Applied change")
		return nil
	})
}
