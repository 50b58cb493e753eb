package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
	"github.com/immortalis/archivesync/pkg/realtime"
)

// Fetcher returns an authoritative snapshot of a collection.
type Fetcher[T archive.Keyed] func(ctx context.Context) ([]T, error)

// SyncOption configures a Syncer.
type SyncOption func(*syncConfig)

type syncConfig struct {
	timeout time.Duration
	logger  *zerolog.Logger
}

// WithSyncTimeout bounds each snapshot fetch.
func WithSyncTimeout(d time.Duration) SyncOption {
	return func(c *syncConfig) { c.timeout = d }
}

// WithSyncLogger sets the logger for fetch failures.
func WithSyncLogger(logger *zerolog.Logger) SyncOption {
	return func(c *syncConfig) { c.logger = logger }
}

// Syncer replaces a collection with a fresh snapshot every time the
// connection opens. Changes emitted while the client was disconnected are
// not redelivered, so the snapshot is what brings the collection back in step.
type Syncer[T archive.Keyed] struct {
	coll   *Collection[T]
	fetch  Fetcher[T]
	config syncConfig

	mu       sync.Mutex
	lastSync time.Time
	lastErr  error
	syncs    int
}

// NewSyncer creates a syncer for coll.
func NewSyncer[T archive.Keyed](coll *Collection[T], fetch Fetcher[T], opts ...SyncOption) *Syncer[T] {
	cfg := syncConfig{timeout: constants.ResyncTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = logging.OrDefault(cfg.logger)
	return &Syncer[T]{coll: coll, fetch: fetch, config: cfg}
}

// Start subscribes the syncer to connection state changes on b.
func (s *Syncer[T]) Start(b *bus.Bus) *bus.Subscription {
	return bus.Subscribe(b, realtime.ConnectionState, func(ctx context.Context, sc realtime.StateChange) error {
		if sc.To != realtime.Open {
			return nil
		}
		// Failures are logged by Sync; the next Open retries.
		_ = s.Sync(ctx)
		return nil
	})
}

// Sync fetches a snapshot and resets the collection to it. Envelopes folded
// while the fetch is in flight are kept on top of the snapshot. On failure
// the collection keeps its current content.
func (s *Syncer[T]) Sync(ctx context.Context) error {
	if s.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.timeout)
		defer cancel()
	}

	start := time.Now()
	snap := s.coll.BeginSnapshot()
	defer snap.Abort()

	items, err := s.fetch(ctx)
	if err != nil {
		err = errors.WrapResource("fetch", s.coll.Name(), "", err)
		s.config.logger.Warn().
			Err(err).
			Str("collection", s.coll.Name()).
			Msg("Snapshot fetch failed")
		s.record(err)
		return err
	}

	changes := snap.Commit(items)
	s.config.logger.Info().
		Str("collection", s.coll.Name()).
		Int("items", len(items)).
		Int("added", len(changes.Added)).
		Int("updated", len(changes.Updated)).
		Int("removed", len(changes.Removed)).
		Dur("took", time.Since(start)).
		Msg("Collection resynchronized")
	s.record(nil)
	return nil
}

// LastSync returns when the last successful sync finished, and the error
// of the most recent attempt.
func (s *Syncer[T]) LastSync() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync, s.lastErr
}

// Syncs returns the number of successful syncs.
func (s *Syncer[T]) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

func (s *Syncer[T]) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err == nil {
		s.lastSync = time.Now()
		s.syncs++
	}
}
