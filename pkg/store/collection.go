// Package store folds change envelopes into keyed in-memory collections and
// keeps them in step with the server across reconnects.
package store

import (
	"reflect"
	"slices"
	"sync"

	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/change"
)

// EventKind tells watchers how a collection changed.
type EventKind int

// Event kinds.
const (
	// Applied means one envelope changed one entry.
	Applied EventKind = iota
	// Replaced means the whole content was replaced by a snapshot.
	Replaced
)

// Event describes one mutation of a collection.
type Event[T archive.Keyed] struct {
	Kind    EventKind
	Action  change.Action // set for Applied
	Key     archive.EntityID
	Record  T             // the applied record; for Delete, the removed entry
	Changes *Changeset[T] // set for Replaced
	Version uint64
}

type watcher[T archive.Keyed] struct {
	id uint64
	fn func(Event[T])
}

// Collection is a keyed set of entities. It is safe for concurrent use.
type Collection[T archive.Keyed] struct {
	name string

	mu       sync.RWMutex
	items    map[archive.EntityID]T
	version  uint64
	watchers []watcher[T]
	nextID   uint64

	// journals record envelopes folded while a snapshot fetch is open
	journals map[uint64]*[]change.Envelope[T]
}

// NewCollection creates an empty collection.
func NewCollection[T archive.Keyed](name string) *Collection[T] {
	return &Collection[T]{
		name:  name,
		items: make(map[archive.EntityID]T),
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Apply folds one envelope into the collection and reports whether the
// content changed:
//
//   - Insert stores the record, overwriting an existing entry.
//   - Update replaces the entry, inserting it when missing.
//   - Delete removes the entry; deleting a missing key is a no-op.
//
// Applying the same envelope twice leaves the collection as after the first.
func (c *Collection[T]) Apply(env change.Envelope[T]) bool {
	record := env.Record()
	key := record.Key()
	if key.IsZero() {
		return false
	}

	c.mu.Lock()
	for _, j := range c.journals {
		*j = append(*j, env)
	}
	record, changed := fold(c.items, env)
	if !changed {
		c.mu.Unlock()
		return false
	}
	c.version++
	event := Event[T]{Kind: Applied, Action: env.Action(), Key: key, Record: record, Version: c.version}
	watchers := c.watchers
	c.mu.Unlock()

	notify(watchers, event)
	return true
}

// fold applies env to items and returns the affected record.
func fold[T archive.Keyed](items map[archive.EntityID]T, env change.Envelope[T]) (T, bool) {
	record := env.Record()
	key := record.Key()
	switch env.Action() {
	case change.Insert, change.Update:
		if prev, ok := items[key]; ok && reflect.DeepEqual(prev, record) {
			return record, false
		}
		items[key] = record
		return record, true
	case change.Delete:
		prev, ok := items[key]
		if !ok {
			return record, false
		}
		delete(items, key)
		return prev, true
	}
	return record, false
}

// Reset replaces the whole content with an authoritative snapshot and
// returns what it changed. Watchers are notified even when nothing changed.
//
// Reset discards anything folded since the snapshot was taken; callers that
// fetch concurrently with Apply use BeginSnapshot instead.
func (c *Collection[T]) Reset(items []T) Changeset[T] {
	return c.replace(items, nil)
}

// Snapshot is an open snapshot fetch. Envelopes applied to the collection
// between BeginSnapshot and Commit are replayed over the fetched items, so a
// change that arrives during the fetch survives the reset.
type Snapshot[T archive.Keyed] struct {
	coll *Collection[T]
	id   uint64
	once sync.Once
}

// BeginSnapshot starts recording applied envelopes. Call it before fetching
// and finish with Commit or Abort.
func (c *Collection[T]) BeginSnapshot() *Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	if c.journals == nil {
		c.journals = make(map[uint64]*[]change.Envelope[T])
	}
	c.journals[c.nextID] = new([]change.Envelope[T])
	return &Snapshot[T]{coll: c, id: c.nextID}
}

// Commit resets the collection to items plus every envelope applied since
// BeginSnapshot, in the order they were applied. Only the first Commit or
// Abort has an effect.
func (s *Snapshot[T]) Commit(items []T) Changeset[T] {
	var changes Changeset[T]
	s.once.Do(func() {
		changes = s.coll.replace(items, &s.id)
	})
	return changes
}

// Abort stops recording without touching the collection.
func (s *Snapshot[T]) Abort() {
	s.once.Do(func() {
		s.coll.mu.Lock()
		delete(s.coll.journals, s.id)
		s.coll.mu.Unlock()
	})
}

// replace installs items, replaying the journal named by id when set.
func (c *Collection[T]) replace(items []T, id *uint64) Changeset[T] {
	next := make(map[archive.EntityID]T, len(items))
	for _, item := range items {
		if key := item.Key(); !key.IsZero() {
			next[key] = item
		}
	}

	c.mu.Lock()
	if id != nil {
		if j, ok := c.journals[*id]; ok {
			for _, env := range *j {
				fold(next, env)
			}
			delete(c.journals, *id)
		}
	}
	changes := diff(c.items, next)
	c.items = next
	c.version++
	event := Event[T]{Kind: Replaced, Changes: &changes, Version: c.version}
	watchers := c.watchers
	c.mu.Unlock()

	notify(watchers, event)
	return changes
}

// Get returns the entry stored under key.
func (c *Collection[T]) Get(key archive.EntityID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	return item, ok
}

// List returns all entries ordered by key.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	items := make([]T, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, item)
	}
	c.mu.RUnlock()

	slices.SortFunc(items, byKey[T])
	return items
}

// Len returns the number of entries.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Version increases with every mutation.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Watch registers fn to run after every mutation, on the goroutine that
// mutated the collection. The returned function removes it.
func (c *Collection[T]) Watch(fn func(Event[T])) (stop func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers = append(slices.Clip(c.watchers), watcher[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.watchers = slices.DeleteFunc(slices.Clone(c.watchers), func(w watcher[T]) bool {
				return w.id == id
			})
		})
	}
}

func notify[T archive.Keyed](watchers []watcher[T], event Event[T]) {
	for _, w := range watchers {
		w.fn(event)
	}
}
