package store

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/immortalis/archivesync/pkg/archive"
)

// Update is an entry present before and after a snapshot with different content.
type Update[T archive.Keyed] struct {
	Existing T
	New      T
}

// Changeset is the difference a snapshot made to a collection.
type Changeset[T archive.Keyed] struct {
	Added   []T         // entries only in the snapshot
	Updated []Update[T] // entries whose content changed
	Removed []T         // entries missing from the snapshot
}

// HasChanges reports whether the snapshot changed anything.
func (c Changeset[T]) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Updated) > 0 || len(c.Removed) > 0
}

// String returns a short summary, e.g. "+2 ~1 -0".
func (c Changeset[T]) String() string {
	return fmt.Sprintf("+%d ~%d -%d", len(c.Added), len(c.Updated), len(c.Removed))
}

// diff compares two keyed snapshots. Every slice is ordered by key.
func diff[T archive.Keyed](before, after map[archive.EntityID]T) Changeset[T] {
	var cs Changeset[T]
	for key, next := range after {
		prev, ok := before[key]
		switch {
		case !ok:
			cs.Added = append(cs.Added, next)
		case !reflect.DeepEqual(prev, next):
			cs.Updated = append(cs.Updated, Update[T]{Existing: prev, New: next})
		}
	}
	for key, prev := range before {
		if _, ok := after[key]; !ok {
			cs.Removed = append(cs.Removed, prev)
		}
	}

	slices.SortFunc(cs.Added, byKey[T])
	slices.SortFunc(cs.Removed, byKey[T])
	slices.SortFunc(cs.Updated, func(a, b Update[T]) int { return byKey(a.New, b.New) })
	return cs
}

func byKey[T archive.Keyed](a, b T) int {
	switch ka, kb := a.Key(), b.Key(); {
	case ka.Less(kb):
		return -1
	case kb.Less(ka):
		return 1
	}
	return 0
}
