package archive

import (
	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
)

// Channel names and the wire names the server uses for them.
const (
	ScheduledArchivalChannel = "scheduled-archival"
	TrackedCollectionChannel = "tracked-collection"
)

// Bus channels for entity changes.
var (
	ScheduledArchivals = bus.NewChannel[change.Envelope[ScheduledArchival]](ScheduledArchivalChannel)
	TrackedCollections = bus.NewChannel[change.Envelope[TrackedCollection]](TrackedCollectionChannel)
)

// Wire aliases accepted for each channel in addition to its name.
var (
	ScheduledArchivalAliases = []string{"scheduled_archivals", "webSocketScheduledArchival"}
	TrackedCollectionAliases = []string{"tracked_collections", "webSocketTrackedCollection"}
)
