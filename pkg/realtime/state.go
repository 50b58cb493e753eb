package realtime

import (
	"time"

	"github.com/immortalis/archivesync/pkg/bus"
)

// State is the lifecycle state of the server connection.
type State int

// Connection states.
const (
	Idle State = iota
	Connecting
	Open
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reasons attached to a transition into Closed.
const (
	ReasonClientRequested = "client-requested"
	ReasonUnexpected      = "unexpected"
	ReasonUnreachable     = "unreachable"
)

// StateChange describes one connection state transition.
type StateChange struct {
	From       State     `json:"from"`
	To         State     `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	At         time.Time `json:"at"`
	Connection string    `json:"connection"`
}

// ConnectionState carries every state transition of an Adapter. Subscribers
// treat a transition to Open as the cue to re-fetch authoritative state.
var ConnectionState = bus.NewChannel[StateChange]("connection-state")
