package realtime

import "sync/atomic"

// Stats are cumulative counters for an Adapter.
type Stats struct {
	State        State  `json:"state"`
	Frames       uint64 `json:"frames"`
	Published    uint64 `json:"published"`
	Malformed    uint64 `json:"malformed"`
	Unknown      uint64 `json:"unknown"`
	Opens        uint64 `json:"opens"`
	Reconnects   uint64 `json:"reconnects"`
	DialFailures uint64 `json:"dial_failures"`
}

type counters struct {
	frames       atomic.Uint64
	published    atomic.Uint64
	malformed    atomic.Uint64
	unknown      atomic.Uint64
	opens        atomic.Uint64
	reconnects   atomic.Uint64
	dialFailures atomic.Uint64
}

func (c *counters) snapshot(state State) Stats {
	return Stats{
		State:        state,
		Frames:       c.frames.Load(),
		Published:    c.published.Load(),
		Malformed:    c.malformed.Load(),
		Unknown:      c.unknown.Load(),
		Opens:        c.opens.Load(),
		Reconnects:   c.reconnects.Load(),
		DialFailures: c.dialFailures.Load(),
	}
}
