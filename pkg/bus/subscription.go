package bus

// Subscription is the handle returned by Subscribe. Its only capability is
// Unsubscribe; the owner must call it to stop receiving values.
type Subscription struct {
	bus *Bus
	reg *registration
}

// Unsubscribe removes the handler from the bus. It is safe to call more
// than once and on a nil Subscription. A handler that is mid-invocation may
// finish that single invocation.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Unsubscribe(s)
}

// Channel returns the name of the subscribed channel.
func (s *Subscription) Channel() string {
	if s == nil || s.reg == nil {
		return ""
	}
	return s.reg.channel
}

// ID returns the registration id, unique within the bus.
func (s *Subscription) ID() uint64 {
	if s == nil || s.reg == nil {
		return 0
	}
	return s.reg.id
}

// Active reports whether the subscription still receives values.
func (s *Subscription) Active() bool {
	return s != nil && s.reg != nil && s.reg.active.Load()
}
