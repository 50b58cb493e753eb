package realtime

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/immortalis/archivesync/pkg/bus"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/errors"
)

// Router maps wire channel names to typed bus channels.
type Router struct {
	mu     sync.RWMutex
	routes map[string]route
}

type route struct {
	channel  string
	dispatch func(ctx context.Context, payload json.RawMessage) error
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

// Route binds ch on b to its own name and to each alias. Frames addressed
// to any of them are decoded as change.Envelope[T] and published on ch.
func Route[T any](r *Router, b *bus.Bus, ch bus.Channel[change.Envelope[T]], aliases ...string) {
	name := ch.Name()
	rt := route{
		channel: name,
		dispatch: func(ctx context.Context, payload json.RawMessage) error {
			env, err := change.Decode[T](payload)
			if err != nil {
				var malformed *errors.MalformedEnvelopeError
				if errors.As(err, &malformed) && malformed.Channel == "" {
					malformed.Channel = name
				}
				return err
			}
			bus.Publish(ctx, b, ch, env)
			return nil
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = rt
	for _, alias := range aliases {
		r.routes[alias] = rt
	}
}

// Dispatch decodes the frame's envelope and publishes it on the routed
// channel. Nothing is published when an error is returned.
func (r *Router) Dispatch(ctx context.Context, f change.Frame) error {
	r.mu.RLock()
	rt, ok := r.routes[f.Channel]
	r.mu.RUnlock()
	if !ok {
		return errors.NewUnknownChannelError(f.Channel)
	}
	return rt.dispatch(ctx, f.Payload)
}

// Resolve returns the bus channel name a wire name routes to.
func (r *Router) Resolve(wireName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[wireName]
	return rt.channel, ok
}

// Names returns every routed wire name, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}
