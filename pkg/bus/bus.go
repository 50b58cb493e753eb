// Package bus provides an in-process, statically typed publish/subscribe
// registry. Each Channel carries exactly one payload type; publishing and
// subscribing are generic over that type, so a subscriber can never be handed
// a payload of the wrong shape.
//
// Delivery is synchronous and in registration order. A handler that returns
// an error or panics is isolated: the failure is reported and delivery
// continues with the next handler.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/errors"
	"github.com/immortalis/archivesync/pkg/logging"
)

// Channel is a named slot on the bus carrying values of type T.
type Channel[T any] struct {
	name string
}

// NewChannel declares a channel. Channels are plain values; declaring the
// same name twice with the same T yields interchangeable channels.
func NewChannel[T any](name string) Channel[T] {
	return Channel[T]{name: name}
}

// Name returns the channel name.
func (c Channel[T]) Name() string {
	return c.name
}

// String implements fmt.Stringer.
func (c Channel[T]) String() string {
	return c.name
}

// Handler receives values published on a channel.
type Handler[T any] func(ctx context.Context, v T) error

// ErrorHandler is called for every isolated handler failure.
type ErrorHandler func(err error)

type registration struct {
	id      uint64
	channel string
	active  atomic.Bool
	fn      func(ctx context.Context, v any) error
}

// Bus is the registry of channels and their subscribers. The zero value is
// not usable; create one with New. Each owner constructs its own Bus.
type Bus struct {
	logger       *zerolog.Logger
	errorHandler ErrorHandler
	nextID       atomic.Uint64

	mu       sync.RWMutex
	handlers map[string][]*registration
	types    map[string]reflect.Type
}

// New creates a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]*registration),
		types:    make(map[string]reflect.Type),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDefault(b.logger)
	return b
}

// Subscribe registers handler for every value subsequently published on ch.
// Values published before the call are not replayed.
func Subscribe[T any](b *Bus, ch Channel[T], handler Handler[T]) *Subscription {
	if handler == nil {
		panic(fmt.Sprintf("bus: programming error: nil handler for channel %q", ch.name))
	}
	b.bind(ch.name, reflect.TypeOf((*T)(nil)).Elem())

	r := &registration{
		id:      b.nextID.Add(1),
		channel: ch.name,
		fn: func(ctx context.Context, v any) error {
			return handler(ctx, v.(T))
		},
	}
	r.active.Store(true)

	b.mu.Lock()
	// Clip forces append to copy, so in-flight publish snapshots stay intact.
	b.handlers[ch.name] = append(slices.Clip(b.handlers[ch.name]), r)
	b.mu.Unlock()

	b.logger.Debug().
		Str("channel", ch.name).
		Uint64("handler", r.id).
		Msg("Subscribed")

	return &Subscription{bus: b, reg: r}
}

// Publish delivers v to every handler subscribed to ch at the time of the
// call, in registration order, and returns the number of handlers invoked.
// It returns only after all of them have completed.
func Publish[T any](ctx context.Context, b *Bus, ch Channel[T], v T) int {
	b.bind(ch.name, reflect.TypeOf((*T)(nil)).Elem())

	b.mu.RLock()
	regs := b.handlers[ch.name]
	b.mu.RUnlock()

	invoked := 0
	for _, r := range regs {
		// Unsubscribed by an earlier handler of this same publish.
		if !r.active.Load() {
			continue
		}
		invoked++
		if err := invoke(ctx, r, v); err != nil {
			b.report(err)
		}
	}
	return invoked
}

// Unsubscribe removes the subscription. It is a no-op for nil, foreign or
// already removed subscriptions.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.reg == nil || sub.bus != b {
		return
	}
	r := sub.reg
	if !r.active.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	current := b.handlers[r.channel]
	kept := make([]*registration, 0, len(current))
	for _, h := range current {
		if h != r {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, r.channel)
	} else {
		b.handlers[r.channel] = kept
	}
	b.mu.Unlock()

	b.logger.Debug().
		Str("channel", r.channel).
		Uint64("handler", r.id).
		Msg("Unsubscribed")
}

// SubscriberCount returns the number of active subscriptions on the named channel.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

// Channels returns the sorted names of all channels used on this bus so far.
func (b *Bus) Channels() []string {
	b.mu.RLock()
	names := make([]string, 0, len(b.types))
	for name := range b.types {
		names = append(names, name)
	}
	b.mu.RUnlock()
	slices.Sort(names)
	return names
}

// bind records the payload type of a channel name on first use and panics
// when the same name is later used with a different type.
func (b *Bus) bind(name string, t reflect.Type) {
	b.mu.RLock()
	existing, ok := b.types[name]
	b.mu.RUnlock()
	if !ok {
		b.mu.Lock()
		existing, ok = b.types[name]
		if !ok {
			b.types[name] = t
			existing = t
		}
		b.mu.Unlock()
	}
	if existing != t {
		panic(fmt.Sprintf("bus: programming error: channel %q carries %s, used with %s", name, existing, t))
	}
}

func (b *Bus) report(err error) {
	event := b.logger.Error().Err(err)
	var herr *errors.HandlerError
	if errors.As(err, &herr) {
		event = event.Str("channel", herr.Channel).Uint64("handler", herr.Handler)
		if herr.Panic != nil {
			event = event.Interface("panic", herr.Panic)
		}
	}
	event.Msg("Handler failed")

	if b.errorHandler != nil {
		b.errorHandler(err)
	}
}

func invoke(ctx context.Context, r *registration, v any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &errors.HandlerError{
				Channel: r.channel,
				Handler: r.id,
				Panic:   p,
				Err:     fmt.Errorf("panic: %v", p),
			}
		}
	}()
	if herr := r.fn(ctx, v); herr != nil {
		return &errors.HandlerError{Channel: r.channel, Handler: r.id, Err: herr}
	}
	return nil
}
