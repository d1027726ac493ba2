package events

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// Bus is a typed, in-process event bus connecting bootstrap to its downstream
// consumers.
//
// Subscriptions are typed via generics. Publish blocks until every matching
// subscriber has accepted the event or ctx is done, so a slow consumer slows
// the publisher rather than losing data. Close closes every subscription
// channel. Nothing is durable; the bootstrap journal lives in internal/eventstore.
type Bus struct {
	mu        sync.RWMutex
	subs      map[reflect.Type]map[uint64]*subscriber
	nextID    atomic.Uint64
	published atomic.Uint64
	isClosed  atomic.Bool
	closeOnce sync.Once
}

type subscriber struct {
	deliver func(ctx context.Context, evt Event) error
	close   func()
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type]map[uint64]*subscriber)}
}

// Subscribe registers a subscription for events of type T and returns the
// receive channel plus an unsubscribe func.
//
// When T is an interface every event implementing it is delivered; a concrete
// T only receives exactly that type. Subscribing to a closed bus returns an
// already closed channel. Unsubscribing while a Publish is blocked on this
// subscriber drops that delivery; the channel is closed only after every
// in-flight delivery has returned.
func Subscribe[T any](b *Bus, buffer int) (<-chan T, func()) {
	eventType := reflect.TypeFor[T]()
	ch := make(chan T, buffer)

	if b.isClosed.Load() {
		close(ch)
		return ch, func() {}
	}

	var (
		mu       sync.Mutex
		closing  bool
		inflight sync.WaitGroup
		done     = make(chan struct{})
		once     sync.Once
	)
	closeChannel := func() {
		once.Do(func() {
			mu.Lock()
			closing = true
			close(done)
			mu.Unlock()
			inflight.Wait()
			close(ch)
		})
	}

	id := b.nextID.Add(1)
	sub := &subscriber{
		deliver: func(ctx context.Context, evt Event) error {
			v, ok := any(evt).(T)
			if !ok {
				return errors.InternalError("event type mismatch").
					WithContext("expected", eventType.String()).
					WithContext("actual", evt.EventName()).
					Build()
			}

			mu.Lock()
			if closing {
				mu.Unlock()
				return nil
			}
			inflight.Add(1)
			mu.Unlock()
			defer inflight.Done()

			select {
			case ch <- v:
				return nil
			case <-done:
				return nil
			case <-ctx.Done():
				return errors.WrapError(ctx.Err(), errors.CategoryPublish, "event delivery canceled").
					WithContext("event", evt.EventName()).
					Build()
			}
		},
		close: closeChannel,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed.Load() {
		close(ch)
		return ch, func() {}
	}
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]*subscriber)
	}
	b.subs[eventType][id] = sub

	return ch, func() {
		b.mu.Lock()
		if typeSubs, ok := b.subs[eventType]; ok {
			delete(typeSubs, id)
			if len(typeSubs) == 0 {
				delete(b.subs, eventType)
			}
		}
		b.mu.Unlock()
		closeChannel()
	}
}

// SubscriberCount returns the number of active subscribers for T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[reflect.TypeFor[T]()])
}

// Publish delivers evt to every matching subscriber, in no particular order.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt == nil {
		return errors.ValidationError("event cannot be nil").Build()
	}
	if b.isClosed.Load() {
		return errors.PublishError("event bus is closed").
			WithContext("event", evt.EventName()).
			Build()
	}

	evtType := reflect.TypeOf(evt)

	b.mu.RLock()
	var targets []*subscriber
	for subType, typeSubs := range b.subs {
		match := subType == evtType
		if !match && subType.Kind() == reflect.Interface {
			match = evtType.Implements(subType)
		}
		if !match {
			continue
		}
		for _, s := range typeSubs {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(ctx, evt); err != nil {
			return err
		}
	}
	b.published.Add(1)
	return nil
}

// Published returns how many events were fully delivered.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Close closes the bus and every subscription channel.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.isClosed.Store(true)

		b.mu.Lock()
		var toClose []*subscriber
		for _, typeSubs := range b.subs {
			for _, s := range typeSubs {
				toClose = append(toClose, s)
			}
		}
		b.subs = make(map[reflect.Type]map[uint64]*subscriber)
		b.mu.Unlock()

		for _, s := range toClose {
			s.close()
		}
	})
}
