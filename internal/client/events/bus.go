package events

import (
	"sync"

	"github.com/dmitrijs2005/coevo/internal/client/models"
	"github.com/google/uuid"
)

// Filter selects the envelopes a subscription receives. A nil Filter
// matches everything.
type Filter func(models.Envelope) bool

// ByType matches envelopes of the given types.
func ByType(types ...models.EventType) Filter {
	set := make(map[models.EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e models.Envelope) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// ForThread matches envelopes of the given types scoped to threadID, and
// every resync.
func ForThread(threadID int64, types ...models.EventType) Filter {
	byType := ByType(types...)
	return func(e models.Envelope) bool {
		if e.Type == models.EventResync {
			return true
		}
		return e.ThreadID == threadID && byType(e)
	}
}

// Bus fans envelopes from one producer out to many subscribers. Every
// subscriber gets each matching envelope once, in publish order. Queues
// are unbounded, so a slow subscriber never blocks Publish or loses
// messages.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: map[string]*Subscription{}}
}

// Subscribe registers a consumer. On a closed bus the returned
// subscription is already closed.
func (b *Bus) Subscribe(filter Filter) *Subscription {
	s := &Subscription{
		id:     uuid.NewString(),
		bus:    b,
		filter: filter,
		wake:   make(chan struct{}, 1),
		out:    make(chan models.Envelope),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.pump()

	b.mu.Lock()
	closed := b.closed
	if !closed {
		b.subs[s.id] = s
	}
	b.mu.Unlock()

	if closed {
		s.Close()
	}
	return s
}

// Publish enqueues env for every matching subscriber. It never blocks.
func (b *Bus) Publish(env models.Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.filter == nil || s.filter(env) {
			s.enqueue(env)
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = map[string]*Subscription{}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	id     string
	bus    *Bus
	filter Filter

	mu     sync.Mutex
	queue  []models.Envelope
	closed bool

	wake   chan struct{}
	out    chan models.Envelope
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan models.Envelope {
	return s.out
}

// Close unsubscribes. Once Close returns nothing more is delivered on
// Events. Safe to call more than once and from the consuming goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		s.bus.remove(s.id)
		close(s.done)
		<-s.exited
	})
}

func (s *Subscription) enqueue(env models.Envelope) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, env)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.exited)
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		env := s.queue[0]
		s.queue[0] = models.Envelope{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}
		select {
		case s.out <- env:
		case <-s.done:
			return
		}
	}
}
