package events

import (
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Handler func(domain.CartChange)

// Publisher is the side of the bus that mutating components need.
type Publisher interface {
	Publish(change domain.CartChange)
}

// Subscriber is the side of the bus that listening components need.
type Subscriber interface {
	Subscribe(h Handler) (unsubscribe func())
}

// Bus is an in-memory cartUpdated channel scoped to one tab. Handlers run
// synchronously on the publishing goroutine in publish order.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[uint64]Handler
	order    []uint64
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h for every change published after this call returns.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish delivers change to the handlers registered at the time of the call.
// A handler that was unsubscribed while an earlier handler ran is skipped.
func (b *Bus) Publish(change domain.CartChange) {
	b.mu.Lock()
	ids := make([]uint64, len(b.order))
	copy(ids, b.order)
	b.mu.Unlock()

	for _, id := range ids {
		b.mu.Lock()
		h, ok := b.handlers[id]
		b.mu.Unlock()
		if ok {
			h(change)
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
