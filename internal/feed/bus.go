package feed

import (
	"sync"

	"github.com/hsautopilot/tracker-go/internal/game"
)

// Listener receives every published snapshot.
type Listener func(game.Snapshot)

// Bus is a synchronous publish/subscribe bus for snapshot updates. It keeps
// the last published snapshot so late subscribers can catch up.
type Bus struct {
	mu         sync.RWMutex
	listeners  map[int]Listener
	order      []int
	nextHandle int

	latest    game.Snapshot
	hasLatest bool
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns its handle, or -1 for nil.
func (b *Bus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := b.nextHandle
	b.nextHandle++
	b.listeners[handle] = listener
	b.order = append(b.order, handle)
	return handle
}

// Unsubscribe removes the listener identified by handle.
func (b *Bus) Unsubscribe(handle int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[handle]; !ok {
		return
	}
	delete(b.listeners, handle)
	for i, h := range b.order {
		if h == handle {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish stores snap as the latest snapshot and delivers it to every
// listener in subscription order. Listeners must not block.
func (b *Bus) Publish(snap game.Snapshot) {
	b.mu.Lock()
	b.latest = snap
	b.hasLatest = true
	listeners := make([]Listener, 0, len(b.order))
	for _, h := range b.order {
		listeners = append(listeners, b.listeners[h])
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Latest returns the most recently published snapshot.
func (b *Bus) Latest() (game.Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, b.hasLatest
}

// Reset forgets the latest snapshot. Listeners stay subscribed.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = game.Snapshot{}
	b.hasLatest = false
}

// Len returns the number of subscribed listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
