// Package lifecycle delivers resource-destroyed notifications to the caches that hold
// references to GPU objects. Delivery is synchronous and happens before the native
// object is deleted, so no cache can observe a recycled native name.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
)

// EventKind identifies what was destroyed.
type EventKind int

const (
	// BufferDestroyed is published before a vertex, instance or index buffer is deleted.
	BufferDestroyed EventKind = iota

	// ProgramDestroyed is published before a shader program is deleted.
	ProgramDestroyed

	// ContextDestroyed is published before an execution context is torn down.
	ContextDestroyed
)

func (k EventKind) String() string {
	switch k {
	case BufferDestroyed:
		return "buffer-destroyed"
	case ProgramDestroyed:
		return "program-destroyed"
	case ContextDestroyed:
		return "context-destroyed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single destroy notification. Handle is set for buffer and program events,
// Context for context events.
type Event struct {
	Kind    EventKind
	Handle  handle.Handle
	Context uint64
}

type subscription struct {
	id uint64
	fn func(Event)
}

// bus is the implementation of the Bus interface.
type bus struct {
	mu     *sync.RWMutex
	nextID uint64
	subs   []subscription
}

// Bus fans out destroy events to every subscriber, in subscription order, on the
// publishing goroutine. Subscribers may publish further events.
type Bus interface {
	// Subscribe registers fn to receive every future event.
	//
	// Parameters:
	//   - fn: the callback, invoked synchronously
	//
	// Returns:
	//   - func(): removes the subscription
	Subscribe(fn func(Event)) func()

	// Publish delivers ev to every current subscriber and returns when all have run.
	//
	// Parameters:
	//   - ev: the event to deliver
	Publish(ev Event)
}

var _ Bus = &bus{}

// NewBus creates a bus with no subscribers.
//
// Returns:
//   - Bus: the new bus
func NewBus() Bus {
	return &bus{mu: &sync.RWMutex{}}
}

func (b *bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *bus) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
