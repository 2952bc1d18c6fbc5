package handle

import (
	"fmt"
	"sync"
)

// Kind identifies the class of GPU object a Handle addresses.
type Kind int

const (
	// KindProgram addresses a linked shader program.
	KindProgram Kind = iota

	// KindBuffer addresses a vertex, instance or index buffer.
	KindBuffer

	// KindVertexBinding addresses a vertex array object.
	KindVertexBinding

	// KindTexture addresses a texture object bound through a uniform resource.
	KindTexture
)

func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindBuffer:
		return "buffer"
	case KindVertexBinding:
		return "vertex-binding"
	case KindTexture:
		return "texture"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handle is an opaque identifier for a GPU object issued by a Registry.
// Handles are comparable and are the only form in which GPU objects appear in cache keys.
// The zero Handle is never issued.
type Handle struct {
	kind       Kind
	id         uint64
	generation uint32
}

// Kind returns the object class of the handle.
func (h Handle) Kind() Kind { return h.kind }

// ID returns the registry-wide unique identifier. IDs increase monotonically and are never reused.
func (h Handle) ID() uint64 { return h.id }

// Generation returns how many times the underlying native name had been issued for this kind
// when the handle was registered, starting at 1.
func (h Handle) Generation() uint32 { return h.generation }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.id == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d.%d", h.kind, h.id, h.generation)
}

// StaleHandleError is returned when a handle is used after its object was destroyed,
// or when it was never issued by the registry being asked.
type StaleHandleError struct {
	Handle Handle
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale handle %s", e.Handle)
}

type nativeKey struct {
	kind   Kind
	native uint32
}

type record struct {
	native uint32
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu *sync.RWMutex

	nextID      uint64
	live        map[Handle]record
	generations map[nativeKey]uint32
}

// Registry issues generation-tagged handles for native GPU object names and tracks
// which of them are still live. A Registry is shared by every execution context.
type Registry interface {
	// Register wraps a freshly created native object name in a new Handle.
	// If the native name was issued before for the same kind, the new handle carries the next generation.
	//
	// Parameters:
	//   - kind: the object class
	//   - native: the native object name returned by the driver
	//
	// Returns:
	//   - Handle: a handle that has never been issued before
	Register(kind Kind, native uint32) Handle

	// Native returns the native object name behind h.
	//
	// Parameters:
	//   - h: the handle to resolve
	//
	// Returns:
	//   - uint32: the native object name
	//   - error: a *StaleHandleError if h was retired or never issued
	Native(h Handle) (uint32, error)

	// Live reports whether h addresses a live object.
	Live(h Handle) bool

	// Retire marks h destroyed. Later lookups of h fail with *StaleHandleError.
	//
	// Parameters:
	//   - h: the handle to retire
	//
	// Returns:
	//   - error: a *StaleHandleError if h was already retired or never issued
	Retire(h Handle) error

	// Len returns the number of live handles of the given kind.
	Len(kind Kind) int
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - Registry: the new registry
func NewRegistry() Registry {
	return &registry{
		mu:          &sync.RWMutex{},
		live:        make(map[Handle]record),
		generations: make(map[nativeKey]uint32),
	}
}

func (r *registry) Register(kind Kind, native uint32) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	key := nativeKey{kind: kind, native: native}
	r.generations[key]++
	h := Handle{kind: kind, id: r.nextID, generation: r.generations[key]}
	r.live[h] = record{native: native}
	return h
}

func (r *registry) Native(h Handle) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.live[h]
	if !ok {
		return 0, &StaleHandleError{Handle: h}
	}
	return rec.native, nil
}

func (r *registry) Live(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[h]
	return ok
}

func (r *registry) Retire(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[h]; !ok {
		return &StaleHandleError{Handle: h}
	}
	delete(r.live, h)
	return nil
}

func (r *registry) Len(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for h := range r.live {
		if h.kind == kind {
			n++
		}
	}
	return n
}
