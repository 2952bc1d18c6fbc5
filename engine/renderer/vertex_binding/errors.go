package vertex_binding

import (
	"errors"
	"fmt"
)

// ErrContextDestroyed is returned when a binding is requested on a context that was torn down.
var ErrContextDestroyed = errors.New("vertex binding: context destroyed")

// ContextMismatchError is returned when a context is used from a thread where its native
// context is not current, or when a binding built on one context is bound on another.
// Binding objects cannot be shared between native contexts.
type ContextMismatchError struct {
	Context uint64
	// Owner is the context the binding was built on, or zero when Context is not current.
	Owner    uint64
	Expected uintptr
	Actual   uintptr
}

func (e *ContextMismatchError) Error() string {
	if e.Owner != 0 {
		return fmt.Sprintf("vertex binding: binding of context %d used on context %d", e.Owner, e.Context)
	}
	return fmt.Sprintf("vertex binding: context %d is not current (want native %#x, current %#x)", e.Context, e.Expected, e.Actual)
}

// AttributeLimitError is returned when a draw configuration needs more attribute slots than
// the driver guarantees.
type AttributeLimitError struct {
	Slots int
	Limit int
}

func (e *AttributeLimitError) Error() string {
	return fmt.Sprintf("vertex binding: %d attribute slots exceed the limit of %d", e.Slots, e.Limit)
}
