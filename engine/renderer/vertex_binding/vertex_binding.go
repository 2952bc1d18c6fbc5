package vertex_binding

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
)

// MaxAttributes is the number of vertex attribute slots every supported driver guarantees.
const MaxAttributes = 16

// Context is the execution context a binding belongs to.
type Context interface {
	ID() uint64
	IsCurrent() bool
	NativeIdentity() uintptr
	CurrentIdentity() uintptr
}

// Program is the part of a linked program the cache needs to map attributes.
type Program interface {
	Handle() handle.Handle
	Name() string
	AttributeLocation(name string) int32
}

// Stats counts cache activity since creation.
type Stats struct {
	Hits   uint64
	Misses uint64
	Swept  uint64
}

type entry struct {
	binding handle.Handle
	native  uint32
	program handle.Handle
	buffers []handle.Handle
}

type partition struct {
	ctx Context

	defaultBinding handle.Handle
	defaultNative  uint32

	entries map[string]*entry
	// bound shadows the vertex array bound on the context.
	bound uint32
	// pending holds native names swept while the context was not current. They are deleted
	// the next time the context is used on its own thread.
	pending []uint32
}

// bindingCache is the implementation of the BindingCache interface.
type bindingCache struct {
	mu *sync.Mutex

	drv      driver.Driver
	registry handle.Registry
	logger   *slog.Logger

	partitions map[uint64]*partition
	destroyed  map[uint64]bool
	// owners maps every live binding, default bindings included, to its context.
	owners map[handle.Handle]uint64
	stats  Stats

	unsubscribe func()
}

// BindingCache maps (context, program, vertex buffers, instance buffers) to vertex array
// objects. Entries are partitioned per context and swept when a buffer, program or context
// is destroyed. Resolve and Bind must be called on the thread where the context is current.
type BindingCache interface {
	// Resolve returns the binding for the given program and buffers, building it on a miss.
	// The context's default binding is bound when Resolve returns.
	//
	// Parameters:
	//   - ctx: the calling context, which must be current
	//   - program: the program whose attribute locations are used
	//   - vertexBuffers: per-vertex buffers, attributes prefixed a_
	//   - instanceBuffers: per-instance buffers, attributes prefixed i_
	//
	// Returns:
	//   - handle.Handle: the binding handle
	//   - error: *ContextMismatchError, ErrContextDestroyed, *handle.StaleHandleError or *AttributeLimitError
	Resolve(ctx Context, program Program, vertexBuffers, instanceBuffers []buffer.VertexBuffer) (handle.Handle, error)

	// Bind makes binding the current vertex array of ctx.
	//
	// Parameters:
	//   - ctx: the calling context
	//   - binding: a handle returned by Resolve or DefaultBinding for ctx
	//
	// Returns:
	//   - error: *ContextMismatchError or *handle.StaleHandleError
	Bind(ctx Context, binding handle.Handle) error

	// DefaultBinding returns the baseline binding of ctx, creating it on first use.
	DefaultBinding(ctx Context) (handle.Handle, error)

	// BindDefault binds the baseline binding of ctx.
	BindDefault(ctx Context) error

	// Contains reports whether a binding for the given arguments is cached.
	Contains(ctx Context, program Program, vertexBuffers, instanceBuffers []buffer.VertexBuffer) bool

	// Len returns the number of cached bindings of ctx, the default binding excluded.
	Len(ctx Context) int

	// Stats returns the activity counters.
	Stats() Stats

	// Close stops listening for lifecycle events. Remaining bindings are released with their contexts.
	Close()
}

var _ BindingCache = &bindingCache{}

// NewBindingCache creates a cache building vertex arrays on drv and sweeping on bus events.
//
// Parameters:
//   - drv: the native driver
//   - registry: issues binding handles and resolves buffer and program handles
//   - bus: delivers destroy events
//   - options: builder options
//
// Returns:
//   - BindingCache: the new cache
func NewBindingCache(drv driver.Driver, registry handle.Registry, bus lifecycle.Bus, options ...BindingCacheBuilderOption) BindingCache {
	c := &bindingCache{
		mu:         &sync.Mutex{},
		drv:        drv,
		registry:   registry,
		partitions: make(map[uint64]*partition),
		destroyed:  make(map[uint64]bool),
		owners:     make(map[handle.Handle]uint64),
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = logger.Or(c.logger)
	c.unsubscribe = bus.Subscribe(c.onLifecycle)
	return c
}

func bindingKey(ctx uint64, program handle.Handle, vertexBuffers, instanceBuffers []buffer.VertexBuffer) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(ctx, 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(program.ID(), 10))
	sb.WriteString("|v")
	for _, b := range vertexBuffers {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(b.Handle().ID(), 10))
	}
	sb.WriteString("|i")
	for _, b := range instanceBuffers {
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(b.Handle().ID(), 10))
	}
	return sb.String()
}

func checkCurrent(ctx Context) error {
	if ctx.IsCurrent() {
		return nil
	}
	return &ContextMismatchError{Context: ctx.ID(), Expected: ctx.NativeIdentity(), Actual: ctx.CurrentIdentity()}
}

// partitionFor must be called with c.mu held on the context's own thread. It flushes
// deletions deferred while the context was not current.
func (c *bindingCache) partitionFor(ctx Context) (*partition, error) {
	if c.destroyed[ctx.ID()] {
		return nil, ErrContextDestroyed
	}
	p, ok := c.partitions[ctx.ID()]
	if !ok {
		p = &partition{ctx: ctx, entries: make(map[string]*entry)}
		c.partitions[ctx.ID()] = p
	}
	if len(p.pending) > 0 {
		c.deleteArrays(p.pending)
		p.pending = nil
	}
	return p, nil
}

// defaultFor must be called with c.mu held.
func (c *bindingCache) defaultFor(p *partition) (handle.Handle, uint32) {
	if p.defaultNative == 0 {
		lock := driver.ObjectCreationLock()
		lock.Lock()
		p.defaultNative = c.drv.GenVertexArray()
		lock.Unlock()
		p.defaultBinding = c.registry.Register(handle.KindVertexBinding, p.defaultNative)
		c.owners[p.defaultBinding] = p.ctx.ID()
		c.logger.Debug("[VertexBinding] created default binding", "context", p.ctx.ID(), "native", p.defaultNative)
	}
	return p.defaultBinding, p.defaultNative
}

func (c *bindingCache) deleteArrays(natives []uint32) {
	lock := driver.ObjectCreationLock()
	lock.Lock()
	defer lock.Unlock()
	for _, n := range natives {
		c.drv.DeleteVertexArray(n)
	}
}

func (c *bindingCache) Resolve(ctx Context, program Program, vertexBuffers, instanceBuffers []buffer.VertexBuffer) (handle.Handle, error) {
	if err := checkCurrent(ctx); err != nil {
		return handle.Handle{}, err
	}
	if !c.registry.Live(program.Handle()) {
		return handle.Handle{}, &handle.StaleHandleError{Handle: program.Handle()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.partitionFor(ctx)
	if err != nil {
		return handle.Handle{}, err
	}

	key := bindingKey(ctx.ID(), program.Handle(), vertexBuffers, instanceBuffers)
	if e, ok := p.entries[key]; ok {
		c.stats.Hits++
		if _, defaultNative := c.defaultFor(p); p.bound != defaultNative {
			c.drv.BindVertexArray(defaultNative)
			p.bound = defaultNative
		}
		return e.binding, nil
	}
	c.stats.Misses++

	layouts, slots, err := c.layouts(program, vertexBuffers, instanceBuffers)
	if err != nil {
		return handle.Handle{}, err
	}
	if slots > MaxAttributes {
		return handle.Handle{}, &AttributeLimitError{Slots: slots, Limit: MaxAttributes}
	}

	_, defaultNative := c.defaultFor(p)

	lock := driver.ObjectCreationLock()
	lock.Lock()
	native := c.drv.GenVertexArray()
	c.drv.BindVertexArray(native)
	for _, l := range layouts {
		c.drv.BindBuffer(driver.ARRAY_BUFFER, l.native)
		for _, a := range l.attributes {
			c.setupAttribute(a, int32(l.format.Size()), l.divisor)
		}
	}
	c.drv.BindBuffer(driver.ARRAY_BUFFER, 0)
	c.drv.BindVertexArray(defaultNative)
	lock.Unlock()
	p.bound = defaultNative

	e := &entry{
		binding: c.registry.Register(handle.KindVertexBinding, native),
		native:  native,
		program: program.Handle(),
	}
	for _, l := range layouts {
		e.buffers = append(e.buffers, l.buffer)
	}
	p.entries[key] = e
	c.owners[e.binding] = ctx.ID()
	c.logger.Debug("[VertexBinding] created binding", "context", ctx.ID(), "program", program.Name(), "native", native, "slots", slots)
	return e.binding, nil
}

type attribute struct {
	location int32
	element  buffer.VertexElement
}

type layout struct {
	buffer     handle.Handle
	native     uint32
	format     *buffer.VertexFormat
	divisor    uint32
	attributes []attribute
}

// layouts resolves buffer handles and attribute locations before any native object is created.
func (c *bindingCache) layouts(program Program, vertexBuffers, instanceBuffers []buffer.VertexBuffer) ([]layout, int, error) {
	var (
		out   []layout
		slots int
	)
	add := func(buffers []buffer.VertexBuffer, prefix string, divisor uint32) error {
		for _, b := range buffers {
			native, err := c.registry.Native(b.Handle())
			if err != nil {
				return err
			}
			l := layout{buffer: b.Handle(), native: native, format: b.Format(), divisor: divisor}
			for _, e := range b.Format().Items() {
				if e.IsPadding() {
					continue
				}
				loc := program.AttributeLocation(prefix + e.Attribute)
				if loc < 0 {
					c.logger.Debug("[VertexBinding] attribute not used by program", "program", program.Name(), "attribute", prefix+e.Attribute)
					continue
				}
				l.attributes = append(l.attributes, attribute{location: loc, element: e})
				slots += e.Type.Columns() * e.ArraySize
			}
			out = append(out, l)
		}
		return nil
	}
	if err := add(vertexBuffers, "a_", 0); err != nil {
		return nil, 0, err
	}
	if err := add(instanceBuffers, "i_", 1); err != nil {
		return nil, 0, err
	}
	return out, slots, nil
}

// setupAttribute declares every slot of one element. Matrices take one slot per column and
// arrays one slot run per element.
func (c *bindingCache) setupAttribute(a attribute, stride int32, divisor uint32) {
	t := a.element.Type
	cols := t.Columns()
	for i := 0; i < a.element.ArraySize; i++ {
		for col := 0; col < cols; col++ {
			index := uint32(a.location) + uint32(i*cols+col)
			offset := a.element.Offset + i*t.SizeInBytes() + col*t.ColumnSize()
			c.drv.EnableVertexAttribArray(index)
			if t.IsInteger() {
				c.drv.VertexAttribIPointer(index, t.Components(), t.ComponentType(), stride, offset)
			} else {
				c.drv.VertexAttribPointer(index, t.Components(), t.ComponentType(), false, stride, offset)
			}
			c.drv.VertexAttribDivisor(index, divisor)
		}
	}
}

func (c *bindingCache) Bind(ctx Context, binding handle.Handle) error {
	if err := checkCurrent(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.partitionFor(ctx)
	if err != nil {
		return err
	}
	native, err := c.registry.Native(binding)
	if err != nil {
		return err
	}
	owner, ok := c.owners[binding]
	if !ok {
		return &handle.StaleHandleError{Handle: binding}
	}
	if owner != ctx.ID() {
		return &ContextMismatchError{Context: ctx.ID(), Owner: owner, Expected: ctx.NativeIdentity(), Actual: ctx.CurrentIdentity()}
	}
	c.drv.BindVertexArray(native)
	p.bound = native
	return nil
}

func (c *bindingCache) DefaultBinding(ctx Context) (handle.Handle, error) {
	if err := checkCurrent(ctx); err != nil {
		return handle.Handle{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.partitionFor(ctx)
	if err != nil {
		return handle.Handle{}, err
	}
	h, _ := c.defaultFor(p)
	return h, nil
}

func (c *bindingCache) BindDefault(ctx Context) error {
	h, err := c.DefaultBinding(ctx)
	if err != nil {
		return err
	}
	return c.Bind(ctx, h)
}

func (c *bindingCache) Contains(ctx Context, program Program, vertexBuffers, instanceBuffers []buffer.VertexBuffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[ctx.ID()]
	if !ok {
		return false
	}
	_, ok = p.entries[bindingKey(ctx.ID(), program.Handle(), vertexBuffers, instanceBuffers)]
	return ok
}

func (c *bindingCache) Len(ctx Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.partitions[ctx.ID()]; ok {
		return len(p.entries)
	}
	return 0
}

func (c *bindingCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *bindingCache) Close() {
	c.unsubscribe()
}

func (c *bindingCache) onLifecycle(ev lifecycle.Event) {
	switch ev.Kind {
	case lifecycle.BufferDestroyed:
		c.sweep(func(e *entry) bool { return slices.Contains(e.buffers, ev.Handle) })
	case lifecycle.ProgramDestroyed:
		c.sweep(func(e *entry) bool { return e.program == ev.Handle })
	case lifecycle.ContextDestroyed:
		c.dropContext(ev.Context)
	}
}

// sweep removes every entry matching drop. Native arrays of contexts current on this thread
// are deleted at once, the rest on their context's next use.
func (c *bindingCache) sweep(drop func(*entry) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.partitions {
		var now []uint32
		for key, e := range p.entries {
			if !drop(e) {
				continue
			}
			delete(p.entries, key)
			delete(c.owners, e.binding)
			c.retire(e.binding)
			if p.bound == e.native {
				p.bound = 0
			}
			c.stats.Swept++
			if p.ctx.IsCurrent() {
				now = append(now, e.native)
			} else {
				p.pending = append(p.pending, e.native)
			}
		}
		if len(now) > 0 {
			c.deleteArrays(now)
		}
	}
}

func (c *bindingCache) dropContext(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.partitions[id]
	c.destroyed[id] = true
	if !ok {
		return
	}
	delete(c.partitions, id)

	natives := slices.Clone(p.pending)
	for _, e := range p.entries {
		delete(c.owners, e.binding)
		c.retire(e.binding)
		natives = append(natives, e.native)
	}
	if p.defaultNative != 0 {
		delete(c.owners, p.defaultBinding)
		c.retire(p.defaultBinding)
		natives = append(natives, p.defaultNative)
	}
	// A context that is not current frees its arrays when the native context is destroyed.
	if p.ctx.IsCurrent() {
		c.deleteArrays(natives)
	}
	c.logger.Debug("[VertexBinding] dropped context", "context", id, "bindings", len(p.entries))
}

func (c *bindingCache) retire(h handle.Handle) {
	if err := c.registry.Retire(h); err != nil {
		c.logger.Warn("[VertexBinding] retire binding", "binding", h.String(), "error", err)
	}
}
