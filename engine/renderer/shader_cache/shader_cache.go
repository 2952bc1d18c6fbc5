package shader_cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Stats counts cache activity since creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Builds    uint64
	Evictions uint64
}

// shaderCache is the implementation of the ShaderCache interface.
type shaderCache struct {
	mu *sync.Mutex

	drv        driver.Driver
	registry   handle.Registry
	bus        lifecycle.Bus
	provider   shader.SourceProvider
	structurer shader.Structurer
	logger     *slog.Logger

	size         int
	ignoreErrors bool
	workers      int

	programs *lru.Cache
	pinned   map[shader.ShadeStructure]shader.Program
	byHandle map[handle.Handle]shader.ShadeStructure
	failed   map[shader.ShadeStructure]error
	// evicted collects programs dropped by the lru while mu is held. They are released after unlock.
	evicted []shader.Program

	group       singleflight.Group
	pool        worker.DynamicWorkerPool
	stats       Stats
	unsubscribe func()
}

// ShaderCache maps shade structures to linked programs. Default structures are pinned; every
// other program lives in a size-bounded LRU. Removal of a program for any reason publishes
// lifecycle.ProgramDestroyed before the native program is deleted. Safe for concurrent use.
type ShaderCache interface {
	// Resolve returns the program for structure, building it on a miss. With forceRebuild the
	// cache is bypassed, a fresh program is built and the stored entry is replaced.
	//
	// Parameters:
	//   - structure: the structure to resolve
	//   - forceRebuild: build a new program even when one is cached
	//
	// Returns:
	//   - shader.Program: the program
	//   - error: *shader.CompileError, *shader.LinkError, *shader.GenerationError or *driver.CapabilityError
	Resolve(structure shader.ShadeStructure, forceRebuild bool) (shader.Program, error)

	// ResolveStyle derives the structure of style for the given formats and resolves it, forcing
	// a rebuild when the style is dirty. A nil style resolves the default structure. When shader
	// errors are ignored a failed style falls back to the default structure.
	//
	// Parameters:
	//   - style: the shade style, or nil
	//   - vertexFormats: formats of the per-vertex buffers
	//   - instanceFormats: formats of the per-instance buffers
	//
	// Returns:
	//   - shader.Program: the program
	//   - error: a build error when shader errors are not ignored
	ResolveStyle(style shader.ShadeStyle, vertexFormats, instanceFormats []*buffer.VertexFormat) (shader.Program, error)

	// Destroy removes program from the cache and deletes it.
	//
	// Parameters:
	//   - program: the program to destroy
	//
	// Returns:
	//   - error: *handle.StaleHandleError if the program was already destroyed
	Destroy(program shader.Program) error

	// Prewarm generates sources for structures concurrently and compiles them serially on the
	// calling goroutine. Structures already cached are skipped.
	//
	// Parameters:
	//   - structures: the structures to build
	//
	// Returns:
	//   - error: the joined errors of every structure that failed
	Prewarm(structures []shader.ShadeStructure) error

	// Contains reports whether a program for structure is cached.
	Contains(structure shader.ShadeStructure) bool

	// Len returns the number of cached programs, pinned ones included.
	Len() int

	// Stats returns the activity counters.
	Stats() Stats

	// Purge releases every program, pinned ones included.
	Purge()

	// Close purges the cache and stops listening for lifecycle events.
	Close()
}

var _ ShaderCache = &shaderCache{}

// NewShaderCache creates a cache building programs on drv.
//
// Parameters:
//   - drv: the native driver
//   - registry: issues program handles
//   - bus: receives ProgramDestroyed events
//   - options: builder options
//
// Returns:
//   - ShaderCache: the new cache
//   - error: error if the configured size is not positive
func NewShaderCache(drv driver.Driver, registry handle.Registry, bus lifecycle.Bus, options ...ShaderCacheBuilderOption) (ShaderCache, error) {
	c := &shaderCache{
		mu:       &sync.Mutex{},
		drv:      drv,
		registry: registry,
		bus:      bus,
		size:     DefaultSize,
		workers:  DefaultPrewarmWorkers,
		pinned:   make(map[shader.ShadeStructure]shader.Program),
		byHandle: make(map[handle.Handle]shader.ShadeStructure),
		failed:   make(map[shader.ShadeStructure]error),
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = logger.Or(c.logger)
	if c.provider == nil {
		c.provider = shader.NewSourceProvider(drv.Version(), drv.Capabilities())
	}

	programs, err := lru.NewWithEvict(c.size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("shader cache: %w", err)
	}
	c.programs = programs
	if c.structurer == nil {
		if c.structurer, err = shader.NewStructurer(c.size); err != nil {
			return nil, fmt.Errorf("shader cache: %w", err)
		}
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	c.unsubscribe = bus.Subscribe(c.onLifecycle)
	return c, nil
}

// onEvict runs inside the lru with c.mu held.
func (c *shaderCache) onEvict(_, value interface{}) {
	p := value.(shader.Program)
	delete(c.byHandle, p.Handle())
	c.evicted = append(c.evicted, p)
}

// drain must be called with c.mu held.
func (c *shaderCache) drain() []shader.Program {
	out := c.evicted
	c.evicted = nil
	return out
}

// release announces, deletes and retires programs already detached from the cache.
func (c *shaderCache) release(programs []shader.Program) {
	for _, p := range programs {
		c.bus.Publish(lifecycle.Event{Kind: lifecycle.ProgramDestroyed, Handle: p.Handle()})
		c.deleteNative(p)
	}
}

func (c *shaderCache) deleteNative(p shader.Program) {
	lock := driver.ObjectCreationLock()
	lock.Lock()
	c.drv.DeleteProgram(p.Native())
	lock.Unlock()
	if err := c.registry.Retire(p.Handle()); err != nil {
		c.logger.Warn("[ShaderCache] retire program", "program", p.Name(), "error", err)
	}
	c.logger.Debug("[ShaderCache] deleted program", "program", p.Name(), "native", p.Native())
}

// lookup must be called with c.mu held.
func (c *shaderCache) lookup(s shader.ShadeStructure) (shader.Program, bool) {
	if s.Default {
		p, ok := c.pinned[s]
		return p, ok
	}
	if v, ok := c.programs.Get(s); ok {
		return v.(shader.Program), true
	}
	return nil, false
}

// detach removes the entry for s and returns what must be released. Must be called with c.mu held.
func (c *shaderCache) detach(s shader.ShadeStructure) []shader.Program {
	if p, ok := c.pinned[s]; ok {
		delete(c.pinned, s)
		delete(c.byHandle, p.Handle())
		return append(c.drain(), p)
	}
	c.programs.Remove(s)
	return c.drain()
}

// onLifecycle drops the entry of a program destroyed by someone else. The publisher owns the
// native deletion.
func (c *shaderCache) onLifecycle(ev lifecycle.Event) {
	if ev.Kind != lifecycle.ProgramDestroyed {
		return
	}
	c.mu.Lock()
	s, ok := c.byHandle[ev.Handle]
	if !ok {
		c.mu.Unlock()
		return
	}
	var others []shader.Program
	for _, p := range c.detach(s) {
		if p.Handle() != ev.Handle {
			others = append(others, p)
		}
	}
	c.mu.Unlock()
	c.release(others)
}

func programName(s shader.ShadeStructure) string {
	if s.Default {
		return "shade-style-default"
	}
	return "shade-style-custom:" + s.Hash()[:12]
}

func (c *shaderCache) Resolve(s shader.ShadeStructure, forceRebuild bool) (shader.Program, error) {
	key := s.Hash()
	if forceRebuild {
		key = "force:" + key
	} else {
		c.mu.Lock()
		if p, ok := c.lookup(s); ok {
			c.stats.Hits++
			c.mu.Unlock()
			return p, nil
		}
		if err, ok := c.failed[s]; ok {
			c.mu.Unlock()
			return nil, err
		}
		c.stats.Misses++
		c.mu.Unlock()
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		src, err := c.provider.Generate(s)
		if err != nil {
			return nil, c.fail(s, err)
		}
		return c.install(s, src, forceRebuild)
	})
	if err != nil {
		return nil, err
	}
	return v.(shader.Program), nil
}

// fail records err for s so the structure is not rebuilt until forced.
func (c *shaderCache) fail(s shader.ShadeStructure, err error) error {
	c.mu.Lock()
	c.failed[s] = err
	c.mu.Unlock()
	c.logger.Error("[ShaderCache] build failed", "program", programName(s), "error", err)
	return err
}

// install compiles src and stores it for s, replacing and releasing any previous entry.
func (c *shaderCache) install(s shader.ShadeStructure, src shader.ProgramSource, forceRebuild bool) (shader.Program, error) {
	if !forceRebuild {
		c.mu.Lock()
		p, ok := c.lookup(s)
		c.mu.Unlock()
		if ok {
			return p, nil
		}
	}

	lock := driver.ObjectCreationLock()
	lock.Lock()
	p, err := shader.Compile(c.drv, c.registry, programName(s), s, src, c.logger)
	lock.Unlock()
	if err != nil {
		return nil, c.fail(s, err)
	}

	c.mu.Lock()
	c.stats.Builds++
	delete(c.failed, s)
	stale := c.detach(s)
	if s.Default {
		c.pinned[s] = p
	} else if c.programs.Add(s, p) {
		c.stats.Evictions++
	}
	c.byHandle[p.Handle()] = s
	stale = append(stale, c.drain()...)
	c.mu.Unlock()

	c.release(stale)
	c.logger.Debug("[ShaderCache] compiled program", "program", p.Name(), "native", p.Native(), "forced", forceRebuild)
	return p, nil
}

func (c *shaderCache) ResolveStyle(style shader.ShadeStyle, vertexFormats, instanceFormats []*buffer.VertexFormat) (shader.Program, error) {
	// The mark is taken before the structure so a change racing this call keeps the style dirty.
	var mark uint64
	force := false
	if style != nil {
		mark, force = style.DirtyMark()
	}
	s := c.structurer.Structure(style, vertexFormats, instanceFormats)
	if force {
		c.mu.Lock()
		delete(c.failed, s)
		c.mu.Unlock()
	}

	p, err := c.Resolve(s, force)
	if err == nil {
		if style != nil {
			style.ClearDirtyAt(mark)
		}
		return p, nil
	}
	if !c.ignoreErrors || s.Default {
		return nil, err
	}
	c.logger.Warn("[ShaderCache] shade style failed, using default", "style", style.Label(), "error", err)
	style.ClearDirtyAt(mark)
	return c.Resolve(shader.DefaultStructure(vertexFormats, instanceFormats), false)
}

func (c *shaderCache) Destroy(p shader.Program) error {
	if !c.registry.Live(p.Handle()) {
		return &handle.StaleHandleError{Handle: p.Handle()}
	}
	c.mu.Lock()
	var stale []shader.Program
	if s, ok := c.byHandle[p.Handle()]; ok {
		for _, other := range c.detach(s) {
			if other.Handle() != p.Handle() {
				stale = append(stale, other)
			}
		}
	}
	c.mu.Unlock()

	c.release(stale)
	c.release([]shader.Program{p})
	return nil
}

func (c *shaderCache) Prewarm(structures []shader.ShadeStructure) error {
	var (
		wg      sync.WaitGroup
		sources = make([]shader.ProgramSource, len(structures))
		errs    = make([]error, len(structures))
	)
	for i, s := range structures {
		if c.Contains(s) {
			continue
		}
		wg.Add(1)
		idx, st := i, s
		c.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				sources[idx], errs[idx] = c.provider.Generate(st)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i, s := range structures {
		if errs[i] != nil {
			errs[i] = fmt.Errorf("prewarm %s: %w", programName(s), c.fail(s, errs[i]))
			continue
		}
		if sources[i].Vertex == "" {
			continue
		}
		if _, err := c.install(s, sources[i], false); err != nil {
			errs[i] = fmt.Errorf("prewarm %s: %w", programName(s), err)
		}
	}
	return errors.Join(errs...)
}

func (c *shaderCache) Contains(s shader.ShadeStructure) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Default {
		_, ok := c.pinned[s]
		return ok
	}
	return c.programs.Contains(s)
}

func (c *shaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs.Len() + len(c.pinned)
}

func (c *shaderCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *shaderCache) Purge() {
	c.mu.Lock()
	c.programs.Purge()
	stale := c.drain()
	for s, p := range c.pinned {
		delete(c.pinned, s)
		delete(c.byHandle, p.Handle())
		stale = append(stale, p)
	}
	clear(c.failed)
	c.mu.Unlock()
	c.release(stale)
}

func (c *shaderCache) Close() {
	c.Purge()
	c.unsubscribe()
}
