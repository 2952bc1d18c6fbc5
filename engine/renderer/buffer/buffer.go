package buffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
)

// Device is what buffers need from the renderer: the driver issuing native calls, the
// registry issuing handles and the bus announcing destruction.
type Device struct {
	Driver   driver.Driver
	Registry handle.Registry
	Bus      lifecycle.Bus
}

// IndexType is the element type of an index buffer.
type IndexType int

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// GLType returns the native index type.
func (t IndexType) GLType() uint32 {
	if t == IndexUint16 {
		return driver.UNSIGNED_SHORT
	}
	return driver.UNSIGNED_INT
}

// Size returns the byte size of one index.
func (t IndexType) Size() int {
	if t == IndexUint16 {
		return 2
	}
	return 4
}

// gpuBuffer is the native buffer shared by vertex and index buffers.
type gpuBuffer struct {
	mu  *sync.Mutex
	dev Device

	handle    handle.Handle
	label     string
	size      int
	destroyed bool
}

// VertexBuffer is an interleaved vertex or per-instance attribute buffer.
type VertexBuffer interface {
	// Handle returns the registry handle of the buffer.
	//
	// Returns:
	//   - handle.Handle: the buffer handle
	Handle() handle.Handle

	// Label returns the debug label.
	Label() string

	// Format returns the attribute layout of one vertex.
	//
	// Returns:
	//   - *VertexFormat: the layout
	Format() *VertexFormat

	// VertexCount returns the number of vertices the buffer holds.
	VertexCount() int

	// Write uploads data at a byte offset.
	//
	// Parameters:
	//   - data: the bytes to upload
	//   - offset: destination byte offset
	//
	// Returns:
	//   - error: *handle.StaleHandleError after Destroy, or a range error
	Write(data []byte, offset int) error

	// Destroy announces the destruction to every cache and deletes the native buffer.
	// Destroying twice is a no-op.
	//
	// Returns:
	//   - error: error from the registry
	Destroy() error

	// Destroyed reports whether Destroy was called.
	Destroyed() bool
}

// IndexBuffer holds element indices for indexed draws.
type IndexBuffer interface {
	Handle() handle.Handle
	Label() string
	Type() IndexType
	Count() int
	Write(data []byte, offset int) error
	Destroy() error
	Destroyed() bool
}

// StorageBuffer is a raw buffer bound to a shader storage binding point through
// shader.BufferBinding.
type StorageBuffer interface {
	Handle() handle.Handle
	Label() string
	Size() int
	Write(data []byte, offset int) error
	Destroy() error
	Destroyed() bool
}

type vertexBuffer struct {
	*gpuBuffer
	format      *VertexFormat
	vertexCount int
}

type indexBuffer struct {
	*gpuBuffer
	indexType IndexType
	count     int
}

type storageBuffer struct {
	*gpuBuffer
}

var _ VertexBuffer = &vertexBuffer{}
var _ IndexBuffer = &indexBuffer{}
var _ StorageBuffer = &storageBuffer{}

// NewVertexBuffer allocates a vertex buffer sized for vertexCount vertices of format.
//
// Parameters:
//   - dev: the renderer resources
//   - format: the vertex layout
//   - vertexCount: number of vertices
//   - options: builder options
//
// Returns:
//   - VertexBuffer: the new buffer
//   - error: error if the layout or initial data is invalid
func NewVertexBuffer(dev Device, format *VertexFormat, vertexCount int, options ...BufferBuilderOption) (VertexBuffer, error) {
	if format == nil || format.Size() == 0 {
		return nil, fmt.Errorf("vertex buffer needs a non-empty format")
	}
	if vertexCount <= 0 {
		return nil, fmt.Errorf("vertex buffer needs a positive vertex count, got %d", vertexCount)
	}
	b, err := newGPUBuffer(dev, format.Size()*vertexCount, options)
	if err != nil {
		return nil, err
	}
	return &vertexBuffer{gpuBuffer: b, format: format, vertexCount: vertexCount}, nil
}

// NewIndexBuffer allocates an index buffer for count indices of indexType.
//
// Parameters:
//   - dev: the renderer resources
//   - indexType: the index element type
//   - count: number of indices
//   - options: builder options
//
// Returns:
//   - IndexBuffer: the new buffer
//   - error: error if count or initial data is invalid
func NewIndexBuffer(dev Device, indexType IndexType, count int, options ...BufferBuilderOption) (IndexBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("index buffer needs a positive index count, got %d", count)
	}
	b, err := newGPUBuffer(dev, indexType.Size()*count, options)
	if err != nil {
		return nil, err
	}
	return &indexBuffer{gpuBuffer: b, indexType: indexType, count: count}, nil
}

// NewStorageBuffer allocates a storage buffer of size bytes.
//
// Parameters:
//   - dev: the renderer resources
//   - size: the buffer size in bytes
//   - options: builder options
//
// Returns:
//   - StorageBuffer: the new buffer
//   - error: error if size or initial data is invalid
func NewStorageBuffer(dev Device, size int, options ...BufferBuilderOption) (StorageBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("storage buffer needs a positive size, got %d", size)
	}
	b, err := newGPUBuffer(dev, size, options)
	if err != nil {
		return nil, err
	}
	return &storageBuffer{gpuBuffer: b}, nil
}

// newGPUBuffer uploads through the array target for both buffer kinds so creating an index
// buffer never disturbs the element binding of whatever vertex array is bound.
func newGPUBuffer(dev Device, size int, options []BufferBuilderOption) (*gpuBuffer, error) {
	opts := bufferOptions{usage: UsageStatic}
	for _, opt := range options {
		opt(&opts)
	}
	if len(opts.data) > size {
		return nil, fmt.Errorf("initial data of %d bytes exceeds buffer size %d", len(opts.data), size)
	}
	drv := dev.Driver
	native := drv.GenBuffer()
	drv.BindBuffer(driver.ARRAY_BUFFER, native)
	drv.BufferData(driver.ARRAY_BUFFER, size, opts.data, opts.usage.glUsage())
	drv.BindBuffer(driver.ARRAY_BUFFER, 0)

	return &gpuBuffer{
		mu:     &sync.Mutex{},
		dev:    dev,
		handle: dev.Registry.Register(handle.KindBuffer, native),
		label:  opts.label,
		size:   size,
	}, nil
}

func (b *gpuBuffer) Handle() handle.Handle { return b.handle }
func (b *gpuBuffer) Label() string         { return b.label }
func (b *gpuBuffer) Size() int             { return b.size }

func (b *gpuBuffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *gpuBuffer) Write(data []byte, offset int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return &handle.StaleHandleError{Handle: b.handle}
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer %q of %d bytes", len(data), offset, b.label, b.size)
	}
	native, err := b.dev.Registry.Native(b.handle)
	if err != nil {
		return err
	}
	drv := b.dev.Driver
	drv.BindBuffer(driver.ARRAY_BUFFER, native)
	drv.BufferSubData(driver.ARRAY_BUFFER, offset, data)
	drv.BindBuffer(driver.ARRAY_BUFFER, 0)
	return nil
}

// Destroy publishes BufferDestroyed before the native delete so that every cache drops
// entries referencing the buffer while its name is still reserved.
func (b *gpuBuffer) Destroy() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.destroyed = true
	b.mu.Unlock()

	b.dev.Bus.Publish(lifecycle.Event{Kind: lifecycle.BufferDestroyed, Handle: b.handle})

	native, err := b.dev.Registry.Native(b.handle)
	if err != nil {
		return err
	}
	if err := b.dev.Registry.Retire(b.handle); err != nil {
		return err
	}
	b.dev.Driver.DeleteBuffer(native)
	return nil
}

func (b *vertexBuffer) Format() *VertexFormat { return b.format }
func (b *vertexBuffer) VertexCount() int      { return b.vertexCount }

func (b *indexBuffer) Type() IndexType { return b.indexType }
func (b *indexBuffer) Count() int      { return b.count }
