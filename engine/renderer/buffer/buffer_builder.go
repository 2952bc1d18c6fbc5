package buffer

import "github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"

// Usage is the expected update frequency of a buffer.
type Usage int

const (
	UsageStatic Usage = iota
	UsageDynamic
	UsageStream
)

func (u Usage) glUsage() uint32 {
	switch u {
	case UsageDynamic:
		return driver.DYNAMIC_DRAW
	case UsageStream:
		return driver.STREAM_DRAW
	default:
		return driver.STATIC_DRAW
	}
}

type bufferOptions struct {
	usage Usage
	label string
	data  []byte
}

// BufferBuilderOption is a functional option used to configure a buffer during construction.
type BufferBuilderOption func(*bufferOptions)

// WithUsage sets the usage hint passed to the driver.
//
// Parameters:
//   - usage: the usage hint
//
// Returns:
//   - BufferBuilderOption: a function that sets the usage hint
func WithUsage(usage Usage) BufferBuilderOption {
	return func(o *bufferOptions) {
		o.usage = usage
	}
}

// WithLabel sets the debug label.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BufferBuilderOption: a function that sets the label
func WithLabel(label string) BufferBuilderOption {
	return func(o *bufferOptions) {
		o.label = label
	}
}

// WithData sets the bytes uploaded at creation. The data may be shorter than the buffer.
//
// Parameters:
//   - data: the initial contents
//
// Returns:
//   - BufferBuilderOption: a function that sets the initial contents
func WithData(data []byte) BufferBuilderOption {
	return func(o *bufferOptions) {
		o.data = data
	}
}
