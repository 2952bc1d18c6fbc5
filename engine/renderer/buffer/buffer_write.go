package buffer

import "fmt"

// Writable is any buffer accepting byte uploads.
type Writable interface {
	Label() string
	Write(data []byte, offset int) error
}

// BufferWrite describes a single upload into a buffer at a given byte offset.
type BufferWrite struct {
	Buffer Writable
	Offset int
	Data   []byte
}

// WriteAll performs writes in order and stops at the first failure.
//
// Parameters:
//   - writes: the uploads to perform
//
// Returns:
//   - error: the first failure, wrapped with its index
func WriteAll(writes []BufferWrite) error {
	for i, w := range writes {
		if w.Buffer == nil {
			return fmt.Errorf("buffer write %d: nil buffer", i)
		}
		if err := w.Buffer.Write(w.Data, w.Offset); err != nil {
			return fmt.Errorf("buffer write %d (%s): %w", i, w.Buffer.Label(), err)
		}
	}
	return nil
}
