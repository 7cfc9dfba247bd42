package stream

import (
	"errors"
	"fmt"
)

// ErrBufferOverflow is returned when buffered bytes would exceed the
// configured cap. The stream must be failed when this happens; an endless
// run of bytes with no frame boundary would otherwise grow without bound.
var ErrBufferOverflow = errors.New("stream buffer limit exceeded")

// DefaultMaxBuffer bounds the accumulator when no explicit cap is given.
const DefaultMaxBuffer = 1 << 20

// Accumulator collects raw transport chunks in arrival order and feeds the
// frame extractor, retaining the unconsumed tail between reads. It knows
// nothing about the frame grammar itself.
type Accumulator struct {
	buf      []byte
	maxSize  int
	appended int
}

// NewAccumulator creates an accumulator capped at maxSize bytes. A
// non-positive maxSize falls back to DefaultMaxBuffer.
func NewAccumulator(maxSize int) *Accumulator {
	if maxSize <= 0 {
		maxSize = DefaultMaxBuffer
	}
	return &Accumulator{maxSize: maxSize}
}

// Append adds a newly arrived chunk to the end of the buffer.
func (a *Accumulator) Append(chunk []byte) error {
	if len(a.buf)+len(chunk) > a.maxSize {
		return fmt.Errorf("%w: %d bytes buffered, %d arriving, cap %d",
			ErrBufferOverflow, len(a.buf), len(chunk), a.maxSize)
	}
	a.buf = append(a.buf, chunk...)
	a.appended++
	return nil
}

// Frames extracts every complete frame currently buffered, in order. The
// remainder after the last complete frame stays buffered and is consumed on
// a later call once more bytes arrive.
func (a *Accumulator) Frames() []string {
	frames, rest := Extract(a.buf)
	a.buf = rest
	return frames
}

// Len returns the number of bytes currently buffered.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// ChunkCount returns how many chunks have been appended.
func (a *Accumulator) ChunkCount() int {
	return a.appended
}

// Reset drops all buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = nil
	a.appended = 0
}
