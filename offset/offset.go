package offset

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// Offset is the index width of a list-view array: int32 for ListView and
// int64 for LargeListView.
type Offset interface {
	int32 | int64
}

// IsLarge reports whether O is the 64-bit offset width.
func IsLarge[O Offset]() bool {
	return Width[O]() == 8
}

// Width returns the size of O in bytes.
func Width[O Offset]() int {
	var zero O
	return int(unsafe.Sizeof(zero))
}

// Buffer is an immutable sequence of O values backed by a shared
// memory.Buffer. Slicing adjusts the visible window without copying.
type Buffer[O Offset] struct {
	buf    *memory.Buffer
	offset int // in elements
	length int
}

// New wraps values as a Buffer. The slice is referenced, not copied, and must
// not be modified afterwards.
func New[O Offset](values []O) Buffer[O] {
	return Buffer[O]{buf: memory.NewBufferBytes(toBytes(values)), length: len(values)}
}

// NewZeroed returns a Buffer of n zero values.
func NewZeroed[O Offset](n int) Buffer[O] {
	return New(make([]O, n))
}

// FromMemory views n values of buf starting at element offset. A nil buf is
// accepted for n == 0.
func FromMemory[O Offset](buf *memory.Buffer, offset, n int) (Buffer[O], error) {
	if offset < 0 || n < 0 {
		return Buffer[O]{}, errors.Errorf("invalid offset buffer range [%d, %d)", offset, offset+n)
	}
	if buf == nil {
		buf = memory.NewBufferBytes(nil)
	}
	if need := (offset + n) * Width[O](); need > buf.Len() {
		return Buffer[O]{}, errors.Wrapf(ErrOutOfBounds, "need %d bytes for %d values at offset %d, have %d", need, n, offset, buf.Len())
	}
	return Buffer[O]{buf: buf, offset: offset, length: n}, nil
}

// Len returns the number of visible values.
func (b Buffer[O]) Len() int { return b.length }

// Offset returns the element offset of the first visible value within Memory.
func (b Buffer[O]) Offset() int { return b.offset }

// Memory returns the shared storage.
func (b Buffer[O]) Memory() *memory.Buffer {
	if b.buf == nil {
		return memory.NewBufferBytes(nil)
	}
	return b.buf
}

// Values returns the visible values. The returned slice aliases the
// underlying storage and must not be modified.
func (b Buffer[O]) Values() []O {
	if b.length == 0 {
		return nil
	}
	return fromBytes[O](b.buf.Bytes())[b.offset : b.offset+b.length]
}

// Bytes returns the visible values as raw bytes in native byte order.
func (b Buffer[O]) Bytes() []byte {
	if b.length == 0 {
		return nil
	}
	w := Width[O]()
	return b.buf.Bytes()[b.offset*w : (b.offset+b.length)*w]
}

// Get returns value i. It panics if i is out of range.
func (b Buffer[O]) Get(i int) O {
	if i < 0 || i >= b.length {
		panic(fmt.Sprintf("offset: index %d out of range [0, %d)", i, b.length))
	}
	return b.Values()[i]
}

// Slice returns the n values starting at offset. It panics if the range
// exceeds Len.
func (b Buffer[O]) Slice(offset, n int) Buffer[O] {
	if offset < 0 || n < 0 || offset+n > b.length {
		panic(fmt.Sprintf("offset: slice [%d, %d) out of range for length %d", offset, offset+n, b.length))
	}
	return b.SliceUnchecked(offset, n)
}

// SliceUnchecked is Slice without the range check.
func (b Buffer[O]) SliceUnchecked(offset, n int) Buffer[O] {
	return Buffer[O]{buf: b.buf, offset: b.offset + offset, length: n}
}

// SplitAt splits the buffer into [0, i) and [i, Len()). It panics if i > Len().
func (b Buffer[O]) SplitAt(i int) (Buffer[O], Buffer[O]) {
	if i < 0 || i > b.length {
		panic(fmt.Sprintf("offset: split point %d out of range [0, %d]", i, b.length))
	}
	return b.SplitAtUnchecked(i)
}

// SplitAtUnchecked is SplitAt without the bound check.
func (b Buffer[O]) SplitAtUnchecked(i int) (Buffer[O], Buffer[O]) {
	return b.SliceUnchecked(0, i), b.SliceUnchecked(i, b.length-i)
}

// Align returns a Buffer with the same values whose first value sits at
// element offset of its storage, copying when the offsets differ.
func (b Buffer[O]) Align(offset int) Buffer[O] {
	if b.offset == offset {
		return b
	}
	values := make([]O, offset+b.length)
	copy(values[offset:], b.Values())
	return Buffer[O]{buf: memory.NewBufferBytes(toBytes(values)), offset: offset, length: b.length}
}

func toBytes[O Offset](values []O) []byte {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(values))), len(values)*Width[O]())
}

func fromBytes[O Offset](data []byte) []O {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*O)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/Width[O]())
}
