package bitmap

import (
	"fmt"
	"iter"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// ErrTooShort is returned when a buffer cannot hold the requested range of bits.
var ErrTooShort = errors.New("bitmap buffer too short")

const (
	unknownUnset = -1

	// Slices up to this many bits count their unset bits eagerly. The cost is
	// bounded by a handful of words, so slicing stays O(1).
	eagerCountBits = 512
)

// Bitmap is an immutable sequence of bits backed by a shared memory.Buffer.
// A set bit marks a valid element. Slicing adjusts the visible window and
// never copies the underlying storage.
type Bitmap struct {
	buf    *memory.Buffer
	offset int // in bits
	length int
	unset  int
}

// FromBytes wraps data as a bitmap of length bits starting at bit 0.
func FromBytes(data []byte, length int) (Bitmap, error) {
	return FromMemory(memory.NewBufferBytes(data), 0, length)
}

// FromMemory wraps length bits of buf starting at bit offset. The buffer is
// referenced, not copied.
func FromMemory(buf *memory.Buffer, offset, length int) (Bitmap, error) {
	if offset < 0 || length < 0 {
		return Bitmap{}, errors.Errorf("invalid bitmap range [%d, %d)", offset, offset+length)
	}
	if buf == nil {
		buf = memory.NewBufferBytes(nil)
	}
	if need := int(bitutil.BytesForBits(int64(offset + length))); need > buf.Len() {
		return Bitmap{}, errors.Wrapf(ErrTooShort, "need %d bytes for %d bits at offset %d, have %d", need, length, offset, buf.Len())
	}
	return Bitmap{buf: buf, offset: offset, length: length, unset: unknownUnset}, nil
}

// FromBools builds a bitmap holding values.
func FromBools(values ...bool) Bitmap {
	b := NewBuilder(len(values))
	for _, v := range values {
		b.Append(v)
	}
	return b.Finish()
}

// NewFilled returns a bitmap of length bits all set to value.
func NewFilled(length int, value bool) Bitmap {
	data := make([]byte, bitutil.BytesForBits(int64(length)))
	unset := length
	if value {
		for i := range data {
			data[i] = 0xff
		}
		unset = 0
	}
	return Bitmap{buf: memory.NewBufferBytes(data), length: length, unset: unset}
}

// NewZeroed returns a bitmap of length bits, all clear.
func NewZeroed(length int) Bitmap {
	return NewFilled(length, false)
}

// Len returns the number of bits in the bitmap.
func (b Bitmap) Len() int { return b.length }

// Offset returns the bit offset of the first visible bit within Buffer.
func (b Bitmap) Offset() int { return b.offset }

// Buffer returns the shared storage. Bit i of the bitmap is bit Offset()+i of
// the buffer.
func (b Bitmap) Buffer() *memory.Buffer {
	if b.buf == nil {
		return memory.NewBufferBytes(nil)
	}
	return b.buf
}

// Get returns bit i. Get panics if i is out of range.
func (b Bitmap) Get(i int) bool {
	if i < 0 || i >= b.length {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, b.length))
	}
	return b.GetUnchecked(i)
}

// GetUnchecked returns bit i without checking it against Len. The caller
// must guarantee 0 <= i < Len().
func (b Bitmap) GetUnchecked(i int) bool {
	return bitutil.BitIsSet(b.buf.Bytes(), b.offset+i)
}

// UnsetBits returns the number of clear bits, which is the null count of a
// validity mask.
func (b Bitmap) UnsetBits() int {
	if b.unset != unknownUnset {
		return b.unset
	}
	if b.length == 0 {
		return 0
	}
	return b.length - bitutil.CountSetBits(b.buf.Bytes(), b.offset, b.length)
}

// SetBits returns the number of set bits.
func (b Bitmap) SetBits() int {
	return b.length - b.UnsetBits()
}

// LazyUnsetBits returns the number of clear bits only when it is already
// known, without scanning the storage.
func (b Bitmap) LazyUnsetBits() (int, bool) {
	if b.unset == unknownUnset {
		return 0, false
	}
	return b.unset, true
}

// Slice returns the length bits starting at offset. Slice panics if the range
// exceeds Len.
func (b Bitmap) Slice(offset, length int) Bitmap {
	if offset < 0 || length < 0 || offset+length > b.length {
		panic(fmt.Sprintf("bitmap: slice [%d, %d) out of range for length %d", offset, offset+length, b.length))
	}
	return b.SliceUnchecked(offset, length)
}

// SliceUnchecked is Slice without the range check. The caller must guarantee
// offset+length <= Len().
func (b Bitmap) SliceUnchecked(offset, length int) Bitmap {
	out := Bitmap{buf: b.buf, offset: b.offset + offset, length: length, unset: unknownUnset}
	switch {
	case length == 0 || b.unset == 0:
		out.unset = 0
	case b.unset == b.length:
		out.unset = length
	case length == b.length:
		out.unset = b.unset
	case length <= eagerCountBits:
		out.unset = length - bitutil.CountSetBits(b.buf.Bytes(), out.offset, length)
	}
	return out
}

// SplitAt splits the bitmap into [0, i) and [i, Len()). It panics if i > Len().
func (b Bitmap) SplitAt(i int) (Bitmap, Bitmap) {
	if i < 0 || i > b.length {
		panic(fmt.Sprintf("bitmap: split point %d out of range [0, %d]", i, b.length))
	}
	return b.SplitAtUnchecked(i)
}

// SplitAtUnchecked is SplitAt without the bound check.
func (b Bitmap) SplitAtUnchecked(i int) (Bitmap, Bitmap) {
	return b.SliceUnchecked(0, i), b.SliceUnchecked(i, b.length-i)
}

// Align returns a bitmap with the same bits whose first bit sits at bit
// offset of its buffer. When the offsets already agree b is returned as is;
// otherwise the bits are copied into new storage.
func (b Bitmap) Align(offset int) Bitmap {
	if b.offset == offset {
		return b
	}
	data := make([]byte, bitutil.BytesForBits(int64(offset+b.length)))
	if b.length > 0 {
		bitutil.CopyBitmap(b.buf.Bytes(), b.offset, b.length, data, offset)
	}
	return Bitmap{buf: memory.NewBufferBytes(data), offset: offset, length: b.length, unset: b.unset}
}

// Iter yields every bit in order.
func (b Bitmap) Iter() iter.Seq[bool] {
	return func(yield func(bool) bool) {
		for i := 0; i < b.length; i++ {
			if !yield(b.GetUnchecked(i)) {
				return
			}
		}
	}
}

// ToBools copies the bits into a slice.
func (b Bitmap) ToBools() []bool {
	out := make([]bool, 0, b.length)
	for v := range b.Iter() {
		out = append(out, v)
	}
	return out
}
