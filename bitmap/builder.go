package bitmap

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates bits for a new Bitmap. The zero value is ready to use.
type Builder struct {
	data   []byte
	length int
	unset  int
}

// NewBuilder returns a Builder with room for capacity bits.
func NewBuilder(capacity int) *Builder {
	return &Builder{data: make([]byte, 0, bitutil.BytesForBits(int64(capacity)))}
}

// Len returns the number of bits appended so far.
func (b *Builder) Len() int { return b.length }

// Append appends a single bit.
func (b *Builder) Append(value bool) {
	if b.length%8 == 0 {
		b.data = append(b.data, 0)
	}
	if value {
		bitutil.SetBit(b.data, b.length)
	} else {
		b.unset++
	}
	b.length++
}

// AppendCount appends value n times.
func (b *Builder) AppendCount(value bool, n int) {
	for range n {
		b.Append(value)
	}
}

// AppendBitmap appends every bit of other.
func (b *Builder) AppendBitmap(other Bitmap) {
	for v := range other.Iter() {
		b.Append(v)
	}
}

// Finish returns the accumulated bitmap and resets the builder.
func (b *Builder) Finish() Bitmap {
	out := Bitmap{
		buf:    memory.NewBufferBytes(b.data),
		length: b.length,
		unset:  b.unset,
	}
	*b = Builder{}
	return out
}
