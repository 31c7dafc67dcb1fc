package listview

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// Buffers returns the storage of the array in interchange order:
// validity (nil when absent), offsets, lengths. The buffers are returned
// unsliced; FFIOffset gives the element offset to apply to all of them.
func (a *Array[O]) Buffers() []*memory.Buffer {
	var validity *memory.Buffer
	if a.validity != nil {
		validity = a.validity.Buffer()
	}
	return []*memory.Buffer{validity, a.offsets.Memory(), a.lengths.Memory()}
}

// Children returns the single child array.
func (a *Array[O]) Children() []arrow.Array {
	return []arrow.Array{a.values}
}

// FFIOffset returns the element offset shared by every buffer. It reports
// false when the validity bit offset or the lengths offset differs from the
// offsets offset, in which case ToFFIAligned must be applied before export.
func (a *Array[O]) FFIOffset() (int, bool) {
	off := a.offsets.Offset()
	if a.lengths.Offset() != off {
		return 0, false
	}
	if a.validity != nil && a.validity.Offset() != off {
		return 0, false
	}
	return off, true
}

// ToFFIAligned returns an equivalent array whose buffers all share the
// offsets offset. The validity mask and, if needed, the lengths are copied
// into new storage; offsets and values are shared.
func (a *Array[O]) ToFFIAligned() *Array[O] {
	off := a.offsets.Offset()
	out := *a
	if a.validity != nil && a.validity.Offset() != off {
		v := a.validity.Align(off)
		out.validity = &v
	}
	out.lengths = a.lengths.Align(off)
	return &out
}

// Rebase returns an equivalent array whose buffers all start at offset 0.
// The visible offsets, lengths and validity are copied; values are shared.
// An array already at offset 0 is returned as is.
func (a *Array[O]) Rebase() *Array[O] {
	if off, ok := a.FFIOffset(); ok && off == 0 {
		return a
	}
	out := *a
	out.offsets = a.offsets.Align(0)
	out.lengths = a.lengths.Align(0)
	if a.validity != nil {
		v := a.validity.Align(0)
		out.validity = &v
	}
	return &out
}

// ExportData describes the array as arrow-go array data of type ListView or
// LargeListView without copying any buffer. It fails with ErrUnaligned when
// the buffers do not share one offset. The caller must Release the result.
func (a *Array[O]) ExportData() (arrow.ArrayData, error) {
	off, ok := a.FFIOffset()
	if !ok {
		validityOffset := -1
		if a.validity != nil {
			validityOffset = a.validity.Offset()
		}
		return nil, errors.Wrapf(ErrUnaligned, "validity at %d, offsets at %d, lengths at %d",
			validityOffset, a.offsets.Offset(), a.lengths.Offset())
	}

	field, err := ChildField[O](a.dtype)
	if err != nil {
		return nil, err
	}
	var dt arrow.DataType = arrow.ListViewOfField(field)
	if offset.IsLarge[O]() {
		dt = arrow.LargeListViewOfField(field)
	}

	return array.NewData(dt, a.Len(), a.Buffers(), []arrow.ArrayData{a.values.Data()}, a.NullN(), off), nil
}

// ToArrow returns the array as an arrow-go array. Buffers are shared; the
// validity mask may be copied to align it. The caller must Release the
// result.
func (a *Array[O]) ToArrow() arrow.Array {
	data, err := a.ToFFIAligned().ExportData()
	if err != nil {
		// aligned arrays always export
		panic(err)
	}
	defer data.Release()
	return array.MakeFromData(data)
}

// FromData imports arrow-go array data laid out as a list-view: buffer 0 is
// the validity mask, buffer 1 the offsets, buffer 2 the lengths, and child 0
// the values. Buffers are shared, not copied: the array holds one reference
// to each of them for as long as it is reachable, so the source data may be
// released. The offsets and lengths are taken as found and validated the same
// way New validates them.
func FromData[O offset.Offset](data arrow.ArrayData) (*Array[O], error) {
	if _, err := ChildField[O](data.DataType()); err != nil {
		return nil, err
	}
	bufs := data.Buffers()
	if len(bufs) != 3 {
		return nil, errors.Wrapf(ErrTypeMismatch, "list-view data needs 3 buffers, got %d", len(bufs))
	}
	children := data.Children()
	if len(children) != 1 {
		return nil, errors.Wrapf(ErrTypeMismatch, "list-view data needs 1 child, got %d", len(children))
	}

	off, n := data.Offset(), data.Len()

	var validity *bitmap.Bitmap
	if bufs[0] != nil {
		v, err := bitmap.FromMemory(bufs[0], off, n)
		if err != nil {
			return nil, errors.Wrap(err, "validity")
		}
		validity = &v
	}
	offsets, err := offset.FromMemory[O](bufs[1], off, n)
	if err != nil {
		return nil, errors.Wrap(err, "offsets")
	}
	lengths, err := offset.FromMemory[O](bufs[2], off, n)
	if err != nil {
		return nil, errors.Wrap(err, "lengths")
	}

	values := array.MakeFromData(children[0])
	arr, err := New(data.DataType(), offsets, lengths, values, validity)
	if err != nil {
		values.Release()
		return nil, err
	}
	for _, buf := range bufs {
		if buf != nil {
			buf.Retain()
		}
	}
	return arr, nil
}
