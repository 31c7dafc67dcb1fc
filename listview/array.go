package listview

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

var (
	// ErrTypeMismatch is returned when the data type is not a list type of
	// the right offset width, or its child type differs from the values.
	ErrTypeMismatch = errors.New("list-view type mismatch")

	// ErrLengthMismatch is returned when the validity mask does not have one
	// bit per element.
	ErrLengthMismatch = errors.New("list-view length mismatch")

	// ErrUnaligned is returned when the buffers of an array cannot be
	// described by a single shared offset.
	ErrUnaligned = errors.New("list-view buffers are not aligned")
)

// Array is an immutable list-view array with offsets of width O.
//
// Element i is the child range [offsets[i], offsets[i]+lengths[i]) when its
// validity bit is set, and null otherwise. Every pair is validated against
// the child length at construction.
type Array[O offset.Offset] struct {
	dtype    arrow.DataType
	offsets  offset.Buffer[O]
	lengths  offset.Buffer[O]
	values   arrow.Array
	validity *bitmap.Bitmap
}

type (
	// ListView is a list-view array with 32-bit offsets.
	ListView = Array[int32]
	// LargeListView is a list-view array with 64-bit offsets.
	LargeListView = Array[int64]
)

// New creates a list-view array after checking that
//   - dt is a list or list-view type of offset width O whose child type equals values.DataType(),
//   - offsets and lengths have the same number of entries,
//   - every (offset, length) pair lies inside values,
//   - validity, when present, has one bit per element.
//
// The returned array shares offsets, lengths, values and validity.
func New[O offset.Offset](dt arrow.DataType, offsets, lengths offset.Buffer[O], values arrow.Array, validity *bitmap.Bitmap) (*Array[O], error) {
	if values == nil {
		return nil, errors.Wrap(ErrTypeMismatch, "values must not be nil")
	}
	if err := offset.CheckUnorderedBounds(offsets, lengths, values.Len()); err != nil {
		return nil, err
	}
	if validity != nil && validity.Len() != offsets.Len() {
		return nil, errors.Wrapf(ErrLengthMismatch, "validity has %d bits for %d elements", validity.Len(), offsets.Len())
	}

	field, err := ChildField[O](dt)
	if err != nil {
		return nil, err
	}
	if !arrow.TypeEqual(field.Type, values.DataType()) {
		return nil, errors.Wrapf(ErrTypeMismatch, "child type is %s but values are %s", field.Type, values.DataType())
	}

	arr := &Array[O]{
		dtype:   dt,
		offsets: offsets,
		lengths: lengths,
		values:  values,
	}
	if validity != nil {
		v := *validity
		arr.validity = &v
	}
	return arr, nil
}

// MustNew is like New but panics on invalid input.
func MustNew[O offset.Offset](dt arrow.DataType, offsets, lengths offset.Buffer[O], values arrow.Array, validity *bitmap.Bitmap) *Array[O] {
	arr, err := New(dt, offsets, lengths, values, validity)
	if err != nil {
		panic(err)
	}
	return arr
}

// NewEmpty returns a zero-length array of type dt.
func NewEmpty[O offset.Offset](dt arrow.DataType) (*Array[O], error) {
	return NewNull[O](dt, 0)
}

// NewNull returns an array of n null elements of type dt. All offsets and
// lengths are zero and the child is empty.
func NewNull[O offset.Offset](dt arrow.DataType, n int) (*Array[O], error) {
	field, err := ChildField[O](dt)
	if err != nil {
		return nil, err
	}
	values := array.MakeArrayOfNull(memory.DefaultAllocator, field.Type, 0)

	var validity *bitmap.Bitmap
	if n > 0 {
		v := bitmap.NewZeroed(n)
		validity = &v
	}
	return New(dt, offset.NewZeroed[O](n), offset.NewZeroed[O](n), values, validity)
}

// DefaultDataType returns the list type of offset width O with the given
// child type.
func DefaultDataType[O offset.Offset](child arrow.DataType) arrow.DataType {
	if offset.IsLarge[O]() {
		return arrow.LargeListOf(child)
	}
	return arrow.ListOf(child)
}

// ChildField returns the child field of dt. Extension types are resolved to
// their storage type. For O = int32 dt must be a List or ListView type; for
// O = int64 a LargeList or LargeListView type.
func ChildField[O offset.Offset](dt arrow.DataType) (arrow.Field, error) {
	large := offset.IsLarge[O]()
	switch dt := dt.(type) {
	case arrow.ExtensionType:
		return ChildField[O](dt.StorageType())
	case *arrow.ListType:
		if !large {
			return dt.ElemField(), nil
		}
	case *arrow.ListViewType:
		if !large {
			return dt.ElemField(), nil
		}
	case *arrow.LargeListType:
		if large {
			return dt.ElemField(), nil
		}
	case *arrow.LargeListViewType:
		if large {
			return dt.ElemField(), nil
		}
	}

	if large {
		return arrow.Field{}, errors.Wrapf(ErrTypeMismatch, "expected LargeList or LargeListView, got %v", dt)
	}
	return arrow.Field{}, errors.Wrapf(ErrTypeMismatch, "expected List or ListView, got %v", dt)
}

// WithValidity returns a copy of a sharing all buffers but with validity
// replaced. A nil validity removes the mask.
func (a *Array[O]) WithValidity(validity *bitmap.Bitmap) (*Array[O], error) {
	if validity != nil && validity.Len() != a.Len() {
		return nil, errors.Wrapf(ErrLengthMismatch, "validity has %d bits for %d elements", validity.Len(), a.Len())
	}
	out := *a
	out.validity = nil
	if validity != nil {
		v := *validity
		out.validity = &v
	}
	return &out, nil
}

// Len returns the number of elements.
func (a *Array[O]) Len() int { return a.offsets.Len() }

// DataType returns the logical type the array was created with.
func (a *Array[O]) DataType() arrow.DataType { return a.dtype }

// Offsets returns the per-element start positions into Values.
func (a *Array[O]) Offsets() offset.Buffer[O] { return a.offsets }

// Lengths returns the per-element sizes.
func (a *Array[O]) Lengths() offset.Buffer[O] { return a.lengths }

// Values returns the shared child array.
func (a *Array[O]) Values() arrow.Array { return a.values }

// Validity returns the validity mask, or nil when every element is valid.
func (a *Array[O]) Validity() *bitmap.Bitmap { return a.validity }

// IsNull reports whether element i is null.
func (a *Array[O]) IsNull(i int) bool {
	return a.validity != nil && !a.validity.Get(i)
}

// IsValid reports whether element i is not null.
func (a *Array[O]) IsValid(i int) bool {
	return !a.IsNull(i)
}

// NullN returns the number of null elements.
func (a *Array[O]) NullN() int {
	if a.validity == nil {
		return 0
	}
	return a.validity.UnsetBits()
}

// Value returns element i as a slice of the child array. The result ignores
// validity: a null element still yields its stored range. Value panics if
// i >= Len(). The caller may Release the returned array.
func (a *Array[O]) Value(i int) arrow.Array {
	if i < 0 || i >= a.Len() {
		panic(fmt.Sprintf("listview: index %d out of range [0, %d)", i, a.Len()))
	}
	return a.ValueUnchecked(i)
}

// ValueUnchecked is Value without the list-view level bound check. The
// caller must guarantee i < Len().
func (a *Array[O]) ValueUnchecked(i int) arrow.Array {
	start := int64(a.offsets.Values()[i])
	return array.NewSlice(a.values, start, start+int64(a.lengths.Values()[i]))
}
