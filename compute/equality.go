package compute

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

var (
	// ErrLengthMismatch is returned when two inputs have different lengths.
	ErrLengthMismatch = errors.New("array length mismatch")

	// ErrTypeMismatch is returned when two inputs have different child types.
	ErrTypeMismatch = errors.New("array type mismatch")

	// ErrNotImplemented is returned for kernels without a list-view
	// implementation.
	ErrNotImplemented = errors.New("not implemented")
)

// Unit is the scalar operand of a broadcast comparison. List-view elements
// have no scalar representation, so it carries no value.
type Unit struct{}

type listEqualityKernel[O offset.Offset] interface {
	DoAS(out *bitmap.Builder, left *listview.Array[O], right Unit) error
	DoAA(out *bitmap.Builder, left, right *listview.Array[O])
}

type totEqKernelImpl[O offset.Offset] struct{}

func (totEqKernelImpl[O]) DoAS(_ *bitmap.Builder, _ *listview.Array[O], _ Unit) error {
	return errors.Wrap(ErrNotImplemented, "list-view tot_eq against a scalar")
}

func (totEqKernelImpl[O]) DoAA(out *bitmap.Builder, left, right *listview.Array[O]) {
	lo, ll := left.Offsets().Values(), left.Lengths().Values()
	ro, rl := right.Offsets().Values(), right.Lengths().Values()
	lv, rv := left.Values(), right.Values()

	for i := range lo {
		switch {
		case left.IsNull(i) || right.IsNull(i):
			out.Append(true)
		case ll[i] != rl[i]:
			out.Append(false)
		default:
			out.Append(rangeEqual(lv, lo[i], ll[i], rv, ro[i], rl[i]))
		}
	}
}

type totNeKernelImpl[O offset.Offset] struct{}

func (totNeKernelImpl[O]) DoAS(_ *bitmap.Builder, _ *listview.Array[O], _ Unit) error {
	return errors.Wrap(ErrNotImplemented, "list-view tot_ne against a scalar")
}

func (totNeKernelImpl[O]) DoAA(out *bitmap.Builder, left, right *listview.Array[O]) {
	lo, ll := left.Offsets().Values(), left.Lengths().Values()
	ro, rl := right.Offsets().Values(), right.Lengths().Values()
	lv, rv := left.Values(), right.Values()

	for i := range lo {
		switch {
		case left.IsNull(i) || right.IsNull(i):
			out.Append(false)
		case ll[i] != rl[i]:
			out.Append(true)
		default:
			out.Append(!rangeEqual(lv, lo[i], ll[i], rv, ro[i], rl[i]))
		}
	}
}

func rangeEqual[O offset.Offset](left arrow.Array, lo, ln O, right arrow.Array, ro, rn O) bool {
	return array.SliceEqual(left, int64(lo), int64(lo)+int64(ln), right, int64(ro), int64(ro)+int64(rn))
}

// TotEq compares left and right row by row. A row is true when either side
// is null, or both elements have the same length and equal contents.
func TotEq[O offset.Offset](left, right *listview.Array[O]) (bitmap.Bitmap, error) {
	return doAA[O](totEqKernelImpl[O]{}, left, right)
}

// TotNe is the row-wise complement of TotEq: a row is false when either side
// is null, and true when the elements differ in length or contents.
func TotNe[O offset.Offset](left, right *listview.Array[O]) (bitmap.Bitmap, error) {
	return doAA[O](totNeKernelImpl[O]{}, left, right)
}

// TotEqBroadcast compares every element of left against a scalar. It is not
// supported for list-view arrays and always returns ErrNotImplemented.
func TotEqBroadcast[O offset.Offset](left *listview.Array[O], right Unit) (bitmap.Bitmap, error) {
	return doAS[O](totEqKernelImpl[O]{}, left, right)
}

// TotNeBroadcast is the scalar form of TotNe. It always returns
// ErrNotImplemented.
func TotNeBroadcast[O offset.Offset](left *listview.Array[O], right Unit) (bitmap.Bitmap, error) {
	return doAS[O](totNeKernelImpl[O]{}, left, right)
}

func doAS[O offset.Offset](kernel listEqualityKernel[O], left *listview.Array[O], right Unit) (bitmap.Bitmap, error) {
	out := bitmap.NewBuilder(left.Len())
	if err := kernel.DoAS(out, left, right); err != nil {
		return bitmap.Bitmap{}, err
	}
	return out.Finish(), nil
}

func doAA[O offset.Offset](kernel listEqualityKernel[O], left, right *listview.Array[O]) (bitmap.Bitmap, error) {
	if err := checkInputs(left, right); err != nil {
		return bitmap.Bitmap{}, err
	}
	out := bitmap.NewBuilder(left.Len())
	kernel.DoAA(out, left, right)
	return out.Finish(), nil
}

func checkInputs[O offset.Offset](left, right *listview.Array[O]) error {
	if left.Len() != right.Len() {
		return errors.Wrapf(ErrLengthMismatch, "%d != %d", left.Len(), right.Len())
	}
	if lt, rt := left.Values().DataType(), right.Values().DataType(); !arrow.TypeEqual(lt, rt) {
		return errors.Wrapf(ErrTypeMismatch, "%s != %s", lt, rt)
	}
	return nil
}
