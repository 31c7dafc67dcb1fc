package listview

import "fmt"

// Slice returns the n elements starting at off. The child array is shared
// and the operation is O(1). A validity mask that is known to contain no
// nulls after slicing is dropped. Slice panics if off+n > Len().
func (a *Array[O]) Slice(off, n int) *Array[O] {
	if off < 0 || n < 0 || off+n > a.Len() {
		panic(fmt.Sprintf("listview: slice [%d, %d) out of range for length %d", off, off+n, a.Len()))
	}
	return a.SliceUnchecked(off, n)
}

// SliceUnchecked is Slice without the range check. The caller must guarantee
// off+n <= Len().
func (a *Array[O]) SliceUnchecked(off, n int) *Array[O] {
	out := *a
	if a.validity != nil {
		v := a.validity.SliceUnchecked(off, n)
		if unset, ok := v.LazyUnsetBits(); ok && unset == 0 {
			out.validity = nil
		} else {
			out.validity = &v
		}
	}
	out.offsets = a.offsets.SliceUnchecked(off, n)
	out.lengths = a.lengths.SliceUnchecked(off, n)
	return &out
}

// CheckBound reports whether i is a valid split point, 0 <= i <= Len().
func (a *Array[O]) CheckBound(i int) bool {
	return i >= 0 && i <= a.Len()
}

// SplitAt returns the elements [0, i) and [i, Len()) as two arrays sharing
// the child. It panics unless CheckBound(i).
func (a *Array[O]) SplitAt(i int) (*Array[O], *Array[O]) {
	if !a.CheckBound(i) {
		panic(fmt.Sprintf("listview: split point %d out of range [0, %d]", i, a.Len()))
	}
	return a.SplitAtUnchecked(i)
}

// SplitAtUnchecked is SplitAt without the bound check.
func (a *Array[O]) SplitAtUnchecked(i int) (*Array[O], *Array[O]) {
	lo, ro := a.offsets.SplitAtUnchecked(i)
	ll, rl := a.lengths.SplitAtUnchecked(i)

	left := &Array[O]{dtype: a.dtype, offsets: lo, lengths: ll, values: a.values}
	right := &Array[O]{dtype: a.dtype, offsets: ro, lengths: rl, values: a.values}
	if a.validity != nil {
		lv, rv := a.validity.SplitAtUnchecked(i)
		left.validity, right.validity = &lv, &rv
	}
	return left, right
}
