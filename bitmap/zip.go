package bitmap

import "iter"

// ZipValidity pairs a positional accessor with a validity mask. For each of
// the n positions it yields (value(i), true) when the position is valid and
// (zero, false) when it is null; value is never called for null positions.
// A nil validity means every position is valid.
func ZipValidity[T any](n int, value func(i int) T, validity *Bitmap) iter.Seq2[T, bool] {
	var mask *Bitmap
	if validity != nil {
		v := *validity
		mask = &v
	}

	return func(yield func(T, bool) bool) {
		var zero T
		for i := 0; i < n; i++ {
			if mask != nil && !mask.GetUnchecked(i) {
				if !yield(zero, false) {
					return
				}
				continue
			}
			if !yield(value(i), true) {
				return
			}
		}
	}
}
