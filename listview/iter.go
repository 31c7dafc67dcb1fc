package listview

import (
	"iter"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
)

// Iter yields every element in order: nil for a null element and the child
// slice otherwise. Each call starts a fresh pass. Yielded arrays are new
// slices the caller may Release.
func (a *Array[O]) Iter() iter.Seq[arrow.Array] {
	return func(yield func(arrow.Array) bool) {
		for v := range bitmap.ZipValidity(a.Len(), a.ValueUnchecked, a.validity) {
			if !yield(v) {
				return
			}
		}
	}
}
