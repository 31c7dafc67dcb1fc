package listview

import (
	"iter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// Equal reports whether a and b have the same logical type and length and
// their elements are pairwise equal. Two nulls are equal; a null and a
// non-null element are not. Non-null elements are compared by value, so
// arrays with different offsets can be equal. List and ListView types with
// the same child field are the same logical type.
func Equal[O offset.Offset](a, b *Array[O]) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if !arrow.TypeEqual(logicalType(a.dtype), logicalType(b.dtype)) || a.Len() != b.Len() {
		return false
	}

	next, stop := iter.Pull(b.Iter())
	defer stop()

	for l := range a.Iter() {
		r, _ := next()
		eq := elementEqual(l, r)
		release(l, r)
		if !eq {
			return false
		}
	}
	return true
}

func elementEqual(l, r arrow.Array) bool {
	switch {
	case l == nil && r == nil:
		return true
	case l == nil || r == nil:
		return false
	}
	return array.Equal(l, r)
}

func release(arrs ...arrow.Array) {
	for _, arr := range arrs {
		if arr != nil {
			arr.Release()
		}
	}
}

func logicalType(dt arrow.DataType) arrow.DataType {
	switch dt := dt.(type) {
	case *arrow.ListViewType:
		return arrow.ListOfField(dt.ElemField())
	case *arrow.LargeListViewType:
		return arrow.LargeListOfField(dt.ElemField())
	}
	return dt
}
