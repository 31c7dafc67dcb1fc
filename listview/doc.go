// Package listview implements the Arrow list-view layout.
//
// A list-view array stores, for every element, an independent (offset,
// length) pair into a shared child array. Unlike the plain list layout the
// offsets need not be monotone: element ranges may overlap, leave gaps, or
// appear in any order, as long as each resolves inside the child.
//
// This package implements:
// - Array: the immutable list-view array over int32 (ListView) or int64 (LargeListView) indices
// - Construction with full bounds validation (New, MustNew, NewEmpty, NewNull)
// - O(1) slicing and splitting that share the child array
// - Null-aware iteration and structural equality
// - Zero-copy conversion to and from arrow-go array data
package listview
