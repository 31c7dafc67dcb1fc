// Package offset provides typed index buffers for list-view arrays.
// This package implements:
// - Offset: the int32/int64 index width constraint
// - Buffer: an immutable, O(1)-sliceable view of offsets or lengths over an arrow memory.Buffer
// - CheckUnorderedBounds: validation of (offset, length) pairs against a child length
package offset
