// Package bitmap provides the validity mask used by list-view arrays.
// This package implements:
// - Bitmap: an immutable bit-vector over a shared arrow memory.Buffer with O(1) slicing
// - Builder: append-only construction of new bitmaps
// - ZipValidity: null-aware iteration over positional values
package bitmap
