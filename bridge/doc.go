// Package bridge moves list-view arrays across the Arrow C Data Interface.
//
// This package contains:
//   - CGO-backed export and import through arrow-go's cdata package (cdata.go)
//
// Exported buffers are borrowed by the consumer: the producer's array stays
// alive until the consumer calls the release callback. Imported buffers
// point into foreign memory, which must outlive the imported array.
//
// Building this package requires CGO_ENABLED=1.
package bridge
