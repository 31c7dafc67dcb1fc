// Package ipc serializes list-view arrays for the Arrow IPC format.
//
// This package implements:
// - Encoder: the record batch body writer (field nodes, buffer descriptors, 8-byte padded body)
// - EncodeListView: validity, rebased offsets, lengths and the referenced child window
// - IPCWriter: whole IPC streams of list-view columns over arrow-go's ipc reader and writer
package ipc
