// Package api serves list-view validation and comparison over a framed TCP
// protocol.
//
// Every frame is a 4-byte big-endian length followed by the payload. A
// request payload is one operation byte followed by an Arrow IPC stream:
//
//	'V'  validate every list-view column of every record batch
//	'C'  compare the two list-view columns of the first record batch
//
// Replies are "OK rows=<n>" for validation, "OK" followed by one byte per
// row (1 equal, 0 different) for comparison, and "ERR <message>" on failure.
//
// This package implements:
// - ArrowServer: the TCP server, one goroutine per connection
// - ArrowHandler: request decoding and dispatch
// - Client: a blocking client for the protocol
// - Metrics: Prometheus instrumentation and the /metrics endpoint
package api
