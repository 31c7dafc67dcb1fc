// Package network ships list-view batches between processes over ZeroMQ.
//
// A Shipper owns a PUSH socket and sends each batch as a three-frame
// Envelope carrying an Arrow IPC stream. A Sink binds the matching PULL
// socket, drops replayed (sender, sequence) pairs, validates every column
// with the same bounds checks as listview.New, and delivers the decoded
// arrays on a channel.
package network
