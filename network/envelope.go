package network

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Common errors for network operations
var (
	ErrNotRunning     = errors.New("not running")
	ErrAlreadyRunning = errors.New("already running")
	ErrBadEnvelope    = errors.New("malformed envelope")
	ErrSendFailed     = errors.New("failed to send batch")
)

const headerSize = 16

// Envelope is one shipped batch as it travels over the socket:
//
//	frame 0: sender ID
//	frame 1: 8-byte big-endian sequence, 8-byte big-endian unix-nano timestamp
//	frame 2: Arrow IPC stream
type Envelope struct {
	From      string
	Seq       uint64
	Timestamp time.Time
	Stream    []byte
}

// Frames returns the multipart frames of e.
func (e *Envelope) Frames() [][]byte {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header, e.Seq)
	binary.BigEndian.PutUint64(header[8:], uint64(e.Timestamp.UnixNano())) // #nosec G115 - round-trips through int64
	return [][]byte{[]byte(e.From), header, e.Stream}
}

// DecodeEnvelope parses the frames written by Frames.
func DecodeEnvelope(frames [][]byte) (*Envelope, error) {
	if len(frames) != 3 {
		return nil, errors.Wrapf(ErrBadEnvelope, "got %d frames, want 3", len(frames))
	}
	if len(frames[0]) == 0 {
		return nil, errors.Wrap(ErrBadEnvelope, "empty sender")
	}
	if len(frames[1]) != headerSize {
		return nil, errors.Wrapf(ErrBadEnvelope, "header is %d bytes, want %d", len(frames[1]), headerSize)
	}
	return &Envelope{
		From:      string(frames[0]),
		Seq:       binary.BigEndian.Uint64(frames[1]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(frames[1][8:]))), // #nosec G115
		Stream:    frames[2],
	}, nil
}

func (e *Envelope) key() string {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], e.Seq)
	return e.From + "/" + string(seq[:])
}
