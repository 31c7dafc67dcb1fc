package api

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// MaxMessageSize is the default limit on a frame payload (50MB).
const MaxMessageSize = 50 * 1024 * 1024

// Op selects the operation of a request.
type Op byte

const (
	// OpValidate imports every list-view column with full bounds checks.
	OpValidate Op = 'V'
	// OpCompare runs TotEq over two list-view columns.
	OpCompare Op = 'C'
)

func (op Op) String() string {
	switch op {
	case OpValidate:
		return "validate"
	case OpCompare:
		return "compare"
	}
	return "unknown"
}

var (
	// ErrMessageTooLarge is returned when a frame exceeds the size limit.
	ErrMessageTooLarge = errors.New("message size exceeds maximum allowed size")

	// ErrBadRequest is returned for requests that cannot be decoded.
	ErrBadRequest = errors.New("bad request")

	// ErrRemote wraps an "ERR" reply from the server.
	ErrRemote = errors.New("remote error")
)

var (
	replyOK  = []byte("OK")
	replyErr = []byte("ERR ")
)

// ReadMessage reads a length-prefixed frame of at most MaxMessageSize bytes.
// Format: [4 bytes length (BigEndian)] [N bytes payload]
func ReadMessage(r io.Reader) ([]byte, error) {
	return ReadMessageLimit(r, MaxMessageSize)
}

// ReadMessageLimit reads a length-prefixed frame of at most limit bytes.
func ReadMessageLimit(r io.Reader, limit int) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}

	if int64(length) > int64(limit) {
		return nil, errors.Wrapf(ErrMessageTooLarge, "%d bytes (max: %d)", length, limit)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "failed to read message body")
	}

	return buf, nil
}

// WriteMessage writes a length-prefixed frame.
// Format: [4 bytes length (BigEndian)] [N bytes payload]
func WriteMessage(w io.Writer, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 || len(data) > MaxMessageSize {
		return errors.Wrapf(ErrMessageTooLarge, "%d bytes (max: %d)", len(data), MaxMessageSize)
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data))) // #nosec G115 - bounds checked above
	copy(frame[4:], data)

	if _, err := w.Write(frame); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

// EncodeRequest builds a request payload.
func EncodeRequest(op Op, stream []byte) []byte {
	out := make([]byte, 0, 1+len(stream))
	out = append(out, byte(op))
	return append(out, stream...)
}

// DecodeRequest splits a request payload into its operation and IPC stream.
func DecodeRequest(payload []byte) (Op, []byte, error) {
	if len(payload) == 0 {
		return 0, nil, errors.Wrap(ErrBadRequest, "empty request")
	}
	switch op := Op(payload[0]); op {
	case OpValidate, OpCompare:
		return op, payload[1:], nil
	default:
		return 0, nil, errors.Wrapf(ErrBadRequest, "unknown operation %q", payload[0])
	}
}

func validateReply(rows int64) []byte {
	return strconv.AppendInt([]byte("OK rows="), rows, 10)
}

func compareReply(eq []bool) []byte {
	out := make([]byte, len(replyOK), len(replyOK)+len(eq))
	copy(out, replyOK)
	for _, v := range eq {
		if v {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func errorReply(err error) []byte {
	return append(append([]byte{}, replyErr...), err.Error()...)
}

// parseReply strips the status prefix of a reply, turning "ERR" replies into
// errors wrapping ErrRemote.
func parseReply(reply []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(reply, replyErr):
		return nil, errors.Wrap(ErrRemote, string(reply[len(replyErr):]))
	case bytes.HasPrefix(reply, replyOK):
		return reply[len(replyOK):], nil
	}
	return nil, errors.Errorf("malformed reply %q", reply)
}
