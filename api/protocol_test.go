package api

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, []byte("hello")))
	require.NoError(t, WriteMessage(&buf, nil))

	require.Equal(t, []byte{0, 0, 0, 5}, buf.Bytes()[:4])

	msg, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), msg)

	msg, err = ReadMessage(&buf)
	require.NoError(t, err)
	require.Empty(t, msg)

	_, err = ReadMessage(&buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadMessageLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, make([]byte, 64)))

	_, err := ReadMessageLimit(bytes.NewReader(buf.Bytes()), 63)
	require.ErrorIs(t, err, ErrMessageTooLarge)

	msg, err := ReadMessageLimit(bytes.NewReader(buf.Bytes()), 64)
	require.NoError(t, err)
	require.Len(t, msg, 64)
}

func TestReadMessageTruncated(t *testing.T) {
	frame := make([]byte, 4, 6)
	binary.BigEndian.PutUint32(frame, 10)
	frame = append(frame, 'a', 'b')

	_, err := ReadMessage(bytes.NewReader(frame))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteMessageTooLarge(t *testing.T) {
	err := WriteMessage(io.Discard, make([]byte, MaxMessageSize+1))
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestDecodeRequest(t *testing.T) {
	op, stream, err := DecodeRequest(EncodeRequest(OpCompare, []byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, OpCompare, op)
	require.Equal(t, []byte{1, 2, 3}, stream)

	op, stream, err = DecodeRequest(EncodeRequest(OpValidate, nil))
	require.NoError(t, err)
	require.Equal(t, OpValidate, op)
	require.Empty(t, stream)

	_, _, err = DecodeRequest(nil)
	require.ErrorIs(t, err, ErrBadRequest)

	_, _, err = DecodeRequest([]byte("Xabc"))
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestOpString(t *testing.T) {
	require.Equal(t, "validate", OpValidate.String())
	require.Equal(t, "compare", OpCompare.String())
	require.Equal(t, "unknown", Op(0).String())
}

func TestParseReply(t *testing.T) {
	body, err := parseReply(validateReply(42))
	require.NoError(t, err)
	require.Equal(t, " rows=42", string(body))

	body, err = parseReply(compareReply([]bool{true, false, true}))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 1}, body)

	_, err = parseReply(errorReply(ErrBadRequest))
	require.ErrorIs(t, err, ErrRemote)
	require.Contains(t, err.Error(), "bad request")

	_, err = parseReply([]byte("??"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRemote)
}
