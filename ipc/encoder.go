package ipc

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// ErrUnsupportedType is returned for child arrays the encoder cannot write.
var ErrUnsupportedType = errors.New("unsupported array type")

const alignment = 8

// Buffer locates one buffer inside the message body.
type Buffer struct {
	Offset int64
	Length int64
}

// FieldNode describes one array in depth-first order.
type FieldNode struct {
	Length    int64
	NullCount int64
}

// Encoder accumulates the body of a record batch message. Buffers are
// written in the host's native byte order and padded to 8 bytes.
type Encoder struct {
	nodes   []FieldNode
	buffers []Buffer
	body    []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Nodes returns the field nodes written so far.
func (e *Encoder) Nodes() []FieldNode { return e.nodes }

// Buffers returns the buffer descriptors written so far.
func (e *Encoder) Buffers() []Buffer { return e.buffers }

// Body returns the message body.
func (e *Encoder) Body() []byte { return e.body }

// Reset clears the encoder for reuse.
func (e *Encoder) Reset() {
	e.nodes = e.nodes[:0]
	e.buffers = e.buffers[:0]
	e.body = e.body[:0]
}

func (e *Encoder) addNode(length, nulls int) {
	e.nodes = append(e.nodes, FieldNode{Length: int64(length), NullCount: int64(nulls)})
}

func (e *Encoder) writeBytes(raw []byte) {
	start := int64(len(e.body))
	e.body = append(e.body, raw...)
	e.buffers = append(e.buffers, Buffer{Offset: start, Length: int64(len(raw))})
	if pad := paddedLength(len(raw)) - len(raw); pad > 0 {
		e.body = append(e.body, make([]byte, pad)...)
	}
}

// writeBitmap writes length bits of buf starting at bit offset, shifting
// them to bit 0 when the offset is not byte aligned.
func (e *Encoder) writeBitmap(buf *memory.Buffer, offset, length int) {
	if buf == nil {
		e.writeBytes(nil)
		return
	}
	nbytes := int(bitutil.BytesForBits(int64(length)))
	if offset%8 == 0 {
		e.writeBytes(buf.Bytes()[offset/8 : offset/8+nbytes])
		return
	}
	out := make([]byte, nbytes)
	bitutil.CopyBitmap(buf.Bytes(), offset, length, out, 0)
	e.writeBytes(out)
}

func (e *Encoder) writeValidity(data arrow.ArrayData) {
	if data.NullN() == 0 {
		e.writeBytes(nil)
		return
	}
	e.writeBitmap(data.Buffers()[0], data.Offset(), data.Len())
}

func paddedLength(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// EncodeListView appends arr to the message: its field node, then the
// validity, offsets and lengths buffers, then the child.
//
// Only the window of the child referenced by non-empty elements is written.
// Offsets are rebased to that window; empty elements whose offset falls
// outside it are written with offset 0. Lengths are written unchanged.
func EncodeListView[O offset.Offset](e *Encoder, arr *listview.Array[O]) error {
	e.addNode(arr.Len(), arr.NullN())
	return encodeListViewBuffers(e, arr)
}

func encodeListViewBuffers[O offset.Offset](e *Encoder, arr *listview.Array[O]) error {
	if v := arr.Validity(); v != nil {
		e.writeBitmap(v.Buffer(), v.Offset(), v.Len())
	} else {
		e.writeBytes(nil)
	}

	offs, lens := arr.Offsets().Values(), arr.Lengths().Values()
	start, end := ReferencedRange(offs, lens)
	if rebased, ok := RebaseOffsets(offs, lens, start, end); ok {
		e.writeBytes(offset.New(rebased).Bytes())
	} else {
		e.writeBytes(arr.Offsets().Bytes())
	}
	e.writeBytes(arr.Lengths().Bytes())

	child := array.NewSlice(arr.Values(), int64(start), int64(end))
	defer child.Release()
	return e.EncodeArray(child)
}

// ReferencedRange returns the smallest window [start, end) of the child
// covering every element with a non-zero length. It returns (0, 0) when no
// element has a non-zero length.
func ReferencedRange[O offset.Offset](offsets, lengths []O) (start, end O) {
	found := false
	for i := range offsets {
		if lengths[i] == 0 {
			continue
		}
		s, t := offsets[i], offsets[i]+lengths[i]
		if !found {
			start, end, found = s, t, true
			continue
		}
		start, end = min(start, s), max(end, t)
	}
	return start, end
}

// RebaseOffsets shifts offsets into the window [start, end). Empty elements
// outside the window get offset 0. It returns false when the offsets are
// already valid for the window and can be written as they are.
func RebaseOffsets[O offset.Offset](offsets, lengths []O, start, end O) ([]O, bool) {
	rewrite := start != 0
	for i := range offsets {
		if lengths[i] == 0 && offsets[i] > end {
			rewrite = true
			break
		}
	}
	if !rewrite {
		return nil, false
	}

	out := make([]O, len(offsets))
	for i, off := range offsets {
		if lengths[i] == 0 && (off < start || off > end) {
			continue
		}
		out[i] = off - start
	}
	return out, true
}

// EncodeArray appends an arrow-go array to the message.
func (e *Encoder) EncodeArray(arr arrow.Array) error {
	data := arr.Data()
	bufs := data.Buffers()
	off, n := data.Offset(), data.Len()

	e.addNode(n, arr.NullN())

	switch dt := arr.DataType(); dt.ID() {
	case arrow.NULL:
		// no buffers
	case arrow.BOOL:
		e.writeValidity(data)
		e.writeBitmap(bufs[1], off, n)
	case arrow.STRING, arrow.BINARY:
		e.writeValidity(data)
		return encodeVarBinary[int32](e, bufs, off, n)
	case arrow.LARGE_STRING, arrow.LARGE_BINARY:
		e.writeValidity(data)
		return encodeVarBinary[int64](e, bufs, off, n)
	case arrow.LIST_VIEW:
		lv, err := listview.FromData[int32](data)
		if err != nil {
			return err
		}
		return encodeListViewBuffers(e, lv)
	case arrow.LARGE_LIST_VIEW:
		lv, err := listview.FromData[int64](data)
		if err != nil {
			return err
		}
		return encodeListViewBuffers(e, lv)
	case arrow.STRUCT:
		e.writeValidity(data)
		st := arr.(*array.Struct)
		for i := 0; i < st.NumField(); i++ {
			if err := e.EncodeArray(st.Field(i)); err != nil {
				return err
			}
		}
	case arrow.DICTIONARY, arrow.EXTENSION, arrow.STRING_VIEW, arrow.BINARY_VIEW:
		return errors.Wrapf(ErrUnsupportedType, "%s", dt)
	default:
		fw, ok := dt.(arrow.FixedWidthDataType)
		if !ok || fw.BitWidth()%8 != 0 {
			return errors.Wrapf(ErrUnsupportedType, "%s", dt)
		}
		width := fw.BitWidth() / 8
		e.writeValidity(data)
		e.writeBytes(bufferBytes(bufs[1], off*width, (off+n)*width))
	}
	return nil
}

func encodeVarBinary[O offset.Offset](e *Encoder, bufs []*memory.Buffer, off, n int) error {
	offsets, err := offset.FromMemory[O](bufs[1], off, n+1)
	if n == 0 && err != nil {
		// zero-length arrays may omit their offsets
		e.writeBytes(offset.NewZeroed[O](1).Bytes())
		e.writeBytes(nil)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "binary offsets")
	}

	values := offsets.Values()
	first, last := values[0], values[n]
	rebased := make([]O, n+1)
	for i, v := range values {
		rebased[i] = v - first
	}
	e.writeBytes(offset.New(rebased).Bytes())
	e.writeBytes(bufferBytes(bufs[2], int(first), int(last)))
	return nil
}

func bufferBytes(buf *memory.Buffer, start, end int) []byte {
	if buf == nil || start == end {
		return nil
	}
	return buf.Bytes()[start:end]
}
