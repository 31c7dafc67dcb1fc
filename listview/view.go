package listview

import (
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// ViewElement locates a byte range inside one of several raw buffers. It is
// the element layout of binary and string view arrays, kept here next to
// the list-view layout it mirrors.
type ViewElement struct {
	Length    uint32
	BufferIdx uint32
	Offset    uint32
}

// Bytes resolves the element against buffers.
func (v ViewElement) Bytes(buffers [][]byte) ([]byte, error) {
	if int(v.BufferIdx) >= len(buffers) {
		return nil, errors.Wrapf(offset.ErrOutOfBounds, "buffer index %d, have %d buffers", v.BufferIdx, len(buffers))
	}
	buf := buffers[v.BufferIdx]
	end := uint64(v.Offset) + uint64(v.Length)
	if end > uint64(len(buf)) {
		return nil, errors.Wrapf(offset.ErrOutOfBounds, "range [%d, %d) exceeds buffer %d of %d bytes", v.Offset, end, v.BufferIdx, len(buf))
	}
	return buf[v.Offset:end], nil
}
