package offset

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	buf := New([]int32{4, 0, 2, 1, 3})

	require.Equal(t, 5, buf.Len())
	require.Equal(t, []int32{4, 0, 2, 1, 3}, buf.Values())
	require.Equal(t, int32(2), buf.Get(2))
	require.Len(t, buf.Bytes(), 20)
	require.Panics(t, func() { buf.Get(5) })

	sliced := buf.Slice(1, 3)
	require.Equal(t, 1, sliced.Offset())
	require.Equal(t, []int32{0, 2, 1}, sliced.Values())
	require.Same(t, buf.Memory(), sliced.Memory())

	left, right := buf.SplitAt(2)
	require.Equal(t, []int32{4, 0}, left.Values())
	require.Equal(t, []int32{2, 1, 3}, right.Values())

	empty, all := buf.SplitAt(0)
	require.Equal(t, 0, empty.Len())
	require.Nil(t, empty.Values())
	require.Equal(t, 5, all.Len())

	require.Panics(t, func() { buf.SplitAt(6) })
	require.Panics(t, func() { buf.Slice(3, 3) })
}

func TestWidth(t *testing.T) {
	require.False(t, IsLarge[int32]())
	require.True(t, IsLarge[int64]())
	require.Equal(t, 4, Width[int32]())
	require.Equal(t, 8, Width[int64]())
}

func TestFromMemory(t *testing.T) {
	raw := New([]int64{7, 8, 9}).Memory()

	buf, err := FromMemory[int64](raw, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{8, 9}, buf.Values())

	_, err = FromMemory[int64](raw, 2, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)

	empty, err := FromMemory[int32](nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())

	_, err = FromMemory[int32](memory.NewBufferBytes(nil), 0, 1)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestAlign(t *testing.T) {
	buf := New([]int32{1, 2, 3, 4}).Slice(1, 2)

	aligned := buf.Align(3)
	require.Equal(t, 3, aligned.Offset())
	require.Equal(t, []int32{2, 3}, aligned.Values())

	require.Same(t, buf.Memory(), buf.Align(1).Memory())
}

func TestCheckUnorderedBounds(t *testing.T) {
	tests := []struct {
		name     string
		offsets  []int32
		lengths  []int32
		childLen int
		wantErr  error
	}{
		{name: "empty", childLen: 0},
		{name: "in bounds", offsets: []int32{2, 0}, lengths: []int32{2, 1}, childLen: 5},
		{name: "non-monotonic and overlapping", offsets: []int32{3, 0, 1, 0}, lengths: []int32{2, 5, 3, 0}, childLen: 5},
		{name: "zero length at end", offsets: []int32{5}, lengths: []int32{0}, childLen: 5},
		{name: "first element out of bounds", offsets: []int32{4, 0, 0}, lengths: []int32{2, 1, 1}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "middle element out of bounds", offsets: []int32{0, 4, 0}, lengths: []int32{1, 2, 1}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "last element out of bounds", offsets: []int32{0, 0, 4}, lengths: []int32{1, 1, 2}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "offset past end", offsets: []int32{6}, lengths: []int32{0}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "negative offset", offsets: []int32{-1}, lengths: []int32{1}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "negative length", offsets: []int32{0}, lengths: []int32{-1}, childLen: 5, wantErr: ErrOutOfBounds},
		{name: "count mismatch", offsets: []int32{0, 1}, lengths: []int32{1}, childLen: 5, wantErr: ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckUnorderedBounds(New(tt.offsets), New(tt.lengths), tt.childLen)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckUnorderedBoundsNoOverflow(t *testing.T) {
	err := CheckUnorderedBounds(New([]int64{math.MaxInt64 - 1}), New([]int64{math.MaxInt64 - 1}), 10)
	require.ErrorIs(t, err, ErrOutOfBounds)

	err = CheckUnorderedBounds(New([]int32{3}), New([]int32{math.MaxInt32}), 10)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func FuzzCheckUnorderedBounds(f *testing.F) {
	f.Add(int32(0), int32(0), 0)
	f.Add(int32(2), int32(2), 5)
	f.Add(int32(4), int32(2), 5)

	f.Fuzz(func(t *testing.T, off, n int32, childLen int) {
		if childLen < 0 {
			return
		}
		err := CheckUnorderedBounds(New([]int32{off}), New([]int32{n}), childLen)
		valid := off >= 0 && n >= 0 && int64(off)+int64(n) <= int64(childLen)
		if valid {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrOutOfBounds)
		}
	})
}
