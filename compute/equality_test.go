package compute

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

func int32Values(values ...int32) arrow.Array {
	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

func int32WithNulls(values []int32, valid []bool) arrow.Array {
	b := array.NewInt32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

func makeList(t testing.TB, child arrow.Array, offsets, lengths []int32, validity ...bool) *listview.ListView {
	t.Helper()
	var mask *bitmap.Bitmap
	if len(validity) > 0 {
		v := bitmap.FromBools(validity...)
		mask = &v
	}
	arr, err := listview.New(arrow.ListOf(child.DataType()), offset.New(offsets), offset.New(lengths), child, mask)
	require.NoError(t, err)
	return arr
}

func TestTotEq(t *testing.T) {
	child := int32Values(10, 20, 30, 40, 50)
	defer child.Release()
	other := int32Values(30, 40, 10, 99)
	defer other.Release()
	holes := int32WithNulls([]int32{1, 0, 3}, []bool{true, false, true})
	defer holes.Release()
	moreHoles := int32WithNulls([]int32{9, 1, 0, 3, 1, 3}, []bool{true, true, false, true, true, true})
	defer moreHoles.Release()

	tests := []struct {
		name   string
		left   *listview.ListView
		right  *listview.ListView
		wantEq []bool
	}{
		{
			name:   "null against value",
			left:   makeList(t, child, []int32{0}, []int32{0}, false),
			right:  makeList(t, child, []int32{0}, []int32{5}),
			wantEq: []bool{true},
		},
		{
			name:   "both null",
			left:   makeList(t, child, []int32{0}, []int32{1}, false),
			right:  makeList(t, child, []int32{3}, []int32{2}, false),
			wantEq: []bool{true},
		},
		{
			name:   "different children same contents",
			left:   makeList(t, child, []int32{2, 0, 0}, []int32{2, 1, 0}),
			right:  makeList(t, other, []int32{0, 2, 4}, []int32{2, 1, 0}),
			wantEq: []bool{true, true, true},
		},
		{
			name:   "length differs",
			left:   makeList(t, child, []int32{0}, []int32{2}),
			right:  makeList(t, child, []int32{0}, []int32{3}),
			wantEq: []bool{false},
		},
		{
			name:   "contents differ",
			left:   makeList(t, child, []int32{2, 1}, []int32{2, 1}),
			right:  makeList(t, other, []int32{0, 3}, []int32{2, 1}),
			wantEq: []bool{true, false},
		},
		{
			name:   "nulls inside elements",
			left:   makeList(t, holes, []int32{0, 0}, []int32{3, 2}),
			right:  makeList(t, moreHoles, []int32{1, 4}, []int32{3, 2}),
			wantEq: []bool{true, false},
		},
		{
			name:   "empty",
			left:   makeList(t, child, nil, nil),
			right:  makeList(t, other, nil, nil),
			wantEq: []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq, err := TotEq(tt.left, tt.right)
			require.NoError(t, err)
			require.Equal(t, tt.wantEq, eq.ToBools())

			ne, err := TotNe(tt.left, tt.right)
			require.NoError(t, err)
			require.Len(t, ne.ToBools(), len(tt.wantEq))
			for i, v := range ne.ToBools() {
				require.Equal(t, !tt.wantEq[i], v, "row %d", i)
			}
		})
	}
}

func TestTotEqErrors(t *testing.T) {
	child := int32Values(1, 2, 3)
	defer child.Release()

	_, err := TotEq(makeList(t, child, []int32{0}, []int32{1}), makeList(t, child, []int32{0, 1}, []int32{1, 1}))
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = TotNe(makeList(t, child, []int32{0}, []int32{1}), makeList(t, child, nil, nil))
	require.ErrorIs(t, err, ErrLengthMismatch)

	strings := func() arrow.Array {
		b := array.NewStringBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues([]string{"a"}, nil)
		return b.NewArray()
	}()
	defer strings.Release()

	_, err = TotEq(makeList(t, child, []int32{0}, []int32{1}), makeList(t, strings, []int32{0}, []int32{1}))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestBroadcastNotImplemented(t *testing.T) {
	child := int32Values(1, 2, 3)
	defer child.Release()
	arr := makeList(t, child, []int32{0}, []int32{1})

	_, err := TotEqBroadcast(arr, Unit{})
	require.ErrorIs(t, err, ErrNotImplemented)

	_, err = TotNeBroadcast(arr, Unit{})
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestTotEqSliced(t *testing.T) {
	child := int32Values(10, 20, 30, 40, 50)
	defer child.Release()

	left := makeList(t, child, []int32{4, 2, 0, 1}, []int32{1, 2, 1, 1}, true, true, false, true)
	right := makeList(t, child, []int32{0, 2, 3, 1}, []int32{1, 2, 1, 1})

	eq, err := TotEq(left.Slice(1, 3), right.Slice(1, 3))
	require.NoError(t, err)
	require.Equal(t, []bool{true, true, true}, eq.ToBools())

	eq, err = TotEq(left.Slice(0, 2), right.Slice(2, 2))
	require.NoError(t, err)
	require.Equal(t, []bool{false, false}, eq.ToBools())
}

func TestChunkedMatchesSerial(t *testing.T) {
	const n = 1000
	rng := rand.New(rand.NewPCG(1, 2))

	raw := make([]int32, 64)
	for i := range raw {
		raw[i] = rng.Int32N(4)
	}
	child := int32Values(raw...)
	defer child.Release()

	randomList := func() *listview.ListView {
		offsets := make([]int32, n)
		lengths := make([]int32, n)
		validity := make([]bool, n)
		for i := range offsets {
			lengths[i] = rng.Int32N(3)
			offsets[i] = rng.Int32N(int32(len(raw)) - lengths[i] + 1)
			validity[i] = rng.IntN(10) > 0
		}
		return makeList(t, child, offsets, lengths, validity...)
	}
	left, right := randomList(), randomList()

	want, err := TotEq(left, right)
	require.NoError(t, err)
	wantNe, err := TotNe(left, right)
	require.NoError(t, err)

	for _, chunks := range []int{0, 1, 3, 7, 16} {
		got, err := TotEqChunked(context.Background(), left, right, chunks)
		require.NoError(t, err)
		require.Equal(t, want.ToBools(), got.ToBools(), "chunks=%d", chunks)

		gotNe, err := TotNeChunked(context.Background(), left, right, chunks)
		require.NoError(t, err)
		require.Equal(t, wantNe.ToBools(), gotNe.ToBools(), "chunks=%d", chunks)
	}
}

func TestChunkedCanceled(t *testing.T) {
	child := int32Values(1, 2, 3)
	defer child.Release()

	offsets := make([]int32, 100)
	lengths := make([]int32, 100)
	arr := makeList(t, child, offsets, lengths)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TotEqChunked(ctx, arr, arr, 4)
	require.ErrorIs(t, err, context.Canceled)

	_, err = TotEqChunked(context.Background(), arr, arr.Slice(0, 50), 4)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func BenchmarkTotEq(b *testing.B) {
	const n = 1 << 14
	child := int32Values(make([]int32, 256)...)
	defer child.Release()

	offsets := make([]int32, n)
	lengths := make([]int32, n)
	for i := range offsets {
		offsets[i] = int32(i % 200)
		lengths[i] = int32(i % 50)
	}
	left := makeList(b, child, offsets, lengths)

	b.Run("serial", func(b *testing.B) {
		b.ReportAllocs()
		for b.Loop() {
			if _, err := TotEq(left, left); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("chunked", func(b *testing.B) {
		b.ReportAllocs()
		for b.Loop() {
			if _, err := TotEqChunked(context.Background(), left, left, 8); err != nil {
				b.Fatal(err)
			}
		}
	})
}
