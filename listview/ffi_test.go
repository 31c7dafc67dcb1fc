package listview

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

func roundTrip(t *testing.T, arr *ListView) *ListView {
	t.Helper()
	data, err := arr.ExportData()
	require.NoError(t, err)
	defer data.Release()

	require.Equal(t, arrow.LIST_VIEW, data.DataType().ID())
	require.Equal(t, arr.NullN(), data.NullN())

	out, err := FromData[int32](data)
	require.NoError(t, err)
	return out
}

func TestExportImport(t *testing.T) {
	tests := []struct {
		name     string
		offsets  []int32
		lengths  []int32
		validity *bitmap.Bitmap
	}{
		{name: "with validity", offsets: []int32{2, 0, 0}, lengths: []int32{2, 1, 0}, validity: ptr(bitmap.FromBools(true, true, false))},
		{name: "no validity", offsets: []int32{0, 1}, lengths: []int32{5, 3}},
		{name: "non-monotonic", offsets: []int32{4, 0, 3, 1}, lengths: []int32{1, 2, 2, 3}},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := newListView(t, tt.offsets, tt.lengths, tt.validity)
			off, ok := arr.FFIOffset()
			require.True(t, ok)
			require.Equal(t, 0, off)

			out := roundTrip(t, arr)
			require.True(t, Equal(arr, out))
			require.Equal(t, arr.Offsets().Values(), out.Offsets().Values())
			require.Equal(t, arr.Lengths().Values(), out.Lengths().Values())
			require.Same(t, arr.Offsets().Memory(), out.Offsets().Memory(), "offsets are shared, not copied")
			if tt.validity == nil {
				require.Nil(t, out.Validity())
			}
		})
	}
}

func TestExportSliced(t *testing.T) {
	arr := newListView(t, []int32{0, 2, 1, 3, 4}, []int32{1, 2, 3, 2, 1}, ptr(bitmap.FromBools(true, false, true, false, true)))
	sliced := arr.Slice(1, 3)

	off, ok := sliced.FFIOffset()
	require.True(t, ok)
	require.Equal(t, 1, off)

	data, err := sliced.ExportData()
	require.NoError(t, err)
	defer data.Release()
	require.Equal(t, 1, data.Offset())
	require.Equal(t, 3, data.Len())

	out, err := FromData[int32](data)
	require.NoError(t, err)
	require.True(t, Equal(sliced, out))
}

func TestRebase(t *testing.T) {
	arr := newListView(t, []int32{0, 2, 1, 3, 4}, []int32{1, 2, 3, 2, 1}, ptr(bitmap.FromBools(true, false, true, false, true)))
	require.Same(t, arr, arr.Rebase())

	sliced := arr.Slice(1, 3)
	rebased := sliced.Rebase()
	off, ok := rebased.FFIOffset()
	require.True(t, ok)
	require.Zero(t, off)
	require.Equal(t, []int32{2, 1, 3}, rebased.Offsets().Values())
	require.Equal(t, []int32{2, 3, 2}, rebased.Lengths().Values())
	require.Equal(t, []bool{false, true, false}, rebased.Validity().ToBools())
	require.Same(t, sliced.Values(), rebased.Values())
	require.True(t, Equal(sliced, rebased))

	data, err := rebased.ExportData()
	require.NoError(t, err)
	defer data.Release()
	require.Zero(t, data.Offset())
}

func TestExportUnaligned(t *testing.T) {
	child := int32Values(memory.DefaultAllocator, 10, 20, 30, 40, 50)
	defer child.Release()

	offsets := offset.New([]int32{9, 0, 2, 1}).Slice(1, 3)
	lengths := offset.New([]int32{1, 2, 3})
	validity := bitmap.FromBools(true, false, true)

	arr, err := New(listOfInt32(), offsets, lengths, child, &validity)
	require.NoError(t, err)

	_, ok := arr.FFIOffset()
	require.False(t, ok)
	_, err = arr.ExportData()
	require.ErrorIs(t, err, ErrUnaligned)

	aligned := arr.ToFFIAligned()
	off, ok := aligned.FFIOffset()
	require.True(t, ok)
	require.Equal(t, 1, off)
	require.Same(t, arr.Offsets().Memory(), aligned.Offsets().Memory())
	require.True(t, Equal(arr, aligned))

	data, err := aligned.ExportData()
	require.NoError(t, err)
	defer data.Release()

	out, err := FromData[int32](data)
	require.NoError(t, err)
	require.True(t, Equal(arr, out))
}

func TestToArrow(t *testing.T) {
	arr := newListView(t, []int32{3, 0}, []int32{2, 2}, ptr(bitmap.FromBools(true, false)))

	out := arr.ToArrow()
	defer out.Release()

	require.True(t, arrow.TypeEqual(arrow.ListViewOf(arrow.PrimitiveTypes.Int32), out.DataType()))
	require.Equal(t, 2, out.Len())
	require.True(t, out.IsNull(1))
	require.IsType(t, &array.ListView{}, out)

	back, err := FromData[int32](out.Data())
	require.NoError(t, err)
	require.True(t, Equal(arr, back))
}

func TestFromDataValidates(t *testing.T) {
	child := int32Values(memory.DefaultAllocator, 1, 2, 3)
	defer child.Release()

	bad := array.NewData(arrow.ListViewOf(arrow.PrimitiveTypes.Int32), 1,
		[]*memory.Buffer{nil, offset.New([]int32{2}).Memory(), offset.New([]int32{2}).Memory()},
		[]arrow.ArrayData{child.Data()}, 0, 0)
	defer bad.Release()

	_, err := FromData[int32](bad)
	require.ErrorIs(t, err, offset.ErrOutOfBounds)

	_, err = FromData[int64](bad)
	require.ErrorIs(t, err, ErrTypeMismatch)

	truncated := array.NewData(arrow.LargeListViewOf(arrow.PrimitiveTypes.Int32), 1,
		[]*memory.Buffer{nil, offset.New([]int32{0}).Memory(), offset.New([]int32{1}).Memory()},
		[]arrow.ArrayData{child.Data()}, 0, 0)
	defer truncated.Release()

	_, err = FromData[int64](truncated)
	require.ErrorIs(t, err, offset.ErrOutOfBounds, "4-byte buffer cannot hold one int64")

	short := array.NewData(arrow.ListViewOf(arrow.PrimitiveTypes.Int32), 1,
		[]*memory.Buffer{nil, offset.New([]int32{0}).Memory()},
		[]arrow.ArrayData{child.Data()}, 0, 0)
	defer short.Release()

	_, err = FromData[int32](short)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestLargeExportImport(t *testing.T) {
	child := int32Values(memory.DefaultAllocator, 1, 2, 3, 4)
	defer child.Release()

	arr, err := New(arrow.LargeListOf(arrow.PrimitiveTypes.Int32), offset.New([]int64{2, 0}), offset.New([]int64{2, 4}), child, nil)
	require.NoError(t, err)

	data, err := arr.ExportData()
	require.NoError(t, err)
	defer data.Release()
	require.Equal(t, arrow.LARGE_LIST_VIEW, data.DataType().ID())

	out, err := FromData[int64](data)
	require.NoError(t, err)
	require.True(t, Equal(arr, out))
}
