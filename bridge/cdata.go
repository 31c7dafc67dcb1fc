//go:build cgo

package bridge

import (
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// ExportCArray fills out and schema with a C Data Interface description of
// arr. The validity mask is re-aligned first if its offset differs from the
// offsets; all other buffers are shared. The consumer must invoke the
// release callbacks, or ReleaseCArray when the consumer is Go.
func ExportCArray[O offset.Offset](arr *listview.Array[O], out *cdata.CArrowArray, schema *cdata.CArrowSchema) {
	a := arr.ToArrow()
	defer a.Release()

	cdata.ExportArrowArray(a, out, schema)
}

// ImportCArray takes ownership of in and imports it as a list-view array of
// offset width O. The schema is consumed. Offsets and lengths are validated
// against the child before the array is returned.
func ImportCArray[O offset.Offset](in *cdata.CArrowArray, schema *cdata.CArrowSchema) (*listview.Array[O], error) {
	_, imported, err := cdata.ImportCArray(in, schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to import C array")
	}
	defer imported.Release()

	arr, err := listview.FromData[O](imported.Data())
	if err != nil {
		return nil, errors.Wrap(err, "invalid list-view from C data")
	}
	return arr, nil
}

// ReleaseCArray invokes the release callbacks of an exported array and
// schema that were never handed to a consumer.
func ReleaseCArray(arr *cdata.CArrowArray, schema *cdata.CArrowSchema) {
	cdata.ReleaseCArrowArray(arr)
	cdata.ReleaseCArrowSchema(schema)
}
