package ipc

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowipc "github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// ErrNoRecords is returned when an IPC stream holds no record batch.
var ErrNoRecords = errors.New("no records in IPC data")

// Column is a list-view array that can present itself as an arrow-go array.
// Both *listview.ListView and *listview.LargeListView satisfy it.
type Column interface {
	Len() int
	ToArrow() arrow.Array
}

// toWritable converts col for the IPC writer, which only accepts list-view
// data at offset 0.
func toWritable(col Column) arrow.Array {
	switch c := col.(type) {
	case *listview.ListView:
		return c.Rebase().ToArrow()
	case *listview.LargeListView:
		return c.Rebase().ToArrow()
	}
	return col.ToArrow()
}

// IPCWriter writes list-view columns as Arrow IPC streams, one column per
// record batch.
type IPCWriter struct {
	allocator memory.Allocator
}

// NewIPCWriter creates a new IPCWriter.
func NewIPCWriter() *IPCWriter {
	return NewIPCWriterWithAllocator(memory.DefaultAllocator)
}

// NewIPCWriterWithAllocator creates an IPCWriter reading with mem.
func NewIPCWriterWithAllocator(mem memory.Allocator) *IPCWriter {
	return &IPCWriter{allocator: mem}
}

// SerializeToIPC serializes col as a single record batch with one field
// called name.
func (w *IPCWriter) SerializeToIPC(name string, col Column) ([]byte, error) {
	return w.SerializeMultipleToIPC(name, []Column{col})
}

// SerializeMultipleToIPC serializes each column as its own record batch.
// All columns must share a data type.
func (w *IPCWriter) SerializeMultipleToIPC(name string, cols []Column) ([]byte, error) {
	if len(cols) == 0 {
		return nil, errors.New("no columns to serialize")
	}

	arrs := make([]arrow.Array, len(cols))
	for i, col := range cols {
		arrs[i] = toWritable(col)
	}
	defer func() {
		for _, arr := range arrs {
			arr.Release()
		}
	}()

	schema := arrow.NewSchema([]arrow.Field{{Name: name, Type: arrs[0].DataType(), Nullable: true}}, nil)

	var buf bytes.Buffer
	writer := arrowipc.NewWriter(&buf, arrowipc.WithSchema(schema), arrowipc.WithAllocator(w.allocator))
	defer writer.Close()

	for i, arr := range arrs {
		if !arrow.TypeEqual(arr.DataType(), schema.Field(0).Type) {
			return nil, errors.Errorf("column %d has type %s, want %s", i, arr.DataType(), schema.Field(0).Type)
		}
		record := array.NewRecord(schema, []arrow.Array{arr}, int64(arr.Len()))
		err := writer.Write(record)
		record.Release()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to write record %d", i)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close writer")
	}

	return buf.Bytes(), nil
}

// SerializeColumnsToIPC serializes cols side by side as the fields of one
// record batch. All columns must have the same length.
func (w *IPCWriter) SerializeColumnsToIPC(names []string, cols []Column) ([]byte, error) {
	if len(cols) == 0 || len(names) != len(cols) {
		return nil, errors.Errorf("need one name per column, got %d names for %d columns", len(names), len(cols))
	}

	fields := make([]arrow.Field, len(cols))
	arrs := make([]arrow.Array, len(cols))
	for i, col := range cols {
		arrs[i] = toWritable(col)
		fields[i] = arrow.Field{Name: names[i], Type: arrs[i].DataType(), Nullable: true}
	}
	defer func() {
		for _, arr := range arrs {
			arr.Release()
		}
	}()

	rows := cols[0].Len()
	for i, col := range cols {
		if col.Len() != rows {
			return nil, errors.Errorf("column %d has %d rows, want %d", i, col.Len(), rows)
		}
	}

	schema := arrow.NewSchema(fields, nil)
	record := array.NewRecord(schema, arrs, int64(rows))
	defer record.Release()

	var buf bytes.Buffer
	writer := arrowipc.NewWriter(&buf, arrowipc.WithSchema(schema), arrowipc.WithAllocator(w.allocator))
	defer writer.Close()

	if err := writer.Write(record); err != nil {
		return nil, errors.Wrap(err, "failed to write record")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close writer")
	}

	return buf.Bytes(), nil
}

// DeserializeFromIPC returns the first record batch of an IPC stream. The
// caller must Release it.
func (w *IPCWriter) DeserializeFromIPC(data []byte) (arrow.Record, error) {
	reader, err := arrowipc.NewReader(bytes.NewReader(data), arrowipc.WithAllocator(w.allocator))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reader")
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, ErrNoRecords
	}

	record := reader.Record()
	record.Retain()

	return record, nil
}

// DeserializeAllFromIPC returns every record batch of an IPC stream. The
// caller must Release them.
func (w *IPCWriter) DeserializeAllFromIPC(data []byte) ([]arrow.Record, error) {
	reader, err := arrowipc.NewReader(bytes.NewReader(data), arrowipc.WithAllocator(w.allocator))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reader")
	}
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
	}

	if reader.Err() != nil {
		for _, r := range records {
			r.Release()
		}
		return nil, reader.Err()
	}

	return records, nil
}

// ListViewColumn imports column i of record as a validated list-view array
// of offset width O. The result shares the record's buffers.
func ListViewColumn[O offset.Offset](record arrow.Record, i int) (*listview.Array[O], error) {
	if i < 0 || i >= int(record.NumCols()) {
		return nil, errors.Errorf("column %d out of range, record has %d columns", i, record.NumCols())
	}
	arr, err := listview.FromData[O](record.Column(i).Data())
	if err != nil {
		return nil, errors.Wrapf(err, "column %q", record.ColumnName(i))
	}
	return arr, nil
}

// ReadListViews decodes an IPC stream and imports the first column of every
// record batch.
func ReadListViews[O offset.Offset](w *IPCWriter, data []byte) ([]*listview.Array[O], error) {
	records, err := w.DeserializeAllFromIPC(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	out := make([]*listview.Array[O], 0, len(records))
	for i, record := range records {
		arr, err := ListViewColumn[O](record, 0)
		record.Release()
		if err != nil {
			for _, r := range records[i+1:] {
				r.Release()
			}
			return nil, errors.Wrapf(err, "record %d", i)
		}
		out = append(out, arr)
	}
	return out, nil
}
