package api

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/compute"
	"github.com/VanDung-dev/HieraChain-ListView/ipc"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// ArrowHandler decodes requests and runs them against the list-view
// packages.
type ArrowHandler struct {
	reader        *ipc.IPCWriter
	compareChunks int
	logger        log.Logger
	metrics       *Metrics
}

// NewArrowHandler creates a new ArrowHandler. compareChunks bounds the
// parallelism of comparisons.
func NewArrowHandler(compareChunks int, logger log.Logger, metrics *Metrics) *ArrowHandler {
	return &ArrowHandler{
		reader:        ipc.NewIPCWriterWithAllocator(memory.NewGoAllocator()),
		compareChunks: compareChunks,
		logger:        logger,
		metrics:       metrics,
	}
}

// ProcessRequest runs one request payload and returns the reply. Failures
// are returned as errors; the server turns them into "ERR" replies.
func (h *ArrowHandler) ProcessRequest(ctx context.Context, payload []byte) (reply []byte, err error) {
	start := time.Now()
	op, stream, err := DecodeRequest(payload)
	if err != nil {
		h.metrics.RecordRequest(op, 0, err, time.Since(start))
		return nil, err
	}

	var rows int64
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in %s: %v", op, r)
		}
		h.metrics.RecordRequest(op, rows, err, time.Since(start))
	}()

	switch op {
	case OpValidate:
		rows, err = h.validate(stream)
		if err != nil {
			return nil, err
		}
		level.Debug(h.logger).Log("msg", "batch validated", "rows", rows, "duration", time.Since(start))
		return validateReply(rows), nil

	default:
		var eq []bool
		eq, err = h.compare(ctx, stream)
		if err != nil {
			return nil, err
		}
		rows = int64(len(eq))
		level.Debug(h.logger).Log("msg", "batch compared", "rows", rows, "duration", time.Since(start))
		return compareReply(eq), nil
	}
}

func (h *ArrowHandler) validate(stream []byte) (int64, error) {
	records, err := h.reader.DeserializeAllFromIPC(stream)
	if err != nil {
		return 0, errors.Wrap(ErrBadRequest, err.Error())
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	var rows int64
	found := false
	for i, record := range records {
		for j := 0; j < int(record.NumCols()); j++ {
			var err error
			switch record.Column(j).DataType().ID() {
			case arrow.LIST_VIEW:
				_, err = ipc.ListViewColumn[int32](record, j)
			case arrow.LARGE_LIST_VIEW:
				_, err = ipc.ListViewColumn[int64](record, j)
			default:
				continue
			}
			if err != nil {
				return 0, errors.Wrapf(err, "record %d", i)
			}
			found = true
		}
		rows += record.NumRows()
	}
	if !found {
		return 0, errors.Wrap(ErrBadRequest, "no list-view columns")
	}
	return rows, nil
}

func (h *ArrowHandler) compare(ctx context.Context, stream []byte) ([]bool, error) {
	record, err := h.reader.DeserializeFromIPC(stream)
	if err != nil {
		return nil, errors.Wrap(ErrBadRequest, err.Error())
	}
	defer record.Release()

	if record.NumCols() != 2 {
		return nil, errors.Wrapf(ErrBadRequest, "compare needs 2 columns, got %d", record.NumCols())
	}

	lt, rt := record.Column(0).DataType().ID(), record.Column(1).DataType().ID()
	switch {
	case lt == arrow.LIST_VIEW && rt == arrow.LIST_VIEW:
		return compareColumns[int32](ctx, record, h.compareChunks)
	case lt == arrow.LARGE_LIST_VIEW && rt == arrow.LARGE_LIST_VIEW:
		return compareColumns[int64](ctx, record, h.compareChunks)
	}
	return nil, errors.Wrapf(ErrBadRequest, "compare needs two list-view columns of one width, got %s and %s", lt, rt)
}

func compareColumns[O offset.Offset](ctx context.Context, record arrow.Record, chunks int) ([]bool, error) {
	left, err := ipc.ListViewColumn[O](record, 0)
	if err != nil {
		return nil, err
	}
	right, err := ipc.ListViewColumn[O](record, 1)
	if err != nil {
		return nil, err
	}

	eq, err := compute.TotEqChunked(ctx, left, right, chunks)
	if err != nil {
		return nil, err
	}
	return eq.ToBools(), nil
}
