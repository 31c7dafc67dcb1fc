package network

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"

	"github.com/VanDung-dev/HieraChain-ListView/ipc"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
)

// Shipper pushes list-view batches to a Sink over a ZeroMQ PUSH socket.
type Shipper struct {
	id       string
	endpoint string
	logger   log.Logger
	writer   *ipc.IPCWriter

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	push    zmq4.Socket
	seq     uint64
	running bool
}

// NewShipper creates a shipper identified as id that will connect to
// endpoint (e.g. "tcp://127.0.0.1:5555").
func NewShipper(id, endpoint string, logger log.Logger) *Shipper {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Shipper{
		id:       id,
		endpoint: endpoint,
		logger:   log.With(logger, "component", "shipper", "endpoint", endpoint),
		writer:   ipc.NewIPCWriter(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start connects the PUSH socket.
func (s *Shipper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	push := zmq4.NewPush(s.ctx, zmq4.WithDialerRetry(100*time.Millisecond))
	if err := push.Dial(s.endpoint); err != nil {
		_ = push.Close()
		return errors.Wrapf(err, "failed to connect to %s", s.endpoint)
	}
	s.push = push
	s.running = true
	level.Info(s.logger).Log("msg", "shipper connected")
	return nil
}

// Ship serializes arrs as one batch and sends it. It returns the sequence
// number assigned to the batch.
func (s *Shipper) Ship(arrs ...*listview.LargeListView) (uint64, error) {
	cols := make([]ipc.Column, len(arrs))
	for i, arr := range arrs {
		cols[i] = arr
	}
	stream, err := s.writer.SerializeMultipleToIPC("items", cols)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0, ErrNotRunning
	}

	s.seq++
	env := &Envelope{From: s.id, Seq: s.seq, Timestamp: time.Now(), Stream: stream}
	if err := s.push.Send(zmq4.NewMsgFrom(env.Frames()...)); err != nil {
		return 0, errors.Wrap(ErrSendFailed, err.Error())
	}
	level.Debug(s.logger).Log("msg", "batch shipped", "seq", env.Seq, "bytes", len(stream))
	return env.Seq, nil
}

// Stop closes the socket. A stopped Shipper cannot be restarted.
func (s *Shipper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	if err := s.push.Close(); err != nil {
		level.Debug(s.logger).Log("msg", "socket close", "err", err)
	}
}
