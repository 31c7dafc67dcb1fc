package network

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/VanDung-dev/HieraChain-ListView/ipc"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
)

// Batch is a validated batch received by a Sink.
type Batch struct {
	From   string
	Seq    uint64
	Arrays []*listview.LargeListView
}

// Rows returns the total number of rows in the batch.
func (b *Batch) Rows() int {
	n := 0
	for _, arr := range b.Arrays {
		n += arr.Len()
	}
	return n
}

// SinkMetrics counts what a Sink does with incoming batches.
type SinkMetrics struct {
	Received prometheus.Counter
	Rejected prometheus.Counter
	Replayed prometheus.Counter
	Dropped  prometheus.Counter
}

// NewSinkMetrics registers the sink metrics with reg.
func NewSinkMetrics(namespace string, reg prometheus.Registerer) *SinkMetrics {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      name,
			Help:      help,
		})
	}
	return &SinkMetrics{
		Received: counter("batches_received_total", "Batches decoded and validated"),
		Rejected: counter("batches_rejected_total", "Batches that failed decoding or validation"),
		Replayed: counter("batches_replayed_total", "Batches ignored as duplicates"),
		Dropped:  counter("batches_dropped_total", "Valid batches dropped because the queue was full"),
	}
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SinkConfig configures a Sink.
type SinkConfig struct {
	// Endpoint to bind, e.g. "tcp://*:5555"
	Endpoint string
	// QueueSize is the capacity of the Batches channel
	QueueSize int
	// ReplayWindow is how long a (sender, sequence) pair is remembered
	ReplayWindow time.Duration
}

// DefaultSinkConfig returns a SinkConfig with sensible defaults.
func DefaultSinkConfig(endpoint string) SinkConfig {
	return SinkConfig{
		Endpoint:     endpoint,
		QueueSize:    1000,
		ReplayWindow: 60 * time.Second,
	}
}

// Sink receives batches on a ZeroMQ PULL socket, validates every list-view
// column, and delivers the results on Batches.
type Sink struct {
	config  SinkConfig
	logger  log.Logger
	metrics *SinkMetrics
	reader  *ipc.IPCWriter

	ctx    context.Context
	cancel context.CancelFunc

	pull    zmq4.Socket
	batches chan *Batch

	// Replay protection
	seen   map[string]time.Time
	seenMu sync.Mutex

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewSink creates a new Sink. metrics may be nil.
func NewSink(config SinkConfig, logger log.Logger, metrics *SinkMetrics) *Sink {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = &SinkMetrics{}
	}
	defaults := DefaultSinkConfig(config.Endpoint)
	if config.QueueSize < 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.ReplayWindow <= 0 {
		config.ReplayWindow = defaults.ReplayWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sink{
		config:  config,
		logger:  log.With(logger, "component", "sink", "endpoint", config.Endpoint),
		metrics: metrics,
		reader:  ipc.NewIPCWriter(),
		ctx:     ctx,
		cancel:  cancel,
		batches: make(chan *Batch, config.QueueSize),
		seen:    make(map[string]time.Time),
	}
}

// Start binds the PULL socket and begins receiving.
func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	pull := zmq4.NewPull(s.ctx)
	if err := pull.Listen(s.config.Endpoint); err != nil {
		_ = pull.Close()
		return errors.Wrapf(err, "failed to bind %s", s.config.Endpoint)
	}
	s.pull = pull
	s.running = true

	s.wg.Add(2)
	go s.receiverLoop()
	go s.replayCleaner()

	level.Info(s.logger).Log("msg", "sink listening")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Sink) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pull == nil {
		return nil
	}
	return s.pull.Addr()
}

// Batches returns the channel of received batches. It is closed by Stop.
func (s *Sink) Batches() <-chan *Batch {
	return s.batches
}

// Stop closes the socket, waits for the receiver to exit and closes
// Batches. A stopped Sink cannot be restarted.
func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if err := s.pull.Close(); err != nil {
		level.Debug(s.logger).Log("msg", "socket close", "err", err)
	}
	s.wg.Wait()
	close(s.batches)
}

func (s *Sink) receiverLoop() {
	defer s.wg.Done()

	for {
		msg, err := s.pull.Recv()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			level.Warn(s.logger).Log("msg", "receive failed", "err", err)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		batch, err := s.decode(msg.Frames)
		if err != nil {
			inc(s.metrics.Rejected)
			level.Warn(s.logger).Log("msg", "batch rejected", "err", err)
			continue
		}
		if batch == nil {
			inc(s.metrics.Replayed)
			continue
		}
		inc(s.metrics.Received)

		select {
		case s.batches <- batch:
		default:
			inc(s.metrics.Dropped)
			level.Warn(s.logger).Log("msg", "queue full, dropping batch", "from", batch.From, "seq", batch.Seq)
		}
	}
}

// decode validates one message. A nil batch with a nil error is a replay.
// Only batches that decode are remembered, so a rejected batch may be sent
// again under the same sequence number.
func (s *Sink) decode(frames [][]byte) (*Batch, error) {
	env, err := DecodeEnvelope(frames)
	if err != nil {
		return nil, err
	}
	if s.seenBefore(env) {
		return nil, nil
	}

	arrs, err := ipc.ReadListViews[int64](s.reader, env.Stream)
	if err != nil {
		return nil, errors.Wrapf(err, "batch %s/%d", env.From, env.Seq)
	}
	if !s.firstDelivery(env) {
		return nil, nil
	}
	return &Batch{From: env.From, Seq: env.Seq, Arrays: arrs}, nil
}

func (s *Sink) seenBefore(env *Envelope) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	_, seen := s.seen[env.key()]
	return seen
}

// firstDelivery records env and reports whether it was not seen before.
func (s *Sink) firstDelivery(env *Envelope) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	key := env.key()
	if _, seen := s.seen[key]; seen {
		return false
	}
	s.seen[key] = time.Now()
	return true
}

func (s *Sink) replayCleaner() {
	defer s.wg.Done()

	ticker := time.NewTicker(max(s.config.ReplayWindow/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanReplayCache(time.Now())
		}
	}
}

func (s *Sink) cleanReplayCache(now time.Time) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	cutoff := now.Add(-s.config.ReplayWindow)
	for key, ts := range s.seen {
		if ts.Before(cutoff) {
			delete(s.seen, key)
		}
	}
}
