package api

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// ErrServerRunning is returned by Start when the server is already
// listening.
var ErrServerRunning = errors.New("server is already running")

// ArrowServer is a TCP server answering framed list-view requests.
type ArrowServer struct {
	config  *ServerConfig
	handler *ArrowHandler
	logger  log.Logger
	metrics *Metrics

	mu       sync.Mutex
	listener net.Listener
	running  bool
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewArrowServer creates a new ArrowServer. A nil metrics disables
// instrumentation.
func NewArrowServer(config *ServerConfig, logger log.Logger, metrics *Metrics) *ArrowServer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ArrowServer{
		config:  config,
		handler: NewArrowHandler(config.CompareChunks, logger, metrics),
		logger:  logger,
		metrics: metrics,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start starts the server on the configured address.
// This method blocks until the server is stopped or fails.
func (s *ArrowServer) Start() error {
	ctx, lis, err := s.listen()
	if err != nil {
		return err
	}
	defer s.Stop()
	return s.serve(ctx, lis)
}

// StartAsync starts the server in a background goroutine.
func (s *ArrowServer) StartAsync() error {
	ctx, lis, err := s.listen()
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.serve(ctx, lis); err != nil {
			level.Error(s.logger).Log("msg", "accept loop failed", "err", err)
		}
	}()
	return nil
}

func (s *ArrowServer) listen() (context.Context, net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, nil, ErrServerRunning
	}

	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to listen on %s", s.config.Address)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.listener = lis
	s.cancel = cancel
	s.running = true

	level.Info(s.logger).Log("msg", "server listening", "addr", lis.Addr())
	return ctx, lis, nil
}

func (s *ArrowServer) serve(ctx context.Context, lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				level.Warn(s.logger).Log("msg", "accept timeout", "err", err)
				continue
			}
			return errors.Wrap(err, "accept failed")
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConnection(ctx, conn)
		}()
	}
}

// Addr returns the listening address, or nil when the server is stopped.
func (s *ArrowServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (s *ArrowServer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	if err := s.listener.Close(); err != nil {
		level.Debug(s.logger).Log("msg", "listener close", "err", err)
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.listener = nil
	s.mu.Unlock()

	s.wg.Wait()
	level.Info(s.logger).Log("msg", "server stopped")
}

func (s *ArrowServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.metrics.ConnectionOpened()
	return true
}

func (s *ArrowServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.metrics.ConnectionClosed()
	_ = conn.Close()
}

// handleConnection serves requests on conn until the client hangs up. A
// request that fails gets an "ERR" reply and the connection stays open;
// framing errors close it.
func (s *ArrowServer) handleConnection(ctx context.Context, conn net.Conn) {
	logger := log.With(s.logger, "remote", conn.RemoteAddr())
	level.Debug(logger).Log("msg", "connection opened")

	for {
		if s.config.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		payload, err := ReadMessageLimit(conn, s.config.MaxMessageSize)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil:
				level.Debug(logger).Log("msg", "connection closed")
			case errors.Is(err, ErrMessageTooLarge):
				level.Warn(logger).Log("msg", "rejecting oversized frame", "err", err)
				_ = WriteMessage(conn, errorReply(err))
			default:
				level.Warn(logger).Log("msg", "read failed", "err", err)
			}
			return
		}

		reply, err := s.handler.ProcessRequest(ctx, payload)
		if err != nil {
			level.Warn(logger).Log("msg", "request failed", "err", err)
			reply = errorReply(err)
		}

		if err := WriteMessage(conn, reply); err != nil {
			level.Warn(logger).Log("msg", "write failed", "err", err)
			return
		}
	}
}
