package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/angeloszaimis/balancerd/internal/admission"
	"github.com/angeloszaimis/balancerd/internal/metrics"
	"github.com/angeloszaimis/balancerd/internal/upstream"
)

// Server owns the listening socket and dispatches one goroutine per
// accepted connection. It holds no per-connection state: sessions share the
// pool and limiter and nothing else.
type Server struct {
	bind      string
	logger    *slog.Logger
	pool      *upstream.Pool
	limiter   *admission.Limiter
	collector *metrics.Collector

	mutex    sync.Mutex
	listener net.Listener
}

// New validates the bind address and creates a server. The listener is not
// opened until Start.
func New(bind string, pool *upstream.Pool, limiter *admission.Limiter, collector *metrics.Collector, logger *slog.Logger) (*Server, error) {
	if err := validateHost(bind); err != nil {
		return nil, err
	}

	return &Server{
		bind:      bind,
		logger:    logger,
		pool:      pool,
		limiter:   limiter,
		collector: collector,
	}, nil
}

// Start binds the listening socket and accepts until Shutdown closes it.
// A bind failure is returned immediately; the caller treats it as fatal.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.listener = listener
	s.mutex.Unlock()

	s.logger.Info("Listening for requests", slog.String("bind", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Failed to accept connection", slog.Any("err", err))
			continue
		}

		go s.handleConnection(conn)
	}
}

// Shutdown closes the listener; in-flight sessions drain on their own.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Addr returns the bound address, useful when binding to port 0.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
