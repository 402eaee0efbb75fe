package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ImBIOS/may-minihttp/http"
	"github.com/ImBIOS/may-minihttp/transport"
	"github.com/ImBIOS/may-minihttp/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Server accepts connections off a listener and runs a connection loop
// per connection. The handler and both loops are described in Options.
type Server struct {
	l transport.ConnListener

	closeListener func()
	wg            sync.WaitGroup

	logger *slog.Logger
	opts   Options

	handle HandleFunc
	enc    *http.ResponseEncoder
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Server {
	return &Server{
		l:      l,
		logger: logger,
		opts:   opts,
		handle: handle,
		// The encoder is shared so all connections reuse one date cache.
		enc: http.NewResponseEncoder(clock, opts.Encode),
	}
}

// ListenAndServe binds a TCP listener on address and starts a server on
// it. Binding failure is reported immediately; nothing is retried.
func ListenAndServe(address string, logger *slog.Logger, clock clock.Clock, handle HandleFunc, opts Options) (*Server, error) {
	lis, err := tcp.Listen(address)
	if err != nil {
		return nil, errors.Wrap(err, "starting listener")
	}

	s := New(lis, logger, clock, handle, opts)
	s.Start()
	return s, nil
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.closeListener = cancel
	go func() {
		for {
			conn, err := s.acceptConn(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) ||
					errors.Is(err, transport.ErrConnListenerClosed) {
					return
				}

				// A single failed accept never stops the listener.
				s.logger.Error(
					"unexpected error when accepting connection",
					"error", err.Error(),
				)
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				conn.start()
			}()
		}
	}()
}

func (s *Server) acceptConn(ctx context.Context) (*conn, error) {
	con, err := s.l.Accept(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listening for connection")
	}

	conn := &conn{
		con:    con,
		handle: s.handle,
		dec:    http.NewRequestDecoder(s.opts.Decode),
		enc:    s.enc,
		logger: s.logger.With("conn", con.RemoteAddr()),
		opts:   s.opts,
	}

	return conn, nil
}

// Close stops accepting new connections and waits for the running
// connection loops to finish. Open connections are not torn down.
func (s *Server) Close() error {
	s.closeListener()
	s.wg.Wait()
	return nil
}
