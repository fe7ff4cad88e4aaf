// Package tcp serves the line protocol over plain TCP, one goroutine per client.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/protocol"
	"github.com/rocketscienceinc/boardgame-backend/internal/usecase"
)

type connector interface {
	Connect() *usecase.Connection
}

type Server struct {
	logger      *slog.Logger
	manager     connector
	readTimeout time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New - readTimeout closes clients that stay silent for that long, zero disables it.
func New(logger *slog.Logger, manager connector, readTimeout time.Duration) *Server {
	return &Server{
		logger:      logger.With("component", "tcp"),
		manager:     manager,
		readTimeout: readTimeout,
		conns:       make(map[net.Conn]struct{}),
	}
}

// Start - listens on the port and serves until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return that.Serve(ctx, listener)
}

// Serve - accepts clients from the listener until ctx is cancelled, then closes every
// open connection and waits for their handlers.
func (that *Server) Serve(ctx context.Context, listener net.Listener) error {
	log := that.logger.With("method", "Serve")

	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
		that.closeAll()
	})
	defer stop()

	log.Info("accepting connections", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			that.wg.Wait()

			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		that.track(ctx, conn)
		that.wg.Add(1)

		go func() {
			defer that.wg.Done()
			defer that.untrack(conn)

			that.handleConn(ctx, conn)
		}()
	}
}

func (that *Server) handleConn(ctx context.Context, conn net.Conn) {
	log := that.logger.With("method", "handleConn", "remote", conn.RemoteAddr().String())

	client := that.manager.Connect()
	processed := 0

	defer func() {
		if r := recover(); r != nil {
			log.Error("connection handler panicked", "panic", r)
		}

		client.Close(context.WithoutCancel(ctx))

		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Warn("failed to close connection", "error", err)
		}

		log.Info("client disconnected", "messages", processed)
	}()

	log.Info("client connected")

	reader := protocol.NewReader(conn)
	writer := protocol.NewWriter(conn)

	for {
		if that.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(that.readTimeout)); err != nil {
				log.Error("failed to set read deadline", "error", err)
				return
			}
		}

		cmd, err := reader.ReadCommand()
		if err != nil {
			if !errors.Is(err, apperror.ErrDecode) {
				that.logReadError(log, err)
				return
			}

			log.Warn("malformed message", "error", err)
			if writeErr := writer.Write(protocol.ErrorEvent(err)); writeErr != nil {
				log.Error("failed to write reply", "error", writeErr)
				return
			}

			if errors.Is(err, protocol.ErrLineTooLong) {
				return
			}
			continue
		}

		processed++

		if err = writer.Write(client.Handle(ctx, cmd)); err != nil {
			log.Error("failed to write reply", "error", err)
			return
		}
	}
}

func (that *Server) logReadError(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.Is(err, os.ErrDeadlineExceeded):
		log.Info("client idle for too long", "timeout", that.readTimeout)
	default:
		log.Error("failed to read message", "error", err)
	}
}

// track - a connection accepted while shutting down is closed right away.
func (that *Server) track(ctx context.Context, conn net.Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.conns[conn] = struct{}{}

	if ctx.Err() != nil {
		_ = conn.Close()
	}
}

func (that *Server) untrack(conn net.Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.conns, conn)
}

func (that *Server) closeAll() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for conn := range that.conns {
		_ = conn.Close()
	}
}
