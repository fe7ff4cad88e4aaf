// Package websocket serves the same commands as the TCP server, one command per text frame.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/boardgame-backend/internal/protocol"
	"github.com/rocketscienceinc/boardgame-backend/internal/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 16

	shutdownTimeout = 5 * time.Second
)

type connector interface {
	Connect() *usecase.Connection
}

type Server struct {
	logger   *slog.Logger
	manager  connector
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, manager connector) *Server {
	return &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.ServeWS)

	return mux
}

// Start - starts WebSocket server and shuts it down when ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	})
	defer stop()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// ServeWS - upgrades the request and serves commands until the peer goes away.
func (that *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeWS", "remote", r.RemoteAddr)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	log.Info("WebSocket connection established")

	// hijacked connections outlive http.Server.Shutdown
	stop := context.AfterFunc(r.Context(), func() { _ = conn.Close() })
	defer stop()

	c := &client{
		logger: log,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		handle: that.manager.Connect(),
	}

	go c.writePump()
	c.readPump(r.Context())
}

type client struct {
	logger *slog.Logger
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	handle *usecase.Connection
}

// readPump - runs on the request goroutine, one reply per received frame.
func (that *client) readPump(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			that.logger.Error("websocket handler panicked", "panic", r)
		}

		that.handle.Close(context.WithoutCancel(ctx))
		close(that.send)
	}()

	that.conn.SetReadLimit(protocol.MaxLineSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Error("websocket read failed", "error", err)
			}
			return
		}

		var event protocol.Event
		if cmd, decodeErr := protocol.DecodeCommand(message); decodeErr != nil {
			that.logger.Warn("malformed message", "error", decodeErr)
			event = protocol.ErrorEvent(decodeErr)
		} else {
			event = that.handle.Handle(ctx, cmd)
		}

		data, err := protocol.Encode(event)
		if err != nil {
			that.logger.Error("failed to encode reply", "error", err)
			return
		}

		select {
		case that.send <- data:
		case <-that.done:
			return
		}
	}
}

// writePump - the only writer of the connection; also keeps it alive with pings.
func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(that.done)
		_ = that.conn.Close()
	}()

	for {
		select {
		case message, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				that.logger.Error("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
