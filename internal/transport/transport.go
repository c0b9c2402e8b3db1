// Package transport accepts WebSocket subscribers and hands each one to a
// delivery loop.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leandrodaf/pianosync/internal/delivery"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"go.uber.org/multierr"
)

const DefaultWriteTimeout = time.Second

// Config tunes an Endpoint.
type Config struct {
	Logger       contracts.Logger
	Delivery     delivery.Config
	WriteTimeout time.Duration
}

// Endpoint streams one shared cell to every connection accepted on its address.
type Endpoint struct {
	name     string
	addr     string
	source   delivery.Source
	logger   contracts.Logger
	delivery delivery.Config
	timeout  time.Duration
	upgrader websocket.Upgrader

	active atomic.Int64
	loops  sync.WaitGroup
}

// NewEndpoint creates an endpoint named after the view it serves.
func NewEndpoint(name, addr string, source delivery.Source, cfg Config) *Endpoint {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Delivery.Logger == nil {
		cfg.Delivery.Logger = cfg.Logger
	}
	return &Endpoint{
		name:     name,
		addr:     addr,
		source:   source,
		logger:   cfg.Logger,
		delivery: cfg.Delivery,
		timeout:  cfg.WriteTimeout,
		upgrader: websocket.Upgrader{
			// Subscribers are browser pages served from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Active reports the number of connected subscribers.
func (e *Endpoint) Active() int {
	return int(e.active.Load())
}

// ListenAndServe accepts connections until ctx is cancelled.
func (e *Endpoint) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then waits for
// every delivery loop to finish.
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	e.logger.Info("Listening",
		e.logger.Field().String("view", e.name),
		e.logger.Field().String("addr", ln.Addr().String()))

	srv := &http.Server{
		Handler:     e,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn("Endpoint shutdown", e.logger.Field().Error("error", err))
		}
	}()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
		<-stopped
	}
	e.loops.Wait()
	return err
}

// ServeHTTP upgrades the request and streams frames until the subscriber
// is evicted or the request context ends.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("WebSocket upgrade failed",
			e.logger.Field().String("peer", r.RemoteAddr),
			e.logger.Field().Error("error", err))
		return
	}

	e.loops.Add(1)
	defer e.loops.Done()
	e.active.Add(1)
	defer e.active.Add(-1)

	loop := delivery.New(e.source, &wsSender{conn: conn, timeout: e.timeout}, r.RemoteAddr, e.delivery)
	session := loop.Session()
	e.logger.Info("New WebSocket connection",
		e.logger.Field().String("view", e.name),
		e.logger.Field().String("peer", r.RemoteAddr),
		e.logger.Field().String("session", session.ID.String()))

	if err := loop.Run(r.Context()); err != nil && !errors.Is(err, delivery.ErrEvicted) {
		e.logger.Warn("Delivery loop failed", e.logger.Field().Error("error", err))
	}
	e.logger.Info("Subscriber disconnected",
		e.logger.Field().String("view", e.name),
		e.logger.Field().String("peer", r.RemoteAddr),
		e.logger.Field().String("session", session.ID.String()),
		e.logger.Field().Int("frames", session.Sent()))
}

// wsSender writes text frames with a per-frame deadline. It never reads.
type wsSender struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSender) Send(frame string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (s *wsSender) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return multierr.Append(
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.timeout)),
		s.conn.Close(),
	)
}
