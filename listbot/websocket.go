package listbot

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lmittmann/tint"
)

// NotificationSocket owns the single long-lived websocket connection to
// the upstream events endpoint. It reconnects after a fixed delay, for
// as long as the bot runs: the event source may come and go, the bot is
// expected to outlast it.
//
// Frames are handed to the dispatch callback one at a time, in arrival
// order, waiting for each handler to finish before reading the next.
// A burst of frames is processed strictly sequentially, which trades
// throughput for never interleaving mutations to the same points row.
type NotificationSocket struct {
	url            string
	token          string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	dispatch       func(ctx context.Context, raw []byte)
	logger         *slog.Logger

	connected  atomic.Bool
	reconnects atomic.Int64
}

func newNotificationSocket(
	config *AredlConfig,
	handler slog.Handler,
	dispatch func(ctx context.Context, raw []byte),
) *NotificationSocket {
	delay := config.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &NotificationSocket{
		url:            config.WebsocketURL,
		token:          config.Token,
		reconnectDelay: delay,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
		dispatch: dispatch,
		logger:   slog.New(handler).With(loggerNameKey, "websocket"),
	}
}

// Connected reports whether the socket currently has an open connection.
func (s *NotificationSocket) Connected() bool {
	return s.connected.Load()
}

// Reconnects returns the number of reconnect attempts made so far.
func (s *NotificationSocket) Reconnects() int64 {
	return s.reconnects.Load()
}

// Run connects and reads frames until ctx is canceled. Every connection
// loss, including an initial dial failure, schedules exactly one new
// attempt after the fixed reconnect delay - no backoff growth, no retry
// cap.
func (s *NotificationSocket) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := s.connect(ctx)
		if err != nil {
			s.logger.ErrorContext(
				ctx,
				"websocket connection failed",
				tint.Err(err),
				"reconnect_delay", s.reconnectDelay,
			)
		} else {
			s.readLoop(ctx, conn)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
			s.reconnects.Add(1)
		}
	}
}

func (s *NotificationSocket) connect(ctx context.Context) (
	*websocket.Conn,
	error,
) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	//nolint:bodyclose // gorilla hands ownership of the body to the conn
	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "connected to notifications websocket", "url", s.url)
	return conn, nil
}

// readLoop reads and dispatches frames until the connection drops.
// Read errors are how gorilla surfaces a closed connection; they end
// the loop and the caller schedules the reconnect.
func (s *NotificationSocket) readLoop(ctx context.Context, conn *websocket.Conn) {
	s.connected.Store(true)
	defer s.connected.Store(false)
	defer func() {
		_ = conn.Close()
	}()

	// unblock the read when the bot shuts down
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WarnContext(
				ctx,
				"websocket closed, reconnecting",
				tint.Err(err),
				"reconnect_delay", s.reconnectDelay,
			)
			return
		}
		s.dispatch(ctx, raw)
	}
}
