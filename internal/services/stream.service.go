package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"twinconsole/internal/logger"
	"twinconsole/internal/observability"

	"github.com/gorilla/websocket"
)

// FrameSink consumes raw stream frames in arrival order.
type FrameSink interface {
	IngestRaw(data []byte) error
}

// StreamOptions configures the backend subscription.
type StreamOptions struct {
	URL          string
	Reconnect    bool
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	DialTimeout  time.Duration
	Metrics      *observability.Metrics
}

// StreamClient owns the single WebSocket subscription to the backend and
// feeds every frame to its sink from one goroutine.
type StreamClient struct {
	opts   StreamOptions
	sink   FrameSink
	dialer *websocket.Dialer

	connected atomic.Bool
	dials     atomic.Int64
}

// NewStreamClient creates a client; call Run to start it.
func NewStreamClient(opts StreamOptions, sink FrameSink) *StreamClient {
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = time.Second
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = opts.ReconnectMin
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &StreamClient{
		opts: opts,
		sink: sink,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.DialTimeout,
		},
	}
}

// Connected reports whether a subscription is currently open.
func (s *StreamClient) Connected() bool {
	return s.connected.Load()
}

// Dials returns how many connection attempts have been made.
func (s *StreamClient) Dials() int64 {
	return s.dials.Load()
}

// Run keeps the subscription alive until ctx is cancelled. With reconnect
// disabled it returns after the first session ends. Backoff doubles from
// ReconnectMin up to ReconnectMax and resets after a successful dial.
func (s *StreamClient) Run(ctx context.Context) error {
	backoff := s.opts.ReconnectMin
	for {
		dialed, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !s.opts.Reconnect {
			return err
		}
		if dialed {
			backoff = s.opts.ReconnectMin
		}

		logger.Warnf("[STREAM] %v; reconnecting in %s", err, backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		s.opts.Metrics.IncCounter(observability.StreamReconnects, 1)
		backoff *= 2
		if backoff > s.opts.ReconnectMax {
			backoff = s.opts.ReconnectMax
		}
	}
}

// session dials once and reads until the connection fails.
func (s *StreamClient) session(ctx context.Context) (dialed bool, err error) {
	s.dials.Add(1)

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.DialTimeout)
	conn, _, err := s.dialer.DialContext(dialCtx, s.opts.URL, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.opts.URL, err)
	}

	s.setConnected(true)
	logger.Infof("[STREAM] Connected to %s", s.opts.URL)
	defer s.setConnected(false)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, errors.New("stream closed by backend")
			}
			return true, fmt.Errorf("read stream: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if err := s.sink.IngestRaw(data); err != nil {
			logger.Warnf("[STREAM] Skipping message: %v", err)
		}
	}
}

func (s *StreamClient) setConnected(v bool) {
	s.connected.Store(v)
	g := 0.0
	if v {
		g = 1
	}
	s.opts.Metrics.SetGauge(observability.StreamConnected, g)
}
