package push

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	closeGrace       = time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 << 10
)

// WebSocketSource dials the backend push endpoint.
type WebSocketSource struct {
	url    string
	header http.Header
	dialer websocket.Dialer
}

// NewWebSocketSource builds a source for an absolute ws:// or wss:// URL.
func NewWebSocketSource(rawURL string, header http.Header) *WebSocketSource {
	return &WebSocketSource{
		url:    rawURL,
		header: header,
		dialer: websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  handshakeTimeout,
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			EnableCompression: true,
		},
	}
}

// URL returns the endpoint the source dials.
func (s *WebSocketSource) URL() string {
	return s.url
}

// Connect opens a websocket. The returned stream is torn down when ctx ends.
func (s *WebSocketSource) Connect(ctx context.Context) (Stream, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("push: dial %s: status %s: %w", s.url, resp.Status, err)
		}
		return nil, fmt.Errorf("push: dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ws := &wsStream{conn: conn, stopPing: make(chan struct{})}
	ws.stopCtx = context.AfterFunc(ctx, func() { _ = ws.shutdown() })
	go ws.keepalive()
	return ws, nil
}

type wsStream struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	stopCtx  func() bool
	stopPing chan struct{}
	once     sync.Once
	closeErr error
	closed   bool
	mu       sync.Mutex
}

func (s *wsStream) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				return nil, ErrClosed
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("push: read: %w", err)
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (s *wsStream) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopPing:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeGrace))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close sends a normal-closure frame and releases the socket. Later calls are no-ops.
func (s *wsStream) Close() error {
	s.stopCtx()
	return s.shutdown()
}

func (s *wsStream) shutdown() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopPing)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
