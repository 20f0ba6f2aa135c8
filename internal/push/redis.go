package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel sale events are published on.
const DefaultRedisChannel = "sales.events"

const (
	subscribeTimeout = 5 * time.Second
	// healthCheckInterval is how long a quiet subscription waits before pinging.
	// A ping left unanswered for another interval marks the stream as dropped.
	healthCheckInterval = 30 * time.Second
)

// RedisSource subscribes to a Redis pub/sub channel carrying the same JSON payloads
// the websocket hub broadcasts.
type RedisSource struct {
	client      *redis.Client
	channel     string
	healthCheck time.Duration
}

// NewRedisSource builds a pub/sub source. An empty channel uses DefaultRedisChannel.
func NewRedisSource(client *redis.Client, channel string) *RedisSource {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSource{client: client, channel: channel, healthCheck: healthCheckInterval}
}

// Channel returns the subscribed channel name.
func (s *RedisSource) Channel() string {
	return s.channel
}

// Connect subscribes and waits for the subscription to be confirmed. The stream
// is torn down when ctx ends.
func (s *RedisSource) Connect(ctx context.Context) (Stream, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("push: redis client not configured")
	}
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.ReceiveTimeout(ctx, subscribeTimeout); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("push: subscribe %s: %w", s.channel, err)
	}
	rs := &redisStream{pubsub: pubsub, healthCheck: s.healthCheck}
	rs.stopCtx = context.AfterFunc(ctx, func() { _ = rs.shutdown() })
	return rs, nil
}

type redisStream struct {
	pubsub      *redis.PubSub
	healthCheck time.Duration
	stopCtx     func() bool
	pinged      bool

	mu       sync.Mutex
	closed   bool
	once     sync.Once
	closeErr error
}

// Next returns the next published payload. Connection loss surfaces as an
// error instead of being retried underneath, so the caller can mark the link
// down and resynchronise once it reconnects.
func (s *redisStream) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := s.pubsub.ReceiveTimeout(ctx, s.healthCheck)
		if err != nil {
			if s.isClosed() {
				return nil, ErrClosed
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if s.pinged {
					return nil, fmt.Errorf("push: redis ping unanswered: %w", err)
				}
				if perr := s.pubsub.Ping(ctx); perr != nil {
					return nil, fmt.Errorf("push: redis ping: %w", perr)
				}
				s.pinged = true
				continue
			}
			return nil, fmt.Errorf("push: redis receive: %w", err)
		}
		s.pinged = false
		if m, ok := msg.(*redis.Message); ok {
			return []byte(m.Payload), nil
		}
	}
}

func (s *redisStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unsubscribes and releases the connection. Later calls are no-ops.
func (s *redisStream) Close() error {
	s.stopCtx()
	return s.shutdown()
}

func (s *redisStream) shutdown() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}
