// Package cache opens Redis connections for the pub/sub push transport.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// NewClient creates a Redis client without contacting the server. Connection
// errors surface on first use, which lets long-running callers retry.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: pingTimeout,
		// Pub/sub connections block in Receive; reads are bounded by the caller.
		ReadTimeout: -1,
	})
}

// New creates a Redis client and verifies it answers PING. The client is
// closed again when the ping fails.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := NewClient(addr)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", addr, err)
	}

	return client, nil
}
