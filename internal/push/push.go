// Package push provides the server-to-client transports that deliver live sale events.
package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnknownSource is returned when a configured transport name is not supported.
var ErrUnknownSource = errors.New("push: unknown source")

// ErrClosed is returned by Stream.Next after the stream was closed.
var ErrClosed = errors.New("push: stream closed")

// Source opens push streams.
type Source interface {
	Connect(ctx context.Context) (Stream, error)
}

// Stream is one live connection. Close must be safe to call more than once.
type Stream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// DefaultPath is the push endpoint path on the backend origin.
const DefaultPath = "/ws"

// ResolveURL returns the websocket endpoint. A non-empty override wins and must be
// absolute; otherwise the URL is derived from the API origin.
func ResolveURL(apiBase, override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		u, err := url.Parse(strings.TrimSpace(override))
		if err != nil {
			return "", fmt.Errorf("push: parse override: %w", err)
		}
		if !u.IsAbs() || u.Host == "" {
			return "", fmt.Errorf("push: override %q must be an absolute URL", override)
		}
		if err := toWebSocketScheme(u); err != nil {
			return "", err
		}
		return u.String(), nil
	}

	u, err := url.Parse(strings.TrimSpace(apiBase))
	if err != nil {
		return "", fmt.Errorf("push: parse api base: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("push: api base %q has no host", apiBase)
	}
	if err := toWebSocketScheme(u); err != nil {
		return "", err
	}
	u.Path = DefaultPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func toWebSocketScheme(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		u.Scheme = strings.ToLower(u.Scheme)
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("push: unsupported scheme %q", u.Scheme)
	}
	return nil
}
