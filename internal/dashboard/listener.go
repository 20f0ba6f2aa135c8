package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/salespulse/internal/push"
)

const (
	// DefaultBackoffInitial is the first reconnect delay after a dropped push stream.
	DefaultBackoffInitial = time.Second
	// DefaultBackoffMax caps the reconnect delay.
	DefaultBackoffMax = 30 * time.Second

	linkUpdateTimeout = time.Second
)

// ListenerConfig tunes reconnect behaviour.
type ListenerConfig struct {
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// ResyncOnReconnect asks for a snapshot as soon as a dropped stream comes back.
	ResyncOnReconnect bool
}

// Listener keeps one push stream open and folds each message into the store.
type Listener struct {
	source      push.Source
	store       *Store
	logger      *slog.Logger
	metrics     Recorder
	cfg         ListenerConfig
	onReconnect func()
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewListener wires a push source to the store. onReconnect may be nil.
func NewListener(source push.Source, store *Store, cfg ListenerConfig, onReconnect func(), logger *slog.Logger, metrics Recorder) *Listener {
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = max(DefaultBackoffMax, cfg.BackoffInitial)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		source:      source,
		store:       store,
		logger:      logger,
		metrics:     recorderOrNop(metrics),
		cfg:         cfg,
		onReconnect: onReconnect,
		now:         time.Now,
		newID:       uuid.New,
	}
}

func (l *Listener) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.BackoffInitial
	bo.MaxInterval = l.cfg.BackoffMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.Reset()
	return bo
}

// Run connects, consumes and reconnects until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	bo := l.newBackOff()
	connectedBefore := false
	defer l.setLink(ctx, LinkClosed, false)

	for {
		l.setLink(ctx, LinkConnecting, false)
		stream, err := l.source.Connect(ctx)
		if ctx.Err() != nil {
			if stream != nil {
				_ = stream.Close()
			}
			return nil
		}
		if err != nil {
			l.logger.Warn("push connect failed", slog.Any("error", err))
		} else {
			reconnect := connectedBefore
			connectedBefore = true
			bo.Reset()
			l.setLink(ctx, LinkOpen, reconnect)
			if reconnect {
				l.metrics.Reconnected()
				if l.cfg.ResyncOnReconnect && l.onReconnect != nil {
					l.onReconnect()
				}
			}
			err = l.consume(ctx, stream)
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Warn("push stream dropped", slog.Any("error", err))
		}

		l.setLink(ctx, LinkClosed, false)
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return errors.New("dashboard: push reconnect attempts exhausted")
		}
		l.logger.Info("push reconnect scheduled", slog.Duration("wait", wait))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (l *Listener) consume(ctx context.Context, stream push.Stream) error {
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			l.logger.Debug("push stream close", slog.Any("error", cerr))
		}
	}()
	for {
		raw, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if err := l.Handle(ctx, raw); err != nil {
			return err
		}
	}
}

// Handle is the single dispatch point for inbound push payloads. Malformed and
// unknown messages are dropped; only store failures are returned.
func (l *Listener) Handle(ctx context.Context, raw []byte) error {
	ev, err := DecodeEvent(raw)
	if err != nil {
		l.metrics.PushMessage("malformed")
		l.logger.Warn("discarding push message", slog.Any("error", err))
		return nil
	}

	switch ev.Kind {
	case EventSale:
		l.metrics.PushMessage(ev.Kind.String())
		_, err := l.store.Dispatch(ctx, ApplySale{ID: l.newID(), At: l.now(), Sale: ev.Sale})
		if err != nil {
			return fmt.Errorf("dashboard: apply sale: %w", err)
		}
	default:
		l.metrics.PushMessage("ignored")
		l.logger.Debug("ignoring push message", slog.String("type", ev.Type))
	}
	return nil
}

func (l *Listener) setLink(ctx context.Context, status LinkStatus, reconnect bool) {
	l.metrics.LinkChanged(status.String())
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), linkUpdateTimeout)
		defer cancel()
	}
	if _, err := l.store.Dispatch(ctx, SetLink{Status: status, Reconnect: reconnect}); err != nil {
		l.logger.Debug("update link status", slog.Any("error", err))
	}
}
