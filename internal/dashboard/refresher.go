package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRefreshInterval matches the fast-polling dashboard variant.
	DefaultRefreshInterval = 10 * time.Second
	// DefaultFetchTimeout bounds each of the four snapshot reads.
	DefaultFetchTimeout = 5 * time.Second
)

// Fetcher reads the four aggregates that make up a snapshot.
type Fetcher interface {
	HourlySales(ctx context.Context) ([]HourlyPoint, error)
	ProfitDistribution(ctx context.Context) ([]ProfitBand, error)
	TimeOfDaySales(ctx context.Context) ([]TimeOfDaySlice, error)
	KPI(ctx context.Context) (KPISummary, error)
}

// RefresherConfig tunes the snapshot schedule.
type RefresherConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Refresher periodically replaces the store's view with a fresh snapshot.
type Refresher struct {
	fetcher  Fetcher
	store    *Store
	logger   *slog.Logger
	metrics  Recorder
	interval time.Duration
	timeout  time.Duration
	trigger  chan struct{}
	now      func() time.Time
	tick     func(time.Duration) (<-chan time.Time, func())
}

// NewRefresher wires a Fetcher to the store.
func NewRefresher(fetcher Fetcher, store *Store, cfg RefresherConfig, logger *slog.Logger, metrics Recorder) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
		metrics:  recorderOrNop(metrics),
		interval: cfg.Interval,
		timeout:  cfg.FetchTimeout,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
		tick:     newTicker,
	}
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Interval reports the configured refresh period.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Trigger requests an out-of-schedule refresh. Requests made while one is pending coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once immediately and then on every tick or trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	ticks, stop := r.tick(r.interval)
	defer stop()

	_ = r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		case <-r.trigger:
		}
		if ctx.Err() != nil {
			return nil
		}
		_ = r.Refresh(ctx)
	}
}

// Refresh performs a single snapshot cycle. Either all four reads succeed and the view
// is replaced in one action, or the view is left exactly as it was.
func (r *Refresher) Refresh(ctx context.Context) error {
	id := uuid.New()
	start := r.now()

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	fetchInto(g, gctx, r.timeout, "hourly sales", r.fetcher.HourlySales, &snap.Hourly)
	fetchInto(g, gctx, r.timeout, "profit distribution", r.fetcher.ProfitDistribution, &snap.Distribution)
	fetchInto(g, gctx, r.timeout, "time of day sales", r.fetcher.TimeOfDaySales, &snap.TimeOfDay)
	fetchInto(g, gctx, r.timeout, "kpi", r.fetcher.KPI, &snap.KPIs)

	if err := g.Wait(); err != nil {
		r.metrics.RefreshCompleted(r.now().Sub(start), err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("dashboard refresh failed",
			slog.String("refresh_id", id.String()),
			slog.Any("error", err))
		if _, derr := r.store.Dispatch(ctx, RefreshFailed{At: r.now(), Err: err.Error()}); derr != nil {
			r.logger.Debug("record refresh failure", slog.Any("error", derr))
		}
		return err
	}

	snap.FetchedAt = r.now()
	if _, err := r.store.Dispatch(ctx, ReplaceSnapshot{Snapshot: snap}); err != nil {
		return fmt.Errorf("dashboard: apply snapshot: %w", err)
	}
	r.metrics.RefreshCompleted(r.now().Sub(start), nil)
	r.logger.Debug("dashboard refreshed",
		slog.String("refresh_id", id.String()),
		slog.Int64("orders", snap.KPIs.Orders))
	return nil
}

func fetchInto[T any](g *errgroup.Group, ctx context.Context, timeout time.Duration, name string, fetch func(context.Context) (T, error), dst *T) {
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		value, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = value
		return nil
	})
}
