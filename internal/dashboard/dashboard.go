// Package dashboard reconciles periodic snapshots of the sales API with live sale
// events into a single, bounded view state.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/salespulse/internal/push"
)

// RecentSale is a historical transaction used to seed the live feed.
type RecentSale struct {
	ID      int64  `json:"id"`
	Message string `json:"message" validate:"required"`
	Time    string `json:"time"`
}

// RecentSalesFetcher is implemented by fetchers that can list the latest sales.
type RecentSalesFetcher interface {
	RecentSales(ctx context.Context) ([]RecentSale, error)
}

// Options configures a Dashboard.
type Options struct {
	Policy    Policy
	Refresher RefresherConfig
	Listener  ListenerConfig
	// Backfill seeds the feed from recent sales on start when the fetcher supports it.
	Backfill bool
}

// Dashboard owns the store, the refresher and the listener for one session.
type Dashboard struct {
	store     *Store
	refresher *Refresher
	listener  *Listener
	fetcher   Fetcher
	backfill  bool
	logger    *slog.Logger
}

// New assembles a dashboard. Nothing runs until Run is called.
func New(fetcher Fetcher, source push.Source, opts Options, logger *slog.Logger, metrics Recorder) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	store := NewStore(opts.Policy)
	refresher := NewRefresher(fetcher, store, opts.Refresher, logger.With(slog.String("component", "refresher")), metrics)
	listener := NewListener(source, store, opts.Listener, refresher.Trigger, logger.With(slog.String("component", "listener")), metrics)
	return &Dashboard{
		store:     store,
		refresher: refresher,
		listener:  listener,
		fetcher:   fetcher,
		backfill:  opts.Backfill,
		logger:    logger,
	}
}

// Store exposes the state container for read-only consumers.
func (d *Dashboard) Store() *Store {
	return d.store
}

// Refresher exposes the snapshot refresher.
func (d *Dashboard) Refresher() *Refresher {
	return d.refresher
}

// Listener exposes the live event listener.
func (d *Dashboard) Listener() *Listener {
	return d.listener
}

// Run mounts the dashboard and blocks until ctx is cancelled and every part has
// released its timer and connection.
func (d *Dashboard) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.store.Run(gctx) })
	g.Go(func() error { return d.refresher.Run(gctx) })
	g.Go(func() error { return d.listener.Run(gctx) })
	if d.backfill {
		if rf, ok := d.fetcher.(RecentSalesFetcher); ok {
			g.Go(func() error {
				d.seedFeed(gctx, rf)
				return nil
			})
		}
	}
	return g.Wait()
}

func (d *Dashboard) seedFeed(ctx context.Context, rf RecentSalesFetcher) {
	ctx, cancel := context.WithTimeout(ctx, d.refresher.timeout)
	defer cancel()
	sales, err := rf.RecentSales(ctx)
	if err != nil {
		d.logger.Warn("feed backfill failed", slog.Any("error", err))
		return
	}
	now := time.Now()
	entries := make([]FeedEntry, 0, len(sales))
	for _, s := range sales {
		entries = append(entries, FeedEntry{ID: uuid.New(), Message: formatRecent(s), ReceivedAt: now})
	}
	if _, err := d.store.Dispatch(ctx, SeedFeed{Entries: entries}); err != nil {
		d.logger.Debug("feed backfill dispatch", slog.Any("error", err))
	}
}

func formatRecent(s RecentSale) string {
	if t := strings.TrimSpace(s.Time); t != "" {
		return fmt.Sprintf("[%s] %s", t, s.Message)
	}
	return s.Message
}
