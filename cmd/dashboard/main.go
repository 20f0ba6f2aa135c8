package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/salespulse/internal/app"
	"github.com/odyssey-erp/salespulse/internal/dashboard"
	dashboardhttp "github.com/odyssey-erp/salespulse/internal/dashboard/http"
	"github.com/odyssey-erp/salespulse/internal/dashboard/ui"
	"github.com/odyssey-erp/salespulse/internal/observability"
	"github.com/odyssey-erp/salespulse/internal/platform/cache"
	"github.com/odyssey-erp/salespulse/internal/push"
	"github.com/odyssey-erp/salespulse/internal/salesapi"
	"github.com/odyssey-erp/salespulse/internal/view"
)

func main() {
	if err := run(); err != nil {
		slog.Default().Error("dashboard exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg)

	client, err := salesapi.NewClient(cfg.APIBaseURL, cfg.APIPathPrefix, &http.Client{Timeout: cfg.FetchTimeout + time.Second})
	if err != nil {
		return fmt.Errorf("sales api client: %w", err)
	}

	source, closeSource, err := newPushSource(cfg)
	if err != nil {
		return fmt.Errorf("push source: %w", err)
	}
	defer closeSource()

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()
	dash := dashboard.New(client, source, cfg.DashboardOptions(), logger, metrics)

	dashCtx, cancelDash := context.WithCancel(ctx)
	defer cancelDash()
	dashDone := make(chan error, 1)
	go func() {
		dashDone <- dash.Run(dashCtx)
	}()

	builder := ui.NewBuilder(ui.SVGCharts{}, cfg.DisplayLocale, cfg.CurrencySymbol).WithLocation(cfg.Location())
	dashboardHandler := dashboardhttp.NewHandler(logger, dash.Store(), builder, templates)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api", client.BaseURL()),
			slog.String("push_source", cfg.PushSource),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	dashboardHandler.Close()

	select {
	case err := <-dashDone:
		if err != nil {
			return fmt.Errorf("dashboard stopped: %w", err)
		}
	case <-shutdownCtx.Done():
		return errors.New("dashboard did not stop in time")
	}
	return nil
}

// newPushSource builds the configured transport. Neither transport contacts the
// server here; the listener connects and retries with backoff.
func newPushSource(cfg *app.Config) (push.Source, func(), error) {
	switch cfg.PushSource {
	case app.PushSourceRedis:
		rdb := cache.NewClient(cfg.PushRedisAddr)
		return push.NewRedisSource(rdb, cfg.PushRedisChannel), func() { _ = rdb.Close() }, nil
	default:
		wsURL, err := push.ResolveURL(cfg.APIBaseURL, cfg.PushURL)
		if err != nil {
			return nil, nil, err
		}
		return push.NewWebSocketSource(wsURL, nil), func() {}, nil
	}
}
