package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
	"github.com/odyssey-erp/salespulse/internal/push"
)

// Push transports understood by PUSH_SOURCE.
const (
	PushSourceWebSocket = "websocket"
	PushSourceRedis     = "redis"
)

// Config holds runtime configuration for the dashboard service.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL    string `envconfig:"API_BASE_URL" default:"http://127.0.0.1:8000"`
	APIPathPrefix string `envconfig:"API_PATH_PREFIX" default:"/api"`

	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"10s"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`

	PushSource         string        `envconfig:"PUSH_SOURCE" default:"websocket"`
	PushURL            string        `envconfig:"PUSH_URL"`
	PushRedisAddr      string        `envconfig:"PUSH_REDIS_ADDR" default:"127.0.0.1:6379"`
	PushRedisChannel   string        `envconfig:"PUSH_REDIS_CHANNEL" default:"sales.events"`
	PushBackoffInitial time.Duration `envconfig:"PUSH_BACKOFF_INITIAL" default:"1s"`
	PushBackoffMax     time.Duration `envconfig:"PUSH_BACKOFF_MAX" default:"30s"`

	OptimisticKPI     bool    `envconfig:"OPTIMISTIC_KPI" default:"true"`
	MarginEstimate    float64 `envconfig:"MARGIN_ESTIMATE" default:"0.25"`
	FeedLimit         int     `envconfig:"FEED_LIMIT" default:"10"`
	ResyncOnReconnect bool    `envconfig:"RESYNC_ON_RECONNECT" default:"true"`
	FeedBackfill      bool    `envconfig:"FEED_BACKFILL" default:"false"`

	DisplayLocale   string `envconfig:"DISPLAY_LOCALE" default:"en-IN"`
	CurrencySymbol  string `envconfig:"CURRENCY_SYMBOL" default:"₹"`
	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE" default:"Local"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config missing")
	}
	var errs []error
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}
	if c.MarginEstimate < 0 || c.MarginEstimate > 1 {
		errs = append(errs, fmt.Errorf("MARGIN_ESTIMATE %.2f outside [0,1]", c.MarginEstimate))
	}
	if c.FeedLimit < 1 {
		errs = append(errs, errors.New("FEED_LIMIT must be at least 1"))
	}
	if c.PushBackoffInitial <= 0 || c.PushBackoffMax < c.PushBackoffInitial {
		errs = append(errs, errors.New("PUSH_BACKOFF_MAX must be at least PUSH_BACKOFF_INITIAL"))
	}
	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: %w", err))
	}
	switch c.PushSource {
	case PushSourceWebSocket:
		if _, err := push.ResolveURL(c.APIBaseURL, c.PushURL); err != nil {
			errs = append(errs, err)
		}
	case PushSourceRedis:
		if strings.TrimSpace(c.PushRedisAddr) == "" {
			errs = append(errs, errors.New("PUSH_REDIS_ADDR required for redis push source"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %q", push.ErrUnknownSource, c.PushSource))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Level maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Location returns the zone used for displayed timestamps.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.Local
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DashboardOptions translates the environment into dashboard options.
func (c *Config) DashboardOptions() dashboard.Options {
	return dashboard.Options{
		Policy: dashboard.Policy{
			FeedLimit:      c.FeedLimit,
			Optimistic:     c.OptimisticKPI,
			MarginEstimate: decimal.NewFromFloat(c.MarginEstimate),
		},
		Refresher: dashboard.RefresherConfig{
			Interval:     c.RefreshInterval,
			FetchTimeout: c.FetchTimeout,
		},
		Listener: dashboard.ListenerConfig{
			BackoffInitial:    c.PushBackoffInitial,
			BackoffMax:        c.PushBackoffMax,
			ResyncOnReconnect: c.ResyncOnReconnect,
		},
		Backfill: c.FeedBackfill,
	}
}
