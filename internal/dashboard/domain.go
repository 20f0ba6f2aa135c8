package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HourlyPoint is one bucket of the intraday revenue/profit momentum chart.
type HourlyPoint struct {
	Hour    string          `json:"hour" validate:"required"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// ProfitBand summarises the per-order profit spread for a single day.
type ProfitBand struct {
	Date string          `json:"date" validate:"required"`
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Avg  decimal.Decimal `json:"avg"`
}

// TimeOfDaySlice is revenue attributed to a named part of the day.
type TimeOfDaySlice struct {
	Name    string          `json:"name" validate:"required"`
	Revenue decimal.Decimal `json:"revenue"`
}

// KPISummary holds the headline numbers shown on the dashboard cards.
type KPISummary struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
	AOV           decimal.Decimal `json:"aov"`
	Orders        int64           `json:"orders" validate:"gte=0"`
	LowStockCount int64           `json:"low_stock_count" validate:"gte=0"`
	Margin        decimal.Decimal `json:"margin"`
	TopCategory   string          `json:"top_category,omitempty"`
}

// ViewState is the authoritative-plus-drift view rendered by the presentation layer.
// All four fields are replaced together by a snapshot; only KPIs drift between snapshots.
type ViewState struct {
	Hourly       []HourlyPoint    `json:"hourly"`
	Distribution []ProfitBand     `json:"distribution"`
	TimeOfDay    []TimeOfDaySlice `json:"time_of_day"`
	KPIs         KPISummary       `json:"kpis"`
}

// Snapshot is a mutually consistent set of aggregates returned by the backend.
type Snapshot struct {
	ViewState
	FetchedAt time.Time
}

// FeedEntry is a single line of the recent activity list.
type FeedEntry struct {
	ID         uuid.UUID `json:"id"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// LinkStatus tracks the push-channel connection state machine.
type LinkStatus int

const (
	LinkConnecting LinkStatus = iota
	LinkOpen
	LinkClosed
)

func (s LinkStatus) String() string {
	switch s {
	case LinkConnecting:
		return "connecting"
	case LinkOpen:
		return "open"
	case LinkClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its lowercase name.
func (s LinkStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is an immutable value published by the Store after each applied action.
type State struct {
	Version          uint64      `json:"version"`
	View             ViewState   `json:"view"`
	Feed             []FeedEntry `json:"feed"`
	Link             LinkStatus  `json:"link"`
	LastRefresh      time.Time   `json:"last_refresh"`
	LastRefreshError string      `json:"last_refresh_error,omitempty"`
	Reconnects       int         `json:"reconnects"`
}

// Stale reports whether the most recent refresh attempt failed.
func (s State) Stale() bool {
	return s.LastRefreshError != ""
}
