package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultFeedLimit is the number of live feed entries kept when none is configured.
const DefaultFeedLimit = 10

// DefaultMarginEstimate is the assumed margin applied to optimistic profit increments.
// It is an approximation; the next snapshot replaces whatever it produced.
var DefaultMarginEstimate = decimal.RequireFromString("0.25")

// Policy controls how live events are folded into the state.
type Policy struct {
	FeedLimit      int
	Optimistic     bool
	MarginEstimate decimal.Decimal
}

// DefaultPolicy mirrors the live variant of the dashboard: optimistic increments on.
func DefaultPolicy() Policy {
	return Policy{
		FeedLimit:      DefaultFeedLimit,
		Optimistic:     true,
		MarginEstimate: DefaultMarginEstimate,
	}
}

func (p Policy) feedLimit() int {
	if p.FeedLimit <= 0 {
		return DefaultFeedLimit
	}
	return p.FeedLimit
}

// Action is an update applied by the Store. The set is closed to this package.
type Action interface {
	action()
}

// ReplaceSnapshot swaps the whole ViewState for an authoritative snapshot.
type ReplaceSnapshot struct {
	Snapshot Snapshot
}

// ApplySale records a live sale in the feed and, when enabled, bumps the KPIs.
type ApplySale struct {
	ID   uuid.UUID
	At   time.Time
	Sale SaleEvent
}

// SetLink moves the push-channel state machine.
type SetLink struct {
	Status    LinkStatus
	Reconnect bool
}

// RefreshFailed notes a failed refresh attempt without touching the view.
type RefreshFailed struct {
	At  time.Time
	Err string
}

// SeedFeed fills an empty live feed with historical entries, newest first.
type SeedFeed struct {
	Entries []FeedEntry
}

func (ReplaceSnapshot) action() {}
func (ApplySale) action()       {}
func (SetLink) action()         {}
func (RefreshFailed) action()   {}
func (SeedFeed) action()        {}

// Reduce returns the state that results from applying a to s. It never mutates s.
func Reduce(s State, a Action, p Policy) State {
	next := s
	switch act := a.(type) {
	case ReplaceSnapshot:
		next.View = act.Snapshot.ViewState
		next.LastRefresh = act.Snapshot.FetchedAt
		next.LastRefreshError = ""
	case ApplySale:
		next.Feed = prependFeed(s.Feed, FeedEntry{ID: act.ID, Message: act.Sale.Message, ReceivedAt: act.At}, p.feedLimit())
		if p.Optimistic && act.Sale.TotalPrice.Valid {
			next.View.KPIs = incrementKPIs(s.View.KPIs, act.Sale.TotalPrice.Decimal, p.MarginEstimate)
		}
	case SetLink:
		next.Link = act.Status
		if act.Reconnect && act.Status == LinkOpen {
			next.Reconnects++
		}
	case RefreshFailed:
		next.LastRefreshError = act.Err
	case SeedFeed:
		if len(s.Feed) > 0 || len(act.Entries) == 0 {
			return s
		}
		limit := min(len(act.Entries), p.feedLimit())
		next.Feed = append([]FeedEntry(nil), act.Entries[:limit]...)
	default:
		return s
	}
	next.Version = s.Version + 1
	return next
}

func prependFeed(feed []FeedEntry, entry FeedEntry, limit int) []FeedEntry {
	size := min(len(feed)+1, limit)
	out := make([]FeedEntry, 0, size)
	out = append(out, entry)
	return append(out, feed[:size-1]...)
}

func incrementKPIs(k KPISummary, price, margin decimal.Decimal) KPISummary {
	k.Revenue = k.Revenue.Add(price)
	k.Profit = k.Profit.Add(price.Mul(margin))
	k.Orders++
	return k
}
