package ui

import (
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
	"github.com/odyssey-erp/salespulse/internal/dashboard/svg"
)

type failingCharts struct {
	SVGCharts
}

func (failingCharts) Bars(int, int, []float64, []string, svg.BarOpts) (template.HTML, error) {
	return "", errors.New("boom")
}

func TestBuildEmptyState(t *testing.T) {
	b := NewBuilder(nil, "en", "₹")

	vm, err := b.Build(dashboard.State{})
	require.NoError(t, err)

	assert.Equal(t, "Connecting", vm.Status.Label)
	assert.Empty(t, vm.Feed)
	assert.Equal(t, EmptyFeedMessage, vm.EmptyFeed)
	assert.Empty(t, vm.LastRefresh)
	require.Len(t, vm.KPIs, 5)
	assert.Equal(t, "₹0.00", vm.KPIs[0].Value)
	assert.Equal(t, "0", vm.KPIs[2].Value)
	assert.Empty(t, vm.KPIs[4].Tone)
	assert.Contains(t, string(vm.HourlySVG), "empty-msg")
	assert.Contains(t, string(vm.TimeOfDaySVG), "empty-msg")
	assert.Contains(t, string(vm.DistributionSVG), "empty-msg")
}

func TestBuildPopulatedState(t *testing.T) {
	b := NewBuilder(SVGCharts{}, "en", "₹").WithLocation(time.UTC)
	at := time.Date(2025, 6, 1, 14, 5, 9, 0, time.UTC)
	id := uuid.New()

	state := dashboard.State{
		Version: 7,
		Link:    dashboard.LinkOpen,
		View: dashboard.ViewState{
			Hourly: []dashboard.HourlyPoint{
				{Hour: "9:00", Revenue: decimal.NewFromInt(1200), Profit: decimal.NewFromInt(300)},
				{Hour: "10:00", Revenue: decimal.NewFromInt(800), Profit: decimal.NewFromInt(200)},
			},
			Distribution: []dashboard.ProfitBand{
				{Date: "2025-06-01", Min: decimal.NewFromInt(2), Max: decimal.NewFromInt(90), Avg: decimal.NewFromInt(30)},
			},
			TimeOfDay: []dashboard.TimeOfDaySlice{{Name: "Morning", Revenue: decimal.NewFromInt(4200)}},
			KPIs: dashboard.KPISummary{
				Revenue:       decimal.RequireFromString("1234567.5"),
				Profit:        decimal.RequireFromString("308641.875"),
				AOV:           decimal.RequireFromString("212.4"),
				Orders:        5812,
				LowStockCount: 3,
			},
		},
		Feed:        []dashboard.FeedEntry{{ID: id, Message: "Sold 1x Tea for ₹120", ReceivedAt: at}},
		LastRefresh: at,
	}

	vm, err := b.Build(state)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), vm.Version)
	assert.Equal(t, Status{Link: "open", Label: "Live Updates", Tone: "live"}, vm.Status)
	assert.Equal(t, "₹1,234,567.50", vm.KPIs[0].Value)
	assert.Equal(t, "₹308,641.88", vm.KPIs[1].Value)
	assert.Equal(t, "5,812", vm.KPIs[2].Value)
	assert.Equal(t, "alert", vm.KPIs[4].Tone)
	require.Len(t, vm.Feed, 1)
	assert.Equal(t, FeedItem{ID: id.String(), Message: "Sold 1x Tea for ₹120", At: "14:05:09"}, vm.Feed[0])
	assert.Equal(t, "14:05:09", vm.LastRefresh)
	assert.True(t, strings.HasPrefix(string(vm.HourlySVG), "<svg"))
	assert.True(t, strings.HasPrefix(string(vm.TimeOfDaySVG), "<svg"))
	assert.True(t, strings.HasPrefix(string(vm.DistributionSVG), "<svg"))
}

func TestBuildStaleAndDisconnected(t *testing.T) {
	vm, err := NewBuilder(nil, "en", "$").Build(dashboard.State{Link: dashboard.LinkClosed, LastRefreshError: "kpi: timeout"})
	require.NoError(t, err)
	assert.True(t, vm.Stale)
	assert.Equal(t, "Disconnected", vm.Status.Label)
}

func TestBuildPropagatesRendererErrors(t *testing.T) {
	state := dashboard.State{View: dashboard.ViewState{
		TimeOfDay: []dashboard.TimeOfDaySlice{{Name: "Evening", Revenue: decimal.NewFromInt(10)}},
	}}
	_, err := NewBuilder(failingCharts{}, "en", "₹").Build(state)
	require.Error(t, err)
}
