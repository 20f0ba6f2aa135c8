// Package ui turns dashboard state into render-ready view models.
package ui

import (
	"errors"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/salespulse/internal/dashboard"
	"github.com/odyssey-erp/salespulse/internal/dashboard/svg"
)

// EmptyFeedMessage is shown while no sale has arrived yet.
const EmptyFeedMessage = "Waiting for transactions..."

// KPICard is one headline number.
type KPICard struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Tone  string `json:"tone,omitempty"`
}

// FeedItem is one rendered live feed line.
type FeedItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	At      string `json:"at"`
}

// Status describes the push link badge.
type Status struct {
	Link  string `json:"link"`
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

// ViewModel is everything the dashboard page and live socket render.
type ViewModel struct {
	Version         uint64        `json:"version"`
	Status          Status        `json:"status"`
	KPIs            []KPICard     `json:"kpis"`
	HourlySVG       template.HTML `json:"hourly_svg"`
	DistributionSVG template.HTML `json:"distribution_svg"`
	TimeOfDaySVG    template.HTML `json:"time_of_day_svg"`
	Feed            []FeedItem    `json:"feed"`
	EmptyFeed       string        `json:"empty_feed"`
	LastRefresh     string        `json:"last_refresh"`
	Stale           bool          `json:"stale"`
}

// ComposedRenderer abstracts the revenue/profit momentum chart.
type ComposedRenderer interface {
	Composed(width, height int, labels []string, area, line []float64, opts svg.ComposedOpts) (template.HTML, error)
}

// BarRenderer abstracts the time-of-day chart.
type BarRenderer interface {
	Bars(width, height int, values []float64, labels []string, opts svg.BarOpts) (template.HTML, error)
}

// RangeRenderer abstracts the profit distribution chart.
type RangeRenderer interface {
	Ranges(width, height int, labels []string, lows, highs, avgs []float64, opts svg.RangeOpts) (template.HTML, error)
}

// Charts bundles the renderers. SVGCharts is the production implementation.
type Charts interface {
	ComposedRenderer
	BarRenderer
	RangeRenderer
}

// SVGCharts delegates to the svg package.
type SVGCharts struct{}

func (SVGCharts) Composed(width, height int, labels []string, area, line []float64, opts svg.ComposedOpts) (template.HTML, error) {
	return svg.Composed(width, height, labels, area, line, opts)
}

func (SVGCharts) Bars(width, height int, values []float64, labels []string, opts svg.BarOpts) (template.HTML, error) {
	return svg.Bars(width, height, values, labels, opts)
}

func (SVGCharts) Ranges(width, height int, labels []string, lows, highs, avgs []float64, opts svg.RangeOpts) (template.HTML, error) {
	return svg.Ranges(width, height, labels, lows, highs, avgs, opts)
}

// Builder renders State values into ViewModels.
type Builder struct {
	charts   Charts
	printer  *message.Printer
	currency string
	location *time.Location
}

// NewBuilder creates a builder. locale is a BCP 47 tag such as "en-IN".
func NewBuilder(charts Charts, locale, currency string) *Builder {
	if charts == nil {
		charts = SVGCharts{}
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Builder{
		charts:   charts,
		printer:  message.NewPrinter(tag),
		currency: currency,
		location: time.Local,
	}
}

// WithLocation sets the zone timestamps are displayed in.
func (b *Builder) WithLocation(loc *time.Location) *Builder {
	if loc != nil {
		b.location = loc
	}
	return b
}

// Build renders the state. Missing data renders as empty charts, never as an error.
func (b *Builder) Build(state dashboard.State) (ViewModel, error) {
	vm := ViewModel{
		Version:   state.Version,
		Status:    statusFor(state.Link),
		KPIs:      b.kpiCards(state.View.KPIs),
		Feed:      make([]FeedItem, 0, len(state.Feed)),
		EmptyFeed: EmptyFeedMessage,
		Stale:     state.Stale(),
	}
	if !state.LastRefresh.IsZero() {
		vm.LastRefresh = state.LastRefresh.In(b.location).Format("15:04:05")
	}
	for _, entry := range state.Feed {
		vm.Feed = append(vm.Feed, FeedItem{
			ID:      entry.ID.String(),
			Message: entry.Message,
			At:      entry.ReceivedAt.In(b.location).Format("15:04:05"),
		})
	}

	var err error
	if vm.HourlySVG, err = b.hourlyChart(state.View.Hourly); err != nil {
		return ViewModel{}, err
	}
	if vm.DistributionSVG, err = b.distributionChart(state.View.Distribution); err != nil {
		return ViewModel{}, err
	}
	if vm.TimeOfDaySVG, err = b.timeOfDayChart(state.View.TimeOfDay); err != nil {
		return ViewModel{}, err
	}
	return vm, nil
}

func (b *Builder) kpiCards(k dashboard.KPISummary) []KPICard {
	lowStockTone := ""
	if k.LowStockCount > 0 {
		lowStockTone = "alert"
	}
	return []KPICard{
		{Key: "revenue", Label: "Gross Revenue", Value: b.money(k.Revenue)},
		{Key: "profit", Label: "Net Profit", Value: b.money(k.Profit), Tone: "positive"},
		{Key: "orders", Label: "Orders", Value: b.printer.Sprintf("%d", k.Orders)},
		{Key: "aov", Label: "Avg Order Value", Value: b.money(k.AOV)},
		{Key: "low_stock", Label: "Low Stock", Value: b.printer.Sprintf("%d", k.LowStockCount), Tone: lowStockTone},
	}
}

func (b *Builder) money(d decimal.Decimal) string {
	return b.currency + b.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

func statusFor(link dashboard.LinkStatus) Status {
	switch link {
	case dashboard.LinkOpen:
		return Status{Link: link.String(), Label: "Live Updates", Tone: "live"}
	case dashboard.LinkClosed:
		return Status{Link: link.String(), Label: "Disconnected", Tone: "down"}
	default:
		return Status{Link: link.String(), Label: "Connecting", Tone: "pending"}
	}
}

func emptyChart(title string) template.HTML {
	return template.HTML(`<p class="empty-msg">` + template.HTMLEscapeString(title) + ` will appear after the first refresh.</p>`)
}

func (b *Builder) hourlyChart(points []dashboard.HourlyPoint) (template.HTML, error) {
	labels := make([]string, len(points))
	revenue := make([]float64, len(points))
	profit := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Hour
		revenue[i] = p.Revenue.InexactFloat64()
		profit[i] = p.Profit.InexactFloat64()
	}
	html, err := b.charts.Composed(0, 350, labels, revenue, profit, svg.ComposedOpts{
		Title:      "Revenue & Profit Momentum",
		AreaLabel:  "Revenue",
		LineLabel:  "Profit",
		TickPrefix: b.currency,
	})
	return orEmpty(html, err, "Revenue & profit momentum")
}

func (b *Builder) distributionChart(bands []dashboard.ProfitBand) (template.HTML, error) {
	labels := make([]string, len(bands))
	lows := make([]float64, len(bands))
	highs := make([]float64, len(bands))
	avgs := make([]float64, len(bands))
	for i, band := range bands {
		labels[i] = band.Date
		lows[i] = band.Min.InexactFloat64()
		highs[i] = band.Max.InexactFloat64()
		avgs[i] = band.Avg.InexactFloat64()
	}
	html, err := b.charts.Ranges(0, 0, labels, lows, highs, avgs, svg.RangeOpts{Title: "Profit Distribution"})
	return orEmpty(html, err, "Profit distribution")
}

func (b *Builder) timeOfDayChart(slices []dashboard.TimeOfDaySlice) (template.HTML, error) {
	labels := make([]string, len(slices))
	values := make([]float64, len(slices))
	for i, s := range slices {
		labels[i] = s.Name
		values[i] = s.Revenue.InexactFloat64()
	}
	html, err := b.charts.Bars(0, 0, values, labels, svg.BarOpts{Title: "Sales by Time of Day"})
	return orEmpty(html, err, "Time of day sales")
}

func orEmpty(html template.HTML, err error, title string) (template.HTML, error) {
	if errors.Is(err, svg.ErrNoData) {
		return emptyChart(title), nil
	}
	return html, err
}
