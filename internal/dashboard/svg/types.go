// Package svg renders the dashboard charts as inline SVG.
package svg

import "errors"

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("svg: no data")

// ComposedOpts customises the revenue area + profit line chart.
type ComposedOpts struct {
	Title       string
	Description string
	AreaLabel   string
	LineLabel   string
	AreaStroke  string
	AreaFill    string
	LineColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	// TickPrefix is printed before left-axis tick values, e.g. a currency symbol.
	TickPrefix string
}

// BarOpts customises the single series bar chart.
type BarOpts struct {
	Title       string
	Description string
	Colors      []string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// RangeOpts customises the min/max/avg range chart.
type RangeOpts struct {
	Title       string
	Description string
	RangeColor  string
	AvgColor    string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 320
	DefaultPadding = 36.0
	DefaultTicks   = 5
)
