package svg

import (
	"fmt"
	"html/template"
	"strings"
)

var defaultPalette = []string{"#f59e0b", "#3b82f6", "#8b5cf6", "#10b981", "#ef4444"}

// Bars renders one bar per label, cycling through the configured colours.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", ErrNoData
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: values length must match labels")
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, "#94a3b8")
	gridColor := fallback(opts.GridColor, "#f1f5f9")
	palette := opts.Colors
	if len(palette) == 0 {
		palette = defaultPalette
	}

	a := newAxis(values)
	slot := f.innerWidth() / float64(len(values))
	barWidth := slot * 0.6

	var b strings.Builder
	open(&b, f, opts.Title, opts.Description, "Bar chart")
	grid(&b, f, a, gridColor, axisColor, "")

	zero := a.y(f, 0)
	for i, v := range values {
		x := f.padding + float64(i)*slot + (slot-barWidth)/2
		y := a.y(f, v)
		top, h := y, zero-y
		if h < 0 {
			top, h = zero, -h
		}
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"4\" fill=\"%s\"><title>%s: %s</title></rect>", x, top, barWidth, h, palette[i%len(palette)], template.HTMLEscapeString(labels[i]), formatTick(v))
		xLabel(&b, f, x+barWidth/2, labels[i], axisColor)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
