package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Ranges renders a min-max whisker with an average marker per label.
func Ranges(width, height int, labels []string, lows, highs, avgs []float64, opts RangeOpts) (template.HTML, error) {
	if len(labels) == 0 {
		return "", ErrNoData
	}
	if len(lows) != len(labels) || len(highs) != len(labels) || len(avgs) != len(labels) {
		return "", fmt.Errorf("svg: series length must match labels")
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, "#94a3b8")
	gridColor := fallback(opts.GridColor, "#f1f5f9")
	rangeColor := fallback(opts.RangeColor, "#c7d2fe")
	avgColor := fallback(opts.AvgColor, "#4f46e5")

	a := newAxis(lows, highs, avgs)
	slot := f.innerWidth() / float64(len(labels))
	boxWidth := slot * 0.4

	var b strings.Builder
	open(&b, f, opts.Title, opts.Description, "Profit distribution")
	grid(&b, f, a, gridColor, axisColor, "")

	for i, label := range labels {
		cx := f.padding + float64(i)*slot + slot/2
		top, bottom := a.y(f, highs[i]), a.y(f, lows[i])
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"3\" fill=\"%s\"><title>%s: %s - %s</title></rect>", cx-boxWidth/2, top, boxWidth, bottom-top, rangeColor, template.HTMLEscapeString(label), formatTick(lows[i]), formatTick(highs[i]))
		avgY := a.y(f, avgs[i])
		fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"3\"><title>avg %s</title></line>", cx-boxWidth/2, avgY, cx+boxWidth/2, avgY, avgColor, formatTick(avgs[i]))
		xLabel(&b, f, cx, label, axisColor)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
