package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Composed renders an area series against the left axis and a line series against
// an independent right axis, sharing the x labels.
func Composed(width, height int, labels []string, area, line []float64, opts ComposedOpts) (template.HTML, error) {
	if len(labels) == 0 {
		return "", ErrNoData
	}
	if len(area) != len(labels) || (len(line) > 0 && len(line) != len(labels)) {
		return "", fmt.Errorf("svg: series length must match labels")
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, "#94a3b8")
	gridColor := fallback(opts.GridColor, "#f1f5f9")
	areaStroke := fallback(opts.AreaStroke, "#3b82f6")
	areaFill := fallback(opts.AreaFill, "#dbeafe")
	lineColor := fallback(opts.LineColor, "#10b981")

	left := newAxis(area)
	right := newAxis(line)
	xs := spread(f, len(labels))

	var b strings.Builder
	open(&b, f, opts.Title, opts.Description, "Revenue and profit")
	grid(&b, f, left, gridColor, axisColor, opts.TickPrefix)

	for i := 0; i <= f.ticks && len(line) > 0; i++ {
		value := right.tick(i, f.ticks)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", f.padding+f.innerWidth()+6, right.y(f, value)+4, lineColor, template.HTMLEscapeString(formatTick(value)))
	}

	areaPath := polyline(f, left, xs, area)
	fmt.Fprintf(&b, "<path d=\"%s L%.2f %.2f L%.2f %.2f Z\" fill=\"%s\" stroke=\"none\" aria-hidden=\"true\"></path>", areaPath, xs[len(xs)-1], f.baseline(), xs[0], f.baseline(), areaFill)
	fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\"><title>%s</title></path>", areaPath, areaStroke, template.HTMLEscapeString(fallback(opts.AreaLabel, "Revenue")))
	if len(line) > 0 {
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"3\" stroke-linejoin=\"round\" stroke-linecap=\"round\"><title>%s</title></path>", polyline(f, right, xs, line), lineColor, template.HTMLEscapeString(fallback(opts.LineLabel, "Profit")))
	}

	for i, label := range labels {
		xLabel(&b, f, xs[i], label, axisColor)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func spread(f frame, n int) []float64 {
	xs := make([]float64, n)
	if n == 1 {
		xs[0] = f.padding + f.innerWidth()/2
		return xs
	}
	step := f.innerWidth() / float64(n-1)
	for i := range xs {
		xs[i] = f.padding + float64(i)*step
	}
	return xs
}

func polyline(f frame, a axis, xs, values []float64) string {
	var path strings.Builder
	for i, v := range values {
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xs[i], a.y(f, v))
	}
	return path.String()
}
