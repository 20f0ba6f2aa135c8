package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

type frame struct {
	width, height int
	padding       float64
	ticks         int
}

func newFrame(width, height int, padding float64, ticks int) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	f := frame{width: width, height: height, padding: padding, ticks: ticks}
	if f.innerWidth() <= 0 || f.innerHeight() <= 0 {
		return frame{}, fmt.Errorf("svg: viewport too small")
	}
	return f, nil
}

func (f frame) innerWidth() float64  { return float64(f.width) - 2*f.padding }
func (f frame) innerHeight() float64 { return float64(f.height) - 2*f.padding }
func (f frame) baseline() float64    { return f.padding + f.innerHeight() }

// axis maps values onto the vertical extent, always including zero.
type axis struct {
	min, max float64
}

func newAxis(series ...[]float64) axis {
	a := axis{}
	for _, s := range series {
		for _, v := range s {
			a.min = math.Min(a.min, v)
			a.max = math.Max(a.max, v)
		}
	}
	if almostEqual(a.max, a.min) {
		a.max = a.min + 1
	}
	return a
}

func (a axis) y(f frame, v float64) float64 {
	return f.baseline() - (v-a.min)/(a.max-a.min)*f.innerHeight()
}

func (a axis) tick(i, n int) float64 {
	return a.min + (a.max-a.min)*float64(i)/float64(n)
}

func open(b *strings.Builder, f frame, title, desc, fallbackTitle string) {
	titleID := makeID(title, "title")
	descID := makeID(title, "desc")
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", f.width, f.height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(title, fallbackTitle)))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(desc, fallbackTitle)))
}

func grid(b *strings.Builder, f frame, a axis, gridColor, axisColor, prefix string) {
	for i := 0; i <= f.ticks; i++ {
		value := a.tick(i, f.ticks)
		y := a.y(f, value)
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"3,3\" aria-hidden=\"true\"></line>", f.padding, y, f.padding+f.innerWidth(), y, gridColor)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", f.padding-6, y+4, axisColor, template.HTMLEscapeString(prefix+formatTick(value)))
	}
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\"></line>", f.padding, f.baseline(), f.padding+f.innerWidth(), f.baseline(), axisColor)
}

func xLabel(b *strings.Builder, f frame, x float64, label, color string) {
	fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x, f.baseline()+14, color, template.HTMLEscapeString(label))
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
