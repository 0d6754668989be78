// Package plot draws the exploratory charts of a root Δ14C dataset: raw
// values by treatment, treatment means with confidence whiskers, and plot
// differences from control. Charts are rendered with go-chart as PNG or SVG,
// and as asciigraph line charts for the terminal.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/jb388/ise-fahey/internal/sample"
)

var ErrNoData = errors.New("plot: no data")

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case PNG, "":
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("plot: unknown format %q", s)
}

// Ext is the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

type Options struct {
	Format Format
	Width  int
	Height int
	// Seed drives the horizontal jitter of scatter points.
	Seed   int64
	Jitter float64
	// Levels orders treatments along the x axis.
	Levels []string
	Title  string
}

func DefaultOptions() Options {
	return Options{Format: PNG, Width: 1024, Height: 640, Seed: 1, Jitter: 0.15}
}

func (o Options) provider() chart.RendererProvider {
	if o.Format == SVG {
		return chart.SVG
	}
	return chart.PNG
}

var horizonColors = map[sample.Horizon]drawing.Color{
	sample.Organic:        drawing.ColorFromHex("8c510a"),
	sample.Mineral:        drawing.ColorFromHex("01665e"),
	sample.HorizonUnknown: chart.ColorAlternateGray,
}

func horizonColor(h sample.Horizon) drawing.Color {
	if c, ok := horizonColors[h]; ok {
		return c
	}
	return chart.ColorAlternateGray
}

// horizonOffset separates the two horizons within one treatment slot.
func horizonOffset(h sample.Horizon) float64 {
	switch h {
	case sample.Organic:
		return -0.18
	case sample.Mineral:
		return 0.18
	}
	return 0
}

// pointStyle draws markers without a connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: width}
}

// segment is a two-point series used for whiskers and bars.
func segment(x0, y0, x1, y1 float64, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		XValues: []float64{x0, x1},
		YValues: []float64{y0, y1},
		Style:   style,
	}
}

// legend renders only the keyed series so segments stay out of the legend.
func legend(keys []chart.Series) chart.Renderable {
	return chart.Legend(&chart.Chart{Series: keys})
}

func legendKey(name string, col drawing.Color) chart.Series {
	return chart.ContinuousSeries{Name: name, Style: lineStyle(col, 3)}
}

type bounds struct {
	min, max float64
	set      bool
}

func (b *bounds) add(v ...float64) {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if !b.set {
			b.min, b.max, b.set = x, x, true
			continue
		}
		b.min = math.Min(b.min, x)
		b.max = math.Max(b.max, x)
	}
}

// rng pads the bounds so a flat series still has a drawable range.
func (b bounds) rng() *chart.ContinuousRange {
	lo, hi := b.min, b.max
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.06
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func levelTicks(levels []string) []chart.Tick {
	ticks := make([]chart.Tick, len(levels))
	for i, l := range levels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	return ticks
}

func render(w io.Writer, c chart.Chart, opt Options) error {
	c.Width = opt.Width
	c.Height = opt.Height
	c.Background = chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}}
	if err := c.Render(opt.provider(), w); err != nil {
		return fmt.Errorf("render %s: %w", opt.Format, err)
	}
	return nil
}

// levelsFor orders the labels present in the data by the preferred levels,
// with unlisted labels following in order of appearance.
func levelsFor(preferred []string, labels []string) []string {
	present := map[string]bool{}
	for _, l := range labels {
		present[l] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, l := range append(append([]string(nil), preferred...), labels...) {
		if present[l] && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
