package plot

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

const yLabel = "Δ14C (‰)"

// Scatter plots every measured record at its treatment slot, one series per
// horizon, with seeded horizontal jitter.
func Scatter(w io.Writer, records []sample.Record, opt Options) error {
	var labels []string
	for _, r := range records {
		if r.Measured {
			labels = append(labels, r.Treatment)
		}
	}
	if len(labels) == 0 {
		return ErrNoData
	}
	levels := levelsFor(opt.Levels, labels)
	idx := sample.LevelIndex(levels)
	rnd := rand.New(rand.NewSource(opt.Seed))

	xs := map[sample.Horizon][]float64{}
	ys := map[sample.Horizon][]float64{}
	var yb bounds
	for _, r := range records {
		if !r.Measured {
			continue
		}
		x := float64(idx[r.Treatment]) + horizonOffset(r.Horizon)
		if opt.Jitter > 0 {
			x += (rnd.Float64()*2 - 1) * opt.Jitter / 2
		}
		xs[r.Horizon] = append(xs[r.Horizon], x)
		ys[r.Horizon] = append(ys[r.Horizon], r.D14C)
		yb.add(r.D14C)
	}

	var series, keys []chart.Series
	for _, h := range append([]sample.Horizon{sample.HorizonUnknown}, sample.Horizons...) {
		if len(xs[h]) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    h.String(),
			XValues: xs[h],
			YValues: ys[h],
			Style:   pointStyle(horizonColor(h)),
		})
		keys = append(keys, legendKey(h.String(), horizonColor(h)))
	}

	c := chart.Chart{
		Title:  titleOr(opt.Title, "Fine-root Δ14C by treatment"),
		XAxis:  chart.XAxis{Name: "treatment", Ticks: levelTicks(levels), Range: slotRange(len(levels))},
		YAxis:  chart.YAxis{Name: yLabel, Range: yb.rng()},
		Series: series,
	}
	c.Elements = []chart.Renderable{legend(keys)}
	return render(w, c, opt)
}

// ErrorBars plots each treatment-by-horizon mean with its confidence
// interval as a vertical whisker. Groups without an interval get a point only.
func ErrorBars(w io.Writer, rows []summary.GroupRow, opt Options) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Treatment
	}
	levels := levelsFor(opt.Levels, labels)
	idx := sample.LevelIndex(levels)

	xs := map[sample.Horizon][]float64{}
	ys := map[sample.Horizon][]float64{}
	var whiskers []chart.Series
	var yb bounds
	for _, r := range rows {
		x := float64(idx[r.Treatment]) + horizonOffset(r.Horizon)
		col := horizonColor(r.Horizon)
		xs[r.Horizon] = append(xs[r.Horizon], x)
		ys[r.Horizon] = append(ys[r.Horizon], r.Mean)
		yb.add(r.Mean)
		if math.IsNaN(r.CIHalf) {
			continue
		}
		whiskers = append(whiskers,
			segment(x, r.CILow, x, r.CIHigh, lineStyle(col, 1.5)),
			segment(x-0.05, r.CILow, x+0.05, r.CILow, lineStyle(col, 1.5)),
			segment(x-0.05, r.CIHigh, x+0.05, r.CIHigh, lineStyle(col, 1.5)),
		)
		yb.add(r.CILow, r.CIHigh)
	}

	var series, keys []chart.Series
	series = append(series, whiskers...)
	for _, h := range append([]sample.Horizon{sample.HorizonUnknown}, sample.Horizons...) {
		if len(xs[h]) == 0 {
			continue
		}
		st := pointStyle(horizonColor(h))
		st.DotWidth = 6
		series = append(series, chart.ContinuousSeries{Name: h.String(), XValues: xs[h], YValues: ys[h], Style: st})
		keys = append(keys, legendKey(h.String(), horizonColor(h)))
	}

	c := chart.Chart{
		Title:  titleOr(opt.Title, "Mean Δ14C by treatment and horizon"),
		XAxis:  chart.XAxis{Name: "treatment", Ticks: levelTicks(levels), Range: slotRange(len(levels))},
		YAxis:  chart.YAxis{Name: yLabel, Range: yb.rng()},
		Series: series,
	}
	c.Elements = []chart.Renderable{legend(keys)}
	return render(w, c, opt)
}

// DiffBars draws one bar per plot for the mean difference from the control
// mean, with a confidence whisker where the plot has enough cores.
func DiffBars(w io.Writer, rows []summary.PlotRow, opt Options) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	n := len(rows)
	barWidth := math.Max(2, 0.6*float64(opt.Width)/float64(n+2))

	var series []chart.Series
	ticks := make([]chart.Tick, n)
	yb := bounds{}
	yb.add(0)
	seenHorizon := map[sample.Horizon]bool{}
	var keys []chart.Series
	for i, r := range rows {
		x := float64(i)
		col := horizonColor(r.Horizon)
		series = append(series, segment(x, 0, x, r.Mean, lineStyle(col.WithAlpha(200), barWidth)))
		yb.add(r.Mean)
		if !math.IsNaN(r.CIHalf) {
			series = append(series, segment(x, r.CILow, x, r.CIHigh, lineStyle(chart.ColorBlack, 1.2)))
			yb.add(r.CILow, r.CIHigh)
		}
		ticks[i] = chart.Tick{Value: x, Label: plotLabel(r)}
		if !seenHorizon[r.Horizon] {
			seenHorizon[r.Horizon] = true
			name := r.Horizon.String()
			if r.Horizon == sample.HorizonUnknown {
				name = "all horizons"
			}
			keys = append(keys, legendKey(name, col))
		}
	}
	series = append(series, segment(-0.6, 0, float64(n)-0.4, 0, lineStyle(chart.ColorAlternateGray, 1)))

	c := chart.Chart{
		Title:  titleOr(opt.Title, "Difference from control mean by plot"),
		XAxis:  chart.XAxis{Name: "plot", Ticks: ticks, Range: slotRange(n)},
		YAxis:  chart.YAxis{Name: "Δ14C difference (‰)", Range: yb.rng()},
		Series: series,
	}
	c.Elements = []chart.Renderable{legend(keys)}
	return render(w, c, opt)
}

func plotLabel(r summary.PlotRow) string {
	if r.Horizon == sample.HorizonUnknown {
		return fmt.Sprintf("%d", r.Plot)
	}
	return fmt.Sprintf("%d%s", r.Plot, r.Horizon.Code())
}

func slotRange(n int) *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: -0.6, Max: float64(n) - 0.4}
}

func titleOr(title, def string) string {
	if title != "" {
		return title
	}
	return def
}
