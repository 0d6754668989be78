package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

// Terminal draws group means across the treatment levels, one line per
// horizon. Missing cells are gaps.
func Terminal(rows []summary.GroupRow, levels []string, width, height int) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoData
	}
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Treatment
	}
	levels = levelsFor(levels, labels)
	idx := sample.LevelIndex(levels)

	byHorizon := map[sample.Horizon][]float64{}
	for _, r := range rows {
		line, ok := byHorizon[r.Horizon]
		if !ok {
			line = make([]float64, len(levels))
			for i := range line {
				line[i] = math.NaN()
			}
			byHorizon[r.Horizon] = line
		}
		line[idx[r.Treatment]] = r.Mean
	}

	var data [][]float64
	var colors []asciigraph.AnsiColor
	var names []string
	palette := map[sample.Horizon]asciigraph.AnsiColor{
		sample.Organic:        asciigraph.Goldenrod,
		sample.Mineral:        asciigraph.DarkCyan,
		sample.HorizonUnknown: asciigraph.Gray,
	}
	for _, h := range append([]sample.Horizon{sample.HorizonUnknown}, sample.Horizons...) {
		line, ok := byHorizon[h]
		if !ok {
			continue
		}
		// a single point cannot be drawn as a line
		if len(line) == 1 {
			line = append(line, line[0])
		}
		data = append(data, line)
		colors = append(colors, palette[h])
		names = append(names, h.String())
	}

	if width <= 0 {
		width = 60
	}
	if height <= 0 {
		height = 12
	}
	caption := fmt.Sprintf("mean Δ14C; x: %s; lines: %s", strings.Join(levels, " | "), strings.Join(names, ", "))
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	), nil
}
