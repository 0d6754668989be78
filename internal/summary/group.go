package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/jb388/ise-fahey/internal/sample"
)

// Options controls grouping.
type Options struct {
	Confidence float64
	// Levels orders treatments; see sample.Dataset.Levels.
	Levels  []string
	Control string
	// SplitHorizon keys plot differences by horizon as well as plot.
	SplitHorizon bool
}

// OptionsFor derives grouping options from a loaded dataset.
func OptionsFor(ds *sample.Dataset, confidence float64) Options {
	return Options{
		Confidence:   confidence,
		Levels:       ds.Levels,
		Control:      ds.Control,
		SplitHorizon: true,
	}
}

// GroupRow is one treatment within one horizon.
type GroupRow struct {
	Treatment string
	Horizon   sample.Horizon
	Stats
}

// PlotRow is the difference from control for one plot. Horizon is
// HorizonUnknown when horizons are pooled.
type PlotRow struct {
	Plot      int
	Horizon   sample.Horizon
	Treatment string
	Stats
}

type groupKey struct {
	trt string
	hzn sample.Horizon
}

// ByTreatmentHorizon groups measured records by treatment and horizon.
func ByTreatmentHorizon(records []sample.Record, opt Options) []GroupRow {
	values := map[groupKey][]float64{}
	var keys []groupKey
	for _, r := range records {
		if !r.Measured {
			continue
		}
		k := groupKey{r.Treatment, r.Horizon}
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], r.D14C)
	}

	rank := levelRank(opt.Levels)
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].hzn != keys[j].hzn {
			return keys[i].hzn < keys[j].hzn
		}
		return rank(keys[i].trt) < rank(keys[j].trt)
	})

	rows := make([]GroupRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, GroupRow{Treatment: k.trt, Horizon: k.hzn, Stats: Describe(values[k], opt.Confidence)})
	}
	return rows
}

// ControlMeans returns the mean control Δ14C per horizon.
func ControlMeans(records []sample.Record, control string) map[sample.Horizon]float64 {
	sums := map[sample.Horizon]float64{}
	counts := map[sample.Horizon]int{}
	for _, r := range records {
		if r.Measured && r.Treatment == control {
			sums[r.Horizon] += r.D14C
			counts[r.Horizon]++
		}
	}
	out := make(map[sample.Horizon]float64, len(sums))
	for h, s := range sums {
		out[h] = s / float64(counts[h])
	}
	return out
}

type plotKey struct {
	plot int
	hzn  sample.Horizon
}

// PlotDifferences subtracts the control mean of each record's horizon and
// groups the differences by plot.
func PlotDifferences(records []sample.Record, opt Options) ([]PlotRow, error) {
	base := ControlMeans(records, opt.Control)

	values := map[plotKey][]float64{}
	treatment := map[plotKey]string{}
	var keys []plotKey
	for _, r := range records {
		if !r.Measured {
			continue
		}
		mean, ok := base[r.Horizon]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoControl, r.Horizon)
		}
		k := plotKey{plot: r.Plot}
		if opt.SplitHorizon {
			k.hzn = r.Horizon
		}
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
			treatment[k] = r.Treatment
		}
		values[k] = append(values[k], r.D14C-mean)
	}

	rank := levelRank(opt.Levels)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.hzn != b.hzn {
			return a.hzn < b.hzn
		}
		if ra, rb := rank(treatment[a]), rank(treatment[b]); ra != rb {
			return ra < rb
		}
		return a.plot < b.plot
	})

	rows := make([]PlotRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, PlotRow{
			Plot:      k.plot,
			Horizon:   k.hzn,
			Treatment: treatment[k],
			Stats:     Describe(values[k], opt.Confidence),
		})
	}
	return rows, nil
}

func levelRank(levels []string) func(string) int {
	idx := sample.LevelIndex(levels)
	return func(l string) int {
		if i, ok := idx[l]; ok {
			return i
		}
		return len(levels)
	}
}

var statsHeader = []string{"n", "mean", "sd", "se", "ci_low", "ci_high"}

func statsFields(s Stats) []string {
	return []string{
		strconv.Itoa(s.N),
		formatFloat(s.Mean),
		formatFloat(s.SD),
		formatFloat(s.SE),
		formatFloat(s.CILow),
		formatFloat(s.CIHigh),
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteGroupsCSV writes the treatment × horizon table.
func WriteGroupsCSV(w io.Writer, rows []GroupRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"trt", "hzn"}, statsHeader...)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(append([]string{r.Treatment, r.Horizon.String()}, statsFields(r.Stats)...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlotsCSV writes the difference-from-control table.
func WritePlotsCSV(w io.Writer, rows []PlotRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"plot", "hzn", "trt"}, statsHeader...)); err != nil {
		return err
	}
	for _, r := range rows {
		hzn := "all"
		if r.Horizon != sample.HorizonUnknown {
			hzn = r.Horizon.String()
		}
		if err := cw.Write(append([]string{strconv.Itoa(r.Plot), hzn, r.Treatment}, statsFields(r.Stats)...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
