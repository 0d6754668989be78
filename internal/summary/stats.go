// Package summary aggregates fine-root Δ14C records into group statistics.
//
// Two tables are produced:
//
//   - [ByTreatmentHorizon]: n, mean, sd, se and confidence interval of Δ14C for
//     each treatment within each soil horizon
//   - [PlotDifferences]: the same statistics on the difference between each
//     sample and the control mean of its horizon, grouped by plot
package summary

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoControl indicates a horizon without control samples to difference against.
var ErrNoControl = errors.New("summary: no control records for horizon")

// DefaultConfidence is the two-sided confidence level of reported intervals.
const DefaultConfidence = 0.95

// Stats summarises one group of values.
type Stats struct {
	N      int
	Mean   float64
	SD     float64
	SE     float64
	CIHalf float64
	CILow  float64
	CIHigh float64
}

// Describe computes Stats with a Student t interval at the given confidence.
// SD, SE and the interval are NaN when fewer than two values are given.
func Describe(values []float64, confidence float64) Stats {
	s := Stats{N: len(values)}
	nan := math.NaN()
	switch len(values) {
	case 0:
		s.Mean, s.SD, s.SE, s.CIHalf, s.CILow, s.CIHigh = nan, nan, nan, nan, nan, nan
		return s
	case 1:
		s.Mean = values[0]
		s.SD, s.SE, s.CIHalf, s.CILow, s.CIHigh = nan, nan, nan, nan, nan
		return s
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}

	s.Mean, s.SD = stat.MeanStdDev(values, nil)
	n := float64(len(values))
	s.SE = s.SD / math.Sqrt(n)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	s.CIHalf = t.Quantile(0.5+confidence/2) * s.SE
	s.CILow = s.Mean - s.CIHalf
	s.CIHigh = s.Mean + s.CIHalf
	return s
}
