package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Group is one level of a one-way layout.
type Group struct {
	Label  string
	Values []float64
}

// ANOVATable is a one-way analysis of variance.
type ANOVATable struct {
	Groups    int     `yaml:"groups"`
	N         int     `yaml:"n"`
	DFBetween int     `yaml:"df_between"`
	DFWithin  int     `yaml:"df_within"`
	SSBetween float64 `yaml:"ss_between"`
	SSWithin  float64 `yaml:"ss_within"`
	MSBetween float64 `yaml:"ms_between"`
	MSWithin  float64 `yaml:"ms_within"`
	F         float64 `yaml:"f"`
	P         float64 `yaml:"p"`
}

// OneWayANOVA tests equality of group means. Empty groups are ignored.
func OneWayANOVA(groups []Group) (*ANOVATable, error) {
	groups = nonEmpty(groups)
	if len(groups) < 2 {
		return nil, fmt.Errorf("%w: %d non-empty groups", ErrTooFewGroups, len(groups))
	}

	var n int
	var grand float64
	for _, g := range groups {
		for _, v := range g.Values {
			grand += v
		}
		n += len(g.Values)
	}
	if n <= len(groups) {
		return nil, fmt.Errorf("%w: n=%d for %d groups", ErrTooFewObs, n, len(groups))
	}
	grand /= float64(n)

	t := &ANOVATable{Groups: len(groups), N: n, DFBetween: len(groups) - 1, DFWithin: n - len(groups)}
	for _, g := range groups {
		m := mean(g.Values)
		t.SSBetween += float64(len(g.Values)) * (m - grand) * (m - grand)
		for _, v := range g.Values {
			t.SSWithin += (v - m) * (v - m)
		}
	}
	t.MSBetween = t.SSBetween / float64(t.DFBetween)
	t.MSWithin = t.SSWithin / float64(t.DFWithin)
	if t.MSWithin > 0 {
		t.F = t.MSBetween / t.MSWithin
		t.P = distuv.F{D1: float64(t.DFBetween), D2: float64(t.DFWithin)}.Survival(t.F)
	} else {
		t.F, t.P = math.Inf(1), 0
	}
	return t, nil
}

// TermTest is one row of a sequential ANOVA table.
type TermTest struct {
	Term string  `yaml:"term"`
	DF   int     `yaml:"df"`
	SS   float64 `yaml:"ss"`
	MS   float64 `yaml:"ms"`
	F    float64 `yaml:"f"`
	P    float64 `yaml:"p"`
}

// SequentialANOVA computes type I sums of squares by adding the design's
// terms one at a time. The last row is the residual.
func SequentialANOVA(y []float64, d *Design) ([]TermTest, error) {
	full, err := FitOLS(y, d)
	if err != nil {
		return nil, err
	}
	s2 := full.RSS / float64(full.DFResid)
	fd := distuv.F{D1: 1, D2: float64(full.DFResid)}

	my := mean(y)
	prevRSS := 0.0
	for _, v := range y {
		prevRSS += (v - my) * (v - my)
	}
	prevP := 1

	var rows []TermTest
	for k := 2; k <= len(d.Terms); k++ {
		sub := d.Leading(k)
		fit, err := FitOLS(y, sub)
		if err != nil {
			return nil, fmt.Errorf("term %s: %w", d.Terms[k-1].Name, err)
		}
		row := TermTest{Term: d.Terms[k-1].Name, DF: fit.P - prevP, SS: prevRSS - fit.RSS}
		if row.DF > 0 {
			row.MS = row.SS / float64(row.DF)
			row.F = row.MS / s2
			fd.D1 = float64(row.DF)
			row.P = fd.Survival(row.F)
		}
		rows = append(rows, row)
		prevRSS, prevP = fit.RSS, fit.P
	}
	rows = append(rows, TermTest{Term: "Residuals", DF: full.DFResid, SS: full.RSS, MS: s2, F: math.NaN(), P: math.NaN()})
	return rows, nil
}

func nonEmpty(groups []Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Values) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
