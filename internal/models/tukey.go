package models

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// Contrast is one pairwise difference B - A between group means.
type Contrast struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Diff  float64 `yaml:"diff"`
	SE    float64 `yaml:"se"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
	// Stat is the studentized range q for Tukey and t for pairwise t tests.
	Stat float64 `yaml:"stat"`
	P    float64 `yaml:"p_adj"`
}

// Label renders the contrast as "B-A".
func (c Contrast) Label() string {
	return c.B + "-" + c.A
}

// PostHoc is a family of pairwise contrasts.
type PostHoc struct {
	Method     string     `yaml:"method"`
	Confidence float64    `yaml:"confidence"`
	DF         int        `yaml:"df"`
	Contrasts  []Contrast `yaml:"contrasts"`
}

// Adjustment methods for PairwiseT.
const (
	AdjustNone       = "none"
	AdjustBonferroni = "bonferroni"
	AdjustHolm       = "holm"
)

const (
	quadNodes   = 20
	tukeyDFInf  = 5000
	normalLimit = 8.0
)

var unitNormal = distuv.Normal{Mu: 0, Sigma: 1}

// integrate applies fixed Gauss-Legendre quadrature over equal panels.
func integrate(f func(float64) float64, a, b float64, panels int) float64 {
	if b <= a {
		return 0
	}
	w := (b - a) / float64(panels)
	var sum float64
	for i := 0; i < panels; i++ {
		lo := a + float64(i)*w
		sum += quad.Fixed(f, lo, lo+w, quadNodes, quad.Legendre{}, 1)
	}
	return sum
}

// rangeCDF is P(R ≤ w) for the range R of k independent standard normals.
func rangeCDF(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	kf := float64(k)
	f := func(z float64) float64 {
		d := unitNormal.CDF(z) - unitNormal.CDF(z-w)
		if d <= 0 {
			return 0
		}
		return unitNormal.Prob(z) * math.Pow(d, kf-1)
	}
	return kf * integrate(f, -normalLimit, normalLimit, 16)
}

// StudentizedRangeCDF is P(Q ≤ q) for the studentized range of k means with
// df error degrees of freedom.
func StudentizedRangeCDF(q float64, k int, df float64) float64 {
	if q <= 0 || k < 2 {
		return 0
	}
	if math.IsInf(df, 1) || df > tukeyDFInf {
		return clamp01(rangeCDF(q, k))
	}

	// Density of s = sqrt(chi2(df)/df).
	lg, _ := math.Lgamma(df / 2)
	logc := df/2*math.Log(df) - lg - (df/2-1)*math.Ln2
	g := func(s float64) float64 {
		if s <= 0 {
			return 0
		}
		return math.Exp(logc+(df-1)*math.Log(s)-df*s*s/2) * rangeCDF(q*s, k)
	}
	spread := 12 / math.Sqrt(2*df)
	return clamp01(integrate(g, math.Max(0, 1-spread), 1+spread, 24))
}

// StudentizedRangeQuantile inverts StudentizedRangeCDF by bisection.
func StudentizedRangeQuantile(p float64, k int, df float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return math.Inf(1)
	}
	lo, hi := 0.0, 8.0
	for StudentizedRangeCDF(hi, k, df) < p {
		lo, hi = hi, hi*2
		if hi > 1e4 {
			return math.Inf(1)
		}
	}
	for i := 0; i < 60 && hi-lo > 1e-7; i++ {
		mid := (lo + hi) / 2
		if StudentizedRangeCDF(mid, k, df) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// TukeyHSD compares every pair of groups with Tukey-Kramer intervals.
func TukeyHSD(groups []Group, confidence float64) (*PostHoc, error) {
	tab, err := OneWayANOVA(groups)
	if err != nil {
		return nil, err
	}
	groups = nonEmpty(groups)
	k := len(groups)
	df := float64(tab.DFWithin)
	qcrit := StudentizedRangeQuantile(confidence, k, df)

	ph := &PostHoc{Method: "tukey", Confidence: confidence, DF: tab.DFWithin}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			a, b := groups[i], groups[j]
			c := Contrast{A: a.Label, B: b.Label, Diff: mean(b.Values) - mean(a.Values)}
			c.SE = math.Sqrt(tab.MSWithin / 2 * (1/float64(len(a.Values)) + 1/float64(len(b.Values))))
			c.Lower = c.Diff - qcrit*c.SE
			c.Upper = c.Diff + qcrit*c.SE
			c.Stat = math.Abs(c.Diff) / c.SE
			c.P = clamp01(1 - StudentizedRangeCDF(c.Stat, k, df))
			ph.Contrasts = append(ph.Contrasts, c)
		}
	}
	return ph, nil
}

// PairwiseT runs pooled-variance t tests for every pair of groups and adjusts
// the p-values for multiplicity.
func PairwiseT(groups []Group, confidence float64, adjust string) (*PostHoc, error) {
	adjust = strings.ToLower(adjust)
	switch adjust {
	case AdjustNone, AdjustBonferroni, AdjustHolm:
	default:
		return nil, fmt.Errorf("models: unknown p-value adjustment %q", adjust)
	}
	tab, err := OneWayANOVA(groups)
	if err != nil {
		return nil, err
	}
	groups = nonEmpty(groups)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(tab.DFWithin)}
	tcrit := t.Quantile(0.5 + confidence/2)

	ph := &PostHoc{Method: "t-" + adjust, Confidence: confidence, DF: tab.DFWithin}
	var raw []float64
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			a, b := groups[i], groups[j]
			c := Contrast{A: a.Label, B: b.Label, Diff: mean(b.Values) - mean(a.Values)}
			c.SE = math.Sqrt(tab.MSWithin * (1/float64(len(a.Values)) + 1/float64(len(b.Values))))
			c.Lower = c.Diff - tcrit*c.SE
			c.Upper = c.Diff + tcrit*c.SE
			c.Stat = c.Diff / c.SE
			raw = append(raw, 2*t.Survival(math.Abs(c.Stat)))
			ph.Contrasts = append(ph.Contrasts, c)
		}
	}
	for i, p := range AdjustP(raw, adjust) {
		ph.Contrasts[i].P = p
	}
	return ph, nil
}

// AdjustP applies a multiplicity correction to p-values.
func AdjustP(p []float64, method string) []float64 {
	m := float64(len(p))
	out := make([]float64, len(p))
	switch method {
	case AdjustBonferroni:
		for i, v := range p {
			out[i] = math.Min(1, v*m)
		}
	case AdjustHolm:
		order := make([]int, len(p))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return p[order[a]] < p[order[b]] })
		running := 0.0
		for rank, i := range order {
			adj := math.Min(1, (m-float64(rank))*p[i])
			running = math.Max(running, adj)
			out[i] = running
		}
	default:
		copy(out, p)
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
