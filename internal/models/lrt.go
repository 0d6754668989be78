package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LRTest is a likelihood-ratio test between nested models.
type LRTest struct {
	Name       string  `yaml:"name"`
	LogLikNull float64 `yaml:"log_lik_null"`
	LogLikFull float64 `yaml:"log_lik_full"`
	Stat       float64 `yaml:"chi2"`
	DF         int     `yaml:"df"`
	P          float64 `yaml:"p"`
}

// LikelihoodRatio compares two ML mixed fits that differ in fixed effects.
func LikelihoodRatio(null, full *MixedFit) (*LRTest, error) {
	if null.Method != ML || full.Method != ML {
		return nil, fmt.Errorf("%w: REML likelihoods are not comparable across fixed effects", ErrNotNested)
	}
	if null.N != full.N || full.P <= null.P {
		return nil, fmt.Errorf("%w: n %d/%d, p %d/%d", ErrNotNested, null.N, full.N, null.P, full.P)
	}
	t := &LRTest{
		Name:       "fixed effects",
		LogLikNull: null.LogLik,
		LogLikFull: full.LogLik,
		Stat:       math.Max(0, 2*(full.LogLik-null.LogLik)),
		DF:         full.P - null.P,
	}
	t.P = distuv.ChiSquared{K: float64(t.DF)}.Survival(t.Stat)
	return t, nil
}

// RandomEffectTest tests σ²_u = 0 by comparing an ML mixed fit against the
// OLS fit on the same design. The null lies on the boundary, so the p-value
// uses the 50:50 mixture of χ²₀ and χ²₁.
func RandomEffectTest(ols *OLSFit, mixed *MixedFit) (*LRTest, error) {
	if mixed.Method != ML {
		return nil, fmt.Errorf("%w: random effect test needs an ML fit", ErrNotNested)
	}
	if ols.N != mixed.N || ols.P != mixed.P {
		return nil, fmt.Errorf("%w: n %d/%d, p %d/%d", ErrNotNested, ols.N, mixed.N, ols.P, mixed.P)
	}
	t := &LRTest{
		Name:       "random intercept",
		LogLikNull: ols.LogLik,
		LogLikFull: mixed.LogLik,
		Stat:       math.Max(0, 2*(mixed.LogLik-ols.LogLik)),
		DF:         1,
		P:          1,
	}
	if t.Stat > 0 {
		t.P = 0.5 * distuv.ChiSquared{K: 1}.Survival(t.Stat)
	}
	return t, nil
}
