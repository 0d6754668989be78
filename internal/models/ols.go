package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coef is one estimated fixed effect.
type Coef struct {
	Name     string  `yaml:"name"`
	Estimate float64 `yaml:"estimate"`
	SE       float64 `yaml:"se"`
	// Stat is t for linear models and z for mixed models.
	Stat float64 `yaml:"stat"`
	P    float64 `yaml:"p"`
}

// OLSFit is an ordinary least squares fit.
type OLSFit struct {
	Coefs   []Coef  `yaml:"coefficients"`
	N       int     `yaml:"n"`
	P       int     `yaml:"p"`
	DFResid int     `yaml:"df_residual"`
	RSS     float64 `yaml:"rss"`
	Sigma   float64 `yaml:"sigma"`
	R2      float64 `yaml:"r_squared"`
	AdjR2   float64 `yaml:"adj_r_squared"`
	F       float64 `yaml:"f"`
	FP      float64 `yaml:"f_p"`
	// LogLik is the maximised Gaussian log-likelihood (ML variance).
	LogLik float64 `yaml:"log_lik"`
	AIC    float64 `yaml:"aic"`

	Fitted []float64 `yaml:"-"`
	Resid  []float64 `yaml:"-"`
}

// crossProducts returns XᵀX as a symmetric matrix and Xᵀy.
func crossProducts(x mat.Matrix, y *mat.VecDense) (*mat.SymDense, *mat.VecDense) {
	_, p := x.Dims()
	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	xty := mat.NewVecDense(p, nil)
	xty.MulVec(x.T(), y)
	return xtx, xty
}

// FitOLS regresses y on the design columns.
func FitOLS(y []float64, d *Design) (*OLSFit, error) {
	n, p := d.X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d responses for %d design rows", ErrDimensionMismatch, len(y), n)
	}
	if n <= p {
		return nil, fmt.Errorf("%w: n=%d, p=%d", ErrTooFewObs, n, p)
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	xtx, xty := crossProducts(d.X, yv)

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return nil, ErrSingular
	}
	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, xty); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(d.X, beta)

	fit := &OLSFit{N: n, P: p, DFResid: n - p, Fitted: make([]float64, n), Resid: make([]float64, n)}
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	var tss float64
	for i := 0; i < n; i++ {
		fit.Fitted[i] = fitted.AtVec(i)
		fit.Resid[i] = y[i] - fit.Fitted[i]
		fit.RSS += fit.Resid[i] * fit.Resid[i]
		tss += (y[i] - mean) * (y[i] - mean)
	}

	df := float64(fit.DFResid)
	s2 := fit.RSS / df
	fit.Sigma = math.Sqrt(s2)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	fit.Coefs = make([]Coef, p)
	for j := 0; j < p; j++ {
		c := Coef{Name: d.Names[j], Estimate: beta.AtVec(j), SE: math.Sqrt(s2 * inv.At(j, j))}
		c.Stat = c.Estimate / c.SE
		c.P = 2 * t.Survival(math.Abs(c.Stat))
		fit.Coefs[j] = c
	}

	if tss > 0 {
		fit.R2 = 1 - fit.RSS/tss
		fit.AdjR2 = 1 - (1-fit.R2)*float64(n-1)/df
	}
	if p > 1 {
		dfModel := float64(p - 1)
		fit.F = ((tss - fit.RSS) / dfModel) / s2
		fit.FP = distuv.F{D1: dfModel, D2: df}.Survival(fit.F)
	} else {
		fit.F, fit.FP = math.NaN(), math.NaN()
	}

	fn := float64(n)
	fit.LogLik = -fn / 2 * (math.Log(2*math.Pi*fit.RSS/fn) + 1)
	fit.AIC = -2*fit.LogLik + 2*float64(p+1)
	return fit, nil
}

// Coef returns the named coefficient.
func (f *OLSFit) Coef(name string) (Coef, bool) {
	return findCoef(f.Coefs, name)
}

func findCoef(coefs []Coef, name string) (Coef, bool) {
	for _, c := range coefs {
		if c.Name == name {
			return c, true
		}
	}
	return Coef{}, false
}
