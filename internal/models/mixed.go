package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects the likelihood maximised by FitRandomIntercept.
type Method int

const (
	ML Method = iota
	REML
)

func (m Method) String() string {
	if m == REML {
		return "REML"
	}
	return "ML"
}

// MarshalYAML writes the method name.
func (m Method) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// Bounds on log(σ²_u/σ²) searched by the optimiser.
const (
	minLogRatio = -30.0
	maxLogRatio = 15.0
)

// MixedFit is a linear model with a random intercept per group:
// y = Xβ + u[group] + ε, u ~ N(0, σ²_u), ε ~ N(0, σ²).
type MixedFit struct {
	Method Method  `yaml:"method"`
	Coefs  []Coef  `yaml:"coefficients"`
	SigmaU float64 `yaml:"sigma_group"`
	Sigma  float64 `yaml:"sigma_residual"`
	// Ratio is σ²_u / σ².
	Ratio  float64 `yaml:"variance_ratio"`
	LogLik float64 `yaml:"log_lik"`
	AIC    float64 `yaml:"aic"`
	BIC    float64 `yaml:"bic"`
	N      int     `yaml:"n"`
	Groups int     `yaml:"groups"`
	P      int     `yaml:"p"`

	design *Design
	cov    *mat.SymDense
}

type cluster struct {
	n   int
	idx []int
}

type mixedProblem struct {
	y      []float64
	x      *mat.Dense
	method Method
	groups []cluster
	xtx    *mat.SymDense
	xty    *mat.VecDense
	// s[i] = X_iᵀ1 and t[i] = 1ᵀy_i for each group.
	s []*mat.VecDense
	t []float64
}

type profile struct {
	beta   *mat.VecDense
	ainv   *mat.SymDense
	sigma2 float64
	loglik float64
}

// FitRandomIntercept fits the mixed model by profiling the variance ratio
// θ = σ²_u/σ² and maximising the ML or REML log-likelihood over log θ.
func FitRandomIntercept(y []float64, d *Design, groups []string, method Method) (*MixedFit, error) {
	n, p := d.X.Dims()
	if len(y) != n || len(groups) != n {
		return nil, fmt.Errorf("%w: y=%d, groups=%d, design rows=%d", ErrDimensionMismatch, len(y), len(groups), n)
	}
	if n <= p+1 {
		return nil, fmt.Errorf("%w: n=%d, p=%d", ErrTooFewObs, n, p)
	}

	pr := &mixedProblem{y: y, x: d.X, method: method}
	pos := map[string]int{}
	for i, g := range groups {
		j, ok := pos[g]
		if !ok {
			j = len(pr.groups)
			pos[g] = j
			pr.groups = append(pr.groups, cluster{})
		}
		pr.groups[j].n++
		pr.groups[j].idx = append(pr.groups[j].idx, i)
	}
	if len(pr.groups) < 2 {
		return nil, fmt.Errorf("%w: %d groups", ErrTooFewGroups, len(pr.groups))
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	pr.xtx, pr.xty = crossProducts(d.X, yv)
	for _, g := range pr.groups {
		s := mat.NewVecDense(p, nil)
		var t float64
		for _, i := range g.idx {
			for j := 0; j < p; j++ {
				s.SetVec(j, s.AtVec(j)+d.X.At(i, j))
			}
			t += y[i]
		}
		pr.s = append(pr.s, s)
		pr.t = append(pr.t, t)
	}

	best, theta, err := pr.maximise()
	if err != nil {
		return nil, err
	}

	fit := &MixedFit{
		Method: method,
		Sigma:  math.Sqrt(best.sigma2),
		SigmaU: math.Sqrt(theta * best.sigma2),
		Ratio:  theta,
		LogLik: best.loglik,
		N:      n,
		Groups: len(pr.groups),
		P:      p,
		design: d,
		cov:    mat.NewSymDense(p, nil),
	}
	fit.cov.ScaleSym(best.sigma2, best.ainv)

	fit.Coefs = make([]Coef, p)
	for j := 0; j < p; j++ {
		c := Coef{Name: d.Names[j], Estimate: best.beta.AtVec(j), SE: math.Sqrt(fit.cov.At(j, j))}
		c.Stat = c.Estimate / c.SE
		c.P = 2 * unitNormal.Survival(math.Abs(c.Stat))
		fit.Coefs[j] = c
	}

	k := float64(p + 2)
	nEff := float64(n)
	if method == REML {
		nEff = float64(n - p)
	}
	fit.AIC = -2*fit.LogLik + 2*k
	fit.BIC = -2*fit.LogLik + math.Log(nEff)*k
	return fit, nil
}

// maximise searches log θ with Nelder-Mead from the best point of a coarse
// grid, then compares against the boundary θ = 0.
func (pr *mixedProblem) maximise() (*profile, float64, error) {
	objective := func(x []float64) float64 {
		lr := math.Max(minLogRatio, math.Min(maxLogRatio, x[0]))
		prof, err := pr.evaluate(math.Exp(lr))
		if err != nil {
			return math.Inf(1)
		}
		return -prof.loglik
	}

	start, startF := 0.0, math.Inf(1)
	for lr := -10.0; lr <= 6; lr++ {
		if f := objective([]float64{lr}); f < startF {
			start, startF = lr, f
		}
	}

	theta := math.Exp(start)
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, []float64{start}, nil, &optimize.NelderMead{})
	if err == nil && res.F <= startF {
		theta = math.Exp(math.Max(minLogRatio, math.Min(maxLogRatio, res.X[0])))
	}

	best, err := pr.evaluate(theta)
	if err != nil {
		return nil, 0, err
	}
	if zero, err := pr.evaluate(0); err == nil && zero.loglik >= best.loglik {
		return zero, 0, nil
	}
	return best, theta, nil
}

// evaluate computes the profiled log-likelihood at θ. With
// W_i = I - c_i 11ᵀ and c_i = θ/(1+n_iθ), V_i = σ²(I + θ11ᵀ) has
// V_i⁻¹ = W_i/σ² and |V_i| = σ^(2n_i)(1+n_iθ).
func (pr *mixedProblem) evaluate(theta float64) (*profile, error) {
	p := pr.xty.Len()
	a := mat.NewSymDense(p, nil)
	a.CopySym(pr.xtx)
	b := mat.NewVecDense(p, nil)
	b.CopyVec(pr.xty)

	var logdet float64
	for i, g := range pr.groups {
		c := theta / (1 + float64(g.n)*theta)
		a.SymRankOne(a, -c, pr.s[i])
		b.AddScaledVec(b, -c*pr.t[i], pr.s[i])
		logdet += math.Log1p(float64(g.n) * theta)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, ErrSingular
	}
	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	ainv := mat.NewSymDense(p, nil)
	if err := chol.InverseTo(ainv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var q float64
	for _, g := range pr.groups {
		c := theta / (1 + float64(g.n)*theta)
		var rr, rsum float64
		for _, i := range g.idx {
			r := pr.y[i] - mat.Dot(pr.x.RowView(i), beta)
			rr += r * r
			rsum += r
		}
		q += rr - c*rsum*rsum
	}

	n := float64(len(pr.y))
	prof := &profile{beta: beta, ainv: ainv}
	switch pr.method {
	case REML:
		df := n - float64(p)
		prof.sigma2 = q / df
		prof.loglik = -df/2*(math.Log(2*math.Pi*prof.sigma2)+1) - logdet/2 - chol.LogDet()/2
	default:
		prof.sigma2 = q / n
		prof.loglik = -n/2*(math.Log(2*math.Pi*prof.sigma2)+1) - logdet/2
	}
	if prof.sigma2 <= 0 || math.IsNaN(prof.loglik) {
		return nil, fmt.Errorf("%w: degenerate residual variance", ErrSingular)
	}
	return prof, nil
}

// Coef returns the named fixed effect.
func (f *MixedFit) Coef(name string) (Coef, bool) {
	return findCoef(f.Coefs, name)
}

// Design returns the fixed-effect design the model was fitted on.
func (f *MixedFit) Design() *Design {
	return f.design
}

// WaldTest is a joint χ² test that a set of coefficients is zero.
type WaldTest struct {
	Term string  `yaml:"term"`
	Chi2 float64 `yaml:"chi2"`
	DF   int     `yaml:"df"`
	P    float64 `yaml:"p"`
}

// Wald tests the coefficients of the named term.
func (f *MixedFit) Wald(term string) (*WaldTest, error) {
	t, ok := f.design.Term(term)
	if !ok {
		return nil, fmt.Errorf("models: no term %q in design", term)
	}
	k := len(t.Cols)
	beta := mat.NewVecDense(k, nil)
	cov := mat.NewSymDense(k, nil)
	for a, ca := range t.Cols {
		beta.SetVec(a, f.Coefs[ca].Estimate)
		for b := a; b < k; b++ {
			cov.SetSym(a, b, f.cov.At(ca, t.Cols[b]))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, ErrSingular
	}
	sol := mat.NewVecDense(k, nil)
	if err := chol.SolveVecTo(sol, beta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	w := &WaldTest{Term: term, DF: k, Chi2: mat.Dot(beta, sol)}
	w.P = distuv.ChiSquared{K: float64(k)}.Survival(w.Chi2)
	return w, nil
}
