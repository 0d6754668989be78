package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Factor is a categorical predictor. Levels[0] is the reference level.
type Factor struct {
	Name   string
	Levels []string
	Values []string
}

// Term groups the design columns contributed by one model term.
type Term struct {
	Name string
	Cols []int
}

// Design is a model matrix with named columns.
type Design struct {
	X     *mat.Dense
	Names []string
	// Terms[0] is always the intercept.
	Terms []Term
}

const interceptName = "(Intercept)"

type column struct {
	name string
	term int
	v    []float64
}

// InterceptOnly returns the n×1 design of a null model.
func InterceptOnly(n int) *Design {
	d, _ := NewDesign(n, nil, false)
	return d
}

// NewDesign builds an intercept plus treatment-coded (dummy) columns for each
// factor. With interaction set, products of the first two factors' dummies
// are appended. Columns that are zero for every observation (empty cells) are
// dropped.
func NewDesign(n int, factors []Factor, interaction bool) (*Design, error) {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	cols := []column{{name: interceptName, term: 0, v: ones}}
	termNames := []string{interceptName}

	dummies := make([][]column, len(factors))
	for fi, f := range factors {
		if len(f.Values) != n {
			return nil, fmt.Errorf("%w: factor %s has %d values, want %d", ErrDimensionMismatch, f.Name, len(f.Values), n)
		}
		pos := make(map[string]int, len(f.Levels))
		for i, l := range f.Levels {
			pos[l] = i
		}
		term := len(termNames)
		termNames = append(termNames, f.Name)
		for li := 1; li < len(f.Levels); li++ {
			dummies[fi] = append(dummies[fi], column{name: f.Name + f.Levels[li], term: term, v: make([]float64, n)})
		}
		for i, val := range f.Values {
			li, ok := pos[val]
			if !ok {
				return nil, fmt.Errorf("models: factor %s: unknown level %q", f.Name, val)
			}
			if li > 0 {
				dummies[fi][li-1].v[i] = 1
			}
		}
		cols = append(cols, dummies[fi]...)
	}

	if interaction && len(factors) >= 2 {
		term := len(termNames)
		termNames = append(termNames, factors[0].Name+":"+factors[1].Name)
		for _, a := range dummies[0] {
			for _, b := range dummies[1] {
				c := column{name: a.name + ":" + b.name, term: term, v: make([]float64, n)}
				for i := range c.v {
					c.v[i] = a.v[i] * b.v[i]
				}
				cols = append(cols, c)
			}
		}
	}

	kept := cols[:0]
	for _, c := range cols {
		if nonZero(c.v) {
			kept = append(kept, c)
		}
	}

	p := len(kept)
	data := make([]float64, n*p)
	d := &Design{Names: make([]string, p)}
	d.Terms = make([]Term, len(termNames))
	for i, name := range termNames {
		d.Terms[i].Name = name
	}
	for j, c := range kept {
		d.Names[j] = c.name
		d.Terms[c.term].Cols = append(d.Terms[c.term].Cols, j)
		for i, v := range c.v {
			data[i*p+j] = v
		}
	}
	if n == 0 || p == 0 {
		return nil, fmt.Errorf("%w: empty design", ErrTooFewObs)
	}
	d.X = mat.NewDense(n, p, data)

	// Terms with every column dropped carry no information.
	terms := d.Terms[:0]
	for _, t := range d.Terms {
		if len(t.Cols) > 0 {
			terms = append(terms, t)
		}
	}
	d.Terms = terms
	return d, nil
}

func nonZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return true
		}
	}
	return false
}

// Rows returns the number of observations.
func (d *Design) Rows() int {
	r, _ := d.X.Dims()
	return r
}

// Cols returns the number of coefficients.
func (d *Design) Cols() int {
	_, c := d.X.Dims()
	return c
}

// Term looks up a term by name.
func (d *Design) Term(name string) (Term, bool) {
	for _, t := range d.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// Leading returns the design made of the first k terms.
func (d *Design) Leading(k int) *Design {
	if k >= len(d.Terms) {
		return d
	}
	var cols []int
	out := &Design{Terms: make([]Term, k)}
	for i := 0; i < k; i++ {
		t := Term{Name: d.Terms[i].Name}
		for _, c := range d.Terms[i].Cols {
			t.Cols = append(t.Cols, len(cols))
			cols = append(cols, c)
			out.Names = append(out.Names, d.Names[c])
		}
		out.Terms[i] = t
	}
	n := d.Rows()
	x := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < n; i++ {
			x.Set(i, j, d.X.At(i, c))
		}
	}
	out.X = x
	return out
}
