// Package report renders pipeline results as Markdown and as styled terminal
// tables.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jb388/ise-fahey/internal/models"
	"github.com/jb388/ise-fahey/internal/pipeline"
	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

// Alpha is the level below which p-values are highlighted.
const Alpha = 0.05

type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Signif flags rows whose test is significant at Alpha.
	Signif []bool
}

func (t *Table) add(signif bool, cells ...string) {
	t.Rows = append(t.Rows, cells)
	t.Signif = append(t.Signif, signif)
}

// Section is one heading of the report.
type Section struct {
	Title  string
	Lines  []string
	Tables []Table
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func pval(p float64) string {
	switch {
	case math.IsNaN(p):
		return "NA"
	case p < 0.001:
		return "<0.001"
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}

func stars(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	case p < 0.1:
		return "."
	}
	return ""
}

func signif(p float64) bool {
	return !math.IsNaN(p) && p < Alpha
}

func horizonName(h sample.Horizon) string {
	if h == sample.HorizonUnknown {
		return "all"
	}
	return h.String()
}

// Build lays out a result as report sections.
func Build(res *pipeline.Result) []Section {
	secs := []Section{datasetSection(res), groupSection(res)}
	if len(res.PlotDiffs) > 0 {
		secs = append(secs, plotSection(res))
	}
	if res.Linear != nil {
		secs = append(secs, linearSection(res.Linear))
	}
	for _, hr := range res.Horizons {
		secs = append(secs, horizonSection(hr))
	}
	if len(res.Warnings) > 0 {
		secs = append(secs, Section{Title: "Warnings", Lines: res.Warnings})
	}
	return secs
}

func datasetSection(res *pipeline.Result) Section {
	ds := res.Dataset
	measured := len(ds.Measured())
	return Section{
		Title: "Dataset",
		Lines: []string{
			fmt.Sprintf("Source: %s", ds.Source),
			fmt.Sprintf("Records: %d (%d measured)", len(ds.Records), measured),
			fmt.Sprintf("Treatments: %s (control: %s)", strings.Join(ds.Levels, ", "), ds.Control),
			fmt.Sprintf("Both sources present: %d; both missing: %d", ds.BothPresent, ds.BothMissing),
			fmt.Sprintf("Confidence level: %g", res.Confidence),
		},
	}
}

func statsCells(s summary.Stats) []string {
	return []string{strconv.Itoa(s.N), num(s.Mean), num(s.SD), num(s.SE), num(s.CILow), num(s.CIHigh)}
}

var statsHeaders = []string{"n", "mean", "sd", "se", "ci low", "ci high"}

func groupSection(res *pipeline.Result) Section {
	t := Table{Headers: append([]string{"treatment", "horizon"}, statsHeaders...)}
	for _, r := range res.Groups {
		t.add(false, append([]string{r.Treatment, horizonName(r.Horizon)}, statsCells(r.Stats)...)...)
	}
	return Section{Title: "Treatment by horizon summary", Tables: []Table{t}}
}

func plotSection(res *pipeline.Result) Section {
	t := Table{Headers: append([]string{"plot", "horizon", "treatment"}, statsHeaders...)}
	for _, r := range res.PlotDiffs {
		t.add(false, append([]string{strconv.Itoa(r.Plot), horizonName(r.Horizon), r.Treatment}, statsCells(r.Stats)...)...)
	}
	return Section{
		Title:  "Difference from control by plot",
		Lines:  []string{"Difference is each core's Δ14C minus the control mean of its horizon."},
		Tables: []Table{t},
	}
}

func coefTable(title, stat string, coefs []models.Coef) Table {
	t := Table{Title: title, Headers: []string{"term", "estimate", "se", stat, "p", ""}}
	for _, c := range coefs {
		t.add(signif(c.P), c.Name, num(c.Estimate), num(c.SE), num(c.Stat), pval(c.P), stars(c.P))
	}
	return t
}

func linearSection(lin *pipeline.LinearResult) Section {
	fit := lin.Fit
	sec := Section{
		Title: "Linear model",
		Lines: []string{
			fmt.Sprintf("Formula: %s", lin.Formula),
			fmt.Sprintf("n = %d, residual SE = %s on %d df", fit.N, num(fit.Sigma), fit.DFResid),
			fmt.Sprintf("R² = %s, adjusted R² = %s", num(fit.R2), num(fit.AdjR2)),
			fmt.Sprintf("F = %s on %d and %d df, p = %s", num(fit.F), fit.P-1, fit.DFResid, pval(fit.FP)),
			fmt.Sprintf("log-likelihood = %s, AIC = %s", num(fit.LogLik), num(fit.AIC)),
		},
	}
	sec.Tables = append(sec.Tables, coefTable("Coefficients", "t", fit.Coefs))

	at := Table{Title: "Sequential ANOVA", Headers: []string{"term", "df", "ss", "ms", "F", "p"}}
	for _, r := range lin.ANOVA {
		if r.Term == "Residuals" {
			at.add(false, r.Term, strconv.Itoa(r.DF), num(r.SS), num(r.MS), "", "")
			continue
		}
		at.add(signif(r.P), r.Term, strconv.Itoa(r.DF), num(r.SS), num(r.MS), num(r.F), pval(r.P))
	}
	sec.Tables = append(sec.Tables, at)
	return sec
}

func horizonSection(hr pipeline.HorizonResult) Section {
	title := strings.ToUpper(hr.Horizon.String()[:1]) + hr.Horizon.String()[1:] + " horizon"
	sec := Section{Title: title, Lines: []string{fmt.Sprintf("n = %d", hr.N)}}

	if a := hr.ANOVA; a != nil {
		sec.Lines = append(sec.Lines, fmt.Sprintf("One-way ANOVA: F(%d, %d) = %s, p = %s %s",
			a.DFBetween, a.DFWithin, num(a.F), pval(a.P), stars(a.P)))
	}
	if ph := hr.PostHoc; ph != nil {
		t := Table{
			Title:   fmt.Sprintf("Pairwise contrasts (%s, %g%% intervals)", ph.Method, ph.Confidence*100),
			Headers: []string{"contrast", "diff", "lower", "upper", "p adj", ""},
		}
		for _, c := range ph.Contrasts {
			t.add(signif(c.P), c.Label(), num(c.Diff), num(c.Lower), num(c.Upper), pval(c.P), stars(c.P))
		}
		sec.Tables = append(sec.Tables, t)
	}
	if m := hr.Mixed; m != nil {
		sec.Tables = append(sec.Tables, coefTable(fmt.Sprintf("Mixed model d14c ~ trt + (1 | plot), %s", m.Method), "z", m.Coefs))
		sec.Lines = append(sec.Lines,
			fmt.Sprintf("Random intercept: %d plots, σ(plot) = %s, σ(residual) = %s", m.Groups, num(m.SigmaU), num(m.Sigma)),
			fmt.Sprintf("%s log-likelihood = %s, AIC = %s, BIC = %s", m.Method, num(m.LogLik), num(m.AIC), num(m.BIC)),
		)
	}
	if w := hr.Wald; w != nil {
		sec.Lines = append(sec.Lines, fmt.Sprintf("Wald test (%s): χ² = %s on %d df, p = %s %s", w.Term, num(w.Chi2), w.DF, pval(w.P), stars(w.P)))
	}
	if l := hr.LRT; l != nil {
		sec.Lines = append(sec.Lines, fmt.Sprintf("Likelihood ratio (%s, ML): χ² = %s on %d df, p = %s %s", l.Name, num(l.Stat), l.DF, pval(l.P), stars(l.P)))
	}
	if re := hr.RandomEffect; re != nil {
		sec.Lines = append(sec.Lines, fmt.Sprintf("Likelihood ratio (%s, boundary): χ² = %s, p = %s", re.Name, num(re.Stat), pval(re.P)))
	}
	return sec
}
