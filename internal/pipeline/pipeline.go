// Package pipeline runs the analysis stages in order: load the CSV, aggregate,
// then fit the pooled linear model and the per-horizon models.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jb388/ise-fahey/internal/config"
	"github.com/jb388/ise-fahey/internal/models"
	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

var ErrNoInput = errors.New("pipeline: no input file")

type Config struct {
	Input      string
	Load       sample.Options
	Confidence float64
	Preset     config.Preset
	// PostHoc is "tukey", "holm", "bonferroni" or "none".
	PostHoc string
	// Mixed is the method of the reported mixed fit. Likelihood-ratio tests
	// always refit by ML.
	Mixed models.Method
}

// FromConfig builds a pipeline configuration from the file-level settings.
func FromConfig(c *config.Config) (Config, error) {
	preset, ok := config.GetPreset(c.Preset)
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown preset %q", config.ErrInvalid, c.Preset)
	}
	method := models.REML
	if strings.EqualFold(c.Mixed, "ml") {
		method = models.ML
	}
	return Config{
		Input:      c.Input,
		Load:       c.LoadOptions(),
		Confidence: c.Confidence,
		Preset:     preset,
		PostHoc:    strings.ToLower(c.PostHoc),
		Mixed:      method,
	}, nil
}

type Pipeline struct {
	cfg Config
	log logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	if cfg.Confidence <= 0 || cfg.Confidence >= 1 {
		cfg.Confidence = summary.DefaultConfidence
	}
	if cfg.Preset.Name == "" {
		cfg.Preset, _ = config.GetPreset(config.DefaultPreset)
	}
	if cfg.PostHoc == "" {
		cfg.PostHoc = config.DefaultPostHoc
	}
	return &Pipeline{cfg: cfg, log: log}
}

// Run loads the input file and analyses it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.cfg.Input == "" {
		return nil, ErrNoInput
	}
	start := time.Now()
	ds, err := sample.Load(p.cfg.Input, p.cfg.Load)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.cfg.Input, err)
	}
	p.log.WithFields(logrus.Fields{
		"source":  ds.Source,
		"records": len(ds.Records),
		"levels":  len(ds.Levels),
	}).Info("dataset loaded")
	for _, w := range ds.Warnings {
		p.log.Warn(w)
	}

	res, err := p.Analyze(ctx, ds)
	if err != nil {
		return nil, err
	}
	p.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("analysis complete")
	return res, nil
}

// Analyze runs every stage after loading. Model failures for one horizon are
// recorded as warnings and do not stop the run.
func (p *Pipeline) Analyze(ctx context.Context, ds *sample.Dataset) (*Result, error) {
	res := &Result{
		Dataset:    ds,
		Confidence: p.cfg.Confidence,
		Preset:     p.cfg.Preset,
		Warnings:   append([]string(nil), ds.Warnings...),
	}
	measured := ds.Measured()
	if len(measured) == 0 {
		return nil, fmt.Errorf("%w: no measured records", sample.ErrEmpty)
	}

	opt := summary.OptionsFor(ds, p.cfg.Confidence)
	res.Groups = summary.ByTreatmentHorizon(measured, opt)
	diffs, err := summary.PlotDifferences(measured, opt)
	if err != nil {
		res.warn(p.log, "plot differences: %v", err)
	}
	res.PlotDiffs = diffs
	p.log.WithFields(logrus.Fields{"groups": len(res.Groups), "plots": len(res.PlotDiffs)}).Debug("aggregated")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lin, err := p.linear(measured, ds.Levels)
	if err != nil {
		res.warn(p.log, "linear model: %v", err)
	}
	res.Linear = lin

	for _, h := range ds.Horizons() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hr := p.horizon(ds.ByHorizon(h), h, ds.Levels, res)
		res.Horizons = append(res.Horizons, hr)
	}
	return res, nil
}

func (r *Result) warn(log logrus.FieldLogger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	r.Warnings = append(r.Warnings, msg)
}

// presentLevels keeps the levels that occur in records, in level order.
func presentLevels(records []sample.Record, levels []string) []string {
	seen := map[string]bool{}
	for _, r := range records {
		seen[r.Treatment] = true
	}
	var out []string
	for _, l := range levels {
		if seen[l] {
			out = append(out, l)
		}
	}
	return out
}

func treatmentFactor(records []sample.Record, levels []string) models.Factor {
	f := models.Factor{Name: "trt", Levels: presentLevels(records, levels), Values: make([]string, len(records))}
	for i, r := range records {
		f.Values[i] = r.Treatment
	}
	return f
}

func horizonFactor(records []sample.Record) models.Factor {
	seen := map[sample.Horizon]bool{}
	f := models.Factor{Name: "hzn", Values: make([]string, len(records))}
	for i, r := range records {
		f.Values[i] = r.Horizon.Code()
		seen[r.Horizon] = true
	}
	for _, h := range sample.Horizons {
		if seen[h] {
			f.Levels = append(f.Levels, h.Code())
		}
	}
	return f
}

func response(records []sample.Record) []float64 {
	y := make([]float64, len(records))
	for i, r := range records {
		y[i] = r.D14C
	}
	return y
}

func (p *Pipeline) linear(records []sample.Record, levels []string) (*LinearResult, error) {
	factors := []models.Factor{treatmentFactor(records, levels)}
	if p.cfg.Preset.Horizon {
		factors = append(factors, horizonFactor(records))
	}
	d, err := models.NewDesign(len(records), factors, p.cfg.Preset.Interaction && len(factors) > 1)
	if err != nil {
		return nil, err
	}
	y := response(records)
	fit, err := models.FitOLS(y, d)
	if err != nil {
		return nil, err
	}
	table, err := models.SequentialANOVA(y, d)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"formula": p.cfg.Preset.Formula, "r2": fit.R2}).Debug("linear model fitted")
	return &LinearResult{Formula: p.cfg.Preset.Formula, Fit: fit, ANOVA: table}, nil
}

func (p *Pipeline) horizon(records []sample.Record, h sample.Horizon, levels []string, res *Result) HorizonResult {
	hr := HorizonResult{Horizon: h, N: len(records)}
	log := p.log.WithField("horizon", h.String())

	present := presentLevels(records, levels)
	groups := make([]models.Group, len(present))
	idx := sample.LevelIndex(present)
	for i, l := range present {
		groups[i].Label = l
	}
	for _, r := range records {
		i := idx[r.Treatment]
		groups[i].Values = append(groups[i].Values, r.D14C)
	}

	var err error
	if hr.ANOVA, err = models.OneWayANOVA(groups); err != nil {
		res.warn(log, "%s anova: %v", h, err)
	} else {
		if hr.PostHoc, err = p.postHoc(groups); err != nil {
			res.warn(log, "%s post-hoc: %v", h, err)
		}
	}

	y := response(records)
	plots := make([]string, len(records))
	for i, r := range records {
		plots[i] = fmt.Sprint(r.Plot)
	}
	d, err := models.NewDesign(len(records), []models.Factor{treatmentFactor(records, levels)}, false)
	if err != nil {
		res.warn(log, "%s design: %v", h, err)
		return hr
	}

	if hr.Mixed, err = models.FitRandomIntercept(y, d, plots, p.cfg.Mixed); err != nil {
		res.warn(log, "%s mixed model: %v", h, err)
		return hr
	}
	log.WithFields(logrus.Fields{
		"method":  hr.Mixed.Method.String(),
		"sigma_u": hr.Mixed.SigmaU,
		"sigma":   hr.Mixed.Sigma,
	}).Debug("mixed model fitted")

	if d.Cols() > 1 {
		if hr.Wald, err = hr.Mixed.Wald("trt"); err != nil {
			res.warn(log, "%s wald: %v", h, err)
		}
	}

	full, err := models.FitRandomIntercept(y, d, plots, models.ML)
	if err != nil {
		res.warn(log, "%s ML refit: %v", h, err)
		return hr
	}
	if d.Cols() > 1 {
		null, err := models.FitRandomIntercept(y, models.InterceptOnly(len(y)), plots, models.ML)
		if err != nil {
			res.warn(log, "%s null model: %v", h, err)
		} else if hr.LRT, err = models.LikelihoodRatio(null, full); err != nil {
			res.warn(log, "%s likelihood ratio: %v", h, err)
		}
	}
	if ols, err := models.FitOLS(y, d); err != nil {
		res.warn(log, "%s ols: %v", h, err)
	} else if hr.RandomEffect, err = models.RandomEffectTest(ols, full); err != nil {
		res.warn(log, "%s random effect: %v", h, err)
	}
	return hr
}

func (p *Pipeline) postHoc(groups []models.Group) (*models.PostHoc, error) {
	switch p.cfg.PostHoc {
	case "none":
		return nil, nil
	case "tukey":
		return models.TukeyHSD(groups, p.cfg.Confidence)
	default:
		return models.PairwiseT(groups, p.cfg.Confidence, p.cfg.PostHoc)
	}
}
