package pipeline

import (
	"github.com/jb388/ise-fahey/internal/config"
	"github.com/jb388/ise-fahey/internal/models"
	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

// Result holds the output of every stage of one run.
type Result struct {
	Dataset    *sample.Dataset
	Confidence float64
	Preset     config.Preset
	Groups     []summary.GroupRow
	PlotDiffs  []summary.PlotRow
	Linear     *LinearResult
	Horizons   []HorizonResult
	Warnings   []string
}

// LinearResult is the pooled fixed-effects model.
type LinearResult struct {
	Formula string            `yaml:"formula"`
	Fit     *models.OLSFit    `yaml:"fit"`
	ANOVA   []models.TermTest `yaml:"anova"`
}

// HorizonResult holds the models fitted within one soil horizon.
type HorizonResult struct {
	Horizon sample.Horizon     `yaml:"-"`
	N       int                `yaml:"n"`
	ANOVA   *models.ANOVATable `yaml:"anova,omitempty"`
	PostHoc *models.PostHoc    `yaml:"posthoc,omitempty"`
	// Mixed is d14c ~ trt + (1 | plot) by the configured method.
	Mixed *models.MixedFit `yaml:"mixed,omitempty"`
	// Wald jointly tests the treatment coefficients of Mixed.
	Wald *models.WaldTest `yaml:"wald,omitempty"`
	// LRT compares ML fits with and without treatment.
	LRT *models.LRTest `yaml:"lrt,omitempty"`
	// RandomEffect tests the plot variance against the OLS fit.
	RandomEffect *models.LRTest `yaml:"random_effect,omitempty"`
}

// ModelOutput is the serialisable model section of a Result.
type ModelOutput struct {
	Preset     string                   `yaml:"preset"`
	Confidence float64                  `yaml:"confidence"`
	Linear     *LinearResult            `yaml:"linear,omitempty"`
	Horizons   map[string]HorizonResult `yaml:"horizons"`
	Warnings   []string                 `yaml:"warnings,omitempty"`
}

// Models collects the fitted models keyed by horizon name.
func (r *Result) Models() ModelOutput {
	out := ModelOutput{
		Preset:     r.Preset.Name,
		Confidence: r.Confidence,
		Linear:     r.Linear,
		Horizons:   make(map[string]HorizonResult, len(r.Horizons)),
		Warnings:   r.Warnings,
	}
	for _, h := range r.Horizons {
		out.Horizons[h.Horizon.String()] = h
	}
	return out
}

// Horizon returns the models of one horizon.
func (r *Result) Horizon(h sample.Horizon) (HorizonResult, bool) {
	for _, hr := range r.Horizons {
		if hr.Horizon == h {
			return hr, true
		}
	}
	return HorizonResult{}, false
}
