package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jb388/ise-fahey/internal/config"
	"github.com/jb388/ise-fahey/internal/models"
	"github.com/jb388/ise-fahey/internal/sample"
)

const fixtureCSV = `trt,hzn,plot,rep,d14c,d14c_rerun
control,O,1,1,60,NA
control,O,1,2,62,NA
control,O,2,1,58,NA
control,O,2,2,NA,64
0.25,O,3,1,50,NA
0.25,O,3,2,52,NA
0.25,O,4,1,47,NA
0.25,O,4,2,49,NA
0.75,O,5,1,40,NA
0.75,O,5,2,44,NA
0.75,O,6,1,38,NA
0.75,O,6,2,41,NA
control,M,1,1,30,NA
control,M,1,2,33,NA
control,M,2,1,28,NA
control,M,2,2,31,NA
0.25,M,3,1,25,NA
0.25,M,3,2,22,NA
0.25,M,4,1,20,NA
0.25,M,4,2,24,NA
0.75,M,5,1,15,NA
0.75,M,5,2,18,NA
0.75,M,6,1,12,NA
0.75,M,6,2,NA,16
`

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roots.csv")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T, body string) Config {
	cfg, err := FromConfig(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Input = writeFixture(t, body)
	return cfg
}

func TestRun(t *testing.T) {
	res, err := New(testConfig(t, fixtureCSV), quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Dataset.Records) != 24 {
		t.Errorf("records = %d", len(res.Dataset.Records))
	}
	if len(res.Groups) != 6 {
		t.Errorf("groups = %d, want 6", len(res.Groups))
	}
	if len(res.PlotDiffs) != 12 {
		t.Errorf("plot diffs = %d, want 12", len(res.PlotDiffs))
	}
	if res.Linear == nil || res.Linear.Formula != "d14c ~ trt * hzn" {
		t.Fatalf("linear = %+v", res.Linear)
	}
	// intercept, two treatments, horizon, two interactions
	if got := len(res.Linear.Fit.Coefs); got != 6 {
		t.Errorf("linear coefficients = %d, want 6", got)
	}
	if len(res.Horizons) != 2 {
		t.Fatalf("horizons = %d", len(res.Horizons))
	}

	for _, hr := range res.Horizons {
		if hr.N != 12 {
			t.Errorf("%s: n = %d", hr.Horizon, hr.N)
		}
		if hr.ANOVA == nil || hr.ANOVA.P > 0.01 {
			t.Errorf("%s: anova = %+v", hr.Horizon, hr.ANOVA)
		}
		if hr.PostHoc == nil || len(hr.PostHoc.Contrasts) != 3 || hr.PostHoc.Method != "tukey" {
			t.Errorf("%s: posthoc = %+v", hr.Horizon, hr.PostHoc)
		}
		if hr.Mixed == nil || hr.Mixed.Method != models.REML || hr.Mixed.Groups != 6 {
			t.Errorf("%s: mixed = %+v", hr.Horizon, hr.Mixed)
		}
		if hr.Wald == nil || hr.Wald.DF != 2 {
			t.Errorf("%s: wald = %+v", hr.Horizon, hr.Wald)
		}
		if hr.LRT == nil || hr.LRT.DF != 2 || hr.LRT.P > 0.05 {
			t.Errorf("%s: lrt = %+v", hr.Horizon, hr.LRT)
		}
		if hr.RandomEffect == nil {
			t.Errorf("%s: random effect test missing", hr.Horizon)
		}
	}

	org, ok := res.Horizon(sample.Organic)
	if !ok {
		t.Fatal("no organic result")
	}
	c, ok := org.Mixed.Coef("trt0.75")
	if !ok || c.Estimate > -10 {
		t.Errorf("0.75 effect = %+v", c)
	}
}

func TestRunPostHocAdjustment(t *testing.T) {
	cfg := testConfig(t, fixtureCSV)
	cfg.PostHoc = "holm"
	res, err := New(cfg, quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ph := res.Horizons[0].PostHoc; ph == nil || ph.Method != "t-holm" {
		t.Errorf("posthoc = %+v", ph)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(t, fixtureCSV), quietLogger()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunNoInput(t *testing.T) {
	_, err := New(Config{}, quietLogger()).Run(context.Background())
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestMissingControlIsWarning(t *testing.T) {
	var b strings.Builder
	for _, line := range strings.Split(fixtureCSV, "\n") {
		if strings.HasPrefix(line, "control,M") {
			continue
		}
		b.WriteString(line + "\n")
	}
	res, err := New(testConfig(t, b.String()), quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.PlotDiffs != nil {
		t.Errorf("expected no plot differences, got %d", len(res.PlotDiffs))
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "plot differences") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", res.Warnings)
	}
	mineral, ok := res.Horizon(sample.Mineral)
	if !ok || mineral.Mixed == nil {
		t.Fatal("mineral models should still be fitted")
	}
	if _, ok := mineral.Mixed.Coef("trt0.75"); !ok {
		t.Error("reference level should fall back to 0.25")
	}
}

func TestModelsOutput(t *testing.T) {
	res, err := New(testConfig(t, fixtureCSV), quietLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := res.Models()
	if out.Preset != "interaction" {
		t.Errorf("preset = %q", out.Preset)
	}
	if _, ok := out.Horizons["organic"]; !ok {
		t.Errorf("horizons = %v", out.Horizons)
	}
}

func TestFromConfigRejectsPreset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Preset = "spline"
	if _, err := FromConfig(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
