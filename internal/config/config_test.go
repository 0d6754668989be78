package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Preset != "interaction" {
		t.Errorf("expected preset interaction, got %s", cfg.Preset)
	}
	if cfg.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", cfg.Confidence)
	}
	if cfg.Columns.Secondary != "d14c_rerun" {
		t.Errorf("unexpected secondary column %q", cfg.Columns.Secondary)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	p, ok := GetPreset("additive")
	if !ok {
		t.Fatal("expected preset")
	}
	if !p.Horizon || p.Interaction {
		t.Errorf("additive preset flags wrong: %+v", p)
	}
	if _, ok := GetPreset("quadratic"); ok {
		t.Error("unexpected preset")
	}
	names := ListPresets()
	if len(names) != 3 || names[0] != "additive" {
		t.Errorf("unexpected preset list %v", names)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isec14.yaml")
	cfg := DefaultConfig()
	cfg.Input = "roots.csv"
	cfg.Confidence = 0.9
	cfg.Levels = []string{"control", "0.75"}
	cfg.Plot.Format = "svg"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Input != "roots.csv" || got.Confidence != 0.9 || got.Plot.Format != "svg" {
		t.Errorf("round trip lost values: %+v", got)
	}
	if len(got.Levels) != 2 || got.Levels[1] != "0.75" {
		t.Errorf("levels = %v", got.Levels)
	}
	if got.Columns.Primary != "d14c" {
		t.Errorf("columns default lost: %+v", got.Columns)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isec14.yaml")
	if err := os.WriteFile(path, []byte("preset: treatment\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ISEC14_CONFIDENCE", "0.8")
	t.Setenv("ISEC14_PLOT_WIDTH", "300")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Preset != "treatment" {
		t.Errorf("file value lost: %s", cfg.Preset)
	}
	if cfg.Confidence != 0.8 {
		t.Errorf("env confidence = %v", cfg.Confidence)
	}
	if cfg.Plot.Width != 300 {
		t.Errorf("env plot width = %d", cfg.Plot.Width)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"confidence", "confidence: 1.5\n"},
		{"preset", "preset: cubic\n"},
		{"posthoc", "posthoc: scheffe\n"},
		{"format", "plot:\n  format: gif\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "isec14.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IDSeparator = "_"
	cfg.Columns.Primary = "delta"
	opt := cfg.LoadOptions()
	if opt.Separator != "_" || opt.Columns.Primary != "delta" || opt.Control != "control" {
		t.Errorf("unexpected options %+v", opt)
	}
}
