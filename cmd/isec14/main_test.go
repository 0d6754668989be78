package main

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jb388/ise-fahey/internal/config"
)

func TestConfigureLogger(t *testing.T) {
	if err := configureLogger(true, "json"); err != nil {
		t.Fatal(err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T", logger.Formatter)
	}
	if err := configureLogger(false, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isec14.yaml")
	file := config.DefaultConfig()
	file.Confidence = 0.9
	file.PostHoc = "holm"
	if err := config.Save(path, file); err != nil {
		t.Fatal(err)
	}
	configFile = path
	t.Cleanup(func() { configFile = "" })

	cmd := &cobra.Command{Use: "test"}
	analysisFlags(cmd)
	chartFlags(cmd)
	if err := cmd.ParseFlags([]string{"--posthoc", "none", "--width", "400"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd, []string{"roots.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "roots.csv" {
		t.Errorf("input = %q", cfg.Input)
	}
	if cfg.Confidence != 0.9 {
		t.Errorf("unset flag should keep file value, got %v", cfg.Confidence)
	}
	if cfg.PostHoc != "none" || cfg.Plot.Width != 400 {
		t.Errorf("flags not applied: posthoc %q width %d", cfg.PostHoc, cfg.Plot.Width)
	}
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	analysisFlags(cmd)
	if err := cmd.ParseFlags([]string{"--mixed", "gls"}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd, nil); err == nil {
		t.Error("expected validation error")
	}
}
