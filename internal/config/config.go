package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jb388/ise-fahey/internal/sample"
)

const (
	DefaultDataDir    = ".isec14"
	DefaultConfidence = 0.95
	DefaultPreset     = "interaction"
	DefaultPostHoc    = "tukey"
	DefaultMixed      = "reml"
	DefaultFormat     = "png"
	DefaultWidth      = 1024
	DefaultHeight     = 640
	DefaultJitter     = 0.15
	EnvPrefix         = "ISEC14"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Input       string        `mapstructure:"input" yaml:"input"`
	DataDir     string        `mapstructure:"data_dir" yaml:"data_dir"`
	Columns     ColumnsConfig `mapstructure:"columns" yaml:"columns"`
	IDSeparator string        `mapstructure:"id_separator" yaml:"id_separator"`
	Control     string        `mapstructure:"control" yaml:"control"`
	Levels      []string      `mapstructure:"levels" yaml:"levels"`
	Confidence  float64       `mapstructure:"confidence" yaml:"confidence"`
	Preset      string        `mapstructure:"preset" yaml:"preset"`
	PostHoc     string        `mapstructure:"posthoc" yaml:"posthoc"`
	Mixed       string        `mapstructure:"mixed_method" yaml:"mixed_method"`
	Theme       string        `mapstructure:"theme" yaml:"theme"`
	Plot        PlotConfig    `mapstructure:"plot" yaml:"plot"`
}

type ColumnsConfig struct {
	Treatment string `mapstructure:"treatment" yaml:"treatment"`
	Horizon   string `mapstructure:"horizon" yaml:"horizon"`
	Plot      string `mapstructure:"plot" yaml:"plot"`
	Replicate string `mapstructure:"replicate" yaml:"replicate"`
	Primary   string `mapstructure:"primary" yaml:"primary"`
	Secondary string `mapstructure:"secondary" yaml:"secondary"`
}

type PlotConfig struct {
	Format string  `mapstructure:"format" yaml:"format"`
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	Seed   int64   `mapstructure:"seed" yaml:"seed"`
	Jitter float64 `mapstructure:"jitter" yaml:"jitter"`
}

func DefaultConfig() *Config {
	load := sample.DefaultOptions()
	return &Config{
		DataDir: DefaultDataDir,
		Columns: ColumnsConfig{
			Treatment: load.Columns.Treatment,
			Horizon:   load.Columns.Horizon,
			Plot:      load.Columns.Plot,
			Replicate: load.Columns.Replicate,
			Primary:   load.Columns.Primary,
			Secondary: load.Columns.Secondary,
		},
		Control:    load.Control,
		Levels:     load.Levels,
		Confidence: DefaultConfidence,
		Preset:     DefaultPreset,
		PostHoc:    DefaultPostHoc,
		Mixed:      DefaultMixed,
		Theme:      "default",
		Plot: PlotConfig{
			Format: DefaultFormat,
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Seed:   1,
			Jitter: DefaultJitter,
		},
	}
}

// Load layers defaults, an optional YAML file and ISEC14_* environment
// variables. A missing file is only an error when path is set explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("input", def.Input)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("columns.treatment", def.Columns.Treatment)
	v.SetDefault("columns.horizon", def.Columns.Horizon)
	v.SetDefault("columns.plot", def.Columns.Plot)
	v.SetDefault("columns.replicate", def.Columns.Replicate)
	v.SetDefault("columns.primary", def.Columns.Primary)
	v.SetDefault("columns.secondary", def.Columns.Secondary)
	v.SetDefault("id_separator", def.IDSeparator)
	v.SetDefault("control", def.Control)
	v.SetDefault("levels", def.Levels)
	v.SetDefault("confidence", def.Confidence)
	v.SetDefault("preset", def.Preset)
	v.SetDefault("posthoc", def.PostHoc)
	v.SetDefault("mixed_method", def.Mixed)
	v.SetDefault("theme", def.Theme)
	v.SetDefault("plot.format", def.Plot.Format)
	v.SetDefault("plot.width", def.Plot.Width)
	v.SetDefault("plot.height", def.Plot.Height)
	v.SetDefault("plot.seed", def.Plot.Seed)
	v.SetDefault("plot.jitter", def.Plot.Jitter)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("isec14")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// optional read
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that the analysis cannot recover from.
func (c *Config) Validate() error {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("%w: confidence %v not in (0, 1)", ErrInvalid, c.Confidence)
	}
	if _, ok := GetPreset(c.Preset); !ok {
		return fmt.Errorf("%w: unknown preset %q", ErrInvalid, c.Preset)
	}
	switch strings.ToLower(c.PostHoc) {
	case "tukey", "holm", "bonferroni", "none":
	default:
		return fmt.Errorf("%w: unknown posthoc method %q", ErrInvalid, c.PostHoc)
	}
	switch strings.ToLower(c.Mixed) {
	case "ml", "reml":
	default:
		return fmt.Errorf("%w: unknown mixed_method %q", ErrInvalid, c.Mixed)
	}
	switch strings.ToLower(c.Plot.Format) {
	case "png", "svg":
	default:
		return fmt.Errorf("%w: unknown plot format %q", ErrInvalid, c.Plot.Format)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("%w: plot size %dx%d", ErrInvalid, c.Plot.Width, c.Plot.Height)
	}
	return nil
}

// LoadOptions maps the file-level settings onto loader options.
func (c *Config) LoadOptions() sample.Options {
	return sample.Options{
		Columns: sample.Columns{
			Treatment: c.Columns.Treatment,
			Horizon:   c.Columns.Horizon,
			Plot:      c.Columns.Plot,
			Replicate: c.Columns.Replicate,
			Primary:   c.Columns.Primary,
			Secondary: c.Columns.Secondary,
		},
		Separator: c.IDSeparator,
		Levels:    append([]string(nil), c.Levels...),
		Control:   c.Control,
	}
}
