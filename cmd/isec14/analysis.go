package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jb388/ise-fahey/internal/config"
	"github.com/jb388/ise-fahey/internal/pipeline"
	"github.com/jb388/ise-fahey/internal/plot"
	"github.com/jb388/ise-fahey/internal/report"
	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/storage"
	"github.com/jb388/ise-fahey/internal/summary"
)

// loadConfig reads the config file and environment, then applies the flags
// that were set on the command line.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("control") {
		cfg.Control = control
	}
	if flags.Changed("confidence") {
		cfg.Confidence = confidence
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("posthoc") {
		cfg.PostHoc = postHoc
	}
	if flags.Changed("mixed") {
		cfg.Mixed = mixed
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}
	if flags.Changed("format") {
		cfg.Plot.Format = format
	}
	if flags.Changed("width") {
		cfg.Plot.Width = width
	}
	if flags.Changed("height") {
		cfg.Plot.Height = height
	}
	if flags.Changed("seed") {
		cfg.Plot.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func plotOptions(cfg *config.Config, levels []string) (plot.Options, error) {
	f, err := plot.ParseFormat(cfg.Plot.Format)
	if err != nil {
		return plot.Options{}, err
	}
	return plot.Options{
		Format: f,
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		Seed:   cfg.Plot.Seed,
		Jitter: cfg.Plot.Jitter,
		Levels: levels,
	}, nil
}

func analyze(cmd *cobra.Command, cfg *config.Config) (*pipeline.Result, error) {
	pcfg, err := pipeline.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if pcfg.Input == "" {
		return nil, fmt.Errorf("%w: pass a CSV path or set input in the config", pipeline.ErrNoInput)
	}
	return pipeline.New(pcfg, logger).Run(cmd.Context())
}

// aggregate loads the input and computes the summary tables only.
func aggregate(cfg *config.Config) (*pipeline.Result, error) {
	if cfg.Input == "" {
		return nil, fmt.Errorf("%w: pass a CSV path or set input in the config", pipeline.ErrNoInput)
	}
	ds, err := sample.Load(cfg.Input, cfg.LoadOptions())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Input, err)
	}
	for _, w := range ds.Warnings {
		logger.Warn(w)
	}
	opt := summary.OptionsFor(ds, cfg.Confidence)
	res := &pipeline.Result{
		Dataset:    ds,
		Confidence: cfg.Confidence,
		Groups:     summary.ByTreatmentHorizon(ds.Records, opt),
		Warnings:   append([]string(nil), ds.Warnings...),
	}
	res.PlotDiffs, err = summary.PlotDifferences(ds.Records, opt)
	if err != nil {
		logger.WithError(err).Warn("plot differences skipped")
		res.Warnings = append(res.Warnings, err.Error())
	}
	return res, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	res, err := analyze(cmd, cfg)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir, logger)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()

	opt := storage.SaveOptions{Input: cfg.Input}
	if !noPlots {
		popt, err := plotOptions(cfg, res.Dataset.Levels)
		if err != nil {
			return err
		}
		opt.Plot = &popt
	}
	meta, err := st.Save(cmd.Context(), res, opt)
	if err != nil {
		return err
	}

	fmt.Print(report.Terminal(res, report.GetTheme(cfg.Theme)))
	fmt.Printf("\nrun id: %s\n", meta.ID)
	fmt.Printf("artifacts: %s\n", st.RunDir(meta.ID))
	return nil
}

func summarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	res, err := aggregate(cfg)
	if err != nil {
		return err
	}
	if asCSV {
		if err := summary.WriteGroupsCSV(os.Stdout, res.Groups); err != nil {
			return err
		}
		if len(res.PlotDiffs) == 0 {
			return nil
		}
		fmt.Println()
		return summary.WritePlotsCSV(os.Stdout, res.PlotDiffs)
	}
	fmt.Print(report.Terminal(res, report.GetTheme(cfg.Theme)))
	return nil
}

func plotCharts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	res, err := aggregate(cfg)
	if err != nil {
		return err
	}

	if terminal {
		out, err := plot.Terminal(res.Groups, res.Dataset.Levels, 60, 15)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	popt, err := plotOptions(cfg, res.Dataset.Levels)
	if err != nil {
		return err
	}
	written, err := plot.WriteAll(outDir, res.Dataset.Records, res.Groups, res.PlotDiffs, popt)
	if err != nil {
		return err
	}
	for _, name := range written {
		fmt.Println(filepath.Join(outDir, name))
	}
	return nil
}

func fitModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	res, err := analyze(cmd, cfg)
	if err != nil {
		return err
	}

	if asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(res.Models()); err != nil {
			return err
		}
		return enc.Close()
	}

	th := report.GetTheme(cfg.Theme)
	for _, sec := range report.Build(res) {
		if sec.Title == "Linear model" || strings.HasSuffix(sec.Title, " horizon") || sec.Title == "Warnings" {
			fmt.Println(report.TerminalSection(sec, th))
			fmt.Println()
		}
	}
	return nil
}
