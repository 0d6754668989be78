package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jb388/ise-fahey/internal/config"
)

var (
	dataDir    string
	configFile string
	debug      bool
	logFormat  string
	// Analysis overrides
	control    string
	confidence float64
	preset     string
	postHoc    string
	mixed      string
	theme      string
	// Chart options
	format   string
	width    int
	height   int
	seed     int64
	noPlots  bool
	outDir   string
	terminal bool
	// Output switches
	asCSV  bool
	asYAML bool
	force  bool
)

// main registers the isec14 commands and runs the one named on the command
// line. With no subcommand it opens the run browser.
func main() {
	rootCmd := &cobra.Command{
		Use:           "isec14",
		Short:         "fine-root Δ14C analysis for the ice storm experiment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogger(debug, logFormat)
		},
		RunE: viewRuns,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "default", "terminal theme")

	runCmd := &cobra.Command{
		Use:   "run [csv]",
		Short: "run the full analysis and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalysis,
	}
	analysisFlags(runCmd)
	chartFlags(runCmd)
	runCmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip chart rendering")

	summaryCmd := &cobra.Command{
		Use:   "summary [csv]",
		Short: "treatment by horizon means and plot differences",
		Args:  cobra.MaximumNArgs(1),
		RunE:  summarize,
	}
	analysisFlags(summaryCmd)
	summaryCmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV tables to stdout")

	plotCmd := &cobra.Command{
		Use:   "plot [csv]",
		Short: "render the scatter, group mean and plot difference charts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotCharts,
	}
	analysisFlags(plotCmd)
	chartFlags(plotCmd)
	plotCmd.Flags().StringVarP(&outDir, "out", "o", "plots", "output directory")
	plotCmd.Flags().BoolVar(&terminal, "terminal", false, "draw group means in the terminal")

	modelCmd := &cobra.Command{
		Use:   "model [csv]",
		Short: "fit the linear, ANOVA and mixed models",
		Args:  cobra.MaximumNArgs(1),
		RunE:  fitModels,
	}
	analysisFlags(modelCmd)
	modelCmd.Flags().BoolVar(&asYAML, "yaml", false, "print the fitted models as YAML")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id] [dest]",
		Short: "copy run artifacts to dest, or print metadata",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportRun,
	}

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse stored reports interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  viewRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list model presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "show or create the configuration file",
	}
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd)

	rootCmd.AddCommand(runCmd, summaryCmd, plotCmd, modelCmd, listCmd, showCmd, exportCmd, viewCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func analysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&control, "control", "", "control treatment label")
	cmd.Flags().Float64Var(&confidence, "confidence", config.DefaultConfidence, "confidence level of intervals")
	cmd.Flags().StringVar(&preset, "preset", config.DefaultPreset, "model preset")
	cmd.Flags().StringVar(&postHoc, "posthoc", config.DefaultPostHoc, "post-hoc method (tukey, holm, bonferroni, none)")
	cmd.Flags().StringVar(&mixed, "mixed", config.DefaultMixed, "mixed model method (reml, ml)")
}

func chartFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "chart format (png, svg)")
	cmd.Flags().IntVar(&width, "width", config.DefaultWidth, "chart width in pixels")
	cmd.Flags().IntVar(&height, "height", config.DefaultHeight, "chart height in pixels")
	cmd.Flags().Int64Var(&seed, "seed", 1, "scatter jitter seed")
}
