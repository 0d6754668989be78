package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jb388/ise-fahey/internal/config"
	"github.com/jb388/ise-fahey/internal/report"
	"github.com/jb388/ise-fahey/internal/storage"
	"github.com/jb388/ise-fahey/internal/tui"
)

// openStore opens the run catalog under the configured data directory.
func openStore(cmd *cobra.Command) (*storage.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, nil, err
	}
	st := storage.New(cfg.DataDir, logger)
	if err := st.Init(); err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOURCE\tRECORDS\tPRESET\tWARNINGS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%d\n",
			run.ShortID(),
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Source,
			run.Measured,
			run.Records,
			run.Preset,
			len(run.Warnings),
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	md, err := st.ReadArtifact(meta, storage.ReportFile)
	if err != nil {
		return err
	}

	styles := report.GetTheme(cfg.Theme).Styles()
	fmt.Println(styles.Title.Render(fmt.Sprintf("run %s  %s", meta.ShortID(), meta.Source)))
	for _, pg := range report.SplitSections(string(md)) {
		fmt.Println()
		fmt.Println(styles.Heading.Render(pg.Title))
		fmt.Println(pg.Body)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}

	copied, err := st.Export(meta, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("exported %d files to %s\n", len(copied), args[1])
	return nil
}

func viewRuns(cmd *cobra.Command, args []string) error {
	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := cmd.Context()

	load := func(id string) (string, error) {
		meta, err := st.Load(ctx, id)
		if err != nil {
			return "", err
		}
		md, err := st.ReadArtifact(meta, storage.ReportFile)
		return string(md), err
	}

	if len(args) == 1 {
		meta, err := st.Load(ctx, args[0])
		if err != nil {
			return err
		}
		md, err := load(meta.ID)
		if err != nil {
			return err
		}
		return tui.Run(tui.NewPager(fmt.Sprintf("%s  %s", meta.ShortID(), meta.Source), md))
	}

	runs, err := st.List(ctx)
	if err != nil {
		return err
	}
	items := make([]tui.RunItem, len(runs))
	for i, run := range runs {
		items[i] = tui.RunItem{
			ID:    run.ID,
			Label: fmt.Sprintf("%s  %s", run.ShortID(), run.Source),
			Info:  fmt.Sprintf("%s  %s", run.Timestamp.Local().Format("2006-01-02 15:04"), run.Preset),
		}
	}
	return tui.Run(tui.NewBrowser(items, load))
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMULA\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Formula, p.Description)
	}
	return w.Flush()
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "isec14.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		logger.Warn("config files are read as YAML; use a .yaml extension")
	}
	return nil
}
