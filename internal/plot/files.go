package plot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

// Chart file stems written by WriteAll.
const (
	ScatterName   = "scatter"
	ErrorBarsName = "group_means"
	DiffBarsName  = "plot_diffs"
)

// WriteAll renders the three standard charts into dir and returns the file
// names written. Charts without data are skipped.
func WriteAll(dir string, records []sample.Record, groups []summary.GroupRow, diffs []summary.PlotRow, opt Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	jobs := []struct {
		name string
		draw func(io.Writer) error
	}{
		{ScatterName, func(w io.Writer) error { return Scatter(w, records, opt) }},
		{ErrorBarsName, func(w io.Writer) error { return ErrorBars(w, groups, opt) }},
		{DiffBarsName, func(w io.Writer) error { return DiffBars(w, diffs, opt) }},
	}

	var written []string
	for _, j := range jobs {
		name := j.name + opt.Format.Ext()
		if err := writeFile(filepath.Join(dir, name), j.draw); err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			return written, fmt.Errorf("%s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

func writeFile(path string, draw func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
