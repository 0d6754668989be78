package sample

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Columns names the CSV headers the loader reads.
type Columns struct {
	Treatment string
	Horizon   string
	Plot      string
	Replicate string
	Primary   string
	Secondary string
}

// Options controls how a CSV is turned into a Dataset.
type Options struct {
	Columns Columns
	// Separator is placed between the parts of the sample identifier.
	Separator string
	// Levels is the preferred treatment order; labels not listed follow in
	// order of first appearance.
	Levels  []string
	Control string
}

func DefaultOptions() Options {
	return Options{
		Columns: Columns{
			Treatment: "trt",
			Horizon:   "hzn",
			Plot:      "plot",
			Replicate: "rep",
			Primary:   "d14c",
			Secondary: "d14c_rerun",
		},
		Levels:  []string{"control", "0.25", "0.50", "0.75", "0.50x2"},
		Control: "control",
	}
}

var missingTokens = map[string]bool{"": true, "na": true, "nan": true, "n/a": true, ".": true}

func isMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// Load reads a CSV file from disk.
func Load(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, opt)
	if err != nil {
		return nil, err
	}
	ds.Source = filepath.Base(path)
	return ds, nil
}

// Read parses CSV content, derives the identifier and the unified measurement.
func Read(r io.Reader, opt Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(name string) (int, error) {
		i, ok := idx[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return i, nil
	}

	c := opt.Columns
	var cols [6]int
	for i, name := range []string{c.Treatment, c.Horizon, c.Plot, c.Replicate, c.Primary, c.Secondary} {
		if cols[i], err = col(name); err != nil {
			return nil, err
		}
	}
	iTrt, iHzn, iPlot, iRep, iPri, iSec := cols[0], cols[1], cols[2], cols[3], cols[4], cols[5]

	ds := &Dataset{Control: opt.Control}
	seen := map[string]bool{}
	var order []string

	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++
		if blankRow(rec) {
			continue
		}
		cell := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		var r Record
		r.Treatment = cell(iTrt)
		if r.Treatment == "" {
			return nil, &RowError{Line: line, Column: c.Treatment, Wrapped: fmt.Errorf("%w: empty treatment", ErrBadValue)}
		}
		if r.Horizon, err = ParseHorizon(cell(iHzn)); err != nil {
			return nil, &RowError{Line: line, Column: c.Horizon, Wrapped: err}
		}
		if r.Plot, err = parseInt(cell(iPlot)); err != nil {
			return nil, &RowError{Line: line, Column: c.Plot, Wrapped: err}
		}
		if r.Replicate, err = parseInt(cell(iRep)); err != nil {
			return nil, &RowError{Line: line, Column: c.Replicate, Wrapped: err}
		}
		if r.Primary, err = parseOptional(cell(iPri)); err != nil {
			return nil, &RowError{Line: line, Column: c.Primary, Wrapped: err}
		}
		if r.Secondary, err = parseOptional(cell(iSec)); err != nil {
			return nil, &RowError{Line: line, Column: c.Secondary, Wrapped: err}
		}

		r.D14C, r.Measured = Coalesce(r.Primary, r.Secondary)
		r.ID = SampleID(r.Treatment, r.Horizon, r.Replicate, opt.Separator)

		switch {
		case r.Primary != nil && r.Secondary != nil:
			ds.BothPresent++
		case !r.Measured:
			ds.BothMissing++
		}

		if !seen[r.Treatment] {
			seen[r.Treatment] = true
			order = append(order, r.Treatment)
		}
		ds.Records = append(ds.Records, r)
	}

	if len(ds.Records) == 0 {
		return nil, ErrEmpty
	}

	ds.Levels = orderLevels(order, opt.Levels, opt.Control)
	if !seen[opt.Control] {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("control treatment %q not found", opt.Control))
	}
	if ds.BothPresent > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d records carry both measurements; %s used", ds.BothPresent, c.Primary))
	}
	if ds.BothMissing > 0 {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("%d records have no measurement and are excluded", ds.BothMissing))
	}
	return ds, nil
}

// orderLevels keeps the preferred labels that occur, appends the rest in
// appearance order and moves the control to the front.
func orderLevels(appeared, preferred []string, control string) []string {
	present := make(map[string]bool, len(appeared))
	for _, l := range appeared {
		present[l] = true
	}
	out := make([]string, 0, len(appeared))
	used := map[string]bool{}
	if present[control] {
		out = append(out, control)
		used[control] = true
	}
	for _, l := range preferred {
		if present[l] && !used[l] {
			out = append(out, l)
			used[l] = true
		}
	}
	for _, l := range appeared {
		if !used[l] {
			out = append(out, l)
			used[l] = true
		}
	}
	return out
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets export integer columns as "3.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%w: integer %q", ErrBadValue, s)
		}
		return int(f), nil
	}
	return n, nil
}

func parseOptional(s string) (*float64, error) {
	if isMissing(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrBadValue, s)
	}
	return &f, nil
}

// WriteCSV writes records with their derived columns.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "trt", "hzn", "plot", "rep", "d14c_primary", "d14c_secondary", "d14c"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Treatment,
			r.Horizon.String(),
			strconv.Itoa(r.Plot),
			strconv.Itoa(r.Replicate),
			formatOptional(r.Primary),
			formatOptional(r.Secondary),
			"NA",
		}
		if r.Measured {
			row[7] = strconv.FormatFloat(r.D14C, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
