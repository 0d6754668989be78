package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/jb388/ise-fahey/internal/pipeline"
	"github.com/jb388/ise-fahey/internal/plot"
	"github.com/jb388/ise-fahey/internal/report"
	"github.com/jb388/ise-fahey/internal/sample"
	"github.com/jb388/ise-fahey/internal/summary"
)

var (
	ErrNotFound  = errors.New("storage: run not found")
	ErrAmbiguous = errors.New("storage: run id prefix is ambiguous")
	ErrArtifact  = errors.New("storage: invalid artifact name")
)

// Artifact file names inside a run directory.
const (
	MetadataFile = "metadata.json"
	RecordsFile  = "records.csv"
	GroupsFile   = "group_stats.csv"
	PlotsFile    = "plot_diffs.csv"
	ModelsFile   = "models.yaml"
	ReportFile   = "report.md"
	catalogFile  = "runs.db"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	source     TEXT NOT NULL,
	records    INTEGER NOT NULL,
	preset     TEXT NOT NULL,
	metadata   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);`

// Store keeps one directory per run under baseDir and a SQLite catalog of
// run metadata.
type Store struct {
	baseDir string
	db      *sql.DB
	log     logrus.FieldLogger
}

func New(baseDir string, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{baseDir: baseDir, log: log}
}

// Init creates the base directory and opens the catalog.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Input      string    `json:"input"`
	Records    int       `json:"records"`
	Measured   int       `json:"measured"`
	Preset     string    `json:"preset"`
	Formula    string    `json:"formula"`
	Confidence float64   `json:"confidence"`
	Levels     []string  `json:"levels"`
	Horizons   []string  `json:"horizons"`
	Warnings   []string  `json:"warnings,omitempty"`
	Artifacts  []string  `json:"artifacts"`
}

// ShortID is the leading part of the run id used in listings.
func (m RunMetadata) ShortID() string {
	if len(m.ID) > 8 {
		return m.ID[:8]
	}
	return m.ID
}

type SaveOptions struct {
	Input string
	// Plot enables chart rendering when non-nil.
	Plot *plot.Options
}

// Save writes every table, the model output, the Markdown report and
// optionally the charts of res into a new run directory.
func (s *Store) Save(ctx context.Context, res *pipeline.Result, opt SaveOptions) (*RunMetadata, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage is not initialised")
	}
	meta := &RunMetadata{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Source:     res.Dataset.Source,
		Input:      opt.Input,
		Records:    len(res.Dataset.Records),
		Measured:   len(res.Dataset.Measured()),
		Preset:     res.Preset.Name,
		Formula:    res.Preset.Formula,
		Confidence: res.Confidence,
		Levels:     res.Dataset.Levels,
		Warnings:   res.Warnings,
	}
	for _, h := range res.Dataset.Horizons() {
		meta.Horizons = append(meta.Horizons, h.String())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, err
	}
	log := s.log.WithField("run", meta.ShortID())

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{RecordsFile, func(w io.Writer) error { return sample.WriteCSV(w, res.Dataset.Records) }},
		{GroupsFile, func(w io.Writer) error { return summary.WriteGroupsCSV(w, res.Groups) }},
		{PlotsFile, func(w io.Writer) error { return summary.WritePlotsCSV(w, res.PlotDiffs) }},
		{ModelsFile, func(w io.Writer) error { return writeModels(w, res) }},
		{ReportFile, func(w io.Writer) error {
			_, err := io.WriteString(w, report.Markdown(res))
			return err
		}},
	}
	for _, wr := range writers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFile(filepath.Join(runDir, wr.name), wr.write); err != nil {
			return nil, fmt.Errorf("write %s: %w", wr.name, err)
		}
		meta.Artifacts = append(meta.Artifacts, wr.name)
	}

	if opt.Plot != nil {
		charts, err := plot.WriteAll(runDir, res.Dataset.Records, res.Groups, res.PlotDiffs, *opt.Plot)
		if err != nil {
			log.WithError(err).Warn("chart rendering failed")
		}
		meta.Artifacts = append(meta.Artifacts, charts...)
	}

	if err := writeFile(filepath.Join(runDir, MetadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source, records, preset, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Timestamp.UnixMilli(), meta.Source, meta.Records, meta.Preset, string(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	log.WithField("artifacts", len(meta.Artifacts)).Info("run saved")
	return meta, nil
}

func writeModels(w io.Writer, res *pipeline.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res.Models()); err != nil {
		return err
	}
	return enc.Close()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns all runs, newest first.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage is not initialised")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT metadata FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			s.log.WithError(err).Warn("skipping unreadable run metadata")
			continue
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// Load finds a run by id or unique id prefix.
func (s *Store) Load(ctx context.Context, runID string) (*RunMetadata, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage is not initialised")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT metadata FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		runID, strings.NewReplacer("%", "", "_", "").Replace(runID)+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []RunMetadata
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		if meta.ID == runID {
			return &meta, nil
		}
		found = append(found, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	case 1:
		return &found[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAmbiguous, runID)
}

// RunDir is the directory holding the artifacts of a run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// ReadArtifact returns the contents of one file of a run.
func (s *Store) ReadArtifact(meta *RunMetadata, name string) ([]byte, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrArtifact, name)
	}
	return os.ReadFile(filepath.Join(s.RunDir(meta.ID), name))
}

// Export copies the artifacts of a run into dest.
func (s *Store) Export(meta *RunMetadata, dest string) ([]string, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, err
	}
	names := append([]string{MetadataFile}, meta.Artifacts...)
	sort.Strings(names)
	var copied []string
	for _, name := range names {
		data, err := s.ReadArtifact(meta, name)
		if err != nil {
			return copied, err
		}
		if err := os.WriteFile(filepath.Join(dest, name), data, 0644); err != nil {
			return copied, err
		}
		copied = append(copied, name)
	}
	return copied, nil
}
