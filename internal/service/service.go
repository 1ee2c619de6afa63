// Package service runs export jobs: it builds a table from a layout and a
// batch of records, renders it and optionally writes it to disk, while
// bounding concurrency and remembering recent jobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/config"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/logging"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
)

// ErrInvalidPath is returned when an output path leaves the output directory.
var ErrInvalidPath = errors.New("output path outside the export directory")

// Options configure a Service.
type Options struct {
	// OutputDir confines output paths. Relative paths are resolved under
	// it. Empty means paths are used as given.
	OutputDir string

	MaxConcurrent int
	MaxWait       time.Duration

	// HistorySize is the number of finished jobs kept; zero disables history.
	HistorySize int
}

// OptionsFromConfig maps export settings onto Options.
func OptionsFromConfig(cfg config.ExportConfig) Options {
	return Options{
		OutputDir:     cfg.OutputDir,
		MaxConcurrent: cfg.MaxConcurrent,
		MaxWait:       cfg.MaxWaitTime,
		HistorySize:   cfg.HistorySize,
	}
}

// Request describes one export job.
type Request struct {
	Layout  string
	Records []records.Record

	// Path, if set, is where the rendered text is written.
	Path string
}

// Result describes a finished export.
type Result struct {
	ID        string        `json:"id"`
	Layout    string        `json:"layout"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Text      string        `json:"text"`
	Path      string        `json:"path,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`

	table *export.Table
}

// WriteTo streams the rendered export to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	if r.table == nil {
		n, err := io.WriteString(w, r.Text)
		return int64(n), err
	}
	return r.table.WriteTo(w)
}

// HistoryEntry is a finished job as remembered by the service. Rendered
// text is not kept.
type HistoryEntry struct {
	ID        string        `json:"id"`
	Layout    string        `json:"layout"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Path      string        `json:"path,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
	Code      string        `json:"code,omitempty"` // Set when the job failed
}

// Service runs export jobs.
type Service struct {
	opts    Options
	limiter *Limiter

	mu      sync.Mutex
	history []HistoryEntry // oldest first
}

// New creates a Service.
func New(opts Options) *Service {
	return &Service{
		opts:    opts,
		limiter: NewLimiter(opts.MaxConcurrent, opts.MaxWait),
	}
}

// Export builds, renders and optionally writes one export.
//
// If the table was built but writing the file fails, the returned Result
// still carries the rendered text alongside a *export.PersistenceError.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		ID:        uuid.NewString(),
		Layout:    req.Layout,
		CreatedAt: time.Now(),
	}
	logger := logging.WithFields(ctx, "export_id", res.ID, "layout", req.Layout)

	err := s.run(ctx, req, res)
	res.Duration = time.Since(res.CreatedAt)
	s.remember(res, err)

	if err != nil {
		logger.Warn("export failed",
			"records", len(req.Records),
			"code", MapError(err).Code,
			"error", err,
		)
		if res.table == nil {
			return nil, err
		}
		return res, err
	}

	logger.Info("export finished",
		"rows", res.Rows,
		"columns", res.Columns,
		"path", res.Path,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, res *Result) error {
	l, err := layout.Lookup(req.Layout)
	if err != nil {
		return err
	}

	path, err := s.resolvePath(req.Path)
	if err != nil {
		return err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	tbl, err := s.build(ctx, l, req.Records)
	if err != nil {
		return err
	}

	res.table = tbl
	res.Rows = tbl.Len()
	res.Columns = tbl.Columns()

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			res.Text = tbl.Render()
			return &export.PersistenceError{
				Path: path,
				Err:  fmt.Errorf("create output directory: %w", err),
			}
		}
	}

	text, err := tbl.Save(path)
	res.Text = text
	if err != nil {
		return err
	}
	res.Path = path
	return nil
}

// build fills a fresh table for l with recs, normalizing every value.
func (s *Service) build(ctx context.Context, l layout.Layout, recs []records.Record) (*export.Table, error) {
	tbl, err := l.NewTable()
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := tbl.NewRow()
		if err := records.Apply(row, rec, l.Normalize); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if err := tbl.Submit(row); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return tbl, nil
}

// Preview builds the table for recs and returns its rendered cells, header
// row first. Nothing is written and the job is not kept in history.
func (s *Service) Preview(ctx context.Context, layoutKey string, recs []records.Record) ([][]string, error) {
	l, err := layout.Lookup(layoutKey)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	tbl, err := s.build(ctx, l, recs)
	if err != nil {
		return nil, err
	}
	return tbl.Records(), nil
}

// resolvePath applies the OutputDir rules to a requested path.
func (s *Service) resolvePath(path string) (string, error) {
	if path == "" || s.opts.OutputDir == "" {
		return path, nil
	}

	base, err := filepath.Abs(s.opts.OutputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return target, nil
}

func (s *Service) remember(res *Result, err error) {
	if s.opts.HistorySize <= 0 {
		return
	}

	entry := HistoryEntry{
		ID:        res.ID,
		Layout:    res.Layout,
		Rows:      res.Rows,
		Columns:   res.Columns,
		Path:      res.Path,
		Duration:  res.Duration,
		CreatedAt: res.CreatedAt,
	}
	if err != nil {
		entry.Code = MapError(err).Code
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if over := len(s.history) - s.opts.HistorySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// History returns up to limit recent jobs, newest first. A limit of zero
// or less returns everything kept.
func (s *Service) History(limit int) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]HistoryEntry, 0, n)
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// LimiterStatus reports current export slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForExports blocks until running exports finish or ctx is done.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
