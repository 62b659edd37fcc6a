package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/pkg/models"
)

// Event categories
const (
	CategoryConfig       = "config"
	CategoryConnection   = "connection"
	CategorySchema       = "schema"
	CategoryTypes        = "types"
	CategoryDependencies = "dependencies"
	CategoryConstraints  = "constraints"
	CategoryData         = "data"
	CategorySequences    = "sequences"
	CategorySummary      = "summary"
)

// Reporter emits structured migration events to a logrus logger and,
// once opened, to a per-run log file.
type Reporter struct {
	Logger *logrus.Logger
	RunID  string
	Path   string
	file   *os.File
}

// New creates a reporter that only writes to the given logger
func New(logger *logrus.Logger) *Reporter {
	return &Reporter{
		Logger: logger,
		RunID:  uuid.NewString(),
	}
}

// Open creates a reporter that also appends every event to
// <dir>/migration_<timestamp>_<runid>.log
func Open(logger *logrus.Logger, dir string) (*Reporter, error) {
	r := New(logger)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("migration_%s_%s.log", time.Now().Format("20060102_150405"), r.RunID[:8])
	r.Path = filepath.Join(dir, name)

	file, err := os.OpenFile(r.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", r.Path, err)
	}
	r.file = file

	logger.AddHook(&fileHook{
		writer: file,
		runID:  r.RunID,
		formatter: &logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		},
	})

	logger.Infof("Writing run log to %s (run %s)", r.Path, r.RunID)
	return r, nil
}

// Close releases the log file, if any
func (r *Reporter) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reporter) entry(category string, fields logrus.Fields) *logrus.Entry {
	e := r.Logger.WithField("category", category)
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	return e
}

// Section marks the start of a migration phase
func (r *Reporter) Section(title string) {
	r.Logger.WithField("event", "section").Info(strings.Repeat("=", 20) + " " + title + " " + strings.Repeat("=", 20))
}

// Info logs an informational event
func (r *Reporter) Info(category, msg string, fields logrus.Fields) {
	r.entry(category, fields).Info(msg)
}

// Success logs a completed step
func (r *Reporter) Success(category, msg string, fields logrus.Fields) {
	r.entry(category, fields).WithField("status", "success").Info(msg)
}

// Warn logs a recoverable problem
func (r *Reporter) Warn(category, msg string, fields logrus.Fields) {
	r.entry(category, fields).Warn(msg)
}

// Error logs a failure of a table, constraint or page
func (r *Reporter) Error(category, msg string, err error, fields logrus.Fields) {
	e := r.entry(category, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

// Summary logs the final run statistics
func (r *Reporter) Summary(stats models.MigrationStats, duration time.Duration) {
	fields := logrus.Fields{
		"tables_processed":     stats.TablesProcessed,
		"tables_created":       stats.TablesCreated,
		"tables_skipped":       stats.TablesSkipped,
		"tables_existing":      stats.TablesExisting,
		"primary_keys_created": stats.PrimaryKeysCreated,
		"foreign_keys_created": stats.ForeignKeysCreated,
		"rows_migrated":        stats.RowsMigrated,
		"errors":               stats.Errors,
		"warnings":             stats.Warnings,
		"duration":             duration.Round(time.Millisecond).String(),
	}
	if stats.Succeeded() {
		r.Success(CategorySummary, "Migration completed successfully", fields)
	} else {
		r.Warn(CategorySummary, fmt.Sprintf("Migration completed with %d error(s)", stats.Errors), fields)
	}
}

// fileHook writes every entry, tagged with the run ID, to the run log file
type fileHook struct {
	mu        sync.Mutex
	writer    *os.File
	runID     string
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	tagged := entry.WithField("run_id", h.runID)
	tagged.Level = entry.Level
	tagged.Message = entry.Message
	tagged.Time = entry.Time

	line, err := h.formatter.Format(tagged)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}
