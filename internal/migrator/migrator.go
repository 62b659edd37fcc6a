package migrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/analyzer"
	"github.com/vitebski/db-migrator/internal/config"
	"github.com/vitebski/db-migrator/internal/connector"
	"github.com/vitebski/db-migrator/internal/materializer"
	"github.com/vitebski/db-migrator/internal/resolver"
	"github.com/vitebski/db-migrator/internal/runlog"
	"github.com/vitebski/db-migrator/internal/transfer"
	"github.com/vitebski/db-migrator/internal/utils"
	"github.com/vitebski/db-migrator/pkg/models"
)

// Source is the source database as seen by the migration run
type Source interface {
	transfer.RowSource
	Connect(ctx context.Context) error
	Disconnect()
}

// Target is the PostgreSQL database as seen by the migration run
type Target interface {
	connector.Executor
	EnsureDatabase(ctx context.Context) (bool, error)
	Connect(ctx context.Context) error
	Disconnect()
	CountRows(ctx context.Context, schema, table string) (int64, error)
}

// SchemaReader introspects the source schema
type SchemaReader interface {
	AnalyzeSchema(ctx context.Context) (*models.SchemaInfo, error)
}

// Migrator runs one migration from the source database to PostgreSQL
type Migrator struct {
	Config       *config.Config
	Source       Source
	Target       Target
	Schema       SchemaReader
	Reporter     *runlog.Reporter
	ShowProgress bool

	// Set by Run
	Resolution   resolver.Result
	FailedTables []string
	Verification *models.VerificationResult
}

// New wires the connectors, analyzer and run log for a configuration
func New(cfg *config.Config, logger *logrus.Logger) (*Migrator, error) {
	source, err := connector.NewSourceConnector(cfg.Source, logger)
	if err != nil {
		return nil, err
	}

	reporter, err := runlog.Open(logger, cfg.LogDir)
	if err != nil {
		return nil, err
	}

	return &Migrator{
		Config:       cfg,
		Source:       source,
		Target:       connector.NewTargetConnector(cfg.Target, logger),
		Schema:       analyzer.NewSchemaAnalyzer(source, reporter),
		Reporter:     reporter,
		ShowProgress: utils.ProgressEnabled(),
	}, nil
}

// Close releases the run log
func (m *Migrator) Close() error {
	return m.Reporter.Close()
}

// Run executes the migration: introspect, create tables, resolve the
// dependency order, add foreign keys, then copy data. Fatal errors are
// returned after the summary has been reported; everything else is counted
// in the returned statistics.
func (m *Migrator) Run(ctx context.Context) (stats models.MigrationStats, err error) {
	start := time.Now()
	logger := m.Reporter.Logger

	defer func() {
		if err != nil {
			stats.Errors++
			m.Reporter.Error(runlog.CategorySummary, "Migration aborted", err, nil)
		}
		duration := time.Since(start)
		m.Reporter.Summary(stats, duration)
		utils.PrintSummary(stats, duration, m.FailedTables)
	}()

	m.Reporter.Section("Connecting")
	if err := m.Source.Connect(ctx); err != nil {
		return stats, fmt.Errorf("connect to source: %w", err)
	}
	defer m.Source.Disconnect()
	m.Reporter.Success(runlog.CategoryConnection, "Connected to source database", logrus.Fields{
		"engine":   m.Config.Source.Engine,
		"database": m.Config.Source.Database,
	})

	if !m.Config.AnalyzeOnly {
		created, err := m.Target.EnsureDatabase(ctx)
		if err != nil {
			return stats, fmt.Errorf("prepare target database: %w", err)
		}
		if created {
			m.Reporter.Info(runlog.CategoryConnection, "Created target database", logrus.Fields{"database": m.Config.Target.Database})
		}
		if err := m.Target.Connect(ctx); err != nil {
			return stats, fmt.Errorf("connect to target: %w", err)
		}
		defer m.Target.Disconnect()
		m.Reporter.Success(runlog.CategoryConnection, "Connected to target database", logrus.Fields{"database": m.Config.Target.Database})
	}

	m.Reporter.Section("Analyzing Schema")
	schema, err := m.Schema.AnalyzeSchema(ctx)
	if err != nil {
		return stats, fmt.Errorf("analyze source schema: %w", err)
	}

	m.Resolution = resolver.Resolve(schema.Tables, schema.ForeignKeys)
	stats.Warnings += m.reportResolution()

	if m.Config.AnalyzeOnly {
		utils.PrintSchemaAnalysis(schema, m.Resolution)
		logger.Info("Analyze-only mode, exiting without touching the target")
		return stats, nil
	}

	if len(schema.Tables) == 0 {
		stats.Warnings++
		m.Reporter.Warn(runlog.CategorySchema, "No tables found in source database", nil)
		return stats, nil
	}

	mat := materializer.NewMaterializer(m.Target, m.Reporter)
	stats.Merge(mat.CreateTables(ctx, schema.Tables))
	stats.Merge(mat.AddForeignKeys(ctx, m.Resolution.OrderForeignKeys(schema.ForeignKeys)))

	if m.Config.SchemaOnly {
		logger.Info("Schema-only mode, skipping data transfer")
		return stats, nil
	}

	engine := transfer.NewEngine(m.Source, m.Target, m.Config.BatchSize, m.Reporter)
	engine.ShowProgress = m.ShowProgress
	stats.Merge(engine.MigrateData(ctx, schema.Tables, m.Resolution.Order))

	for id := range engine.FailedTables {
		m.FailedTables = append(m.FailedTables, id.String())
	}
	sort.Strings(m.FailedTables)

	if m.Config.Verify {
		m.Reporter.Section("Verifying")
		result := utils.VerifyTablePopulation(ctx, m.Source, m.Target, schema.Tables, logger)
		stats.Warnings += len(result.Mismatched)
		utils.PrintVerificationResults(result)
		m.Verification = &result
	}

	return stats, nil
}

// reportResolution logs the resolver diagnostics and returns the number of
// warnings raised
func (m *Migrator) reportResolution() int {
	warnings := 0
	for _, edge := range m.Resolution.CycleEdges {
		warnings++
		m.Reporter.Warn(runlog.CategoryDependencies, "Circular dependency detected, edge skipped", logrus.Fields{
			"from": edge.From.String(),
			"to":   edge.To.String(),
		})
	}
	for _, fk := range m.Resolution.SelfReferences {
		m.Reporter.Info(runlog.CategoryDependencies, "Self-referencing foreign key", logrus.Fields{
			"table":      fk.Source().String(),
			"constraint": fk.ConstraintName,
		})
	}
	for _, fk := range m.Resolution.External {
		m.Reporter.Info(runlog.CategoryDependencies, "Foreign key references a table outside the migration", logrus.Fields{
			"table":      fk.Source().String(),
			"references": fk.Target().String(),
			"constraint": fk.ConstraintName,
		})
	}
	m.Reporter.Info(runlog.CategoryDependencies, fmt.Sprintf("Resolved processing order for %d tables", len(m.Resolution.Order)), nil)
	return warnings
}

// Failed reports whether the run should exit non-zero under strict mode
func (m *Migrator) Failed(stats models.MigrationStats) bool {
	if !stats.Succeeded() {
		return true
	}
	return m.Verification != nil && !m.Verification.Success
}
