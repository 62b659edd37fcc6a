package utils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/config"
	"github.com/vitebski/db-migrator/internal/ident"
	"github.com/vitebski/db-migrator/internal/resolver"
	"github.com/vitebski/db-migrator/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	// Create a new logger
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	// Parse log level
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	// Configure logger
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	// Log connection variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "SOURCE_") && !strings.HasPrefix(env, "TARGET_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			// Mask passwords
			if strings.HasSuffix(parts[0], "_PASSWORD") {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	if os.Getenv("SOURCE_DATABASE") == "" {
		logger.Debug("SOURCE_DATABASE is not set; it can also come from a config file or --source-database")
		return false
	}
	return true
}

// ValidateConfig validates the run configuration and logs what is wrong
func ValidateConfig(cfg *config.Config, logger *logrus.Logger) bool {
	if err := cfg.Validate(); err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		return false
	}

	if cfg.Source.Password == "" { // Empty password is allowed
		logger.Warning("Source database password is empty")
	}
	if cfg.Target.Password == "" {
		logger.Warning("Target database password is empty")
	}
	return true
}

// PrintSummary prints a summary of the migration run
func PrintSummary(stats models.MigrationStats, duration time.Duration, failedTables []string) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATABASE MIGRATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Tables processed: %d\n", stats.TablesProcessed)
	fmt.Printf("Tables created: %d\n", stats.TablesCreated)
	if stats.TablesExisting > 0 {
		fmt.Printf("Tables already present: %d\n", stats.TablesExisting)
	}
	fmt.Printf("Empty tables skipped: %d\n", stats.TablesSkipped)
	fmt.Printf("Primary keys created: %d\n", stats.PrimaryKeysCreated)
	fmt.Printf("Foreign keys created: %d\n", stats.ForeignKeysCreated)
	fmt.Printf("Rows migrated: %d\n", stats.RowsMigrated)
	fmt.Printf("Errors: %d\n", stats.Errors)
	fmt.Printf("Warnings: %d\n", stats.Warnings)
	fmt.Printf("Duration: %s\n", duration.Round(time.Millisecond))

	if len(failedTables) > 0 {
		fmt.Println("\nFailed tables:")
		for _, table := range failedTables {
			fmt.Printf("  - %s\n", table)
		}
	}

	if stats.Succeeded() {
		fmt.Println("\n✅ Migration completed successfully")
	} else {
		fmt.Printf("\n❌ Migration completed with %d error(s)\n", stats.Errors)
	}
	fmt.Println(strings.Repeat("=", 50))
}

// PrintSchemaAnalysis prints a detailed analysis of the source schema
func PrintSchemaAnalysis(schema *models.SchemaInfo, resolution resolver.Result) {
	circular := make(map[models.TableID]bool)
	for _, group := range resolution.CircularGroups {
		for _, id := range group {
			circular[id] = true
		}
	}
	referencing := make(map[models.TableID]bool)
	for _, fk := range schema.ForeignKeys {
		referencing[fk.Source()] = true
	}

	var pks, uniques, checks int
	for _, table := range schema.Tables {
		if table.PrimaryKey != nil {
			pks++
		}
		uniques += len(table.UniqueKeys)
		checks += len(table.CheckConstraints)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("DATABASE SCHEMA ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 80))

	// Basic statistics
	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Total tables: %d\n", len(schema.Tables))
	fmt.Printf("   Primary keys: %d\n", pks)
	fmt.Printf("   Unique constraints: %d\n", uniques)
	fmt.Printf("   Check constraints (not migrated): %d\n", checks)
	fmt.Printf("   Foreign keys: %d\n", len(schema.ForeignKeys))
	fmt.Printf("   Self-referencing foreign keys: %d\n", len(resolution.SelfReferences))
	fmt.Printf("   Foreign keys to tables outside the migration: %d\n", len(resolution.External))

	// Circular dependencies
	if len(resolution.CircularGroups) > 0 {
		fmt.Println("\n2. CIRCULAR DEPENDENCIES")
		fmt.Printf("   Tables involved: %d\n", len(circular))
		for _, group := range resolution.CircularGroups {
			names := make([]string, len(group))
			for i, id := range group {
				names[i] = id.String()
			}
			fmt.Printf("     %s\n", strings.Join(names, " <-> "))
		}
		fmt.Println("\n   Skipped edges:")
		for _, edge := range resolution.CycleEdges {
			fmt.Printf("     %s -> %s\n", edge.From, edge.To)
		}
	}

	// Processing order
	fmt.Println("\n3. TABLE PROCESSING ORDER")
	for i, id := range resolution.Order {
		category := "Standalone"
		if circular[id] {
			category = "Circular"
		} else if referencing[id] {
			category = "Dependent"
		}
		fmt.Printf("   %3d. %s -> %s (%s)\n", i+1, id, ident.TableIdentifier(id.Schema, id.Name), category)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}

// SourceCounter counts rows in a source table
type SourceCounter interface {
	CountRows(ctx context.Context, table models.Table) (int64, error)
}

// TargetCounter counts rows in a migrated table
type TargetCounter interface {
	CountRows(ctx context.Context, schema, table string) (int64, error)
}

// VerifyTablePopulation compares source and target row counts for every table
func VerifyTablePopulation(ctx context.Context, source SourceCounter, target TargetCounter, tables []models.Table, logger *logrus.Logger) models.VerificationResult {
	logger.Info("Verifying row counts between source and target...")

	result := models.VerificationResult{Mismatched: make(map[string][2]int64)}

	for _, table := range tables {
		name := table.ID().String()

		sourceCount, err := source.CountRows(ctx, table)
		if err != nil {
			logger.Warningf("Could not count source rows for table %s: %v", name, err)
			result.Mismatched[name] = [2]int64{-1, -1}
			continue
		}

		targetCount, err := target.CountRows(ctx, table.Schema, table.Name)
		if err != nil {
			logger.Warningf("Could not count target rows for table %s: %v", name, err)
			result.Mismatched[name] = [2]int64{sourceCount, -1}
			continue
		}

		if sourceCount != targetCount {
			logger.Warningf("Table %s has %d/%d rows in the target", name, targetCount, sourceCount)
			result.Mismatched[name] = [2]int64{sourceCount, targetCount}
		}
	}

	result.Success = len(result.Mismatched) == 0
	if result.Success {
		logger.Info("Verification successful: all tables have matching row counts")
	} else {
		logger.Errorf("Verification failed: %d tables differ", len(result.Mismatched))
	}

	return result
}

// PrintVerificationResults prints the results of the row count verification
func PrintVerificationResults(result models.VerificationResult) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("ROW COUNT VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if result.Success {
		fmt.Println("✅ All tables have matching row counts")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	fmt.Printf("⚠️  %d tables differ:\n", len(result.Mismatched))
	for table, counts := range result.Mismatched {
		if counts[1] < 0 {
			fmt.Printf("  - %s: could not be counted\n", table)
			continue
		}
		fmt.Printf("  - %s: %d/%d rows\n", table, counts[1], counts[0])
	}

	fmt.Println(strings.Repeat("=", 50))
}
