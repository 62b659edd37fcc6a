package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/vitebski/db-migrator/internal/config"
	"github.com/vitebski/db-migrator/internal/migrator"
	"github.com/vitebski/db-migrator/internal/utils"
)

func main() {
	var (
		configFile     string
		envFile        string
		logLevel       string
		logDir         string
		sourceEngine   string
		sourceHost     string
		sourcePort     string
		sourceUser     string
		sourcePassword string
		sourceDatabase string
		targetHost     string
		targetPort     string
		targetUser     string
		targetPassword string
		targetDatabase string
		batchSize      int
		analyzeOnly    bool
		schemaOnly     bool
		verify         bool
		strict         bool
	)

	rootCmd := &cobra.Command{
		Use:   "db-migrator",
		Short: "A tool to migrate SQL Server databases to PostgreSQL",
		Long: `Database Migrator

A Go tool that copies the schema and data of a SQL Server (or MySQL) database
into PostgreSQL, translating types and defaults, ordering tables by their
foreign keys and resynchronizing identity sequences.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			logger := utils.SetupLogging(logLevel)

			// Load environment variables before the config so they take precedence
			utils.LoadEnvironmentVariables(envFile, logger)

			// Flags override everything else, but only when given
			flags := cmd.Flags()
			applyFlags := func(cfg *config.Config) {
				overrideString(flags.Changed("source-engine"), &cfg.Source.Engine, sourceEngine)
				overrideString(flags.Changed("source-host"), &cfg.Source.Host, sourceHost)
				overrideString(flags.Changed("source-port"), &cfg.Source.Port, sourcePort)
				overrideString(flags.Changed("source-user"), &cfg.Source.User, sourceUser)
				overrideString(flags.Changed("source-password"), &cfg.Source.Password, sourcePassword)
				overrideString(flags.Changed("source-database"), &cfg.Source.Database, sourceDatabase)
				overrideString(flags.Changed("target-host"), &cfg.Target.Host, targetHost)
				overrideString(flags.Changed("target-port"), &cfg.Target.Port, targetPort)
				overrideString(flags.Changed("target-user"), &cfg.Target.User, targetUser)
				overrideString(flags.Changed("target-password"), &cfg.Target.Password, targetPassword)
				overrideString(flags.Changed("target-database"), &cfg.Target.Database, targetDatabase)
				overrideString(flags.Changed("log-dir"), &cfg.LogDir, logDir)
				if flags.Changed("batch-size") {
					cfg.BatchSize = batchSize
				}
				cfg.AnalyzeOnly = cfg.AnalyzeOnly || analyzeOnly
				cfg.SchemaOnly = cfg.SchemaOnly || schemaOnly
				cfg.Verify = cfg.Verify || verify
				cfg.Strict = cfg.Strict || strict
			}

			cfg, err := config.Load(configFile, applyFlags)
			if err != nil {
				return err
			}

			// Pick up a level from the config file when no flag or env var set one
			if logLevel == "" && os.Getenv("LOG_LEVEL") == "" && cfg.LogLevel != "" {
				logger = utils.SetupLogging(cfg.LogLevel)
			}

			// Validate configuration
			if !utils.ValidateConfig(cfg, logger) {
				os.Exit(1)
			}

			m, err := migrator.New(cfg, logger)
			if err != nil {
				return err
			}
			defer m.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			stats, err := m.Run(ctx)
			if err != nil {
				return err
			}

			// Return appropriate exit code
			if cfg.Strict && m.Failed(stats) {
				return fmt.Errorf("migration finished with %d error(s)", stats.Errors)
			}
			return nil
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a TOML config file")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for run log files (default: logs)")
	rootCmd.Flags().StringVar(&sourceEngine, "source-engine", "", "Source engine: mssql or mysql (default: mssql)")
	rootCmd.Flags().StringVarP(&sourceHost, "source-host", "H", "", "Source host (default: localhost)")
	rootCmd.Flags().StringVarP(&sourcePort, "source-port", "P", "", "Source port (default: 1433, 3306 for mysql)")
	rootCmd.Flags().StringVarP(&sourceUser, "source-user", "u", "", "Source user (default: sa)")
	rootCmd.Flags().StringVarP(&sourcePassword, "source-password", "p", "", "Source password")
	rootCmd.Flags().StringVarP(&sourceDatabase, "source-database", "d", "", "Source database name")
	rootCmd.Flags().StringVar(&targetHost, "target-host", "", "PostgreSQL host (default: localhost)")
	rootCmd.Flags().StringVar(&targetPort, "target-port", "", "PostgreSQL port (default: 5432)")
	rootCmd.Flags().StringVar(&targetUser, "target-user", "", "PostgreSQL user (default: postgres)")
	rootCmd.Flags().StringVar(&targetPassword, "target-password", "", "PostgreSQL password")
	rootCmd.Flags().StringVar(&targetDatabase, "target-database", "", "PostgreSQL database name (default: migrated_db)")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 1000, "Number of rows copied per transaction")
	rootCmd.Flags().BoolVarP(&analyzeOnly, "analyze-only", "a", false, "Only analyze the source schema without touching the target")
	rootCmd.Flags().BoolVarP(&schemaOnly, "schema-only", "s", false, "Create tables and foreign keys without copying data")
	rootCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Compare source and target row counts after the copy")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any table, constraint or verification failed")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func overrideString(changed bool, field *string, value string) {
	if changed {
		*field = value
	}
}
