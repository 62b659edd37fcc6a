package connector

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/config"
	"github.com/vitebski/db-migrator/internal/ident"
)

// Executor is the part of a PostgreSQL connection the migration needs.
// *pgxpool.Pool satisfies it.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TargetConnector handles the PostgreSQL connection pool
type TargetConnector struct {
	Host          string
	User          string
	Password      string
	Database      string
	Port          string
	SSLMode       string
	MaintenanceDB string
	Pool          *pgxpool.Pool
	Logger        *logrus.Logger
}

// NewTargetConnector creates a new target connector
func NewTargetConnector(cfg config.TargetConfig, logger *logrus.Logger) *TargetConnector {
	return &TargetConnector{
		Host:          cfg.Host,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Port:          cfg.Port,
		SSLMode:       cfg.SSLMode,
		MaintenanceDB: cfg.MaintenanceDB,
		Logger:        logger,
	}
}

// ConnString returns a postgres:// URL for the given database on the target server
func (tc *TargetConnector) ConnString(database string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(tc.User, tc.Password),
		Host:   net.JoinHostPort(tc.Host, tc.Port),
		Path:   "/" + database,
	}
	if tc.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {tc.SSLMode}}.Encode()
	}
	return u.String()
}

// EnsureDatabase creates the target database through the maintenance
// database when it does not exist yet. It reports whether it was created.
func (tc *TargetConnector) EnsureDatabase(ctx context.Context) (bool, error) {
	conn, err := pgx.Connect(ctx, tc.ConnString(tc.MaintenanceDB))
	if err != nil {
		return false, fmt.Errorf("connect to maintenance database %s: %w", tc.MaintenanceDB, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", tc.Database).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %s: %w", tc.Database, err)
	}
	if exists {
		tc.Logger.Infof("Target database %s already exists", tc.Database)
		return false, nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident.Quote(tc.Database)); err != nil {
		return false, fmt.Errorf("create database %s: %w", tc.Database, err)
	}
	tc.Logger.Infof("Created target database: %s", tc.Database)
	return true, nil
}

// Connect opens the connection pool to the target database
func (tc *TargetConnector) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(tc.ConnString(tc.Database))
	if err != nil {
		return fmt.Errorf("parse target connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create target pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping target database %s: %w", tc.Database, err)
	}

	tc.Pool = pool
	tc.Logger.Infof("Connected to PostgreSQL database: %s", tc.Database)
	return nil
}

// Disconnect closes the connection pool
func (tc *TargetConnector) Disconnect() {
	if tc.Pool != nil {
		tc.Pool.Close()
		tc.Pool = nil
		tc.Logger.Info("PostgreSQL connection closed")
	}
}

// CountRows returns the number of rows in a migrated table
func (tc *TargetConnector) CountRows(ctx context.Context, schema, table string) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM " + ident.QuoteTable(schema, table)
	if err := tc.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", ident.TableIdentifier(schema, table), err)
	}
	return count, nil
}

// Exec runs a statement on the pool
func (tc *TargetConnector) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return tc.Pool.Exec(ctx, sql, args...)
}

// QueryRow runs a single-row query on the pool
func (tc *TargetConnector) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return tc.Pool.QueryRow(ctx, sql, args...)
}

// Begin starts a transaction on the pool
func (tc *TargetConnector) Begin(ctx context.Context) (pgx.Tx, error) {
	return tc.Pool.Begin(ctx)
}
