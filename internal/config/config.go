package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Supported source engines
const (
	EngineMSSQL = "mssql"
	EngineMySQL = "mysql"
)

// SourceConfig holds the source database connection parameters
type SourceConfig struct {
	Engine   string `toml:"engine"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	Encrypt  string `toml:"encrypt"`
}

// TargetConfig holds the PostgreSQL connection parameters
type TargetConfig struct {
	Host          string `toml:"host"`
	Port          string `toml:"port"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	Database      string `toml:"database"`
	SSLMode       string `toml:"sslmode"`
	MaintenanceDB string `toml:"maintenance_db"`
}

// Config is the full run configuration
type Config struct {
	Source      SourceConfig `toml:"source"`
	Target      TargetConfig `toml:"target"`
	BatchSize   int          `toml:"batch_size"`
	LogDir      string       `toml:"log_dir"`
	LogLevel    string       `toml:"log_level"`
	SchemaOnly  bool         `toml:"schema_only"`
	AnalyzeOnly bool         `toml:"analyze_only"`
	Verify      bool         `toml:"verify"`
	Strict      bool         `toml:"strict"`
}

// DefaultSourcePort returns the port a source engine listens on by default
func DefaultSourcePort(engine string) string {
	if engine == EngineMySQL {
		return "3306"
	}
	return "1433"
}

// Default returns the configuration used when nothing else is given
func Default() *Config {
	cfg := defaults()
	cfg.ResolveDefaults()
	return cfg
}

// defaults leaves the source port empty so it can follow the engine
// chosen by a later layer
func defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Engine:  EngineMSSQL,
			Host:    "localhost",
			User:    "sa",
			Encrypt: "disable",
		},
		Target: TargetConfig{
			Host:          "localhost",
			Port:          "5432",
			User:          "postgres",
			Database:      "migrated_db",
			SSLMode:       "disable",
			MaintenanceDB: "postgres",
		},
		BatchSize: 1000,
		LogDir:    "logs",
	}
}

// Load builds the configuration from defaults, an optional TOML file, the
// process environment and the given overrides, in that order of precedence
// (lowest first). Settings derived from others are resolved last.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.ApplyEnv()
	for _, override := range overrides {
		override(cfg)
	}

	cfg.ResolveDefaults()
	return cfg, nil
}

// ResolveDefaults fills settings whose default depends on other settings.
// The source port follows the engine unless it was set explicitly.
func (c *Config) ResolveDefaults() {
	if c.Source.Port == "" {
		c.Source.Port = DefaultSourcePort(c.Source.Engine)
	}
}

// ApplyEnv overrides fields with any non-empty environment variables
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Source.Engine, "SOURCE_ENGINE")
	setFromEnv(&c.Source.Host, "SOURCE_HOST")
	setFromEnv(&c.Source.Port, "SOURCE_PORT")
	setFromEnv(&c.Source.User, "SOURCE_USER")
	setFromEnv(&c.Source.Password, "SOURCE_PASSWORD")
	setFromEnv(&c.Source.Database, "SOURCE_DATABASE")
	setFromEnv(&c.Source.Encrypt, "SOURCE_ENCRYPT")

	setFromEnv(&c.Target.Host, "TARGET_HOST")
	setFromEnv(&c.Target.Port, "TARGET_PORT")
	setFromEnv(&c.Target.User, "TARGET_USER")
	setFromEnv(&c.Target.Password, "TARGET_PASSWORD")
	setFromEnv(&c.Target.Database, "TARGET_DATABASE")
	setFromEnv(&c.Target.SSLMode, "TARGET_SSLMODE")
	setFromEnv(&c.Target.MaintenanceDB, "TARGET_MAINTENANCE_DB")

	setFromEnv(&c.LogDir, "LOG_DIR")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")

	if value := os.Getenv("BATCH_SIZE"); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			c.BatchSize = n
		}
	}
}

// Validate checks that the configuration can be used for a run
func (c *Config) Validate() error {
	switch c.Source.Engine {
	case EngineMSSQL, EngineMySQL:
	default:
		return fmt.Errorf("unsupported source engine %q (expected %s or %s)", c.Source.Engine, EngineMSSQL, EngineMySQL)
	}

	if c.Source.Host == "" {
		return fmt.Errorf("source host is required")
	}
	if c.Source.User == "" {
		return fmt.Errorf("source user is required")
	}
	if c.Source.Database == "" {
		return fmt.Errorf("source database name is required")
	}
	if _, err := strconv.Atoi(c.Source.Port); err != nil {
		return fmt.Errorf("invalid source port: %s", c.Source.Port)
	}

	if c.Target.Host == "" {
		return fmt.Errorf("target host is required")
	}
	if c.Target.User == "" {
		return fmt.Errorf("target user is required")
	}
	if c.Target.Database == "" {
		return fmt.Errorf("target database name is required")
	}
	if _, err := strconv.Atoi(c.Target.Port); err != nil {
		return fmt.Errorf("invalid target port: %s", c.Target.Port)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

func setFromEnv(field *string, key string) {
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}
