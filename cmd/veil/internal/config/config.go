// Package config provides configuration management for veil.
// Configuration is read from an optional YAML file with centralized
// defaults. The database credentials can be overridden with the
// PERSONAL_DATA_DB_* environment variables used by existing deployments.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/spf13/viper"
	"github.com/thalib/veil/cmd/veil/internal/constants"
	"github.com/thalib/veil/cmd/veil/internal/database"
	"github.com/thalib/veil/cmd/veil/internal/password"
	"github.com/thalib/veil/cmd/veil/internal/redact"
)

// Defaults contains all default configuration values
// centralized in one place to avoid hardcoded literals
var Defaults = struct {
	Database struct {
		Connection   string
		Host         string
		User         string
		Password     string
		Name         string
		Table        string
		QueryTimeout int
	}
	Logging struct {
		Name      string
		AppTag    string
		Level     string
		Format    string
		Path      string
		Fields    []string
		Redaction string
		Separator string
		Matching  string
		Template  string
	}
	Password struct {
		Cost int
	}
	ConfigPath string
}{
	Database: struct {
		Connection   string
		Host         string
		User         string
		Password     string
		Name         string
		Table        string
		QueryTimeout int
	}{
		Connection:   "mysql",
		Host:         "localhost",
		User:         "root",
		Password:     "",
		Name:         "",
		Table:        constants.TableUsers,
		QueryTimeout: int(constants.QueryTimeout.Seconds()),
	},
	Logging: struct {
		Name      string
		AppTag    string
		Level     string
		Format    string
		Path      string
		Fields    []string
		Redaction string
		Separator string
		Matching  string
		Template  string
	}{
		Name:      constants.LoggerName,
		AppTag:    constants.AppTag,
		Level:     "info",
		Format:    "text",
		Path:      "", // stderr
		Fields:    constants.PIIFields,
		Redaction: constants.RedactedPlaceholder,
		Separator: string(constants.FieldSeparator),
		Matching:  string(redact.MatchExact),
		Template:  constants.LineTemplate,
	},
	Password: struct {
		Cost int
	}{
		Cost: password.DefaultCost,
	},
	ConfigPath: "/etc/veil.yaml",
}

// Environment variables that override database settings.
const (
	EnvDBUsername = "PERSONAL_DATA_DB_USERNAME"
	EnvDBPassword = "PERSONAL_DATA_DB_PASSWORD"
	EnvDBHost     = "PERSONAL_DATA_DB_HOST"
	EnvDBName     = "PERSONAL_DATA_DB_NAME"
)

// AppConfig holds the application configuration.
// It is not modified after Load returns.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Password PasswordConfig `mapstructure:"password"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Connection   string `mapstructure:"connection"`    // database type: mysql, postgres, sqlite
	Host         string `mapstructure:"host"`          // database host, optionally host:port
	User         string `mapstructure:"user"`          // database user
	Password     string `mapstructure:"password"`      // database password
	Name         string `mapstructure:"name"`          // database name, or file path for sqlite
	Table        string `mapstructure:"table"`         // table holding user rows
	QueryTimeout int    `mapstructure:"query_timeout"` // query timeout in seconds
}

// LoggingConfig holds logging and redaction configuration.
type LoggingConfig struct {
	Name      string   `mapstructure:"name"`      // logger name rendered in each line
	AppTag    string   `mapstructure:"app_tag"`   // bracketed application tag
	Level     string   `mapstructure:"level"`     // debug, info, warn, error
	Format    string   `mapstructure:"format"`    // text, json, console
	Path      string   `mapstructure:"path"`      // log file path, empty for stderr
	Fields    []string `mapstructure:"fields"`    // sensitive field names
	Redaction string   `mapstructure:"redaction"` // replacement for sensitive values
	Separator string   `mapstructure:"separator"` // single-character segment separator
	Matching  string   `mapstructure:"matching"`  // exact or pattern
	Template  string   `mapstructure:"template"`  // text/template for log lines
}

// PasswordConfig holds credential hashing configuration.
type PasswordConfig struct {
	Cost int `mapstructure:"cost"` // bcrypt work factor
}

// Load initializes and loads the application configuration.
// An empty configPath reads the default path if it exists; an explicit path
// must exist.
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()

	// Set default values from centralized Defaults struct
	v.SetDefault("database.connection", Defaults.Database.Connection)
	v.SetDefault("database.host", Defaults.Database.Host)
	v.SetDefault("database.user", Defaults.Database.User)
	v.SetDefault("database.password", Defaults.Database.Password)
	v.SetDefault("database.name", Defaults.Database.Name)
	v.SetDefault("database.table", Defaults.Database.Table)
	v.SetDefault("database.query_timeout", Defaults.Database.QueryTimeout)
	v.SetDefault("logging.name", Defaults.Logging.Name)
	v.SetDefault("logging.app_tag", Defaults.Logging.AppTag)
	v.SetDefault("logging.level", Defaults.Logging.Level)
	v.SetDefault("logging.format", Defaults.Logging.Format)
	v.SetDefault("logging.path", Defaults.Logging.Path)
	v.SetDefault("logging.fields", Defaults.Logging.Fields)
	v.SetDefault("logging.redaction", Defaults.Logging.Redaction)
	v.SetDefault("logging.separator", Defaults.Logging.Separator)
	v.SetDefault("logging.matching", Defaults.Logging.Matching)
	v.SetDefault("logging.template", Defaults.Logging.Template)
	v.SetDefault("password.cost", Defaults.Password.Cost)

	// Database credentials from the environment take precedence over the file
	envBindings := map[string]string{
		"database.user":     EnvDBUsername,
		"database.password": EnvDBPassword,
		"database.host":     EnvDBHost,
		"database.name":     EnvDBName,
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetConfigType("yaml")

	path := configPath
	if path == "" {
		path = Defaults.ConfigPath
	}

	readFile := true
	if _, err := os.Stat(path); err != nil {
		if configPath != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		// Default file absent: run on defaults and environment only
		readFile = false
	}

	if readFile {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal configuration into struct
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks field values and fills in defaults for empty ones.
func validate(cfg *AppConfig) error {
	switch cfg.Database.Connection {
	case "mysql", "postgres", "sqlite":
	case "":
		cfg.Database.Connection = Defaults.Database.Connection
	default:
		return fmt.Errorf("invalid database connection %q, must be one of: mysql, postgres, sqlite", cfg.Database.Connection)
	}
	if cfg.Database.Connection == "sqlite" && cfg.Database.Name == "" {
		return fmt.Errorf("database.name is required for sqlite (path to the database file)")
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = Defaults.Database.Table
	}
	if !database.IsValidIdentifier(cfg.Database.Table) {
		return fmt.Errorf("invalid database table %q", cfg.Database.Table)
	}
	if cfg.Database.QueryTimeout <= 0 {
		cfg.Database.QueryTimeout = Defaults.Database.QueryTimeout
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	case "":
		cfg.Logging.Level = Defaults.Logging.Level
	default:
		return fmt.Errorf("invalid logging level %q, must be one of: debug, info, warn, error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json", "console":
	case "":
		cfg.Logging.Format = Defaults.Logging.Format
	default:
		return fmt.Errorf("invalid logging format %q, must be one of: text, json, console", cfg.Logging.Format)
	}
	switch redact.Matcher(cfg.Logging.Matching) {
	case redact.MatchExact, redact.MatchPattern:
	case "":
		cfg.Logging.Matching = Defaults.Logging.Matching
	default:
		return fmt.Errorf("invalid logging matching %q, must be one of: exact, pattern", cfg.Logging.Matching)
	}
	if cfg.Logging.Separator == "" {
		cfg.Logging.Separator = Defaults.Logging.Separator
	}
	if utf8.RuneCountInString(cfg.Logging.Separator) != 1 {
		return fmt.Errorf("logging.separator must be a single character, got %q", cfg.Logging.Separator)
	}

	if cfg.Password.Cost == 0 {
		cfg.Password.Cost = Defaults.Password.Cost
	}
	if cfg.Password.Cost < password.MinCost || cfg.Password.Cost > password.MaxCost {
		return fmt.Errorf("password.cost %d out of range [%d, %d]", cfg.Password.Cost, password.MinCost, password.MaxCost)
	}

	// Catch marker and template problems at load time rather than first use
	if _, err := redact.NewFormatter(cfg.Logging.FormatterConfig()); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	return nil
}

// FormatterConfig returns the redaction formatter configuration.
func (c LoggingConfig) FormatterConfig() redact.Config {
	var sep rune
	if c.Separator != "" {
		sep, _ = utf8.DecodeRuneInString(c.Separator)
	}
	return redact.Config{
		Fields:    append([]string(nil), c.Fields...),
		Redaction: c.Redaction,
		Separator: sep,
		AppTag:    c.AppTag,
		Template:  c.Template,
		Matcher:   redact.Matcher(c.Matching),
	}
}
