// Package config - service configuration
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/session"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/logger"
)

// EnvPrefix prefix of all environment variable overrides
const EnvPrefix = "HALCYON_"

// DatabaseConfig persistence settings
type DatabaseConfig struct {
	// Driver database driver
	Driver string `json:"driver" yaml:"driver" validate:"required,oneof=sqlite postgres mysql"`
	// DSN driver specific data source name. For sqlite, the DB file.
	DSN string `json:"dsn" yaml:"dsn" validate:"required"`
	// SQLLogLevel GORM logging level
	SQLLogLevel string `json:"sql_log_level" yaml:"sql_log_level" validate:"required,oneof=silent error warn info"`
}

// LogConfig process logging settings
type LogConfig struct {
	// Format log output format
	Format string `json:"format" yaml:"format" validate:"required,oneof=json text"`
	// Level log level
	Level string `json:"level" yaml:"level" validate:"required,oneof=debug info warn error fatal"`
}

// Config service configuration
type Config struct {
	// ListenAddress HTTP listen address
	ListenAddress string `json:"listen_address" yaml:"listen_address" validate:"required"`
	// Database persistence settings
	Database DatabaseConfig `json:"database" yaml:"database" validate:"required"`
	// Session cookie session settings
	Session session.Params `json:"session" yaml:"session" validate:"required"`
	// GitHub GitHub OAuth application, optional
	GitHub *store.GitHubOAuthConfig `json:"github,omitempty" yaml:"github,omitempty" validate:"omitempty"`
	// Log process logging settings
	Log LogConfig `json:"log" yaml:"log" validate:"required"`
	// Limits per-user entity limits
	Limits store.Limits `json:"limits" yaml:"limits" validate:"required"`
	// AllowedOrigins cross origin callers allowed to use the API
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" validate:"dive,url"`
}

// Default the built-in configuration. It has no session secret, so it does not validate.
// Cookies are HTTPS only unless HALCYON_SESSION_SECURE=false.
func Default() Config {
	return Config{
		ListenAddress: ":8080",
		Database: DatabaseConfig{
			Driver:      db.DriverSqlite,
			DSN:         "halcyon.db",
			SQLLogLevel: "error",
		},
		Session: session.Params{Secure: true},
		Log:     LogConfig{Format: "text", Level: "info"},
		Limits:  store.DefaultLimits(),
	}
}

/*
Load build the configuration: defaults, then the optional YAML file, then
environment overrides

	@param configFile string - YAML config file, empty to skip
	@param lookupEnv func(string) (string, bool) - environment lookup, normally os.LookupEnv
	@returns the validated configuration
*/
func Load(configFile string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if configFile != "" {
		content, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("unable to read config file '%s' [%w]", configFile, err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("unable to parse config file '%s' [%w]", configFile, err)
		}
	}

	if err := cfg.applyEnv(lookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv apply the HALCYON_* environment overrides
func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	textFields := map[string]*string{
		"LISTEN_ADDRESS": &c.ListenAddress,
		"DB_DRIVER":      &c.Database.Driver,
		"DB_DSN":         &c.Database.DSN,
		"DB_LOG_LEVEL":   &c.Database.SQLLogLevel,
		"SESSION_SECRET": &c.Session.Secret,
		"LOG_FORMAT":     &c.Log.Format,
		"LOG_LEVEL":      &c.Log.Level,
	}
	for name, target := range textFields {
		if value, ok := lookupEnv(EnvPrefix + name); ok {
			*target = value
		}
	}

	if value, ok := lookupEnv(EnvPrefix + "SESSION_SECURE"); ok {
		secure, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %sSESSION_SECURE '%s' [%w]", EnvPrefix, value, err)
		}
		c.Session.Secure = secure
	}

	ints := map[string]*int{
		"MAX_LABELS": &c.Limits.MaxLabels,
		"MAX_EVENTS": &c.Limits.MaxEvents,
	}
	for name, target := range ints {
		value, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s' [%w]", EnvPrefix, name, value, err)
		}
		*target = parsed
	}

	clientID, hasID := lookupEnv(EnvPrefix + "GITHUB_CLIENT_ID")
	clientSecret, hasSecret := lookupEnv(EnvPrefix + "GITHUB_CLIENT_SECRET")
	if hasID || hasSecret {
		if c.GitHub == nil {
			c.GitHub = &store.GitHubOAuthConfig{}
		}
		if hasID {
			c.GitHub.ClientID = clientID
		}
		if hasSecret {
			c.GitHub.ClientSecret = clientSecret
		}
	}
	if redirect, ok := lookupEnv(EnvPrefix + "GITHUB_REDIRECT_URL"); ok && c.GitHub != nil {
		c.GitHub.RedirectURL = redirect
	}
	return nil
}

// Validate verify the configuration
func (c Config) Validate() error {
	if err := validator.New().Struct(&c); err != nil {
		return fmt.Errorf("configuration is not valid [%w]", err)
	}
	return nil
}

// GetSQLLogLevel the GORM log level
func (c DatabaseConfig) GetSQLLogLevel() logger.LogLevel {
	switch c.SQLLogLevel {
	case "silent":
		return logger.Silent
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Error
	}
}

// GetLogLevel the apex/log level
func (c LogConfig) GetLogLevel() log.Level {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
