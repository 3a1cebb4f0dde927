package config_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/alwitt/halcyon/config"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func envOf(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	// Case 0: defaults alone have no session secret
	_, err := config.Load("", envOf(nil))
	assert.Error(err)

	// Case 1: secret from the environment
	cfg, err := config.Load("", envOf(map[string]string{
		"HALCYON_SESSION_SECRET": "0123456789abcdef0123456789abcdef",
	}))
	assert.Nil(err)
	assert.Equal(":8080", cfg.ListenAddress)
	assert.Equal("sqlite", cfg.Database.Driver)
	assert.Equal(logger.Error, cfg.Database.GetSQLLogLevel())
	assert.Equal(log.InfoLevel, cfg.Log.GetLogLevel())
	assert.Nil(cfg.GitHub)
	assert.True(cfg.Session.Secure)

	// Case 2: local development opts out of HTTPS only cookies
	cfg, err = config.Load("", envOf(map[string]string{
		"HALCYON_SESSION_SECRET": "0123456789abcdef0123456789abcdef",
		"HALCYON_SESSION_SECURE": "false",
	}))
	assert.Nil(err)
	assert.False(cfg.Session.Secure)
}

func TestConfigFileAndEnv(t *testing.T) {
	assert := assert.New(t)

	configFile := fmt.Sprintf("/tmp/halcyon_ut_%s.yaml", ulid.Make().String())
	content := []byte(`
listen_address: 127.0.0.1:9000
database:
  driver: postgres
  dsn: host=localhost user=halcyon
  sql_log_level: warn
session:
  secret: file-secret-0123456789abcdef0123456789
  secure: false
github:
  client_id: id-from-file
  client_secret: secret-from-file
log:
  format: json
  level: debug
allowed_origins:
  - https://journal.example.com
limits:
  max_labels: 5
  max_events: 6
`)
	assert.Nil(os.WriteFile(configFile, content, 0o600))
	defer func() { _ = os.Remove(configFile) }()

	// Case 0: file only
	cfg, err := config.Load(configFile, envOf(nil))
	assert.Nil(err)
	assert.Equal("127.0.0.1:9000", cfg.ListenAddress)
	assert.Equal("postgres", cfg.Database.Driver)
	assert.Equal(logger.Warn, cfg.Database.GetSQLLogLevel())
	assert.False(cfg.Session.Secure)
	assert.Equal("id-from-file", cfg.GitHub.ClientID)
	assert.Equal(log.DebugLevel, cfg.Log.GetLogLevel())
	assert.Equal(5, cfg.Limits.MaxLabels)
	assert.Equal(6, cfg.Limits.MaxEvents)
	assert.Equal([]string{"https://journal.example.com"}, cfg.AllowedOrigins)

	// Case 1: environment wins over file
	cfg, err = config.Load(configFile, envOf(map[string]string{
		"HALCYON_DB_DRIVER":        "mysql",
		"HALCYON_SESSION_SECURE":   "true",
		"HALCYON_GITHUB_CLIENT_ID": "id-from-env",
		"HALCYON_MAX_LABELS":       "50",
	}))
	assert.Nil(err)
	assert.Equal("mysql", cfg.Database.Driver)
	assert.True(cfg.Session.Secure)
	assert.Equal("id-from-env", cfg.GitHub.ClientID)
	assert.Equal("secret-from-file", cfg.GitHub.ClientSecret)
	assert.Equal(50, cfg.Limits.MaxLabels)

	// Case 2: bad override values
	_, err = config.Load(configFile, envOf(map[string]string{"HALCYON_MAX_EVENTS": "many"}))
	assert.Error(err)
	_, err = config.Load(configFile, envOf(map[string]string{"HALCYON_SESSION_SECURE": "maybe"}))
	assert.Error(err)
	_, err = config.Load(configFile, envOf(map[string]string{"HALCYON_DB_DRIVER": "oracle"}))
	assert.Error(err)
	_, err = config.Load(configFile, envOf(map[string]string{"HALCYON_MAX_LABELS": "0"}))
	assert.Error(err)

	// Case 3: GitHub half configured
	_, err = config.Load(configFile, envOf(map[string]string{"HALCYON_GITHUB_CLIENT_SECRET": ""}))
	assert.Error(err)

	// Case 4: missing file
	_, err = config.Load("/tmp/does-not-exist-"+ulid.Make().String(), envOf(nil))
	assert.Error(err)
}
