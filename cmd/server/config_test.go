package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)

	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	// GIVEN: A YAML file setting several keys
	// WHEN: Loading it with one flag overriding the file
	// THEN: The flag wins, other file values are kept, the rest default

	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
db: "/var/lib/licenses.db"
redis_addr: "redis:6379"
cache_ttl: 10m
architectures_reload: 1m
log_format: json
allowed_origins:
  - https://dashboard.example.com
`), 0o600))

	cfg, err := LoadConfig([]string{"-config", path, "-addr", ":9100"})

	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "/var/lib/licenses.db", cfg.DB)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, time.Minute, cfg.ArchitecturesReload)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"https://dashboard.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfig_OriginsFlag(t *testing.T) {
	cfg, err := LoadConfig([]string{"-allowed-origins", "http://a, http://b,"})

	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")})

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_UnknownFlag(t *testing.T) {
	_, err := LoadConfig([]string{"-port", "80"})

	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	log, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	log.Info("hidden")
	log.WithField("license", "ISRV").Warn("shown")

	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"license":"ISRV"`)
}

func TestNewLogger_Invalid(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogLevel = "loud"
	_, err := NewLogger(cfg, &bytes.Buffer{})
	assert.Error(t, err)

	cfg = defaultConfig()
	cfg.LogFormat = "xml"
	_, err = NewLogger(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}
