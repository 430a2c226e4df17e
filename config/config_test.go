package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `app:
  env: production
  listen_addr: ":9090"
  shutdown_timeout: "30s"

database:
  path: /var/lib/payslip/payslip.db

smtp:
  host: smtp.example.com
  port: 587
  username: mailer

mail:
  from: payroll@example.com
  max_attempts: 5
  initial_interval: "1s"
  max_interval: "10s"

auth:
  secret: s3cret
  token_ttl: "1h"

payroll:
  workers: 8
  currency: EUR
  holidays: ["2026-12-01", "2026-12-25"]

idempotency:
  strict_operation: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "json", cfg.App.LogFormat, "production defaults to JSON logs")
	assert.Equal(t, ":9090", cfg.App.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 5, cfg.Mail.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Mail.InitialInterval)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 8, cfg.Payroll.Workers)
	assert.Len(t, cfg.Payroll.Holidays, 2)
	assert.True(t, cfg.Idempotency.StrictOperation)
	assert.Equal(t, BackendSQLite, cfg.Idempotency.Backend)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.App.CORSOrigins)
	assert.Equal(t, "localhost", cfg.SMTP.Host)
	assert.Equal(t, 1025, cfg.SMTP.Port)
	assert.Equal(t, 3, cfg.Mail.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Mail.InitialInterval)
	assert.Equal(t, devSecret, cfg.Auth.Secret)
	assert.Equal(t, 4, cfg.Payroll.Workers)
	assert.Equal(t, "RON", cfg.Payroll.Currency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	path := writeConfig(t, `app:
  listen_addr: ":9090"
auth:
  secret: from-file
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.App.ListenAddr)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, BackendRedis, cfg.Idempotency.Backend, "a redis address selects the redis ledger")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"production without secret", "app:\n  env: production\n"},
		{"bad duration", "mail:\n  initial_interval: soon\n"},
		{"inverted intervals", "mail:\n  initial_interval: 10s\n  max_interval: 1s\n"},
		{"bad holiday", "payroll:\n  holidays: [\"01/12/2026\"]\n"},
		{"unknown backend", "idempotency:\n  backend: etcd\n"},
		{"redis without addr", "idempotency:\n  backend: redis\n"},
		{"port out of range", "smtp:\n  port: 70000\n"},
		{"bad log format", "app:\n  log_format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
