// Package config loads the engine configuration from YAML and the environment.
//
// Order of precedence, lowest first: built-in defaults, the YAML file,
// a .env file in the working directory, process environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environments with relaxed defaults.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Ledger backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the whole engine configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Mail        MailConfig        `yaml:"mail"`
	Auth        AuthConfig        `yaml:"auth"`
	Payroll     PayrollConfig     `yaml:"payroll"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

type AppConfig struct {
	Env                string        `yaml:"env"`
	Name               string        `yaml:"name"`
	ListenAddr         string        `yaml:"listen_addr"`
	LogLevel           string        `yaml:"log_level"`  // debug, info, warn, error
	LogFormat          string        `yaml:"log_format"` // json, text
	CORSOrigins        []string      `yaml:"cors_origins"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout"`
}

func (a AppConfig) IsProduction() bool { return a.Env == EnvProduction }

type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file, or ":memory:"
}

type StorageConfig struct {
	Root string `yaml:"root"` // artifact tree, served under /files
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSL      bool   `yaml:"ssl"`
	Insecure bool   `yaml:"insecure_skip_verify"`
}

type MailConfig struct {
	From               string        `yaml:"from"`
	MaxAttempts        int           `yaml:"max_attempts"`
	InitialInterval    time.Duration `yaml:"-"`
	InitialIntervalRaw string        `yaml:"initial_interval"`
	MaxInterval        time.Duration `yaml:"-"`
	MaxIntervalRaw     string        `yaml:"max_interval"`
}

type AuthConfig struct {
	Secret      string        `yaml:"secret"`
	Issuer      string        `yaml:"issuer"`
	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl"`
}

type PayrollConfig struct {
	Workers  int      `yaml:"workers"`
	Currency string   `yaml:"currency"`
	Company  string   `yaml:"company"`
	Holidays []string `yaml:"holidays"` // YYYY-MM-DD
}

type IdempotencyConfig struct {
	StrictOperation bool        `yaml:"strict_operation"`
	Backend         string      `yaml:"backend"`
	Redis           RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"-"`
	TTLRaw   string        `yaml:"ttl"`
}

// devSecret signs tokens outside production when no secret is configured.
const devSecret = "dev-only-insecure-secret"

// Load reads path (optional when empty) and applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.ListenAddr, "LISTEN_ADDR")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.Database.Path, "DATABASE_PATH")
	setString(&c.Storage.Root, "STORAGE_ROOT")
	setString(&c.SMTP.Host, "SMTP_HOST")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setString(&c.Auth.Secret, "JWT_SECRET")
	setString(&c.Idempotency.Redis.Addr, "REDIS_ADDR")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	return nil
}

func (c *Config) validateAndNormalize() error {
	a := &c.App
	if a.Env == "" {
		a.Env = EnvDevelopment
	}
	if a.Name == "" {
		a.Name = "Payslip Engine"
	}
	if a.ListenAddr == "" {
		a.ListenAddr = ":8080"
	}
	if a.LogLevel == "" {
		a.LogLevel = "info"
	}
	switch a.LogFormat {
	case "":
		a.LogFormat = "text"
		if a.IsProduction() {
			a.LogFormat = "json"
		}
	case "json", "text":
	default:
		return fmt.Errorf("config: app.log_format must be json or text, got %q", a.LogFormat)
	}
	if len(a.CORSOrigins) == 0 {
		a.CORSOrigins = []string{"*"}
	}
	var err error
	if a.ShutdownTimeout, err = parseDurationDefault(a.ShutdownTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: app.shutdown_timeout: %w", err)
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/payslip.db"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./storage"
	}

	if c.SMTP.Host == "" {
		c.SMTP.Host = "localhost"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 1025
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("config: smtp.port out of range: %d", c.SMTP.Port)
	}

	if err := c.Mail.validateAndNormalize(); err != nil {
		return err
	}

	if c.Auth.Secret == "" {
		if a.IsProduction() {
			return fmt.Errorf("config: auth.secret must be set in production")
		}
		c.Auth.Secret = devSecret
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "payslip-engine"
	}
	if c.Auth.TokenTTL, err = parseDurationDefault(c.Auth.TokenTTLRaw, 12*time.Hour); err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}

	p := &c.Payroll
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.Currency == "" {
		p.Currency = "RON"
	}
	for i, d := range p.Holidays {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("config: payroll.holidays[%d]: want YYYY-MM-DD, got %q", i, d)
		}
	}

	return c.Idempotency.validateAndNormalize()
}

func (m *MailConfig) validateAndNormalize() error {
	if m.From == "" {
		m.From = "noreply@payslip.local"
	}
	if m.MaxAttempts <= 0 {
		m.MaxAttempts = 3
	}
	var err error
	if m.InitialInterval, err = parseDurationDefault(m.InitialIntervalRaw, 500*time.Millisecond); err != nil {
		return fmt.Errorf("config: mail.initial_interval: %w", err)
	}
	if m.MaxInterval, err = parseDurationDefault(m.MaxIntervalRaw, 5*time.Second); err != nil {
		return fmt.Errorf("config: mail.max_interval: %w", err)
	}
	if m.MaxInterval < m.InitialInterval {
		return fmt.Errorf("config: mail.max_interval %s is below initial_interval %s", m.MaxInterval, m.InitialInterval)
	}
	return nil
}

func (i *IdempotencyConfig) validateAndNormalize() error {
	i.Backend = strings.ToLower(i.Backend)
	if i.Backend == "" {
		i.Backend = BackendSQLite
		if i.Redis.Addr != "" {
			i.Backend = BackendRedis
		}
	}
	switch i.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if i.Redis.Addr == "" {
			return fmt.Errorf("config: idempotency.redis.addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("config: idempotency.backend must be sqlite, memory or redis, got %q", i.Backend)
	}
	var err error
	if i.Redis.TTL, err = parseDurationDefault(i.Redis.TTLRaw, 0); err != nil {
		return fmt.Errorf("config: idempotency.redis.ttl: %w", err)
	}
	return nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}
