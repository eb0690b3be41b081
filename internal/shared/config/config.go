package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Database    DatabaseConfig  `toml:"database"`
	Redis       RedisConfig     `toml:"redis"`
	Auth        AuthConfig      `toml:"auth"`
	TLS         TLSConfig       `toml:"tls"`
	Telemetry   TelemetryConfig `toml:"telemetry"`
	Logging     LoggingConfig   `toml:"logging"`
	Ledger      LedgerConfig    `toml:"ledger"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Port            string        `toml:"port"`
	Host            string        `toml:"host"`
	AllowedHosts    []string      `toml:"allowed_hosts"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig selects the storage driver. "memory" keeps everything in
// process and is meant for development and tests.
type DatabaseConfig struct {
	Driver         string `toml:"driver"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbname"`
	SSLMode        string `toml:"sslmode"`
	MigrateOnStart bool   `toml:"migrate_on_start"`
}

// RedisConfig enables the distributed account lock when Addr is set.
type RedisConfig struct {
	Addr           string        `toml:"addr"`
	Password       string        `toml:"password"`
	DB             int           `toml:"db"`
	LockExpiry     time.Duration `toml:"lock_expiry"`
	LockTries      int           `toml:"lock_tries"`
	LockRetryDelay time.Duration `toml:"lock_retry_delay"`
}

type AuthConfig struct {
	Enabled   bool   `toml:"enabled"`
	JWTSecret string `toml:"jwt_secret"`
	Issuer    string `toml:"issuer"`
}

type TLSConfig struct {
	Enabled      bool   `toml:"enabled"`
	CertPath     string `toml:"cert_path"`
	KeyPath      string `toml:"key_path"`
	RedirectHTTP bool   `toml:"redirect_http"`
}

type TelemetryConfig struct {
	Enabled      bool   `toml:"enabled"`
	ServiceName  string `toml:"service_name"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	MetricsPort  string `toml:"metrics_port"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// LedgerConfig tunes account locking and background reconciliation.
// An empty ReconcileSchedule disables the scheduled report-only run.
type LedgerConfig struct {
	LockTimeout        time.Duration `toml:"lock_timeout"`
	ReconcileWorkers   int           `toml:"reconcile_workers"`
	ReconcileSchedule  []string      `toml:"reconcile_schedule"` // "HH:MM" times of day
	ReconcileOnStartup bool          `toml:"reconcile_on_startup"`
}

// RateLimitConfig limits requests per client address. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// NewDefaultConfig returns the configuration used when no file or
// environment variable overrides a value.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "saldo",
			DBName:  "saldo",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			LockExpiry:     8 * time.Second,
			LockTries:      32,
			LockRetryDelay: 50 * time.Millisecond,
		},
		Auth: AuthConfig{
			Issuer: "saldo",
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "saldo-api",
			OTLPEndpoint: "localhost:4317",
			MetricsPort:  "9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			LockTimeout:      5 * time.Second,
			ReconcileWorkers: 4,
		},
		RateLimit: RateLimitConfig{
			Burst: 20,
		},
	}
}

// Load builds the configuration from defaults, then each TOML file in
// paths (later files win, missing files are skipped), then environment
// variables. SALDO_CONFIG names an extra file read after paths.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	if extra := os.Getenv("SALDO_CONFIG"); extra != "" {
		paths = append(paths, extra)
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var err error

	cfg.Environment = getEnv("SALDO_ENV", cfg.Environment)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	if hosts := getEnv("ALLOWED_HOSTS", ""); hosts != "" {
		cfg.Server.AllowedHosts = splitList(hosts)
	}
	if cfg.Server.ShutdownTimeout, err = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	if cfg.Database.Port, err = getIntEnv("DB_PORT", cfg.Database.Port); err != nil {
		return err
	}
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MigrateOnStart = getBoolEnv("DB_MIGRATE_ON_START", cfg.Database.MigrateOnStart)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	if cfg.Redis.DB, err = getIntEnv("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Redis.LockExpiry, err = getDurationEnv("REDIS_LOCK_EXPIRY", cfg.Redis.LockExpiry); err != nil {
		return err
	}

	cfg.Auth.Enabled = getBoolEnv("AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.TLS.Enabled = getBoolEnv("TLS_ENABLED", cfg.TLS.Enabled)
	cfg.TLS.CertPath = getEnv("TLS_CERT_PATH", cfg.TLS.CertPath)
	cfg.TLS.KeyPath = getEnv("TLS_KEY_PATH", cfg.TLS.KeyPath)
	cfg.TLS.RedirectHTTP = getBoolEnv("TLS_REDIRECT_HTTP", cfg.TLS.RedirectHTTP)

	cfg.Telemetry.Enabled = getBoolEnv("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.MetricsPort = getEnv("METRICS_PORT", cfg.Telemetry.MetricsPort)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	if cfg.Ledger.LockTimeout, err = getDurationEnv("LEDGER_LOCK_TIMEOUT", cfg.Ledger.LockTimeout); err != nil {
		return err
	}
	if cfg.Ledger.ReconcileWorkers, err = getIntEnv("RECONCILE_WORKERS", cfg.Ledger.ReconcileWorkers); err != nil {
		return err
	}
	if schedule := getEnv("RECONCILE_SCHEDULE", ""); schedule != "" {
		cfg.Ledger.ReconcileSchedule = splitList(schedule)
	}
	cfg.Ledger.ReconcileOnStartup = getBoolEnv("RECONCILE_ON_STARTUP", cfg.Ledger.ReconcileOnStartup)

	if rps := getEnv("RATE_LIMIT_RPS", ""); rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = v
	}
	if cfg.RateLimit.Burst, err = getIntEnv("RATE_LIMIT_BURST", cfg.RateLimit.Burst); err != nil {
		return err
	}

	return nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or memory)", c.Database.Driver)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED=true")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	if c.Ledger.ReconcileWorkers <= 0 {
		return fmt.Errorf("RECONCILE_WORKERS must be positive")
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
