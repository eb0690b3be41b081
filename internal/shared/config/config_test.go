package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Ledger.LockTimeout != 5*time.Second {
		t.Errorf("Ledger.LockTimeout = %v, want 5s", cfg.Ledger.LockTimeout)
	}
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled should default to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LEDGER_LOCK_TIMEOUT", "2s")
	t.Setenv("RECONCILE_WORKERS", "8")
	t.Setenv("RATE_LIMIT_RPS", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Database.Driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Ledger.LockTimeout != 2*time.Second {
		t.Errorf("Ledger.LockTimeout = %v, want 2s", cfg.Ledger.LockTimeout)
	}
	if cfg.Ledger.ReconcileWorkers != 8 {
		t.Errorf("Ledger.ReconcileWorkers = %d, want 8", cfg.Ledger.ReconcileWorkers)
	}
	if cfg.RateLimit.RPS != 12.5 {
		t.Errorf("RateLimit.RPS = %v, want 12.5", cfg.RateLimit.RPS)
	}
}

func TestLoad_TOMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saldo.toml")
	content := `
environment = "staging"

[server]
port = "7000"

[database]
driver = "memory"
dbname = "ledger"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DB_NAME", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Environment)
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, want 7000", cfg.Server.Port)
	}
	if cfg.Database.DBName != "from-env" {
		t.Errorf("Database.DBName = %q, want env override", cfg.Database.DBName)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_MissingFileSkipped(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Fatalf("Load() failed on missing file: %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nport = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() expected parse error, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for unsupported driver, got nil")
	}
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for AUTH_ENABLED without JWT_SECRET, got nil")
	}

	t.Setenv("JWT_SECRET", "test-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.Auth.Enabled {
		t.Error("Auth.Enabled should be true")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert path, got nil")
	}
}

func TestLoad_TLSValidation_MissingKeyPath(t *testing.T) {
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "/path/to/cert")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without key path, got nil")
	}
}

func TestLoad_AllowedHosts(t *testing.T) {
	t.Setenv("ALLOWED_HOSTS", "example.com, api.example.com, localhost:3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedHosts) != 3 {
		t.Errorf("AllowedHosts length = %d, want 3", len(cfg.Server.AllowedHosts))
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"invalid", true, true},
		{"invalid", false, false},
		{"", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}

func TestLoad_ReconcileSchedule(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Ledger.ReconcileSchedule) != 0 {
		t.Errorf("ReconcileSchedule = %v, want empty by default", cfg.Ledger.ReconcileSchedule)
	}

	path := filepath.Join(t.TempDir(), "saldo.toml")
	content := `
[ledger]
reconcile_schedule = ["03:00"]
reconcile_on_startup = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Ledger.ReconcileSchedule) != 1 || cfg.Ledger.ReconcileSchedule[0] != "03:00" || !cfg.Ledger.ReconcileOnStartup {
		t.Errorf("Ledger = %+v", cfg.Ledger)
	}

	t.Setenv("RECONCILE_SCHEDULE", "02:00, 14:30")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Ledger.ReconcileSchedule) != 2 || cfg.Ledger.ReconcileSchedule[1] != "14:30" {
		t.Errorf("ReconcileSchedule = %v, want env override", cfg.Ledger.ReconcileSchedule)
	}
}
