package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("CONSOLE_DB_DSN", "console.db")
	t.Setenv("CONSOLE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("CONSOLE_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("CONSOLE_DB_DSN", "console.db")
	t.Setenv("CONSOLE_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("JWT_SIGNING_KEY", "legacy")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}

func TestLoadProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("CONSOLE_DB_DSN", "console.db")
	t.Setenv("CONSOLE_ENV", "production")
	t.Setenv("CONSOLE_JWT_SIGNING_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail without a signing key")
	}

	t.Setenv("CONSOLE_JWT_SIGNING_KEY", "supersecret")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load with signing key to succeed: %v", err)
	}
}

func TestDefaultDatabaseBackendIsSQLite(t *testing.T) {
	t.Setenv("CONSOLE_DB_DSN", "console.db")
	t.Setenv("CONSOLE_JWT_SIGNING_KEY", "supersecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("expected sqlite default backend, got %q", cfg.DBBackend)
	}
}
