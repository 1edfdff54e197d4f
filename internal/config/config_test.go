package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/market")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("BOOKING_MAX_HOURS", "6")
	t.Setenv("GEO_CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Server.Address)
	}
	if cfg.Booking.MinDuration != 1 || cfg.Booking.MaxDuration != 6 {
		t.Fatalf("unexpected duration bounds %d..%d", cfg.Booking.MinDuration, cfg.Booking.MaxDuration)
	}
	if cfg.Payment.Currency != "INR" {
		t.Fatalf("expected INR default, got %s", cfg.Payment.Currency)
	}
	if cfg.Maps.CacheTTL != 90*time.Second {
		t.Fatalf("expected 90s cache ttl, got %s", cfg.Maps.CacheTTL)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  address: ":9000"
database:
  url: "postgres://yaml/market"
auth:
  jwt_secret: "from-yaml"
payment:
  currency: "USD"
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("PAYMENT_CURRENCY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9000" || cfg.Database.URL != "postgres://yaml/market" {
		t.Fatalf("yaml values not applied: %+v", cfg.Server)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("env should override yaml, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Payment.Currency != "USD" {
		t.Fatalf("expected USD, got %s", cfg.Payment.Currency)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/market")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected missing jwt secret to fail")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected invalid int to fail")
	}

	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected explicit missing config file to fail")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+): it changes the working directory
// and restores it when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
