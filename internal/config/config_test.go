package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func stubDotEnv(t *testing.T, fn func(path string) error) {
	t.Helper()
	orig := loadDotEnv
	t.Cleanup(func() { loadDotEnv = orig })
	loadDotEnv = fn
}

func TestLoad_Defaults(t *testing.T) {
	stubDotEnv(t, func(path string) error { return fs.ErrNotExist })
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.RateLimit.FriendRequestLimit != 3 || cfg.RateLimit.FriendRequestWindow != time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Store.Timeout != 5*time.Second {
		t.Fatalf("expected store timeout 5s, got %v", cfg.Store.Timeout)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Fatal("expected development secret fallback")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	stubDotEnv(t, func(path string) error { return fs.ErrNotExist })
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET missing in production")
	}
}

func TestLoad_DotEnvError(t *testing.T) {
	stubDotEnv(t, func(path string) error { return errors.New("bad line") })

	if _, err := Load(); err == nil {
		t.Fatal("expected env file error")
	}
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FRIEND_REQUEST_RATE_LIMIT=7\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	// t.Setenv restores the variable; unset it so the file value applies.
	t.Setenv("FRIEND_REQUEST_RATE_LIMIT", "")
	os.Unsetenv("FRIEND_REQUEST_RATE_LIMIT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateLimit.FriendRequestLimit != 7 {
		t.Fatalf("expected limit from env file, got %d", cfg.RateLimit.FriendRequestLimit)
	}
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "soon")
	if got := getEnvDuration("STORE_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	t.Setenv("STORE_TIMEOUT", "-1s")
	if got := getEnvDuration("STORE_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("expected fallback for negative duration, got %v", got)
	}
}

func TestDSNAndAddr(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, DBName: "db", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:1/db?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	r := RedisConfig{Host: "r", Port: 2}
	if got := r.Addr(); got != "r:2" {
		t.Fatalf("unexpected addr %q", got)
	}
}
