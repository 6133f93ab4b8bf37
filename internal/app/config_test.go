package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	path := writeConfigFile(t, `
env: staging
http:
  addr: ":9000"
  upload_max_bytes: 1024
auth:
  jwt_secret_key: from-file
  session_ttl: 2h
ai:
  notes_cache_ttl: 30m
redis:
  channel: lessons
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("PORT", "7070")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Auth.JWTSecretKey != "from-env" {
		t.Fatalf("env should win: %q", cfg.Auth.JWTSecretKey)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour || cfg.AI.NotesCacheTTL != 30*time.Minute {
		t.Fatalf("durations from file not applied: %+v %+v", cfg.Auth, cfg.AI)
	}
	if cfg.HTTP.UploadMaxBytes != 1024 || cfg.Redis.Channel != "lessons" {
		t.Fatalf("file values lost: %+v %+v", cfg.HTTP, cfg.Redis)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins: %v", cfg.HTTP.CORSOrigins)
	}
	if !cfg.MockTokenAllowed() {
		t.Fatalf("mock token should default on outside production")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET_KEY")
	}

	t.Setenv("JWT_SECRET_KEY", "s")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MockTokenAllowed() {
		t.Fatalf("mock token must default off in production")
	}

	t.Setenv("AUTH_ALLOW_MOCK_TOKEN", "true")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error enabling the mock token in production")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET_KEY", "s")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
