package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_requiresUpstreamBaseURL(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected an error when no upstream base URL is configured")
	}
}

func TestLoad_fileValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
http_addr: ":9090"
log_level: debug
upstream:
  base_url: https://api.example.test
  timeout: 3s
archive:
  poll_interval: 1m
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Upstream.BaseURL != "https://api.example.test" || cfg.Upstream.Timeout != 3*time.Second {
		t.Fatalf("upstream config not applied: %+v", cfg.Upstream)
	}
	if cfg.Archive.PollInterval != time.Minute {
		t.Fatalf("archive config not applied: %+v", cfg.Archive)
	}
	// Unset fields keep defaults.
	if cfg.Archive.MaxRuntime != 30*time.Second {
		t.Fatalf("default max runtime lost: %+v", cfg.Archive)
	}
}

func TestLoad_environmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
upstream:
  base_url: https://file.example.test
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("UPSTREAM_BASE_URL", "https://env.example.test")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("ARCHIVE_MAX_RUNTIME", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://env.example.test" {
		t.Fatalf("environment must win, got %s", cfg.Upstream.BaseURL)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("environment must win for addr, got %s", cfg.HTTPAddr)
	}
	if cfg.Archive.MaxRuntime != 45*time.Second {
		t.Fatalf("archive max runtime override lost, got %s", cfg.Archive.MaxRuntime)
	}
}
