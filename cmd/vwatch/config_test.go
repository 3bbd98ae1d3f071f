package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/vwatch/internal/localstore"
	"github.com/tinytelemetry/vwatch/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig(filepath.Join(home, "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:3000" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.RefreshInterval != model.DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %d", cfg.RefreshInterval)
	}
	if cfg.APITimeout != model.DefaultAPITimeout {
		t.Errorf("APITimeout = %s", cfg.APITimeout)
	}
	if !strings.HasPrefix(cfg.StoragePath, home) || !strings.HasPrefix(cfg.DBPath, home) {
		t.Errorf("paths not under home: %q %q", cfg.StoragePath, cfg.DBPath)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty for a missing file", cfg.ConfigPath)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VWATCH_API_PORT", "4100")

	path := writeConfig(t, `
project-urls:
  - https://a.vercel.app
  - https://b.vercel.app
mock-data: true
refresh-interval: 60
theme: light
api-timeout: 5s
db-path: ~/data/history.duckdb
seed: 42
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.ProjectURLs) != 2 || cfg.ProjectURLs[1] != "https://b.vercel.app" {
		t.Errorf("ProjectURLs = %v", cfg.ProjectURLs)
	}
	if !cfg.MockData || cfg.Seed != 42 {
		t.Errorf("MockData = %v, Seed = %d", cfg.MockData, cfg.Seed)
	}
	if cfg.APIAddr != "127.0.0.1:4100" {
		t.Errorf("APIAddr = %q, want env port", cfg.APIAddr)
	}
	if cfg.APITimeout != 5*time.Second {
		t.Errorf("APITimeout = %s", cfg.APITimeout)
	}
	if cfg.DBPath != filepath.Join(home, "data", "history.duckdb") {
		t.Errorf("DBPath = %q, want ~ expanded", cfg.DBPath)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q", cfg.ConfigPath)
	}

	s := cfg.initialSettings()
	if s.RefreshInterval != 60 || s.Theme != model.ThemeLight || !s.AutoRefresh {
		t.Errorf("initial settings = %+v", s)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"port", "api-port: 70000\n", "api-port"},
		{"interval", "refresh-interval: 0\n", "refresh-interval"},
		{"theme", "theme: neon\n", "theme"},
		{"retention", "history-retention: -1\n", "history-retention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := loadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSeedToken(t *testing.T) {
	t.Parallel()

	local := localstore.NewMemory()
	if err := seedToken(local, "  "); err != nil || local.Token() != "" {
		t.Fatalf("blank token seeded: %q, %v", local.Token(), err)
	}
	if err := seedToken(local, "from-config"); err != nil || local.Token() != "from-config" {
		t.Fatalf("token = %q, %v", local.Token(), err)
	}

	if err := local.SetToken("from-login"); err != nil {
		t.Fatal(err)
	}
	if err := seedToken(local, "from-config"); err != nil || local.Token() != "from-login" {
		t.Errorf("saved token should win, got %q", local.Token())
	}
}
