package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.json", `{"server": {"port": "8080"}}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.StaticDir != DefaultStaticDir {
		t.Errorf("static_dir: got %q", cfg.Server.StaticDir)
	}
	if cfg.Server.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("history_limit: got %d", cfg.Server.HistoryLimit)
	}
	if cfg.Database.Path != DefaultDatabasePath {
		t.Errorf("database.path: got %q", cfg.Database.Path)
	}
	if cfg.Lookup.BaseURL != DefaultLookupBaseURL {
		t.Errorf("lookup.base_url: got %q", cfg.Lookup.BaseURL)
	}
	if cfg.LookupTimeout() != DefaultLookupTimeout {
		t.Errorf("lookup timeout: got %v", cfg.LookupTimeout())
	}
	if cfg.Log.Mode != DefaultLogMode {
		t.Errorf("log.mode: got %q", cfg.Log.Mode)
	}
	if !cfg.Criteria.Overrides.IsEmpty() {
		t.Errorf("criteria overrides should be empty: %+v", cfg.Criteria.Overrides)
	}
}

func TestLoadConfig_Full(t *testing.T) {
	body := `{
		"server": {"port": "9000", "static_dir": "web", "history_limit": 5},
		"database": {"path": "/tmp/x.db"},
		"ml": {"type": "google", "config_path": "config/google.json"},
		"lookup": {"base_url": "http://localhost/api/", "timeout_seconds": 3},
		"criteria": {"path": "criteria.yaml", "overrides": {"maxSodium": 400}},
		"log": {"mode": "prod"}
	}`
	cfg, err := LoadConfig(writeFile(t, "config.json", body))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Server.HistoryLimit != 5 {
		t.Errorf("server: %+v", cfg.Server)
	}
	if cfg.ML.Type != "google" || cfg.ML.ConfigPath != "config/google.json" {
		t.Errorf("ml: %+v", cfg.ML)
	}
	if cfg.LookupTimeout() != 3*time.Second {
		t.Errorf("lookup timeout: got %v", cfg.LookupTimeout())
	}
	if cfg.Criteria.Overrides.MaxSodium == nil || *cfg.Criteria.Overrides.MaxSodium != 400 {
		t.Errorf("criteria overrides: %+v", cfg.Criteria.Overrides)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing port", `{"server": {}}`},
		{"bad json", `{"server": `},
		{"unknown ml type", `{"server": {"port": "1"}, "ml": {"type": "local"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeFile(t, "config.json", tc.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetConfigPath_Env(t *testing.T) {
	t.Setenv("HEALTHSCANNER_CONFIG", "/etc/healthscanner.json")
	if got := GetConfigPath(); got != "/etc/healthscanner.json" {
		t.Errorf("GetConfigPath = %q", got)
	}
}
