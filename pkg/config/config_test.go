package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HPC_BURSAR_URL", "")
	t.Setenv("HPC_BURSAR_CERT_PATH", "")
	t.Setenv("USER", "storaged")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BursarURL != DefaultBursarURL {
		t.Errorf("BursarURL = %q, want %q", cfg.BursarURL, DefaultBursarURL)
	}
	if cfg.BasePath != DefaultBasePath {
		t.Errorf("BasePath = %q, want %q", cfg.BasePath, DefaultBasePath)
	}
	if cfg.User != "storaged" {
		t.Errorf("User = %q, want %q", cfg.User, "storaged")
	}
	if len(cfg.ActiveStatuses) == 0 || len(cfg.StorageResources) == 0 {
		t.Error("rule defaults not applied")
	}

	gb, err := cfg.MinQuotaGB()
	if err != nil {
		t.Fatalf("MinQuotaGB: %v", err)
	}
	if gb != 1 {
		t.Errorf("MinQuotaGB = %d, want 1", gb)
	}

	d, err := cfg.IntervalDuration()
	if err != nil {
		t.Fatalf("IntervalDuration: %v", err)
	}
	if d != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", d)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("bursar_url: https://file.example/api/v1/\nuser: filed\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HPC_BURSAR_URL", "https://env.example/api/v1/")
	t.Setenv("HPC_BURSAR_CERT_PATH", "/etc/ssl/bursar.pem")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BursarURL != "https://env.example/api/v1/" {
		t.Errorf("BursarURL = %q, env must win", cfg.BursarURL)
	}
	if cfg.BursarCertPath != "/etc/ssl/bursar.pem" {
		t.Errorf("BursarCertPath = %q", cfg.BursarCertPath)
	}
	if cfg.User != "filed" {
		t.Errorf("User = %q, file value must survive", cfg.User)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HPC_BURSAR_URL", "")
	t.Setenv("HPC_BURSAR_CERT_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
base_path: /mnt/projects
filesystem: /mnt/
lfs_path: /opt/lustre/bin/lfs
min_quota: 2Gi
interval: 1h
active_statuses: ["active"]
storage_resources: ["storage"]
fold_resource_case: true
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BasePath != "/mnt/projects" || cfg.Filesystem != "/mnt/" {
		t.Errorf("paths = %q, %q", cfg.BasePath, cfg.Filesystem)
	}
	gb, _ := cfg.MinQuotaGB()
	if gb != 2 {
		t.Errorf("MinQuotaGB = %d, want 2", gb)
	}
	rules := cfg.Rules()
	if len(rules.ActiveStatuses) != 1 || !rules.FoldResourceCase {
		t.Errorf("rules = %+v", rules)
	}
}

func TestSubGigabyteMinQuotaFloorsToOne(t *testing.T) {
	cfg := &Config{MinQuota: "512Mi"}
	gb, err := cfg.MinQuotaGB()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gb != 1 {
		t.Errorf("MinQuotaGB = %d, want 1", gb)
	}
}

func TestInvalidMinQuotaRejected(t *testing.T) {
	t.Setenv("HPC_BURSAR_URL", "")
	t.Setenv("HPC_BURSAR_CERT_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("min_quota: banana\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable min_quota")
	}
}

func TestInvalidIntervalRejected(t *testing.T) {
	t.Setenv("HPC_BURSAR_URL", "")
	t.Setenv("HPC_BURSAR_CERT_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("interval: -5m\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-positive interval")
	}
}
