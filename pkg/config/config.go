package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/plgrid/hpc-storage/pkg/grants"
)

// Defaults mirror the standard PLGrid deployment.
const (
	DefaultBursarURL   = "http://127.0.0.1:8000/api/v1/"
	DefaultService     = "admin/grants_group_info"
	DefaultBasePath    = "/net/pr2/projects/plgrid"
	DefaultFilesystem  = "/net/pr2/"
	DefaultLFSPath     = "/usr/bin/lfs"
	DefaultMungePath   = "/usr/bin/munge"
	DefaultMinQuota    = "1Gi"
	DefaultInterval    = "15m"
	DefaultMetricsAddr = ":9201"
)

const gib = 1 << 30

type Config struct {
	BursarURL      string `yaml:"bursar_url"`
	BursarCertPath string `yaml:"bursar_cert_path"`
	Service        string `yaml:"service"`
	User           string `yaml:"user"`

	BasePath   string `yaml:"base_path"`
	Filesystem string `yaml:"filesystem"`
	LFSPath    string `yaml:"lfs_path"`
	MungePath  string `yaml:"munge_path"`

	// MinQuota floors every applied quota, as a resource quantity ("1Gi").
	MinQuota string `yaml:"min_quota"`

	// Interval between daemon passes, in time.ParseDuration syntax.
	Interval    string `yaml:"interval"`
	MetricsAddr string `yaml:"metrics_addr"`

	ActiveStatuses   []string `yaml:"active_statuses"`
	StorageResources []string `yaml:"storage_resources"`
	FoldResourceCase bool     `yaml:"fold_resource_case"`
}

// Load reads the optional YAML file, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv keeps the environment contract of the original deployment:
// HPC_BURSAR_URL and HPC_BURSAR_CERT_PATH win over the file, USER identifies
// the munge principal.
func (c *Config) applyEnv() {
	if v := os.Getenv("HPC_BURSAR_URL"); v != "" {
		c.BursarURL = v
	}
	if v := os.Getenv("HPC_BURSAR_CERT_PATH"); v != "" {
		c.BursarCertPath = v
	}
	if c.User == "" {
		if v := os.Getenv("USER"); v != "" {
			c.User = v
		} else {
			c.User = "root"
		}
	}
}

func (c *Config) SetDefaults() {
	if c.BursarURL == "" {
		c.BursarURL = DefaultBursarURL
	}
	if c.Service == "" {
		c.Service = DefaultService
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Filesystem == "" {
		c.Filesystem = DefaultFilesystem
	}
	if c.LFSPath == "" {
		c.LFSPath = DefaultLFSPath
	}
	if c.MungePath == "" {
		c.MungePath = DefaultMungePath
	}
	if c.MinQuota == "" {
		c.MinQuota = DefaultMinQuota
	}
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}

	rules := grants.DefaultRules()
	if len(c.ActiveStatuses) == 0 {
		c.ActiveStatuses = rules.ActiveStatuses
	}
	if len(c.StorageResources) == 0 {
		c.StorageResources = rules.StorageResources
	}
}

func (c *Config) Validate() error {
	if _, err := c.MinQuotaGB(); err != nil {
		return err
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}
	return nil
}

// MinQuotaGB parses the minimum quota into whole GB, never below 1.
func (c *Config) MinQuotaGB() (int64, error) {
	q, err := resource.ParseQuantity(c.MinQuota)
	if err != nil {
		return 0, fmt.Errorf("parse min_quota %q: %v", c.MinQuota, err)
	}
	gb := q.Value() / gib
	if gb < 1 {
		gb = 1
	}
	return gb, nil
}

func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %v", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %q", c.Interval)
	}
	return d, nil
}

func (c *Config) Rules() grants.Rules {
	return grants.Rules{
		ActiveStatuses:   c.ActiveStatuses,
		StorageResources: c.StorageResources,
		FoldResourceCase: c.FoldResourceCase,
	}
}
