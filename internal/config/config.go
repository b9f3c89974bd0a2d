package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tasnim.dev/eksops/internal/constants"
)

// Config holds optional defaults loaded from ~/.config/eksops/config.yaml.
type Config struct {
	DefaultProfile   string                       `yaml:"default_profile"`
	DefaultRegion    string                       `yaml:"default_region"`
	BackupDir        string                       `yaml:"backup_dir"`
	ReportDir        string                       `yaml:"report_dir"`
	HistoryDB        string                       `yaml:"history_db"`
	RequiredTools    []string                     `yaml:"required_tools"`
	SystemNamespaces []string                     `yaml:"system_namespaces"`
	DNSTestImage     string                       `yaml:"dns_test_image"`
	Poll             PollConfig                   `yaml:"poll"`
	S3               S3Config                     `yaml:"s3"`
	Environments     map[string]EnvironmentConfig `yaml:"environments"`
}

type PollConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Timeout         time.Duration `yaml:"timeout"`
}

type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// EnvironmentConfig overrides the derived cluster coordinates of one
// environment.
type EnvironmentConfig struct {
	ClusterName string `yaml:"cluster_name"`
	Region      string `yaml:"region"`
	Profile     string `yaml:"profile"`
}

// Dir returns ~/.config/eksops.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", constants.AppName), nil
}

// Load reads the default config file. Returns a defaulted Config if the file
// doesn't exist.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

// LoadFrom reads the config at path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.BackupDir == "" {
		c.BackupDir = constants.DefaultBackupDir
	}
	if c.ReportDir == "" {
		c.ReportDir = constants.DefaultReportDir
	}
	if c.HistoryDB == "" {
		if dir, err := Dir(); err == nil {
			c.HistoryDB = filepath.Join(dir, "history.db")
		}
	}
	if len(c.RequiredTools) == 0 {
		c.RequiredTools = append([]string(nil), constants.DefaultRequiredTools...)
	}
	if len(c.SystemNamespaces) == 0 {
		c.SystemNamespaces = append([]string(nil), constants.DefaultSystemNamespaces...)
	}
	if c.DNSTestImage == "" {
		c.DNSTestImage = constants.DefaultDNSTestImage
	}
	if c.Poll.InitialInterval <= 0 {
		c.Poll.InitialInterval = constants.DefaultPollInitial
	}
	if c.Poll.MaxInterval <= 0 {
		c.Poll.MaxInterval = constants.DefaultPollMax
	}
	if c.Poll.MaxInterval < c.Poll.InitialInterval {
		c.Poll.MaxInterval = c.Poll.InitialInterval
	}
	if c.Poll.Timeout <= 0 {
		c.Poll.Timeout = constants.DefaultPollTimeout
	}
}

// Merge applies CLI flag overrides. Flags take precedence over config defaults.
func (c *Config) Merge(profile, region string) (string, string) {
	p := c.DefaultProfile
	if profile != "" {
		p = profile
	}
	r := c.DefaultRegion
	if region != "" {
		r = region
	}
	return p, r
}

// Environment returns the overrides configured for env, if any.
func (c *Config) Environment(env string) EnvironmentConfig {
	return c.Environments[env]
}
