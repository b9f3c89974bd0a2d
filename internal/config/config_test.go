package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.DefaultProfile)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, []string{"kubectl", "aws"}, cfg.RequiredTools)
	assert.Equal(t, []string{"kube-system"}, cfg.SystemNamespaces)
	assert.Equal(t, 60*time.Minute, cfg.Poll.Timeout)
}

func TestLoadFrom_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `default_profile: ops
default_region: eu-west-1
backup_dir: /var/backups/eks
required_tools: [kubectl]
system_namespaces: [kube-system, argocd]
poll:
  initial_interval: 5s
  max_interval: 30s
  timeout: 20m
s3:
  bucket: eks-backups
  prefix: snapshots
environments:
  production:
    cluster_name: prod-main
    region: us-east-1
    profile: prod-admin
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.DefaultProfile)
	assert.Equal(t, "/var/backups/eks", cfg.BackupDir)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.Equal(t, []string{"kubectl"}, cfg.RequiredTools)
	assert.Equal(t, []string{"kube-system", "argocd"}, cfg.SystemNamespaces)
	assert.Equal(t, 5*time.Second, cfg.Poll.InitialInterval)
	assert.Equal(t, 30*time.Second, cfg.Poll.MaxInterval)
	assert.Equal(t, 20*time.Minute, cfg.Poll.Timeout)
	assert.Equal(t, "eks-backups", cfg.S3.Bucket)

	prod := cfg.Environment("production")
	assert.Equal(t, "prod-main", prod.ClusterName)
	assert.Equal(t, "prod-admin", prod.Profile)
	assert.Equal(t, EnvironmentConfig{}, cfg.Environment("dev"))
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll: [unclosed"), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
}

func TestApplyDefaults_MaxBelowInitial(t *testing.T) {
	cfg := &Config{Poll: PollConfig{InitialInterval: 2 * time.Minute, MaxInterval: time.Minute}}
	cfg.ApplyDefaults()
	assert.Equal(t, 2*time.Minute, cfg.Poll.MaxInterval)
}

func TestMerge_CLIFlagsTakePrecedence(t *testing.T) {
	cfg := &Config{DefaultProfile: "config-profile", DefaultRegion: "us-east-1"}

	// CLI flags override
	p, r := cfg.Merge("cli-profile", "ap-south-1")
	assert.Equal(t, "cli-profile", p)
	assert.Equal(t, "ap-south-1", r)

	// Empty flags fall back to config
	p, r = cfg.Merge("", "")
	assert.Equal(t, "config-profile", p)
	assert.Equal(t, "us-east-1", r)

	// Partial override
	p, r = cfg.Merge("other", "")
	assert.Equal(t, "other", p)
	assert.Equal(t, "us-east-1", r)
}
