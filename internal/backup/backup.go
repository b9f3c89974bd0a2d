// Package backup captures write-once snapshots of a cluster's EKS and
// Kubernetes state before it is changed.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"k8s.io/client-go/kubernetes"

	"tasnim.dev/eksops/internal/aws/eks"
	awss3 "tasnim.dev/eksops/internal/aws/s3"
	"tasnim.dev/eksops/internal/kube"
)

const (
	ClusterFile    = "cluster-config.yaml"
	NodegroupsFile = "nodegroups.yaml"
	AddonsFile     = "addons.json"
	NodesFile      = "nodes.yaml"
	ConfigMapsFile = "configmaps.yaml"
	SecretsFile    = "secrets.yaml"

	timestampLayout = "20060102-150405"

	dirMode    = 0o750
	fileMode   = 0o640
	secretMode = 0o600
)

// Files lists every file a complete snapshot contains.
var Files = []string{ClusterFile, NodegroupsFile, AddonsFile, NodesFile, ConfigMapsFile, SecretsFile}

var ErrNoSnapshot = errors.New("no snapshot recorded")

// ClusterReader is satisfied by *eks.Client.
type ClusterReader interface {
	DescribeCluster(ctx context.Context, name string) (eks.Cluster, error)
	ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error)
	ListAddons(ctx context.Context, clusterName string) ([]eks.Addon, error)
}

// Uploader is satisfied by *s3.Client.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, key, path string) (awss3.S3Object, error)
}

type Manager struct {
	Dir  string
	EKS  ClusterReader
	Kube kubernetes.Interface

	// Optional off-site copy.
	Uploader Uploader
	Bucket   string
	Prefix   string

	Now func() time.Time
}

// Snapshot describes one completed backup.
type Snapshot struct {
	Cluster   string
	Dir       string
	CreatedAt time.Time
	Uploaded  []string
}

// Create writes a new snapshot of clusterName and records it as the latest.
func (m *Manager) Create(ctx context.Context, clusterName string) (Snapshot, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	created := now().UTC()

	if m.Kube == nil {
		return Snapshot{}, errors.New("backup needs a Kubernetes client")
	}
	if err := os.MkdirAll(m.Dir, dirMode); err != nil {
		return Snapshot{}, fmt.Errorf("creating backup root: %w", err)
	}
	dir := filepath.Join(m.Dir, clusterName+"-"+created.Format(timestampLayout))
	// Mkdir rather than MkdirAll: an existing snapshot is never overwritten.
	if err := os.Mkdir(dir, dirMode); err != nil {
		return Snapshot{}, fmt.Errorf("creating snapshot dir: %w", err)
	}

	logger := log.WithFields(log.Fields{"cluster": clusterName, "dir": dir})
	logger.Info("creating backup")

	if err := m.write(ctx, clusterName, dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.WithError(rmErr).Warn("removing incomplete snapshot")
		}
		return Snapshot{}, err
	}

	snap := Snapshot{Cluster: clusterName, Dir: dir, CreatedAt: created}
	if m.Uploader != nil && m.Bucket != "" {
		uploaded, err := m.upload(ctx, clusterName, dir)
		if err != nil {
			return snap, err
		}
		snap.Uploaded = uploaded
	}

	logger.WithField("files", len(Files)).Info("backup complete")
	return snap, nil
}

// write fills dir with every snapshot file and then points latest at it.
func (m *Manager) write(ctx context.Context, clusterName, dir string) error {
	cluster, err := m.EKS.DescribeCluster(ctx, clusterName)
	if err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, ClusterFile), cluster); err != nil {
		return err
	}

	nodegroups, err := m.EKS.ListNodeGroups(ctx, clusterName)
	if err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, NodegroupsFile), nodegroups); err != nil {
		return err
	}

	addons, err := m.EKS.ListAddons(ctx, clusterName)
	if err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, AddonsFile), addons); err != nil {
		return err
	}

	dumps := []struct {
		file string
		mode os.FileMode
		dump func(context.Context, kubernetes.Interface) ([]byte, error)
	}{
		{NodesFile, fileMode, kube.NodesYAML},
		{ConfigMapsFile, fileMode, kube.ConfigMapsYAML},
		{SecretsFile, secretMode, kube.SecretsYAML},
	}
	for _, d := range dumps {
		data, err := d.dump(ctx, m.Kube)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, d.file), data, d.mode); err != nil {
			return fmt.Errorf("writing %s: %w", d.file, err)
		}
	}

	return m.setLatest(clusterName, dir)
}

func (m *Manager) upload(ctx context.Context, clusterName, dir string) ([]string, error) {
	var uris []string
	for _, f := range Files {
		key := ObjectKey(m.Prefix, clusterName, filepath.Base(dir), f)
		obj, err := m.Uploader.UploadFile(ctx, m.Bucket, key, filepath.Join(dir, f))
		if err != nil {
			return uris, err
		}
		log.WithField("object", obj.URI()).Debug("uploaded backup file")
		uris = append(uris, obj.URI())
	}
	return uris, nil
}

// ObjectKey is <prefix>/<cluster>/<snapshot>/<file>, without a leading slash.
func ObjectKey(prefix, clusterName, snapshot, file string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(clusterName, snapshot, file)
	}
	return path.Join(prefix, clusterName, snapshot, file)
}

func pointerPath(root, clusterName string) string {
	return filepath.Join(root, ".latest-"+clusterName)
}

func (m *Manager) setLatest(clusterName, dir string) error {
	p := pointerPath(m.Dir, clusterName)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(dir+"\n"), fileMode); err != nil {
		return fmt.Errorf("writing latest pointer: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("writing latest pointer: %w", err)
	}
	return nil
}

// Latest returns the directory of the most recent snapshot for clusterName.
func (m *Manager) Latest(clusterName string) (string, error) {
	data, err := os.ReadFile(pointerPath(m.Dir, clusterName))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w for cluster %s in %s", ErrNoSnapshot, clusterName, m.Dir)
	}
	if err != nil {
		return "", fmt.Errorf("reading latest pointer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Verify returns the snapshot files missing from dir.
func Verify(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot %s is not a directory", dir)
	}

	var missing []string
	for _, f := range Files {
		st, err := os.Stat(filepath.Join(dir, f))
		if err != nil || st.Size() == 0 {
			missing = append(missing, f)
		}
	}
	return missing, nil
}

func writeYAML(p string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(p), err)
	}
	if err := os.WriteFile(p, data, fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(p), err)
	}
	return nil
}

func writeJSON(p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(p), err)
	}
	if err := os.WriteFile(p, append(data, '\n'), fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(p), err)
	}
	return nil
}
