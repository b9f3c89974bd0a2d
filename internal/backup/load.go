package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tasnim.dev/eksops/internal/aws/eks"
)

// State is the EKS portion of a snapshot read back for rollback.
type State struct {
	Dir        string
	Cluster    eks.Cluster
	Nodegroups []eks.NodeGroup
	Addons     []eks.Addon
}

// Load reads the EKS files of the snapshot in dir.
func Load(dir string) (State, error) {
	st := State{Dir: dir}

	if err := readYAML(filepath.Join(dir, ClusterFile), &st.Cluster); err != nil {
		return State{}, err
	}
	if err := readYAML(filepath.Join(dir, NodegroupsFile), &st.Nodegroups); err != nil {
		return State{}, err
	}

	data, err := os.ReadFile(filepath.Join(dir, AddonsFile))
	if err != nil {
		return State{}, fmt.Errorf("reading %s: %w", AddonsFile, err)
	}
	if err := json.Unmarshal(data, &st.Addons); err != nil {
		return State{}, fmt.Errorf("decoding %s: %w", AddonsFile, err)
	}
	return st, nil
}

func readYAML(p string, v any) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(p), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(p), err)
	}
	return nil
}
