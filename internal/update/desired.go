package update

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/target"
)

// DesiredState is the subset of an eksctl ClusterConfig that a full-config
// update reconciles. Node groups and add-ons not listed are left alone.
type DesiredState struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name    string `yaml:"name"`
		Region  string `yaml:"region"`
		Version string `yaml:"version"`
	} `yaml:"metadata"`
	ManagedNodeGroups []DesiredNodegroup `yaml:"managedNodeGroups"`
	Addons            []DesiredAddon     `yaml:"addons"`
	CloudWatch        *struct {
		ClusterLogging struct {
			EnableTypes []string `yaml:"enableTypes"`
		} `yaml:"clusterLogging"`
	} `yaml:"cloudWatch"`
}

type DesiredNodegroup struct {
	Name            string            `yaml:"name"`
	MinSize         *int32            `yaml:"minSize"`
	MaxSize         *int32            `yaml:"maxSize"`
	DesiredCapacity *int32            `yaml:"desiredCapacity"`
	Labels          map[string]string `yaml:"labels"`
	ReleaseVersion  string            `yaml:"releaseVersion"`
}

type DesiredAddon struct {
	Name                  string `yaml:"name"`
	Version               string `yaml:"version"`
	ConfigurationValues   string `yaml:"configurationValues"`
	ServiceAccountRoleARN string `yaml:"serviceAccountRoleARN"`
}

// LoggingTypes returns the desired control-plane log types, or nil when the
// file does not manage logging.
func (d *DesiredState) LoggingTypes() []string {
	if d.CloudWatch == nil {
		return nil
	}
	types := d.CloudWatch.ClusterLogging.EnableTypes
	if len(types) == 1 && (types[0] == "*" || types[0] == "all") {
		return slices.Clone(eks.ControlPlaneLogTypes)
	}
	if types == nil {
		types = []string{}
	}
	return types
}

// LoadDesiredState reads and validates an eksctl-style cluster config file.
func LoadDesiredState(path string) (*DesiredState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: config file: %v", target.ErrInvalidInput, err)
	}

	var d DesiredState
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", target.ErrInvalidInput, path, err)
	}
	if d.Kind != "" && d.Kind != "ClusterConfig" {
		return nil, fmt.Errorf("%w: %s has kind %q, want ClusterConfig", target.ErrInvalidInput, path, d.Kind)
	}
	if d.Metadata.Version != "" {
		if _, err := target.ParseVersion(d.Metadata.Version); err != nil {
			return nil, fmt.Errorf("%s: metadata.version: %w", path, err)
		}
	}

	seen := map[string]bool{}
	for _, ng := range d.ManagedNodeGroups {
		if ng.Name == "" {
			return nil, fmt.Errorf("%w: %s: managed node group without a name", target.ErrInvalidInput, path)
		}
		if seen["ng/"+ng.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate node group %q", target.ErrInvalidInput, path, ng.Name)
		}
		seen["ng/"+ng.Name] = true
	}
	for _, a := range d.Addons {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: %s: add-on without a name", target.ErrInvalidInput, path)
		}
		if seen["addon/"+a.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate add-on %q", target.ErrInvalidInput, path, a.Name)
		}
		seen["addon/"+a.Name] = true
	}
	return &d, nil
}
