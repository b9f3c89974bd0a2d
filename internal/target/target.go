// Package target parses and validates operator input and resolves which
// cluster a run addresses. Nothing here talks to AWS.
package target

import (
	"errors"
	"fmt"
	"strings"

	"tasnim.dev/eksops/internal/config"
)

// ErrInvalidInput marks input rejected before any remote call.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

type Environment string

const (
	Dev        Environment = "dev"
	Staging    Environment = "staging"
	Production Environment = "production"
)

var Environments = []Environment{Dev, Staging, Production}

// ParseEnvironment accepts only the names in Environments.
func ParseEnvironment(s string) (Environment, error) {
	for _, e := range Environments {
		if string(e) == s {
			return e, nil
		}
	}
	return "", invalid("environment %q (want one of %s)", s, join(Environments))
}

type UpdateScope string

const (
	ScopeAll          UpdateScope = "all"
	ScopeControlPlane UpdateScope = "control-plane"
	ScopeNodegroups   UpdateScope = "nodegroups"
	ScopeAddons       UpdateScope = "addons"
	ScopeConfig       UpdateScope = "config"
)

var UpdateScopes = []UpdateScope{ScopeAll, ScopeControlPlane, ScopeNodegroups, ScopeAddons, ScopeConfig}

var updateScopeAliases = map[string]UpdateScope{
	"version":   ScopeControlPlane,
	"nodegroup": ScopeNodegroups,
	"addon":     ScopeAddons,
}

func ParseUpdateScope(s string) (UpdateScope, error) {
	if alias, ok := updateScopeAliases[s]; ok {
		return alias, nil
	}
	for _, u := range UpdateScopes {
		if string(u) == s {
			return u, nil
		}
	}
	return "", invalid("update type %q (want one of %s)", s, join(UpdateScopes))
}

// Includes reports whether running s touches the given component scope.
// ScopeConfig covers every component.
func (s UpdateScope) Includes(component UpdateScope) bool {
	switch s {
	case ScopeAll, ScopeConfig:
		return component != ScopeAll && component != ScopeConfig
	default:
		return s == component
	}
}

type ValidationScope string

const (
	ValidateHealth     ValidationScope = "health"
	ValidatePreUpdate  ValidationScope = "pre-update"
	ValidatePostUpdate ValidationScope = "post-update"
	ValidateRollback   ValidationScope = "rollback"
)

var ValidationScopes = []ValidationScope{ValidateHealth, ValidatePreUpdate, ValidatePostUpdate, ValidateRollback}

func ParseValidationScope(s string) (ValidationScope, error) {
	for _, v := range ValidationScopes {
		if string(v) == s {
			return v, nil
		}
	}
	return "", invalid("validation type %q (want one of %s)", s, join(ValidationScopes))
}

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

var OutputFormats = []OutputFormat{FormatText, FormatJSON, FormatYAML}

func ParseOutputFormat(s string) (OutputFormat, error) {
	for _, f := range OutputFormats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", invalid("output format %q (want one of %s)", s, join(OutputFormats))
}

// Ext is the report file extension for the format.
func (f OutputFormat) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Target identifies the cluster a run operates on.
type Target struct {
	Environment Environment `json:"environment" yaml:"environment"`
	ClusterName string      `json:"cluster" yaml:"cluster"`
	Region      string      `json:"region" yaml:"region"`
	Profile     string      `json:"profile,omitempty" yaml:"profile,omitempty"`
}

func (t Target) String() string {
	if t.Region == "" {
		return fmt.Sprintf("%s (%s)", t.ClusterName, t.Environment)
	}
	return fmt.Sprintf("%s (%s, %s)", t.ClusterName, t.Environment, t.Region)
}

// DefaultClusterName is used when neither a flag nor the config names one.
func DefaultClusterName(env Environment) string {
	return "eks-" + string(env)
}

// Resolve validates env and layers flags over the environment's config entry
// over the config defaults. An empty region is left for the AWS shared config
// to fill.
func Resolve(env, cluster, region, profile string, cfg *config.Config) (Target, error) {
	e, err := ParseEnvironment(env)
	if err != nil {
		return Target{}, err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	envCfg := cfg.Environment(string(e))

	p, r := cfg.Merge(first(profile, envCfg.Profile), first(region, envCfg.Region))

	t := Target{
		Environment: e,
		ClusterName: first(cluster, envCfg.ClusterName, DefaultClusterName(e)),
		Region:      r,
		Profile:     p,
	}
	if strings.ContainsAny(t.ClusterName, " /") {
		return Target{}, invalid("cluster name %q", t.ClusterName)
	}
	return t, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func join[T ~string](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}
