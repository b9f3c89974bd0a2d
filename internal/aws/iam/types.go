package iam

import "time"

type IAMRole struct {
	Name             string
	ARN              string
	CreatedAt        time.Time
	AttachedPolicies []IAMAttachedPolicy
}

type IAMAttachedPolicy struct {
	Name string
	ARN  string
}

// HasPolicy reports whether a managed policy with the given name is attached.
func (r IAMRole) HasPolicy(name string) bool {
	for _, p := range r.AttachedPolicies {
		if p.Name == name {
			return true
		}
	}
	return false
}
