package elb

import "time"

type ELBLoadBalancer struct {
	Name      string
	ARN       string
	Type      string // "application" / "network" / "gateway"
	State     string // "active" / "provisioning" / "active_impaired" / "failed"
	Reason    string
	Scheme    string // "internet-facing" / "internal"
	DNSName   string
	VPCID     string
	CreatedAt time.Time
	Tags      map[string]string
}
