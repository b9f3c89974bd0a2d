package ec2

import "time"

// EC2Instance represents a worker instance backing an EKS node group.
type EC2Instance struct {
	Name       string
	InstanceID string
	Type       string
	State      string
	PrivateIP  string
	PrivateDNS string
	Nodegroup  string
	Zone       string
	LaunchedAt time.Time
}

// EC2Summary holds aggregate instance counts.
type EC2Summary struct {
	Total   int
	Running int
	Pending int
	Stopped int
}
