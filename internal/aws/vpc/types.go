package vpc

type VPCInfo struct {
	VPCID string
	Name  string
	CIDR  string
	State string
}

type SubnetInfo struct {
	SubnetID     string
	Name         string
	CIDR         string
	AZ           string
	State        string
	AvailableIPs int
}

// MinFreeIPs is how many addresses EKS may need per cluster subnet to place
// new control plane network interfaces during a version update.
const MinFreeIPs = 5

// Starved returns the subnets with fewer than MinFreeIPs free addresses.
func Starved(subnets []SubnetInfo) []SubnetInfo {
	var out []SubnetInfo
	for _, s := range subnets {
		if s.AvailableIPs < MinFreeIPs {
			out = append(out, s)
		}
	}
	return out
}
