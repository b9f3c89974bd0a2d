package constants

import "time"

// AppName is used for the config directory, the Kubernetes user agent and
// metric prefixes.
const AppName = "eksops"

const (
	DefaultBackupDir    = "backups"
	DefaultReportDir    = "reports"
	DefaultDNSTestImage = "busybox:1.36"

	DefaultPollInitial = 10 * time.Second
	DefaultPollMax     = 60 * time.Second
	// Managed node group rolling updates regularly exceed half an hour.
	DefaultPollTimeout = 60 * time.Minute
)

// DefaultRequiredTools must be on PATH before any remote call is made.
var DefaultRequiredTools = []string{"kubectl", "aws"}

// DefaultSystemNamespaces are checked for pod readiness during validation.
var DefaultSystemNamespaces = []string{"kube-system"}
