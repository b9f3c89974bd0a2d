package target

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// Version is a Kubernetes major.minor release.
type Version struct {
	Major int
	Minor int
}

// ParseVersion accepts strictly "major.minor", as passed with --version.
func ParseVersion(s string) (Version, error) {
	if !versionPattern.MatchString(s) {
		return Version{}, invalid("version %q (want major.minor, e.g. 1.30)", s)
	}
	return parseMajorMinor(s)
}

// ParseLooseVersion extracts major.minor from strings such as "v1.29.3-eks-ae9a62a"
// or "1.29".
func ParseLooseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("unrecognised version %q", s)
	}
	minor := parts[1]
	if i := strings.IndexFunc(minor, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		minor = minor[:i]
	}
	return parseMajorMinor(parts[0] + "." + minor)
}

func parseMajorMinor(s string) (Version, error) {
	major, minor, _ := strings.Cut(s, ".")
	ma, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, fmt.Errorf("unrecognised version %q", s)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, fmt.Errorf("unrecognised version %q", s)
	}
	return Version{Major: ma, Minor: mi}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	}
	return 0
}

// MinorsBehind is how many minor releases v trails o within the same major.
// Negative when v is ahead.
func (v Version) MinorsBehind(o Version) int {
	if v.Major != o.Major {
		return (o.Major - v.Major) * 100
	}
	return o.Minor - v.Minor
}
