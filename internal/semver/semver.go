// Package semver implements the subset of Semantic Versioning ordering
// the plugin installer needs: major.minor.patch plus a dot-separated
// prerelease, compared per the standard rules (prereleases sort below
// releases of the same major.minor.patch; numeric identifiers compare
// numerically, others lexically).
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed SemVer value.
type Version struct {
	Major, Minor, Patch int
	Prerelease          []string
	raw                 string
}

// Parse parses a version string of the form "1.2.3" or "1.2.3-alpha.1".
// Build metadata ("+...") is accepted and ignored, per SemVer.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}

	core := s
	var pre string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		core = s[:i]
		pre = s[i+1:]
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("semver: invalid version %q", raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("semver: invalid version %q", raw)
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1], Patch: nums[2], raw: raw}
	if pre != "" {
		v.Prerelease = strings.Split(pre, ".")
	}
	return v, nil
}

// MustParse parses s and panics on error; for use with literal versions.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.Prerelease) > 0 {
		s += "-" + strings.Join(v.Prerelease, ".")
	}
	return s
}

// IsPrerelease reports whether v carries a prerelease component.
func (v Version) IsPrerelease() bool { return len(v.Prerelease) > 0 }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than o, per SemVer precedence rules.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmpInt(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := cmpInt(v.Patch, o.Patch); c != 0 {
		return c
	}
	return comparePrerelease(v.Prerelease, o.Prerelease)
}

// LessThan reports whether v sorts before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrerelease implements SemVer §11: a version without a
// prerelease has higher precedence than one with; otherwise identifiers
// are compared left to right, numeric ones compared numerically.
func comparePrerelease(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		c := compareIdentifier(a[i], b[i])
		if c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

func compareIdentifier(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	aNumeric := aErr == nil
	bNumeric := bErr == nil

	switch {
	case aNumeric && bNumeric:
		return cmpInt(an, bn)
	case aNumeric:
		return -1 // numeric identifiers always have lower precedence
	case bNumeric:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// SortDescending sorts versions descending (highest first), the order the
// installer's resolution algorithm needs.
func SortDescending(versions []Version) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j].Compare(versions[j-1]) > 0; j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}

// SatisfiesMin reports whether v >= min.
func SatisfiesMin(v, min Version) bool {
	return v.Compare(min) >= 0
}
