package version

import (
	"strconv"
	"strings"
)

// Compare returns -1, 0 or 1 when v is lower than, equal to or higher than
// other. A nil version sorts before every non-nil version.
func (v *NuGetVersion) Compare(other *NuGetVersion) int {
	switch {
	case v == nil && other == nil:
		return 0
	case v == nil:
		return -1
	case other == nil:
		return 1
	}

	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	if c := compareInt(v.Revision, other.Revision); c != 0 {
		return c
	}

	return compareReleaseLabels(v.ReleaseLabels, other.ReleaseLabels)
}

// Equals reports whether both versions compare equal.
func (v *NuGetVersion) Equals(other *NuGetVersion) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v *NuGetVersion) LessThan(other *NuGetVersion) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts after other.
func (v *NuGetVersion) GreaterThan(other *NuGetVersion) bool {
	return v.Compare(other) > 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareReleaseLabels follows SemVer precedence: a release sorts after any
// prerelease, numeric labels sort before alphanumeric ones and a shorter
// label list sorts first when all shared labels are equal.
func compareReleaseLabels(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareLabel(a[i], b[i]); c != 0 {
			return c
		}
	}

	return compareInt(len(a), len(b))
}

func compareLabel(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)

	switch {
	case aErr == nil && bErr == nil:
		return compareInt(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}

	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return 0
}
