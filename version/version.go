// Package version parses and compares NuGet package versions.
//
// Both SemVer 2.0 versions (1.2.3-beta.1+build) and legacy four-part
// versions (1.2.3.4) are accepted. Build metadata never takes part in
// comparisons.
//
// Example:
//
//	v := version.MustParse("2.0.0-rc.1")
//	if v.IsPrerelease() {
//	    fmt.Println(v.ToNormalizedString()) // 2.0.0-rc.1
//	}
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// NuGetVersion is a parsed package version.
type NuGetVersion struct {
	Major    int
	Minor    int
	Patch    int
	Revision int

	// IsLegacyVersion is set for four-part versions.
	IsLegacyVersion bool

	// ReleaseLabels holds the dot separated prerelease labels ("beta", "1").
	ReleaseLabels []string

	// Metadata is the build metadata after '+'. Ignored by Compare.
	Metadata string

	original string
}

// Parse parses a version string.
//
// One to four numeric parts are accepted; missing parts default to zero so
// "1" and "1.0.0" describe the same version.
func Parse(s string) (*NuGetVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	v := &NuGetVersion{original: s}

	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Metadata = rest[i+1:]
		rest = rest[:i]
		if v.Metadata == "" {
			return nil, fmt.Errorf("invalid version %q: empty metadata", s)
		}
	}

	if i := strings.IndexByte(rest, '-'); i >= 0 {
		labels := rest[i+1:]
		rest = rest[:i]
		if labels == "" {
			return nil, fmt.Errorf("invalid version %q: empty release label", s)
		}
		v.ReleaseLabels = strings.Split(labels, ".")
		for _, label := range v.ReleaseLabels {
			if label == "" {
				return nil, fmt.Errorf("invalid version %q: empty release label", s)
			}
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) > 4 {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	numbers := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version part %q in %q", part, s)
		}
		numbers[i] = n
	}

	v.Major, v.Minor, v.Patch, v.Revision = numbers[0], numbers[1], numbers[2], numbers[3]
	v.IsLegacyVersion = len(parts) == 4

	return v, nil
}

// MustParse parses a version string and panics on error.
func MustParse(s string) *NuGetVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsPrerelease reports whether the version carries release labels.
func (v *NuGetVersion) IsPrerelease() bool {
	return len(v.ReleaseLabels) > 0
}

// String returns the version as originally written, or the normalized form
// for versions built in code.
func (v *NuGetVersion) String() string {
	if v == nil {
		return ""
	}
	if v.original != "" {
		return v.original
	}
	return v.ToNormalizedString()
}

// ToNormalizedString returns the canonical form: leading zeros dropped, at
// least three numeric parts, the revision only when non-zero, no metadata.
func (v *NuGetVersion) ToNormalizedString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Revision > 0 {
		fmt.Fprintf(&b, ".%d", v.Revision)
	}
	if len(v.ReleaseLabels) > 0 {
		b.WriteByte('-')
		b.WriteString(strings.Join(v.ReleaseLabels, "."))
	}
	return b.String()
}

// Normalize parses s and returns its normalized form.
func Normalize(s string) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", fmt.Errorf("cannot normalize invalid version: %w", err)
	}
	return v.ToNormalizedString(), nil
}
