package version

import (
	"fmt"
	"strings"
)

// Range is a set of acceptable versions.
//
// Syntax:
//
//	1.0          x >= 1.0
//	[1.0]        x == 1.0
//	[1.0, 2.0)   1.0 <= x < 2.0
//	(, 2.0]      x <= 2.0
type Range struct {
	MinVersion   *NuGetVersion
	MaxVersion   *NuGetVersion
	MinInclusive bool
	MaxInclusive bool
}

// ParseRange parses a version range string. An empty string is the
// unbounded range.
func ParseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return &Range{}, nil
	}

	if s[0] != '[' && s[0] != '(' {
		v, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid version range: %w", err)
		}
		return AtLeast(v), nil
	}

	last := s[len(s)-1]
	if last != ']' && last != ')' {
		return nil, fmt.Errorf("invalid version range %q: must end with ] or )", s)
	}

	r := &Range{
		MinInclusive: s[0] == '[',
		MaxInclusive: last == ']',
	}

	body := s[1 : len(s)-1]
	parts := strings.Split(body, ",")

	var minPart, maxPart string
	switch len(parts) {
	case 1:
		// [1.0] is an exact match; (1.0) is meaningless.
		if !r.MinInclusive || !r.MaxInclusive {
			return nil, fmt.Errorf("invalid version range %q: exact versions need [ ]", s)
		}
		minPart = strings.TrimSpace(parts[0])
		maxPart = minPart
	case 2:
		minPart = strings.TrimSpace(parts[0])
		maxPart = strings.TrimSpace(parts[1])
	default:
		return nil, fmt.Errorf("invalid version range %q: too many parts", s)
	}

	var err error
	if minPart != "" {
		if r.MinVersion, err = Parse(minPart); err != nil {
			return nil, fmt.Errorf("invalid min version: %w", err)
		}
	}
	if maxPart != "" {
		if r.MaxVersion, err = Parse(maxPart); err != nil {
			return nil, fmt.Errorf("invalid max version: %w", err)
		}
	}

	if r.MinVersion != nil && r.MaxVersion != nil && r.MinVersion.GreaterThan(r.MaxVersion) {
		return nil, fmt.Errorf("invalid version range %q: min is greater than max", s)
	}

	return r, nil
}

// MustParseRange parses a range and panics on error.
func MustParseRange(s string) *Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// AtLeast returns the range x >= v.
func AtLeast(v *NuGetVersion) *Range {
	return &Range{MinVersion: v, MinInclusive: true}
}

// Exact returns the range x == v.
func Exact(v *NuGetVersion) *Range {
	return &Range{MinVersion: v, MaxVersion: v, MinInclusive: true, MaxInclusive: true}
}

// SafeRange returns [v, next minor): the versions a "safe" update may move to.
func SafeRange(v *NuGetVersion) *Range {
	return &Range{
		MinVersion:   v,
		MinInclusive: true,
		MaxVersion:   &NuGetVersion{Major: v.Major, Minor: v.Minor + 1},
	}
}

// Satisfies reports whether v falls inside the range.
func (r *Range) Satisfies(v *NuGetVersion) bool {
	if v == nil {
		return false
	}
	if r == nil {
		return true
	}

	if r.MinVersion != nil {
		c := v.Compare(r.MinVersion)
		if c < 0 || (c == 0 && !r.MinInclusive) {
			return false
		}
	}

	if r.MaxVersion != nil {
		c := v.Compare(r.MaxVersion)
		if c > 0 || (c == 0 && !r.MaxInclusive) {
			return false
		}
	}

	return true
}

// FindBestMatch returns the highest satisfying version, or nil.
func (r *Range) FindBestMatch(versions []*NuGetVersion) *NuGetVersion {
	var best *NuGetVersion
	for _, v := range versions {
		if r.Satisfies(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	return best
}

// FindLowestMatch returns the lowest satisfying version, or nil.
func (r *Range) FindLowestMatch(versions []*NuGetVersion) *NuGetVersion {
	var lowest *NuGetVersion
	for _, v := range versions {
		if r.Satisfies(v) && (lowest == nil || v.LessThan(lowest)) {
			lowest = v
		}
	}
	return lowest
}

// String returns the bracket form of the range.
func (r *Range) String() string {
	if r == nil || (r.MinVersion == nil && r.MaxVersion == nil) {
		return "(, )"
	}

	if r.MinVersion != nil && r.MaxVersion == nil && r.MinInclusive {
		return r.MinVersion.ToNormalizedString()
	}

	if r.MinInclusive && r.MaxInclusive && r.MinVersion != nil && r.MinVersion.Equals(r.MaxVersion) {
		return "[" + r.MinVersion.ToNormalizedString() + "]"
	}

	open, closing := "(", ")"
	if r.MinInclusive {
		open = "["
	}
	if r.MaxInclusive {
		closing = "]"
	}

	var lo, hi string
	if r.MinVersion != nil {
		lo = r.MinVersion.ToNormalizedString()
	}
	if r.MaxVersion != nil {
		hi = r.MaxVersion.ToNormalizedString()
	}

	return fmt.Sprintf("%s%s, %s%s", open, lo, hi, closing)
}
