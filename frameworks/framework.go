// Package frameworks parses target framework monikers and picks the lib/
// folder of a package that best fits a project's target framework.
//
// Both short folder names ("net45", "net8.0", "netstandard2.0") and the
// long names found in project files (".NETFramework,Version=v4.5") are
// understood.
//
//	fw, err := frameworks.Parse("net472")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(fw.Identifier, fw.Version) // .NETFramework 4.7.2
package frameworks

import (
	"fmt"
	"strconv"
	"strings"
)

// Framework identifiers.
const (
	NetFramework = ".NETFramework"
	NetStandard  = ".NETStandard"
	NetCoreApp   = ".NETCoreApp"
)

// Version is a framework version number.
type Version struct {
	Major int
	Minor int
	Build int
}

// String trims a trailing zero build: 4.7.2, 4.5, 8.0.
func (v Version) String() string {
	if v.Build > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Build - other.Build)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Framework is a parsed target framework moniker.
type Framework struct {
	Identifier string
	Version    Version
}

// Any is the framework of an unversioned lib/ folder. It is compatible
// with every project.
var Any = &Framework{Identifier: "Any"}

// IsAny reports whether fw is the Any framework.
func (fw *Framework) IsAny() bool {
	return fw != nil && fw.Identifier == Any.Identifier
}

// ShortFolderName returns the lib/ folder form of fw (net45, net8.0,
// netcoreapp3.1, netstandard2.0).
func (fw *Framework) ShortFolderName() string {
	switch fw.Identifier {
	case NetFramework:
		s := fmt.Sprintf("net%d%d", fw.Version.Major, fw.Version.Minor)
		if fw.Version.Build > 0 {
			s += strconv.Itoa(fw.Version.Build)
		}
		return s
	case NetStandard:
		return "netstandard" + fw.Version.String()
	case NetCoreApp:
		if fw.Version.Major >= 5 {
			return "net" + fw.Version.String()
		}
		return "netcoreapp" + fw.Version.String()
	}
	return strings.ToLower(fw.Identifier)
}

// String returns the long form, e.g. ".NETFramework,Version=v4.5".
func (fw *Framework) String() string {
	if fw.IsAny() {
		return fw.Identifier
	}
	return fw.Identifier + ",Version=v" + fw.Version.String()
}

// Equals compares identifier and version.
func (fw *Framework) Equals(other *Framework) bool {
	if fw == nil || other == nil {
		return fw == other
	}
	return fw.Identifier == other.Identifier && fw.Version.Compare(other.Version) == 0
}

// Parse parses a short folder name or a long framework name.
func Parse(tfm string) (*Framework, error) {
	tfm = strings.TrimSpace(tfm)
	if tfm == "" {
		return nil, fmt.Errorf("framework string cannot be empty")
	}
	if strings.HasPrefix(tfm, ".") || strings.Contains(tfm, ",") {
		return parseLong(tfm)
	}
	return parseShort(strings.ToLower(tfm))
}

// MustParse parses a moniker and panics on error.
func MustParse(tfm string) *Framework {
	fw, err := Parse(tfm)
	if err != nil {
		panic(err)
	}
	return fw
}

// Platform suffixes such as "-windows" are dropped; platform specific
// folders are treated like their base framework.
func parseShort(s string) (*Framework, error) {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}

	prefixes := []struct {
		prefix     string
		identifier string
	}{
		{"netstandard", NetStandard},
		{"netcoreapp", NetCoreApp},
		{"net", NetFramework},
	}
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(s, p.prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return nil, fmt.Errorf("missing framework version: %s", s)
		}
		if p.identifier == NetFramework {
			if strings.Contains(rest, ".") {
				v, err := parseDotted(rest)
				if err != nil {
					return nil, err
				}
				if v.Major >= 5 {
					return &Framework{Identifier: NetCoreApp, Version: v}, nil
				}
				return &Framework{Identifier: NetFramework, Version: v}, nil
			}
			v, err := parseCompact(rest)
			if err != nil {
				return nil, err
			}
			return &Framework{Identifier: NetFramework, Version: v}, nil
		}
		v, err := parseDotted(rest)
		if err != nil {
			return nil, err
		}
		return &Framework{Identifier: p.identifier, Version: v}, nil
	}
	return nil, fmt.Errorf("unknown framework identifier: %s", s)
}

func parseLong(s string) (*Framework, error) {
	name, rest, _ := strings.Cut(s, ",")
	name = strings.TrimSpace(name)

	var identifier string
	for _, id := range []string{NetFramework, NetStandard, NetCoreApp} {
		if strings.EqualFold(name, id) {
			identifier = id
		}
	}
	if identifier == "" {
		return nil, fmt.Errorf("unknown framework identifier: %s", name)
	}

	for _, part := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(key, "Version") {
			continue
		}
		v, err := parseDotted(strings.TrimPrefix(strings.TrimPrefix(value, "v"), "V"))
		if err != nil {
			return nil, err
		}
		return &Framework{Identifier: identifier, Version: v}, nil
	}
	return nil, fmt.Errorf("missing framework version: %s", s)
}

func parseDotted(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("invalid framework version: %s", s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid framework version: %s", s)
		}
		if i < len(nums) {
			nums[i] = n
		}
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2]}, nil
}

// parseCompact parses .NET Framework digits: "45" is 4.5, "472" is 4.7.2.
func parseCompact(s string) (Version, error) {
	if len(s) < 2 || len(s) > 3 {
		return Version{}, fmt.Errorf("invalid framework version: %s", s)
	}
	var v Version
	for i, c := range s {
		if c < '0' || c > '9' {
			return Version{}, fmt.Errorf("invalid framework version: %s", s)
		}
		d := int(c - '0')
		switch i {
		case 0:
			v.Major = d
		case 1:
			v.Minor = d
		case 2:
			v.Build = d
		}
	}
	return v, nil
}
