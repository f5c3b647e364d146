package frameworks

import (
	"strings"
)

// netStandardOnFramework maps a .NET Standard version to the lowest .NET
// Framework that implements it. netstandard2.1 has no entry.
var netStandardOnFramework = map[Version]Version{
	{Major: 1, Minor: 0}: {Major: 4, Minor: 5},
	{Major: 1, Minor: 1}: {Major: 4, Minor: 5},
	{Major: 1, Minor: 2}: {Major: 4, Minor: 5, Build: 1},
	{Major: 1, Minor: 3}: {Major: 4, Minor: 6},
	{Major: 1, Minor: 4}: {Major: 4, Minor: 6, Build: 1},
	{Major: 1, Minor: 5}: {Major: 4, Minor: 6, Build: 1},
	{Major: 1, Minor: 6}: {Major: 4, Minor: 6, Build: 1},
	{Major: 2, Minor: 0}: {Major: 4, Minor: 6, Build: 1},
}

// netStandardOnCoreApp maps a .NET Standard version to the lowest
// .NETCoreApp that implements it.
var netStandardOnCoreApp = map[Version]Version{
	{Major: 1, Minor: 0}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 1}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 2}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 3}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 4}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 5}: {Major: 1, Minor: 0},
	{Major: 1, Minor: 6}: {Major: 1, Minor: 0},
	{Major: 2, Minor: 0}: {Major: 2, Minor: 0},
	{Major: 2, Minor: 1}: {Major: 3, Minor: 0},
}

// IsCompatible reports whether assets built for pkg can be referenced by a
// project targeting target.
//
//	IsCompatible(netstandard2.0, net472) → true
//	IsCompatible(net48, netstandard2.1)  → false
func IsCompatible(pkg, target *Framework) bool {
	if pkg == nil || target == nil {
		return false
	}
	if pkg.IsAny() {
		return true
	}
	if pkg.Identifier == target.Identifier {
		return pkg.Version.Compare(target.Version) <= 0
	}
	if pkg.Identifier != NetStandard {
		return false
	}

	var table map[Version]Version
	switch target.Identifier {
	case NetFramework:
		table = netStandardOnFramework
	case NetCoreApp:
		table = netStandardOnCoreApp
	default:
		return false
	}
	minimum, ok := table[Version{Major: pkg.Version.Major, Minor: pkg.Version.Minor}]
	return ok && target.Version.Compare(minimum) >= 0
}

// GetNearest returns the candidate that best fits target, or nil when no
// candidate is compatible. The same framework family wins over
// .NET Standard, which wins over Any; within a family the highest
// compatible version wins.
func GetNearest(target *Framework, candidates []*Framework) *Framework {
	var best *Framework
	bestRank := -1
	for _, fw := range candidates {
		if !IsCompatible(fw, target) {
			continue
		}
		rank := familyRank(fw, target)
		switch {
		case best == nil, rank > bestRank:
			best, bestRank = fw, rank
		case rank == bestRank && fw.Version.Compare(best.Version) > 0:
			best = fw
		}
	}
	return best
}

func familyRank(fw, target *Framework) int {
	switch {
	case fw.Identifier == target.Identifier:
		return 2
	case fw.Identifier == NetStandard:
		return 1
	}
	return 0
}

// SelectAssemblies picks the lib/ assemblies of the folder that best fits
// target. Files directly under lib/ form the Any group. A package whose
// lib/ folders are all incompatible yields nothing; a nil target picks the
// Any group if present, otherwise every lib/ assembly.
func SelectAssemblies(files []string, target *Framework) []string {
	groups := make(map[string][]string)
	keys := make(map[string]*Framework)
	var order []*Framework
	var all []string

	for _, f := range files {
		fw, ok := libFolderFramework(f)
		if !ok {
			continue
		}
		key := fw.String()
		if _, seen := keys[key]; !seen {
			keys[key] = fw
			order = append(order, fw)
		}
		groups[key] = append(groups[key], f)
		all = append(all, f)
	}
	if len(order) == 0 {
		return nil
	}

	if target == nil {
		if flat, ok := groups[Any.String()]; ok {
			return flat
		}
		return all
	}

	nearest := GetNearest(target, order)
	if nearest == nil {
		return nil
	}
	return groups[nearest.String()]
}

// libFolderFramework returns the framework of lib/<tfm>/file or Any for
// lib/file. Unparseable folder names are skipped.
func libFolderFramework(path string) (*Framework, bool) {
	parts := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	if len(parts) < 2 || !strings.EqualFold(parts[0], "lib") {
		return nil, false
	}
	if len(parts) == 2 {
		return Any, true
	}
	fw, err := Parse(parts[1])
	if err != nil {
		return nil, false
	}
	return fw, true
}
