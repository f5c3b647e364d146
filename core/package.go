// Package core provides the package, repository and operation types shared by
// every layer of gonuget-vs.
//
// It defines PackageIdentity for uniquely identifying packages, Package for
// the installable unit, and the Repository contract that local folders,
// shared solution repositories and repository chains implement.
package core

import (
	"strings"

	"github.com/willibrandon/gonuget-vs/version"
)

// PackageIdentity represents a unique package identifier.
type PackageIdentity struct {
	// ID is the package identifier (case-insensitive)
	ID string

	// Version is the package version
	Version *version.NuGetVersion
}

// NewPackageIdentity creates a new package identity.
func NewPackageIdentity(id string, ver *version.NuGetVersion) PackageIdentity {
	return PackageIdentity{ID: id, Version: ver}
}

// Equals checks if two package identities are equal.
// Package IDs are compared case-insensitively.
func (p PackageIdentity) Equals(other PackageIdentity) bool {
	return strings.EqualFold(p.ID, other.ID) && p.Version.Compare(other.Version) == 0
}

// Key returns a string usable as a map key: lower-cased id and normalized version.
func (p PackageIdentity) Key() string {
	if p.Version == nil {
		return strings.ToLower(p.ID)
	}
	return strings.ToLower(p.ID) + "/" + strings.ToLower(p.Version.ToNormalizedString())
}

// String returns a string representation of the package identity.
func (p PackageIdentity) String() string {
	if p.Version == nil {
		return p.ID
	}
	return p.ID + " " + p.Version.String()
}

// PackageDependency represents a dependency on another package.
type PackageDependency struct {
	// ID is the dependency package ID
	ID string

	// VersionRange is the accepted version range (nil accepts any version)
	VersionRange *version.Range
}

// String returns "ID range".
func (d PackageDependency) String() string {
	if d.VersionRange == nil {
		return d.ID
	}
	return d.ID + " " + d.VersionRange.String()
}

// Package is an installable package: metadata plus the classified list of
// files it carries.
type Package struct {
	Identity PackageIdentity

	Title       string
	Description string
	Authors     []string

	// Dependencies is the flattened dependency list of the package.
	Dependencies []PackageDependency

	// AssemblyReferences are lib/ assemblies added as project references.
	AssemblyReferences []string

	// FrameworkAssemblies are GAC/framework references (System.Web, ...).
	FrameworkAssemblies []string

	// ContentFiles are content/ files copied into the project.
	ContentFiles []string

	// ToolFiles are tools/ files, including init.ps1/install.ps1/uninstall.ps1.
	ToolFiles []string

	// NativeBinaries are NativeBinaries/ files copied to a website's bin folder.
	NativeBinaries []string

	// Path is the backing .nupkg file or extracted folder, empty for
	// packages that only exist in memory.
	Path string
}

// ID returns the package id.
func (p *Package) ID() string {
	return p.Identity.ID
}

// Version returns the package version.
func (p *Package) Version() *version.NuGetVersion {
	return p.Identity.Version
}

// String returns "ID Version".
func (p *Package) String() string {
	return p.Identity.String()
}

// Files returns every package file path in a stable order.
func (p *Package) Files() []string {
	files := make([]string, 0, len(p.AssemblyReferences)+len(p.ContentFiles)+len(p.ToolFiles)+len(p.NativeBinaries))
	files = append(files, p.AssemblyReferences...)
	files = append(files, p.ContentFiles...)
	files = append(files, p.ToolFiles...)
	files = append(files, p.NativeBinaries...)
	return files
}

// HasScript reports whether the package ships tools/<name> (e.g. "install.ps1").
func (p *Package) HasScript(name string) bool {
	for _, f := range p.ToolFiles {
		if strings.EqualFold(lastSegment(f), name) {
			return true
		}
	}
	return false
}

// IsProjectLevel reports whether a package has content that is installed
// into a project: assembly references, framework assemblies or content
// files. Packages without any are solution-level packages.
func IsProjectLevel(pkg *Package) bool {
	return len(pkg.AssemblyReferences) > 0 ||
		len(pkg.FrameworkAssemblies) > 0 ||
		len(pkg.ContentFiles) > 0
}

// SameIdentity compares two packages by identity only.
func SameIdentity(a, b *Package) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Identity.Equals(b.Identity)
}

// Distinct removes packages with duplicate identities, keeping the first
// occurrence.
func Distinct(packages []*Package) []*Package {
	seen := make(map[string]struct{}, len(packages))
	result := make([]*Package, 0, len(packages))
	for _, pkg := range packages {
		key := pkg.Identity.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, pkg)
	}
	return result
}

func lastSegment(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
