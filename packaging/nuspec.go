package packaging

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// NuspecNamespace is the schema namespace written into generated manifests.
const NuspecNamespace = "http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd"

// Nuspec represents a parsed .nuspec manifest.
type Nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Xmlns    string         `xml:"xmlns,attr,omitempty"`
	Metadata NuspecMetadata `xml:"metadata"`
}

// NuspecMetadata represents the metadata section.
type NuspecMetadata struct {
	ID          string `xml:"id"`
	Version     string `xml:"version"`
	Title       string `xml:"title,omitempty"`
	Authors     string `xml:"authors"`
	Description string `xml:"description"`

	Dependencies        *DependenciesElement `xml:"dependencies,omitempty"`
	FrameworkAssemblies []FrameworkAssembly  `xml:"frameworkAssemblies>frameworkAssembly,omitempty"`
}

// DependenciesElement represents the dependencies container.
type DependenciesElement struct {
	Groups []DependencyGroup `xml:"group"`
	// Legacy: dependencies without groups (applies to all frameworks)
	Dependencies []Dependency `xml:"dependency"`
}

// DependencyGroup represents dependencies for a specific framework.
type DependencyGroup struct {
	TargetFramework string       `xml:"targetFramework,attr,omitempty"`
	Dependencies    []Dependency `xml:"dependency"`
}

// Dependency represents a package dependency.
type Dependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr,omitempty"` // Version range string
}

// FrameworkAssembly represents a framework (GAC) assembly reference.
type FrameworkAssembly struct {
	AssemblyName    string `xml:"assemblyName,attr"`
	TargetFramework string `xml:"targetFramework,attr,omitempty"`
}

// ParseNuspec parses a .nuspec XML document.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	decoder := xml.NewDecoder(r)

	var nuspec Nuspec
	if err := decoder.Decode(&nuspec); err != nil {
		return nil, fmt.Errorf("parse nuspec: %w", err)
	}
	if nuspec.Metadata.ID == "" {
		return nil, fmt.Errorf("parse nuspec: %w: missing id", ErrInvalidPackage)
	}

	return &nuspec, nil
}

// ParseNuspecFile parses a nuspec from a file path.
func ParseNuspecFile(path string) (*Nuspec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	return ParseNuspec(file)
}

// Identity returns the package identity from the manifest.
func (n *Nuspec) Identity() (core.PackageIdentity, error) {
	ver, err := version.Parse(n.Metadata.Version)
	if err != nil {
		return core.PackageIdentity{}, fmt.Errorf("parse version: %w", err)
	}
	return core.NewPackageIdentity(n.Metadata.ID, ver), nil
}

// Authors returns the list of authors.
func (n *Nuspec) Authors() []string {
	if n.Metadata.Authors == "" {
		return nil
	}

	// Authors are comma-separated
	authors := strings.Split(n.Metadata.Authors, ",")
	for i := range authors {
		authors[i] = strings.TrimSpace(authors[i])
	}
	return authors
}

// Dependencies returns the dependencies of every group flattened into one
// list. When several groups name the same id the first one wins.
func (n *Nuspec) Dependencies() ([]core.PackageDependency, error) {
	if n.Metadata.Dependencies == nil {
		return nil, nil
	}

	all := append([]Dependency(nil), n.Metadata.Dependencies.Dependencies...)
	for _, group := range n.Metadata.Dependencies.Groups {
		all = append(all, group.Dependencies...)
	}

	seen := make(map[string]bool, len(all))
	var deps []core.PackageDependency
	for _, dep := range all {
		key := strings.ToLower(dep.ID)
		if seen[key] {
			continue
		}
		seen[key] = true

		var versionRange *version.Range
		if dep.Version != "" {
			vr, err := version.ParseRange(dep.Version)
			if err != nil {
				return nil, fmt.Errorf("parse version range %q for %q: %w", dep.Version, dep.ID, err)
			}
			versionRange = vr
		}
		deps = append(deps, core.PackageDependency{ID: dep.ID, VersionRange: versionRange})
	}
	return deps, nil
}

// FrameworkAssemblyNames returns the distinct framework assembly names.
func (n *Nuspec) FrameworkAssemblyNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, fa := range n.Metadata.FrameworkAssemblies {
		key := strings.ToLower(fa.AssemblyName)
		if fa.AssemblyName == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, fa.AssemblyName)
	}
	return names
}

// NewNuspec builds a manifest describing pkg.
func NewNuspec(pkg *core.Package) *Nuspec {
	n := &Nuspec{
		Xmlns: NuspecNamespace,
		Metadata: NuspecMetadata{
			ID:          pkg.ID(),
			Version:     pkg.Version().String(),
			Title:       pkg.Title,
			Authors:     strings.Join(pkg.Authors, ","),
			Description: pkg.Description,
		},
	}
	if n.Metadata.Description == "" {
		n.Metadata.Description = pkg.ID()
	}
	if n.Metadata.Authors == "" {
		n.Metadata.Authors = pkg.ID()
	}

	if len(pkg.Dependencies) > 0 {
		deps := &DependenciesElement{}
		for _, dep := range pkg.Dependencies {
			d := Dependency{ID: dep.ID}
			if r := dep.VersionRange; r != nil && (r.MinVersion != nil || r.MaxVersion != nil) {
				d.Version = dep.VersionRange.String()
			}
			deps.Dependencies = append(deps.Dependencies, d)
		}
		n.Metadata.Dependencies = deps
	}
	for _, name := range pkg.FrameworkAssemblies {
		n.Metadata.FrameworkAssemblies = append(n.Metadata.FrameworkAssemblies, FrameworkAssembly{AssemblyName: name})
	}
	return n
}

// Write encodes the manifest as an indented XML document.
func (n *Nuspec) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write XML header: %w", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(n); err != nil {
		return fmt.Errorf("encode nuspec: %w", err)
	}
	return nil
}
