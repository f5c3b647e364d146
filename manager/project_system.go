// Package manager installs, uninstalls and updates packages in the projects
// of a solution.
//
// Packages are materialized once into the solution's shared repository and
// referenced from each project through its packages.config. The shared
// copy is only removed when no project references it any more.
package manager

import (
	"io"

	"github.com/willibrandon/gonuget-vs/frameworks"
)

// ProjectSystem applies package content to one project: assembly
// references, framework references and content files. Paths passed to the
// file methods are relative to Root.
type ProjectSystem interface {
	ProjectName() string
	Root() string
	TargetFramework() string
	IsWebSite() bool

	// AddReference references the assembly at the absolute path.
	AddReference(path string) error
	// RemoveReference removes the reference to the assembly file name.
	RemoveReference(name string) error
	ReferenceExists(name string) bool
	AddFrameworkReference(name string) error

	// AddFile writes a project file. Existing files are left untouched.
	AddFile(path string, content io.Reader) error
	DeleteFile(path string) error
	FileExists(path string) bool
}

// targetFramework parses the project's framework; unknown or missing
// frameworks select the unversioned lib/ folder.
func targetFramework(ps ProjectSystem) *frameworks.Framework {
	fw, err := frameworks.Parse(ps.TargetFramework())
	if err != nil {
		return nil
	}
	return fw
}
