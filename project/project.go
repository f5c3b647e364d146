// Package project defines the project handle contract and the identity
// cache that maps any form of a project name to a live handle.
package project

// Kind values reported by Project.Kind.
const (
	KindCSharp       = "csharp"
	KindVisualBasic  = "vb"
	KindFSharp       = "fsharp"
	KindCpp          = "cpp"
	KindWebSite      = "website"
	KindUnknown      = "unknown"
	KindSolutionItem = "solution-folder"
)

// Container is a node in the solution hierarchy that can hold projects,
// typically a solution folder. A nil Parent means the solution root.
type Container interface {
	Name() string
	Parent() Container
}

// Project is a handle to a build project supplied by the host.
type Project interface {
	// UniqueName is stable for the lifetime of the project in the solution.
	UniqueName() string
	// Name is the display name. Several projects may share it.
	Name() string
	// FullName is the path of the project file.
	FullName() string
	// Parent is the containing solution folder, nil at the top level.
	Parent() Container
	// Kind classifies the project (see the Kind constants).
	Kind() string
}

// IsWebSite reports whether p is a web site project.
func IsWebSite(p Project) bool {
	return p != nil && p.Kind() == KindWebSite
}
