package project

import (
	"strings"
)

// Name is the identity of a cached project. It carries every form under
// which a user or the host may refer to the project.
//
// Two Names are equal when their UniqueName matches case-insensitively.
// A Name never changes; renaming a project produces a new Name.
type Name struct {
	// FullName is the project file path.
	FullName string
	// UniqueName is the host-assigned stable name.
	UniqueName string
	// ShortName is the display name.
	ShortName string
	// CustomUniqueName is the solution-folder path ending in the short name,
	// joined with backslashes. It equals ShortName for top-level projects.
	CustomUniqueName string
}

// NewName derives the identity of p.
func NewName(p Project) Name {
	return Name{
		FullName:         p.FullName(),
		UniqueName:       p.UniqueName(),
		ShortName:        p.Name(),
		CustomUniqueName: CustomUniqueName(p),
	}
}

// CustomUniqueName joins the names of every solution folder above p with
// the project name: "Folder1\Folder2\Web".
func CustomUniqueName(p Project) string {
	parts := []string{p.Name()}
	for c := p.Parent(); c != nil; c = c.Parent() {
		parts = append(parts, c.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, `\`)
}

// Equals compares unique names case-insensitively.
func (n Name) Equals(other Name) bool {
	return strings.EqualFold(n.UniqueName, other.UniqueName)
}

// IsZero reports whether n is the empty Name.
func (n Name) IsZero() bool {
	return n.UniqueName == ""
}

// String returns the custom unique name.
func (n Name) String() string {
	return n.CustomUniqueName
}
