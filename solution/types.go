// Package solution loads Visual Studio solutions into project handles and
// keeps the project cache in step with the solution file.
package solution

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-vs/project"
)

// Solution is a parsed solution file (.sln, .slnx or .slnf).
type Solution struct {
	// FilePath is the absolute path to the solution file
	FilePath string

	// SolutionDir is the directory containing the solution file
	SolutionDir string

	// FormatVersion is the solution file format version (e.g., "12.00")
	FormatVersion string

	// VisualStudioVersion is the Visual Studio version that created the file
	VisualStudioVersion string

	// Entries holds every project in the solution (solution folders excluded)
	Entries []Entry

	// Folders holds the solution folders
	Folders []Folder
}

// Entry is one project line of a solution file.
type Entry struct {
	// Name is the display name of the project
	Name string

	// Path is the solution-relative project path with forward slashes
	Path string

	// GUID is the unique identifier for this project instance
	GUID string

	// TypeGUID identifies the project type (C#, VB.NET, web site, ...)
	TypeGUID string

	// ParentFolderGUID is the GUID of the containing solution folder (if any)
	ParentFolderGUID string
}

// Folder is a virtual solution folder.
type Folder struct {
	Name             string
	GUID             string
	ParentFolderGUID string
}

// ParseError represents an error during solution file parsing
type ParseError struct {
	FilePath string
	Line     int
	Message  string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// ProjectType GUIDs for common project types
const (
	ProjectTypeCSProject      = "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}"
	ProjectTypeCSProjectSDK   = "{9A19103F-16F7-4668-BE54-9A1E7A4F7556}"
	ProjectTypeVBProject      = "{F184B08F-C81C-45F6-A57F-5ABD9991F28F}"
	ProjectTypeFSProject      = "{F2A71F9B-5D33-465A-A702-920D77279786}"
	ProjectTypeCppProject     = "{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}"
	ProjectTypeSolutionFolder = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"
	ProjectTypeWebSite        = "{E24C65DC-7377-472B-9ABA-BC803B73C61A}"
)

// Kind maps the project type GUID onto a project.Kind value.
func (e *Entry) Kind() string {
	switch strings.ToUpper(e.TypeGUID) {
	case ProjectTypeCSProject, ProjectTypeCSProjectSDK:
		return project.KindCSharp
	case ProjectTypeVBProject:
		return project.KindVisualBasic
	case ProjectTypeFSProject:
		return project.KindFSharp
	case ProjectTypeCppProject:
		return project.KindCpp
	case ProjectTypeWebSite:
		return project.KindWebSite
	default:
		return project.KindUnknown
	}
}

// UniqueName is the solution-relative path with backslashes, the form the
// IDE uses for project unique names.
func (e *Entry) UniqueName() string {
	return strings.ReplaceAll(e.Path, "/", `\`)
}

// AbsolutePath resolves the project path against solutionDir.
func (e *Entry) AbsolutePath(solutionDir string) string {
	return ResolveProjectPath(solutionDir, e.Path)
}

// FindFolder returns the folder with guid.
func (s *Solution) FindFolder(guid string) (*Folder, bool) {
	for i := range s.Folders {
		if strings.EqualFold(s.Folders[i].GUID, guid) {
			return &s.Folders[i], true
		}
	}
	return nil, false
}

// IsSolutionFile checks if a file path has a solution file extension
func IsSolutionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sln", ".slnx", ".slnf":
		return true
	default:
		return false
	}
}
