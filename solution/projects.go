package solution

import (
	"strings"

	"github.com/willibrandon/gonuget-vs/project"
)

// FileProject is a project handle backed by a solution entry on disk.
type FileProject struct {
	entry    Entry
	fullName string
	parent   project.Container
}

// UniqueName returns the solution-relative project path.
func (p *FileProject) UniqueName() string { return p.entry.UniqueName() }

// Name returns the display name.
func (p *FileProject) Name() string { return p.entry.Name }

// FullName returns the absolute project file (or web site folder) path.
func (p *FileProject) FullName() string { return p.fullName }

// Parent returns the containing solution folder, nil at the top level.
func (p *FileProject) Parent() project.Container { return p.parent }

// Kind classifies the project by its type GUID.
func (p *FileProject) Kind() string { return p.entry.Kind() }

// GUID returns the project instance GUID from the solution file.
func (p *FileProject) GUID() string { return p.entry.GUID }

// Dir returns the project directory.
func (p *FileProject) Dir() string {
	if p.Kind() == project.KindWebSite {
		return p.fullName
	}
	return parentDir(p.fullName)
}

type folderNode struct {
	name   string
	parent project.Container
}

func (f *folderNode) Name() string              { return f.name }
func (f *folderNode) Parent() project.Container { return f.parent }

// Projects builds project handles for every entry of sol, wiring each to
// its chain of solution folders.
func Projects(sol *Solution) []*FileProject {
	nodes := make(map[string]*folderNode, len(sol.Folders))
	var container func(guid string, depth int) project.Container
	container = func(guid string, depth int) project.Container {
		if guid == "" || depth > len(sol.Folders) {
			return nil
		}
		key := strings.ToUpper(guid)
		if n, ok := nodes[key]; ok {
			return n
		}
		f, ok := sol.FindFolder(guid)
		if !ok {
			return nil
		}
		n := &folderNode{name: f.Name}
		nodes[key] = n
		if parent := container(f.ParentFolderGUID, depth+1); parent != nil {
			n.parent = parent
		}
		return n
	}

	projects := make([]*FileProject, 0, len(sol.Entries))
	for _, e := range sol.Entries {
		fp := &FileProject{
			entry:    e,
			fullName: e.AbsolutePath(sol.SolutionDir),
		}
		if parent := container(e.ParentFolderGUID, 0); parent != nil {
			fp.parent = parent
		}
		projects = append(projects, fp)
	}
	return projects
}

func parentDir(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[:i]
	}
	return "."
}
