package solution

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
)

// ProjectHandler is called with a project that was added or removed.
type ProjectHandler func(p project.Project)

// RenameHandler is called after a project was renamed or moved.
type RenameHandler func(oldName project.Name, p project.Project)

// Manager tracks the open solution: its projects, held in a project.Cache,
// and the default project that commands target when none is named.
//
// Handlers run synchronously on the goroutine that caused the event, after
// the manager's state has been updated.
type Manager struct {
	cache  *project.Cache
	logger observability.Logger

	mu          sync.Mutex
	solution    *Solution
	byGUID      map[string]*FileProject
	defaultName project.Name

	onAdded   []ProjectHandler
	onRemoved []ProjectHandler
	onRenamed []RenameHandler
	onOpened  []func(*Solution)
	onClosed  []func()
}

// NewManager creates a manager with no open solution.
func NewManager(logger observability.Logger) *Manager {
	return &Manager{
		cache:  project.NewCache(),
		logger: observability.OrNull(logger),
		byGUID: make(map[string]*FileProject),
	}
}

// Cache returns the project cache backing the manager.
func (m *Manager) Cache() *project.Cache { return m.cache }

// OnProjectAdded registers h for added projects.
func (m *Manager) OnProjectAdded(h ProjectHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAdded = append(m.onAdded, h)
}

// OnProjectRemoved registers h for removed projects.
func (m *Manager) OnProjectRemoved(h ProjectHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = append(m.onRemoved, h)
}

// OnProjectRenamed registers h for renamed projects.
func (m *Manager) OnProjectRenamed(h RenameHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRenamed = append(m.onRenamed, h)
}

// OnSolutionOpened registers h for opened solutions.
func (m *Manager) OnSolutionOpened(h func(*Solution)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOpened = append(m.onOpened, h)
}

// OnSolutionClosed registers h for closed solutions.
func (m *Manager) OnSolutionClosed(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClosed = append(m.onClosed, h)
}

// OpenSolution parses path, replaces the cache contents with its projects
// and makes the first project the default.
func (m *Manager) OpenSolution(path string) (*Solution, error) {
	sol, err := ParseSolution(path)
	if err != nil {
		return nil, err
	}

	projects := Projects(sol)

	m.mu.Lock()
	m.cache.Clear()
	m.byGUID = make(map[string]*FileProject, len(projects))
	m.solution = sol
	m.defaultName = project.Name{}
	for _, p := range projects {
		name := m.cache.Add(p)
		m.byGUID[strings.ToUpper(p.GUID())] = p
		if m.defaultName.IsZero() {
			m.defaultName = name
		}
	}
	handlers := append([]func(*Solution){}, m.onOpened...)
	m.mu.Unlock()

	m.logger.Info("Opened solution {Solution} with {ProjectCount} projects", sol.FilePath, len(projects))
	for _, h := range handlers {
		h(sol)
	}
	return sol, nil
}

// CloseSolution forgets every project.
func (m *Manager) CloseSolution() {
	m.mu.Lock()
	if m.solution == nil {
		m.mu.Unlock()
		return
	}
	m.solution = nil
	m.byGUID = make(map[string]*FileProject)
	m.defaultName = project.Name{}
	m.cache.Clear()
	handlers := append([]func(){}, m.onClosed...)
	m.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

// IsSolutionOpen reports whether a solution is open.
func (m *Manager) IsSolutionOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.solution != nil
}

// Solution returns the open solution, nil when none is open.
func (m *Manager) Solution() *Solution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.solution
}

// SolutionDir returns the directory of the open solution.
func (m *Manager) SolutionDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.solution == nil {
		return ""
	}
	return m.solution.SolutionDir
}

// SetDefaultProjectName selects the default project by any of its names.
// A name that is unknown or ambiguous clears the default.
func (m *Manager) SetDefaultProjectName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, ok := m.cache.TryResolve(name)
	if !ok {
		m.logger.Debug("Default project {Name} does not resolve; clearing default", name)
		m.defaultName = project.Name{}
		return
	}
	m.defaultName = resolved
}

// DefaultProject returns the default project, nil when there is none.
func (m *Manager) DefaultProject() project.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultLocked()
}

func (m *Manager) defaultLocked() project.Project {
	if m.defaultName.IsZero() {
		return nil
	}
	p, ok := m.cache.TryGetProject(m.defaultName.UniqueName)
	if !ok {
		return nil
	}
	return p
}

// DefaultProjectName returns the name to show for the default project: its
// short name, or its custom unique name while the short name is ambiguous.
func (m *Manager) DefaultProjectName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.defaultLocked() == nil {
		return ""
	}
	return DisplayName(m.cache, m.defaultName)
}

// DisplayName returns the short name of name unless several cached
// projects share it, in which case the custom unique name is returned.
func DisplayName(cache *project.Cache, name project.Name) string {
	if cache.IsAmbiguous(name.ShortName) {
		return name.CustomUniqueName
	}
	return name.ShortName
}

// GetProject resolves name to a project.
func (m *Manager) GetProject(name string) (project.Project, error) {
	if p, ok := m.cache.TryGetProject(name); ok {
		return p, nil
	}
	return nil, &core.UnknownProjectError{Name: name}
}

// Projects returns every project of the solution.
func (m *Manager) Projects() []project.Project {
	return m.cache.Projects()
}

// AddProject adds a project to the open solution.
func (m *Manager) AddProject(p project.Project) project.Name {
	m.mu.Lock()
	name := m.cache.Add(p)
	if fp, ok := p.(*FileProject); ok {
		m.byGUID[strings.ToUpper(fp.GUID())] = fp
	}
	handlers := append([]ProjectHandler{}, m.onAdded...)
	m.mu.Unlock()

	m.logger.Debug("Project {Project} added", name.UniqueName)
	for _, h := range handlers {
		h(p)
	}
	return name
}

// RemoveProject removes the project that name resolves to. Removing the
// default project clears the default.
func (m *Manager) RemoveProject(name string) {
	m.mu.Lock()
	p, ok := m.cache.TryGetProject(name)
	if !ok {
		m.mu.Unlock()
		return
	}
	removed := project.NewName(p)
	m.cache.Remove(removed.UniqueName)
	if fp, isFile := p.(*FileProject); isFile {
		delete(m.byGUID, strings.ToUpper(fp.GUID()))
	}
	if m.defaultName.Equals(removed) {
		m.defaultName = project.Name{}
	}
	handlers := append([]ProjectHandler{}, m.onRemoved...)
	m.mu.Unlock()

	m.logger.Debug("Project {Project} removed", removed.UniqueName)
	for _, h := range handlers {
		h(p)
	}
}

// RenameProject replaces the project formerly known by oldName with p. A
// renamed default project stays the default.
func (m *Manager) RenameProject(oldName string, p project.Project) {
	m.mu.Lock()
	old, ok := m.cache.TryResolve(oldName)
	if !ok {
		m.mu.Unlock()
		m.AddProject(p)
		return
	}
	name := m.cache.Rename(old.UniqueName, p)
	if fp, isFile := p.(*FileProject); isFile {
		m.byGUID[strings.ToUpper(fp.GUID())] = fp
	}
	if m.defaultName.Equals(old) {
		m.defaultName = name
	}
	handlers := append([]RenameHandler{}, m.onRenamed...)
	m.mu.Unlock()

	m.logger.Debug("Project {OldName} renamed to {Project}", old.UniqueName, name.UniqueName)
	for _, h := range handlers {
		h(old, p)
	}
}

// Reload re-parses the open solution file and applies the differences as
// add, remove and rename events.
func (m *Manager) Reload() (ProjectDiff, error) {
	m.mu.Lock()
	sol := m.solution
	previous := make([]*FileProject, 0, len(m.byGUID))
	for _, p := range m.byGUID {
		previous = append(previous, p)
	}
	m.mu.Unlock()

	if sol == nil {
		return ProjectDiff{}, fmt.Errorf("no solution is open")
	}

	reloaded, err := ParseSolution(sol.FilePath)
	if err != nil {
		return ProjectDiff{}, err
	}

	diff := DiffProjects(previous, Projects(reloaded))
	m.mu.Lock()
	m.solution = reloaded
	m.mu.Unlock()

	for _, p := range diff.Removed {
		m.RemoveProject(p.UniqueName())
	}
	for _, r := range diff.Renamed {
		m.RenameProject(r.Old.UniqueName(), r.New)
	}
	for _, p := range diff.Added {
		m.AddProject(p)
	}
	return diff, nil
}

// ProjectRename pairs the old and new handle of a renamed project.
type ProjectRename struct {
	Old *FileProject
	New *FileProject
}

// ProjectDiff is the difference between two loads of a solution.
type ProjectDiff struct {
	Added   []*FileProject
	Removed []*FileProject
	Renamed []ProjectRename
}

// IsEmpty reports whether nothing changed.
func (d ProjectDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Renamed) == 0
}

// DiffProjects matches projects by GUID. A matched project whose unique
// name, display name or folder path changed counts as renamed.
func DiffProjects(before, after []*FileProject) ProjectDiff {
	old := make(map[string]*FileProject, len(before))
	for _, p := range before {
		old[strings.ToUpper(p.GUID())] = p
	}

	var diff ProjectDiff
	seen := make(map[string]struct{}, len(after))
	for _, p := range after {
		key := strings.ToUpper(p.GUID())
		seen[key] = struct{}{}
		prev, ok := old[key]
		if !ok {
			diff.Added = append(diff.Added, p)
			continue
		}
		if prev.UniqueName() != p.UniqueName() ||
			project.CustomUniqueName(prev) != project.CustomUniqueName(p) ||
			!strings.EqualFold(filepath.Clean(prev.FullName()), filepath.Clean(p.FullName())) {
			diff.Renamed = append(diff.Renamed, ProjectRename{Old: prev, New: p})
		}
	}
	for _, p := range before {
		if _, ok := seen[strings.ToUpper(p.GUID())]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}
	return diff
}
