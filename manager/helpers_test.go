package manager

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/version"
)

func newPackage(id, ver string, deps ...core.PackageDependency) *core.Package {
	return &core.Package{
		Identity:           core.NewPackageIdentity(id, version.MustParse(ver)),
		Dependencies:       deps,
		AssemblyReferences: []string{"lib/net45/" + id + ".dll"},
	}
}

func newToolPackage(id, ver string) *core.Package {
	return &core.Package{
		Identity:  core.NewPackageIdentity(id, version.MustParse(ver)),
		ToolFiles: []string{"tools/init.ps1"},
	}
}

func dependency(id, r string) core.PackageDependency {
	return core.PackageDependency{ID: id, VersionRange: version.MustParseRange(r)}
}

// fakeProject is an in-memory ProjectSystem rooted at a temp folder so
// its packages.config lives on disk.
type fakeProject struct {
	name    string
	root    string
	tfm     string
	website bool

	mu         sync.Mutex
	references map[string]string
	framework  []string
	files      map[string]string
	addRefErr  error
}

func newFakeProject(t *testing.T, name string) *fakeProject {
	t.Helper()
	root := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(root, 0755))
	return &fakeProject{
		name:       name,
		root:       root,
		tfm:        "net472",
		references: make(map[string]string),
		files:      make(map[string]string),
	}
}

func (p *fakeProject) ProjectName() string     { return p.name }
func (p *fakeProject) Root() string            { return p.root }
func (p *fakeProject) TargetFramework() string { return p.tfm }
func (p *fakeProject) IsWebSite() bool         { return p.website }

func (p *fakeProject) AddReference(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addRefErr != nil {
		return p.addRefErr
	}
	p.references[strings.ToLower(filepath.Base(path))] = path
	return nil
}

func (p *fakeProject) RemoveReference(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.references, strings.ToLower(name))
	return nil
}

func (p *fakeProject) ReferenceExists(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.references[strings.ToLower(name)]
	return ok
}

func (p *fakeProject) AddFrameworkReference(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.framework = append(p.framework, name)
	return nil
}

func (p *fakeProject) AddFile(path string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[path]; !ok {
		p.files[path] = string(data)
	}
	return nil
}

func (p *fakeProject) DeleteFile(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.files, path)
	return nil
}

func (p *fakeProject) FileExists(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.files[path]
	return ok
}

func (p *fakeProject) referenceNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.references))
	for name := range p.references {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handle adapts a fakeProject to project.Project for APIs that open
// projects through a ProjectSystemFactory.
type handle struct{ ps *fakeProject }

func (h handle) UniqueName() string        { return h.ps.name + "\\" + h.ps.name + ".csproj" }
func (h handle) Name() string              { return h.ps.name }
func (h handle) FullName() string          { return filepath.Join(h.ps.root, h.ps.name+".csproj") }
func (h handle) Parent() project.Container { return nil }
func (h handle) Kind() string              { return project.KindCSharp }

var errNoProject = errors.New("project cannot be opened")

func projectSystems(projects ...*fakeProject) ProjectSystemFactory {
	return func(p project.Project) (ProjectSystem, error) {
		for _, ps := range projects {
			if ps.name == p.Name() {
				return ps, nil
			}
		}
		return nil, errNoProject
	}
}

// eventLog records every notification as "Type:id version".
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) attach(ev *Events) {
	for t := PackageInstalling; t <= ReferenceRemoved; t++ {
		ev.On(t, func(_ context.Context, e PackageEvent) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, e.Type.String()+":"+e.Package.String())
			return nil
		})
	}
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// scopeSource records StartOperation calls on the wrapped repository.
type scopeSource struct {
	*repository.MemoryRepository

	mu     sync.Mutex
	opened []string
	closed int
}

func (s *scopeSource) StartOperation(operation, mainPackageID string) core.OperationScope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, operation+":"+mainPackageID)
	return closer(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed++
		return nil
	})
}

type closer func() error

func (c closer) Close() error { return c() }

type fixture struct {
	t       *testing.T
	ctx     context.Context
	source  *scopeSource
	shared  *repository.SharedRepository
	recent  *repository.RecentPackageRepository
	events  *eventLog
	manager *VsPackageManager
}

func newFixture(t *testing.T, packages ...*core.Package) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		source: &scopeSource{MemoryRepository: repository.NewMemoryRepository("test-feed", packages...)},
		shared: repository.NewSharedRepository(filepath.Join(dir, "packages"), "", false, nil),
		recent: repository.NewRecentPackageRepository(repository.DefaultRecentPackages),
		events: &eventLog{},
	}
	f.manager = NewVsPackageManager(f.source, f.shared, WithRecentPackages(f.recent))
	f.events.attach(f.manager.Events())
	return f
}

func (f *fixture) project(name string) (*fakeProject, *ProjectManager) {
	ps := newFakeProject(f.t, name)
	return ps, f.manager.ProjectManagerFor(ps)
}

func (f *fixture) inShared(id, ver string) bool {
	f.t.Helper()
	ok, err := f.shared.Exists(f.ctx, id, version.MustParse(ver))
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) inProject(pm *ProjectManager, id, ver string) bool {
	f.t.Helper()
	ok, err := pm.LocalRepository().Exists(f.ctx, id, version.MustParse(ver))
	require.NoError(f.t, err)
	return ok
}
