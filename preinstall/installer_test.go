package preinstall

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/manager"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/version"
)

const libProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <TargetFrameworkVersion>v4.5</TargetFrameworkVersion>
  </PropertyGroup>
</Project>
`

type stubProject struct {
	name, full, kind string
}

func (p stubProject) UniqueName() string        { return p.name }
func (p stubProject) Name() string              { return p.name }
func (p stubProject) FullName() string          { return p.full }
func (p stubProject) Parent() project.Container { return nil }
func (p stubProject) Kind() string              { return p.kind }

type messages struct {
	info, warnings, errors []string
}

func (m *messages) handlers() Handlers {
	return Handlers{
		Info:    func(s string) { m.info = append(m.info, s) },
		Warning: func(s string) { m.warnings = append(m.warnings, s) },
		Error:   func(s string) { m.errors = append(m.errors, s) },
	}
}

type recordingKeeper struct {
	saved, restored int
}

func (k *recordingKeeper) SaveExpansionStates(context.Context) (func(), error) {
	k.saved++
	return func() { k.restored++ }, nil
}

type solutionDir struct {
	root      string
	templates string
	shared    *repository.SharedRepository
}

func newSolutionDir(t *testing.T, packages ...*core.Package) *solutionDir {
	t.Helper()
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	repo := repository.NewLocalRepository(templates, false, nil)
	for _, pkg := range packages {
		require.NoError(t, repo.AddPackage(context.Background(), pkg))
	}
	return &solutionDir{
		root:      root,
		templates: templates,
		shared:    repository.NewSharedRepository(filepath.Join(root, "packages"), "", false, nil),
	}
}

func (s *solutionDir) library(t *testing.T) stubProject {
	t.Helper()
	dir := filepath.Join(s.root, "Lib")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "Lib.csproj")
	require.NoError(t, os.WriteFile(path, []byte(libProject), 0644))
	return stubProject{name: "Lib", full: path, kind: project.KindCSharp}
}

func (s *solutionDir) website(t *testing.T) stubProject {
	t.Helper()
	dir := filepath.Join(s.root, "Site")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return stubProject{name: "Site", full: dir, kind: project.KindWebSite}
}

func (s *solutionDir) config(infos ...Info) Configuration {
	return Configuration{RepositoryPath: s.templates, IsPreunzipped: true, Packages: infos}
}

func pkg(id, ver, folder string) *core.Package {
	return &core.Package{
		Identity:           core.NewPackageIdentity(id, version.MustParse(ver)),
		AssemblyReferences: []string{"lib/" + folder + "/" + id + ".dll"},
	}
}

func info(id, ver string) Info {
	return Info{ID: id, Version: version.MustParse(ver)}
}

func installed(t *testing.T, s *solutionDir, p project.Project, id, ver string) bool {
	t.Helper()
	ok, err := manager.NewPackageServices(s.shared, nil).IsPackageInstalledVersion(context.Background(), p, id, version.MustParse(ver))
	require.NoError(t, err)
	return ok
}

func testCounter(t *testing.T) float64 {
	t.Helper()
	return testutil.ToFloat64(observability.PreinstallFailuresTotal)
}

func TestPerformPackageInstall(t *testing.T) {
	s := newSolutionDir(t, pkg("Jquery", "1.4.4", "net40"), pkg("Modernizr", "2.0.6", "net40"))
	lib := s.library(t)
	var m messages

	err := NewInstaller(s.shared).PerformPackageInstall(context.Background(), lib,
		s.config(info("Jquery", "1.4.4"), info("Modernizr", "2.0.6")), m.handlers(), nil)
	require.NoError(t, err)

	assert.True(t, installed(t, s, lib, "Jquery", "1.4.4"))
	assert.True(t, installed(t, s, lib, "Modernizr", "2.0.6"))
	assert.Len(t, m.info, 2)
	assert.Empty(t, m.warnings)
	assert.Empty(t, m.errors)
}

func TestPerformPackageInstall_CollectsFailures(t *testing.T) {
	s := newSolutionDir(t, pkg("Second", "1.0.0", "net40"))
	lib := s.library(t)
	var m messages
	before := testCounter(t)

	err := NewInstaller(s.shared).PerformPackageInstall(context.Background(), lib,
		s.config(info("Missing", "1.0.0"), info("Second", "1.0.0")), m.handlers(), nil)
	require.NoError(t, err)

	assert.True(t, installed(t, s, lib, "Second", "1.0.0"))
	require.Len(t, m.errors, 1)
	assert.Contains(t, m.errors[0], "Missing.1.0.0 : ")
	assert.NotContains(t, m.errors[0], "Second")
	assert.Equal(t, before+1, testCounter(t))
}

func TestPerformPackageInstall_SkipsInstalled(t *testing.T) {
	s := newSolutionDir(t, pkg("Jquery", "1.4.4", "net40"), pkg("Jquery", "1.5.0", "net40"))
	lib := s.library(t)
	installer := NewInstaller(s.shared)
	require.NoError(t, installer.PerformPackageInstall(context.Background(), lib, s.config(info("Jquery", "1.4.4")), Handlers{}, nil))

	var m messages
	require.NoError(t, installer.PerformPackageInstall(context.Background(), lib,
		s.config(info("Jquery", "1.4.4")), m.handlers(), nil))
	assert.Empty(t, m.info)
	assert.Empty(t, m.warnings)

	require.NoError(t, installer.PerformPackageInstall(context.Background(), lib,
		s.config(info("jquery", "1.5.0")), m.handlers(), nil))
	require.Len(t, m.warnings, 1)
	assert.Contains(t, m.warnings[0], "'1.4.4' is already installed")
	assert.False(t, installed(t, s, lib, "Jquery", "1.5.0"))
	assert.True(t, installed(t, s, lib, "Jquery", "1.4.4"))
}

func TestPerformPackageInstall_DuplicateIDInBatch(t *testing.T) {
	s := newSolutionDir(t, pkg("Jquery", "1.4.4", "net40"), pkg("Jquery", "1.5.0", "net40"))
	lib := s.library(t)
	var m messages

	err := NewInstaller(s.shared).PerformPackageInstall(context.Background(), lib,
		s.config(info("Jquery", "1.4.4"), info("JQuery", "1.5.0"), info("Jquery", "1.4.4")), m.handlers(), nil)
	require.NoError(t, err)

	assert.Len(t, m.info, 1)
	require.Len(t, m.warnings, 1)
	assert.Contains(t, m.warnings[0], "Package 'JQuery' version '1.5.0' was not installed because version '1.4.4' is already installed.")
	assert.Empty(t, m.errors)
	assert.True(t, installed(t, s, lib, "Jquery", "1.4.4"))
	assert.False(t, installed(t, s, lib, "Jquery", "1.5.0"))
}

func TestPerformPackageInstall_Website(t *testing.T) {
	web := pkg("WebHelpers", "1.0.0", "net40")
	native := pkg("Sqlite", "1.0.0", "net40")
	native.NativeBinaries = []string{"NativeBinaries/x86/sqlite3.dll"}
	s := newSolutionDir(t, web, native)
	site := s.website(t)
	keeper := &recordingKeeper{}
	var m messages

	cfg := s.config(Info{ID: "WebHelpers", Version: web.Version(), SkipAssemblyReferences: true}, info("Sqlite", "1.0.0"))
	err := NewInstaller(s.shared, WithExpansionStateKeeper(keeper)).PerformPackageInstall(context.Background(), site, cfg, m.handlers(), observability.NewNullLogger())
	require.NoError(t, err)
	assert.Empty(t, m.errors)

	assert.FileExists(t, filepath.Join(site.full, "bin", "WebHelpers.dll.refresh"))
	assert.NoFileExists(t, filepath.Join(site.full, "bin", "Sqlite.dll.refresh"))
	assert.FileExists(t, filepath.Join(site.full, "bin", "x86", "sqlite3.dll"))
	assert.Equal(t, 1, keeper.saved)
	assert.Equal(t, 1, keeper.restored)
}

func TestPerformPackageInstall_Canceled(t *testing.T) {
	s := newSolutionDir(t, pkg("Jquery", "1.4.4", "net40"))
	lib := s.library(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var m messages
	err := NewInstaller(s.shared).PerformPackageInstall(ctx, lib, s.config(info("Jquery", "1.4.4")), m.handlers(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.errors)
	assert.False(t, installed(t, s, lib, "Jquery", "1.4.4"))
}
