package solution

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/project"
)

const classicProject = `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup>
    <TargetFrameworkVersion>v4.5</TargetFrameworkVersion>
    <AssemblyName>Lib</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="System" />
    <Reference Include="Newtonsoft.Json, Version=6.0.0.0, Culture=neutral">
      <HintPath>..\packages\Newtonsoft.Json.6.0.4\lib\net45\Newtonsoft.Json.dll</HintPath>
    </Reference>
  </ItemGroup>
  <ItemGroup>
    <Compile Include="Class1.cs" />
  </ItemGroup>
</Project>
`

type stubProject struct {
	name, unique, full, kind string
}

func (p stubProject) UniqueName() string        { return p.unique }
func (p stubProject) Name() string              { return p.name }
func (p stubProject) FullName() string          { return p.full }
func (p stubProject) Parent() project.Container { return nil }
func (p stubProject) Kind() string              { return p.kind }

func writeClassicProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	projDir := filepath.Join(dir, "Lib")
	require.NoError(t, os.MkdirAll(projDir, 0755))
	path := filepath.Join(projDir, "Lib.csproj")
	require.NoError(t, os.WriteFile(path, []byte(classicProject), 0644))
	return dir, path
}

func TestProjectFile_References(t *testing.T) {
	_, path := writeClassicProject(t)
	pf, err := LoadProjectFile(path)
	require.NoError(t, err)

	assert.Equal(t, "net45", pf.TargetFramework())
	ref, ok := pf.FindReference("newtonsoft.json")
	require.True(t, ok)
	assert.Contains(t, ref.HintPath, "Newtonsoft.Json.6.0.4")

	assert.True(t, pf.AddReference("Newtonsoft.Json", `..\packages\Newtonsoft.Json.7.0.1\lib\net45\Newtonsoft.Json.dll`))
	assert.False(t, pf.AddReference("Dapper", `..\packages\Dapper.1.0.0\lib\net45\Dapper.dll`))
	assert.True(t, pf.RemoveReference("System"))
	assert.False(t, pf.RemoveReference("System"))
	require.NoError(t, pf.Save())
	assert.False(t, pf.IsModified())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF<?xml"), "saved with BOM")

	reloaded, err := LoadProjectFile(path)
	require.NoError(t, err)
	names := make([]string, 0)
	for _, r := range reloaded.References() {
		names = append(names, assemblyName(r.Include))
	}
	assert.ElementsMatch(t, []string{"Newtonsoft.Json", "Dapper"}, names)
	ref, _ = reloaded.FindReference("Newtonsoft.Json")
	assert.Contains(t, ref.HintPath, "7.0.1")
}

func TestProjectFile_SDKTargetFramework(t *testing.T) {
	path := filepath.Join(t.TempDir(), "App.csproj")
	content := `<Project Sdk="Microsoft.NET.Sdk"><PropertyGroup><TargetFrameworks>net8.0;net48</TargetFrameworks></PropertyGroup></Project>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	pf, err := LoadProjectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "net8.0", pf.TargetFramework())
}

func TestFindProjectFile(t *testing.T) {
	dir := t.TempDir()
	_, err := FindProjectFile(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.csproj"), []byte("<Project/>"), 0644))
	found, err := FindProjectFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "A.csproj"), found)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.vbproj"), []byte("<Project/>"), 0644))
	_, err = FindProjectFile(dir)
	assert.Error(t, err)
}

func TestFileProjectSystem_ClassLibrary(t *testing.T) {
	dir, path := writeClassicProject(t)
	ps, err := NewFileProjectSystem(stubProject{name: "Lib", unique: `Lib\Lib.csproj`, full: path, kind: project.KindCSharp})
	require.NoError(t, err)

	assert.False(t, ps.IsWebSite())
	assert.Equal(t, "net45", ps.TargetFramework())
	assert.Equal(t, filepath.Dir(path), ps.Root())

	dll := filepath.Join(dir, "packages", "Dapper.1.0.0", "lib", "net45", "Dapper.dll")
	require.NoError(t, ps.AddReference(dll))
	assert.True(t, ps.ReferenceExists("Dapper"))
	assert.True(t, ps.ReferenceExists("Dapper.dll"))

	require.NoError(t, ps.AddFrameworkReference("System.Web"))
	assert.True(t, ps.ReferenceExists("System.Web"))

	require.NoError(t, ps.AddFile(`Scripts\app.js`, strings.NewReader("alert(1)")))
	assert.True(t, ps.FileExists("Scripts/app.js"))

	// existing files are kept
	require.NoError(t, ps.AddFile(`Scripts\app.js`, strings.NewReader("changed")))
	data, err := os.ReadFile(filepath.Join(ps.Root(), "Scripts", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "alert(1)", string(data))

	require.NoError(t, ps.DeleteFile(`Scripts\app.js`))
	assert.False(t, ps.FileExists("Scripts/app.js"))
	_, err = os.Stat(filepath.Join(ps.Root(), "Scripts"))
	assert.True(t, os.IsNotExist(err), "empty folder removed")

	require.NoError(t, ps.RemoveReference("Dapper"))
	assert.False(t, ps.ReferenceExists("Dapper"))

	reloaded, err := LoadProjectFile(path)
	require.NoError(t, err)
	_, ok := reloaded.FindReference("System.Web")
	assert.True(t, ok)
	hint, _ := reloaded.FindReference("Newtonsoft.Json")
	assert.NotEmpty(t, hint.HintPath)

	assert.Error(t, ps.AddFile("../escape.txt", strings.NewReader("x")))
}

func TestFileProjectSystem_WebSite(t *testing.T) {
	dir := t.TempDir()
	site := filepath.Join(dir, "Site")
	require.NoError(t, os.MkdirAll(site, 0755))
	dll := filepath.Join(dir, "Dapper.dll")
	require.NoError(t, os.WriteFile(dll, []byte("MZ"), 0644))

	ps, err := NewFileProjectSystem(stubProject{name: "Site", unique: `Site\`, full: site, kind: project.KindWebSite})
	require.NoError(t, err)
	assert.True(t, ps.IsWebSite())

	require.NoError(t, ps.AddReference(dll))
	assert.True(t, ps.FileExists("bin/Dapper.dll"))
	assert.True(t, ps.ReferenceExists("Dapper"))
	require.NoError(t, ps.AddFrameworkReference("System.Web"))

	require.NoError(t, ps.RemoveReference("Dapper.dll"))
	assert.False(t, ps.ReferenceExists("Dapper"))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := sampleSolution(t)
	m := NewManager(nil)
	_, err := m.OpenSolution(path)
	require.NoError(t, err)

	w, err := NewWatcher(m, WatcherConfig{SolutionPath: path, DebounceDur: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	changes, err := w.Start()
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	projects := slnProject(ProjectTypeCSProject, "Core", `src\Core\Core.csproj`, guidCore)
	writeSolution(t, filepath.Dir(path), projects, nil)

	select {
	case diff := <-changes:
		assert.Len(t, diff.Removed, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for solution reload")
	}
	assert.Equal(t, 1, m.Cache().Len())
}
