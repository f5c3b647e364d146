package solution

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/project"
)

const (
	guidCore   = "{11111111-1111-1111-1111-111111111111}"
	guidWebA   = "{22222222-2222-2222-2222-222222222222}"
	guidWebB   = "{33333333-3333-3333-3333-333333333333}"
	guidSite   = "{44444444-4444-4444-4444-444444444444}"
	guidFolder = "{AAAAAAAA-AAAA-AAAA-AAAA-AAAAAAAAAAAA}"
	guidInner  = "{BBBBBBBB-BBBB-BBBB-BBBB-BBBBBBBBBBBB}"
)

func slnProject(typeGUID, name, path, guid string) string {
	return "Project(\"" + typeGUID + "\") = \"" + name + "\", \"" + path + "\", \"" + guid + "\"\nEndProject\n"
}

func writeSolution(t *testing.T, dir string, projects string, nested map[string]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("\nMicrosoft Visual Studio Solution File, Format Version 12.00\n")
	b.WriteString("# Visual Studio Version 17\n")
	b.WriteString("VisualStudioVersion = 17.0.31903.59\n")
	b.WriteString(projects)
	b.WriteString("Global\n")
	if len(nested) > 0 {
		b.WriteString("\tGlobalSection(NestedProjects) = preSolution\n")
		for child, parent := range nested {
			b.WriteString("\t\t" + child + " = " + parent + "\n")
		}
		b.WriteString("\tEndGlobalSection\n")
	}
	b.WriteString("EndGlobal\n")

	path := filepath.Join(dir, "App.sln")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// Two projects named "Web": one at the top level, one under Services\Api.
func sampleSolution(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	projects := slnProject(ProjectTypeCSProject, "Core", `src\Core\Core.csproj`, guidCore) +
		slnProject(ProjectTypeCSProject, "Web", `src\Web\Web.csproj`, guidWebA) +
		slnProject(ProjectTypeCSProject, "Web", `src\Api\Web.csproj`, guidWebB) +
		slnProject(ProjectTypeWebSite, "Site", `Site\`, guidSite) +
		slnProject(ProjectTypeSolutionFolder, "Services", "Services", guidFolder) +
		slnProject(ProjectTypeSolutionFolder, "Api", "Api", guidInner)
	return writeSolution(t, dir, projects, map[string]string{
		guidWebB:  guidInner,
		guidInner: guidFolder,
	})
}

func TestParseSolution_NestedFolders(t *testing.T) {
	sol, err := ParseSolution(sampleSolution(t))
	require.NoError(t, err)

	assert.Equal(t, "12.00", sol.FormatVersion)
	require.Len(t, sol.Entries, 4)
	require.Len(t, sol.Folders, 2)

	projects := Projects(sol)
	byGUID := make(map[string]*FileProject)
	for _, p := range projects {
		byGUID[p.GUID()] = p
	}

	assert.Equal(t, `Services\Api\Web`, project.CustomUniqueName(byGUID[guidWebB]))
	assert.Equal(t, "Web", project.CustomUniqueName(byGUID[guidWebA]))
	assert.Equal(t, `src\Api\Web.csproj`, byGUID[guidWebB].UniqueName())
	assert.Equal(t, filepath.Join(sol.SolutionDir, "src", "Api", "Web.csproj"), byGUID[guidWebB].FullName())
	assert.Equal(t, project.KindWebSite, byGUID[guidSite].Kind())
	assert.Equal(t, filepath.Join(sol.SolutionDir, "Site"), byGUID[guidSite].Dir())
}

func TestParseSolution_MissingEndProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bad.sln")
	content := "Project(\"" + ProjectTypeCSProject + "\") = \"A\", \"A.csproj\", \"" + guidCore + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := ParseSolution(path)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Message, "missing EndProject")
}

func TestParseSolution_Slnx(t *testing.T) {
	dir := t.TempDir()
	content := `<Solution>
  <Folder Name="/Services/">
    <Project Path="src/Api/Api.csproj" />
  </Folder>
  <Project Path="src/Core/Core.vbproj" />
</Solution>`
	path := filepath.Join(dir, "App.slnx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	sol, err := ParseSolution(path)
	require.NoError(t, err)
	require.Len(t, sol.Entries, 2)

	names := map[string]string{}
	for _, p := range Projects(sol) {
		names[p.Name()] = project.CustomUniqueName(p)
	}
	assert.Equal(t, `Services\Api`, names["Api"])
	assert.Equal(t, "Core", names["Core"])

	again, err := ParseSolution(path)
	require.NoError(t, err)
	assert.Equal(t, sol.Entries[0].GUID, again.Entries[0].GUID, "derived GUIDs are stable")
}

func TestParseSolution_Slnf(t *testing.T) {
	slnPath := sampleSolution(t)
	filter := `{"solution": {"path": "App.sln", "projects": ["src\\Core\\Core.csproj"]}}`
	path := filepath.Join(filepath.Dir(slnPath), "Core.slnf")
	require.NoError(t, os.WriteFile(path, []byte(filter), 0644))

	sol, err := ParseSolution(path)
	require.NoError(t, err)
	require.Len(t, sol.Entries, 1)
	assert.Equal(t, "Core", sol.Entries[0].Name)
}

func TestGetParser_UnsupportedExtension(t *testing.T) {
	_, err := GetParser("App.txt")
	assert.Error(t, err)
}

func TestManager_DefaultProject(t *testing.T) {
	m := NewManager(nil)
	_, err := m.OpenSolution(sampleSolution(t))
	require.NoError(t, err)

	assert.Equal(t, 4, len(m.Projects()))
	require.NotNil(t, m.DefaultProject())
	assert.Equal(t, "Core", m.DefaultProjectName())

	// ambiguous short name clears the default
	m.SetDefaultProjectName("Web")
	assert.Nil(t, m.DefaultProject())
	assert.Equal(t, "", m.DefaultProjectName())

	// a custom unique name selects it; the display name stays unambiguous
	m.SetDefaultProjectName(`Services\Api\Web`)
	require.NotNil(t, m.DefaultProject())
	assert.Equal(t, `Services\Api\Web`, m.DefaultProjectName())

	m.SetDefaultProjectName("Core")
	assert.Equal(t, "Core", m.DefaultProjectName())

	m.RemoveProject(`src\Core\Core.csproj`)
	assert.Nil(t, m.DefaultProject(), "removing the default project clears it")
}

func TestManager_DefaultProjectNameUnambiguousAfterRemoval(t *testing.T) {
	m := NewManager(nil)
	_, err := m.OpenSolution(sampleSolution(t))
	require.NoError(t, err)

	m.SetDefaultProjectName(`Services\Api\Web`)
	assert.Equal(t, `Services\Api\Web`, m.DefaultProjectName())

	m.RemoveProject(`src\Web\Web.csproj`)
	assert.Equal(t, "Web", m.DefaultProjectName())
}

func TestManager_GetProject(t *testing.T) {
	m := NewManager(nil)
	_, err := m.OpenSolution(sampleSolution(t))
	require.NoError(t, err)

	p, err := m.GetProject("core")
	require.NoError(t, err)
	assert.Equal(t, "Core", p.Name())

	_, err = m.GetProject("Web")
	assert.Error(t, err)
	_, err = m.GetProject("Missing")
	assert.Error(t, err)
}

func TestManager_Events(t *testing.T) {
	m := NewManager(nil)
	var opened, closed int
	var added, removed []string
	m.OnSolutionOpened(func(*Solution) { opened++ })
	m.OnSolutionClosed(func() { closed++ })
	m.OnProjectAdded(func(p project.Project) { added = append(added, p.Name()) })
	m.OnProjectRemoved(func(p project.Project) { removed = append(removed, p.Name()) })

	_, err := m.OpenSolution(sampleSolution(t))
	require.NoError(t, err)
	m.RemoveProject("Core")
	m.RemoveProject("Core")
	m.CloseSolution()
	m.CloseSolution()

	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	assert.Empty(t, added)
	assert.Equal(t, []string{"Core"}, removed)
	assert.Equal(t, 0, m.Cache().Len())
	assert.False(t, m.IsSolutionOpen())
}

func TestManager_Reload(t *testing.T) {
	path := sampleSolution(t)
	m := NewManager(nil)
	_, err := m.OpenSolution(path)
	require.NoError(t, err)
	m.SetDefaultProjectName("Core")

	var renamedFrom []string
	m.OnProjectRenamed(func(old project.Name, p project.Project) {
		renamedFrom = append(renamedFrom, old.UniqueName)
	})

	// Core is renamed to Domain, Site is dropped, Tools is new.
	projects := slnProject(ProjectTypeCSProject, "Domain", `src\Domain\Domain.csproj`, guidCore) +
		slnProject(ProjectTypeCSProject, "Web", `src\Web\Web.csproj`, guidWebA) +
		slnProject(ProjectTypeCSProject, "Web", `src\Api\Web.csproj`, guidWebB) +
		slnProject(ProjectTypeCSProject, "Tools", `src\Tools\Tools.csproj`, "{55555555-5555-5555-5555-555555555555}") +
		slnProject(ProjectTypeSolutionFolder, "Services", "Services", guidFolder) +
		slnProject(ProjectTypeSolutionFolder, "Api", "Api", guidInner)
	writeSolution(t, filepath.Dir(path), projects, map[string]string{
		guidWebB:  guidInner,
		guidInner: guidFolder,
	})

	diff, err := m.Reload()
	require.NoError(t, err)
	require.Len(t, diff.Added, 1)
	require.Len(t, diff.Removed, 1)
	require.Len(t, diff.Renamed, 1)
	assert.Equal(t, "Tools", diff.Added[0].Name())
	assert.Equal(t, "Site", diff.Removed[0].Name())
	assert.Equal(t, []string{`src\Core\Core.csproj`}, renamedFrom)

	assert.Equal(t, "Domain", m.DefaultProjectName(), "default follows the rename")
	_, ok := m.Cache().TryGetProject("Core")
	assert.False(t, ok)
	_, ok = m.Cache().TryGetProject("Tools")
	assert.True(t, ok)
}

func TestDiffProjects_FolderMoveIsRename(t *testing.T) {
	top := &FileProject{entry: Entry{Name: "A", Path: "A/A.csproj", GUID: guidCore}, fullName: "/s/A/A.csproj"}
	moved := &FileProject{
		entry:    Entry{Name: "A", Path: "A/A.csproj", GUID: strings.ToLower(guidCore)},
		fullName: "/s/A/A.csproj",
		parent:   &folderNode{name: "Libs"},
	}

	diff := DiffProjects([]*FileProject{top}, []*FileProject{moved})
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	require.Len(t, diff.Renamed, 1)

	assert.True(t, DiffProjects([]*FileProject{top}, []*FileProject{top}).IsEmpty())
}
