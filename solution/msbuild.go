package solution

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectRootElement represents the root <Project> element of a project file.
// Classic projects carry the MSBuild namespace in XMLName.Space, which is
// written back on save.
type ProjectRootElement struct {
	XMLName        xml.Name
	ToolsVersion   string          `xml:"ToolsVersion,attr,omitempty"`
	DefaultTargets string          `xml:"DefaultTargets,attr,omitempty"`
	Sdk            string          `xml:"Sdk,attr,omitempty"`
	PropertyGroups []PropertyGroup `xml:"PropertyGroup"`
	ItemGroups     []ItemGroup     `xml:"ItemGroup"`
}

// PropertyGroup represents a <PropertyGroup> element.
type PropertyGroup struct {
	Condition              string `xml:"Condition,attr,omitempty"`
	TargetFramework        string `xml:"TargetFramework,omitempty"`
	TargetFrameworks       string `xml:"TargetFrameworks,omitempty"`
	TargetFrameworkVersion string `xml:"TargetFrameworkVersion,omitempty"`
	OutputType             string `xml:"OutputType,omitempty"`
	RootNamespace          string `xml:"RootNamespace,omitempty"`
	AssemblyName           string `xml:"AssemblyName,omitempty"`
}

// ItemGroup represents an <ItemGroup> element.
type ItemGroup struct {
	Condition         string             `xml:"Condition,attr,omitempty"`
	References        []Reference        `xml:"Reference,omitempty"`
	ProjectReferences []ProjectReference `xml:"ProjectReference,omitempty"`
	Compile           []FileItem         `xml:"Compile,omitempty"`
	Content           []FileItem         `xml:"Content,omitempty"`
	None              []FileItem         `xml:"None,omitempty"`
}

// Reference represents a <Reference> element. Framework references have no
// HintPath.
type Reference struct {
	Include  string `xml:"Include,attr"`
	HintPath string `xml:"HintPath,omitempty"`
	Private  string `xml:"Private,omitempty"`
}

// ProjectReference represents a <ProjectReference> element.
type ProjectReference struct {
	Include string `xml:"Include,attr"`
}

// FileItem represents a file item such as <Content Include="...">.
type FileItem struct {
	Include string `xml:"Include,attr"`
}

// ProjectFile is a loaded MSBuild project file.
type ProjectFile struct {
	Path     string
	Root     *ProjectRootElement
	modified bool
}

// LoadProjectFile loads and parses a project file from the given path.
func LoadProjectFile(path string) (*ProjectFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var root ProjectRootElement
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse project XML: %w", err)
	}
	if root.XMLName.Local != "Project" {
		return nil, fmt.Errorf("failed to parse project XML: unexpected root element <%s>", root.XMLName.Local)
	}
	return &ProjectFile{Path: path, Root: &root}, nil
}

// TargetFramework returns the project's short target framework moniker,
// "net45" for a classic project declaring TargetFrameworkVersion v4.5.
func (p *ProjectFile) TargetFramework() string {
	for _, pg := range p.Root.PropertyGroups {
		if pg.TargetFramework != "" {
			return pg.TargetFramework
		}
		if pg.TargetFrameworks != "" {
			return strings.TrimSpace(strings.Split(pg.TargetFrameworks, ";")[0])
		}
	}
	for _, pg := range p.Root.PropertyGroups {
		if v := strings.TrimPrefix(strings.ToLower(pg.TargetFrameworkVersion), "v"); v != "" {
			return "net" + strings.ReplaceAll(v, ".", "")
		}
	}
	return ""
}

// IsModified reports whether the project has unsaved changes.
func (p *ProjectFile) IsModified() bool { return p.modified }

// References returns every <Reference> item.
func (p *ProjectFile) References() []Reference {
	var refs []Reference
	for _, ig := range p.Root.ItemGroups {
		refs = append(refs, ig.References...)
	}
	return refs
}

// FindReference returns the reference whose assembly name is name. The
// Include attribute may carry a strong name ("Foo, Version=1.0.0.0, ...").
func (p *ProjectFile) FindReference(name string) (Reference, bool) {
	for _, ref := range p.References() {
		if strings.EqualFold(assemblyName(ref.Include), name) {
			return ref, true
		}
	}
	return Reference{}, false
}

// AddReference adds or updates a reference. It returns true when an
// existing reference was updated.
func (p *ProjectFile) AddReference(name, hintPath string) bool {
	for i := range p.Root.ItemGroups {
		ig := &p.Root.ItemGroups[i]
		for j := range ig.References {
			if strings.EqualFold(assemblyName(ig.References[j].Include), name) {
				ig.References[j].HintPath = hintPath
				p.modified = true
				return true
			}
		}
	}

	ref := Reference{Include: name, HintPath: hintPath}
	if ig := p.itemGroupWith(func(ig *ItemGroup) bool { return len(ig.References) > 0 }); ig != nil {
		ig.References = append(ig.References, ref)
	} else {
		p.Root.ItemGroups = append(p.Root.ItemGroups, ItemGroup{References: []Reference{ref}})
	}
	p.modified = true
	return false
}

// RemoveReference removes a reference by assembly name. Returns true if a
// reference was removed.
func (p *ProjectFile) RemoveReference(name string) bool {
	for i := range p.Root.ItemGroups {
		ig := &p.Root.ItemGroups[i]
		for j := range ig.References {
			if strings.EqualFold(assemblyName(ig.References[j].Include), name) {
				ig.References = append(ig.References[:j], ig.References[j+1:]...)
				p.modified = true
				return true
			}
		}
	}
	return false
}

// AddContent adds a <Content> item for a project-relative path unless one
// exists.
func (p *ProjectFile) AddContent(path string) {
	include := strings.ReplaceAll(path, "/", `\`)
	for _, ig := range p.Root.ItemGroups {
		for _, item := range ig.Content {
			if strings.EqualFold(item.Include, include) {
				return
			}
		}
	}
	if ig := p.itemGroupWith(func(ig *ItemGroup) bool { return len(ig.Content) > 0 }); ig != nil {
		ig.Content = append(ig.Content, FileItem{Include: include})
	} else {
		p.Root.ItemGroups = append(p.Root.ItemGroups, ItemGroup{Content: []FileItem{{Include: include}}})
	}
	p.modified = true
}

// RemoveItem removes every file item (Compile, Content, None) for path.
func (p *ProjectFile) RemoveItem(path string) bool {
	include := strings.ReplaceAll(path, "/", `\`)
	removed := false
	drop := func(items []FileItem) []FileItem {
		kept := items[:0]
		for _, item := range items {
			if strings.EqualFold(item.Include, include) {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		return kept
	}
	for i := range p.Root.ItemGroups {
		ig := &p.Root.ItemGroups[i]
		ig.Compile = drop(ig.Compile)
		ig.Content = drop(ig.Content)
		ig.None = drop(ig.None)
	}
	if removed {
		p.modified = true
	}
	return removed
}

func (p *ProjectFile) itemGroupWith(match func(*ItemGroup) bool) *ItemGroup {
	for i := range p.Root.ItemGroups {
		ig := &p.Root.ItemGroups[i]
		if ig.Condition == "" && match(ig) {
			return ig
		}
	}
	return nil
}

// Save writes the project file with a UTF-8 BOM when it has changes.
func (p *ProjectFile) Save() (err error) {
	if !p.modified {
		return nil
	}

	output, err := xml.MarshalIndent(p.Root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	file, err := os.Create(p.Path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// .NET tooling expects the BOM
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	if _, err := file.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"); err != nil {
		return err
	}
	if _, err := file.Write(output); err != nil {
		return err
	}

	p.modified = false
	return nil
}

// FindProjectFile finds a single .csproj, .fsproj or .vbproj file in dir.
func FindProjectFile(dir string) (string, error) {
	var all []string
	for _, pattern := range []string{"*.csproj", "*.fsproj", "*.vbproj"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		all = append(all, matches...)
	}

	switch len(all) {
	case 0:
		return "", fmt.Errorf("no project file found in directory: %s", dir)
	case 1:
		return all[0], nil
	default:
		return "", fmt.Errorf("multiple project files found in directory: %s. Specify which project to use", dir)
	}
}

func assemblyName(include string) string {
	if i := strings.IndexByte(include, ','); i >= 0 {
		include = include[:i]
	}
	return strings.TrimSpace(include)
}
