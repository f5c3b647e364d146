package solution

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SlnxParser parses XML-based .slnx files
type SlnxParser struct{}

// NewSlnxParser creates a new .slnx file parser
func NewSlnxParser() *SlnxParser {
	return &SlnxParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnxParser) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".slnx"
}

type slnxDocument struct {
	XMLName  xml.Name      `xml:"Solution"`
	Folders  []slnxFolder  `xml:"Folder"`
	Projects []slnxProject `xml:"Project"`
}

// slnxFolder names are full paths such as "/src/apps/".
type slnxFolder struct {
	Name     string        `xml:"Name,attr"`
	Projects []slnxProject `xml:"Project"`
}

type slnxProject struct {
	Path string `xml:"Path,attr"`
	Type string `xml:"Type,attr,omitempty"`
	ID   string `xml:"Id,attr,omitempty"`
}

// Parse reads and parses a .slnx file. Projects and folders without ids get
// name-derived GUIDs so that re-parsing yields the same identities.
func (p *SlnxParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .slnx file"}
	}

	file, absPath, err := openAbs(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var doc slnxDocument
	if err := xml.NewDecoder(file).Decode(&doc); err != nil {
		if syntaxErr, ok := err.(*xml.SyntaxError); ok {
			return nil, &ParseError{FilePath: absPath, Line: syntaxErr.Line, Message: "XML syntax error: " + syntaxErr.Msg}
		}
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse XML: %v", err)}
	}

	sol := &Solution{
		FilePath:      absPath,
		SolutionDir:   filepath.Dir(absPath),
		FormatVersion: "12.00",
	}

	folderGUIDs := make(map[string]string)
	var ensureFolder func(name string) string
	ensureFolder = func(name string) string {
		name = "/" + strings.Trim(name, "/") + "/"
		if name == "//" {
			return ""
		}
		if guid, ok := folderGUIDs[name]; ok {
			return guid
		}
		trimmed := strings.Trim(name, "/")
		parent := ""
		if i := strings.LastIndex(trimmed, "/"); i >= 0 {
			parent = ensureFolder(trimmed[:i])
		}
		guid := derivedGUID("folder:" + name)
		folderGUIDs[name] = guid
		sol.Folders = append(sol.Folders, Folder{
			Name:             trimmed[strings.LastIndex(trimmed, "/")+1:],
			GUID:             guid,
			ParentFolderGUID: parent,
		})
		return guid
	}

	add := func(proj slnxProject, parent string) {
		projectPath := NormalizePath(proj.Path)
		guid := proj.ID
		if guid == "" {
			guid = derivedGUID("project:" + strings.ToLower(projectPath))
		}
		sol.Entries = append(sol.Entries, Entry{
			Name:             strings.TrimSuffix(filepath.Base(projectPath), filepath.Ext(projectPath)),
			Path:             projectPath,
			GUID:             "{" + strings.ToUpper(strings.Trim(guid, "{}")) + "}",
			TypeGUID:         typeFromPath(projectPath),
			ParentFolderGUID: parent,
		})
	}

	for _, proj := range doc.Projects {
		add(proj, "")
	}
	for _, folder := range doc.Folders {
		parent := ensureFolder(folder.Name)
		for _, proj := range folder.Projects {
			add(proj, parent)
		}
	}
	return sol, nil
}

func typeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vbproj":
		return ProjectTypeVBProject
	case ".fsproj":
		return ProjectTypeFSProject
	case ".vcxproj":
		return ProjectTypeCppProject
	case "":
		return ProjectTypeWebSite
	default:
		return ProjectTypeCSProjectSDK
	}
}

func derivedGUID(name string) string {
	return "{" + strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()) + "}"
}
