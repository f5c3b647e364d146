package solution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SlnfParser parses JSON-based .slnf solution filter files
type SlnfParser struct{}

// NewSlnfParser creates a new .slnf file parser
func NewSlnfParser() *SlnfParser {
	return &SlnfParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnfParser) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".slnf"
}

type slnfDocument struct {
	Solution struct {
		Path     string   `json:"path"`
		Projects []string `json:"projects"`
	} `json:"solution"`
}

// Parse loads the filtered solution: the parent solution restricted to the
// listed projects. Folders are kept so that custom unique names still
// reflect the full hierarchy.
func (p *SlnfParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .slnf file"}
	}

	file, absPath, err := openAbs(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var doc slnfDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse JSON: %v", err)}
	}
	if doc.Solution.Path == "" {
		return nil, &ParseError{FilePath: absPath, Message: "missing solution path in filter file"}
	}

	parentPath := ResolveProjectPath(filepath.Dir(absPath), doc.Solution.Path)
	if _, err := os.Stat(parentPath); err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("parent solution file not found: %s", parentPath)}
	}
	if strings.EqualFold(filepath.Ext(parentPath), ".slnf") {
		return nil, &ParseError{FilePath: absPath, Message: "a solution filter cannot reference another filter"}
	}

	parent, err := ParseSolution(parentPath)
	if err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("failed to parse parent solution: %v", err)}
	}

	include := make(map[string]bool, len(doc.Solution.Projects))
	for _, projPath := range doc.Solution.Projects {
		include[strings.ToLower(NormalizePath(projPath))] = true
	}

	filtered := *parent
	filtered.FilePath = absPath
	filtered.Entries = nil
	for _, e := range parent.Entries {
		if include[strings.ToLower(e.Path)] {
			filtered.Entries = append(filtered.Entries, e)
		}
	}
	return &filtered, nil
}
