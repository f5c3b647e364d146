package solution

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	formatVersionRegex = regexp.MustCompile(`^Microsoft Visual Studio Solution File, Format Version (\S+)`)
	vsVersionRegex     = regexp.MustCompile(`^VisualStudioVersion = (\S+)`)

	// Project("{TYPE}") = "Name", "Path", "{GUID}"
	projectRegex = regexp.MustCompile(
		`(?i)^Project\("\{([A-F0-9-]+)\}"\)\s*=\s*"([^"]+)",\s*"([^"]+)",\s*"\{([A-F0-9-]+)\}"`,
	)

	// {CHILD} = {PARENT} inside GlobalSection(NestedProjects)
	nestedProjectRegex = regexp.MustCompile(`(?i)^\s*\{([A-F0-9-]+)\}\s*=\s*\{([A-F0-9-]+)\}`)
)

// SlnParser parses text-based .sln files
type SlnParser struct{}

// NewSlnParser creates a new .sln file parser
func NewSlnParser() *SlnParser {
	return &SlnParser{}
}

// CanParse checks if this parser supports the given file
func (p *SlnParser) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".sln"
}

// Parse reads and parses a .sln file
func (p *SlnParser) Parse(path string) (*Solution, error) {
	if !p.CanParse(path) {
		return nil, &ParseError{FilePath: path, Message: "not a .sln file"}
	}

	file, absPath, err := openAbs(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sol := &Solution{
		FilePath:    absPath,
		SolutionDir: filepath.Dir(absPath),
	}

	scanner := bufio.NewScanner(file)
	lineNum := 0
	inGlobal, inNested := false, false
	var current *Entry
	var currentFolder *Folder
	parents := make(map[string]string)

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := formatVersionRegex.FindStringSubmatch(line); m != nil {
			sol.FormatVersion = m[1]
			continue
		}
		if m := vsVersionRegex.FindStringSubmatch(line); m != nil {
			sol.VisualStudioVersion = m[1]
			continue
		}

		if m := projectRegex.FindStringSubmatch(line); m != nil {
			if current != nil || currentFolder != nil {
				return nil, &ParseError{FilePath: absPath, Line: lineNum, Message: "nested Project without EndProject"}
			}
			typeGUID := "{" + strings.ToUpper(m[1]) + "}"
			guid := "{" + strings.ToUpper(m[4]) + "}"
			if typeGUID == ProjectTypeSolutionFolder {
				currentFolder = &Folder{Name: m[2], GUID: guid}
			} else {
				current = &Entry{Name: m[2], Path: NormalizePath(m[3]), GUID: guid, TypeGUID: typeGUID}
			}
			continue
		}

		if trimmed == "EndProject" {
			if current != nil {
				sol.Entries = append(sol.Entries, *current)
				current = nil
			} else if currentFolder != nil {
				sol.Folders = append(sol.Folders, *currentFolder)
				currentFolder = nil
			}
			continue
		}

		switch {
		case trimmed == "Global":
			inGlobal = true
		case trimmed == "EndGlobal":
			inGlobal = false
		case inGlobal && strings.Contains(line, "GlobalSection(NestedProjects)"):
			inNested = true
		case inGlobal && strings.Contains(line, "EndGlobalSection"):
			inNested = false
		case inNested:
			if m := nestedProjectRegex.FindStringSubmatch(line); m != nil {
				parents["{"+strings.ToUpper(m[1])+"}"] = "{" + strings.ToUpper(m[2]) + "}"
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{FilePath: absPath, Message: fmt.Sprintf("error reading file: %v", err)}
	}
	if current != nil || currentFolder != nil {
		return nil, &ParseError{FilePath: absPath, Line: lineNum, Message: "unexpected end of file: missing EndProject"}
	}

	for i := range sol.Entries {
		sol.Entries[i].ParentFolderGUID = parents[sol.Entries[i].GUID]
	}
	for i := range sol.Folders {
		sol.Folders[i].ParentFolderGUID = parents[sol.Folders[i].GUID]
	}
	return sol, nil
}
