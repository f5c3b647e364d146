package solution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Parser parses one solution file format.
type Parser interface {
	Parse(path string) (*Solution, error)
	CanParse(path string) bool
}

// GetParser returns the appropriate parser for a solution file
func GetParser(path string) (Parser, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".sln":
		return NewSlnParser(), nil
	case ".slnx":
		return NewSlnxParser(), nil
	case ".slnf":
		return NewSlnfParser(), nil
	default:
		return nil, fmt.Errorf("unsupported solution format: %s (supported: .sln, .slnx, .slnf)", ext)
	}
}

// ParseSolution selects the parser by extension and parses path.
func ParseSolution(path string) (*Solution, error) {
	parser, err := GetParser(path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(path)
}

// FindSolutionFile returns the single solution file directly inside dir.
func FindSolutionFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("error searching for solution files: %w", err)
	}

	var found []string
	for _, e := range entries {
		if !e.IsDir() && IsSolutionFile(e.Name()) {
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no solution file found in %s", dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple solution files found in %s; specify which one to use", dir)
	}
}

func openAbs(path string) (*os.File, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", &ParseError{FilePath: path, Message: fmt.Sprintf("cannot open file: %v", err)}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	return file, absPath, nil
}
