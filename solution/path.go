package solution

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts Windows-style paths to forward slash format,
// collapsing duplicate slashes but keeping a UNC "//" prefix.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	isUNC := strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
	normalized := strings.ReplaceAll(path, `\`, "/")
	if isUNC {
		normalized = strings.TrimLeft(normalized, "/")
	}
	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}
	if isUNC {
		normalized = "//" + normalized
	}
	return normalized
}

// ResolveProjectPath resolves a project path from a solution file
func ResolveProjectPath(solutionDir, projectPath string) string {
	if projectPath == "" {
		return ""
	}

	normalized := filepath.FromSlash(NormalizePath(projectPath))
	if filepath.IsAbs(normalized) {
		return filepath.Clean(normalized)
	}
	return filepath.Clean(filepath.Join(solutionDir, normalized))
}
