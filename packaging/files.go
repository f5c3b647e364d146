package packaging

import (
	"path"
	"sort"
	"strings"
)

// Package folder constants
const (
	LibFolder            = "lib/"
	ContentFolder        = "content/"
	ToolsFolder          = "tools/"
	NativeBinariesFolder = "NativeBinaries/"
)

// Package metadata files
const (
	ManifestExtension       = ".nuspec"
	PackageExtension        = ".nupkg"
	PackageRelationshipFile = "_rels/.rels"
	ContentTypesFile        = "[Content_Types].xml"
	PSMDCPFile              = "package/services/metadata/core-properties/"
)

// Contents is the classified file list of a package.
type Contents struct {
	AssemblyReferences []string
	ContentFiles       []string
	ToolFiles          []string
	NativeBinaries     []string
}

// ClassifyFiles sorts package file paths into assembly references, content,
// tools and native binaries. Other files (build/, docs, metadata) are
// dropped. Results are sorted and use forward slashes.
func ClassifyFiles(files []string) Contents {
	var c Contents
	for _, f := range files {
		f = NormalizePath(f)
		switch {
		case IsPackageMetadataFile(f):
		case IsLibFile(f):
			if IsAssembly(f) {
				c.AssemblyReferences = append(c.AssemblyReferences, f)
			}
		case IsContentFile(f):
			c.ContentFiles = append(c.ContentFiles, f)
		case IsToolsFile(f):
			c.ToolFiles = append(c.ToolFiles, f)
		case IsNativeBinary(f):
			c.NativeBinaries = append(c.NativeBinaries, f)
		}
	}
	sort.Strings(c.AssemblyReferences)
	sort.Strings(c.ContentFiles)
	sort.Strings(c.ToolFiles)
	sort.Strings(c.NativeBinaries)
	return c
}

// NormalizePath converts separators to forward slashes and trims a leading
// slash.
func NormalizePath(filePath string) string {
	return strings.TrimPrefix(strings.ReplaceAll(filePath, "\\", "/"), "/")
}

func hasFolderPrefix(filePath, folder string) bool {
	return strings.HasPrefix(strings.ToLower(NormalizePath(filePath)), strings.ToLower(folder))
}

// IsLibFile checks if a file is in the lib/ folder
func IsLibFile(filePath string) bool {
	return hasFolderPrefix(filePath, LibFolder)
}

// IsContentFile checks if a file is in the content/ folder
func IsContentFile(filePath string) bool {
	return hasFolderPrefix(filePath, ContentFolder)
}

// IsToolsFile checks if a file is in the tools/ folder
func IsToolsFile(filePath string) bool {
	return hasFolderPrefix(filePath, ToolsFolder)
}

// IsNativeBinary checks if a file is in the NativeBinaries/ folder
func IsNativeBinary(filePath string) bool {
	return hasFolderPrefix(filePath, NativeBinariesFolder)
}

// IsManifestFile checks if a file is a root-level .nuspec manifest
func IsManifestFile(filePath string) bool {
	p := NormalizePath(filePath)
	return !strings.Contains(p, "/") && strings.HasSuffix(strings.ToLower(p), ManifestExtension)
}

// IsPackageMetadataFile checks if a file is package metadata
func IsPackageMetadataFile(filePath string) bool {
	lower := strings.ToLower(NormalizePath(filePath))
	return strings.HasPrefix(lower, "_rels/") ||
		lower == strings.ToLower(ContentTypesFile) ||
		strings.HasPrefix(lower, PSMDCPFile) ||
		strings.HasSuffix(lower, ".psmdcp") ||
		(!strings.Contains(lower, "/") && strings.HasSuffix(lower, PackageExtension)) ||
		IsManifestFile(filePath)
}

// GetFileExtension returns the file extension (lowercase, with dot)
func GetFileExtension(filePath string) string {
	return strings.ToLower(path.Ext(filePath))
}

// IsAssembly checks if file is a managed assembly
func IsAssembly(filePath string) bool {
	switch GetFileExtension(filePath) {
	case ".dll", ".exe", ".winmd":
		return true
	default:
		return false
	}
}

// ContentTarget returns the project-relative path of a content file
// ("content/Scripts/a.js" becomes "Scripts/a.js").
func ContentTarget(filePath string) string {
	p := NormalizePath(filePath)
	return p[len(ContentFolder):]
}

// NativeTarget returns the bin-relative path of a native binary.
func NativeTarget(filePath string) string {
	p := NormalizePath(filePath)
	return p[len(NativeBinariesFolder):]
}
