// Package packaging reads, writes and extracts NuGet packages (.nupkg files
// and their unzipped folder form) and maps them onto core.Package.
package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
)

// PackageReader provides read access to .nupkg files.
type PackageReader struct {
	zipReader   *zip.ReadCloser
	zipReaderAt *zip.Reader // For in-memory ZIPs
	isClosable  bool

	nuspecEntry *zip.File
}

// OpenPackage opens a .nupkg file from a file path.
func OpenPackage(path string) (*PackageReader, error) {
	zipReader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	return &PackageReader{
		zipReader:  zipReader,
		isClosable: true,
	}, nil
}

// OpenPackageFromReaderAt opens a package from a ReaderAt.
func OpenPackageFromReaderAt(r io.ReaderAt, size int64) (*PackageReader, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open package from reader: %w", err)
	}

	return &PackageReader{zipReaderAt: zipReader}, nil
}

// Close closes the package reader.
func (r *PackageReader) Close() error {
	if !r.isClosable || r.zipReader == nil {
		return nil
	}
	return r.zipReader.Close()
}

// Files returns the list of entries in the ZIP.
func (r *PackageReader) Files() []*zip.File {
	if r.zipReader != nil {
		return r.zipReader.File
	}
	return r.zipReaderAt.File
}

// GetNuspecFile finds the root-level .nuspec entry.
func (r *PackageReader) GetNuspecFile() (*zip.File, error) {
	if r.nuspecEntry != nil {
		return r.nuspecEntry, nil
	}

	var candidates []*zip.File
	for _, file := range r.Files() {
		if IsManifestFile(file.Name) {
			candidates = append(candidates, file)
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNuspecNotFound
	}
	if len(candidates) > 1 {
		return nil, ErrMultipleNuspecs
	}

	r.nuspecEntry = candidates[0]
	return r.nuspecEntry, nil
}

// Nuspec parses the package manifest.
func (r *PackageReader) Nuspec() (*Nuspec, error) {
	entry, err := r.GetNuspecFile()
	if err != nil {
		return nil, err
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open nuspec: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return ParseNuspec(rc)
}

// PackageFiles returns the names of the payload entries, skipping OPC
// metadata, directory entries and the manifest.
func (r *PackageReader) PackageFiles() []string {
	var names []string
	for _, file := range r.Files() {
		if strings.HasSuffix(file.Name, "/") || IsPackageMetadataFile(file.Name) {
			continue
		}
		names = append(names, file.Name)
	}
	return names
}

// GetFile finds a file by path (case-insensitive).
func (r *PackageReader) GetFile(filePath string) (*zip.File, error) {
	normalizedPath := NormalizePath(filePath)

	for _, file := range r.Files() {
		if strings.EqualFold(file.Name, normalizedPath) {
			return file, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
}

// Package builds a core.Package from the manifest and the payload.
func (r *PackageReader) Package() (*core.Package, error) {
	nuspec, err := r.Nuspec()
	if err != nil {
		return nil, err
	}
	return packageFrom(nuspec, r.PackageFiles())
}

// ReadPackage reads the .nupkg at path. The returned package's Path is path.
func ReadPackage(path string) (*core.Package, error) {
	reader, err := OpenPackage(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	pkg, err := reader.Package()
	if err != nil {
		return nil, fmt.Errorf("read package %s: %w", path, err)
	}
	pkg.Path = path
	return pkg, nil
}

// ReadPackageFolder reads an unzipped package: a folder holding exactly one
// root-level .nuspec next to the payload. The returned package's Path is dir.
func ReadPackageFolder(dir string) (*core.Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package folder: %w", err)
	}

	var manifest string
	for _, e := range entries {
		if !e.IsDir() && IsManifestFile(e.Name()) {
			if manifest != "" {
				return nil, ErrMultipleNuspecs
			}
			manifest = e.Name()
		}
	}
	if manifest == "" {
		return nil, ErrNuspecNotFound
	}

	nuspec, err := ParseNuspecFile(filepath.Join(dir, manifest))
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !IsPackageMetadataFile(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk package folder: %w", err)
	}

	pkg, err := packageFrom(nuspec, files)
	if err != nil {
		return nil, fmt.Errorf("read package folder %s: %w", dir, err)
	}
	pkg.Path = dir
	return pkg, nil
}

// OpenFile opens one payload file of pkg from its backing .nupkg or
// folder. Packages without a backing path have empty files.
func OpenFile(pkg *core.Package, name string) (io.ReadCloser, error) {
	if err := ValidatePackagePath(name); err != nil {
		return nil, err
	}
	if pkg.Path == "" {
		return io.NopCloser(strings.NewReader("")), nil
	}

	info, err := os.Stat(pkg.Path)
	if err != nil {
		return nil, fmt.Errorf("open package %s: %w", pkg, err)
	}
	if info.IsDir() {
		f, err := os.Open(filepath.Join(pkg.Path, filepath.FromSlash(NormalizePath(name))))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return f, err
	}

	reader, err := OpenPackage(pkg.Path)
	if err != nil {
		return nil, err
	}
	entry, err := reader.GetFile(name)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	rc, err := entry.Open()
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &entryReadCloser{ReadCloser: rc, pkg: reader}, nil
}

type entryReadCloser struct {
	io.ReadCloser
	pkg *PackageReader
}

func (e *entryReadCloser) Close() error {
	err := e.ReadCloser.Close()
	if cerr := e.pkg.Close(); err == nil {
		err = cerr
	}
	return err
}

func packageFrom(nuspec *Nuspec, files []string) (*core.Package, error) {
	identity, err := nuspec.Identity()
	if err != nil {
		return nil, err
	}
	deps, err := nuspec.Dependencies()
	if err != nil {
		return nil, err
	}

	contents := ClassifyFiles(files)
	return &core.Package{
		Identity:            identity,
		Title:               nuspec.Metadata.Title,
		Description:         nuspec.Metadata.Description,
		Authors:             nuspec.Authors(),
		Dependencies:        deps,
		AssemblyReferences:  contents.AssemblyReferences,
		FrameworkAssemblies: nuspec.FrameworkAssemblyNames(),
		ContentFiles:        contents.ContentFiles,
		ToolFiles:           contents.ToolFiles,
		NativeBinaries:      contents.NativeBinaries,
	}, nil
}

// ValidatePackagePath checks for path traversal attacks.
func ValidatePackagePath(filePath string) error {
	normalized := strings.ReplaceAll(filePath, "\\", "/")

	if strings.TrimSpace(normalized) == "" {
		return ErrInvalidPath
	}
	if strings.HasPrefix(normalized, "/") {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
