package solution

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-vs/packaging"
	"github.com/willibrandon/gonuget-vs/project"
)

// FileProjectSystem applies package content to a project on disk.
//
// Class library projects record references and content items in their
// project file. Web sites have no project file: references are assemblies
// dropped into bin/ and every file under the site folder is content.
type FileProjectSystem struct {
	name      string
	root      string
	websiteFW string
	file      *ProjectFile
}

// NewFileProjectSystem opens the project system for p. For project files
// the file is loaded eagerly.
func NewFileProjectSystem(p project.Project) (*FileProjectSystem, error) {
	if project.IsWebSite(p) {
		return &FileProjectSystem{name: p.Name(), root: p.FullName(), websiteFW: "net40"}, nil
	}

	file, err := LoadProjectFile(p.FullName())
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", p.Name(), err)
	}
	return &FileProjectSystem{name: p.Name(), root: filepath.Dir(p.FullName()), file: file}, nil
}

// ProjectName returns the display name of the project.
func (s *FileProjectSystem) ProjectName() string { return s.name }

// Root returns the project directory.
func (s *FileProjectSystem) Root() string { return s.root }

// TargetFramework returns the short framework moniker of the project.
func (s *FileProjectSystem) TargetFramework() string {
	if s.file == nil {
		return s.websiteFW
	}
	return s.file.TargetFramework()
}

// IsWebSite reports whether the project is a web site.
func (s *FileProjectSystem) IsWebSite() bool { return s.file == nil }

// AddReference references the assembly at path.
func (s *FileProjectSystem) AddReference(path string) error {
	name := referenceName(path)
	if s.IsWebSite() {
		in, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("add reference %s: %w", name, err)
		}
		defer func() { _ = in.Close() }()
		return s.writeFile(filepath.Join("bin", filepath.Base(path)), in, true)
	}

	hint, err := filepath.Rel(s.root, path)
	if err != nil {
		hint = path
	}
	s.file.AddReference(name, strings.ReplaceAll(hint, "/", `\`))
	return s.file.Save()
}

// RemoveReference removes the reference to the assembly name (with or
// without extension).
func (s *FileProjectSystem) RemoveReference(name string) error {
	name = referenceName(name)
	if s.IsWebSite() {
		for _, ext := range []string{".dll", ".exe"} {
			target := filepath.Join(s.root, "bin", name+ext)
			if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove reference %s: %w", name, err)
			}
		}
		return nil
	}

	if s.file.RemoveReference(name) {
		return s.file.Save()
	}
	return nil
}

// ReferenceExists reports whether the project references the assembly.
func (s *FileProjectSystem) ReferenceExists(name string) bool {
	name = referenceName(name)
	if s.IsWebSite() {
		return s.FileExists(filepath.Join("bin", name+".dll")) || s.FileExists(filepath.Join("bin", name+".exe"))
	}
	_, ok := s.file.FindReference(name)
	return ok
}

// AddFrameworkReference references a framework assembly. Web sites resolve
// framework assemblies from the GAC, so nothing is recorded for them.
func (s *FileProjectSystem) AddFrameworkReference(name string) error {
	if s.IsWebSite() {
		return nil
	}
	if _, ok := s.file.FindReference(name); ok {
		return nil
	}
	s.file.AddReference(name, "")
	return s.file.Save()
}

// AddFile writes content to the project-relative path. Existing files are
// left alone.
func (s *FileProjectSystem) AddFile(path string, content io.Reader) error {
	return s.writeFile(path, content, false)
}

func (s *FileProjectSystem) writeFile(path string, content io.Reader, overwrite bool) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	if overwrite {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("replace %s: %w", path, err)
		}
	}
	if _, err := packaging.CopyToFile(content, target); err != nil {
		return fmt.Errorf("add file %s: %w", path, err)
	}

	if s.file != nil {
		s.file.AddContent(path)
		return s.file.Save()
	}
	return nil
}

// DeleteFile removes a project-relative file and any directories it leaves
// empty.
func (s *FileProjectSystem) DeleteFile(path string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	packaging.RemoveEmptyDirs(filepath.Dir(target), s.root)

	if s.file != nil && s.file.RemoveItem(path) {
		return s.file.Save()
	}
	return nil
}

// FileExists reports whether the project-relative path exists.
func (s *FileProjectSystem) FileExists(path string) bool {
	target, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(target)
	return err == nil
}

func (s *FileProjectSystem) resolve(path string) (string, error) {
	rel := packaging.NormalizePath(path)
	if err := packaging.ValidatePackagePath(rel); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func referenceName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	switch strings.ToLower(filepath.Ext(base)) {
	case ".dll", ".exe":
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}
