package repository

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/packaging"
	"github.com/willibrandon/gonuget-vs/version"
)

// RepositoriesConfigFileName lists the packages.config files that draw on a
// shared repository.
const RepositoriesConfigFileName = "repositories.config"

type repositoriesConfigXML struct {
	XMLName      xml.Name             `xml:"repositories"`
	Repositories []repositoryEntryXML `xml:"repository"`
}

type repositoryEntryXML struct {
	Path string `xml:"path,attr"`
}

// SharedRepository is the solution packages folder. It stores package
// bodies once for every project, records which project packages.config
// files use it in repositories.config, and keeps solution-level packages
// (packages without project content) in a solution packages.config.
type SharedRepository struct {
	*LocalRepository

	mu             sync.RWMutex
	configPath     string
	solutionConfig *PackageReferenceFile
}

// NewSharedRepository creates the shared repository at root.
// solutionConfigPath locates the solution-level packages.config; empty
// selects {root}/../.nuget/packages.config.
func NewSharedRepository(root, solutionConfigPath string, zipped bool, logger observability.Logger) *SharedRepository {
	if solutionConfigPath == "" {
		solutionConfigPath = DefaultSolutionConfigPath(root)
	}
	return &SharedRepository{
		LocalRepository: NewLocalRepository(root, zipped, logger),
		configPath:      filepath.Join(root, RepositoriesConfigFileName),
		solutionConfig:  NewPackageReferenceFile(solutionConfigPath),
	}
}

// DefaultSolutionConfigPath returns {root}/../.nuget/packages.config.
func DefaultSolutionConfigPath(root string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(root)), ".nuget", PackagesConfigFileName)
}

// AddPackage materializes pkg. Packages without project content are also
// recorded as solution-level references.
func (r *SharedRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	if err := r.LocalRepository.AddPackage(ctx, pkg); err != nil {
		return err
	}
	if !core.IsProjectLevel(pkg) {
		return r.AddPackageReferenceEntry(pkg.ID(), pkg.Version())
	}
	return nil
}

// RemovePackage drops the solution-level entry, if any, and the package
// folder.
func (r *SharedRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	if _, err := r.solutionConfig.DeleteEntry(pkg.ID(), pkg.Version()); err != nil {
		return err
	}
	return r.LocalRepository.RemovePackage(ctx, pkg)
}

// SolutionReferences returns the solution-level packages.config entries.
func (r *SharedRepository) SolutionReferences() ([]PackageReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.solutionConfig.References()
}

// AddPackageReferenceEntry records a solution-level package.
func (r *SharedRepository) AddPackageReferenceEntry(id string, ver *version.NuGetVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solutionConfig.AddEntry(id, ver, "")
}

// IsSolutionReferenced reports whether id at ver is a solution-level
// package.
func (r *SharedRepository) IsSolutionReferenced(id string, ver *version.NuGetVersion) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ok, err := r.solutionConfig.EntryExists(id, ver)
	if err != nil {
		r.logger.Warn("Failed to read {Path}: {Error}", r.solutionConfig.Path(), err)
	}
	return ok
}

// IsReferenced reports whether any registered project lists id at ver.
// Unreadable project files count as not referencing it.
func (r *SharedRepository) IsReferenced(id string, ver *version.NuGetVersion) bool {
	for _, path := range r.RegisteredRepositories() {
		ok, err := NewPackageReferenceFile(path).EntryExists(id, ver)
		if err != nil {
			r.logger.Warn("Failed to read {Path}: {Error}", path, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// RegisteredRepositories returns the absolute paths of every registered
// packages.config. A missing or unreadable repositories.config is empty.
func (r *SharedRepository) RegisteredRepositories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := r.readConfig()
	if err != nil {
		r.logger.Warn("Failed to read {Path}: {Error}", r.configPath, err)
		return nil
	}

	paths := make([]string, 0, len(entries))
	for _, rel := range entries {
		paths = append(paths, r.absolute(rel))
	}
	return paths
}

// RegisterRepository records the packages.config at path.
func (r *SharedRepository) RegisterRepository(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readConfig()
	if err != nil {
		return err
	}
	rel := r.relative(path)
	for _, e := range entries {
		if strings.EqualFold(e, rel) {
			return nil
		}
	}
	return r.writeConfig(append(entries, rel))
}

// UnregisterRepository forgets the packages.config at path. The last
// unregistration deletes repositories.config.
func (r *SharedRepository) UnregisterRepository(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readConfig()
	if err != nil {
		return err
	}
	rel := r.relative(path)
	kept := entries[:0]
	for _, e := range entries {
		if !strings.EqualFold(e, rel) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return r.writeConfig(kept)
}

func (r *SharedRepository) readConfig() ([]string, error) {
	file, err := os.Open(r.configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.configPath, err)
	}
	defer func() { _ = file.Close() }()

	var doc repositoriesConfigXML
	if err := xml.NewDecoder(file).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", r.configPath, err)
	}

	paths := make([]string, 0, len(doc.Repositories))
	for _, e := range doc.Repositories {
		if strings.TrimSpace(e.Path) != "" {
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

func (r *SharedRepository) writeConfig(paths []string) error {
	return packaging.WithFileLock(context.Background(), r.configPath, func() error {
		if len(paths) == 0 {
			if err := os.Remove(r.configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("delete %s: %w", r.configPath, err)
			}
			return nil
		}

		doc := repositoriesConfigXML{}
		for _, p := range paths {
			doc.Repositories = append(doc.Repositories, repositoryEntryXML{Path: p})
		}

		file, err := packaging.CreateFile(r.configPath)
		if err != nil {
			return fmt.Errorf("write %s: %w", r.configPath, err)
		}
		defer func() { _ = file.Close() }()

		if _, err := io.WriteString(file, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(file)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("write %s: %w", r.configPath, err)
		}
		return nil
	})
}

// relative stores paths relative to the repository root with backslashes.
func (r *SharedRepository) relative(path string) string {
	rel, err := filepath.Rel(r.Root(), path)
	if err != nil {
		rel = path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), `\`)
}

func (r *SharedRepository) absolute(rel string) string {
	p := filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(r.Root(), p))
}
