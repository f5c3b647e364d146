package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/version"
)

// PackageReferenceRepository is the set of packages one project uses. The
// project's packages.config holds the list; package bodies come from the
// shared repository.
type PackageReferenceRepository struct {
	file            *PackageReferenceFile
	shared          *SharedRepository
	targetFramework string
	logger          observability.Logger

	mu sync.Mutex
}

// NewPackageReferenceRepository binds the packages.config at configPath to
// shared. New entries are tagged with targetFramework.
func NewPackageReferenceRepository(configPath string, shared *SharedRepository, targetFramework string, logger observability.Logger) *PackageReferenceRepository {
	return &PackageReferenceRepository{
		file:            NewPackageReferenceFile(configPath),
		shared:          shared,
		targetFramework: targetFramework,
		logger:          observability.OrNull(logger),
	}
}

// NewProjectRepository binds {projectDir}/packages.config to shared.
func NewProjectRepository(projectDir string, shared *SharedRepository, targetFramework string, logger observability.Logger) *PackageReferenceRepository {
	return NewPackageReferenceRepository(projectConfigPath(projectDir), shared, targetFramework, logger)
}

// Source returns the packages.config path.
func (r *PackageReferenceRepository) Source() string { return r.file.Path() }

// File returns the packages.config file.
func (r *PackageReferenceRepository) File() *PackageReferenceFile { return r.file }

// GetPackages returns the listed packages found in the shared repository.
// Entries whose package is missing are skipped.
func (r *PackageReferenceRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	refs, err := r.file.References()
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, refs)
}

// MissingReferences returns the entries whose package is not in the shared
// repository.
func (r *PackageReferenceRepository) MissingReferences(ctx context.Context) ([]PackageReference, error) {
	refs, err := r.file.References()
	if err != nil {
		return nil, err
	}

	var missing []PackageReference
	for _, ref := range refs {
		ver, err := ref.ParsedVersion()
		if err != nil {
			continue
		}
		ok, err := r.shared.Exists(ctx, ref.ID, ver)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, ref)
		}
	}
	return missing, nil
}

// FindPackage returns id at ver if the project lists it.
func (r *PackageReferenceRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	if ver == nil {
		return nil, notFound(id, ver)
	}
	listed, err := r.file.EntryExists(id, ver)
	if err != nil {
		return nil, err
	}
	if !listed {
		return nil, notFound(id, ver)
	}
	return r.shared.FindPackage(ctx, id, ver)
}

// FindPackagesByID returns every listed version of id.
func (r *PackageReferenceRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	refs, err := r.file.References()
	if err != nil {
		return nil, err
	}
	matching := refs[:0]
	for _, ref := range refs {
		if strings.EqualFold(ref.ID, id) {
			matching = append(matching, ref)
		}
	}
	return r.resolve(ctx, matching)
}

// Exists reports whether the project lists id at ver.
func (r *PackageReferenceRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	if ver == nil {
		return false, nil
	}
	return r.file.EntryExists(id, ver)
}

// AddPackage lists pkg. The first entry registers the project with the
// shared repository.
func (r *PackageReferenceRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs, err := r.file.References()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		if err := r.shared.RegisterRepository(r.file.Path()); err != nil {
			return err
		}
	}
	return r.file.AddEntry(pkg.ID(), pkg.Version(), r.targetFramework)
}

// RemovePackage unlists pkg. Removing the last entry unregisters the
// project from the shared repository.
func (r *PackageReferenceRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty, err := r.file.DeleteEntry(pkg.ID(), pkg.Version())
	if err != nil {
		return err
	}
	if empty {
		return r.shared.UnregisterRepository(r.file.Path())
	}
	return nil
}

// StartOperation returns a no-op scope.
func (r *PackageReferenceRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return core.NopScope{}
}

func (r *PackageReferenceRepository) resolve(ctx context.Context, refs []PackageReference) ([]*core.Package, error) {
	packages := make([]*core.Package, 0, len(refs))
	for _, ref := range refs {
		ver, err := ref.ParsedVersion()
		if err != nil {
			continue
		}
		pkg, err := r.shared.FindPackage(ctx, ref.ID, ver)
		if errors.Is(err, core.ErrPackageNotFound) {
			r.logger.Debug("{PackageID}@{Version} listed in {Path} is not in the shared repository", ref.ID, ref.Version, r.file.Path())
			continue
		}
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	sortPackages(packages)
	return packages, nil
}
