package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/packaging"
	"github.com/willibrandon/gonuget-vs/version"
)

// LocalRepository is a packages folder laid out as {ID}.{Version}
// directories. A zipped repository keeps each .nupkg next to the extracted
// files; an unzipped one keeps {ID}.nuspec and the files only. Reads accept
// either layout.
type LocalRepository struct {
	resolver *packaging.PackagePathResolver
	zipped   bool
	logger   observability.Logger
}

// NewLocalRepository creates a repository rooted at root.
func NewLocalRepository(root string, zipped bool, logger observability.Logger) *LocalRepository {
	return &LocalRepository{
		resolver: packaging.NewPackagePathResolver(root, true),
		zipped:   zipped,
		logger:   observability.OrNull(logger),
	}
}

// Source returns the root directory.
func (r *LocalRepository) Source() string { return r.resolver.Root() }

// Root returns the root directory.
func (r *LocalRepository) Root() string { return r.resolver.Root() }

// IsZipped reports whether packages are stored with their .nupkg.
func (r *LocalRepository) IsZipped() bool { return r.zipped }

// PathResolver returns the path resolver of the repository layout.
func (r *LocalRepository) PathResolver() *packaging.PackagePathResolver { return r.resolver }

// InstallPath returns the folder that holds pkg.
func (r *LocalRepository) InstallPath(pkg *core.Package) string {
	return r.resolver.GetInstallPath(pkg.Identity)
}

// GetPackages returns every readable package folder. Folders that are not
// packages are skipped.
func (r *LocalRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	return r.scan(ctx, func(string) bool { return true })
}

// FindPackage returns the exact id and version.
func (r *LocalRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	if ver == nil {
		return nil, notFound(id, ver)
	}

	identity := core.NewPackageIdentity(id, ver)
	if pkg, err := r.load(r.resolver.GetInstallPath(identity)); err == nil && pkg.Identity.Equals(identity) {
		return pkg, nil
	}

	// the folder may carry a differently formatted version ("1.0" vs "1.0.0")
	candidates, err := r.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, pkg := range candidates {
		if pkg.Identity.Equals(identity) {
			return pkg, nil
		}
	}
	return nil, notFound(id, ver)
}

// FindPackagesByID returns every version of id.
func (r *LocalRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	prefix := strings.ToLower(id) + "."
	packages, err := r.scan(ctx, func(dir string) bool {
		return strings.HasPrefix(strings.ToLower(dir), prefix)
	})
	if err != nil {
		return nil, err
	}

	result := packages[:0]
	for _, pkg := range packages {
		if strings.EqualFold(pkg.ID(), id) {
			result = append(result, pkg)
		}
	}
	return result, nil
}

// Exists reports whether the exact id and version is present.
func (r *LocalRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	_, err := r.FindPackage(ctx, id, ver)
	return exists(err)
}

// AddPackage materializes pkg into its folder. Present packages are left
// untouched.
func (r *LocalRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	present, err := r.Exists(ctx, pkg.ID(), pkg.Version())
	if err != nil || present {
		return err
	}

	mode := packaging.PackageSaveModeUnzipped
	if r.zipped {
		mode = packaging.PackageSaveModeZipped
	}
	if _, err := packaging.ExtractPackage(ctx, pkg, r.resolver, mode); err != nil {
		return fmt.Errorf("add package %s to %s: %w", pkg, r.Root(), err)
	}

	r.logger.Debug("Added {PackageID}@{Version} to {Repository}", pkg.ID(), pkg.Version(), r.Root())
	return nil
}

// RemovePackage deletes the package folder.
func (r *LocalRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	dir := r.resolver.GetInstallPath(pkg.Identity)
	if found, err := r.FindPackage(ctx, pkg.ID(), pkg.Version()); err == nil && found.Path != "" {
		if info, statErr := os.Stat(found.Path); statErr == nil && !info.IsDir() {
			dir = filepath.Dir(found.Path)
		} else if statErr == nil {
			dir = found.Path
		}
	}

	if err := packaging.WithFileLock(ctx, dir, func() error {
		return os.RemoveAll(dir)
	}); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove package %s from %s: %w", pkg, r.Root(), err)
	}
	packaging.RemoveEmptyDirs(filepath.Dir(dir), r.Root())

	r.logger.Debug("Removed {PackageID}@{Version} from {Repository}", pkg.ID(), pkg.Version(), r.Root())
	return nil
}

// StartOperation returns a no-op scope.
func (r *LocalRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return core.NopScope{}
}

func (r *LocalRepository) scan(ctx context.Context, match func(dir string) bool) ([]*core.Package, error) {
	entries, err := os.ReadDir(r.Root())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read repository %s: %w", r.Root(), err)
	}

	var packages []*core.Package
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || !match(e.Name()) {
			continue
		}
		pkg, err := r.load(filepath.Join(r.Root(), e.Name()))
		if err != nil {
			r.logger.Debug("Skipping {Folder}: {Error}", e.Name(), err)
			continue
		}
		packages = append(packages, pkg)
	}
	sortPackages(packages)
	return packages, nil
}

// load reads a package folder, preferring its .nupkg.
func (r *LocalRepository) load(dir string) (*core.Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), packaging.PackageExtension) {
			return packaging.ReadPackage(filepath.Join(dir, e.Name()))
		}
	}
	return packaging.ReadPackageFolder(dir)
}
