package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// MemoryRepository is a map-backed repository.
type MemoryRepository struct {
	source string

	mu       sync.RWMutex
	packages map[string]*core.Package
}

// NewMemoryRepository creates a repository named source holding packages.
func NewMemoryRepository(source string, packages ...*core.Package) *MemoryRepository {
	r := &MemoryRepository{
		source:   source,
		packages: make(map[string]*core.Package, len(packages)),
	}
	for _, pkg := range packages {
		r.packages[pkg.Identity.Key()] = pkg
	}
	return r
}

// Source returns the repository name.
func (r *MemoryRepository) Source() string { return r.source }

// GetPackages returns every package ordered by id and version.
func (r *MemoryRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*core.Package, 0, len(r.packages))
	for _, pkg := range r.packages {
		result = append(result, pkg)
	}
	sortPackages(result)
	return result, nil
}

// FindPackage returns the exact id and version.
func (r *MemoryRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	if ver == nil {
		return nil, notFound(id, ver)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if pkg, ok := r.packages[core.NewPackageIdentity(id, ver).Key()]; ok {
		return pkg, nil
	}
	return nil, notFound(id, ver)
}

// FindPackagesByID returns every version of id ordered by version.
func (r *MemoryRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*core.Package
	for _, pkg := range r.packages {
		if strings.EqualFold(pkg.ID(), id) {
			result = append(result, pkg)
		}
	}
	sortPackages(result)
	return result, nil
}

// Exists reports whether the exact id and version is present.
func (r *MemoryRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	return exists(r.findErr(ctx, id, ver))
}

func (r *MemoryRepository) findErr(ctx context.Context, id string, ver *version.NuGetVersion) error {
	_, err := r.FindPackage(ctx, id, ver)
	return err
}

// AddPackage stores pkg, replacing nothing if the identity is present.
func (r *MemoryRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pkg.Identity.Key()
	if _, ok := r.packages[key]; !ok {
		r.packages[key] = pkg
	}
	return nil
}

// RemovePackage drops pkg if present.
func (r *MemoryRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.packages, pkg.Identity.Key())
	return nil
}

// StartOperation returns a no-op scope.
func (r *MemoryRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return core.NopScope{}
}
