package repository

import (
	"context"
	"fmt"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// FallbackRepository reads and writes its primary repository but resolves
// dependencies entirely from the secondary one. Project managers use it so
// that installed packages come from the solution folder while missing
// dependencies come from the package source.
type FallbackRepository struct {
	primary   core.Repository
	secondary core.Repository
}

// NewFallbackRepository panics when either repository is nil.
func NewFallbackRepository(primary, secondary core.Repository) *FallbackRepository {
	if primary == nil {
		panic("repository: fallback primary repository is nil")
	}
	if secondary == nil {
		panic("repository: fallback secondary repository is nil")
	}
	return &FallbackRepository{primary: primary, secondary: secondary}
}

// Primary returns the repository that serves reads and writes.
func (r *FallbackRepository) Primary() core.Repository { return r.primary }

// Secondary returns the repository that serves dependency resolution.
func (r *FallbackRepository) Secondary() core.Repository { return r.secondary }

// Source returns the primary source.
func (r *FallbackRepository) Source() string { return r.primary.Source() }

// GetPackages reads the primary repository.
func (r *FallbackRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	return r.primary.GetPackages(ctx)
}

// FindPackage reads the primary repository.
func (r *FallbackRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	return r.primary.FindPackage(ctx, id, ver)
}

// FindPackagesByID reads the primary repository.
func (r *FallbackRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	return r.primary.FindPackagesByID(ctx, id)
}

// Exists reads the primary repository.
func (r *FallbackRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	return r.primary.Exists(ctx, id, ver)
}

// AddPackage writes the primary repository.
func (r *FallbackRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	return r.primary.AddPackage(ctx, pkg)
}

// RemovePackage writes the primary repository.
func (r *FallbackRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	return r.primary.RemovePackage(ctx, pkg)
}

// StartOperation opens a scope on the primary repository.
func (r *FallbackRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return r.primary.StartOperation(operation, mainPackageID)
}

// ResolveDependency resolves dep from the secondary repository.
func (r *FallbackRepository) ResolveDependency(ctx context.Context, dep core.PackageDependency, allowPrerelease bool) (*core.Package, error) {
	return core.ResolveDependency(ctx, r.secondary, dep, allowPrerelease)
}

// GetDependencies resolves every dependency of pkg from the secondary
// repository.
func (r *FallbackRepository) GetDependencies(ctx context.Context, pkg *core.Package, allowPrerelease bool) ([]*core.Package, error) {
	deps := make([]*core.Package, 0, len(pkg.Dependencies))
	for _, dep := range pkg.Dependencies {
		resolved, err := r.ResolveDependency(ctx, dep, allowPrerelease)
		if err != nil {
			return nil, fmt.Errorf("resolve dependency %s of %s: %w", dep, pkg, err)
		}
		deps = append(deps, resolved)
	}
	return deps, nil
}
