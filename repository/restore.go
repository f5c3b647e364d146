package repository

import (
	"context"
	"errors"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/version"
)

// PackageRestoreRepository looks packages up in a primary repository (a
// machine cache) and falls back to a secondary one (the package source).
// Writes go to the primary repository.
type PackageRestoreRepository struct {
	primary   core.Repository
	secondary core.Repository
}

// NewPackageRestoreRepository panics when either repository is nil.
func NewPackageRestoreRepository(primary, secondary core.Repository) *PackageRestoreRepository {
	if primary == nil {
		panic("repository: restore primary repository is nil")
	}
	if secondary == nil {
		panic("repository: restore secondary repository is nil")
	}
	return &PackageRestoreRepository{primary: primary, secondary: secondary}
}

// Source returns the primary source.
func (r *PackageRestoreRepository) Source() string { return r.primary.Source() }

// GetPackages reads the primary repository.
func (r *PackageRestoreRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	return r.primary.GetPackages(ctx)
}

// Exists reports whether either repository has id at ver.
func (r *PackageRestoreRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	ok, err := r.primary.Exists(ctx, id, ver)
	if err != nil || ok {
		countLookup("primary", ok)
		return ok, err
	}
	ok, err = r.secondary.Exists(ctx, id, ver)
	countLookup("secondary", ok)
	return ok, err
}

// FindPackage tries the primary repository, then the secondary one.
func (r *PackageRestoreRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	pkg, err := r.primary.FindPackage(ctx, id, ver)
	if err == nil {
		countLookup("primary", true)
		return pkg, nil
	}
	if !errors.Is(err, core.ErrPackageNotFound) {
		return nil, err
	}
	pkg, err = r.secondary.FindPackage(ctx, id, ver)
	countLookup("secondary", err == nil)
	return pkg, err
}

// FindPackagesByID returns the primary repository's versions of id, or the
// secondary repository's when the primary has none.
func (r *PackageRestoreRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	packages, err := r.primary.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(packages) > 0 {
		countLookup("primary", true)
		return core.Distinct(packages), nil
	}
	packages, err = r.secondary.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	countLookup("secondary", len(packages) > 0)
	return core.Distinct(packages), nil
}

// AddPackage writes the primary repository.
func (r *PackageRestoreRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	return r.primary.AddPackage(ctx, pkg)
}

// RemovePackage writes the primary repository.
func (r *PackageRestoreRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	return r.primary.RemovePackage(ctx, pkg)
}

// StartOperation opens a scope on the primary repository, then on the
// secondary one, and returns a scope that releases both.
func (r *PackageRestoreRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	primary := r.primary.StartOperation(operation, mainPackageID)
	secondary := r.secondary.StartOperation(operation, mainPackageID)
	return CombineScopes(primary, secondary)
}

func countLookup(member string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	observability.RepositoryLookupsTotal.WithLabelValues(member, result).Inc()
}
