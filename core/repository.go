package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/willibrandon/gonuget-vs/version"
)

// Operation names passed to Repository.StartOperation.
const (
	OperationInstall    = "Install"
	OperationUninstall  = "Uninstall"
	OperationUpdate     = "Update"
	OperationRestore    = "Restore"
	OperationPreinstall = "Preinstall"
)

// OperationScope brackets one logical package operation on a repository
// (telemetry, locking). Close releases it.
type OperationScope = io.Closer

// Repository is a source of packages addressable by id and version.
//
// FindPackage reports a miss with an error matching ErrPackageNotFound;
// FindPackagesByID reports a miss with an empty slice and Exists with false.
type Repository interface {
	// Source describes where the packages come from (a path or a name).
	Source() string

	// GetPackages returns every package in the repository.
	GetPackages(ctx context.Context) ([]*Package, error)

	// FindPackage returns the package with the exact id and version.
	FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*Package, error)

	// FindPackagesByID returns every version of a package id.
	FindPackagesByID(ctx context.Context, id string) ([]*Package, error)

	// Exists reports whether the exact id and version is present.
	Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error)

	// AddPackage adds a package. Adding a present package is a no-op.
	AddPackage(ctx context.Context, pkg *Package) error

	// RemovePackage removes a package. Removing an absent package is a no-op.
	RemovePackage(ctx context.Context, pkg *Package) error

	// StartOperation opens an operation scope for operation on mainPackageID.
	StartOperation(operation, mainPackageID string) OperationScope
}

// DependencyResolver picks the package that satisfies a dependency.
type DependencyResolver interface {
	ResolveDependency(ctx context.Context, dep PackageDependency, allowPrerelease bool) (*Package, error)
}

// NopScope is an operation scope that does nothing.
type NopScope struct{}

// Close implements io.Closer.
func (NopScope) Close() error { return nil }

// ResolveDependency resolves dep against repo. A repository that implements
// DependencyResolver decides for itself; otherwise the lowest version
// satisfying the range wins, stable versions only unless allowPrerelease.
func ResolveDependency(ctx context.Context, repo Repository, dep PackageDependency, allowPrerelease bool) (*Package, error) {
	if resolver, ok := repo.(DependencyResolver); ok {
		return resolver.ResolveDependency(ctx, dep, allowPrerelease)
	}
	return ResolveLowest(ctx, repo, dep, allowPrerelease)
}

// ResolveLowest returns the lowest version of dep.ID in repo that satisfies
// dep.VersionRange.
func ResolveLowest(ctx context.Context, repo Repository, dep PackageDependency, allowPrerelease bool) (*Package, error) {
	candidates, err := repo.FindPackagesByID(ctx, dep.ID)
	if err != nil {
		return nil, fmt.Errorf("find packages %s: %w", dep.ID, err)
	}

	var lowest *Package
	for _, pkg := range candidates {
		if !allowPrerelease && pkg.Version().IsPrerelease() {
			continue
		}
		if !dep.VersionRange.Satisfies(pkg.Version()) {
			continue
		}
		if lowest == nil || pkg.Version().LessThan(lowest.Version()) {
			lowest = pkg
		}
	}

	if lowest == nil {
		return nil, &UnknownPackageError{ID: dep.ID, Source: repo.Source()}
	}
	return lowest, nil
}

// FindLatest returns the highest version of id in repo.
func FindLatest(ctx context.Context, repo Repository, id string, allowPrerelease bool) (*Package, error) {
	return FindBest(ctx, repo, id, nil, allowPrerelease)
}

// FindBest returns the highest version of id in repo within r (nil = any).
func FindBest(ctx context.Context, repo Repository, id string, r *version.Range, allowPrerelease bool) (*Package, error) {
	candidates, err := repo.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find packages %s: %w", id, err)
	}

	var best *Package
	for _, pkg := range candidates {
		if !allowPrerelease && pkg.Version().IsPrerelease() {
			continue
		}
		if r != nil && !r.Satisfies(pkg.Version()) {
			continue
		}
		if best == nil || pkg.Version().GreaterThan(best.Version()) {
			best = pkg
		}
	}

	if best == nil {
		return nil, &UnknownPackageError{ID: id, Source: repo.Source()}
	}
	return best, nil
}

// FindPackage looks up id in repo. A nil version means "the only or the
// latest version": the latest stable, or the latest prerelease if that is
// all there is.
func FindPackage(ctx context.Context, repo Repository, id string, ver *version.NuGetVersion, allowPrerelease bool) (*Package, error) {
	if ver != nil {
		pkg, err := repo.FindPackage(ctx, id, ver)
		if errors.Is(err, ErrPackageNotFound) {
			return nil, &UnknownPackageError{ID: id, Version: ver, Source: repo.Source()}
		}
		return pkg, err
	}

	pkg, err := FindLatest(ctx, repo, id, allowPrerelease)
	if err == nil || allowPrerelease || !errors.Is(err, ErrPackageNotFound) {
		return pkg, err
	}
	return FindLatest(ctx, repo, id, true)
}

// IsNotFound reports whether err means "no such package".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPackageNotFound)
}
