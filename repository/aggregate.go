package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/version"
)

// AggregateSource is the Source of an aggregate repository.
const AggregateSource = "(Aggregate source)"

// AggregateRepository is a read-only union of repositories, searched in
// order.
type AggregateRepository struct {
	repositories []core.Repository

	// IgnoreFailingRepositories logs and skips members that fail instead
	// of failing the whole lookup.
	IgnoreFailingRepositories bool

	// Logger receives warnings about skipped members.
	Logger observability.Logger
}

// NewAggregateRepository creates an aggregate of repos. Nil members are
// dropped.
func NewAggregateRepository(repos ...core.Repository) *AggregateRepository {
	members := make([]core.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			members = append(members, r)
		}
	}
	return &AggregateRepository{repositories: members}
}

// Repositories returns the members in search order.
func (r *AggregateRepository) Repositories() []core.Repository {
	return append([]core.Repository(nil), r.repositories...)
}

// Source returns AggregateSource.
func (r *AggregateRepository) Source() string { return AggregateSource }

// failed decides whether err from member aborts the lookup.
func (r *AggregateRepository) failed(member core.Repository, err error) error {
	if !r.IgnoreFailingRepositories || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("repository %s: %w", member.Source(), err)
	}
	observability.OrNull(r.Logger).Warn("Skipping failing repository {Source}: {Error}", member.Source(), err)
	return nil
}

// GetPackages returns the union of every member's packages.
func (r *AggregateRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	var all []*core.Package
	for _, member := range r.repositories {
		packages, err := member.GetPackages(ctx)
		if err != nil {
			if ferr := r.failed(member, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		all = append(all, packages...)
	}
	return core.Distinct(all), nil
}

// FindPackage returns the first member's match.
func (r *AggregateRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	for _, member := range r.repositories {
		pkg, err := member.FindPackage(ctx, id, ver)
		if err == nil {
			return pkg, nil
		}
		if errors.Is(err, core.ErrPackageNotFound) {
			continue
		}
		if ferr := r.failed(member, err); ferr != nil {
			return nil, ferr
		}
	}
	return nil, notFound(id, ver)
}

// FindPackagesByID returns every member's versions of id, de-duplicated.
func (r *AggregateRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	var all []*core.Package
	for _, member := range r.repositories {
		packages, err := member.FindPackagesByID(ctx, id)
		if err != nil {
			if ferr := r.failed(member, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		all = append(all, packages...)
	}
	result := core.Distinct(all)
	sortPackages(result)
	return result, nil
}

// Exists reports whether any member has id at ver.
func (r *AggregateRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	for _, member := range r.repositories {
		ok, err := member.Exists(ctx, id, ver)
		if err != nil {
			if ferr := r.failed(member, err); ferr != nil {
				return false, ferr
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ResolveDependency returns the first member's resolution of dep.
func (r *AggregateRepository) ResolveDependency(ctx context.Context, dep core.PackageDependency, allowPrerelease bool) (*core.Package, error) {
	for _, member := range r.repositories {
		pkg, err := core.ResolveDependency(ctx, member, dep, allowPrerelease)
		if err == nil {
			return pkg, nil
		}
		if errors.Is(err, core.ErrPackageNotFound) {
			continue
		}
		if ferr := r.failed(member, err); ferr != nil {
			return nil, ferr
		}
	}
	return nil, &core.UnknownPackageError{ID: dep.ID, Source: AggregateSource}
}

// AddPackage is not supported.
func (r *AggregateRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	return fmt.Errorf("add %s to %s: %w", pkg, AggregateSource, ErrNotSupported)
}

// RemovePackage is not supported.
func (r *AggregateRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	return fmt.Errorf("remove %s from %s: %w", pkg, AggregateSource, ErrNotSupported)
}

// StartOperation opens a scope on every member in order.
func (r *AggregateRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	scopes := make([]core.OperationScope, 0, len(r.repositories))
	for _, member := range r.repositories {
		scopes = append(scopes, member.StartOperation(operation, mainPackageID))
	}
	return CombineScopes(scopes...)
}
