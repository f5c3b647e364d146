package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// DefaultRecentPackages is the default capacity of a recent-package list.
const DefaultRecentPackages = 20

// RecentSource is the Source of a recent-package repository.
const RecentSource = "(Recent packages)"

// RecentPackageRepository remembers the most recently installed packages,
// newest first, one entry per package id.
type RecentPackageRepository struct {
	capacity int

	mu       sync.RWMutex
	packages []*core.Package
}

// NewRecentPackageRepository creates a list holding at most capacity packages.
// A non-positive capacity selects DefaultRecentPackages.
func NewRecentPackageRepository(capacity int) *RecentPackageRepository {
	if capacity <= 0 {
		capacity = DefaultRecentPackages
	}
	return &RecentPackageRepository{capacity: capacity}
}

// AddRecentPackage moves pkg to the front, replacing any entry with the
// same id.
func (r *RecentPackageRepository) AddRecentPackage(pkg *core.Package) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*core.Package, 0, r.capacity)
	list = append(list, pkg)
	for _, p := range r.packages {
		if len(list) == r.capacity {
			break
		}
		if !strings.EqualFold(p.ID(), pkg.ID()) {
			list = append(list, p)
		}
	}
	r.packages = list
}

// Source returns RecentSource.
func (r *RecentPackageRepository) Source() string { return RecentSource }

// GetPackages returns the list, newest first.
func (r *RecentPackageRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*core.Package(nil), r.packages...), nil
}

// FindPackage returns id at ver if it is in the list.
func (r *RecentPackageRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity := core.NewPackageIdentity(id, ver)
	for _, pkg := range r.packages {
		if pkg.Identity.Equals(identity) {
			return pkg, nil
		}
	}
	return nil, notFound(id, ver)
}

// FindPackagesByID returns the entry for id, if any.
func (r *RecentPackageRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, pkg := range r.packages {
		if strings.EqualFold(pkg.ID(), id) {
			return []*core.Package{pkg}, nil
		}
	}
	return nil, nil
}

// Exists reports whether id at ver is in the list.
func (r *RecentPackageRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	_, err := r.FindPackage(ctx, id, ver)
	return exists(err)
}

// AddPackage records pkg as recently installed.
func (r *RecentPackageRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	r.AddRecentPackage(pkg)
	return nil
}

// RemovePackage drops pkg from the list.
func (r *RecentPackageRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.packages[:0]
	for _, p := range r.packages {
		if !p.Identity.Equals(pkg.Identity) {
			kept = append(kept, p)
		}
	}
	r.packages = kept
	return nil
}

// StartOperation returns a no-op scope.
func (r *RecentPackageRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return core.NopScope{}
}

// Clear empties the list.
func (r *RecentPackageRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages = nil
}
