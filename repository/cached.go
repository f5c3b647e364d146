package repository

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// DefaultCacheExpiration is the default lifetime of a cached lookup.
const DefaultCacheExpiration = 10 * time.Minute

// CachedRepository memoizes lookups against a slow source for a fixed
// time. Writes through the cache invalidate the affected id.
type CachedRepository struct {
	source core.Repository
	cache  *gocache.Cache
	ttl    time.Duration
}

// NewCachedRepository wraps source. A non-positive ttl selects
// DefaultCacheExpiration.
func NewCachedRepository(source core.Repository, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheExpiration
	}
	return &CachedRepository{
		source: source,
		cache:  gocache.New(ttl, 3*ttl),
		ttl:    ttl,
	}
}

func idKey(id string) string { return "id:" + strings.ToLower(id) }

func packageKey(id string, ver *version.NuGetVersion) string {
	return "pkg:" + core.NewPackageIdentity(id, ver).Key()
}

// Source returns the wrapped source.
func (r *CachedRepository) Source() string { return r.source.Source() }

// GetPackages is not cached.
func (r *CachedRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	return r.source.GetPackages(ctx)
}

// FindPackage returns a cached hit or asks the source. Misses are not
// cached.
func (r *CachedRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	key := packageKey(id, ver)
	if v, ok := r.cache.Get(key); ok {
		if pkg, ok := v.(*core.Package); ok {
			return pkg, nil
		}
	}

	pkg, err := r.source.FindPackage(ctx, id, ver)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, pkg, r.ttl)
	return pkg, nil
}

// FindPackagesByID returns the cached version list or asks the source.
func (r *CachedRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	key := idKey(id)
	if v, ok := r.cache.Get(key); ok {
		if packages, ok := v.([]*core.Package); ok {
			return append([]*core.Package(nil), packages...), nil
		}
	}

	packages, err := r.source.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, append([]*core.Package(nil), packages...), r.ttl)
	return packages, nil
}

// Exists answers from the cache when it holds the package.
func (r *CachedRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	if _, ok := r.cache.Get(packageKey(id, ver)); ok {
		return true, nil
	}
	return r.source.Exists(ctx, id, ver)
}

// AddPackage writes the source and invalidates pkg's id.
func (r *CachedRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	defer r.invalidate(pkg)
	return r.source.AddPackage(ctx, pkg)
}

// RemovePackage writes the source and invalidates pkg's id.
func (r *CachedRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	defer r.invalidate(pkg)
	return r.source.RemovePackage(ctx, pkg)
}

// StartOperation opens a scope on the source.
func (r *CachedRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return r.source.StartOperation(operation, mainPackageID)
}

// Flush drops every cached lookup.
func (r *CachedRepository) Flush() {
	r.cache.Flush()
}

func (r *CachedRepository) invalidate(pkg *core.Package) {
	r.cache.Delete(idKey(pkg.ID()))
	r.cache.Delete(packageKey(pkg.ID(), pkg.Version()))
}
