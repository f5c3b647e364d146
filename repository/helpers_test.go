package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

func newPackage(id, ver string, deps ...core.PackageDependency) *core.Package {
	return &core.Package{
		Identity:           core.NewPackageIdentity(id, version.MustParse(ver)),
		Dependencies:       deps,
		AssemblyReferences: []string{"lib/net45/" + id + ".dll"},
	}
}

func newSolutionPackage(id, ver string) *core.Package {
	return &core.Package{
		Identity:  core.NewPackageIdentity(id, version.MustParse(ver)),
		ToolFiles: []string{"tools/init.ps1"},
	}
}

func dependency(id, r string) core.PackageDependency {
	return core.PackageDependency{ID: id, VersionRange: version.MustParseRange(r)}
}

// countingRepository counts lookups reaching the wrapped repository.
type countingRepository struct {
	*MemoryRepository

	mu           sync.Mutex
	findByID     int
	findPackage  int
	scopesOpened []string
	scopesClosed []string
	closeErr     error
}

func newCountingRepository(source string, packages ...*core.Package) *countingRepository {
	return &countingRepository{MemoryRepository: NewMemoryRepository(source, packages...)}
}

func (r *countingRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	r.mu.Lock()
	r.findByID++
	r.mu.Unlock()
	return r.MemoryRepository.FindPackagesByID(ctx, id)
}

func (r *countingRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	r.mu.Lock()
	r.findPackage++
	r.mu.Unlock()
	return r.MemoryRepository.FindPackage(ctx, id, ver)
}

func (r *countingRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopesOpened = append(r.scopesOpened, operation+":"+mainPackageID)
	return scopeFunc(func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.scopesClosed = append(r.scopesClosed, r.Source())
		return r.closeErr
	})
}

type scopeFunc func() error

func (f scopeFunc) Close() error { return f() }

// duplicatingRepository reports a fixed list, duplicates included, for
// every id lookup.
type duplicatingRepository struct {
	*MemoryRepository
	packages []*core.Package
}

func (r *duplicatingRepository) FindPackagesByID(context.Context, string) ([]*core.Package, error) {
	return r.packages, nil
}

var errBroken = errors.New("feed unavailable")

// brokenRepository fails every read.
type brokenRepository struct{ *MemoryRepository }

func newBrokenRepository() *brokenRepository {
	return &brokenRepository{MemoryRepository: NewMemoryRepository("broken")}
}

func (r *brokenRepository) GetPackages(context.Context) ([]*core.Package, error) {
	return nil, errBroken
}

func (r *brokenRepository) FindPackage(context.Context, string, *version.NuGetVersion) (*core.Package, error) {
	return nil, errBroken
}

func (r *brokenRepository) FindPackagesByID(context.Context, string) ([]*core.Package, error) {
	return nil, errBroken
}

func (r *brokenRepository) Exists(context.Context, string, *version.NuGetVersion) (bool, error) {
	return false, errBroken
}
