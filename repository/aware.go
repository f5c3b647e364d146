package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// InstalledResult is the outcome of an asynchronous installed-packages
// query.
type InstalledResult struct {
	Packages []*core.Package
	Err      error
}

// InstalledQuery starts an asynchronous query for a project's installed
// packages. The channel delivers one result.
type InstalledQuery func(ctx context.Context) <-chan InstalledResult

// QueryRepository runs repo.GetPackages on its own goroutine.
func QueryRepository(repo core.Repository) InstalledQuery {
	return func(ctx context.Context) <-chan InstalledResult {
		ch := make(chan InstalledResult, 1)
		go func() {
			packages, err := repo.GetPackages(ctx)
			ch <- InstalledResult{Packages: packages, Err: err}
		}()
		return ch
	}
}

// AwareProjectRepository exposes the packages a host reports as installed
// in a project through the synchronous Repository contract. Each read
// starts the query and waits for it or for ctx, whichever comes first.
// The repository is read-only.
type AwareProjectRepository struct {
	project string
	query   InstalledQuery
}

// NewAwareProjectRepository creates a repository for project backed by
// query.
func NewAwareProjectRepository(project string, query InstalledQuery) *AwareProjectRepository {
	return &AwareProjectRepository{project: project, query: query}
}

// Source returns the project name.
func (r *AwareProjectRepository) Source() string { return r.project }

func (r *AwareProjectRepository) wait(ctx context.Context) ([]*core.Package, error) {
	select {
	case res := <-r.query(ctx):
		if res.Err != nil {
			return nil, fmt.Errorf("installed packages of %s: %w", r.project, res.Err)
		}
		return res.Packages, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetPackages waits for the installed packages.
func (r *AwareProjectRepository) GetPackages(ctx context.Context) ([]*core.Package, error) {
	packages, err := r.wait(ctx)
	if err != nil {
		return nil, err
	}
	result := append([]*core.Package(nil), packages...)
	sortPackages(result)
	return result, nil
}

// FindPackage returns id at ver if installed.
func (r *AwareProjectRepository) FindPackage(ctx context.Context, id string, ver *version.NuGetVersion) (*core.Package, error) {
	packages, err := r.wait(ctx)
	if err != nil {
		return nil, err
	}
	identity := core.NewPackageIdentity(id, ver)
	for _, pkg := range packages {
		if pkg.Identity.Equals(identity) {
			return pkg, nil
		}
	}
	return nil, notFound(id, ver)
}

// FindPackagesByID returns the installed versions of id.
func (r *AwareProjectRepository) FindPackagesByID(ctx context.Context, id string) ([]*core.Package, error) {
	packages, err := r.wait(ctx)
	if err != nil {
		return nil, err
	}
	var result []*core.Package
	for _, pkg := range packages {
		if strings.EqualFold(pkg.ID(), id) {
			result = append(result, pkg)
		}
	}
	sortPackages(result)
	return result, nil
}

// Exists reports whether id at ver is installed.
func (r *AwareProjectRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	_, err := r.FindPackage(ctx, id, ver)
	if err != nil && !errors.Is(err, core.ErrPackageNotFound) {
		return false, err
	}
	return err == nil, nil
}

// AddPackage is not supported.
func (r *AwareProjectRepository) AddPackage(ctx context.Context, pkg *core.Package) error {
	return fmt.Errorf("add %s to %s: %w", pkg, r.project, ErrNotSupported)
}

// RemovePackage is not supported.
func (r *AwareProjectRepository) RemovePackage(ctx context.Context, pkg *core.Package) error {
	return fmt.Errorf("remove %s from %s: %w", pkg, r.project, ErrNotSupported)
}

// StartOperation returns a no-op scope.
func (r *AwareProjectRepository) StartOperation(operation, mainPackageID string) core.OperationScope {
	return core.NopScope{}
}
