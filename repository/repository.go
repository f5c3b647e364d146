// Package repository implements the package repositories of a solution:
// on-disk package folders, the reference-counted shared repository, the
// per-project packages.config repository, and the chains that compose them
// (fallback, restore and aggregate).
package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

// ErrNotSupported is returned by repositories that cannot perform an
// operation, such as adding a package to an aggregate view.
var ErrNotSupported = errors.New("operation not supported by repository")

func notFound(id string, ver *version.NuGetVersion) error {
	if ver == nil {
		return fmt.Errorf("%w: %s", core.ErrPackageNotFound, id)
	}
	return fmt.Errorf("%w: %s %s", core.ErrPackageNotFound, id, ver)
}

// sortPackages orders packages by id (case-insensitive), then version.
func sortPackages(packages []*core.Package) {
	sort.SliceStable(packages, func(i, j int) bool {
		a, b := strings.ToLower(packages[i].ID()), strings.ToLower(packages[j].ID())
		if a != b {
			return a < b
		}
		return packages[i].Version().LessThan(packages[j].Version())
	})
}

// exists implements Repository.Exists on top of FindPackage.
func exists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, core.ErrPackageNotFound) {
		return false, nil
	}
	return false, err
}
