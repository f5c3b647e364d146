package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
)

// walker turns a package request into an ordered operation plan against a
// repository of installed packages. Dependencies are resolved from source.
type walker struct {
	installed          core.Repository
	source             core.Repository
	ignoreDependencies bool
	allowPrerelease    bool
	logger             observability.Logger

	// sideBySide keeps other installed versions of a package in place.
	sideBySide bool
}

// installPlan lists the operations that install pkg: dependencies first,
// packages already present skipped, and a different installed version of
// any package replaced by an uninstall followed by an install.
func (w *walker) installPlan(ctx context.Context, pkg *core.Package) ([]core.PackageOperation, error) {
	var ops []core.PackageOperation
	planned := make(map[string]*core.Package)
	visiting := make(map[string]bool)

	var visit func(p *core.Package) error
	visit = func(p *core.Package) error {
		id := strings.ToLower(p.ID())
		if _, ok := planned[id]; ok {
			return nil
		}
		if visiting[id] {
			return fmt.Errorf("%w: circular dependency detected on %s", core.ErrInvalidOperation, p.ID())
		}
		visiting[id] = true
		defer delete(visiting, id)

		if !w.ignoreDependencies {
			for _, dep := range p.Dependencies {
				if err := ctx.Err(); err != nil {
					return err
				}
				ok, err := w.satisfied(ctx, dep, planned)
				if err != nil {
					return err
				}
				if ok {
					continue
				}
				resolved, err := core.ResolveDependency(ctx, w.source, dep, w.allowPrerelease)
				if err != nil {
					if core.IsNotFound(err) {
						return fmt.Errorf("unable to resolve dependency '%s' of %s: %w", dep, p, err)
					}
					return err
				}
				if err := visit(resolved); err != nil {
					return err
				}
			}
		}

		present, err := w.installed.Exists(ctx, p.ID(), p.Version())
		if err != nil {
			return err
		}
		planned[id] = p
		if present {
			w.logger.Debug("{PackageID}@{Version} is already installed", p.ID(), p.Version().String())
			return nil
		}

		if !w.sideBySide {
			others, err := w.installed.FindPackagesByID(ctx, p.ID())
			if err != nil {
				return err
			}
			for _, old := range others {
				ops = append(ops, core.UninstallOperation(old))
			}
		}
		ops = append(ops, core.InstallOperation(p))
		return nil
	}

	if err := visit(pkg); err != nil {
		return nil, err
	}
	return ops, nil
}

// satisfied reports whether an installed or already planned package meets dep.
func (w *walker) satisfied(ctx context.Context, dep core.PackageDependency, planned map[string]*core.Package) (bool, error) {
	if p, ok := planned[strings.ToLower(dep.ID)]; ok {
		return dep.VersionRange.Satisfies(p.Version()), nil
	}
	installed, err := w.installed.FindPackagesByID(ctx, dep.ID)
	if err != nil {
		return false, err
	}
	for _, p := range installed {
		if dep.VersionRange.Satisfies(p.Version()) {
			return true, nil
		}
	}
	return false, nil
}

// uninstallPlan lists the operations that remove pkg, dependents before
// dependencies. Installed packages that still depend on pkg block the plan
// unless force is set. With removeDependencies, dependencies that nothing
// else needs are removed too.
func (w *walker) uninstallPlan(ctx context.Context, pkg *core.Package, force, removeDependencies bool) ([]core.PackageOperation, error) {
	installed, err := w.installed.GetPackages(ctx)
	if err != nil {
		return nil, err
	}

	removing := map[string]bool{pkg.Identity.Key(): true}
	order := []*core.Package{pkg}
	if removeDependencies {
		order = w.collectDependencies(pkg, installed, removing, order)
	}

	if dependents := dependentsOf(pkg, installed, removing); len(dependents) > 0 && !force {
		return nil, &core.DependentsError{Package: pkg, Dependents: dependents}
	}

	// Dependencies still needed by a package that stays are kept. Dropping
	// one can make another needed again, so repeat until stable.
	for changed := true; changed; {
		changed = false
		for _, dep := range order[1:] {
			if !removing[dep.Identity.Key()] {
				continue
			}
			if len(dependentsOf(dep, installed, removing)) > 0 {
				delete(removing, dep.Identity.Key())
				changed = true
			}
		}
	}

	ops := make([]core.PackageOperation, 0, len(order))
	for _, p := range order {
		if removing[p.Identity.Key()] {
			ops = append(ops, core.UninstallOperation(p))
		}
	}
	return ops, nil
}

func (w *walker) collectDependencies(pkg *core.Package, installed []*core.Package, removing map[string]bool, order []*core.Package) []*core.Package {
	for _, dep := range pkg.Dependencies {
		for _, candidate := range installed {
			if !strings.EqualFold(candidate.ID(), dep.ID) || !dep.VersionRange.Satisfies(candidate.Version()) {
				continue
			}
			if removing[candidate.Identity.Key()] {
				continue
			}
			removing[candidate.Identity.Key()] = true
			order = append(order, candidate)
			order = w.collectDependencies(candidate, installed, removing, order)
		}
	}
	return order
}

// dependentsOf returns the installed packages outside removing whose
// dependencies pkg satisfies.
func dependentsOf(pkg *core.Package, installed []*core.Package, removing map[string]bool) []*core.Package {
	var dependents []*core.Package
	for _, p := range installed {
		if removing[p.Identity.Key()] {
			continue
		}
		for _, dep := range p.Dependencies {
			if strings.EqualFold(dep.ID, pkg.ID()) && dep.VersionRange.Satisfies(pkg.Version()) {
				dependents = append(dependents, p)
				break
			}
		}
	}
	return dependents
}

// updatePlan replaces old with target: old is uninstalled before target and
// its dependencies are installed. Dependents of old are not checked.
func (w *walker) updatePlan(ctx context.Context, old, target *core.Package) ([]core.PackageOperation, error) {
	install, err := w.installPlan(ctx, target)
	if err != nil {
		return nil, err
	}

	ops := []core.PackageOperation{core.UninstallOperation(old)}
	for _, op := range install {
		if op.Action == core.ActionUninstall && core.SameIdentity(op.Package, old) {
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}
