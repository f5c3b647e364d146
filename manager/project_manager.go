package manager

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/frameworks"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/packaging"
	"github.com/willibrandon/gonuget-vs/repository"
)

// ReferenceOptions controls how a package is added to a project.
type ReferenceOptions struct {
	IgnoreDependencies     bool
	AllowPrerelease        bool
	SkipAssemblyReferences bool
}

// ProjectManager adds packages that are already in the shared repository
// to one project and removes them again.
type ProjectManager struct {
	project ProjectSystem
	local   *repository.PackageReferenceRepository
	shared  *repository.SharedRepository

	// source resolves packages from the shared repository and dependencies
	// from the shared repository or the package source.
	source *repository.FallbackRepository
	events *Events
}

// NewProjectManager binds the project's packages.config to shared.
// Dependencies missing from shared are resolved from source. events may be
// nil.
func NewProjectManager(ps ProjectSystem, shared *repository.SharedRepository, source core.Repository, events *Events) *ProjectManager {
	if events == nil {
		events = &Events{}
	}
	return &ProjectManager{
		project: ps,
		local:   repository.NewProjectRepository(ps.Root(), shared, ps.TargetFramework(), nil),
		shared:  shared,
		source:  repository.NewFallbackRepository(shared, repository.NewAggregateRepository(shared, source)),
		events:  events,
	}
}

// Project returns the project system.
func (pm *ProjectManager) Project() ProjectSystem { return pm.project }

// LocalRepository returns the packages the project references.
func (pm *ProjectManager) LocalRepository() *repository.PackageReferenceRepository { return pm.local }

// SourceRepository returns the repository references are resolved from.
func (pm *ProjectManager) SourceRepository() core.Repository { return pm.source }

func (pm *ProjectManager) walker(ignoreDependencies, allowPrerelease bool, logger observability.Logger) *walker {
	return &walker{
		installed:          pm.local,
		source:             pm.source,
		ignoreDependencies: ignoreDependencies,
		allowPrerelease:    allowPrerelease,
		logger:             logger,
	}
}

// PlanInstall returns the operations that reference pkg in the project.
func (pm *ProjectManager) PlanInstall(ctx context.Context, pkg *core.Package, ignoreDependencies, allowPrerelease bool, logger observability.Logger) ([]core.PackageOperation, error) {
	return pm.walker(ignoreDependencies, allowPrerelease, observability.OrNull(logger)).installPlan(ctx, pkg)
}

// PlanUninstall returns the operations that remove pkg from the project.
func (pm *ProjectManager) PlanUninstall(ctx context.Context, pkg *core.Package, force, removeDependencies bool, logger observability.Logger) ([]core.PackageOperation, error) {
	listed, err := pm.local.Exists(ctx, pkg.ID(), pkg.Version())
	if err != nil {
		return nil, err
	}
	if !listed {
		return nil, &core.UnknownPackageInProjectError{ID: pkg.ID(), Version: pkg.Version(), Project: pm.project.ProjectName()}
	}
	return pm.walker(false, false, observability.OrNull(logger)).uninstallPlan(ctx, pkg, force, removeDependencies)
}

// PlanUpdate returns the operations that replace old with target. Every
// package that depends on old must accept target.
func (pm *ProjectManager) PlanUpdate(ctx context.Context, old, target *core.Package, updateDependencies, allowPrerelease bool, logger observability.Logger) ([]core.PackageOperation, error) {
	installed, err := pm.local.GetPackages(ctx)
	if err != nil {
		return nil, err
	}
	for _, dependent := range dependentsOf(old, installed, map[string]bool{old.Identity.Key(): true}) {
		for _, dep := range dependent.Dependencies {
			if strings.EqualFold(dep.ID, target.ID()) && !dep.VersionRange.Satisfies(target.Version()) {
				return nil, fmt.Errorf("%w: updating '%s' to '%s' failed, '%s' requires '%s'",
					core.ErrInvalidOperation, old, target, dependent, dep)
			}
		}
	}
	return pm.walker(!updateDependencies, allowPrerelease, observability.OrNull(logger)).updatePlan(ctx, old, target)
}

// AddPackageReference references pkg and its dependencies. The packages
// must already be in the shared repository. It returns the packages whose
// references were removed to make room for other versions.
func (pm *ProjectManager) AddPackageReference(ctx context.Context, pkg *core.Package, opts ReferenceOptions, logger observability.Logger) ([]*core.Package, error) {
	ops, err := pm.PlanInstall(ctx, pkg, opts.IgnoreDependencies, opts.AllowPrerelease, logger)
	if err != nil {
		return nil, err
	}
	return pm.Execute(ctx, ops, opts.SkipAssemblyReferences, logger)
}

// RemovePackageReference removes pkg, and with removeDependencies its
// orphaned dependencies, from the project. It returns what was removed.
func (pm *ProjectManager) RemovePackageReference(ctx context.Context, pkg *core.Package, force, removeDependencies bool, logger observability.Logger) ([]*core.Package, error) {
	ops, err := pm.PlanUninstall(ctx, pkg, force, removeDependencies, logger)
	if err != nil {
		return nil, err
	}
	return pm.Execute(ctx, ops, false, logger)
}

// UpdatePackageReference replaces old with target and returns every
// package whose reference was removed, old included.
func (pm *ProjectManager) UpdatePackageReference(ctx context.Context, old, target *core.Package, opts ReferenceOptions, logger observability.Logger) ([]*core.Package, error) {
	ops, err := pm.PlanUpdate(ctx, old, target, !opts.IgnoreDependencies, opts.AllowPrerelease, logger)
	if err != nil {
		return nil, err
	}
	return pm.Execute(ctx, ops, opts.SkipAssemblyReferences, logger)
}

// Execute applies ops to the project in order and returns the packages
// whose references were removed. It stops at the first failure; references
// changed before it stay changed.
func (pm *ProjectManager) Execute(ctx context.Context, ops []core.PackageOperation, skipAssemblyReferences bool, logger observability.Logger) ([]*core.Package, error) {
	logger = observability.OrNull(logger)
	var removed []*core.Package
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		switch op.Action {
		case core.ActionInstall:
			if err := pm.addReference(ctx, op.Package, skipAssemblyReferences, logger); err != nil {
				return removed, err
			}
		case core.ActionUninstall:
			if err := pm.removeReference(ctx, op.Package, logger); err != nil {
				return removed, err
			}
			removed = append(removed, op.Package)
		}
	}
	return removed, nil
}

func (pm *ProjectManager) addReference(ctx context.Context, pkg *core.Package, skipAssemblyReferences bool, logger observability.Logger) error {
	installed, err := pm.shared.FindPackage(ctx, pkg.ID(), pkg.Version())
	if err != nil {
		return fmt.Errorf("reference %s in %s: %w", pkg, pm.project.ProjectName(), err)
	}

	assemblies := frameworks.SelectAssemblies(installed.AssemblyReferences, targetFramework(pm.project))
	if len(installed.AssemblyReferences) > 0 && len(assemblies) == 0 &&
		len(installed.ContentFiles) == 0 && len(installed.FrameworkAssemblies) == 0 {
		return fmt.Errorf("%w: could not install package '%s'. The package does not contain any assembly references or content files compatible with '%s'",
			core.ErrInvalidOperation, installed, pm.project.TargetFramework())
	}

	installPath := pm.shared.InstallPath(installed)
	e := PackageEvent{Type: ReferenceAdding, Package: installed, InstallPath: installPath, Project: pm.project}
	pm.events.raise(ctx, logger, e)

	if !skipAssemblyReferences {
		for _, asm := range assemblies {
			if err := pm.project.AddReference(filepath.Join(installPath, filepath.FromSlash(asm))); err != nil {
				return fmt.Errorf("reference %s: %w", asm, err)
			}
			logger.Debug("Added reference '{Assembly}' to project '{Project}'", path.Base(asm), pm.project.ProjectName())
		}
	}
	for _, name := range installed.FrameworkAssemblies {
		if err := pm.project.AddFrameworkReference(name); err != nil {
			return fmt.Errorf("framework reference %s: %w", name, err)
		}
	}
	for _, file := range installed.ContentFiles {
		if err := pm.addContent(installed, file); err != nil {
			return err
		}
	}

	if err := pm.local.AddPackage(ctx, installed); err != nil {
		return err
	}
	logger.Info("Successfully added '{PackageID} {Version}' to {Project}.", installed.ID(), installed.Version().String(), pm.project.ProjectName())

	e.Type = ReferenceAdded
	pm.events.raise(ctx, logger, e)
	return nil
}

func (pm *ProjectManager) addContent(pkg *core.Package, file string) error {
	r, err := packaging.OpenFile(pkg, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	defer func() { _ = r.Close() }()

	if err := pm.project.AddFile(packaging.ContentTarget(file), r); err != nil {
		return fmt.Errorf("add %s: %w", file, err)
	}
	return nil
}

// removeReference removes what pkg added to the project. Assemblies and
// content files that another referenced package also ships stay.
func (pm *ProjectManager) removeReference(ctx context.Context, pkg *core.Package, logger observability.Logger) error {
	remaining, err := pm.local.GetPackages(ctx)
	if err != nil {
		return err
	}
	keepAssemblies := make(map[string]bool)
	keepContent := make(map[string]bool)
	fw := targetFramework(pm.project)
	for _, other := range remaining {
		if core.SameIdentity(other, pkg) {
			continue
		}
		for _, asm := range frameworks.SelectAssemblies(other.AssemblyReferences, fw) {
			keepAssemblies[strings.ToLower(path.Base(asm))] = true
		}
		for _, file := range other.ContentFiles {
			keepContent[strings.ToLower(packaging.ContentTarget(file))] = true
		}
	}

	e := PackageEvent{Type: ReferenceRemoving, Package: pkg, InstallPath: pm.shared.InstallPath(pkg), Project: pm.project}
	pm.events.raise(ctx, logger, e)

	for _, asm := range frameworks.SelectAssemblies(pkg.AssemblyReferences, fw) {
		name := path.Base(asm)
		if keepAssemblies[strings.ToLower(name)] || !pm.project.ReferenceExists(name) {
			continue
		}
		if err := pm.project.RemoveReference(name); err != nil {
			return fmt.Errorf("remove reference %s: %w", name, err)
		}
		logger.Debug("Removed reference '{Assembly}' from project '{Project}'", name, pm.project.ProjectName())
	}
	for _, file := range pkg.ContentFiles {
		target := packaging.ContentTarget(file)
		if keepContent[strings.ToLower(target)] || !pm.project.FileExists(target) {
			continue
		}
		if err := pm.project.DeleteFile(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
	}

	if err := pm.local.RemovePackage(ctx, pkg); err != nil {
		return err
	}
	logger.Info("Successfully removed '{PackageID} {Version}' from {Project}.", pkg.ID(), pkg.Version().String(), pm.project.ProjectName())

	e.Type = ReferenceRemoved
	pm.events.raise(ctx, logger, e)
	return nil
}
