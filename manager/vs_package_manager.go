package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/solution"
	"github.com/willibrandon/gonuget-vs/version"
)

// RecentPackageSink records packages the user installed.
type RecentPackageSink interface {
	AddRecentPackage(pkg *core.Package)
}

// ProjectSystemFactory opens the project system of a project.
type ProjectSystemFactory func(p project.Project) (ProjectSystem, error)

// FileProjectSystems opens projects from disk.
func FileProjectSystems(p project.Project) (ProjectSystem, error) {
	return solution.NewFileProjectSystem(p)
}

// Config holds the optional collaborators of a VsPackageManager.
type Config struct {
	Events         *Events
	Recent         RecentPackageSink
	ProjectSystems ProjectSystemFactory

	// MachineCache is consulted before the source when restoring.
	MachineCache core.Repository
}

// Option configures a VsPackageManager.
type Option func(*Config)

// WithEvents shares an event registry with the manager.
func WithEvents(events *Events) Option {
	return func(c *Config) { c.Events = events }
}

// WithRecentPackages records every installed package in sink.
func WithRecentPackages(sink RecentPackageSink) Option {
	return func(c *Config) { c.Recent = sink }
}

// WithProjectSystemFactory sets how projects are opened.
func WithProjectSystemFactory(f ProjectSystemFactory) Option {
	return func(c *Config) { c.ProjectSystems = f }
}

// WithMachineCache sets the repository restore checks before the source.
func WithMachineCache(cache core.Repository) Option {
	return func(c *Config) { c.MachineCache = cache }
}

// VsPackageManager installs, uninstalls and updates packages in projects of
// a solution. Packages live once in the shared repository and are
// referenced by every project that uses them.
//
// Installs are not transactional: a package materialized into the shared
// repository stays there when adding the project reference fails, until it
// is explicitly uninstalled.
type VsPackageManager struct {
	source   core.Repository
	shared   *repository.SharedRepository
	packages *PackageManager
	config   Config
}

// NewVsPackageManager creates a manager that installs from source into
// shared.
func NewVsPackageManager(source core.Repository, shared *repository.SharedRepository, opts ...Option) *VsPackageManager {
	cfg := Config{ProjectSystems: FileProjectSystems}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Events == nil {
		cfg.Events = &Events{}
	}
	return &VsPackageManager{
		source:   source,
		shared:   shared,
		packages: NewPackageManager(source, shared, cfg.Events),
		config:   cfg,
	}
}

// Events returns the registry notified of every package operation.
func (m *VsPackageManager) Events() *Events { return m.config.Events }

// SourceRepository returns the repository packages are installed from.
func (m *VsPackageManager) SourceRepository() core.Repository { return m.source }

// LocalRepository returns the shared repository.
func (m *VsPackageManager) LocalRepository() *repository.SharedRepository { return m.shared }

// GetProjectManager opens p and binds it to the shared repository.
func (m *VsPackageManager) GetProjectManager(p project.Project) (*ProjectManager, error) {
	ps, err := m.config.ProjectSystems(p)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", p.UniqueName(), err)
	}
	return m.ProjectManagerFor(ps), nil
}

// ProjectManagerFor binds an open project system to the shared repository.
func (m *VsPackageManager) ProjectManagerFor(ps ProjectSystem) *ProjectManager {
	return NewProjectManager(ps, m.shared, m.source, m.config.Events)
}

// begin brackets one public operation with an operation scope on the
// source, a span and the operation metrics. The returned func ends them
// and passes err through.
func (m *VsPackageManager) begin(ctx context.Context, operation, id string, ver *version.NuGetVersion, pm *ProjectManager, logger observability.Logger) (context.Context, func(error) error) {
	scope := m.source.StartOperation(operation, id)
	operationID := uuid.NewString()

	verText, projectName := "", ""
	if ver != nil {
		verText = ver.String()
	}
	if pm != nil {
		projectName = pm.project.ProjectName()
	}
	ctx, span := observability.StartPackageOperationSpan(ctx, operation, operationID, id, verText, projectName)
	timer := observability.StartOperationTimer(operation)
	logger.Debug("{Operation} {PackageID} started ({OperationID})", operation, id, operationID)

	return ctx, func(err error) error {
		if closeErr := scope.Close(); closeErr != nil {
			logger.Warn("Failed to close {Operation} scope on {Source}: {Error}", operation, m.source.Source(), closeErr)
		}
		observability.EndSpanWithError(span, err)
		timer.Stop(observability.ResultOf(err))
		return err
	}
}

func (m *VsPackageManager) addRecent(pkg *core.Package) {
	if m.config.Recent != nil {
		m.config.Recent.AddRecentPackage(pkg)
	}
}

// InstallPackage installs id at ver into the project managed by pm, or at
// solution level when pm is nil or the package has no project content. A
// nil ver installs the latest version.
func (m *VsPackageManager) InstallPackage(ctx context.Context, pm *ProjectManager, id string, ver *version.NuGetVersion, ignoreDependencies, allowPrerelease bool, logger observability.Logger) error {
	return m.installPackage(ctx, pm, id, ver, ReferenceOptions{
		IgnoreDependencies: ignoreDependencies,
		AllowPrerelease:    allowPrerelease,
	}, logger)
}

func (m *VsPackageManager) installPackage(ctx context.Context, pm *ProjectManager, id string, ver *version.NuGetVersion, opts ReferenceOptions, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	ctx, finish := m.begin(ctx, core.OperationInstall, id, ver, pm, logger)

	pkg, err := core.FindPackage(ctx, m.source, id, ver, opts.AllowPrerelease)
	if err != nil {
		return finish(err)
	}
	return finish(m.install(ctx, pm, pkg, nil, opts, logger))
}

// InstallPackageWithOperations applies ops to the shared repository in
// order and then references pkg in the project managed by pm.
func (m *VsPackageManager) InstallPackageWithOperations(ctx context.Context, pm *ProjectManager, pkg *core.Package, ops []core.PackageOperation, ignoreDependencies, allowPrerelease bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	ctx, finish := m.begin(ctx, core.OperationInstall, pkg.ID(), pkg.Version(), pm, logger)
	return finish(m.install(ctx, pm, pkg, ops, ReferenceOptions{
		IgnoreDependencies: ignoreDependencies,
		AllowPrerelease:    allowPrerelease,
	}, logger))
}

// install materializes pkg (by ops when given) and references it.
func (m *VsPackageManager) install(ctx context.Context, pm *ProjectManager, pkg *core.Package, ops []core.PackageOperation, opts ReferenceOptions, logger observability.Logger) error {
	if ops != nil {
		if err := m.packages.Execute(ctx, ops, logger); err != nil {
			return err
		}
	}

	if pm == nil || !core.IsProjectLevel(pkg) {
		if ops == nil {
			if err := m.packages.InstallPackage(ctx, pkg, opts.IgnoreDependencies, opts.AllowPrerelease, logger); err != nil {
				return err
			}
		}
		if pm != nil {
			logger.Info("'{PackageID} {Version}' has no project content and was installed at solution level.", pkg.ID(), pkg.Version().String())
		}
		m.addRecent(pkg)
		return nil
	}

	if err := m.reference(ctx, pm, pkg, opts, logger); err != nil {
		return err
	}
	m.addRecent(pkg)
	return nil
}

// reference plans pkg into the project, materializes every package the
// plan installs, applies the plan and removes replaced packages from the
// shared repository once nothing references them.
func (m *VsPackageManager) reference(ctx context.Context, pm *ProjectManager, pkg *core.Package, opts ReferenceOptions, logger observability.Logger) error {
	ops, err := pm.PlanInstall(ctx, pkg, opts.IgnoreDependencies, opts.AllowPrerelease, logger)
	if err != nil {
		return err
	}
	return m.apply(ctx, pm, ops, opts.SkipAssemblyReferences, logger)
}

func (m *VsPackageManager) apply(ctx context.Context, pm *ProjectManager, ops []core.PackageOperation, skipAssemblyReferences bool, logger observability.Logger) error {
	if err := m.packages.Execute(ctx, installsOf(ops), logger); err != nil {
		return err
	}
	removed, err := pm.Execute(ctx, ops, skipAssemblyReferences, logger)
	return errors.Join(err, m.removeUnreferenced(ctx, removed, logger))
}

func (m *VsPackageManager) removeUnreferenced(ctx context.Context, packages []*core.Package, logger observability.Logger) error {
	var errs []error
	for _, pkg := range packages {
		if err := m.packages.RemoveUnreferenced(ctx, pkg, logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func installsOf(ops []core.PackageOperation) []core.PackageOperation {
	var installs []core.PackageOperation
	for _, op := range ops {
		if op.Action == core.ActionInstall {
			installs = append(installs, op)
		}
	}
	return installs
}

// PackageOperationEventListener observes InstallPackageToProjects.
type PackageOperationEventListener interface {
	OnBeforeAddPackageReference(p project.Project)
	OnAfterAddPackageReference(p project.Project)
	OnAddPackageReferenceError(p project.Project, err error)
}

type nopListener struct{}

func (nopListener) OnBeforeAddPackageReference(project.Project)       {}
func (nopListener) OnAfterAddPackageReference(project.Project)        {}
func (nopListener) OnAddPackageReferenceError(project.Project, error) {}

// InstallPackageToProjects applies ops to the shared repository once and
// references pkg in every project. A failing project is reported to
// listener and the remaining projects are still processed.
func (m *VsPackageManager) InstallPackageToProjects(ctx context.Context, projects []project.Project, pkg *core.Package, ops []core.PackageOperation, ignoreDependencies, allowPrerelease bool, logger observability.Logger, listener PackageOperationEventListener) error {
	logger = observability.OrNull(logger)
	if listener == nil {
		listener = nopListener{}
	}
	ctx, finish := m.begin(ctx, core.OperationInstall, pkg.ID(), pkg.Version(), nil, logger)

	if ops == nil {
		ops = []core.PackageOperation{core.InstallOperation(pkg)}
	}
	if err := m.packages.Execute(ctx, ops, logger); err != nil {
		return finish(err)
	}
	if !core.IsProjectLevel(pkg) {
		m.addRecent(pkg)
		return finish(nil)
	}

	opts := ReferenceOptions{IgnoreDependencies: ignoreDependencies, AllowPrerelease: allowPrerelease}
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		listener.OnBeforeAddPackageReference(p)
		pm, err := m.GetProjectManager(p)
		if err == nil {
			err = m.reference(ctx, pm, pkg, opts, logger)
		}
		if err != nil {
			logger.Error("Failed to add '{PackageID} {Version}' to {Project}: {Error}", pkg.ID(), pkg.Version().String(), p.Name(), err)
			listener.OnAddPackageReferenceError(p, err)
			continue
		}
		listener.OnAfterAddPackageReference(p)
	}
	m.addRecent(pkg)
	return finish(nil)
}

// UninstallPackage removes id from the project managed by pm. The package
// applies to the project when the project references it. A project-level
// package that only other projects reference is an
// UnknownPackageInProjectError; anything else, or any package when pm is
// nil, is uninstalled at solution level. A nil ver requires a single
// installed version.
func (m *VsPackageManager) UninstallPackage(ctx context.Context, pm *ProjectManager, id string, ver *version.NuGetVersion, force, removeDependencies bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	ctx, finish := m.begin(ctx, core.OperationUninstall, id, ver, pm, logger)

	pkg, appliesToProject, err := m.findInstalled(ctx, pm, id, ver)
	if err != nil {
		return finish(err)
	}

	if appliesToProject {
		removed, err := pm.RemovePackageReference(ctx, pkg, force, removeDependencies, logger)
		return finish(errors.Join(err, m.removeUnreferenced(ctx, removed, logger)))
	}

	if m.shared.IsReferenced(pkg.ID(), pkg.Version()) {
		logger.Warn("'{PackageID} {Version}' is referenced by a project and was not removed from the solution.", pkg.ID(), pkg.Version().String())
		return finish(nil)
	}
	return finish(m.packages.UninstallPackage(ctx, pkg, force, removeDependencies, logger))
}

// findInstalled locates id in the project, then in the shared repository.
func (m *VsPackageManager) findInstalled(ctx context.Context, pm *ProjectManager, id string, ver *version.NuGetVersion) (*core.Package, bool, error) {
	projectName := ""
	if pm != nil {
		projectName = pm.project.ProjectName()
		candidates, err := pm.local.FindPackagesByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		pkg, err := pickInstalled(candidates, id, ver, projectName)
		if err != nil && !core.IsNotFound(err) {
			return nil, false, err
		}
		if pkg != nil {
			return pkg, true, nil
		}
	}

	candidates, err := m.shared.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	pkg, err := pickInstalled(candidates, id, ver, "")
	if err != nil {
		if core.IsNotFound(err) {
			return nil, false, &core.UnknownPackageError{ID: id, Version: ver, Source: m.shared.Root()}
		}
		return nil, false, err
	}

	if pm != nil && core.IsProjectLevel(pkg) && m.shared.IsReferenced(pkg.ID(), pkg.Version()) {
		return nil, false, &core.UnknownPackageInProjectError{ID: id, Version: ver, Project: projectName}
	}
	return pkg, false, nil
}

func pickInstalled(candidates []*core.Package, id string, ver *version.NuGetVersion, projectName string) (*core.Package, error) {
	var matches []*core.Package
	for _, pkg := range candidates {
		if ver == nil || pkg.Version().Equals(ver) {
			matches = append(matches, pkg)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &core.UnknownPackageError{ID: id, Version: ver}
	case 1:
		return matches[0], nil
	}
	versions := make([]*version.NuGetVersion, len(matches))
	for i, pkg := range matches {
		versions[i] = pkg.Version()
	}
	return nil, &core.AmbiguousMatchError{ID: id, Versions: versions, Project: projectName}
}

// UpdatePackage moves id in the project managed by pm to ver, or to the
// latest version when ver is nil. Packages whose references the update
// removes are dropped from the shared repository once unreferenced. With
// pm nil the solution-level package is updated.
func (m *VsPackageManager) UpdatePackage(ctx context.Context, pm *ProjectManager, id string, ver *version.NuGetVersion, updateDependencies, allowPrerelease bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	ctx, finish := m.begin(ctx, core.OperationUpdate, id, ver, pm, logger)

	old, err := m.findUpdateCandidate(ctx, pm, id)
	if err != nil {
		return finish(err)
	}
	target, err := core.FindPackage(ctx, m.source, id, ver, allowPrerelease)
	if err != nil {
		return finish(err)
	}
	return finish(m.update(ctx, pm, old, target, ver == nil, updateDependencies, allowPrerelease, logger))
}

func (m *VsPackageManager) findUpdateCandidate(ctx context.Context, pm *ProjectManager, id string) (*core.Package, error) {
	if pm == nil {
		candidates, err := m.shared.FindPackagesByID(ctx, id)
		if err != nil {
			return nil, err
		}
		var latest *core.Package
		for _, pkg := range candidates {
			if latest == nil || pkg.Version().GreaterThan(latest.Version()) {
				latest = pkg
			}
		}
		if latest == nil {
			return nil, &core.UnknownPackageError{ID: id, Source: m.shared.Root()}
		}
		return latest, nil
	}

	candidates, err := pm.local.FindPackagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &core.UnknownPackageInProjectError{ID: id, Project: pm.project.ProjectName()}
	}
	return pickInstalled(candidates, id, nil, pm.project.ProjectName())
}

// update replaces old with target. When onlyNewer is set a target that is
// not newer than old is not an update.
func (m *VsPackageManager) update(ctx context.Context, pm *ProjectManager, old, target *core.Package, onlyNewer, updateDependencies, allowPrerelease bool, logger observability.Logger) error {
	if old.Version().Equals(target.Version()) || (onlyNewer && !target.Version().GreaterThan(old.Version())) {
		where := "the solution"
		if pm != nil {
			where = "project '" + pm.project.ProjectName() + "'"
		}
		logger.Info("No updates available for '{PackageID}' in {Target}.", old.ID(), where)
		return nil
	}
	logger.Info("Updating '{PackageID}' from version '{OldVersion}' to '{NewVersion}'.", old.ID(), old.Version().String(), target.Version().String())

	if pm == nil || !core.IsProjectLevel(target) {
		if err := m.packages.InstallPackage(ctx, target, !updateDependencies, allowPrerelease, logger); err != nil {
			return err
		}
		if err := m.packages.RemoveUnreferenced(ctx, old, logger); err != nil {
			return err
		}
		m.addRecent(target)
		return nil
	}

	ops, err := pm.PlanUpdate(ctx, old, target, updateDependencies, allowPrerelease, logger)
	if err != nil {
		return err
	}
	if err := m.apply(ctx, pm, ops, false, logger); err != nil {
		return err
	}
	m.addRecent(target)
	return nil
}

// UpdatePackages updates every package the project references. With safe
// set a package only moves within its current major.minor line.
func (m *VsPackageManager) UpdatePackages(ctx context.Context, pm *ProjectManager, updateDependencies, safe, allowPrerelease bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	installed, err := pm.local.GetPackages(ctx)
	if err != nil {
		return err
	}

	for _, old := range installed {
		if err := ctx.Err(); err != nil {
			return err
		}
		var r *version.Range
		if safe {
			r = version.SafeRange(old.Version())
		}
		target, err := core.FindBest(ctx, m.source, old.ID(), r, allowPrerelease || old.Version().IsPrerelease())
		if core.IsNotFound(err) {
			logger.Warn("'{PackageID}' was not found in {Source}", old.ID(), m.source.Source())
			continue
		}
		if err != nil {
			return err
		}
		if !target.Version().GreaterThan(old.Version()) {
			continue
		}

		// A previous update may already have moved this package as a
		// dependency.
		current, err := pm.local.FindPackagesByID(ctx, old.ID())
		if err != nil {
			return err
		}
		if len(current) != 1 || !current[0].Version().Equals(old.Version()) {
			continue
		}

		opCtx, finish := m.begin(ctx, core.OperationUpdate, old.ID(), target.Version(), pm, logger)
		if err := finish(m.update(opCtx, pm, old, target, true, updateDependencies, allowPrerelease, logger)); err != nil {
			return err
		}
	}
	return nil
}

// RestorePackages materializes every package listed in the project's
// packages.config, or in the solution-level packages.config when pm is
// nil, that is missing from the shared repository. The machine cache, if
// configured, is tried before the source. Failures are collected into a
// BatchPackageError.
func (m *VsPackageManager) RestorePackages(ctx context.Context, pm *ProjectManager, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	ctx, finish := m.begin(ctx, core.OperationRestore, "", nil, pm, logger)

	missing, err := m.missingReferences(ctx, pm)
	if err != nil {
		return finish(err)
	}
	if len(missing) == 0 {
		logger.Debug("All packages are already restored")
		return finish(nil)
	}

	source := m.source
	if m.config.MachineCache != nil {
		source = repository.NewPackageRestoreRepository(m.config.MachineCache, m.source)
	}

	batch := &core.BatchPackageError{RepositoryPath: m.shared.Root()}
	for _, ref := range missing {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		ver, err := ref.ParsedVersion()
		if err == nil {
			err = m.restoreOne(ctx, source, ref.ID, ver, logger)
		}
		if err != nil {
			logger.Warn("Failed to restore {PackageID}@{Version}: {Error}", ref.ID, ref.Version, err)
			batch.Failures = append(batch.Failures, core.PackageFailure{ID: ref.ID, Version: ver, Err: err})
		}
	}
	if len(batch.Failures) > 0 {
		return finish(batch)
	}
	return finish(nil)
}

func (m *VsPackageManager) missingReferences(ctx context.Context, pm *ProjectManager) ([]repository.PackageReference, error) {
	if pm != nil {
		return pm.local.MissingReferences(ctx)
	}
	refs, err := m.shared.SolutionReferences()
	if err != nil {
		return nil, err
	}
	var missing []repository.PackageReference
	for _, ref := range refs {
		ver, err := ref.ParsedVersion()
		if err != nil {
			continue
		}
		ok, err := m.shared.Exists(ctx, ref.ID, ver)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, ref)
		}
	}
	return missing, nil
}

func (m *VsPackageManager) restoreOne(ctx context.Context, source core.Repository, id string, ver *version.NuGetVersion, logger observability.Logger) error {
	pkg, err := core.FindPackage(ctx, source, id, ver, true)
	if err != nil {
		return err
	}
	if err := m.packages.Execute(ctx, []core.PackageOperation{core.InstallOperation(pkg)}, logger); err != nil {
		return err
	}
	if cache := m.config.MachineCache; cache != nil {
		if err := cache.AddPackage(ctx, pkg); err != nil {
			logger.Warn("Failed to add {PackageID}@{Version} to the machine cache: {Error}", id, ver.String(), err)
		}
	}
	return nil
}
