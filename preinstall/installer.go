// Package preinstall installs a fixed list of packages shipped alongside a
// project template into a newly created project.
//
// Packages come from a local folder rather than a feed, are installed
// without their dependencies and never replace a version the project
// already references. Failures are collected and reported once, after
// every package has been tried.
package preinstall

import (
	"context"
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/manager"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/version"
)

// Info describes one package to preinstall.
type Info struct {
	ID                     string
	Version                *version.NuGetVersion
	SkipAssemblyReferences bool
}

func (i Info) String() string {
	return i.ID + " " + i.Version.String()
}

// Configuration is one preinstall batch.
type Configuration struct {
	// RepositoryPath is the folder holding the packages.
	RepositoryPath string

	// IsPreunzipped selects the unzipped folder layout over .nupkg files.
	IsPreunzipped bool

	Packages []Info
}

// Handlers receive user facing messages. Nil handlers log instead.
type Handlers struct {
	Info    func(message string)
	Warning func(message string)
	Error   func(message string)
}

// ExpansionStateKeeper snapshots the expanded nodes of the host's
// solution tree so they can be restored after files are added to a web
// site.
type ExpansionStateKeeper interface {
	SaveExpansionStates(ctx context.Context) (restore func(), err error)
}

type nopKeeper struct{}

func (nopKeeper) SaveExpansionStates(context.Context) (func(), error) {
	return func() {}, nil
}

// Option configures an Installer.
type Option func(*Installer)

// WithProjectSystemFactory sets how projects are opened.
func WithProjectSystemFactory(f manager.ProjectSystemFactory) Option {
	return func(i *Installer) { i.projectSystems = f }
}

// WithExpansionStateKeeper sets the keeper bracketing web site fixups.
func WithExpansionStateKeeper(k ExpansionStateKeeper) Option {
	return func(i *Installer) { i.keeper = k }
}

// WithEvents shares an event registry with the package managers the
// installer creates.
func WithEvents(events *manager.Events) Option {
	return func(i *Installer) { i.events = events }
}

// Installer preinstalls packages into projects of one solution.
type Installer struct {
	shared         *repository.SharedRepository
	projectSystems manager.ProjectSystemFactory
	keeper         ExpansionStateKeeper
	events         *manager.Events
}

// NewInstaller creates an Installer over the solution's shared repository.
func NewInstaller(shared *repository.SharedRepository, opts ...Option) *Installer {
	i := &Installer{
		shared:         shared,
		projectSystems: manager.FileProjectSystems,
		keeper:         nopKeeper{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// PerformPackageInstall installs cfg.Packages into p.
//
// A package the project already references at the requested version is
// skipped; one referenced at another version is skipped with a warning.
// Per-package failures do not stop the batch: they are reported through
// h.Error in one message after the loop and are not returned. The
// returned error is reserved for failures that prevent the batch from
// running and for cancellation of ctx.
func (i *Installer) PerformPackageInstall(ctx context.Context, p project.Project, cfg Configuration, h Handlers, logger observability.Logger) (err error) {
	logger = observability.OrNull(logger)
	ctx, span := observability.StartPreinstallSpan(ctx, p.Name(), cfg.RepositoryPath, len(cfg.Packages))
	defer func() { observability.EndSpanWithError(span, err) }()
	h = h.withDefaults(logger)

	ps, err := i.projectSystems(p)
	if err != nil {
		return fmt.Errorf("open project %s: %w", p.UniqueName(), err)
	}

	installed, err := manager.NewPackageServices(i.shared, i.projectSystems).InstalledPackages(ctx, p)
	if err != nil {
		return fmt.Errorf("read installed packages of %s: %w", p.Name(), err)
	}
	current := make(map[string]*version.NuGetVersion, len(installed))
	for _, pkg := range installed {
		current[strings.ToLower(pkg.ID())] = pkg.Version()
	}

	source := repository.NewLocalRepository(cfg.RepositoryPath, !cfg.IsPreunzipped, logger)
	installer := manager.NewVsPackageInstaller(i.shared, i.managerOptions()...)

	batch := &core.BatchPackageError{RepositoryPath: cfg.RepositoryPath}
	for _, info := range cfg.Packages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if existing, ok := current[strings.ToLower(info.ID)]; ok {
			if !existing.Equals(info.Version) {
				h.Warning(fmt.Sprintf("Package '%s' version '%s' was not installed because version '%s' is already installed.",
					info.ID, info.Version, existing))
			}
			continue
		}

		logger.Debug("Preinstalling {PackageID}@{Version} into {Project}", info.ID, info.Version.String(), p.Name())
		err := installer.InstallPackage(ctx, source, p, info.ID, info.Version, true, info.SkipAssemblyReferences, logger)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("Preinstalling {PackageID}@{Version} failed: {Error}", info.ID, info.Version.String(), err)
			observability.PreinstallFailuresTotal.Inc()
			batch.Failures = append(batch.Failures, core.PackageFailure{ID: info.ID, Version: info.Version, Err: err})
			continue
		}
		current[strings.ToLower(info.ID)] = info.Version
		h.Info(fmt.Sprintf("Successfully installed '%s'.", info))
	}

	if len(batch.Failures) > 0 {
		h.Error(batch.Error())
	}

	if ps.IsWebSite() {
		return i.fixupWebsite(ctx, ps, source, cfg, h, logger)
	}
	return nil
}

func (i *Installer) managerOptions() []manager.Option {
	opts := []manager.Option{manager.WithProjectSystemFactory(i.projectSystems)}
	if i.events != nil {
		opts = append(opts, manager.WithEvents(i.events))
	}
	return opts
}

// fixupWebsite writes refresh files for the packages whose assemblies were
// not referenced and copies native binaries into bin/.
func (i *Installer) fixupWebsite(ctx context.Context, ps manager.ProjectSystem, source core.Repository, cfg Configuration, h Handlers, logger observability.Logger) error {
	restore, err := i.keeper.SaveExpansionStates(ctx)
	if err != nil {
		logger.Warn("Failed to save solution tree state: {Error}", err)
		restore = func() {}
	}
	defer restore()

	var all, refresh []*core.Package
	for _, info := range cfg.Packages {
		pkg, err := source.FindPackage(ctx, info.ID, info.Version)
		if err != nil {
			logger.Debug("Skipping web site fixups for {PackageID}@{Version}: {Error}", info.ID, info.Version.String(), err)
			continue
		}
		all = append(all, pkg)
		if info.SkipAssemblyReferences {
			refresh = append(refresh, pkg)
		}
	}

	website := manager.NewWebsiteHandler(i.shared, logger)
	if err := website.AddRefreshFiles(ps, refresh); err != nil {
		h.Error(err.Error())
	}
	if err := website.CopyNativeBinaries(ctx, ps, all); err != nil {
		h.Error(err.Error())
	}
	return nil
}

func (h Handlers) withDefaults(logger observability.Logger) Handlers {
	if h.Info == nil {
		h.Info = func(msg string) { logger.Info("{Message}", msg) }
	}
	if h.Warning == nil {
		h.Warning = func(msg string) { logger.Warn("{Message}", msg) }
	}
	if h.Error == nil {
		h.Error = func(msg string) { logger.Error("{Message}", msg) }
	}
	return h
}
