package manager

import (
	"context"
	"fmt"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/repository"
)

// PackageManager materializes packages into the shared repository and
// removes them from it. It knows nothing about projects.
type PackageManager struct {
	source core.Repository
	shared *repository.SharedRepository
	events *Events
}

// NewPackageManager creates a PackageManager that installs from source
// into shared. events may be nil.
func NewPackageManager(source core.Repository, shared *repository.SharedRepository, events *Events) *PackageManager {
	if events == nil {
		events = &Events{}
	}
	return &PackageManager{source: source, shared: shared, events: events}
}

// SourceRepository returns the repository packages are installed from.
func (m *PackageManager) SourceRepository() core.Repository { return m.source }

// LocalRepository returns the shared repository.
func (m *PackageManager) LocalRepository() *repository.SharedRepository { return m.shared }

// InstallPackage materializes pkg and, unless ignoreDependencies, every
// dependency missing from the shared repository. Other versions already
// in the shared repository stay.
func (m *PackageManager) InstallPackage(ctx context.Context, pkg *core.Package, ignoreDependencies, allowPrerelease bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	w := &walker{
		installed:          m.shared,
		source:             m.source,
		ignoreDependencies: ignoreDependencies,
		allowPrerelease:    allowPrerelease,
		logger:             logger,
		sideBySide:         true,
	}
	ops, err := w.installPlan(ctx, pkg)
	if err != nil {
		return err
	}
	return m.Execute(ctx, ops, logger)
}

// UninstallPackage removes pkg, and with removeDependencies its orphaned
// dependencies, from the shared repository. Packages that a project still
// references are kept.
func (m *PackageManager) UninstallPackage(ctx context.Context, pkg *core.Package, force, removeDependencies bool, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	w := &walker{installed: m.shared, source: m.shared, logger: logger}
	ops, err := w.uninstallPlan(ctx, pkg, force, removeDependencies)
	if err != nil {
		return err
	}
	return m.Execute(ctx, ops, logger)
}

// Execute applies ops to the shared repository in order. Installing a
// present package and removing a referenced one are no-ops.
func (m *PackageManager) Execute(ctx context.Context, ops []core.PackageOperation, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch op.Action {
		case core.ActionInstall:
			err = m.materialize(ctx, op.Package, logger)
		case core.ActionUninstall:
			err = m.RemoveUnreferenced(ctx, op.Package, logger)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *PackageManager) materialize(ctx context.Context, pkg *core.Package, logger observability.Logger) error {
	present, err := m.shared.Exists(ctx, pkg.ID(), pkg.Version())
	if err != nil {
		return err
	}
	if present {
		logger.Debug("{PackageID}@{Version} already exists in {Repository}", pkg.ID(), pkg.Version().String(), m.shared.Root())
		return nil
	}

	e := PackageEvent{Package: pkg, InstallPath: m.shared.InstallPath(pkg)}
	e.Type = PackageInstalling
	m.events.raise(ctx, logger, e)

	if err := m.shared.AddPackage(ctx, pkg); err != nil {
		return fmt.Errorf("install %s: %w", pkg, err)
	}
	logger.Info("Successfully installed '{PackageID} {Version}'.", pkg.ID(), pkg.Version().String())

	e.Type = PackageInstalled
	m.events.raise(ctx, logger, e)
	return nil
}

// RemoveUnreferenced removes pkg from the shared repository unless a
// project still references it.
func (m *PackageManager) RemoveUnreferenced(ctx context.Context, pkg *core.Package, logger observability.Logger) error {
	logger = observability.OrNull(logger)
	if m.shared.IsReferenced(pkg.ID(), pkg.Version()) {
		logger.Debug("{PackageID}@{Version} is still referenced by another project", pkg.ID(), pkg.Version().String())
		return nil
	}
	present, err := m.shared.Exists(ctx, pkg.ID(), pkg.Version())
	if err != nil || !present {
		return err
	}

	e := PackageEvent{Package: pkg, InstallPath: m.shared.InstallPath(pkg)}
	e.Type = PackageUninstalling
	m.events.raise(ctx, logger, e)

	if err := m.shared.RemovePackage(ctx, pkg); err != nil {
		return fmt.Errorf("uninstall %s: %w", pkg, err)
	}
	logger.Info("Successfully removed '{PackageID} {Version}'.", pkg.ID(), pkg.Version().String())

	e.Type = PackageUninstalled
	m.events.raise(ctx, logger, e)
	return nil
}
