package manager

import (
	"context"
	"strings"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/observability"
	"github.com/willibrandon/gonuget-vs/project"
	"github.com/willibrandon/gonuget-vs/repository"
	"github.com/willibrandon/gonuget-vs/version"
)

// VsPackageInstaller installs packages from an arbitrary repository into
// a project, for callers that do not hold a VsPackageManager.
type VsPackageInstaller struct {
	shared *repository.SharedRepository
	opts   []Option
}

// NewVsPackageInstaller creates an installer for the solution whose shared
// repository is shared. opts apply to every manager it creates.
func NewVsPackageInstaller(shared *repository.SharedRepository, opts ...Option) *VsPackageInstaller {
	return &VsPackageInstaller{shared: shared, opts: opts}
}

// InstallPackage installs id at ver from source into p. A nil ver installs
// the latest version.
func (i *VsPackageInstaller) InstallPackage(ctx context.Context, source core.Repository, p project.Project, id string, ver *version.NuGetVersion, ignoreDependencies, skipAssemblyReferences bool, logger observability.Logger) error {
	m := NewVsPackageManager(source, i.shared, i.opts...)
	pm, err := m.GetProjectManager(p)
	if err != nil {
		return err
	}
	return m.installPackage(ctx, pm, id, ver, ReferenceOptions{
		IgnoreDependencies:     ignoreDependencies,
		AllowPrerelease:        ver != nil && ver.IsPrerelease(),
		SkipAssemblyReferences: skipAssemblyReferences,
	}, logger)
}

// PackageServices answers questions about the packages installed in
// projects.
type PackageServices struct {
	shared         *repository.SharedRepository
	projectSystems ProjectSystemFactory
}

// NewPackageServices creates PackageServices over shared. A nil factory
// opens projects from disk.
func NewPackageServices(shared *repository.SharedRepository, projectSystems ProjectSystemFactory) *PackageServices {
	if projectSystems == nil {
		projectSystems = FileProjectSystems
	}
	return &PackageServices{shared: shared, projectSystems: projectSystems}
}

// InstalledPackages returns the packages p references.
func (s *PackageServices) InstalledPackages(ctx context.Context, p project.Project) ([]*core.Package, error) {
	ps, err := s.projectSystems(p)
	if err != nil {
		return nil, err
	}
	return repository.NewProjectRepository(ps.Root(), s.shared, ps.TargetFramework(), nil).GetPackages(ctx)
}

// IsPackageInstalled reports whether p references any version of id.
func (s *PackageServices) IsPackageInstalled(ctx context.Context, p project.Project, id string) (bool, error) {
	return s.isInstalled(ctx, p, id, nil)
}

// IsPackageInstalledVersion reports whether p references id at ver.
func (s *PackageServices) IsPackageInstalledVersion(ctx context.Context, p project.Project, id string, ver *version.NuGetVersion) (bool, error) {
	return s.isInstalled(ctx, p, id, ver)
}

func (s *PackageServices) isInstalled(ctx context.Context, p project.Project, id string, ver *version.NuGetVersion) (bool, error) {
	installed, err := s.InstalledPackages(ctx, p)
	if err != nil {
		return false, err
	}
	for _, pkg := range installed {
		if strings.EqualFold(pkg.ID(), id) && (ver == nil || pkg.Version().Equals(ver)) {
			return true, nil
		}
	}
	return false, nil
}
