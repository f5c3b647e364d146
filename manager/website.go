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

// RefreshExtension is appended to an assembly name to form its refresh
// file in a web site's bin folder.
const RefreshExtension = ".refresh"

// WebsiteHandler applies the web site specific parts of package
// installation. Web sites have no project file: assemblies are picked up
// from bin/ and refresh files tell the build where to copy them from.
type WebsiteHandler struct {
	shared *repository.SharedRepository
	logger observability.Logger
}

// NewWebsiteHandler creates a handler for packages in shared.
func NewWebsiteHandler(shared *repository.SharedRepository, logger observability.Logger) *WebsiteHandler {
	return &WebsiteHandler{shared: shared, logger: observability.OrNull(logger)}
}

// AddRefreshFiles writes bin/<assembly>.refresh for every assembly of
// packages, holding the assembly's path relative to the web site.
// Existing refresh files are kept.
func (h *WebsiteHandler) AddRefreshFiles(ps ProjectSystem, packages []*core.Package) error {
	fw := targetFramework(ps)
	for _, pkg := range packages {
		installPath := h.shared.InstallPath(pkg)
		for _, asm := range frameworks.SelectAssemblies(pkg.AssemblyReferences, fw) {
			target := path.Join("bin", path.Base(asm)+RefreshExtension)
			if ps.FileExists(target) {
				continue
			}
			full := filepath.Join(installPath, filepath.FromSlash(asm))
			rel, err := filepath.Rel(ps.Root(), full)
			if err != nil {
				rel = full
			}
			if err := ps.AddFile(target, strings.NewReader(strings.ReplaceAll(rel, "/", `\`))); err != nil {
				return fmt.Errorf("add refresh file for %s: %w", asm, err)
			}
			h.logger.Debug("Added {RefreshFile} to {Project}", target, ps.ProjectName())
		}
	}
	return nil
}

// CopyNativeBinaries copies the NativeBinaries/ files of packages into the
// web site's bin folder, keeping their relative layout.
func (h *WebsiteHandler) CopyNativeBinaries(ctx context.Context, ps ProjectSystem, packages []*core.Package) error {
	for _, pkg := range packages {
		installed := pkg
		if found, err := h.shared.FindPackage(ctx, pkg.ID(), pkg.Version()); err == nil {
			installed = found
		}
		for _, file := range installed.NativeBinaries {
			if err := h.copyNative(ps, installed, file); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *WebsiteHandler) copyNative(ps ProjectSystem, pkg *core.Package, file string) error {
	r, err := packaging.OpenFile(pkg, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	defer func() { _ = r.Close() }()

	target := path.Join("bin", packaging.NativeTarget(file))
	if err := ps.AddFile(target, r); err != nil {
		return fmt.Errorf("copy %s: %w", file, err)
	}
	h.logger.Debug("Copied native binary {File} to {Project}", target, ps.ProjectName())
	return nil
}
