package commands

import (
	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/manager"
	"github.com/willibrandon/gonuget-vs/preinstall"
)

type preinstallOptions struct {
	workspaceOptions
	Manifest string
}

// NewPreinstallCommand creates the preinstall command.
func NewPreinstallCommand(console *output.Console) *cobra.Command {
	opts := &preinstallOptions{}

	cmd := &cobra.Command{
		Use:   "preinstall <MANIFEST>",
		Short: "Install the packages listed in a preinstall manifest",
		Long: `Installs a fixed set of packages from a local folder into a project, as a
project template does when a project is created. Dependencies are not
installed and versions the project already references are left alone.

The manifest is YAML:

  repositoryPath: packages
  preunzipped: true
  packages:
    - id: jQuery
      version: 1.4.4
    - id: EntityFramework
      version: 4.1.10331.0
      skipAssemblyReferences: true

Examples:
  gonuget-vs preinstall template/preinstall.yaml --project Web`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Manifest = args[0]
			return runPreinstall(cmd, console, opts)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runPreinstall(cmd *cobra.Command, console *output.Console, opts *preinstallOptions) error {
	cfg, err := preinstall.LoadManifest(opts.Manifest)
	if err != nil {
		return err
	}

	w, err := openWorkspace(console, &opts.workspaceOptions)
	if err != nil {
		return err
	}
	p, err := w.project(opts.Project)
	if err != nil {
		return err
	}

	failed := false
	handlers := preinstall.Handlers{
		Info:    func(msg string) { console.Info("%s", msg) },
		Warning: func(msg string) { console.Warning("%s", msg) },
		Error: func(msg string) {
			failed = true
			console.Error("%s", msg)
		},
	}

	installer := preinstall.NewInstaller(w.shared, preinstall.WithEvents(w.manager.Events()),
		preinstall.WithProjectSystemFactory(manager.FileProjectSystems))
	if err := installer.PerformPackageInstall(cmd.Context(), p, cfg, handlers, w.logger); err != nil {
		return err
	}
	if failed {
		return errPreinstallFailed
	}
	console.Success("Preinstalled %d package(s) into '%s'.", len(cfg.Packages), p.Name())
	return nil
}
