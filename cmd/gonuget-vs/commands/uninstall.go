package commands

import (
	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
)

type uninstallOptions struct {
	workspaceOptions
	Version            string
	Force              bool
	RemoveDependencies bool
	SolutionLevel      bool
}

// NewUninstallCommand creates the uninstall command.
func NewUninstallCommand(console *output.Console) *cobra.Command {
	opts := &uninstallOptions{}

	cmd := &cobra.Command{
		Use:   "uninstall <PACKAGE_ID>",
		Short: "Remove a package from a project",
		Long: `Removes a package reference from a project. The package is deleted from the
solution packages folder once no project references it.

Examples:
  gonuget-vs uninstall jQuery
  gonuget-vs uninstall Newtonsoft.Json --project Web --remove-dependencies
  gonuget-vs uninstall NUnit.Runners --solution-level --version 2.6.4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd, console, args[0], opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Version, "version", "v", "", "Version to remove when several are installed")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Remove even if other packages depend on it")
	cmd.Flags().BoolVar(&opts.RemoveDependencies, "remove-dependencies", false, "Also remove dependencies nothing else needs")
	cmd.Flags().BoolVar(&opts.SolutionLevel, "solution-level", false, "Remove a solution-level package")

	return cmd
}

func runUninstall(cmd *cobra.Command, console *output.Console, id string, opts *uninstallOptions) error {
	ver, err := parseOptionalVersion(opts.Version)
	if err != nil {
		return err
	}

	w, err := openWorkspace(console, &opts.workspaceOptions)
	if err != nil {
		return err
	}
	pm, err := w.projectManager(opts.Project, opts.SolutionLevel)
	if err != nil {
		return err
	}

	if err := w.manager.UninstallPackage(cmd.Context(), pm, id, ver, opts.Force, opts.RemoveDependencies, w.logger); err != nil {
		return err
	}
	console.Success("Uninstalled '%s' from %s.", describe(id, ver), target(pm))
	return nil
}
