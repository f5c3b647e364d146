package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
)

type restoreOptions struct {
	workspaceOptions
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(console *output.Console) *cobra.Command {
	opts := &restoreOptions{}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore missing packages",
		Long: `Reinstalls packages listed in packages.config files that are missing from
the solution packages folder. The global packages folder is checked before
the package sources.

Examples:
  gonuget-vs restore
  gonuget-vs restore --project Web
  gonuget-vs restore --source ./feed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, console, opts)
		},
	}

	opts.bind(cmd)
	return cmd
}

func runRestore(cmd *cobra.Command, console *output.Console, opts *restoreOptions) error {
	w, err := openWorkspace(console, &opts.workspaceOptions)
	if err != nil {
		return err
	}

	if opts.Project != "" {
		pm, err := w.projectManager(opts.Project, false)
		if err != nil {
			return err
		}
		if err := w.manager.RestorePackages(cmd.Context(), pm, w.logger); err != nil {
			return err
		}
		console.Success("Restore completed for %s.", target(pm))
		return nil
	}

	// solution-level packages first, then every project
	errs := []error{w.manager.RestorePackages(cmd.Context(), nil, w.logger)}
	for _, p := range w.solutions.Projects() {
		pm, err := w.manager.GetProjectManager(p)
		if err != nil {
			console.Warning("Skipping %s: %v", p.Name(), err)
			continue
		}
		console.Detail("Restoring packages of %s", p.Name())
		errs = append(errs, w.manager.RestorePackages(cmd.Context(), pm, w.logger))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	console.Success("Restore completed.")
	return nil
}
