package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
)

type updateOptions struct {
	workspaceOptions
	Version            string
	Safe               bool
	Prerelease         bool
	IgnoreDependencies bool
	SolutionLevel      bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(console *output.Console) *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update [<PACKAGE_ID>]",
		Short: "Update packages of a project",
		Long: `Updates one package, or every package of a project when no id is given.

With --safe, packages only move to the highest patch of their current
major.minor version.

Examples:
  gonuget-vs update jQuery
  gonuget-vs update jQuery --version 1.6.2
  gonuget-vs update --safe --project Web`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runUpdate(cmd, console, id, opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Version, "version", "v", "", "Version to update to (default: latest)")
	cmd.Flags().BoolVar(&opts.Safe, "safe", false, "Only update within the current major.minor version")
	cmd.Flags().BoolVar(&opts.Prerelease, "prerelease", false, "Allow prerelease versions")
	cmd.Flags().BoolVar(&opts.IgnoreDependencies, "ignore-dependencies", false, "Do not update dependencies")
	cmd.Flags().BoolVar(&opts.SolutionLevel, "solution-level", false, "Update a solution-level package")

	return cmd
}

func runUpdate(cmd *cobra.Command, console *output.Console, id string, opts *updateOptions) error {
	ver, err := parseOptionalVersion(opts.Version)
	if err != nil {
		return err
	}
	if id == "" && ver != nil {
		return fmt.Errorf("--version requires a package id")
	}

	w, err := openWorkspace(console, &opts.workspaceOptions)
	if err != nil {
		return err
	}
	pm, err := w.projectManager(opts.Project, opts.SolutionLevel)
	if err != nil {
		return err
	}

	updateDependencies := !opts.IgnoreDependencies
	if id == "" {
		if err := w.manager.UpdatePackages(cmd.Context(), pm, updateDependencies, opts.Safe, opts.Prerelease, w.logger); err != nil {
			return err
		}
		console.Success("Updated packages of %s.", target(pm))
		return nil
	}

	if err := w.manager.UpdatePackage(cmd.Context(), pm, id, ver, updateDependencies, opts.Prerelease, w.logger); err != nil {
		return err
	}
	console.Success("Updated '%s' in %s.", describe(id, ver), target(pm))
	return nil
}
