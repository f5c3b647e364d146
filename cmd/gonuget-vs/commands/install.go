package commands

import (
	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/version"
)

type installOptions struct {
	workspaceOptions
	Version            string
	IgnoreDependencies bool
	Prerelease         bool
	SolutionLevel      bool
}

// NewInstallCommand creates the install command.
func NewInstallCommand(console *output.Console) *cobra.Command {
	opts := &installOptions{}

	cmd := &cobra.Command{
		Use:   "install <PACKAGE_ID>",
		Short: "Install a package into a project",
		Long: `Installs a package and its dependencies into the solution packages folder
and references it from a project.

Packages without assemblies or content are installed at solution level.

Examples:
  gonuget-vs install jQuery
  gonuget-vs install Newtonsoft.Json --version 6.0.4 --project Web
  gonuget-vs install NUnit.Runners --solution-level`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, console, args[0], opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Version, "version", "v", "", "Version to install (default: latest)")
	cmd.Flags().BoolVar(&opts.IgnoreDependencies, "ignore-dependencies", false, "Do not install dependencies")
	cmd.Flags().BoolVar(&opts.Prerelease, "prerelease", false, "Allow prerelease versions")
	cmd.Flags().BoolVar(&opts.SolutionLevel, "solution-level", false, "Install without referencing the package from a project")

	return cmd
}

func runInstall(cmd *cobra.Command, console *output.Console, id string, opts *installOptions) error {
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

	allowPrerelease := opts.Prerelease || (ver != nil && ver.IsPrerelease())
	if err := w.manager.InstallPackage(cmd.Context(), pm, id, ver, opts.IgnoreDependencies, allowPrerelease, w.logger); err != nil {
		return err
	}

	console.Success("Installed '%s' into %s.", describe(id, ver), target(pm))
	return nil
}

func parseOptionalVersion(s string) (*version.NuGetVersion, error) {
	if s == "" {
		return nil, nil
	}
	return version.Parse(s)
}
