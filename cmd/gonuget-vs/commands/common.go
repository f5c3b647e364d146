package commands

import (
	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
	"github.com/willibrandon/gonuget-vs/manager"
	"github.com/willibrandon/gonuget-vs/version"
)

// All returns every gonuget-vs subcommand in help order.
func All(console *output.Console) []*cobra.Command {
	return []*cobra.Command{
		NewInstallCommand(console),
		NewUninstallCommand(console),
		NewUpdateCommand(console),
		NewRestoreCommand(console),
		NewPreinstallCommand(console),
		NewProjectsCommand(console),
		NewVersionCommand(console),
	}
}

// describe formats "id" or "id version" for messages.
func describe(id string, ver *version.NuGetVersion) string {
	if ver == nil {
		return id
	}
	return id + " " + ver.String()
}

// target names where an operation applied.
func target(pm *manager.ProjectManager) string {
	if pm == nil {
		return "the solution"
	}
	return "project '" + pm.Project().ProjectName() + "'"
}
