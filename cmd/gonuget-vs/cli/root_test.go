package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/cli"
	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/commands"
	"github.com/willibrandon/gonuget-vs/cmd/gonuget-vs/output"
)

func TestRootCommand_RegistersEverySubcommand(t *testing.T) {
	var out bytes.Buffer
	console := output.NewConsole(&out, &out, output.VerbosityNormal)

	var subcommands []string
	require.NotPanics(t, func() {
		for _, cmd := range commands.All(console) {
			subcommands = append(subcommands, cmd.Name())
			cli.AddCommand(cmd)
		}
	})
	assert.ElementsMatch(t, []string{"install", "uninstall", "update", "restore", "preinstall", "projects", "version"}, subcommands)

	root := cli.Root()
	for _, name := range subcommands {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.InheritedFlags().Lookup("verbosity"), name)
	}

	projects, _, err := root.Find([]string{"projects"})
	require.NoError(t, err)
	assert.NotNil(t, projects.Flags().Lookup("list-packages"))
	assert.Equal(t, "string", projects.Flags().Lookup("packages").Value.Type())

	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "gonuget-vs version")
}
