package cli

import (
	"github.com/spf13/cobra"
)

// An initCommand is used to create an executable's
// configuration.
type initCommand struct {
	appName string
	runFunc RunFunc
}

var _ cobraCommand = (*initCommand)(nil)

// NewInitCommand constructs a new InitCommand for the given
// executable's appName and the runFunc implementing
// the initialization command.
func NewInitCommand(appName string, runFunc RunFunc) *cobra.Command {
	initCmd := &initCommand{
		appName: appName,
		runFunc: runFunc,
	}
	return initCmd.Build()
}

// Build constructs the cobra.Command according to the
// InitCommand's settings.
func (initCmd *initCommand) Build() *cobra.Command {
	cmd := cobra.Command{
		Use:   "init",
		Short: "Create a configuration file for " + initCmd.appName + ".",
		Long: `Create a configuration file for ` + initCmd.appName + `,
and a keyring holding a fresh signing key for each given address.`,
		Args: cobra.NoArgs,
		RunE: initCmd.runFunc,
	}
	cmd.Flags().StringP("dir", "d", ".", "Location of directory for storing generated files")
	return &cmd
}
