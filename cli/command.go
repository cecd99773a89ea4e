package cli

import (
	"github.com/spf13/cobra"
)

// cobraCommand is used to implement any type of cobra command
// for any of the command-line executables.
type cobraCommand interface {
	Build() *cobra.Command
}

// RunFunc implements a command. A returned error is printed by
// ExecuteRoot.
type RunFunc func(cmd *cobra.Command, args []string) error
