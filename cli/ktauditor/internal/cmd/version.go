package cmd

import (
	"github.com/coniks-sys/coniks-selfaudit/cli"
)

var versionCmd = cli.NewVersionCommand("ktauditor")

func init() {
	RootCmd.AddCommand(versionCmd)
}
