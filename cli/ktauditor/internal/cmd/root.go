// Package cmd implements the CLI commands for the key transparency
// self-auditor.
package cmd

import (
	"github.com/coniks-sys/coniks-selfaudit/cli"
)

// RootCmd represents the base "ktauditor" command when called without any subcommands.
var RootCmd = cli.NewRootCommand("ktauditor",
	"Key transparency self-auditor",
	`ktauditor verifies that a key transparency log publishes the keys of
a user's addresses consistently over time, and records the epochs up to
which they were verified.`)
