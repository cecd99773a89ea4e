// Executable key transparency self-auditor. It periodically checks
// that the log keeps publishing the keys of the configured user's
// addresses the way it promised.
package main

import (
	"github.com/coniks-sys/coniks-selfaudit/cli"
	"github.com/coniks-sys/coniks-selfaudit/cli/ktauditor/internal/cmd"
)

func main() {
	cli.ExecuteRoot(cmd.RootCmd)
}
