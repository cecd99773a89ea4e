package cli

import (
	"github.com/spf13/cobra"
)

// An auditCommand is used to run a single pass of an executable's
// job and report on it.
type auditCommand struct {
	appName string
	runFunc RunFunc
}

var _ cobraCommand = (*auditCommand)(nil)

// NewAuditCommand constructs a new AuditCommand for the given
// executable's appName and the runFunc implementing one pass.
func NewAuditCommand(appName string, runFunc RunFunc) *cobra.Command {
	auditCmd := &auditCommand{
		appName: appName,
		runFunc: runFunc,
	}
	return auditCmd.Build()
}

// Build constructs the cobra.Command according to the
// AuditCommand's settings.
func (auditCmd *auditCommand) Build() *cobra.Command {
	cmd := cobra.Command{
		Use:   "audit",
		Short: "Run one " + auditCmd.appName + " pass now and print its result.",
		Long: `Run one ` + auditCmd.appName + ` pass now, regardless of the time
of the last one, and print its result.`,
		Args: cobra.NoArgs,
		RunE: auditCmd.runFunc,
	}
	return &cmd
}
