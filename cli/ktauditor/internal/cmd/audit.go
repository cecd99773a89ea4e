package cmd

import (
	"errors"

	"github.com/coniks-sys/coniks-selfaudit/cli"
	"github.com/spf13/cobra"
)

var auditCmd = cli.NewAuditCommand("self-audit", audit)

func init() {
	RootCmd.AddCommand(auditCmd)
}

func audit(cmd *cobra.Command, args []string) error {
	a, err := loadAuditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.audit(cmd.Context(), true)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), state.Last)
	if state.Last != nil && !state.Last.Succeeded() {
		return errors.New("self-audit failed")
	}
	return nil
}
