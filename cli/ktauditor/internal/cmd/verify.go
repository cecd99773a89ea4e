package cmd

import (
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol/selfaudit"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [email]",
	Short: "Verify the public keys of a contact's address.",
	Long: `Verify that the public keys served for a contact's address are the
ones the key transparency log committed to. Keys the log did not include
yet are recorded, and checked by the following self-audits.`,
	Args: cobra.ExactArgs(1),
	RunE: verify,
}

func init() {
	RootCmd.AddCommand(verifyCmd)
}

func verify(cmd *cobra.Command, args []string) error {
	a, err := loadAuditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	addr, err := a.api.GetPublicAddress(ctx, a.conf.UserID, args[0])
	if err != nil {
		return err
	}
	v := selfaudit.NewPublicAddressVerifier(a.env, selfaudit.NewChangeRecorder(a.env))
	result := v.Verify(ctx, a.conf.UserID, addr)
	if result.Err != nil {
		return fmt.Errorf("Keys of %s could not be verified: %w", addr.Email, result.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", addr.Email, result.State.Kind)
	return nil
}
