package cmd

import (
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/protocol"
	"github.com/coniks-sys/coniks-selfaudit/protocol/selfaudit"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record [address-id]",
	Short: "Record a key change made to one of your addresses.",
	Long: `Record the signed key list currently published for one of your
addresses. Run it after changing the keys of the address: the following
self-audits check that the log includes the new key list in time.`,
	Args: cobra.ExactArgs(1),
	RunE: record,
}

func init() {
	RootCmd.AddCommand(recordCmd)
}

func record(cmd *cobra.Command, args []string) error {
	a, err := loadAuditor(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	addrs, err := a.api.GetAddresses(ctx, a.conf.UserID)
	if err != nil {
		return err
	}
	addr, err := findOwnAddress(addrs, args[0])
	if err != nil {
		return err
	}
	r := selfaudit.NewChangeRecorder(a.env)
	if err := r.StoreOwnAddressChange(ctx, a.conf.UserID, addr, addr.SignedKeyList); err != nil {
		return fmt.Errorf("Change of %s could not be recorded: %w", addr.Email, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: recorded\n", addr.Email)
	return nil
}

func findOwnAddress(addrs []*protocol.UserAddress, addressID string) (*protocol.UserAddress, error) {
	for _, addr := range addrs {
		if addr.AddressID != addressID {
			continue
		}
		if addr.SignedKeyList == nil {
			return nil, fmt.Errorf("Address %s has no signed key list", addressID)
		}
		return addr, nil
	}
	return nil, fmt.Errorf("No address %s", addressID)
}
