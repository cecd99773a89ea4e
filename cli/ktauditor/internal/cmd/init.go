package cmd

import (
	"fmt"
	"path"

	"github.com/coniks-sys/coniks-selfaudit/application"
	"github.com/coniks-sys/coniks-selfaudit/application/client"
	"github.com/coniks-sys/coniks-selfaudit/cli"
	"github.com/coniks-sys/coniks-selfaudit/crypto/keyring"
	"github.com/coniks-sys/coniks-selfaudit/crypto/sign"
	"github.com/coniks-sys/coniks-selfaudit/utils"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = cli.NewInitCommand("ktauditor", initRunFunc)

func init() {
	RootCmd.AddCommand(initCmd)
	initCmd.Flags().String("address", "http://localhost:8080/api", "Base URL of the key transparency API")
	initCmd.Flags().String("user", "", "Id of the user to audit")
	initCmd.Flags().String("log-key", "", "Hex-encoded signing public-key of the log")
	initCmd.Flags().StringSlice("address-id", nil, "Address ids to generate signing keys for")
}

func initRunFunc(cmd *cobra.Command, args []string) error {
	dir := cmd.Flag("dir").Value.String()
	address, _ := cmd.Flags().GetString("address")
	user, _ := cmd.Flags().GetString("user")
	logKey, _ := cmd.Flags().GetString("log-key")
	addressIDs, _ := cmd.Flags().GetStringSlice("address-id")

	conf := mkConfig(dir, address, user)
	if err := conf.Save(); err != nil {
		return err
	}
	if logKey != "" {
		if _, err := sign.PublicKeyFromHex(logKey); err != nil {
			return fmt.Errorf("Bad log key: %v", err)
		}
		if err := utils.WriteFile(path.Join(dir, conf.LogPubkeyPath), []byte(logKey+"\n"), 0600); err != nil {
			return err
		}
	}
	return mkKeyring(cmd, path.Join(dir, conf.KeyringPath), addressIDs)
}

func mkConfig(dir, address, user string) *client.Config {
	logger := &application.LoggerConfig{
		EnableStacktrace: true,
		Environment:      "development",
		Path:             "ktauditor.log",
	}
	return client.NewConfig(path.Join(dir, "config.toml"), "toml", logger, address, user)
}

func mkKeyring(cmd *cobra.Command, file string, addressIDs []string) error {
	kr := keyring.New(nil)
	for _, id := range addressIDs {
		sk, err := sign.GenerateKey(nil)
		if err != nil {
			return err
		}
		kr.Add(id, sk)
		pk, _ := kr.PublicKey(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, pk.Key)
	}
	return kr.Save(file)
}
