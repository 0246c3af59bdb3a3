package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/research-vault/internal/cipher"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a master key",
	Long:  `Print a random 256-bit master key in the base64 form accepted by crypto.master_key.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := cipher.NewEngine(nil).GenerateKey()
		if err != nil {
			return err
		}
		defer key.Wipe()

		mk, err := cipher.NewMasterKey(key)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), cipher.EncodeKey(key))
		fmt.Fprintf(cmd.ErrOrStderr(), "fingerprint: %s\n", mk.Fingerprint())
		return nil
	},
}
