package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism/internal/crypto"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print your public key and fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := loadIdentity()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Public key:  %s\nFingerprint: %s\n", id.Public, crypto.FingerprintKey(id.Public))
			if prev, ok := wire.Identity.Previous(); ok {
				fmt.Fprintf(out, "Superseded:  %s (run retire once peers have moved)\n", crypto.FingerprintKey(prev.Public))
			}
			return nil
		},
	}
}
