package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"prism/internal/crypto"
	"prism/internal/domain"
)

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage named peers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <public-key>",
		Short: "Remember a peer's public key under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := domain.ParsePublicKey(args[1])
			if err != nil {
				return err
			}
			if err := wire.Contacts.AddContact(args[0], key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", args[0], crypto.FingerprintKey(key))
			return nil
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "List known peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := wire.Contacts.Contacts()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range contacts {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, crypto.FingerprintKey(c.Key), c.Key)
			}
			return tw.Flush()
		},
	})
	return cmd
}
