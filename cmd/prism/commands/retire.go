package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func retireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retire",
		Short: "Forget the identity superseded by your last readdress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadIdentity(); err != nil {
				return err
			}
			if _, ok := wire.Identity.Previous(); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to retire.")
				return nil
			}
			if err := wire.Identity.Retire(passphrase); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Previous identity retired; its mailbox is no longer polled.")
			return nil
		},
	}
}
