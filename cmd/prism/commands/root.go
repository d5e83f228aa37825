package commands

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism/internal/app"
	"prism/internal/crypto"
	"prism/internal/domain"
)

// passphraseEnv is read when --passphrase is not given.
const passphraseEnv = "PRISM_PASSPHRASE"

var errNoPassphrase = errors.New("passphrase required (-p or $" + passphraseEnv + ")")

var (
	home       string
	passphrase string
	relayURL   string
	routingTag string
	verbose    bool

	wire *app.Wire
)

// Execute runs the root command.
func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "prism",
		Short:        "Peer-to-peer encrypted messaging over an untrusted relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(logrus.WarnLevel)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}

			w, err := app.NewWire(app.Config{
				Home:       home,
				RelayURL:   relayURL,
				RoutingTag: routingTag,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.prism)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the keyring")
	root.PersistentFlags().StringVar(&relayURL, "relay", app.DefaultRelayURL, "relay base URL")
	root.PersistentFlags().StringVar(&routingTag, "tag", app.DefaultRoutingTag, "routing tag sent with transport packets")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), whoamiCmd(), contactCmd(), writeCmd(), readCmd(), chatCmd(), retireCmd())
	return root
}

// loadIdentity decrypts the keyring with the passphrase flag.
func loadIdentity() (domain.Identity, error) {
	if passphrase == "" {
		return domain.Identity{}, errNoPassphrase
	}
	return wire.Identity.Load(passphrase)
}

// displayName returns the contact name for key, or its fingerprint.
func displayName(key domain.PublicKey) string {
	if name, ok := wire.Contacts.NameOf(key); ok {
		return name
	}
	return crypto.FingerprintKey(key).String()
}
