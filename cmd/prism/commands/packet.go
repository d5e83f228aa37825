package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prism/internal/crypto"
	"prism/internal/domain"
)

// writeCmd seals a single message packet for a peer. The packet's data is
// encrypted under a symmetric key the peer must receive out of band.
func writeCmd() *cobra.Command {
	var keyB64 string
	cmd := &cobra.Command{
		Use:   "write <contact> <message>",
		Short: "Seal a one-off message packet for a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			own, err := loadIdentity()
			if err != nil {
				return err
			}
			peer, err := wire.Contacts.Resolve(args[0])
			if err != nil {
				return err
			}

			key, err := packetKey(keyB64)
			if err != nil {
				return err
			}
			data, err := wire.Envelopes.Seal(domain.TextMessage{Message: args[1]}, key)
			if err != nil {
				return err
			}
			out, err := wire.Packets.Write(peer, domain.MessagePacket{
				Sender:    own.Public,
				Type:      domain.PacketMessage,
				Timestamp: time.Now().UnixMilli(),
				Data:      data,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if keyB64 == "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "key: %s\n", crypto.B64(key))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyB64, "key", "", "base64 symmetric key (default: generate one and print it)")
	return cmd
}

// readCmd opens a message packet addressed to the local identity.
func readCmd() *cobra.Command {
	var keyB64 string
	cmd := &cobra.Command{
		Use:   "read <wire>",
		Short: "Open a message packet addressed to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			own, err := loadIdentity()
			if err != nil {
				return err
			}
			pkt, err := wire.Packets.Read(own, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			from := displayName(pkt.Sender)

			sealed, ok := pkt.Data.(domain.EncryptedPayload)
			if !ok || keyB64 == "" {
				fmt.Fprintf(out, "%s packet from %s\n", pkt.Type, from)
				return nil
			}
			key, err := crypto.UnB64(keyB64)
			if err != nil {
				return err
			}
			var msg domain.TextMessage
			if err := wire.Envelopes.Open(sealed, key, &msg); err != nil {
				return err
			}
			fmt.Fprintf(out, "[%s %s] %s\n", time.UnixMilli(pkt.Timestamp).Format(time.Kitchen), from, msg.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyB64, "key", "", "base64 symmetric key the packet data was sealed under")
	return cmd
}

var errEmptyKey = errors.New("--key must not be empty")

func packetKey(b64 string) (domain.SymmetricKey, error) {
	if b64 == "" {
		return wire.Envelopes.NewKey()
	}
	key, err := crypto.UnB64(b64)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, errEmptyKey
	}
	return key, nil
}
