package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"prism/internal/domain"
)

var errQuit = errors.New("quit")

func chatCmd() *cobra.Command {
	var (
		interval time.Duration
		listen   bool
	)
	cmd := &cobra.Command{
		Use:   "chat <contact>",
		Short: "Open a session with a peer and chat through the relay",
		Long: `Open a session with a peer and chat through the relay.

Lines typed are sent to the peer. Commands:
  /readdress   rotate to a fresh identity and tell every peer
  /quit        leave`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadIdentity(); err != nil {
				return err
			}
			peer, err := wire.Contacts.Resolve(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c := &chat{peer: peer, out: cmd.OutOrStdout()}
			if !listen {
				if err := wire.Messages.StartSession(ctx, peer); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "* handshake sent to %s\n", displayName(peer))
			}
			return c.run(ctx, cmd.InOrStdin(), interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "relay poll interval")
	cmd.Flags().BoolVar(&listen, "listen", false, "wait for the peer's handshake instead of sending one")
	return cmd
}

type chat struct {
	peer domain.PublicKey
	out  io.Writer
}

func (c *chat) run(ctx context.Context, in io.Reader, interval time.Duration) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			c.poll(ctx)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := c.handle(ctx, strings.TrimSpace(line))
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "! %v\n", err)
			}
		}
	}
}

func (c *chat) poll(ctx context.Context) {
	msgs, err := wire.Messages.Receive(ctx, 0)
	if err != nil {
		wire.Log.WithError(err).Warn("relay poll failed")
	}
	for _, m := range msgs {
		c.show(m)
	}
}

func (c *chat) show(m domain.DecryptedMessage) {
	from := displayName(m.From)
	switch m.Type {
	case domain.PacketHandshakeInit, domain.PacketHandshakeResponse:
		fmt.Fprintf(c.out, "* session with %s established\n", from)
	case domain.PacketReaddress:
		if err := wire.Contacts.ReplaceKey(m.Replaces, m.From); err != nil {
			wire.Log.WithError(err).Warn("contact not updated after readdress")
		}
		if m.Replaces.Equal(c.peer) {
			c.peer = m.From
		}
		fmt.Fprintf(c.out, "* %s %s\n", from, m.Text)
	default:
		ts := time.UnixMilli(m.Timestamp).Format(time.Kitchen)
		fmt.Fprintf(c.out, "[%s %s] %s\n", ts, from, m.Text)
	}
}

func (c *chat) handle(ctx context.Context, line string) error {
	switch line {
	case "":
		return nil
	case "/quit":
		return errQuit
	case "/readdress":
		return c.readdress(ctx)
	}
	return wire.Messages.Send(ctx, c.peer, line)
}

func (c *chat) readdress(ctx context.Context) error {
	old, next, err := wire.Identity.Rotate(passphrase)
	if err != nil {
		return err
	}
	if err := wire.Messages.Readdress(ctx, old, next); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "* now %s\n", next.Public)
	return nil
}
