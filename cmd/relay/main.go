package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism/internal/relay"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr      string
		redisAddr string
		limit     int
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Store-and-forward relay for Prism envelopes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			queue, closeQueue, err := openQueue(ctx, redisAddr, limit, logger)
			if err != nil {
				return err
			}
			defer closeQueue()

			srv := &http.Server{
				Addr:              addr,
				Handler:           relay.NewServer(queue, logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()

			logger.Infof("relay listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("relay stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for persistent mailboxes (default: in memory)")
	cmd.Flags().IntVar(&limit, "mailbox-limit", relay.DefaultMailboxLimit, "maximum queued envelopes per mailbox")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func openQueue(ctx context.Context, redisAddr string, limit int, logger *logrus.Logger) (relay.Queue, func(), error) {
	if redisAddr == "" {
		logger.Info("using in-memory mailboxes")
		return relay.NewMemoryQueue(limit), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger.Infof("using redis mailboxes at %s", redisAddr)
	q := relay.NewRedisQueue(rdb, limit)
	return q, func() { _ = q.Close() }, nil
}
