package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsorter/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docsorter/internal/notify"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the events a running watcher publishes to NATS",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	if cfg.NATSURL == "" {
		return fmt.Errorf("NATS_URL is not set")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subscriber, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer subscriber.Close()

	terminal := notify.NewTerminal(cmd.OutOrStdout(), strings.EqualFold(cfg.LogLevel, "debug"))
	return subscriber.Subscribe(ctx, terminal.Observe)
}
