package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsorter/internal/bootstrap"
	"github.com/kirillkom/docsorter/internal/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan the source folder and keep processing new documents until interrupted",
	RunE:  runWatch,
}

var (
	watchSource      string
	watchDestination string
)

func init() {
	watchCmd.Flags().StringVar(&watchSource, "source", "", "Source folder (saved for later runs)")
	watchCmd.Flags().StringVar(&watchDestination, "dest", "", "Destination folder (saved for later runs)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if watchSource != "" {
		if err := app.Settings.SaveSource(watchSource); err != nil {
			return fmt.Errorf("save source folder: %w", err)
		}
	}
	if watchDestination != "" {
		if err := app.Settings.SaveDestination(watchDestination); err != nil {
			return fmt.Errorf("save destination folder: %w", err)
		}
	}
	folders, err := app.Settings.Load()
	if err != nil {
		return fmt.Errorf("load folders: %w", err)
	}

	observers := append(app.Observers(), notify.NewTerminal(os.Stdout, strings.EqualFold(cfg.LogLevel, "debug")))
	var relay sync.WaitGroup
	relay.Add(1)
	go func() {
		defer relay.Done()
		app.Channel.Run(context.Background(), observers...)
	}()

	server := app.MetricsServer()
	if server != nil {
		go func() {
			logger.Info("metrics_listening", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics_server_failed", "error", err)
			}
		}()
	}

	fmt.Fprintf(os.Stdout, "Source: %s\nDestination: %s\n", folders.SourcePath, folders.DestinationPath)
	startErr := app.Monitor.Start(ctx, folders)
	if startErr == nil {
		select {
		case <-ctx.Done():
		case <-app.Monitor.Done():
		}
		if err := app.Monitor.Stop(); err != nil {
			logger.Warn("monitor_stop_failed", "error", err)
		}
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics_shutdown_failed", "error", err)
		}
		cancel()
	}

	app.Channel.Close()
	relay.Wait()
	if dropped := app.Channel.Dropped(); dropped > 0 {
		logger.Warn("notifications_dropped", "count", dropped)
	}
	if startErr != nil {
		return fmt.Errorf("start monitoring: %w", startErr)
	}
	return nil
}
