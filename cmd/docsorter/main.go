package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docsorter/internal/config"
	"github.com/kirillkom/docsorter/internal/infrastructure/settings/yamlfile"
	"github.com/kirillkom/docsorter/internal/observability/logging"
)

const serviceName = "docsorter"

var rootCmd = &cobra.Command{
	Use:   "docsorter",
	Short: "docsorter - watched-folder document classifier",
	Long: `docsorter watches a source folder, classifies every supported document with a
local language model, writes a JSON sidecar next to it, renames both after the
classification and files them under the destination folder by category.`,
	SilenceUsage: true,
}

var (
	cfg          config.Config
	logger       *slog.Logger
	closeLogFile func() error
)

func init() {
	cobra.OnInitialize(initRuntime)
	cobra.OnFinalize(func() {
		if closeLogFile != nil {
			_ = closeLogFile()
		}
	})

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(eventsCmd)
}

// initRuntime loads configuration and sends structured logs to stderr so the
// terminal panel on stdout stays readable.
func initRuntime() {
	cfg = config.Load()
	var err error
	logger, closeLogFile, err = logging.Setup(serviceName, cfg.LogLevel, cfg.LogFile, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup: %v\n", err)
		logger = logging.NewJSONLogger(serviceName, cfg.LogLevel, os.Stderr)
	}
	slog.SetDefault(logger)
}

func settingsStore() *yamlfile.Store {
	return yamlfile.New(cfg.SettingsPath, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
