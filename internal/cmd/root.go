// Package cmd wires the picker pipeline into the fzpick CLI.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/fzpick/internal/config"
)

// Exit codes, shaped for shell integration:
//
//	0 = selection made (use the printed result)
//	1 = cancelled by user (keep original input)
//	2 = error or unusable terminal
const (
	exitSelected  = 0
	exitCancelled = 1
	exitError     = 2
)

// errCancelled marks a user-driven exit so Execute can map it to its own
// exit code.
var errCancelled = errors.New("cancelled")

var (
	cfgPath  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "fzpick",
		Short: "incremental fuzzy picker for files, grep matches, and recent picks",
		Long: `fzpick - incremental fuzzy picker
  - files:  walk a directory tree and narrow by fuzzy pattern
  - grep:   live-grep through an external search command
  - recent: re-pick from previously confirmed selections`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command and maps the outcome onto exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errCancelled) {
			return exitCancelled
		}
		fmt.Fprintf(os.Stderr, "fzpick: %v\n", err)
		return exitError
	}
	return exitSelected
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/fzpick/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(grepCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the YAML config and builds the logger. The returned
// closer flushes the log file, when one is configured.
func loadConfig() (config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, closeLog, err := cfg.Log.NewLogger()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}
