package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/picker"
	"github.com/runger/fzpick/internal/producer"
	"github.com/runger/fzpick/internal/session"
)

var (
	recentLimit int
	recentQuery string
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "re-pick from previously confirmed selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		history := openHistory(logger)
		if history == nil {
			return errors.New("selection history unavailable")
		}

		return runPicker(pickerRun{
			cfg:    cfg,
			logger: logger,
			opts: picker.Options{
				Initial: recentQuery,
				Session: session.Options{
					Producers: []finder.Producer{
						producer.History{Store: history, Limit: recentLimit},
					},
					Search: "recent",
				},
			},
			history: history,
		})
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 100, "maximum number of recent selections")
	recentCmd.Flags().StringVarP(&recentQuery, "query", "q", "", "initial pattern")
}
