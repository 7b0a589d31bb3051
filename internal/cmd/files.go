package cmd

import (
	"github.com/spf13/cobra"

	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/picker"
	"github.com/runger/fzpick/internal/producer"
	"github.com/runger/fzpick/internal/session"
)

var (
	filesHidden bool
	filesFollow bool
	filesQuery  string
	filesMulti  bool
)

var filesCmd = &cobra.Command{
	Use:   "files [dir]",
	Short: "pick from the files under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		return runPicker(pickerRun{
			cfg:    cfg,
			logger: logger,
			opts: picker.Options{
				Multi:   filesMulti,
				Initial: filesQuery,
				Session: session.Options{
					Producers: []finder.Producer{
						producer.Walker{Root: root, Hidden: filesHidden, Follow: filesFollow},
					},
					// The search keys the production cycle; the walker
					// itself only cares about the root.
					Search: root,
				},
			},
			history: openHistory(logger),
		})
	},
}

func init() {
	filesCmd.Flags().BoolVar(&filesHidden, "hidden", false, "include dot-files and dot-directories")
	filesCmd.Flags().BoolVar(&filesFollow, "follow", false, "follow symlinks while walking")
	filesCmd.Flags().StringVarP(&filesQuery, "query", "q", "", "initial pattern")
	filesCmd.Flags().BoolVarP(&filesMulti, "multi", "m", false, "allow marking multiple results with tab")
}
