package cmd

import (
	"github.com/spf13/cobra"

	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/picker"
	"github.com/runger/fzpick/internal/producer"
	"github.com/runger/fzpick/internal/session"
)

var (
	grepCommand string
	grepDir     string
	grepQuery   string
	grepMulti   bool
)

var grepCmd = &cobra.Command{
	Use:   "grep",
	Short: "live-grep: re-run a search command as the pattern changes",
	Long: `live-grep mode pipes the pattern into an external search command and
ranks its output. Every edit restarts the command; {} in the template is
replaced with the current pattern.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog() //nolint:errcheck

		return runPicker(pickerRun{
			cfg:    cfg,
			logger: logger,
			opts: picker.Options{
				Multi:   grepMulti,
				Initial: grepQuery,
				Session: session.Options{
					Producers: []finder.Producer{
						producer.Command{Template: grepCommand, Dir: grepDir},
					},
					SearchFromPattern: true,
				},
			},
			history: openHistory(logger),
		})
	},
}

func init() {
	grepCmd.Flags().StringVar(&grepCommand, "command",
		"grep -rn --binary-files=without-match {} .",
		"search command template; {} is replaced with the pattern")
	grepCmd.Flags().StringVar(&grepDir, "dir", "", "working directory for the search command")
	grepCmd.Flags().StringVarP(&grepQuery, "query", "q", "", "initial pattern")
	grepCmd.Flags().BoolVarP(&grepMulti, "multi", "m", false, "allow marking multiple results with tab")
}
