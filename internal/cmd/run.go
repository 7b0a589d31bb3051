package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/fzpick/internal/config"
	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/picker"
	"github.com/runger/fzpick/internal/producer"
	"github.com/runger/fzpick/internal/session"
)

// pickerRun holds everything a subcommand needs to put a session on screen.
type pickerRun struct {
	cfg     config.Config
	logger  *slog.Logger
	opts    picker.Options
	history *producer.HistoryStore // picks are recorded here when non-nil
}

// runPicker drives the TUI on /dev/tty and prints the confirmed selection(s)
// to stdout, one per line. Stdout stays clean for shell substitution; all UI
// traffic goes through the tty.
func runPicker(r pickerRun) error {
	reg := session.NewRegistry(r.logger)
	defer reg.CloseAll()
	if r.history != nil {
		defer r.history.Close()
	}

	r.opts.Registry = reg
	r.opts.Session.Logger = r.logger
	r.opts.Session.Config = r.cfg
	model := picker.NewModel(r.opts)

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	// Detect the color profile from the real tty: when invoked via
	// $(fzpick ...), stdout is a pipe and lipgloss would fall back to
	// Ascii. SetColorProfile mutates the default renderer in place, so
	// the package-level styles in the picker pick it up.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	if model.Cancelled() {
		return errCancelled
	}

	results := model.Results()
	for _, it := range results {
		fmt.Fprintln(os.Stdout, formatResult(it))
		if r.history != nil {
			if err := r.history.Record(context.Background(), it); err != nil {
				r.logger.Warn("recording pick failed", "key", it.Key, "error", err)
			}
		}
	}
	return nil
}

// formatResult renders one confirmed item for stdout. Location items print
// as path:line:col so editors can jump straight to them.
func formatResult(it *item.Item) string {
	if it.Loc != nil {
		return fmt.Sprintf("%s:%d:%d", it.Loc.Path, it.Loc.StartLine, it.Loc.StartCol)
	}
	return it.Text
}

// openHistory opens the selections store, logging instead of failing: a
// broken history file must not take the picker down.
func openHistory(logger *slog.Logger) *producer.HistoryStore {
	h, err := producer.OpenHistory("")
	if err != nil {
		logger.Warn("selection history unavailable", "error", err)
		return nil
	}
	return h
}
