// Package picker is the terminal front end of the pipeline: a Bubble Tea
// model that owns one session, renders its ranked list, and translates
// keystrokes into pattern updates.
package picker

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/session"
)

// debounceInterval is the delay after the last keystroke before the session
// sees the new pattern.
const debounceInterval = 50 * time.Millisecond

// changeMsg is pushed by the session's change callback; it carries no data
// because the view reads the ranked list directly.
type changeMsg struct{}

// confirmMsg carries an auto-confirmed single result.
type confirmMsg struct{ it *item.Item }

// warnMsg carries an advisory producer failure for the status line.
type warnMsg struct {
	producer string
	err      error
}

// debounceMsg fires after the debounce timer expires; only the latest id is
// honored.
type debounceMsg struct{ id uint64 }

// initMsg triggers the first session update through Update, so state
// mutations happen inside the Bubble Tea loop.
type initMsg struct{}

// Options configure a picker model.
type Options struct {
	Registry *session.Registry
	Session  session.Options // the UI callbacks are overwritten
	Prompt   string          // defaults to "> "
	Multi    bool            // enable tab multi-select
	Initial  string          // pre-typed pattern
}

// Model is the Bubble Tea model for the picker.
type Model struct {
	session *session.Session
	multi   bool

	input textinput.Model
	spin  spinner.Model

	// msgs carries callbacks from the session goroutines into the Bubble
	// Tea loop; capacity one because change notifications coalesce.
	msgs chan tea.Msg

	width  int
	height int

	warning   string
	cancelled bool
	confirmed []*item.Item

	debounceID uint64
}

// NewModel builds the model and its session. Close happens on quit.
func NewModel(opts Options) *Model {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = "> "
	}

	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "type to filter"
	ti.CharLimit = 256
	ti.Focus()
	ti.SetValue(opts.Initial)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = dimStyle

	m := &Model{
		multi: opts.Multi,
		input: ti,
		spin:  sp,
		msgs:  make(chan tea.Msg, 1),
	}

	sess := opts.Session
	sess.OnChange = func() { m.post(changeMsg{}) }
	sess.OnAutoConfirm = func(it *item.Item) { m.post(confirmMsg{it: it}) }
	sess.OnWarning = func(producer string, err error) {
		m.post(warnMsg{producer: producer, err: err})
	}
	m.session = opts.Registry.New(sess)
	return m
}

// post forwards a callback into the Bubble Tea loop without blocking the
// session; a full buffer means a message is already pending and the reader
// will observe the latest state anyway.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.msgs <- msg:
	default:
	}
}

// waitMsg blocks until the session posts something.
func (m *Model) waitMsg() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

// Session exposes the underlying session, mainly for tests and for callers
// that record confirmed picks.
func (m *Model) Session() *session.Session { return m.session }

// Results returns the confirmed items, nil when the picker was cancelled.
func (m *Model) Results() []*item.Item {
	if m.cancelled {
		return nil
	}
	return m.confirmed
}

// Cancelled reports whether the user backed out.
func (m *Model) Cancelled() bool { return m.cancelled }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		m.waitMsg(),
		func() tea.Msg { return initMsg{} },
	)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - runewidth.StringWidth(m.input.Prompt) - 1
		return m, nil

	case initMsg:
		m.session.Update(m.input.Value())
		return m, nil

	case changeMsg:
		// The list changed under us; re-render and keep listening.
		return m, m.waitMsg()

	case confirmMsg:
		m.confirmed = []*item.Item{msg.it}
		m.session.Close()
		return m, tea.Quit

	case warnMsg:
		m.warning = fmt.Sprintf("%s: %v", msg.producer, msg.err)
		return m, m.waitMsg()

	case debounceMsg:
		if msg.id != m.debounceID {
			return m, nil // superseded by a newer keystroke
		}
		m.session.Update(m.input.Value())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		m.session.Close()
		return m, tea.Quit

	case tea.KeyEnter:
		list := m.session.List()
		if m.multi {
			if sel := list.SelectedItems(); len(sel) > 0 {
				m.confirmed = sel
			}
		}
		if m.confirmed == nil {
			if cur := list.Current(); cur != nil {
				m.confirmed = []*item.Item{cur}
			}
		}
		m.session.Close()
		return m, tea.Quit

	case tea.KeyUp, tea.KeyCtrlP:
		m.moveCursor(-1)
		return m, nil

	case tea.KeyDown, tea.KeyCtrlN:
		m.moveCursor(+1)
		return m, nil

	case tea.KeyTab:
		if m.multi {
			if cur := m.session.Current(); cur != nil {
				m.session.List().ToggleSelected(cur.Key)
				m.moveCursor(+1)
			}
		}
		return m, nil
	}

	// Everything else edits the pattern.
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.startDebounce())
	}
	return m, cmd
}

// moveCursor shifts the display cursor, respecting reverse layout: in a
// reversed list the up arrow walks toward worse ranks.
func (m *Model) moveCursor(delta int) {
	list := m.session.List()
	if list.Reverse() {
		delta = -delta
	}
	rank := list.Cursor()
	if rank < 1 {
		rank = 1
	}
	list.SetCursor(rank + delta)
}

// startDebounce arms the per-keystroke timer; an older timer firing later is
// ignored.
func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// listHeight returns the number of visible result rows.
func (m *Model) listHeight() int {
	// one row of input, one status row
	const chrome = 2
	h := m.height - chrome
	if h < 1 {
		h = 20 // before the first WindowSizeMsg
	}
	return h
}

// --- View rendering ---

var (
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteRune('\n')
	b.WriteString(m.viewStatus())
	b.WriteRune('\n')
	b.WriteString(m.viewList())
	return b.String()
}

// viewStatus renders the count line with a spinner while work is in flight.
func (m *Model) viewStatus() string {
	var b strings.Builder
	if m.session.Active() {
		b.WriteString(m.spin.View())
		b.WriteRune(' ')
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d results", m.session.Count())))
	if m.multi {
		if n := len(m.session.Selected()); n > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  (%d marked)", n)))
		}
	}
	if m.warning != "" {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render(m.warning))
	}
	return b.String()
}

// viewList renders a window of the ranked list around the cursor.
func (m *Model) viewList() string {
	list := m.session.List()
	height := m.listHeight()

	cursor := list.Cursor()
	if cursor < 1 {
		cursor = 1
	}
	offset := 0
	if cursor > height {
		offset = cursor - height
	}

	window := list.Window(offset, height)
	var rows []string
	for i, it := range window {
		rank := offset + i + 1
		if list.Reverse() {
			rank = offset + len(window) - i
		}

		display := it.Text
		if it.Depth > 0 {
			display = strings.Repeat("  ", it.Depth) + display
		}
		display = ValidateUTF8(StripANSI(display))
		if m.width > 4 {
			display = MiddleTruncate(display, m.width-4)
		}

		marker := "  "
		style := normalStyle
		if m.multi && list.IsSelected(it.Key) {
			marker = "* "
			style = selectedStyle
		}
		if rank == cursor {
			marker = "> "
			style = cursorStyle
		}
		rows = append(rows, style.Render(marker+display))
	}
	return strings.Join(rows, "\n")
}
