package picker

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/fzpick/internal/config"
	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/session"
)

func fixedProducer(texts ...string) finder.Producer {
	return finder.ProducerFunc{
		ProducerName: "fixed",
		Fn: func(_ context.Context, _ string, emit func(item.Result)) error {
			for _, txt := range texts {
				emit(item.Result{Kind: item.KindText, Text: txt})
			}
			return nil
		},
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.List.PauseMs = 1
	cfg.Progress.ShortMs = 2
	cfg.Progress.LongMs = 5
	return cfg
}

type testHarness struct {
	reg   *session.Registry
	model *Model
}

func newTestModel(t *testing.T, opts Options, texts ...string) *testHarness {
	t.Helper()
	reg := session.NewRegistry(nil)
	opts.Registry = reg
	opts.Session.Config = testConfig()
	opts.Session.Producers = []finder.Producer{fixedProducer(texts...)}
	opts.Session.Search = "s"
	m := NewModel(opts)
	m.width = 80
	m.height = 24
	t.Cleanup(m.Session().Close)
	return &testHarness{reg: reg, model: m}
}

// settle triggers the initial fetch and waits for the pipeline to finish.
func (h *testHarness) settle(t *testing.T) {
	t.Helper()
	h.model.Update(initMsg{})
	require.Eventually(t, func() bool {
		return !h.model.Session().Active()
	}, 2*time.Second, time.Millisecond)
	h.model.Update(changeMsg{})
}

func key(typ tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: typ} }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_EnterConfirmsCursorItem(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha", "beta", "gamma")
	h.settle(t)

	_, cmd := h.model.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd, "enter must quit")

	res := h.model.Results()
	require.Len(t, res, 1)
	assert.Equal(t, "alpha", res[0].Text)
	assert.Equal(t, 0, h.reg.Len(), "confirm closes the session")
}

func TestModel_CursorNavigation(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha", "beta", "gamma")
	h.settle(t)

	h.model.Update(key(tea.KeyDown))
	h.model.Update(key(tea.KeyDown))
	h.model.Update(key(tea.KeyUp))
	h.model.Update(key(tea.KeyEnter))

	res := h.model.Results()
	require.Len(t, res, 1)
	assert.Equal(t, "beta", res[0].Text)
}

func TestModel_EscCancels(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha")
	h.settle(t)

	_, cmd := h.model.Update(key(tea.KeyEsc))
	require.NotNil(t, cmd)

	assert.True(t, h.model.Cancelled())
	assert.Nil(t, h.model.Results())
	assert.Equal(t, 0, h.reg.Len(), "cancel closes the session")
}

func TestModel_MultiSelectWithTab(t *testing.T) {
	h := newTestModel(t, Options{Multi: true}, "alpha", "beta", "gamma")
	h.settle(t)

	h.model.Update(key(tea.KeyTab)) // mark alpha, cursor moves to beta
	h.model.Update(key(tea.KeyTab)) // mark beta
	h.model.Update(key(tea.KeyEnter))

	res := h.model.Results()
	require.Len(t, res, 2)
	texts := []string{res[0].Text, res[1].Text}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, texts)
}

func TestModel_TabIgnoredWithoutMulti(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha", "beta")
	h.settle(t)

	h.model.Update(key(tea.KeyTab))
	assert.Empty(t, h.model.Session().Selected())
}

func TestModel_DebounceDropsStaleTimers(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha", "albatross", "beta")
	h.settle(t)

	// Two keystrokes arm two timers; only the newest id may fire a session
	// update.
	h.model.Update(runes("a"))
	staleID := h.model.debounceID
	h.model.Update(runes("l"))

	h.model.Update(debounceMsg{id: staleID})
	assert.Equal(t, "", h.model.Session().Pattern(), "stale debounce must not apply")

	h.model.Update(debounceMsg{id: h.model.debounceID})
	assert.Equal(t, "al", h.model.Session().Pattern())
}

func TestModel_AutoConfirmMessageQuits(t *testing.T) {
	h := newTestModel(t, Options{}, "only")
	h.settle(t)

	it := h.model.Session().Get(1)
	require.NotNil(t, it)

	_, cmd := h.model.Update(confirmMsg{it: it})
	require.NotNil(t, cmd)
	res := h.model.Results()
	require.Len(t, res, 1)
	assert.Equal(t, "only", res[0].Text)
}

func TestModel_ViewShowsResultsAndWarnings(t *testing.T) {
	h := newTestModel(t, Options{}, "alpha", "beta")
	h.settle(t)

	view := h.model.View()
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")
	assert.Contains(t, view, "2 results")

	h.model.Update(warnMsg{producer: "walk", err: assert.AnError})
	assert.Contains(t, h.model.View(), "walk")
}

func TestModel_ViewWindowFollowsCursor(t *testing.T) {
	h := newTestModel(t, Options{},
		"r01", "r02", "r03", "r04", "r05", "r06", "r07", "r08", "r09", "r10")
	h.model.height = 6 // 4 visible rows
	h.settle(t)

	for i := 0; i < 9; i++ {
		h.model.Update(key(tea.KeyDown))
	}
	view := h.model.View()
	assert.Contains(t, view, "r10")
	assert.NotContains(t, view, "r01")
}

func TestModel_WindowSizeMeasuresPromptInCells(t *testing.T) {
	prompt := "検索> "
	h := newTestModel(t, Options{Prompt: prompt}, "alpha")

	h.model.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	assert.Equal(t, 40-runewidth.StringWidth(prompt)-1, h.model.input.Width)

	// CJK prompt: byte length would over-shrink the input by the
	// difference between bytes and display cells.
	assert.Greater(t, h.model.input.Width, 40-len(prompt)-1)
}
