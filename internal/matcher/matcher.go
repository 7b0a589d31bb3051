package matcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/ranked"
	"github.com/runger/fzpick/internal/task"
)

// DefaultSliceBudget is the number of items scored between cooperative
// yields when the caller does not configure one.
const DefaultSliceBudget = 256

// cached is a memoized scoring outcome for one item key under the current
// pattern. Remembering misses matters as much as hits: a re-run with the
// same pattern must not call the scorer at all.
type cached struct {
	score   float64
	matched bool
}

// Options configure a Matcher.
type Options struct {
	Logger *slog.Logger
	Scorer Scorer
	Finder *finder.Finder
	List   *ranked.List

	// SliceBudget is the number of items scored before the task yields;
	// DefaultSliceBudget when <= 0.
	SliceBudget int
}

// Matcher consumes the finder's growing item set and pushes scored items
// into the ranked list. It reads items and writes only their score slot,
// never identity or content.
type Matcher struct {
	logger *slog.Logger
	scorer Scorer
	finder *finder.Finder
	list   *ranked.List
	budget int

	mu      sync.Mutex
	pattern string
	cache   map[string]cached
	gen     uint64
	tsk     *task.Task
}

// New creates a Matcher bound to a finder and a ranked list.
func New(opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = FuzzyScorer{Case: CaseSmart}
	}
	budget := opts.SliceBudget
	if budget <= 0 {
		budget = DefaultSliceBudget
	}
	return &Matcher{
		logger: logger,
		scorer: scorer,
		finder: opts.Finder,
		list:   opts.List,
		budget: budget,
		cache:  make(map[string]cached),
	}
}

// Init resets scoring state for a new pattern string. It does not touch
// the finder and does not start any work; call Run afterwards.
func (m *Matcher) Init(pattern string) {
	m.mu.Lock()
	if pattern != m.pattern {
		m.cache = make(map[string]cached)
	}
	m.pattern = pattern
	m.mu.Unlock()
}

// Pattern returns the pattern this matcher was last initialized with. The
// controller compares it against the live pattern to decide whether a
// re-score is needed at all.
func (m *Matcher) Pattern() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pattern
}

// Empty reports whether no scored items exist yet.
func (m *Matcher) Empty() bool { return m.list.Count() == 0 }

// Running reports whether a scoring pass is in flight.
func (m *Matcher) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tsk != nil && m.tsk.Running()
}

// Abort cancels the in-flight scoring pass, if any.
func (m *Matcher) Abort() {
	m.mu.Lock()
	t := m.tsk
	m.mu.Unlock()
	if t != nil {
		t.Abort()
	}
}

// Task exposes the current scoring task for completion callbacks.
func (m *Matcher) Task() *task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tsk
}

// Run starts a scoring pass over the current item collection, aborting any
// pass already in flight. The ranked list is rebuilt; scores memoized under
// the current pattern are reused without invoking the scorer, so a re-run
// with an unchanged pattern costs no scoring work.
//
// prios lists identity keys to score before the remainder — the controller
// passes the previously visible top-K so the first screen stays fresh while
// the full re-score proceeds underneath.
func (m *Matcher) Run(ctx context.Context, prios []string) {
	m.mu.Lock()
	prev := m.tsk
	m.gen++
	gen := m.gen
	pattern := m.pattern
	m.mu.Unlock()

	if prev != nil {
		prev.Abort()
	}
	m.list.Clear()

	t := task.Spawn(m.logger, "matcher", func(h *task.Handle) error {
		return m.score(h, gen, pattern, prios)
	})

	m.mu.Lock()
	m.tsk = t
	m.mu.Unlock()

	// Tie the pass to the caller's context: session close cancels scoring
	// the same way it cancels production.
	if ctx != nil && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, t.Abort)
		t.OnDone(func(error) { stop() })
	}
}

// score is the scoring task body.
func (m *Matcher) score(h *task.Handle, gen uint64, pattern string, prios []string) error {
	// Each pass parks on its own subscription. Sharing one channel would
	// let a superseded pass, still draining, swallow the ping that was
	// meant to wake the live pass for the final completion check.
	sub := m.finder.Subscribe()
	defer m.finder.Unsubscribe(sub)

	n := 0
	processed := make(map[int]struct{})

	tick := func() error {
		n++
		if n%m.budget == 0 {
			return h.Yield()
		}
		return nil
	}

	// Priority pass: previously visible items first, in their old rank
	// order, so "pattern grew by one character" feels instant.
	if len(prios) > 0 {
		byKey := make(map[string]*item.Item)
		for _, it := range m.finder.Items() {
			byKey[it.Key] = it
		}
		for _, key := range prios {
			it, ok := byKey[key]
			if !ok {
				continue
			}
			m.scoreOne(gen, pattern, it)
			processed[it.Index] = struct{}{}
			if err := tick(); err != nil {
				return err
			}
		}
	}

	// Main pass: chase the growing collection until the finder is done and
	// everything has been scored.
	next := 0
	for {
		items := m.finder.Items()
		for next < len(items) {
			it := items[next]
			next++
			if _, done := processed[it.Index]; done {
				continue
			}
			m.scoreOne(gen, pattern, it)
			if err := tick(); err != nil {
				return err
			}
		}

		if !m.finder.Running() && next >= m.finder.Count() {
			return nil
		}

		select {
		case <-sub:
		case <-h.Aborted():
			return task.ErrAborted
		}
	}
}

// scoreOne scores a single item and pushes it when it matches. Pushes from
// a superseded generation are rejected, so an aborted pass can never dirty
// a newer list.
func (m *Matcher) scoreOne(gen uint64, pattern string, it *item.Item) {
	var (
		score   float64
		matched bool
	)

	if pattern == "" {
		// Pass-through: every item scores equal, producer order preserved
		// by the insertion-order tie-break.
		matched = true
	} else {
		// The cache belongs to the live pattern. A pass that outlived an
		// Init must neither read nor write it.
		m.mu.Lock()
		c, hit := m.cache[it.Key]
		live := pattern == m.pattern
		m.mu.Unlock()
		if hit && live {
			score, matched = c.score, c.matched
		} else {
			score, matched = m.safeScore(pattern, it.Text)
			m.mu.Lock()
			if pattern == m.pattern {
				m.cache[it.Key] = cached{score: score, matched: matched}
			}
			m.mu.Unlock()
		}
	}

	if !matched {
		return
	}
	m.pushIfLive(gen, it, score)
}

// pushIfLive publishes the score and inserts the item unless a newer pass
// has started. The generation re-check and the push form one critical
// section: a push that wins the lock before Run bumps the generation
// happens before Run's list clear, so a superseded pass can never leak an
// entry into the rebuilt list or race the live pass on the score slot.
func (m *Matcher) pushIfLive(gen uint64, it *item.Item, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	it.Score = score
	m.list.Push(it)
}

// safeScore contains scoring failures: a strategy that panics on a
// malformed item costs that one item, not the pass.
func (m *Matcher) safeScore(pattern, text string) (score float64, matched bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("scorer failed, skipping item", "pattern", pattern, "panic", r)
			score, matched = 0, false
		}
	}()
	return m.scorer.Score(pattern, text)
}
