// Package session orchestrates the picker pipeline: it owns one finder,
// one matcher, and one ranked list per picker session, decides between a
// cheap re-score and a full restart on every pattern edit, applies
// backpressure by pausing list refreshes (never work), and drives UI
// refresh notifications at an adaptive interval.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runger/fzpick/internal/config"
	"github.com/runger/fzpick/internal/filter"
	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/matcher"
	"github.com/runger/fzpick/internal/ranked"
	"github.com/runger/fzpick/internal/task"
)

// Options configure one picker session.
type Options struct {
	Logger    *slog.Logger
	Config    config.Config
	Producers []finder.Producer

	// Filter overrides the filter built from Config.Filter when non-nil.
	Filter *filter.Filter

	// Search is the initial search string handed to producers. When
	// SearchFromPattern is set, the search follows the live pattern
	// instead (grep-style sessions), so every pattern edit is a full
	// restart.
	Search            string
	SearchFromPattern bool

	// AllowDuplicates disables identity-key deduplication in the finder.
	AllowDuplicates bool

	// OnChange signals the consumer to re-render. OnComplete fires once
	// per cycle when production and scoring have fully finished without
	// being superseded; OnAutoConfirm and OnEmpty fire from inside that
	// completion, per the session config.
	OnChange      func()
	OnComplete    func(count int)
	OnAutoConfirm func(it *item.Item)
	OnEmpty       func()

	// OnWarning receives advisory producer failures.
	OnWarning func(producer string, err error)
}

// Session is the controller for one picker lifetime.
type Session struct {
	id     string
	logger *slog.Logger
	cfg    config.Config
	reg    *Registry

	finder  *finder.Finder
	matcher *matcher.Matcher
	list    *ranked.List

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	dirty  atomic.Bool

	onChange      func()
	onComplete    func(int)
	onAutoConfirm func(*item.Item)
	onEmpty       func()

	mu                sync.Mutex
	pattern           string
	search            string
	searchFromPattern bool
	started           bool
	cycle             uint64
	completedCycle    uint64
	closed            bool

	// cycleFinder and cycleMatcher are the tasks belonging to cycle,
	// recorded under mu in the same critical section that publishes the
	// cycle number. Completion is judged against these, never against
	// whatever tasks happen to be live when a progress tick lands.
	cycleFinder  *task.Task
	cycleMatcher *task.Task
}

// scorerFromConfig maps the scoring tunables onto a matcher strategy.
func scorerFromConfig(sc config.ScoringConfig) matcher.Scorer {
	var cm matcher.CaseMode
	switch sc.Case {
	case "ignore":
		cm = matcher.CaseIgnore
	case "respect":
		cm = matcher.CaseRespect
	default:
		cm = matcher.CaseSmart
	}
	if sc.Mode == "exact" {
		return matcher.ExactScorer{Case: cm}
	}
	return matcher.FuzzyScorer{Case: cm}
}

// ID returns the registry identifier of this session.
func (s *Session) ID() string { return s.id }

// Update applies a pattern edit. It decides the cheapest correct reaction:
// a full restart when the effective search changed, nothing but a refresh
// when the matcher already scored this exact pattern, and a re-score
// otherwise.
func (s *Session) Update(pattern string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pattern = pattern
	if s.searchFromPattern {
		s.search = pattern
	}
	search := s.search
	started := s.started
	s.mu.Unlock()

	switch {
	case s.finder.Changed(search) || !started:
		s.restart(pattern, search)
	case s.matcher.Pattern() == pattern:
		// Cached results are already correct; just re-show them.
		s.dirty.Store(true)
		s.poke()
	default:
		s.rescore(pattern)
	}
}

// SetSearch replaces the search string directly (sessions whose search is
// not derived from the pattern). A changed value invalidates the whole
// pipeline on the next Update; an unchanged one is a no-op.
func (s *Session) SetSearch(search string) {
	s.mu.Lock()
	if s.closed || s.searchFromPattern {
		s.mu.Unlock()
		return
	}
	s.search = search
	pattern := s.pattern
	s.mu.Unlock()

	if s.finder.Changed(search) {
		s.restart(pattern, search)
	}
}

// restart is the expensive path: abort the running cycle, clear collected
// items, re-run every producer, then re-score. The list is paused for the
// configured window so the teardown/rebuild never flickers through to the
// UI.
func (s *Session) restart(pattern, search string) {
	prios := s.list.TopKeys()
	s.list.Pause(time.Duration(s.cfg.List.PauseMs) * time.Millisecond)

	s.logger.Debug("session restart", "session", s.id, "search", search, "pattern", pattern)
	s.matcher.Init(pattern)
	s.finder.Run(s.ctx, search)
	s.matcher.Run(s.ctx, prios)

	// The new cycle becomes visible only once its tasks are installed;
	// a progress tick must never pair a fresh cycle number with the
	// previous cycle's (or no) tasks.
	s.mu.Lock()
	s.started = true
	s.cycle++
	s.cycleFinder = s.finder.Task()
	s.cycleMatcher = s.matcher.Task()
	s.mu.Unlock()
	s.poke()
}

// rescore keeps the collected items and re-scores them under the new
// pattern, previously visible entries first.
func (s *Session) rescore(pattern string) {
	prios := s.list.TopKeys()
	s.list.Pause(time.Duration(s.cfg.List.PauseMs) * time.Millisecond)

	s.logger.Debug("session rescore", "session", s.id, "pattern", pattern)
	s.matcher.Init(pattern)
	s.matcher.Run(s.ctx, prios)

	// Same ordering as restart: tasks first, then the cycle number. The
	// finder task carries over; scoring alone was invalidated.
	s.mu.Lock()
	s.started = true
	s.cycle++
	s.cycleFinder = s.finder.Task()
	s.cycleMatcher = s.matcher.Task()
	s.mu.Unlock()
	s.poke()
}

// Active reports whether the result set is still being produced or scored.
func (s *Session) Active() bool {
	return s.finder.Running() || s.matcher.Running()
}

// Pattern returns the live pattern.
func (s *Session) Pattern() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pattern
}

// Search returns the effective search string.
func (s *Session) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

// List exposes the ranked results for read-only consumption by the UI.
func (s *Session) List() *ranked.List { return s.list }

// Count returns the number of ranked results.
func (s *Session) Count() int { return s.list.Count() }

// Get returns the result at the given 1-based rank.
func (s *Session) Get(rank int) *item.Item { return s.list.Get(rank) }

// Current returns the result under the cursor.
func (s *Session) Current() *item.Item { return s.list.Current() }

// Selected returns the marked identity keys.
func (s *Session) Selected() []string { return s.list.Selected() }

// Close tears the session down deterministically: abort production and
// scoring, release the result set, and deregister. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.finder.Abort()
	s.matcher.Abort()
	s.list.Unpause()
	s.list.Clear()
	if s.reg != nil {
		s.reg.remove(s.id)
	}
	s.logger.Debug("session closed", "session", s.id)
}

// poke wakes the progress loop early.
func (s *Session) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// progressLoop polls pipeline state at an adaptive interval: fast while
// the visible window is still filling, slow once it is full. It flushes
// coalesced change notifications and fires the completion callbacks
// exactly once per cycle.
func (s *Session) progressLoop() {
	for {
		interval := time.Duration(s.cfg.Progress.ShortMs) * time.Millisecond
		if s.list.Count() >= s.cfg.List.TopK {
			interval = time.Duration(s.cfg.Progress.LongMs) * time.Millisecond
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-time.After(interval):
		}

		// Completion may unpause the list and mark it dirty; running it
		// first folds the completion refresh into this tick's single
		// notification.
		s.checkCompletion()
		if s.dirty.Swap(false) && s.onChange != nil {
			s.onChange()
		}
	}
}

// checkCompletion detects the "production fully completed" edge for the
// current cycle and runs the once-only completion behavior: unpause the
// list (pipeline idle beats the pause window), notify, and apply the
// auto-confirm / no-results rules.
func (s *Session) checkCompletion() {
	s.mu.Lock()
	if !s.started || s.completedCycle == s.cycle || s.closed {
		s.mu.Unlock()
		return
	}
	ft, mt := s.cycleFinder, s.cycleMatcher
	if (ft != nil && ft.Running()) || (mt != nil && mt.Running()) {
		s.mu.Unlock()
		return
	}
	// A cycle that was aborted rather than finished reports nothing; the
	// superseding cycle will complete on its own.
	if (ft != nil && ft.Err() != nil) || (mt != nil && mt.Err() != nil) {
		s.completedCycle = s.cycle
		s.mu.Unlock()
		return
	}
	s.completedCycle = s.cycle
	s.mu.Unlock()

	s.list.Unpause()
	count := s.list.Count()
	s.logger.Debug("cycle complete", "session", s.id, "results", count)

	// The active→idle edge is itself a visible change.
	s.dirty.Store(true)

	if s.onComplete != nil {
		s.onComplete(count)
	}
	switch {
	case count == 0:
		// EmptyResult: a completed, non-aborted cycle with zero items is
		// advisory, not a failure.
		if s.onEmpty != nil {
			s.onEmpty()
		}
	case count == 1 && s.cfg.Session.AutoConfirm:
		if s.onAutoConfirm != nil {
			s.onAutoConfirm(s.list.Get(1))
		}
	}
}
