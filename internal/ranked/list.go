// Package ranked maintains the globally ordered result sequence plus a
// bounded best-K subset that serves the first screen without scanning the
// whole set. Ordering is score-descending with insertion order as the
// deterministic tie-break, so cursor positions stay stable across
// re-scores.
package ranked

import (
	"sort"
	"sync"
	"time"

	"github.com/runger/fzpick/internal/item"
)

// DefaultTopK is the bounded-view size when the caller does not configure
// one.
const DefaultTopK = 64

// Options configure a List.
type Options struct {
	// K is the bounded-view size; DefaultTopK when <= 0.
	K int

	// Reverse flips the iteration direction of Window. It never changes
	// the scoring order.
	Reverse bool

	// OnChange is invoked (outside the list lock) whenever visible state
	// changes, unless notifications are paused.
	OnChange func()
}

// List is the ranked result collection. The matcher pushes into it; the
// controller pauses it and manages selection; the UI reads it.
type List struct {
	mu     sync.Mutex
	k      int
	revers bool
	notify func()

	items  []*item.Item
	sorted bool
	topK   []*item.Item

	cursor   int // 1-based rank; 0 means "top"
	selected map[string]struct{}

	paused     bool
	pending    bool
	pauseGen   uint64 // invalidates stale auto-unpause timers
	pauseTimer *time.Timer
}

// New creates an empty list.
func New(opts Options) *List {
	k := opts.K
	if k <= 0 {
		k = DefaultTopK
	}
	return &List{
		k:        k,
		revers:   opts.Reverse,
		notify:   opts.OnChange,
		sorted:   true,
		topK:     make([]*item.Item, 0, k),
		selected: make(map[string]struct{}),
	}
}

// less is the single ordering used everywhere: best score first, earliest
// insertion first among equals. Index is unique within a cycle, so this is
// a total order.
func less(a, b *item.Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// Push inserts a scored item. The bounded top-K view is maintained by
// bounded insertion sort (O(log K) search + O(K) shift, independent of the
// total size); the full ordering is established lazily on first deep read.
func (l *List) Push(it *item.Item) {
	l.mu.Lock()
	l.items = append(l.items, it)
	l.sorted = false
	l.pushTopKLocked(it)
	fire := l.noteChangeLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// PushAll bulk-inserts under a single lock acquisition and notification.
func (l *List) PushAll(items []*item.Item) {
	if len(items) == 0 {
		return
	}
	l.mu.Lock()
	for _, it := range items {
		l.items = append(l.items, it)
		l.pushTopKLocked(it)
	}
	l.sorted = false
	fire := l.noteChangeLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

func (l *List) pushTopKLocked(it *item.Item) {
	n := len(l.topK)
	if n == l.k && !less(it, l.topK[n-1]) {
		return
	}
	pos := sort.Search(n, func(i int) bool { return less(it, l.topK[i]) })
	if n < l.k {
		l.topK = append(l.topK, nil)
	} else {
		n-- // worst entry falls off
	}
	copy(l.topK[pos+1:], l.topK[pos:n])
	l.topK[pos] = it
}

// Count returns the number of items currently ranked.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns the item at the given 1-based rank, nil when out of range.
// Ranks are dense and contiguous. Ranks within the bounded view are served
// without touching the full ordering.
func (l *List) Get(rank int) *item.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(rank)
}

func (l *List) getLocked(rank int) *item.Item {
	if rank < 1 || rank > len(l.items) {
		return nil
	}
	if rank <= len(l.topK) {
		return l.topK[rank-1]
	}
	l.ensureSortedLocked()
	return l.items[rank-1]
}

func (l *List) ensureSortedLocked() {
	if l.sorted {
		return
	}
	sort.Slice(l.items, func(i, j int) bool { return less(l.items[i], l.items[j]) })
	l.sorted = true
}

// Current returns the item under the cursor; rank 1 when no cursor has been
// set.
func (l *List) Current() *item.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	rank := l.cursor
	if rank < 1 {
		rank = 1
	}
	return l.getLocked(rank)
}

// SetCursor moves the cursor to the given rank, clamped to the valid range.
func (l *List) SetCursor(rank int) {
	l.mu.Lock()
	if rank < 1 {
		rank = 1
	}
	if n := len(l.items); rank > n {
		rank = n
	}
	l.cursor = rank
	l.mu.Unlock()
}

// Cursor returns the current 1-based cursor rank (0 before any SetCursor).
func (l *List) Cursor() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// Window returns up to n items starting at the given 0-based offset in
// display order: rank order normally, reversed when the list was built with
// Reverse. Scoring order is unaffected.
func (l *List) Window(offset, n int) []*item.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset < 0 || n <= 0 || offset >= len(l.items) {
		return nil
	}
	if offset+n > len(l.items) {
		n = len(l.items) - offset
	}
	out := make([]*item.Item, n)
	for i := 0; i < n; i++ {
		rank := offset + i + 1
		if l.revers {
			out[n-1-i] = l.getLocked(rank)
		} else {
			out[i] = l.getLocked(rank)
		}
	}
	return out
}

// TopKeys returns the identity keys of the bounded view in rank order. The
// controller feeds these to the matcher as the priority subsequence.
func (l *List) TopKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, len(l.topK))
	for i, it := range l.topK {
		keys[i] = it.Key
	}
	return keys
}

// SetSelected replaces the selection with the given identity keys.
// Selection is keyed by identity, never by rank, so it survives re-scores
// and full restarts that yield items with the same key.
func (l *List) SetSelected(keys []string) {
	l.mu.Lock()
	l.selected = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		l.selected[k] = struct{}{}
	}
	fire := l.noteChangeLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// ToggleSelected flips one key's membership in the selection.
func (l *List) ToggleSelected(key string) {
	l.mu.Lock()
	if _, ok := l.selected[key]; ok {
		delete(l.selected, key)
	} else {
		l.selected[key] = struct{}{}
	}
	fire := l.noteChangeLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// IsSelected reports whether the key is marked.
func (l *List) IsSelected(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.selected[key]
	return ok
}

// Selected returns the marked keys, sorted for determinism.
func (l *List) Selected() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.selected))
	for k := range l.selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SelectedItems resolves the selection against the current item set,
// silently skipping keys with no live item.
func (l *List) SelectedItems() []*item.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureSortedLocked()
	out := make([]*item.Item, 0, len(l.selected))
	for _, it := range l.items {
		if _, ok := l.selected[it.Key]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Pause suppresses change notifications for at most d. Data keeps updating
// underneath; changes made during the window coalesce into a single
// notification when the window elapses (or when Unpause is called earlier,
// e.g. on pipeline idle).
func (l *List) Pause(d time.Duration) {
	l.mu.Lock()
	l.paused = true
	l.pauseGen++
	gen := l.pauseGen
	if l.pauseTimer != nil {
		l.pauseTimer.Stop()
	}
	l.pauseTimer = time.AfterFunc(d, func() { l.unpause(gen) })
	l.mu.Unlock()
}

// Unpause re-enables notifications, flushing one coalesced notification if
// anything changed during the pause. Safe to call when not paused.
func (l *List) Unpause() {
	l.mu.Lock()
	l.pauseGen++ // kill any outstanding auto-unpause timer
	fire := l.clearPauseLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// unpause is the auto-unpause path; a timer from a superseded Pause window
// is ignored.
func (l *List) unpause(gen uint64) {
	l.mu.Lock()
	if gen != l.pauseGen {
		l.mu.Unlock()
		return
	}
	fire := l.clearPauseLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// clearPauseLocked lifts the pause and stops its timer, reporting whether
// a coalesced notification should fire once the lock is released.
func (l *List) clearPauseLocked() bool {
	if l.pauseTimer != nil {
		l.pauseTimer.Stop()
		l.pauseTimer = nil
	}
	wasPending := l.paused && l.pending
	l.paused = false
	l.pending = false
	return wasPending && l.notify != nil
}

// Paused reports whether notifications are currently suppressed.
func (l *List) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Clear drops all items and the cursor but keeps the selection keys, which
// re-attach by identity when a later cycle produces matching items.
func (l *List) Clear() {
	l.mu.Lock()
	l.items = nil
	l.topK = l.topK[:0]
	l.sorted = true
	l.cursor = 0
	fire := l.noteChangeLocked()
	l.mu.Unlock()
	if fire {
		l.notify()
	}
}

// Reverse reports the display-order flag.
func (l *List) Reverse() bool { return l.revers }

func (l *List) noteChangeLocked() bool {
	if l.notify == nil {
		return false
	}
	if l.paused {
		l.pending = true
		return false
	}
	return true
}
