// Package finder turns a set of producers into a single growing item
// collection. At most one production cycle is active per search value; a
// new search aborts the previous cycle, clears its items, and runs every
// registered producer concurrently. Results are filtered and deduplicated
// (first seen wins) before they enter shared state.
package finder

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/runger/fzpick/internal/filter"
	"github.com/runger/fzpick/internal/item"
	"github.com/runger/fzpick/internal/task"
)

// Producer is the external collaborator contract: given a search string,
// push zero or more results through emit and return when done. A producer
// must honor ctx cancellation without leaking outstanding requests; emit
// calls after cancellation are discarded by the finder, never an error.
type Producer interface {
	Name() string
	Produce(ctx context.Context, search string, emit func(item.Result)) error
}

// ProducerFunc adapts a plain function to the Producer interface.
type ProducerFunc struct {
	ProducerName string
	Fn           func(ctx context.Context, search string, emit func(item.Result)) error
}

func (p ProducerFunc) Name() string { return p.ProducerName }

func (p ProducerFunc) Produce(ctx context.Context, search string, emit func(item.Result)) error {
	return p.Fn(ctx, search, emit)
}

// Options configure a Finder.
type Options struct {
	Logger    *slog.Logger
	Filter    *filter.Filter
	Producers []Producer

	// AllowDuplicates disables identity-key deduplication.
	AllowDuplicates bool

	// MaxItems is a soft cap on collected items per cycle; 0 means
	// unbounded. Results past the cap are dropped with a warning.
	MaxItems int

	// OnWarning receives advisory producer failures (partial results).
	OnWarning func(producer string, err error)
}

// Finder owns the item collection: it is the only writer, appending during
// a cycle and clearing on restart. Readers take snapshots.
type Finder struct {
	logger    *slog.Logger
	filter    *filter.Filter
	producers []Producer
	allowDup  bool
	maxItems  int
	warn      func(string, error)

	mu      sync.Mutex
	items   []*item.Item
	seen    map[string]struct{}
	search  string
	started bool
	capped  bool
	gen     uint64
	tsk     *task.Task
	subs    []chan struct{}
}

// New creates a Finder over the given producers.
func New(opts Options) *Finder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		logger:    logger,
		filter:    opts.Filter,
		producers: opts.Producers,
		allowDup:  opts.AllowDuplicates,
		maxItems:  opts.MaxItems,
		warn:      opts.OnWarning,
		seen:      make(map[string]struct{}),
	}
}

// Changed reports whether the effective search differs from the last Run.
// The controller uses it to decide between a full restart and a cheap
// re-score.
func (f *Finder) Changed(search string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.started || f.search != search
}

// Run starts a new production cycle for the given search. Any previous
// cycle is aborted first; when the search changed, prior items are cleared
// before producers start. Run never blocks on producer work.
func (f *Finder) Run(ctx context.Context, search string) {
	f.mu.Lock()
	prev := f.tsk
	if !f.started || f.search != search {
		f.items = nil
		f.seen = make(map[string]struct{})
		f.capped = false
	}
	f.started = true
	f.search = search
	f.gen++
	gen := f.gen
	f.mu.Unlock()

	if prev != nil {
		prev.Abort()
	}

	pctx, cancel := context.WithCancel(ctx)

	t := task.Spawn(f.logger, "finder", func(h *task.Handle) error {
		var wg sync.WaitGroup
		for _, p := range f.producers {
			wg.Add(1)
			go func(p Producer) {
				defer wg.Done()
				err := p.Produce(pctx, search, func(r item.Result) {
					f.accept(gen, p.Name(), r)
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					// ProducerFailure is advisory: siblings keep running
					// and the cycle completes with partial results.
					f.logger.Warn("producer failed, results are partial",
						"producer", p.Name(), "search", search, "error", err)
					if f.warn != nil {
						f.warn(p.Name(), err)
					}
				}
			}(p)
		}

		tk := h.Task()
		go func() {
			wg.Wait()
			tk.Resume(nil)
		}()

		// Parked until every producer finished or the cycle is aborted.
		if _, err := h.Suspend(); err != nil {
			return err
		}
		return nil
	})

	// Abort must synchronously release outstanding producer requests.
	t.OnAbort(cancel)
	t.OnDone(func(error) {
		cancel()
		f.notifyAll()
	})

	f.mu.Lock()
	f.tsk = t
	f.mu.Unlock()
}

// accept filters, normalizes, and stores one producer result. Emissions
// from a superseded generation never mutate state, which is what guarantees
// the no-zombie-updates property after an abort.
func (f *Finder) accept(gen uint64, producer string, r item.Result) {
	it, err := r.Normalize()
	if err != nil {
		f.logger.Warn("dropping malformed result", "producer", producer, "error", err)
		return
	}
	if f.filter != nil && !f.filter.All() && !f.filter.Match(it) {
		return
	}

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	if f.maxItems > 0 && len(f.items) >= f.maxItems {
		first := !f.capped
		f.capped = true
		f.mu.Unlock()
		if first {
			f.logger.Warn("item cap reached, dropping further results",
				"producer", producer, "cap", f.maxItems)
		}
		return
	}
	if !f.allowDup {
		if _, dup := f.seen[it.Key]; dup {
			f.mu.Unlock()
			return
		}
		f.seen[it.Key] = struct{}{}
	}
	it.Index = len(f.items)
	f.items = append(f.items, it)
	subs := f.subs
	f.mu.Unlock()

	ping(subs)
}

// Count returns the number of items collected so far. It grows
// monotonically during a cycle.
func (f *Finder) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Items returns a snapshot of the collection. The underlying items are
// shared; the slice is not.
func (f *Finder) Items() []*item.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*item.Item, len(f.items))
	copy(out, f.items)
	return out
}

// Running reports whether a production cycle is in flight.
func (f *Finder) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tsk != nil && f.tsk.Running()
}

// Abort cancels the in-flight cycle, if any. Safe to call when idle.
func (f *Finder) Abort() {
	f.mu.Lock()
	t := f.tsk
	f.mu.Unlock()
	if t != nil {
		t.Abort()
	}
}

// Task exposes the current cycle task for completion callbacks.
func (f *Finder) Task() *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tsk
}

// Subscribe returns a channel pinged when items arrive or the cycle ends.
// Pings coalesce; receivers re-check state rather than counting them.
func (f *Finder) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe. Unknown
// channels are ignored. The slice is rebuilt rather than shifted in place
// because notifyAll pings a snapshot of it outside the lock.
func (f *Finder) Unsubscribe(ch <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]chan struct{}, 0, len(f.subs))
	for _, c := range f.subs {
		if (<-chan struct{})(c) != ch {
			subs = append(subs, c)
		}
	}
	f.subs = subs
}

func (f *Finder) notifyAll() {
	f.mu.Lock()
	subs := f.subs
	f.mu.Unlock()
	ping(subs)
}

func ping(subs []chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
