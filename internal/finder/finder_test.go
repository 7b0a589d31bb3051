package finder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/fzpick/internal/filter"
	"github.com/runger/fzpick/internal/item"
)

// staticProducer emits a fixed set of text results and completes.
type staticProducer struct {
	name  string
	texts []string
	keys  []string // optional explicit keys, parallel to texts
}

func (p staticProducer) Name() string { return p.name }

func (p staticProducer) Produce(_ context.Context, _ string, emit func(item.Result)) error {
	for i, txt := range p.texts {
		r := item.Result{Kind: item.KindText, Text: txt}
		if p.keys != nil {
			r.Key = p.keys[i]
		}
		emit(r)
	}
	return nil
}

// blockingProducer never calls back until its context is cancelled.
type blockingProducer struct {
	started chan struct{}
}

func (p *blockingProducer) Name() string { return "blocking" }

func (p *blockingProducer) Produce(ctx context.Context, _ string, _ func(item.Result)) error {
	close(p.started)
	<-ctx.Done()
	return ctx.Err()
}

func waitDone(t *testing.T, f *Finder) {
	t.Helper()
	require.Eventually(t, func() bool { return !f.Running() },
		2*time.Second, time.Millisecond, "cycle never completed")
}

func TestRun_CollectsAndDeduplicates(t *testing.T) {
	t.Parallel()

	// Three producers returning 2, 0, and 5 items, with one identity
	// duplicated across producers: 7 raw minus 1 dedup = 6.
	f := New(Options{Producers: []Producer{
		staticProducer{name: "a", texts: []string{"alpha", "beta"}},
		staticProducer{name: "b"},
		staticProducer{name: "c", texts: []string{"gamma", "delta", "beta", "epsilon", "zeta"}},
	}})

	f.Run(context.Background(), "foo")
	waitDone(t, f)

	assert.Equal(t, 6, f.Count())

	// First-seen wins regardless of which producer completed last.
	seen := make(map[string]bool)
	for _, it := range f.Items() {
		assert.False(t, seen[it.Key], "duplicate key %q reached the collection", it.Key)
		seen[it.Key] = true
	}
}

func TestRun_InsertionIndicesAreDense(t *testing.T) {
	t.Parallel()

	f := New(Options{Producers: []Producer{
		staticProducer{name: "a", texts: []string{"one", "two", "three"}},
	}})
	f.Run(context.Background(), "x")
	waitDone(t, f)

	for i, it := range f.Items() {
		assert.Equal(t, i, it.Index)
	}
}

func TestChanged_Semantics(t *testing.T) {
	t.Parallel()

	f := New(Options{Producers: []Producer{staticProducer{name: "a", texts: []string{"x"}}}})

	assert.True(t, f.Changed("foo"), "never ran: everything is a change")
	f.Run(context.Background(), "foo")
	waitDone(t, f)

	assert.False(t, f.Changed("foo"))
	assert.True(t, f.Changed("bar"))
	assert.True(t, f.Changed(""))
}

func TestRun_NewSearchClearsItems(t *testing.T) {
	t.Parallel()

	f := New(Options{Producers: []Producer{staticProducer{name: "a", texts: []string{"x", "y"}}}})

	f.Run(context.Background(), "one")
	waitDone(t, f)
	require.Equal(t, 2, f.Count())

	f.Run(context.Background(), "two")
	waitDone(t, f)
	assert.Equal(t, 2, f.Count(), "old items cleared, new cycle repopulated")
}

func TestRun_BlockingProducerUntilAbort(t *testing.T) {
	t.Parallel()

	bp := &blockingProducer{started: make(chan struct{})}
	f := New(Options{Producers: []Producer{bp}})

	f.Run(context.Background(), "foo")
	<-bp.started

	// A producer that never calls back leaves the cycle running
	// indefinitely; there is no implicit timeout.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, f.Running())

	f.Abort()
	waitDone(t, f)
	assert.False(t, f.Running())
	assert.Zero(t, f.Count())
}

func TestRun_AbortedGenerationCannotMutate(t *testing.T) {
	t.Parallel()

	emitCh := make(chan func(item.Result), 1)
	slow := ProducerFunc{
		ProducerName: "slow",
		Fn: func(ctx context.Context, _ string, emit func(item.Result)) error {
			emitCh <- emit
			<-ctx.Done()
			return ctx.Err()
		},
	}
	f := New(Options{Producers: []Producer{slow}})

	f.Run(context.Background(), "old")
	emit := <-emitCh
	f.Abort()
	waitDone(t, f)

	// A zombie callback from the aborted generation must not append.
	emit(item.Result{Kind: item.KindText, Text: "stale"})
	assert.Zero(t, f.Count())

	// And it must not leak into the next cycle either.
	f.Run(context.Background(), "new")
	emit(item.Result{Kind: item.KindText, Text: "stale-again"})
	newEmit := <-emitCh
	newEmit(item.Result{Kind: item.KindText, Text: "fresh"})
	f.Abort()
	waitDone(t, f)

	items := f.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Text)
}

func TestRun_ProducerFailureIsAdvisory(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend unavailable")
	failing := ProducerFunc{
		ProducerName: "failing",
		Fn: func(context.Context, string, func(item.Result)) error {
			return boom
		},
	}

	var warned []string
	f := New(Options{
		Producers: []Producer{
			failing,
			staticProducer{name: "ok", texts: []string{"survivor"}},
		},
		OnWarning: func(producer string, err error) {
			warned = append(warned, fmt.Sprintf("%s: %v", producer, err))
		},
	})

	f.Run(context.Background(), "foo")
	waitDone(t, f)

	// The sibling's results survive; the failure surfaces as a warning.
	assert.Equal(t, 1, f.Count())
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], "failing")
	assert.Contains(t, warned[0], "backend unavailable")
}

func TestRun_FilterAppliedBeforeStorage(t *testing.T) {
	t.Parallel()

	loc := func(path string) item.Result {
		return item.Result{Kind: item.KindLocation, Text: path, Loc: item.NewLocation(path, 1, 1, 0, 0)}
	}
	p := ProducerFunc{
		ProducerName: "paths",
		Fn: func(_ context.Context, _ string, emit func(item.Result)) error {
			emit(loc("/work/a.go"))
			emit(loc("/elsewhere/b.go"))
			return nil
		},
	}
	f := New(Options{
		Producers: []Producer{p},
		Filter:    filter.New(filter.Options{Cwd: "/work"}),
	})

	f.Run(context.Background(), "x")
	waitDone(t, f)

	items := f.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "/work/a.go", items[0].Text)
}

func TestRun_MalformedResultSkipped(t *testing.T) {
	t.Parallel()

	p := ProducerFunc{
		ProducerName: "mixed",
		Fn: func(_ context.Context, _ string, emit func(item.Result)) error {
			emit(item.Result{Kind: item.KindText, Text: ""}) // malformed
			emit(item.Result{Kind: item.KindText, Text: "good"})
			return nil
		},
	}
	f := New(Options{Producers: []Producer{p}})
	f.Run(context.Background(), "x")
	waitDone(t, f)

	assert.Equal(t, 1, f.Count())
}

func TestRun_SoftItemCap(t *testing.T) {
	t.Parallel()

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("it-%d", i)
	}
	f := New(Options{
		Producers: []Producer{staticProducer{name: "many", texts: texts}},
		MaxItems:  4,
	})
	f.Run(context.Background(), "x")
	waitDone(t, f)

	assert.Equal(t, 4, f.Count())
}

func TestRun_DuplicatesAllowedWhenConfigured(t *testing.T) {
	t.Parallel()

	f := New(Options{
		Producers: []Producer{
			staticProducer{name: "a", texts: []string{"same", "same"}},
		},
		AllowDuplicates: true,
	})
	f.Run(context.Background(), "x")
	waitDone(t, f)

	assert.Equal(t, 2, f.Count())
}

func TestSubscribe_PingsOnAppendAndCompletion(t *testing.T) {
	t.Parallel()

	f := New(Options{Producers: []Producer{staticProducer{name: "a", texts: []string{"x"}}}})
	sub := f.Subscribe()

	f.Run(context.Background(), "foo")

	select {
	case <-sub:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping after append/completion")
	}
	waitDone(t, f)
}

func TestUnsubscribe_RemovesChannel(t *testing.T) {
	t.Parallel()

	f := New(Options{Producers: []Producer{staticProducer{name: "a", texts: []string{"x"}}}})
	kept := f.Subscribe()
	dropped := f.Subscribe()
	f.Unsubscribe(dropped)

	f.Run(context.Background(), "foo")
	waitDone(t, f)

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining subscriber got no ping")
	}
	select {
	case <-dropped:
		t.Fatal("unsubscribed channel was pinged")
	default:
	}
}
