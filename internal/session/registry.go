package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/runger/fzpick/internal/config"
	"github.com/runger/fzpick/internal/filter"
	"github.com/runger/fzpick/internal/finder"
	"github.com/runger/fzpick/internal/matcher"
	"github.com/runger/fzpick/internal/ranked"
)

// Registry is the session factory and the authoritative record of live
// sessions. Sessions deregister themselves on Close, so a non-empty
// registry after a picker exits points at a teardown leak.
type Registry struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// New builds a session from the options, wires the pipeline together, and
// registers it. The session is idle until its first Update.
func (r *Registry) New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = r.logger
	}
	cfg := opts.Config
	def := config.Default()
	if cfg.Progress.ShortMs <= 0 {
		cfg.Progress.ShortMs = def.Progress.ShortMs
	}
	if cfg.Progress.LongMs <= 0 {
		cfg.Progress.LongMs = def.Progress.LongMs
	}
	if cfg.List.TopK <= 0 {
		cfg.List.TopK = def.List.TopK
	}

	flt := opts.Filter
	if flt == nil {
		flt = filter.New(filter.Options{
			Cwd:     cfg.Filter.Cwd,
			Include: cfg.Filter.Include,
			Exclude: cfg.Filter.Exclude,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:                uuid.NewString(),
		logger:            logger,
		cfg:               cfg,
		reg:               r,
		ctx:               ctx,
		cancel:            cancel,
		wake:              make(chan struct{}, 1),
		search:            opts.Search,
		searchFromPattern: opts.SearchFromPattern,
		onChange:          opts.OnChange,
		onComplete:        opts.OnComplete,
		onAutoConfirm:     opts.OnAutoConfirm,
		onEmpty:           opts.OnEmpty,
	}

	s.list = ranked.New(ranked.Options{
		K:       cfg.List.TopK,
		Reverse: cfg.List.Reverse,
		OnChange: func() {
			s.dirty.Store(true)
			s.poke()
		},
	})
	s.finder = finder.New(finder.Options{
		Logger:          logger,
		Filter:          flt,
		Producers:       opts.Producers,
		AllowDuplicates: opts.AllowDuplicates,
		MaxItems:        cfg.Scoring.MaxItems,
		OnWarning:       opts.OnWarning,
	})
	s.matcher = matcher.New(matcher.Options{
		Logger:      logger,
		Scorer:      scorerFromConfig(cfg.Scoring),
		Finder:      s.finder,
		List:        s.list,
		SliceBudget: cfg.Matcher.SliceBudget,
	})

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	go s.progressLoop()

	logger.Debug("session created", "session", s.id, "producers", len(opts.Producers))
	return s
}

// Get looks up a live session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll tears down every live session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
