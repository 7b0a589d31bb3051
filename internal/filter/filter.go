// Package filter provides the cheap static predicate applied to candidate
// items before they ever reach scoring. A Filter is an immutable snapshot
// taken at session start; the only sanctioned mutation is an explicit
// working-directory change, which produces a new snapshot.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/runger/fzpick/internal/item"
)

// Predicate is a caller-supplied item check.
type Predicate func(*item.Item) bool

// Filter combines the configured constraints. The zero value matches
// everything.
type Filter struct {
	cwd       string
	buffer    string
	include   []string
	exclude   []string
	predicate Predicate
}

// Options configure a Filter snapshot.
type Options struct {
	// Cwd restricts location items to paths under this directory.
	Cwd string

	// Buffer restricts location items to exactly this file.
	Buffer string

	// Include, when non-empty, admits only paths under one of these
	// prefixes. Exclude rejects paths under any of its prefixes and is
	// checked after Include.
	Include []string
	Exclude []string

	// Predicate is an arbitrary caller check, evaluated first.
	Predicate Predicate
}

// New takes a snapshot of the given constraints.
func New(opts Options) *Filter {
	return &Filter{
		cwd:       cleanPath(opts.Cwd),
		buffer:    cleanPath(opts.Buffer),
		include:   cleanPaths(opts.Include),
		exclude:   cleanPaths(opts.Exclude),
		predicate: opts.Predicate,
	}
}

// All reports whether no constraints are configured. Callers use it to
// bypass Match entirely on the default path.
func (f *Filter) All() bool {
	return f == nil ||
		(f.cwd == "" && f.buffer == "" && len(f.include) == 0 &&
			len(f.exclude) == 0 && f.predicate == nil)
}

// Match applies each configured constraint in turn, short-circuiting on the
// first failure. Items without a location trivially satisfy the path
// constraints.
func (f *Filter) Match(it *item.Item) bool {
	if f.All() {
		return true
	}
	if f.predicate != nil && !f.predicate(it) {
		return false
	}
	if f.buffer != "" {
		if it.Loc == nil || cleanPath(it.Loc.Path) != f.buffer {
			return false
		}
	}
	if f.cwd != "" && it.Loc != nil && !underPrefix(it.Loc.Path, f.cwd) {
		return false
	}
	if len(f.include) > 0 && it.Loc != nil {
		ok := false
		for _, p := range f.include {
			if underPrefix(it.Loc.Path, p) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.exclude) > 0 && it.Loc != nil {
		for _, p := range f.exclude {
			if underPrefix(it.Loc.Path, p) {
				return false
			}
		}
	}
	return true
}

// WithWorkingDir returns a new snapshot with the working directory
// replaced; every other constraint is carried over unchanged.
func (f *Filter) WithWorkingDir(cwd string) *Filter {
	nf := *f
	nf.cwd = cleanPath(cwd)
	return &nf
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

func cleanPaths(ps []string) []string {
	if len(ps) == 0 {
		return nil
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}

// underPrefix reports whether path sits at or below dir, component-wise.
func underPrefix(path, dir string) bool {
	path = filepath.Clean(path)
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
