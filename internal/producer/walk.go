// Package producer holds the reference producers that feed the finder:
// a filesystem walker, an external-command adapter, and a recent-selections
// history source. They are external collaborators of the pipeline; the
// finder only sees the Producer contract.
package producer

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charlievieth/fastwalk"

	"github.com/runger/fzpick/internal/item"
)

// Walker emits every regular file under Root as a plain text candidate,
// path relative to Root. The search string is ignored; narrowing is the
// matcher's job in file mode.
type Walker struct {
	// Root defaults to ".".
	Root string

	// Follow resolves symlinks while walking.
	Follow bool

	// Hidden includes dot-files and dot-directories, which are skipped by
	// default.
	Hidden bool
}

func (w Walker) Name() string { return "walk" }

func (w Walker) Produce(ctx context.Context, _ string, emit func(item.Result)) error {
	root := w.Root
	if root == "" {
		root = "."
	}

	conf := &fastwalk.Config{Follow: w.Follow}
	err := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries cost themselves, not the walk.
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if !w.Hidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		emit(item.Result{Kind: item.KindText, Text: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
