// Package item defines the candidate records that flow through the picker
// pipeline: producer results, normalized items, source locations, and the
// symbol-tree arena used by hierarchical producers.
package item

import (
	"errors"
	"fmt"
)

// Kind identifies the shape of a producer result. The set is closed;
// producers emitting anything else are rejected at the normalization
// boundary.
type Kind int

const (
	// KindText is a plain display string with no location.
	KindText Kind = iota
	// KindLocation is a string anchored to a position in a file.
	KindLocation
	// KindSymbol is a node in a symbol hierarchy (carries a nesting depth).
	KindSymbol
)

// ErrMalformed is returned when a producer result cannot be normalized
// into an Item.
var ErrMalformed = errors.New("item: malformed producer result")

// Item is a single candidate search result. It is immutable after
// normalization except for the Score slot, which the matcher fills in,
// and transient display flags owned by the consumer.
type Item struct {
	// Text is the string scored against the pattern and shown to the user.
	Text string

	// Key is the stable identity used for deduplication and for selection
	// tracking across re-scores. Location items use "path:line"; plain text
	// items default to their text.
	Key string

	// Score is filled in by the matcher. Higher is better; an empty pattern
	// scores every item 0.
	Score float64

	// Index is the insertion order assigned by the finder. It is the
	// deterministic tie-break for equal scores and is never reused within
	// a production cycle.
	Index int

	// Depth is the symbol-hierarchy nesting depth, 0 for flat items.
	Depth int

	// Loc is the normalized source location, nil for plain text items.
	Loc *Location

	// Payload carries producer-specific data opaquely through the pipeline.
	Payload any
}

// Result is what a producer emits. The finder normalizes every Result into
// an Item before it enters shared state, so producer-specific shapes never
// leak past the producer boundary.
type Result struct {
	Kind    Kind
	Text    string
	Loc     Location // valid for KindLocation and KindSymbol
	Depth   int      // valid for KindSymbol
	Key     string   // optional explicit identity; derived when empty
	Payload any
}

// Normalize converts a producer Result into an Item, deriving the identity
// key when the producer did not supply one.
//
// Identity for location-bearing results is "path:line", not the full range.
// Adjacent distinct matches on the same line therefore collapse to one item;
// this mirrors how reference-style producers group results and is a policy
// choice, not an accident.
func (r Result) Normalize() (*Item, error) {
	if r.Text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformed)
	}

	it := &Item{
		Text:    r.Text,
		Key:     r.Key,
		Payload: r.Payload,
	}

	switch r.Kind {
	case KindText:
		if it.Key == "" {
			it.Key = r.Text
		}

	case KindLocation, KindSymbol:
		if !r.Loc.Valid() {
			return nil, fmt.Errorf("%w: invalid location %+v", ErrMalformed, r.Loc)
		}
		loc := r.Loc
		it.Loc = &loc
		if it.Key == "" {
			it.Key = loc.Key()
		}
		if r.Kind == KindSymbol {
			if r.Depth < 0 {
				return nil, fmt.Errorf("%w: negative depth %d", ErrMalformed, r.Depth)
			}
			it.Depth = r.Depth
		}

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformed, r.Kind)
	}

	return it, nil
}
