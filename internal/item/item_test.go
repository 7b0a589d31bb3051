package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Text(t *testing.T) {
	t.Parallel()

	it, err := Result{Kind: KindText, Text: "make build"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "make build", it.Text)
	assert.Equal(t, "make build", it.Key, "text items default their key to the text")
	assert.Nil(t, it.Loc)
}

func TestNormalize_ExplicitKeyWins(t *testing.T) {
	t.Parallel()

	it, err := Result{Kind: KindText, Text: "duplicate label", Key: "entry-7"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "entry-7", it.Key)
}

func TestNormalize_Location(t *testing.T) {
	t.Parallel()

	loc := NewLocation("pkg/main.go", 10, 3, 10, 9)
	it, err := Result{Kind: KindLocation, Text: "func main()", Loc: loc}.Normalize()
	require.NoError(t, err)
	require.NotNil(t, it.Loc)
	assert.Equal(t, "pkg/main.go:10", it.Key, "location identity is path:line, not the full range")
}

func TestNormalize_SameLineCollapsesToOneKey(t *testing.T) {
	t.Parallel()

	// Two distinct matches on the same line share an identity key. This is
	// the documented grouping policy for reference-style producers.
	a, err := Result{Kind: KindLocation, Text: "x", Loc: NewLocation("f.go", 5, 1, 5, 3)}.Normalize()
	require.NoError(t, err)
	b, err := Result{Kind: KindLocation, Text: "y", Loc: NewLocation("f.go", 5, 8, 5, 11)}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, a.Key, b.Key)
}

func TestNormalize_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    Result
	}{
		{"empty text", Result{Kind: KindText}},
		{"missing location", Result{Kind: KindLocation, Text: "x"}},
		{"zero-based line leaked through", Result{Kind: KindLocation, Text: "x", Loc: Location{Path: "f.go", StartLine: 0, StartCol: 1, EndLine: 0, EndCol: 1}}},
		{"negative depth", Result{Kind: KindSymbol, Text: "x", Loc: NewLocation("f.go", 1, 1, 0, 0), Depth: -1}},
		{"unknown kind", Result{Kind: Kind(99), Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Normalize()
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLocationFromZeroBased(t *testing.T) {
	t.Parallel()

	// LSP-style: line 9, cols [4, 10) zero-based == line 10, cols 5..10
	// one-based inclusive.
	loc := LocationFromZeroBased("f.go", 9, 4, 9, 10)
	assert.Equal(t, 10, loc.StartLine)
	assert.Equal(t, 5, loc.StartCol)
	assert.Equal(t, 10, loc.EndLine)
	assert.Equal(t, 10, loc.EndCol)
	assert.True(t, loc.Valid())
}

func TestLocationFromZeroBased_PointRange(t *testing.T) {
	t.Parallel()

	// A zero-width range (start == end) still yields a valid point location.
	loc := LocationFromZeroBased("f.go", 0, 0, 0, 0)
	assert.Equal(t, 1, loc.StartLine)
	assert.Equal(t, 1, loc.StartCol)
	assert.Equal(t, 1, loc.EndCol)
	assert.True(t, loc.Valid())
}

func TestNewLocation_FillsPointEnd(t *testing.T) {
	t.Parallel()

	loc := NewLocation("f.go", 3, 7, 0, 0)
	assert.Equal(t, 3, loc.EndLine)
	assert.Equal(t, 7, loc.EndCol)
	assert.Equal(t, "f.go:3", loc.Key())
}

func TestLocationValid(t *testing.T) {
	t.Parallel()

	assert.False(t, Location{}.Valid())
	assert.False(t, NewLocation("", 1, 1, 1, 1).Valid())
	assert.False(t, Location{Path: "f.go", StartLine: 2, StartCol: 1, EndLine: 1, EndCol: 1}.Valid())
	assert.False(t, Location{Path: "f.go", StartLine: 2, StartCol: 5, EndLine: 2, EndCol: 4}.Valid())
	assert.True(t, Location{Path: "f.go", StartLine: 2, StartCol: 5, EndLine: 3, EndCol: 1}.Valid())
}
