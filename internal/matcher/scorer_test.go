package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuzzyScorer_RanksCloserMatchesHigher(t *testing.T) {
	t.Parallel()

	s := FuzzyScorer{Case: CaseIgnore}
	tight, ok := s.Score("main", "main.go")
	assert.True(t, ok)
	loose, ok := s.Score("main", "cmd/mock_air_internal.go")
	if ok {
		assert.Greater(t, tight, loose)
	}

	_, ok = s.Score("zzz", "main.go")
	assert.False(t, ok)
}

func TestFuzzyScorer_SmartCase(t *testing.T) {
	t.Parallel()

	smart := FuzzyScorer{Case: CaseSmart}

	// Lower-case pattern matches regardless of text case.
	_, ok := smart.Score("readme", "README.md")
	assert.True(t, ok)

	// An upper-case rune in the pattern demands a case-sensitive match.
	_, ok = smart.Score("Read", "readme.md")
	assert.False(t, ok)
	_, ok = smart.Score("Read", "Readme.md")
	assert.True(t, ok)
}

func TestFuzzyScorer_RespectCase(t *testing.T) {
	t.Parallel()

	s := FuzzyScorer{Case: CaseRespect}
	_, ok := s.Score("readme", "README.md")
	assert.False(t, ok)
	_, ok = s.Score("README", "README.md")
	assert.True(t, ok)
}

func TestExactScorer_Substring(t *testing.T) {
	t.Parallel()

	s := ExactScorer{Case: CaseIgnore}

	_, ok := s.Score("oba", "foobar")
	assert.True(t, ok)
	_, ok = s.Score("oab", "foobar")
	assert.False(t, ok, "exact mode must not match out-of-order characters")

	// Earlier and denser matches score higher.
	early, _ := s.Score("foo", "foobar")
	late, _ := s.Score("foo", "barfoobazqux")
	assert.Greater(t, early, late)
}

func TestExactScorer_CaseModes(t *testing.T) {
	t.Parallel()

	respect := ExactScorer{Case: CaseRespect}
	_, ok := respect.Score("foo", "FOOBAR")
	assert.False(t, ok)

	smart := ExactScorer{Case: CaseSmart}
	_, ok = smart.Score("foo", "FOOBAR")
	assert.True(t, ok)
	_, ok = smart.Score("Foo", "FOOBAR")
	assert.False(t, ok)
}

func TestScorers_Deterministic(t *testing.T) {
	t.Parallel()

	fs := FuzzyScorer{}
	a1, ok1 := fs.Score("abc", "a1b2c3")
	a2, ok2 := fs.Score("abc", "a1b2c3")
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, a1, a2)
}
