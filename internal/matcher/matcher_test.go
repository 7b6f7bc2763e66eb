package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sadikovi/codesearchd/internal/codeserr"
)

func TestCompileEmptyPatternErrors(t *testing.T) {
	_, err := Compile("", false)
	ce, ok := err.(*codeserr.Error)
	require.True(t, ok, "Compile(\"\") error should be *codeserr.Error, got %v", err)
	require.Equal(t, codeserr.EmptyPattern, ce.Code)
}

func TestCompileBadRegexErrors(t *testing.T) {
	_, err := Compile("(", true)
	ce, ok := err.(*codeserr.Error)
	require.True(t, ok, "Compile(\"(\") error should be *codeserr.Error, got %v", err)
	require.Equal(t, codeserr.PatternCompile, ce.Code)
}

func TestLiteralFind(t *testing.T) {
	m, err := Compile("needle", false)
	require.NoError(t, err)
	require.False(t, m.IsRegex(), "literal matcher reports IsRegex")

	span, ok := m.Find([]byte("a needle in a haystack"))
	require.True(t, ok, "expected a match")
	require.Equal(t, Span{Start: 2, End: 8}, span)
}

func TestLiteralNoMatch(t *testing.T) {
	m, err := Compile("needle", false)
	require.NoError(t, err)
	require.False(t, m.IsMatch([]byte("nothing here")))
}

func TestRegexFindIsCaseInsensitiveByDefault(t *testing.T) {
	m, err := Compile("needle", true)
	require.NoError(t, err)
	require.True(t, m.IsRegex(), "expected regex matcher")
	require.True(t, m.IsMatch([]byte("a NEEDLE in a haystack")), "expected smart-case insensitive match")
}

func TestRegexFindIsCaseSensitiveWhenPatternHasUpper(t *testing.T) {
	m, err := Compile("Needle", true)
	require.NoError(t, err)
	require.False(t, m.IsMatch([]byte("a needle in a haystack")), "pattern with uppercase must not match lowercase-only haystack")
	require.True(t, m.IsMatch([]byte("a Needle in a haystack")), "expected exact-case match")
}

func TestRegexFindReturnsLongestMatch(t *testing.T) {
	m, err := Compile("a|ab", true)
	require.NoError(t, err)
	span, ok := m.Find([]byte("ab"))
	require.True(t, ok, "expected a match")
	require.Equal(t, Span{Start: 0, End: 2}, span, "leftmost-longest match")
}

func TestLiteralPrefilterNilForLiteralVariant(t *testing.T) {
	m, err := Compile("needle", false)
	require.NoError(t, err)
	require.Nil(t, m.LiteralPrefilter(), "want nil for literal variant")
}

func TestLiteralPrefilterNilWhenRegexAlreadyHasLiteralPrefix(t *testing.T) {
	m, err := Compile("Needle[0-9]+", true)
	require.NoError(t, err)
	require.Nil(t, m.LiteralPrefilter(), "want nil when regexp already exposes a literal prefix")
}

func TestLiteralPrefilterFindsConcatLiteral(t *testing.T) {
	m, err := Compile("[0-9]+Needle[a-z]*", true)
	require.NoError(t, err)
	require.Equal(t, "Needle", string(m.LiteralPrefilter()))
}
