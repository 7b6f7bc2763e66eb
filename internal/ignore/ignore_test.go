package ignore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIgnoreFile(t *testing.T) {
	m, err := ParseIgnoreFile(bytes.NewReader([]byte("# ignore this \n  \n foo\n /qux/bar\n*.log")))
	require.NoError(t, err)

	cases := map[string]bool{
		"foo/file.go":     true,
		"bas/file.go":     false,
		"qux/bar/baz.txt": true,
		"output.log":      true,
		"output.logx":     false,
	}
	for path, want := range cases {
		require.Equal(t, want, m.Match(path), "Match(%q)", path)
	}
}

func TestEmptyMatcherMatchesNothing(t *testing.T) {
	m, err := ParseIgnoreFile(bytes.NewReader(nil))
	require.NoError(t, err)
	require.False(t, m.Match("anything"), "empty ignore file must match nothing")
}

func TestIsStandardIgnoredDir(t *testing.T) {
	require.True(t, IsStandardIgnoredDir(".git"))
	require.False(t, IsStandardIgnoredDir("src"), "src must not be ignored by default")
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	m, err := Load(t.TempDir())
	require.NoError(t, err)
	require.False(t, m.Match("anything"), "missing ignore file must yield empty matcher")
}

func TestAddPatternsLayersOnTopOfExisting(t *testing.T) {
	m, err := ParseIgnoreFile(bytes.NewReader([]byte("*.log")))
	require.NoError(t, err)
	require.False(t, m.Match("vendor/lib.go"))

	require.NoError(t, m.AddPatterns([]string{"# a comment", "", "vendor"}))
	require.True(t, m.Match("vendor/lib.go"), "AddPatterns must layer new patterns on top of existing ones")
	require.True(t, m.Match("output.log"), "existing patterns must still apply after AddPatterns")
}

func TestAddPatternsRejectsInvalidGlob(t *testing.T) {
	m, err := ParseIgnoreFile(bytes.NewReader(nil))
	require.NoError(t, err)
	err = m.AddPatterns([]string{"[unterminated"})
	require.Error(t, err)
}
