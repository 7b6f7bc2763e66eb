package ext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIsTotal(t *testing.T) {
	cases := map[string]Extension{
		"go":    Go,
		".go":   Go,
		"GO":    Go,
		" go ":  Go,
		"py":    Py,
		"rs":    RS,
		"weird": Unknown,
		"":      Unknown,
	}
	for in, want := range cases {
		require.Equal(t, want, Parse(in), "Parse(%q)", in)
	}
}

func TestAllExcludesUnknown(t *testing.T) {
	all := All()
	require.False(t, all.IsSupported(Unknown), "All() must not include Unknown")
	require.True(t, all.IsSupported(Go))
	require.True(t, all.IsSupported(Py))
	require.True(t, all.IsSupported(Markdown))
	require.Equal(t, len(names)-1, all.Len())
}

func TestWithExtensionsIsExplicit(t *testing.T) {
	s := WithExtensions([]Extension{Go, Py})
	require.True(t, s.IsSupported(Go))
	require.True(t, s.IsSupported(Py))
	require.False(t, s.IsSupported(JS), "expected JS to not be supported")
}

func TestStringRoundTrip(t *testing.T) {
	for e, name := range names {
		require.Equal(t, e, Parse(name), "Parse(%q) did not round-trip", name)
	}
}
