package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/matcher"
	"github.com/sadikovi/codesearchd/internal/result"
	"github.com/sadikovi/codesearchd/internal/sink"
)

func TestScanContentSingleGroupWithContext(t *testing.T) {
	m, err := matcher.Compile("alpha", false)
	require.NoError(t, err)
	content := []byte("L1\nL2\nalpha here\nL4\nL5")

	var counter int64
	out := make(chan result.ContentHit, 1)
	s := sink.New("f.go", ext.Go, m, &counter, out)

	require.NoError(t, scanContent(s, content, m, ContextBefore, ContextAfter, ContentMax))
	close(out)

	hit, ok := <-out
	require.True(t, ok, "expected a content hit")
	require.Len(t, hit.Groups, 1)

	lines := hit.Groups[0].Lines
	require.Len(t, lines, 5)

	wantKinds := []result.Kind{result.Before, result.Before, result.Match, result.After, result.After}
	gotKinds := make([]result.Kind, len(lines))
	gotNums := make([]uint64, len(lines))
	for i, l := range lines {
		gotKinds[i] = l.Kind
		gotNums[i] = l.LineNum
	}
	if diff := cmp.Diff(wantKinds, gotKinds); diff != "" {
		t.Errorf("line kinds mismatch (-want +got):\n%s", diff)
	}
	wantNums := []uint64{1, 2, 3, 4, 5}
	if diff := cmp.Diff(wantNums, gotNums); diff != "" {
		t.Errorf("line numbers mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, lines[2].Range, "match line must carry a range")
}

func TestScanContentTwoGroupsSeparatedByGap(t *testing.T) {
	m, err := matcher.Compile("needle", false)
	require.NoError(t, err)

	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "plain"
	}
	lines[2] = "needle one"  // line 3
	lines[16] = "needle two" // line 17
	content := []byte(joinLines(lines))

	var counter int64
	out := make(chan result.ContentHit, 1)
	s := sink.New("f.go", ext.Go, m, &counter, out)

	require.NoError(t, scanContent(s, content, m, ContextBefore, ContextAfter, ContentMax))
	close(out)

	hit := <-out
	require.Len(t, hit.Groups, 2)
	require.EqualValues(t, 1, hit.Groups[0].Lines[0].LineNum, "group 1 starts at line 1")
	require.EqualValues(t, 15, hit.Groups[1].Lines[0].LineNum, "group 2 starts at line 15")
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
