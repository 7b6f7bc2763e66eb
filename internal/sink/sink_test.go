package sink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sadikovi/codesearchd/internal/codeserr"
	"github.com/sadikovi/codesearchd/internal/ext"
	"github.com/sadikovi/codesearchd/internal/matcher"
	"github.com/sadikovi/codesearchd/internal/result"
)

func newTestSink(t *testing.T, counter *int64) (*Sink, chan result.ContentHit) {
	t.Helper()
	m, err := matcher.Compile("alpha", false)
	require.NoError(t, err)
	out := make(chan result.ContentHit, 1)
	return New("f.go", ext.Go, m, counter, out), out
}

// Scenario 2 from spec §8: a single match with ±2 lines of context.
func TestSingleGroupWithContext(t *testing.T) {
	var counter int64
	s, out := newTestSink(t, &counter)

	require.NoError(t, s.Context(result.Before, 1, []byte("L1")))
	require.NoError(t, s.Context(result.Before, 2, []byte("L2")))
	require.NoError(t, s.Matched(3, []byte("L3 alpha")))
	require.NoError(t, s.Context(result.After, 4, []byte("L4")))
	require.NoError(t, s.Context(result.After, 5, []byte("L5")))
	require.True(t, s.ContextBreak(100), "expected continue")
	require.NoError(t, s.Finish())

	hit := <-out
	require.Len(t, hit.Groups, 1)

	lines := hit.Groups[0].Lines
	require.Len(t, lines, 5)

	wantKinds := []result.Kind{result.Before, result.Before, result.Match, result.After, result.After}
	gotKinds := make([]result.Kind, len(lines))
	var lastNum uint64
	sawMatch := false
	for i, l := range lines {
		gotKinds[i] = l.Kind
		require.Greater(t, l.LineNum, lastNum, "line numbers not strictly increasing at %d", i)
		lastNum = l.LineNum
		if l.Kind == result.Match {
			sawMatch = true
			require.NotNil(t, l.Range, "match line missing range")
		}
	}
	if diff := cmp.Diff(wantKinds, gotKinds); diff != "" {
		t.Errorf("line kinds mismatch (-want +got):\n%s", diff)
	}
	require.True(t, sawMatch, "group has no match line")
}

// Scenario 3: two matches separated by a context-break produce two ordered
// groups within one content hit.
func TestTwoGroupsSeparatedByBreak(t *testing.T) {
	var counter int64
	s, out := newTestSink(t, &counter)

	require.NoError(t, s.Context(result.Before, 1, []byte("L1")))
	require.NoError(t, s.Context(result.Before, 2, []byte("L2")))
	require.NoError(t, s.Matched(3, []byte("alpha")))
	require.NoError(t, s.Context(result.After, 4, []byte("L4")))
	require.NoError(t, s.Context(result.After, 5, []byte("L5")))
	require.True(t, s.ContextBreak(100), "expected continue")

	require.NoError(t, s.Context(result.Before, 15, []byte("L15")))
	require.NoError(t, s.Context(result.Before, 16, []byte("L16")))
	require.NoError(t, s.Matched(17, []byte("alpha")))
	require.NoError(t, s.Context(result.After, 18, []byte("L18")))
	require.NoError(t, s.Context(result.After, 19, []byte("L19")))
	require.True(t, s.ContextBreak(100), "expected continue")
	require.NoError(t, s.Finish())

	hit := <-out
	require.Len(t, hit.Groups, 2)
	require.EqualValues(t, 3, hit.Groups[0].Lines[2].LineNum)
	require.EqualValues(t, 17, hit.Groups[1].Lines[2].LineNum)
}

func TestContextBreakStopsOverCap(t *testing.T) {
	var counter int64 = 101
	s, _ := newTestSink(t, &counter)
	require.NoError(t, s.Context(result.Before, 1, []byte("x")))
	require.False(t, s.ContextBreak(100), "expected stop once counter strictly exceeds cap")
}

func TestContextBreakAtCapContinues(t *testing.T) {
	var counter int64 = 100
	s, _ := newTestSink(t, &counter)
	require.NoError(t, s.Context(result.Before, 1, []byte("x")))
	require.True(t, s.ContextBreak(100), "expected continue when counter equals cap")
}

func TestMatchedWithoutLineNumberErrors(t *testing.T) {
	var counter int64
	s, _ := newTestSink(t, &counter)
	err := s.Matched(0, []byte("alpha"))
	var cerr *codeserr.Error
	require.Error(t, err)
	require.True(t, asCodeserr(err, &cerr))
	require.Equal(t, codeserr.LineNumbersDisabled, cerr.Code)
}

func TestFinishNoMatchesDoesNotPublish(t *testing.T) {
	var counter int64
	s, out := newTestSink(t, &counter)
	require.NoError(t, s.Finish())
	select {
	case hit := <-out:
		t.Fatalf("unexpected publish: %+v", hit)
	default:
	}
}

func TestFinishOnClosedChannelReturnsChannelError(t *testing.T) {
	var counter int64
	m, err := matcher.Compile("alpha", false)
	require.NoError(t, err)
	out := make(chan result.ContentHit)
	close(out)
	s := New("f.go", ext.Go, m, &counter, out)
	require.NoError(t, s.Matched(1, []byte("alpha")))

	err = s.Finish()
	var cerr *codeserr.Error
	require.Error(t, err)
	require.True(t, asCodeserr(err, &cerr))
	require.Equal(t, codeserr.Channel, cerr.Code)
}

func asCodeserr(err error, target **codeserr.Error) bool {
	ce, ok := err.(*codeserr.Error)
	if ok {
		*target = ce
	}
	return ok
}
