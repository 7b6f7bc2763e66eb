package pool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sadikovi/codesearchd/internal/codeserr"
)

func TestExecuteRunsAllJobs(t *testing.T) {
	p := New(4)
	var n int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Execute(func() {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
		})
	}
	wg.Wait()
	require.NoError(t, p.Close())
	require.EqualValues(t, 50, n)
}

func TestClosePropagatesPanicAsInternal(t *testing.T) {
	p := New(1)
	var wg sync.WaitGroup
	wg.Add(1)
	p.Execute(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	err := p.Close()
	ce, ok := err.(*codeserr.Error)
	require.True(t, ok, "Close() error should be *codeserr.Error, got %v", err)
	require.Equal(t, codeserr.Internal, ce.Code)
}

func TestNewPanicsOnNonPositiveSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for size <= 0")
		}
	}()
	New(0)
}
