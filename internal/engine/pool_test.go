package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoundedEachRunsEveryItem(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var processed int64
	boundedEach(context.Background(), items, 4, func(int) {
		atomic.AddInt64(&processed, 1)
	})
	require.EqualValues(t, 20, processed)
}

func TestBoundedEachCapsConcurrency(t *testing.T) {
	items := make([]int, 10)
	var current, maxSeen int64

	boundedEach(context.Background(), items, 2, func(int) {
		n := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt64(&maxSeen, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&current, -1)
	})
	require.LessOrEqual(t, maxSeen, int64(2))
}

func TestBoundedEachStopsDispatchingAfterCancellation(t *testing.T) {
	items := make([]int, 100)
	ctx, cancel := context.WithCancel(context.Background())

	var processed int64
	boundedEach(ctx, items, 1, func(int) {
		n := atomic.AddInt64(&processed, 1)
		if n == 1 {
			cancel()
		}
	})
	require.Less(t, processed, int64(100))
}
