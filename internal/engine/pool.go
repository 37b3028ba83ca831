package engine

import (
	"context"
	"sync"
)

// boundedEach runs fn over items with at most workers concurrent calls,
// checking ctx before dispatching each new item (spec.md §5:
// "cancel_requested is read ... before every new probe"). Already
// dispatched calls are allowed to finish rather than being aborted
// mid-flight.
func boundedEach[T any](ctx context.Context, items []T, workers int, fn func(T)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(it T) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(it)
		}(item)
	}
	wg.Wait()
}
