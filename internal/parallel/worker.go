// Package parallel provides the worker pool used to evaluate cross-validation
// folds and tuning trials concurrently.
//
// Results are always gathered by item index, so the output of a run does not
// depend on how many workers executed it or in which order they finished.
// Worker functions must not share mutable state; each fold builds its own
// estimator from a factory.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool bound to parent. A non-positive
// worker count selects runtime.NumCPU().
func NewWorkerPool(parent context.Context, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NumWorkers reports the pool size.
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// ProcessIndexed executes work items in parallel while preserving order
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	results, _ := TryProcessIndexed(wp, items, func(_ context.Context, i int, item T) (R, error) {
		return worker(i, item), nil
	})
	return results
}

// TryProcessIndexed executes fallible work items in parallel, preserving order.
// The first failure cancels the pool: items not yet started are skipped, and
// the error reported is the one from the lowest failing index among the items
// that ran. Which items ran can differ between runs when more than one fails.
// Cancellation of the pool context is reported as ctx.Err().
func TryProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(wp.ctx)
	defer cancel()

	// Channel for input items with index
	itemCh := make(chan indexedItem[T], len(items))

	// Channel for results with index
	resultCh := make(chan indexedResult[R], len(items))

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-ctx.Done():
					return
				default:
					result, err := worker(ctx, item.index, item.value)
					if err != nil {
						cancel()
					}
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: result,
						err:    err,
					}
				}
			}
		}()
	}

	// Send items to workers
	for i, item := range items {
		itemCh <- indexedItem[T]{index: i, value: item}
	}
	close(itemCh)

	// Close result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect results and maintain order
	results := make([]R, len(items))
	firstErr := -1
	var errs = make([]error, len(items))
	for result := range resultCh {
		results[result.index] = result.result
		if result.err != nil {
			errs[result.index] = result.err
			if firstErr < 0 || result.index < firstErr {
				firstErr = result.index
			}
		}
	}

	if err := wp.ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr >= 0 {
		return nil, errs[firstErr]
	}
	return results, nil
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// indexedItem holds an item with its index
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index
type indexedResult[R any] struct {
	index  int
	result R
	err    error
}
