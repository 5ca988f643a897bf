package parallel_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paveg/returnlab/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool(t *testing.T) {
	pool := parallel.NewWorkerPool(context.Background(), 0)
	defer pool.Close()
	assert.Equal(t, runtime.NumCPU(), pool.NumWorkers())

	pool2 := parallel.NewWorkerPool(context.Background(), 4)
	defer pool2.Close()
	assert.Equal(t, 4, pool2.NumWorkers())

	pool3 := parallel.NewWorkerPool(context.Background(), -1)
	defer pool3.Close()
	assert.Equal(t, runtime.NumCPU(), pool3.NumWorkers())
}

func TestProcessIndexed(t *testing.T) {
	pool := parallel.NewWorkerPool(context.Background(), 2)
	defer pool.Close()

	input := []string{"a", "b", "c", "d"}

	results := parallel.ProcessIndexed(pool, input, func(index int, value string) string {
		return value + string(rune('0'+index))
	})

	assert.Equal(t, []string{"a0", "b1", "c2", "d3"}, results)
}

func TestProcessIndexedEmpty(t *testing.T) {
	pool := parallel.NewWorkerPool(context.Background(), 2)
	defer pool.Close()

	results := parallel.ProcessIndexed(pool, []string{}, func(_ int, value string) string {
		return value
	})

	assert.Nil(t, results)
}

func TestProcessIndexedSameResultForAnyWorkerCount(t *testing.T) {
	input := make([]int, 50)
	for i := range input {
		input[i] = i
	}
	square := func(_ int, x int) int { return x * x }

	var reference []int
	for _, workers := range []int{1, 3, 8} {
		pool := parallel.NewWorkerPool(context.Background(), workers)
		results := parallel.ProcessIndexed(pool, input, square)
		pool.Close()

		if reference == nil {
			reference = results
			continue
		}
		assert.Equal(t, reference, results, "workers=%d", workers)
	}
}

func TestProcessConcurrency(t *testing.T) {
	pool := parallel.NewWorkerPool(context.Background(), 4)
	defer pool.Close()

	var concurrentCount int64
	var maxConcurrent int64

	input := make([]int, 20)
	results := parallel.ProcessIndexed(pool, input, func(i int, _ int) int {
		current := atomic.AddInt64(&concurrentCount, 1)
		for {
			maxVal := atomic.LoadInt64(&maxConcurrent)
			if current <= maxVal || atomic.CompareAndSwapInt64(&maxConcurrent, maxVal, current) {
				break
			}
		}

		time.Sleep(10 * time.Millisecond)

		atomic.AddInt64(&concurrentCount, -1)
		return i
	})

	assert.Len(t, results, 20)
	assert.Greater(t, maxConcurrent, int64(1), "Expected some concurrent execution")
}

func TestTryProcessIndexed(t *testing.T) {
	t.Run("returns ordered results", func(t *testing.T) {
		pool := parallel.NewWorkerPool(context.Background(), 3)
		defer pool.Close()

		results, err := parallel.TryProcessIndexed(pool, []int{3, 1, 2},
			func(_ context.Context, i int, v int) (string, error) {
				return fmt.Sprintf("%d:%d", i, v), nil
			})
		require.NoError(t, err)
		assert.Equal(t, []string{"0:3", "1:1", "2:2"}, results)
	})

	t.Run("reports lowest failing index", func(t *testing.T) {
		pool := parallel.NewWorkerPool(context.Background(), 1)
		defer pool.Close()

		_, err := parallel.TryProcessIndexed(pool, []int{0, 1, 2, 3},
			func(_ context.Context, i int, _ int) (int, error) {
				if i >= 1 {
					return 0, fmt.Errorf("fold %d failed", i)
				}
				return i, nil
			})
		require.Error(t, err)
		assert.Equal(t, "fold 1 failed", err.Error())
	})

	t.Run("failure skips items not yet started", func(t *testing.T) {
		pool := parallel.NewWorkerPool(context.Background(), 2)
		defer pool.Close()

		failed := make(chan struct{})
		var ran atomic.Int32
		_, err := parallel.TryProcessIndexed(pool, []int{0, 1, 2, 3, 4, 5},
			func(_ context.Context, i int, _ int) (int, error) {
				ran.Add(1)
				switch i {
				case 0:
					<-failed
					return 0, fmt.Errorf("fold %d failed", i)
				case 1:
					close(failed)
					return 0, fmt.Errorf("fold %d failed", i)
				}
				return i, nil
			})
		require.Error(t, err)
		assert.Equal(t, "fold 0 failed", err.Error(), "lowest index among the items that ran")
		assert.Equal(t, int32(2), ran.Load())
	})

	t.Run("parent cancellation surfaces ctx error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pool := parallel.NewWorkerPool(ctx, 2)
		defer pool.Close()

		_, err := parallel.TryProcessIndexed(pool, []int{1, 2},
			func(_ context.Context, _ int, v int) (int, error) { return v, nil })
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestWorkerPoolClose(t *testing.T) {
	pool := parallel.NewWorkerPool(context.Background(), 2)

	results := parallel.ProcessIndexed(pool, []int{1, 2, 3}, func(_ int, x int) int { return x })
	assert.Equal(t, []int{1, 2, 3}, results)

	pool.Close()
	assert.NotPanics(t, func() {
		pool.Close()
	})
}
