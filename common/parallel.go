package common

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ParallelFor splits the index range [0, n) into contiguous chunks, one per pool worker, and runs fn on
// each chunk through the pool. It blocks until every chunk has finished.
// A WaitGroup provides the barrier since pool.Wait() only returns once workers are idle.
// A nil pool, or a range too small to split, runs fn inline on the caller's goroutine.
//
// Parameters:
//   - pool: the worker pool to submit chunks to, may be nil
//   - n: the exclusive upper bound of the index range
//   - fn: the work for indices [start, end)
func ParallelFor(pool worker.DynamicWorkerPool, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunks := 1
	if pool != nil {
		chunks = min(pool.GetMaxWorkers(), n)
	}
	if chunks <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	size := (n + chunks - 1) / chunks
	taskID := 0
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		s, e := start, end
		pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				fn(s, e)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}
