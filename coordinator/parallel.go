package coordinator

import (
	"context"
	"sync"

	"github.com/chrontext/chrontext/algebra"
	"github.com/chrontext/chrontext/backend"
)

// vqTask is one VQ ready for dispatch: its candidate ID and fully
// materialized VQNode (IDs already resolved by identifier discovery).
type vqTask struct {
	id int
	vq algebra.VQNode
}

// vqResult pairs a dispatched VQ's ID with its outcome.
type vqResult struct {
	id    int
	table backend.Table
	err   error
}

// dispatchAll issues every VQ task against b concurrently, bounded by
// maxConcurrency (spec §5: "independent VQs may be issued in parallel
// through the backend's driver"). Grounded on the teacher's worker-pool
// dispatch (datalog/executor/worker_pool.go, subquery_batcher.go),
// generalized from Datalog subqueries to VQ candidates. Returns once every
// task has reported back. The first failure (a task still waiting for a
// slot when ctx is cancelled reports ctx's error) cancels the context
// handed to the remaining Execute calls, and all results are discarded.
func dispatchAll(ctx context.Context, b backend.VirtualizedBackend, tasks []vqTask, maxConcurrency int) (map[int]backend.Table, int, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrency)
	results := make(chan vqResult, len(tasks))
	var wg sync.WaitGroup

	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- vqResult{id: task.id, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			table, err := b.Execute(ctx, task.vq)
			results <- vqResult{id: task.id, table: table, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[int]backend.Table, len(tasks))
	var firstErr error
	failedID := -1
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				failedID = res.id
				cancel() // cooperative cancellation of the remaining in-flight dispatches
			}
			continue
		}
		out[res.id] = res.table
	}
	if firstErr != nil {
		return nil, failedID, firstErr
	}
	return out, -1, nil
}
