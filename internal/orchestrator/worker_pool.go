package orchestrator

import (
	"context"
	"runtime"
	"sync"
)

// symbolJob is one symbol evaluation within a cycle
type symbolJob struct {
	Symbol string
}

// workerPool evaluates the symbols of one cycle on a bounded number of workers
type workerPool struct {
	workerCount int
	jobQueue    chan symbolJob
	resultQueue chan CycleStats
	wg          sync.WaitGroup
}

func newWorkerPool(workerCount, jobs int) *workerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobs > 0 && workerCount > jobs {
		workerCount = jobs
	}
	return &workerPool{
		workerCount: workerCount,
		jobQueue:    make(chan symbolJob, jobs),
		resultQueue: make(chan CycleStats, jobs),
	}
}

// run submits every symbol, waits for the workers and sums their stats
func (wp *workerPool) run(ctx context.Context, symbols []string, process func(context.Context, string) CycleStats) CycleStats {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, process)
	}

	for _, symbol := range symbols {
		wp.jobQueue <- symbolJob{Symbol: symbol}
	}
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)

	var total CycleStats
	for stats := range wp.resultQueue {
		total.add(stats)
	}
	return total
}

func (wp *workerPool) worker(ctx context.Context, process func(context.Context, string) CycleStats) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if ctx.Err() != nil {
			wp.resultQueue <- CycleStats{Skipped: 1}
			continue
		}
		wp.resultQueue <- process(ctx, job.Symbol)
	}
}
