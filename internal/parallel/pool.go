// Package parallel runs independent matching problems concurrently.
//
// Each search is sequential and owns its graphs; the pool only bounds how
// many run at once.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed set of goroutines consuming submitted tasks.
// Submit blocks while every worker is busy and the queue is full.
type WorkerPool struct {
	maxWorkers int
	taskChan   chan func()
	workerWg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers: maxWorkers,
		taskChan:   make(chan func(), maxWorkers),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()
	for task := range wp.taskChan {
		if task != nil {
			task()
		}
	}
}

// Submit queues task for execution. It returns ctx.Err() if ctx ends first
// and ErrPoolShutdown after Shutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolShutdown
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits until every queued task has run.
// It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskChan)
		wp.mu.Unlock()
		wp.workerWg.Wait()
	})
}

// Map runs fn(i) for i in [0, n) on the pool and waits for all of them.
// Results are written by fn itself, typically into a slice indexed by i.
// If ctx ends, tasks not yet submitted are skipped and ctx.Err() is returned.
func (wp *WorkerPool) Map(ctx context.Context, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	var err error
	for i := 0; i < n; i++ {
		wg.Add(1)
		if serr := wp.Submit(ctx, func() {
			defer wg.Done()
			fn(i)
		}); serr != nil {
			wg.Done()
			err = serr
			break
		}
	}
	wg.Wait()
	return err
}
