package utils

import (
	"sync"
)

// WorkerPool bounds how many ingest tasks run concurrently. Tasks are pulled
// from a FIFO queue by a fixed set of workers.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	waitGroup sync.WaitGroup
}

// NewWorkerPool creates a pool with the specified number of workers and a
// queue of the same depth.
func NewWorkerPool(workers int) *WorkerPool {
	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes tasks from the taskQueue.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for task := range wp.taskQueue {
		task()
	}
}

// Submit adds a new task to the pool, blocking while the queue is full.
func (wp *WorkerPool) Submit(task func()) {
	wp.taskQueue <- task
}

// Shutdown stops accepting tasks and waits for the workers to drain the queue.
func (wp *WorkerPool) Shutdown() {
	close(wp.taskQueue)
	wp.waitGroup.Wait()
}
