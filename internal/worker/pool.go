// Package worker provides a background job processing system using goroutines.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// A goroutine is like a lightweight thread (thousands are fine), and
// channels are typed pipes for communication between goroutines.
//
// This worker pool pattern is very common in Go:
// 1. Create a buffered channel as a job queue
// 2. Spawn N worker goroutines that read from the channel
// 3. Send jobs to the channel from your HTTP handlers
// 4. Workers process jobs concurrently
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Shimizu-Technology/media-tools-api/internal/orchestrator"
)

// Kind identifies what kind of run a queued task represents.
type Kind string

const (
	KindPipeline     Kind = "pipeline"
	KindRegeneration Kind = "regeneration"
)

// Task is a unit of work queued for a worker: run the fresh pipeline for a
// job, or run a restricted regeneration against its latest validation
// report. The orchestrator itself resolves everything else from the job
// row, so a Task only needs to say which job and which entry point.
type Task struct {
	JobID string
	Kind  Kind
}

// Pool manages a pool of worker goroutines draining a single job queue.
type Pool struct {
	tasks  chan Task
	orch   *orchestrator.Orchestrator
	size   int
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool bounded by queueSize, dispatching every
// task to orch.
func NewPool(workers, queueSize int, orch *orchestrator.Orchestrator) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		tasks:  make(chan Task, queueSize),
		orch:   orch,
		size:   workers,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d background workers", p.size)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop shuts down all workers and waits for them to exit. It cancels the
// workers' context before closing the queue, so tasks still queued are not
// run and an in-flight run sees a cancelled context.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping workers...")
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Submit enqueues a task. Returns an error if the queue is full
// (non-blocking) so HTTP handlers never stall on a saturated worker pool.
func (p *Pool) Submit(task Task) error {
	select {
	case p.tasks <- task:
		log.Printf("📥 Job queued: %s (%s)", task.JobID, task.Kind)
		return nil
	default:
		return fmt.Errorf("job queue is full; try again later")
	}
}

// QueueSize returns the current number of queued tasks.
func (p *Pool) QueueSize() int {
	return len(p.tasks)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.size
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Worker %d started", id)

	for task := range p.tasks {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Worker %d shutting down", id)
			return
		default:
		}

		log.Printf("👷 Worker %d processing job: %s (%s)", id, task.JobID, task.Kind)

		switch task.Kind {
		case KindPipeline:
			p.orch.RunPipeline(p.ctx, task.JobID)
		case KindRegeneration:
			p.orch.RunRegeneration(p.ctx, task.JobID)
		default:
			log.Printf("❌ Worker %d: unknown task kind: %s", id, task.Kind)
			continue
		}

		log.Printf("✅ Worker %d: job %s finished", id, task.JobID)
	}

	log.Printf("👷 Worker %d stopped", id)
}
