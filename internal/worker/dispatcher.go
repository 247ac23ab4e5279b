// Package worker provides the bounded background-task dispatcher and the
// periodic sync scheduler used by the webhook listener.
package worker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chittyos/registry-sync/internal/pkg/errors"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/metrics"
)

// Task is one unit of background work. Tasks with the same Key are executed
// in submission order on the same worker, so rapid events for one resource
// id cannot overtake each other. Tasks with an empty Key are spread
// round-robin.
type Task struct {
	Key  string
	Name string
	Run  func(ctx context.Context)
}

// drainTimeout bounds tasks that execute after the run context is already
// cancelled. Without it a shutdown would either abandon accepted tasks
// (they inherit the cancelled context) or hang on a stuck one.
const drainTimeout = 30 * time.Second

// Dispatcher runs tasks on a fixed pool of workers fed by bounded queues.
// A full queue rejects the task instead of growing without bound, making
// back-pressure visible to the caller.
type Dispatcher struct {
	queues  []chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	rr      atomic.Uint32
	depth   atomic.Int64
	logger  *logger.Logger
}

// NewDispatcher creates a dispatcher with the given worker count and
// per-worker queue size.
func NewDispatcher(workers, queueSize int, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	queues := make([]chan Task, workers)
	for i := range queues {
		queues[i] = make(chan Task, queueSize)
	}

	return &Dispatcher{
		queues: queues,
		logger: log,
	}
}

// Start launches the worker goroutines. ctx cancels in-flight task
// execution; tasks drained after cancellation run under a fresh context
// bounded by drainTimeout, so accepted work still completes on shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, q := range d.queues {
		d.wg.Add(1)
		go d.worker(ctx, i, q)
	}
	d.logger.WithFields(map[string]interface{}{
		"workers": len(d.queues),
	}).Info("Dispatcher started")
}

func (d *Dispatcher) worker(ctx context.Context, id int, queue <-chan Task) {
	defer d.wg.Done()

	for task := range queue {
		d.depth.Add(-1)
		metrics.SetDispatchQueueDepth(float64(d.depth.Load()))

		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.WithFields(map[string]interface{}{
						"worker": id,
						"task":   task.Name,
						"panic":  r,
					}).Error("Task panicked")
					metrics.RecordDispatchTask("panic")
				}
			}()
			runCtx := ctx
			if ctx.Err() != nil {
				// Drained during shutdown. The task was already accepted
				// (202 returned to the caller), so it must not fail just
				// because the run context died first.
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
				defer cancel()
			}
			task.Run(runCtx)
			metrics.RecordDispatchTask("done")
		}()
	}
}

// Submit enqueues a task. It returns an error when the dispatcher is
// stopped or the task's queue is full; it never blocks.
func (d *Dispatcher) Submit(task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return errors.QueueFull()
	}

	var idx int
	if task.Key != "" {
		h := fnv.New32a()
		h.Write([]byte(task.Key))
		idx = int(h.Sum32() % uint32(len(d.queues)))
	} else {
		idx = int(d.rr.Add(1) % uint32(len(d.queues)))
	}

	select {
	case d.queues[idx] <- task:
		d.depth.Add(1)
		metrics.SetDispatchQueueDepth(float64(d.depth.Load()))
		return nil
	default:
		metrics.RecordDispatchTask("rejected")
		return errors.QueueFull()
	}
}

// Stop rejects further submissions, drains the queues and waits for the
// workers to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}
