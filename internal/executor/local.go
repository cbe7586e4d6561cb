package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
)

// LocalExecutor drives instances through a fixed in-process worker pool
// draining an instance-id queue: every admitted task is dispatched through
// the operator Registry, and the unit of concurrency is one instance, not
// one task. The tick algorithm itself lives in instanceRunner, shared with
// DistributedExecutor so the two don't duplicate the state machine.
type LocalExecutor struct {
	runner *instanceRunner
	config *ExecutorConfig

	queue chan string

	running int32
	wg      sync.WaitGroup
}

// NewLocalExecutor creates a local executor with the given worker pool
// size. config may be nil, in which case DefaultExecutorConfig is used.
func NewLocalExecutor(
	templates TemplateProvider,
	instances storage.InstanceRepository,
	registry *operator.Registry,
	stateMachine *state.Manager,
	config *ExecutorConfig,
) *LocalExecutor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	if config.PerInstanceMaxTasks <= 0 {
		config.PerInstanceMaxTasks = 1
	}
	return &LocalExecutor{
		runner: newInstanceRunner(templates, instances, registry, stateMachine, config),
		config: config,
		queue:  make(chan string, config.QueueSize),
	}
}

// WithConcurrencyManager attaches an admission gate. Submit calls that
// would exceed the gate's global or per-template limit are parked in the
// backlog priority queue instead of admitted immediately, and drained by
// the admission loop as capacity frees up. Must be called before Start.
func (e *LocalExecutor) WithConcurrencyManager(cm *ConcurrencyManager) *LocalExecutor {
	e.runner.concurrency = cm
	return e
}

// WithDeadLetterQueue attaches a sink for instances whose failed task
// exhausted its retry policy. Must be called before Start.
func (e *LocalExecutor) WithDeadLetterQueue(dlq DeadLetterQueue) *LocalExecutor {
	e.runner.deadLetter = dlq
	return e
}

// WithEventBus attaches a publisher for instance lifecycle events
// (started, completed, failed, paused, resumed). Must be called before
// Start.
func (e *LocalExecutor) WithEventBus(events operator.EventPublisher) *LocalExecutor {
	e.runner.events = events
	return e
}

func (e *LocalExecutor) enqueue(ctx context.Context, instanceID string) error {
	select {
	case e.queue <- instanceID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the worker pool.
func (e *LocalExecutor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return fmt.Errorf("executor already running")
	}

	for i := 0; i < e.config.WorkerCount; i++ {
		e.wg.Add(1)
		go e.workerLoop(ctx, i)
	}

	if e.runner.concurrency != nil {
		e.wg.Add(1)
		go e.admissionLoop(ctx)
	}

	log.Printf("local executor started with %d workers", e.config.WorkerCount)
	return nil
}

// Stop drains the queue and waits for in-flight ticks to finish, up to
// ShutdownTimeout.
func (e *LocalExecutor) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return nil
	}

	close(e.queue)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("local executor stopped gracefully")
	case <-time.After(e.config.ShutdownTimeout):
		log.Println("local executor shutdown timeout reached")
	}

	return nil
}

// GetStatus reports the Executor's current load.
func (e *LocalExecutor) GetStatus() ExecutorStatus {
	status := e.runner.status()
	status.Running = atomic.LoadInt32(&e.running) == 1
	status.QueueDepth = len(e.queue)
	return status
}

// Submit marks a pending instance RUNNING and schedules its first tick. If a
// ConcurrencyManager is configured and has no free global or per-template
// slot, the instance is parked in the backlog priority queue (ordered by
// Instance.Priority, then FIFO) instead of admitted immediately; the
// admission loop retries it as capacity frees up.
func (e *LocalExecutor) Submit(ctx context.Context, instanceID string) error {
	return e.runner.submit(ctx, instanceID, e.enqueue)
}

// admissionLoop periodically retries backlog items as concurrency slots
// free up.
func (e *LocalExecutor) admissionLoop(ctx context.Context) {
	defer e.wg.Done()

	interval := e.config.AdmissionInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&e.running) == 0 {
				return
			}
			e.runner.drainBacklog(ctx, e.enqueue)
		}
	}
}

// Resume re-admits a WAITING instance, carrying the payload that woke it.
// taskID must name the task currently in the waiting state.
func (e *LocalExecutor) Resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error {
	return e.runner.resume(ctx, instanceID, taskID, payload, e.enqueue)
}

// Cancel marks a non-terminal instance CANCELLED.
func (e *LocalExecutor) Cancel(ctx context.Context, instanceID string) error {
	return e.runner.cancel(ctx, instanceID)
}

func (e *LocalExecutor) workerLoop(ctx context.Context, id int) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case instanceID, ok := <-e.queue:
			if !ok {
				return
			}
			e.runner.driveGuarded(ctx, instanceID)
		}
	}
}
