package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
)

const (
	// InstancesPendingStream is the JetStream work-queue stream of
	// instance IDs awaiting a tick. Retention is WorkQueuePolicy: once a
	// worker acks a message it is gone, so two workers never tick the
	// same admission of the same instance.
	InstancesPendingStream  = "INSTANCES_PENDING"
	InstancesPendingSubject = "instances.pending"

	// instanceWorkersGroup is the NATS queue group name every Worker
	// subscribes under, so a pending instance ID is delivered to exactly
	// one worker process.
	instanceWorkersGroup = "instance-workers"
)

// DistributedExecutor is the NATS-backed Executor variant: it implements
// the same Submit/Resume/Cancel contract as LocalExecutor, but instead of
// handing a ready instance ID to an in-process channel, it publishes the ID
// onto a JetStream work-queue subject that any number of separate Worker
// processes (cmd/worker) consume from. State transitions (admit, resume,
// cancel) happen here, against the same storage the workers share, so a
// worker never needs to ask the dispatcher anything — it just drives
// whatever instance ID it receives. The NATS messages carry instance IDs,
// not individual tasks — the unit of distribution matches the unit of
// scheduling.
//
// This process never ticks an instance itself, so GetStatus's
// CompletedTicks/FailedTicks/ActiveInstances always read zero here — those
// counters live on each Worker process instead. A deployment that needs
// them aggregated would have workers publish periodic stats back over
// NATS; out of scope for now.
type DistributedExecutor struct {
	nc *nats.Conn
	js nats.JetStreamContext

	runner *instanceRunner
	config *ExecutorConfig

	running int32
	wg      sync.WaitGroup
}

// NewDistributedExecutor connects to NATS and declares the
// InstancesPendingStream. config may be nil, in which case
// DefaultExecutorConfig is used. The repositories/registry/state manager
// are only used for the admit/resume/cancel state transitions Submit/
// Resume/Cancel perform directly — ticking itself happens in a separate
// Worker process sharing the same storage.
func NewDistributedExecutor(
	natsURL string,
	templates TemplateProvider,
	instances storage.InstanceRepository,
	registry *operator.Registry,
	stateMachine *state.Manager,
	config *ExecutorConfig,
) (*DistributedExecutor, error) {
	if config == nil {
		config = DefaultExecutorConfig()
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	e := &DistributedExecutor{
		nc:     nc,
		js:     js,
		runner: newInstanceRunner(templates, instances, registry, stateMachine, config),
		config: config,
	}

	if err := e.initStream(); err != nil {
		nc.Close()
		return nil, err
	}

	return e, nil
}

// WithConcurrencyManager attaches an admission gate, same contract as
// LocalExecutor's.
func (e *DistributedExecutor) WithConcurrencyManager(cm *ConcurrencyManager) *DistributedExecutor {
	e.runner.concurrency = cm
	return e
}

// WithDeadLetterQueue attaches a dead-letter sink, same contract as
// LocalExecutor's.
func (e *DistributedExecutor) WithDeadLetterQueue(dlq DeadLetterQueue) *DistributedExecutor {
	e.runner.deadLetter = dlq
	return e
}

// WithEventBus attaches a lifecycle-event publisher, same contract as
// LocalExecutor's. Only the transitions this dispatcher performs itself
// (started, resumed) are published here; the ticking Worker publishes the
// rest.
func (e *DistributedExecutor) WithEventBus(events operator.EventPublisher) *DistributedExecutor {
	e.runner.events = events
	return e
}

func (e *DistributedExecutor) initStream() error {
	_, err := e.js.AddStream(&nats.StreamConfig{
		Name:      InstancesPendingStream,
		Subjects:  []string{InstancesPendingSubject},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create pending instances stream: %w", err)
	}
	return nil
}

// enqueue publishes an instance ID onto the pending-instances stream for
// any worker in instanceWorkersGroup to pick up.
func (e *DistributedExecutor) enqueue(ctx context.Context, instanceID string) error {
	_, err := e.js.Publish(InstancesPendingSubject, []byte(instanceID))
	if err != nil {
		return fmt.Errorf("publish instance %s: %w", instanceID, err)
	}
	return nil
}

// Start marks the dispatcher running. There is no local worker pool to
// launch — Submit/Resume publish directly, and Worker processes started
// separately (cmd/worker) do the ticking. The only local goroutine is the
// backlog admission loop, started when a ConcurrencyManager is attached.
func (e *DistributedExecutor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return fmt.Errorf("executor already running")
	}

	if e.runner.concurrency != nil {
		e.wg.Add(1)
		go e.admissionLoop(ctx)
	}

	log.Println("distributed executor started")
	return nil
}

// Stop closes the NATS connection.
func (e *DistributedExecutor) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.config.ShutdownTimeout):
		log.Println("distributed executor shutdown timeout reached")
	}

	e.nc.Close()
	log.Println("distributed executor stopped")
	return nil
}

// admissionLoop mirrors LocalExecutor's own, draining the backlog against
// the same ConcurrencyManager gate.
func (e *DistributedExecutor) admissionLoop(ctx context.Context) {
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

// GetStatus reports the dispatcher's view of the pending-instances queue
// depth, read from JetStream stream info.
func (e *DistributedExecutor) GetStatus() ExecutorStatus {
	status := e.runner.status()
	status.Running = atomic.LoadInt32(&e.running) == 1
	if stream, err := e.js.StreamInfo(InstancesPendingStream); err == nil {
		status.QueueDepth = int(stream.State.Msgs)
	}
	return status
}

// Submit marks a pending instance RUNNING and publishes its first tick.
func (e *DistributedExecutor) Submit(ctx context.Context, instanceID string) error {
	return e.runner.submit(ctx, instanceID, e.enqueue)
}

// Resume re-admits a WAITING instance and publishes its next tick.
func (e *DistributedExecutor) Resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error {
	return e.runner.resume(ctx, instanceID, taskID, payload, e.enqueue)
}

// Cancel marks a non-terminal instance CANCELLED. No message is published:
// whichever worker next (or already) holds this instance observes the
// terminal state at the top of tick and stops.
func (e *DistributedExecutor) Cancel(ctx context.Context, instanceID string) error {
	return e.runner.cancel(ctx, instanceID)
}
