package executor

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
)

// Worker is a distributed worker process: it subscribes to
// InstancesPendingSubject under instanceWorkersGroup so NATS load-balances
// pending instance IDs across however many Worker processes are running,
// and drives each one it receives through the same instanceRunner
// LocalExecutor uses, against storage shared with the DistributedExecutor
// that published it. Dispatch goes through the single operator Registry
// every instance tick already uses.
type Worker struct {
	id       string
	hostname string

	nc *nats.Conn
	js nats.JetStreamContext

	runner *instanceRunner
	config *ExecutorConfig

	sub     *nats.Subscription
	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewWorker connects to NATS and builds a worker ready to drive instances
// via the given storage/registry/state manager — the same ones the
// DistributedExecutor and HTTP server were constructed with.
func NewWorker(
	natsURL string,
	templates TemplateProvider,
	instances storage.InstanceRepository,
	registry *operator.Registry,
	stateMachine *state.Manager,
	config *ExecutorConfig,
) (*Worker, error) {
	if config == nil {
		config = DefaultExecutorConfig()
	}

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Worker{
		id:       workerID,
		hostname: hostname,
		nc:       nc,
		js:       js,
		runner:   newInstanceRunner(templates, instances, registry, stateMachine, config),
		config:   config,
	}, nil
}

// WithEventBus attaches a lifecycle-event publisher for the transitions
// this worker's ticks perform (completed, failed, paused). Must be called
// before Start.
func (w *Worker) WithEventBus(events operator.EventPublisher) *Worker {
	w.runner.events = events
	return w
}

// Start subscribes to the pending-instances subject and begins driving
// whatever instance IDs arrive.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker already running")
	}
	w.running = true

	sub, err := w.js.QueueSubscribe(
		InstancesPendingSubject,
		instanceWorkersGroup,
		func(msg *nats.Msg) { w.handleInstance(ctx, msg) },
		nats.Durable(instanceWorkersGroup),
		nats.ManualAck(),
		nats.AckWait(5*time.Minute),
	)
	if err != nil {
		w.running = false
		return fmt.Errorf("failed to subscribe to pending instances: %w", err)
	}
	w.sub = sub

	log.Printf("worker %s started on %s", w.id, w.hostname)
	return nil
}

// Stop unsubscribes and waits for in-flight drives to finish, up to
// ShutdownTimeout.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.sub != nil {
		w.sub.Unsubscribe()
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("worker %s stopped gracefully", w.id)
	case <-time.After(w.config.ShutdownTimeout):
		log.Printf("worker %s shutdown timeout reached", w.id)
	}

	w.nc.Close()
	return nil
}

// handleInstance drives one instance ID to completion or block, then acks
// the NATS message — acking only after driving means a worker that crashes
// mid-drive leaves the message pending for JetStream to redeliver to
// another worker once AckWait elapses.
func (w *Worker) handleInstance(ctx context.Context, msg *nats.Msg) {
	w.wg.Add(1)
	defer w.wg.Done()

	instanceID := string(msg.Data)
	w.runner.driveGuarded(ctx, instanceID)
	msg.Ack()
}

// GetID returns the worker's identity, hostname plus a short random
// suffix so logs distinguish workers run on the same host.
func (w *Worker) GetID() string {
	return w.id
}
