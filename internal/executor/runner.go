package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/retry"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// TemplateProvider is the subset of the DAG Registry the Executor needs to
// resolve an instance's frozen Template. Satisfied by *dag.Registry.
type TemplateProvider interface {
	GetTemplate(dagID, version string) (*models.Template, error)
}

// DeadLetterQueue receives an instance whose failed task has no retry
// policy left to absorb it.
// Satisfied by *dlq.Manager.
type DeadLetterQueue interface {
	AddFailedInstance(ctx context.Context, instance *models.Instance, taskID string, err error) error
}

// enqueueFunc hands a ready-to-tick instance ID to whatever scheduling
// mechanism a particular Executor uses: LocalExecutor pushes onto an
// in-process channel, DistributedExecutor publishes onto a NATS JetStream
// work-queue subject for any worker process to pick up.
type enqueueFunc func(ctx context.Context, instanceID string) error

// resumeKey namespaces a per-task resume payload in the in-memory resume
// table.
func resumeKey(instanceID, taskID string) string {
	return instanceID + "/" + taskID
}

// instanceRunner implements the per-instance tick algorithm —
// admit/resume/cancel state transitions, ready-set computation, operator
// dispatch, result application — independent of how a tick gets scheduled.
// Both LocalExecutor (in-process channel) and DistributedExecutor/Worker
// (NATS JetStream) drive instances through the same runner; only the
// enqueueing mechanism differs.
type instanceRunner struct {
	templates    TemplateProvider
	instances    storage.InstanceRepository
	registry     *operator.Registry
	stateMachine *state.Manager
	config       *ExecutorConfig

	inFlight sync.Map // instanceID -> struct{}, guards against double-driving
	resumes  sync.Map // resumeKey(instanceID,taskID) -> map[string]interface{}

	concurrency *ConcurrencyManager // optional; nil disables admission gating
	backlog     *admissionQueue
	deadLetter  DeadLetterQueue         // optional; nil disables dead-letter recording
	events      operator.EventPublisher // optional; nil disables lifecycle events

	mu             sync.Mutex
	activeCount    int64
	completedTicks int64
	failedTicks    int64
}

func newInstanceRunner(
	templates TemplateProvider,
	instances storage.InstanceRepository,
	registry *operator.Registry,
	stateMachine *state.Manager,
	config *ExecutorConfig,
) *instanceRunner {
	return &instanceRunner{
		templates:    templates,
		instances:    instances,
		registry:     registry,
		stateMachine: stateMachine,
		config:       config,
		backlog:      newAdmissionQueue(),
	}
}

func (r *instanceRunner) status() ExecutorStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExecutorStatus{
		ActiveInstances: int(atomic.LoadInt64(&r.activeCount)),
		CompletedTicks:  r.completedTicks,
		FailedTicks:     r.failedTicks,
	}
}

func (r *instanceRunner) recordDeadLetter(ctx context.Context, instance *models.Instance, taskID string) {
	if r.deadLetter == nil {
		return
	}
	ts := instance.TaskStates[taskID]
	var err error
	if ts != nil && ts.Error != "" {
		err = errors.New(ts.Error)
	}
	if dlErr := r.deadLetter.AddFailedInstance(ctx, instance, taskID, err); dlErr != nil {
		log.Printf("dlq: failed to record instance %s task %s: %v", instance.InstanceID, taskID, dlErr)
	}
}

// publishLifecycle emits one of the instance-level lifecycle events
// (started, completed, failed, paused, resumed) for hooks and subscribers
// to react to. Best-effort: the instance's own state transition has already
// been persisted by the time this is called, and a publish failure must not
// fail the tick.
func (r *instanceRunner) publishLifecycle(ctx context.Context, instance *models.Instance, eventType models.EventType, data map[string]interface{}) {
	if r.events == nil {
		return
	}
	evt := &models.Event{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		WorkflowID: instance.DAGID,
		InstanceID: instance.InstanceID,
		UserID:     instance.UserID,
		EventData:  data,
		Timestamp:  time.Now().UTC(),
	}
	if err := r.events.Publish(ctx, evt); err != nil {
		log.Printf("executor: publish %s event for instance %s: %v", eventType, instance.InstanceID, err)
	}
}

// submit marks a pending instance RUNNING and hands its first tick to
// enqueue. If a ConcurrencyManager is configured and has no free global or
// per-template slot, the instance is parked in the backlog priority queue
// (ordered by Instance.Priority, then FIFO) instead of admitted immediately.
func (r *instanceRunner) submit(ctx context.Context, instanceID string, enqueue enqueueFunc) error {
	instance, err := r.instances.Load(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if instance.Status != models.InstanceStatusPending {
		return fmt.Errorf("submit: instance %s is %s, not pending", instanceID, instance.Status)
	}

	if r.concurrency != nil && (!r.concurrency.CanAdmitGlobal() || !r.concurrency.CanAdmitTemplate(instance.DAGID)) {
		r.backlog.push(instanceID, instance.DAGID, instance.Priority)
		return nil
	}

	return r.admit(ctx, instance, enqueue)
}

// admit performs the actual Pending -> Running transition and enqueues the
// instance's first tick, recording one concurrency slot if a manager is
// configured.
func (r *instanceRunner) admit(ctx context.Context, instance *models.Instance, enqueue enqueueFunc) error {
	if err := r.stateMachine.TransitionInstance(instance.InstanceID, instance.Status, models.InstanceStatusRunning, nil); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	now := time.Now().UTC()
	instance.Status = models.InstanceStatusRunning
	instance.StartedAt = &now

	if err := r.instances.Save(ctx, instance); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if r.concurrency != nil {
		r.concurrency.IncrementGlobal()
		r.concurrency.IncrementTemplate(instance.DAGID)
	}

	r.publishLifecycle(ctx, instance, models.EventTypeStarted, snapshotContext(instance.Context))

	return enqueue(ctx, instance.InstanceID)
}

// drainBacklog retries backlog items as concurrency slots free up.
func (r *instanceRunner) drainBacklog(ctx context.Context, enqueue enqueueFunc) {
	for {
		if !r.concurrency.CanAdmitGlobal() {
			return
		}
		item := r.backlog.pop()
		if item == nil {
			return
		}
		if !r.concurrency.CanAdmitTemplate(item.dagID) {
			r.backlog.push(item.instanceID, item.dagID, item.priority)
			return
		}

		instance, err := r.instances.Load(ctx, item.instanceID)
		if err != nil {
			log.Printf("executor: admission loop: load %s: %v", item.instanceID, err)
			continue
		}
		if instance.Status != models.InstanceStatusPending {
			continue // cancelled or already admitted by another path
		}
		if err := r.admit(ctx, instance, enqueue); err != nil {
			log.Printf("executor: admission loop: admit %s: %v", item.instanceID, err)
		}
	}
}

// resume re-admits a WAITING instance, carrying the payload that woke it.
// taskID must name the task currently in the waiting state.
func (r *instanceRunner) resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}, enqueue enqueueFunc) error {
	instance, err := r.instances.Load(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if instance.Status != models.InstanceStatusWaitingForInput {
		return fmt.Errorf("resume: instance %s is %s, not waiting_for_input", instanceID, instance.Status)
	}
	ts, ok := instance.TaskStates[taskID]
	if !ok || ts.Status != models.TaskStatusWaiting {
		return fmt.Errorf("resume: task %s is not waiting", taskID)
	}

	r.resumes.Store(resumeKey(instanceID, taskID), payload)

	if err := r.stateMachine.TransitionInstance(instanceID, instance.Status, models.InstanceStatusRunning, map[string]interface{}{"resumed_task": taskID}); err != nil {
		r.resumes.Delete(resumeKey(instanceID, taskID))
		return fmt.Errorf("resume: %w", err)
	}
	instance.Status = models.InstanceStatusRunning

	if err := r.instances.Save(ctx, instance); err != nil {
		r.resumes.Delete(resumeKey(instanceID, taskID))
		return fmt.Errorf("resume: %w", err)
	}

	// A payload-free poke (the wait reaper re-checking a child) is not an
	// externally observable resume.
	if payload != nil {
		r.publishLifecycle(ctx, instance, models.EventTypeResumed, map[string]interface{}{"resumed_task": taskID})
	}

	return enqueue(ctx, instanceID)
}

// cancel marks a non-terminal instance CANCELLED. No enqueue is needed: the
// next tick a worker happens to run against this instance (or the one
// already in flight, which checks status at the top of tick) observes the
// terminal state and stops.
func (r *instanceRunner) cancel(ctx context.Context, instanceID string) error {
	instance, err := r.instances.Load(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	if instance.Status.IsTerminal() {
		return nil
	}

	if err := r.stateMachine.TransitionInstance(instanceID, instance.Status, models.InstanceStatusCancelled, nil); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	instance.Status = models.InstanceStatusCancelled
	now := time.Now().UTC()
	instance.CompletedAt = &now

	if err := r.instances.Save(ctx, instance); err != nil {
		return err
	}
	r.releaseSlot(instance.DAGID)
	return nil
}

// releaseSlot frees one admission slot when an instance reaches a terminal
// state. A no-op when no ConcurrencyManager is configured.
func (r *instanceRunner) releaseSlot(dagID string) {
	if r.concurrency == nil {
		return
	}
	r.concurrency.DecrementGlobal()
	r.concurrency.DecrementTemplate(dagID)
}

// driveGuarded ensures a single instance is never ticked by two workers at
// once — the Executor is the sole writer of instance state, so
// overlapping drives of the same instance would race on the same row. This
// holds within one process; LocalExecutor relies on it alone, while
// DistributedExecutor additionally relies on NATS's queue-group delivery
// (exactly one worker process receives a given instanceID message) to hold
// it across processes too.
func (r *instanceRunner) driveGuarded(ctx context.Context, instanceID string) {
	if _, already := r.inFlight.LoadOrStore(instanceID, struct{}{}); already {
		return
	}
	atomic.AddInt64(&r.activeCount, 1)
	defer func() {
		atomic.AddInt64(&r.activeCount, -1)
		r.inFlight.Delete(instanceID)
	}()

	r.drive(ctx, instanceID)
}

// drive repeatedly ticks one instance until it blocks (waiting_for_input),
// reaches a terminal state, or the tick loop hits a transient error worth
// backing off on (an optimistic-lock conflict reloads and retries).
func (r *instanceRunner) drive(ctx context.Context, instanceID string) {
	for {
		blocked, err := r.tick(ctx, instanceID)
		if err != nil {
			if errors.Is(err, state.ErrOptimisticLock) {
				select {
				case <-time.After(r.config.TickRetryInterval):
					continue
				case <-ctx.Done():
					return
				}
			}
			log.Printf("executor: tick failed for instance %s: %v", instanceID, err)
			r.mu.Lock()
			r.failedTicks++
			r.mu.Unlock()
			return
		}

		r.mu.Lock()
		r.completedTicks++
		r.mu.Unlock()

		if blocked {
			return
		}
	}
}

// tick implements one pass of the per-instance algorithm: load, check
// terminal, compute the ready set (skip-aware), admit up to
// PerInstanceMaxTasks ready tasks, persist. Returns blocked=true when the
// instance should not be re-ticked immediately (it finished, failed, or is
// now waiting on external input).
func (r *instanceRunner) tick(ctx context.Context, instanceID string) (blocked bool, err error) {
	instance, err := r.instances.Load(ctx, instanceID)
	if err != nil {
		return true, fmt.Errorf("load instance: %w", err)
	}
	if instance.Status.IsTerminal() {
		return true, nil
	}

	tmpl, err := r.templates.GetTemplate(instance.DAGID, instance.DAGVersion)
	if err != nil {
		return true, fmt.Errorf("load template: %w", err)
	}

	graph := dag.NewGraph(tmpl)
	skipped := computeSkipped(graph, instance)
	r.materializeSkipped(instance, skipped)

	ready := readyTasks(tmpl, graph, instance, skipped)

	if len(ready) == 0 {
		if anyWaiting(instance) {
			// Blocked on input, not exhausted: nothing to admit this tick,
			// but the skip materialization above may still need persisting.
			if err := r.instances.Save(ctx, instance); err != nil {
				return true, err
			}
			return true, nil
		}
		return true, r.finalize(ctx, instance, tmpl)
	}

	admit := ready
	if len(admit) > r.config.PerInstanceMaxTasks {
		admit = admit[:r.config.PerInstanceMaxTasks]
	}

	for _, taskID := range admit {
		firstEntry := instance.TaskStates[taskID] != nil && instance.TaskStates[taskID].Status == models.TaskStatusPending
		result, execErr := r.runTask(ctx, tmpl, instance, taskID)
		r.applyResult(instance, taskID, result, execErr)

		if execErr != nil || result.Status == models.TaskResultFailed {
			if err := r.stateMachine.TransitionInstance(instanceID, models.InstanceStatusRunning, models.InstanceStatusFailed, map[string]interface{}{"failed_task": taskID}); err != nil {
				return true, err
			}
			instance.Status = models.InstanceStatusFailed
			now := time.Now().UTC()
			instance.CompletedAt = &now
			if err := r.instances.Save(ctx, instance); err != nil {
				return true, err
			}
			r.releaseSlot(instance.DAGID)
			r.recordDeadLetter(ctx, instance, taskID)
			r.publishLifecycle(ctx, instance, models.EventTypeFailed, map[string]interface{}{
				"failed_task": taskID,
				"error":       instance.TaskStates[taskID].Error,
			})
			return true, nil
		}

		if result.Status == models.TaskResultWaiting {
			if err := r.stateMachine.TransitionInstance(instanceID, models.InstanceStatusRunning, models.InstanceStatusWaitingForInput, map[string]interface{}{"waiting_task": taskID}); err != nil {
				return true, err
			}
			instance.Status = models.InstanceStatusWaitingForInput
			if err := r.instances.Save(ctx, instance); err != nil {
				return true, err
			}
			// Only the first suspension is announced; a re-polled child
			// wait returning WAITING again is not news.
			if firstEntry {
				r.publishLifecycle(ctx, instance, models.EventTypePaused, map[string]interface{}{
					"waiting_task": taskID,
					"waiting_for":  result.WaitingFor,
				})
			}
			return true, nil
		}
	}

	if err := r.instances.Save(ctx, instance); err != nil {
		return false, err
	}

	return false, nil
}

// finalize transitions an instance whose ready set is empty and which has
// nothing waiting: the DAG is exhausted, one way or the other.
func (r *instanceRunner) finalize(ctx context.Context, instance *models.Instance, tmpl *models.Template) error {
	to := models.InstanceStatusCompleted
	if instance.HasFailed() {
		to = models.InstanceStatusFailed
	}

	if err := r.stateMachine.TransitionInstance(instance.InstanceID, models.InstanceStatusRunning, to, nil); err != nil {
		return err
	}
	instance.Status = to
	now := time.Now().UTC()
	instance.CompletedAt = &now

	if err := r.instances.Save(ctx, instance); err != nil {
		return err
	}
	r.releaseSlot(instance.DAGID)
	if to == models.InstanceStatusFailed {
		for taskID := range instance.FailedTasks {
			r.recordDeadLetter(ctx, instance, taskID)
		}
	}

	eventType := models.EventTypeCompleted
	if to == models.InstanceStatusFailed {
		eventType = models.EventTypeFailed
	}
	data := snapshotContext(instance.Context)
	if instance.TerminalStatus != "" {
		data["terminal_status"] = instance.TerminalStatus
	}
	r.publishLifecycle(ctx, instance, eventType, data)

	return nil
}

// materializeSkipped writes computeSkipped's result into instance state: a
// skipped task_id is recorded as completed with a synthetic
// output_data.skipped marker so downstream AND-joins and IsCompleted both
// see it resolved. This bypasses the per-task state machine on purpose —
// "skipped" is not itself a modeled transition,
// only a bookkeeping shortcut for the conditional-branch case.
func (r *instanceRunner) materializeSkipped(instance *models.Instance, skipped map[string]bool) {
	if len(skipped) == 0 {
		return
	}
	now := time.Now().UTC()
	for taskID := range skipped {
		if instance.CompletedTasks[taskID] {
			continue
		}
		ts := instance.TaskStates[taskID]
		if ts == nil {
			continue
		}
		ts.Status = models.TaskStatusCompleted
		ts.OutputData = map[string]interface{}{"skipped": true}
		ts.CompletedAt = &now
		instance.CompletedTasks[taskID] = true
	}
}

// runTask admits one task_id for execution: transitions it to executing,
// resolves its operator from the Registry, and runs it (optionally under a
// bounded retry policy). The returned error is only ever a transport/
// transition failure; an operator-reported FAILED result comes back as a
// TaskResult with a nil error.
func (r *instanceRunner) runTask(ctx context.Context, tmpl *models.Template, instance *models.Instance, taskID string) (models.TaskResult, error) {
	def := tmpl.Tasks[taskID]
	op, err := r.registry.Get(def.OperatorKind)
	if err != nil {
		return models.TaskResult{}, err
	}

	ts := instance.TaskStates[taskID]
	wasWaiting := ts.Status == models.TaskStatusWaiting

	if err := r.stateMachine.TransitionTask(instance.InstanceID, taskID, ts.Status, models.TaskStatusExecuting, nil); err != nil {
		return models.TaskResult{}, err
	}
	ts.Status = models.TaskStatusExecuting
	if ts.StartedAt == nil {
		now := time.Now().UTC()
		ts.StartedAt = &now
	}
	ts.TryNumber++
	instance.CurrentTask = taskID

	var resume *operator.Resume
	if wasWaiting {
		if v, ok := r.resumes.LoadAndDelete(resumeKey(instance.InstanceID, taskID)); ok {
			payload, _ := v.(map[string]interface{})
			resume = &operator.Resume{Payload: payload}
		}
	}

	in := operator.Input{
		InstanceID: instance.InstanceID,
		TaskID:     taskID,
		UserID:     instance.UserID,
		Config:     def.Config,
		Context:    snapshotContext(instance.Context),
		Resume:     resume,
	}

	return r.executeWithRetry(ctx, op, in, def.RetryPolicy)
}

// executeWithRetry runs one operator call, retrying transparently to the
// instance's context when the task declares a RetryPolicy: neither a Go
// error nor a FAILED TaskResult is visible to the caller until retries are
// exhausted, at which point it is folded into a FAILED TaskResult.
func (r *instanceRunner) executeWithRetry(ctx context.Context, op operator.Operator, in operator.Input, policy *models.RetryPolicy) (models.TaskResult, error) {
	call := func() (models.TaskResult, error) {
		result, err := op.Execute(ctx, in)
		if err != nil {
			return result, err
		}
		if result.Status == models.TaskResultFailed {
			return result, errors.New(result.Error)
		}
		return result, nil
	}

	if policy == nil || policy.MaxAttempts <= 1 {
		result, err := call()
		if err != nil {
			return failedResult(err), nil
		}
		return result, nil
	}

	cfg := retry.NewConfig(policy.MaxAttempts, retry.NewExponentialBackoff(policy.BaseDelay, 5*time.Minute, true))
	result, err := retry.ExecuteWithValue(ctx, cfg, call)
	if err != nil {
		return failedResult(err), nil
	}
	return result, nil
}

func failedResult(err error) models.TaskResult {
	return models.TaskResult{Status: models.TaskResultFailed, Error: err.Error()}
}

// applyResult folds a task's outcome back into instance state: context
// merge, task_states update, completed/failed bookkeeping, and recognizing
// a completed TerminalOperator's terminal_status/terminal_message.
func (r *instanceRunner) applyResult(instance *models.Instance, taskID string, result models.TaskResult, execErr error) {
	ts := instance.TaskStates[taskID]
	now := time.Now().UTC()

	if execErr != nil {
		ts.Status = models.TaskStatusFailed
		ts.Error = execErr.Error()
		ts.CompletedAt = &now
		instance.FailedTasks[taskID] = true
		r.stateMachine.TransitionTask(instance.InstanceID, taskID, models.TaskStatusExecuting, models.TaskStatusFailed, nil)
		return
	}

	switch result.Status {
	case models.TaskResultCompleted, models.TaskResultContinue:
		ts.Status = models.TaskStatusCompleted
		ts.OutputData = result.Data
		ts.CompletedAt = &now
		ts.Error = ""
		instance.CompletedTasks[taskID] = true
		mergeContext(instance.Context, result.Data)

		if status, ok := result.Data["terminal_status"].(string); ok {
			instance.TerminalStatus = status
		}
		if msg, ok := result.Data["terminal_message"].(string); ok {
			instance.TerminalMessage = msg
		}

		r.stateMachine.TransitionTask(instance.InstanceID, taskID, models.TaskStatusExecuting, models.TaskStatusCompleted, nil)

	case models.TaskResultWaiting:
		ts.Status = models.TaskStatusWaiting
		ts.WaitingFor = result.WaitingFor
		ts.Error = ""
		// Keys a waiting operator returns (e.g. a child instance id) go into
		// the context so re-entry can tell it apart from first entry.
		mergeContext(instance.Context, result.Data)
		// Persist the form schema so a UI (or a restarted process) can
		// render the expected fields from stored state alone.
		if result.FormConfig != nil {
			if ts.OutputData == nil {
				ts.OutputData = map[string]interface{}{}
			}
			ts.OutputData["form_config"] = result.FormConfig
		}
		r.stateMachine.TransitionTask(instance.InstanceID, taskID, models.TaskStatusExecuting, models.TaskStatusWaiting, nil)

	case models.TaskResultFailed:
		ts.Status = models.TaskStatusFailed
		ts.Error = result.Error
		ts.CompletedAt = &now
		instance.FailedTasks[taskID] = true
		r.stateMachine.TransitionTask(instance.InstanceID, taskID, models.TaskStatusExecuting, models.TaskStatusFailed, nil)
	}
}

func mergeContext(ctx map[string]interface{}, data map[string]interface{}) {
	for k, v := range data {
		ctx[k] = v
	}
}

func snapshotContext(ctx map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
