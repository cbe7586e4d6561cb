// Package executor implements the Executor: it owns the set of
// in-flight instances, computes each instance's ready set, runs tasks
// through the operator Registry, and persists the result.
package executor

import (
	"context"
	"time"
)

// Executor is the public surface the rest of the system drives instances
// through. Submit/Resume/Cancel are the public operations; tick is
// internal (driven by the worker pool, not exposed).
type Executor interface {
	// Submit marks instance RUNNING and schedules its first tick.
	Submit(ctx context.Context, instanceID string) error
	// Resume re-admits a WAITING instance — a form submission, an approval
	// decision, or a child instance's completion — carrying the payload
	// that woke it. taskID names the task that was waiting.
	Resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error
	// Cancel marks instance CANCELLED; any in-flight task's result is
	// discarded on the next observation.
	Cancel(ctx context.Context, instanceID string) error
	// Start begins the worker pool that drains the tick queue.
	Start(ctx context.Context) error
	// Stop drains in-flight ticks and shuts the worker pool down.
	Stop(ctx context.Context) error
	// GetStatus reports the Executor's current load.
	GetStatus() ExecutorStatus
}

// ExecutorStatus reports instance-level counters. There is no per-task-kind
// breakdown: every task is dispatched through the same operator Registry
// regardless of kind.
type ExecutorStatus struct {
	Running         bool
	ActiveInstances int
	QueueDepth      int
	CompletedTicks  int64
	FailedTicks     int64
}

// ExecutorConfig carries what an instance-level Executor actually uses.
// There is no Docker/memory/CPU sandboxing concern here since operators
// are in-process Go code, not shelled-out task commands — that concern
// moved to IntegrationOperator's adapter, which owns its own timeout.
type ExecutorConfig struct {
	WorkerCount         int
	QueueSize           int
	PerInstanceMaxTasks int // concurrency cap per tick, default 1
	TickRetryInterval   time.Duration
	ShutdownTimeout     time.Duration

	// AdmissionInterval is how often the admission loop retries instances
	// parked by Submit when ConcurrencyManager denied an immediate slot.
	// Unused when no ConcurrencyManager is configured.
	AdmissionInterval time.Duration
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		WorkerCount:         5,
		QueueSize:           1000,
		PerInstanceMaxTasks: 1,
		TickRetryInterval:   time.Second,
		ShutdownTimeout:     30 * time.Second,
		AdmissionInterval:   time.Second,
	}
}
