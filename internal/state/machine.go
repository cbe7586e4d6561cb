package state

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrOptimisticLock is returned when optimistic locking fails
	ErrOptimisticLock = errors.New("optimistic lock failed - entity was modified")
)

// InstanceMachine governs the top-level lifecycle of an Instance.
type InstanceMachine struct {
	validTransitions map[models.InstanceStatus][]models.InstanceStatus
}

// NewInstanceMachine creates the instance-level state machine.
func NewInstanceMachine() *InstanceMachine {
	return &InstanceMachine{
		validTransitions: map[models.InstanceStatus][]models.InstanceStatus{
			models.InstanceStatusPending: {
				models.InstanceStatusRunning,
				models.InstanceStatusCancelled,
			},
			models.InstanceStatusRunning: {
				models.InstanceStatusWaitingForInput,
				models.InstanceStatusPaused,
				models.InstanceStatusWaitingForAssignment,
				models.InstanceStatusCompleted,
				models.InstanceStatusFailed,
				models.InstanceStatusCancelled,
			},
			models.InstanceStatusWaitingForInput: {
				models.InstanceStatusRunning,
				models.InstanceStatusCancelled,
			},
			models.InstanceStatusPaused: {
				models.InstanceStatusRunning,
				models.InstanceStatusCancelled,
			},
			models.InstanceStatusWaitingForAssignment: {
				models.InstanceStatusRunning,
				models.InstanceStatusCancelled,
			},
			// Terminal states don't transition.
			models.InstanceStatusCompleted: {},
			models.InstanceStatusFailed:    {},
			models.InstanceStatusCancelled: {},
		},
	}
}

// CanTransition reports whether from -> to is a legal instance transition.
func (m *InstanceMachine) CanTransition(from, to models.InstanceStatus) bool {
	if from == to {
		return true
	}
	for _, s := range m.validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition if from -> to is illegal.
func (m *InstanceMachine) ValidateTransition(from, to models.InstanceStatus) error {
	if !m.CanTransition(from, to) {
		return fmt.Errorf("%w: cannot transition instance from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// TaskMachine governs a single task's per-instance lifecycle: pending
// -> executing -> {completed | waiting | failed}, waiting resumable back to
// executing.
type TaskMachine struct {
	validTransitions map[models.TaskStatus][]models.TaskStatus
}

// NewTaskMachine creates the task-level state machine.
func NewTaskMachine() *TaskMachine {
	return &TaskMachine{
		validTransitions: map[models.TaskStatus][]models.TaskStatus{
			models.TaskStatusPending: {
				models.TaskStatusExecuting,
			},
			models.TaskStatusExecuting: {
				models.TaskStatusCompleted,
				models.TaskStatusWaiting,
				models.TaskStatusFailed,
			},
			models.TaskStatusWaiting: {
				models.TaskStatusExecuting,
			},
			models.TaskStatusCompleted: {},
			models.TaskStatusFailed:    {},
		},
	}
}

// CanTransition reports whether from -> to is a legal task transition.
func (m *TaskMachine) CanTransition(from, to models.TaskStatus) bool {
	if from == to {
		return true
	}
	for _, s := range m.validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition if from -> to is illegal.
func (m *TaskMachine) ValidateTransition(from, to models.TaskStatus) error {
	if !m.CanTransition(from, to) {
		return fmt.Errorf("%w: cannot transition task from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// TransitionEvent represents a state transition event, instance- or
// task-scoped. Metadata carries the task_id for task-scoped events.
type TransitionEvent struct {
	EntityType string // "instance" or "task"
	EntityID   string // instance_id, or "<instance_id>/<task_id>" for a task event
	OldState   string
	NewState   string
	Metadata   map[string]interface{}
}

// EventPublisher is an interface for publishing state change events
type EventPublisher interface {
	Publish(event TransitionEvent) error
}

// NoOpPublisher is a no-op event publisher for testing
type NoOpPublisher struct{}

// Publish does nothing
func (p *NoOpPublisher) Publish(event TransitionEvent) error {
	return nil
}

// Manager handles instance and task state transitions with event publishing.
type Manager struct {
	instances *InstanceMachine
	tasks     *TaskMachine
	publisher EventPublisher
}

// NewManager creates a new state manager
func NewManager(publisher EventPublisher) *Manager {
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &Manager{
		instances: NewInstanceMachine(),
		tasks:     NewTaskMachine(),
		publisher: publisher,
	}
}

// TransitionInstance validates and publishes an instance state change.
func (m *Manager) TransitionInstance(instanceID string, from, to models.InstanceStatus, metadata map[string]interface{}) error {
	if err := m.instances.ValidateTransition(from, to); err != nil {
		return err
	}

	event := TransitionEvent{
		EntityType: "instance",
		EntityID:   instanceID,
		OldState:   string(from),
		NewState:   string(to),
		Metadata:   metadata,
	}

	if err := m.publisher.Publish(event); err != nil {
		return fmt.Errorf("failed to publish instance transition event: %w", err)
	}

	return nil
}

// TransitionTask validates and publishes a task state change scoped to an
// instance.
func (m *Manager) TransitionTask(instanceID, taskID string, from, to models.TaskStatus, metadata map[string]interface{}) error {
	if err := m.tasks.ValidateTransition(from, to); err != nil {
		return err
	}

	event := TransitionEvent{
		EntityType: "task",
		EntityID:   fmt.Sprintf("%s/%s", instanceID, taskID),
		OldState:   string(from),
		NewState:   string(to),
		Metadata:   metadata,
	}

	if err := m.publisher.Publish(event); err != nil {
		return fmt.Errorf("failed to publish task transition event: %w", err)
	}

	return nil
}

// CanTransitionInstance delegates to the instance state machine.
func (m *Manager) CanTransitionInstance(from, to models.InstanceStatus) bool {
	return m.instances.CanTransition(from, to)
}

// CanTransitionTask delegates to the task state machine.
func (m *Manager) CanTransitionTask(from, to models.TaskStatus) bool {
	return m.tasks.CanTransition(from, to)
}
