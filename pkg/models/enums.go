package models

// WorkflowType governs a template's default assignment behavior and whether
// it emits or listens to lifecycle events.
type WorkflowType string

const (
	WorkflowTypeProcess            WorkflowType = "process"
	WorkflowTypeAdmin              WorkflowType = "admin"
	WorkflowTypeDocumentProcessing WorkflowType = "document_processing"
	WorkflowTypeIntegration        WorkflowType = "integration"
	WorkflowTypeMonitoring         WorkflowType = "monitoring"
	WorkflowTypeValidation         WorkflowType = "validation"
)

// InstanceStatus is the top-level lifecycle state of a DAG instance.
type InstanceStatus string

const (
	InstanceStatusPending               InstanceStatus = "pending"
	InstanceStatusRunning               InstanceStatus = "running"
	InstanceStatusWaitingForInput       InstanceStatus = "waiting_for_input"
	InstanceStatusPaused                InstanceStatus = "paused"
	InstanceStatusWaitingForAssignment  InstanceStatus = "waiting_for_assignment"
	InstanceStatusCompleted             InstanceStatus = "completed"
	InstanceStatusFailed                InstanceStatus = "failed"
	InstanceStatusCancelled             InstanceStatus = "cancelled"
)

// IsTerminal reports whether the instance will never transition again.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusFailed || s == InstanceStatusCancelled
}

// TaskStatus is the per-task, per-instance state machine: pending ->
// executing -> {completed | waiting | failed}. waiting is resumable.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusExecuting TaskStatus = "executing"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusWaiting   TaskStatus = "waiting"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsAbsorbing reports whether a task in this status can ever transition again.
func (s TaskStatus) IsAbsorbing() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskResultStatus is the outcome an operator reports from Execute.
type TaskResultStatus string

const (
	TaskResultCompleted TaskResultStatus = "completed"
	TaskResultContinue  TaskResultStatus = "continue"
	TaskResultWaiting   TaskResultStatus = "waiting"
	TaskResultFailed    TaskResultStatus = "failed"
)

// OperatorKind is the closed set of task behaviors a Template may bind to a
// task_id. Replaces dynamic attribute access / hasattr-style dispatch with a
// tagged union, per the DESIGN NOTES.
type OperatorKind string

const (
	OperatorKindAction           OperatorKind = "action"
	OperatorKindConditional      OperatorKind = "conditional"
	OperatorKindApproval         OperatorKind = "approval"
	OperatorKindUserInput        OperatorKind = "user_input"
	OperatorKindAdminInput       OperatorKind = "admin_input"
	OperatorKindIntegration      OperatorKind = "integration"
	OperatorKindTerminal         OperatorKind = "terminal"
	OperatorKindWorkflowStart    OperatorKind = "workflow_start"
	OperatorKindEntityValidation OperatorKind = "entity_validation"
)

// ApprovalDecision is the typed decision an external caller supplies to
// resume an ApprovalOperator.
type ApprovalDecision string

const (
	ApprovalDecisionApproved        ApprovalDecision = "APPROVED"
	ApprovalDecisionRejected        ApprovalDecision = "REJECTED"
	ApprovalDecisionRequestChanges  ApprovalDecision = "REQUEST_CHANGES"
	ApprovalDecisionEscalate        ApprovalDecision = "ESCALATE"
)

// EventType is the set of workflow lifecycle events the Event Bus carries.
type EventType string

const (
	EventTypeStarted            EventType = "started"
	EventTypeCompleted          EventType = "completed"
	EventTypeFailed             EventType = "failed"
	EventTypePaused             EventType = "paused"
	EventTypeResumed            EventType = "resumed"
	EventTypeEntityCreated      EventType = "entity_created"
	EventTypeApprovalRequested  EventType = "approval_requested"
	EventTypeApprovalCompleted  EventType = "approval_completed"
)

// HookTriggerType selects which condition family a Hook evaluates.
type HookTriggerType string

const (
	HookTriggerAlways      HookTriggerType = "always"
	HookTriggerConditional HookTriggerType = "conditional"
	HookTriggerEntityBased HookTriggerType = "entity_based"
	HookTriggerUserBased   HookTriggerType = "user_based"
)

// AssignmentStatus is the review sub-state-machine of an assigned admin
// instance.
type AssignmentStatus string

const (
	AssignmentStatusPendingReview         AssignmentStatus = "pending_review"
	AssignmentStatusUnderReview           AssignmentStatus = "under_review"
	AssignmentStatusApprovedByReviewer    AssignmentStatus = "approved_by_reviewer"
	AssignmentStatusRejected              AssignmentStatus = "rejected"
	AssignmentStatusModificationRequested AssignmentStatus = "modification_requested"
	AssignmentStatusPendingSignature      AssignmentStatus = "pending_signature"
	AssignmentStatusCompleted             AssignmentStatus = "completed"
	AssignmentStatusEscalated             AssignmentStatus = "escalated"
	AssignmentStatusOnHold                AssignmentStatus = "on_hold"
)

// AssignmentType records how a binding was made.
type AssignmentType string

const (
	AssignmentTypeManual     AssignmentType = "manual"
	AssignmentTypeAutomatic  AssignmentType = "automatic"
	AssignmentTypeEscalated  AssignmentType = "escalated"
	AssignmentTypeReassigned AssignmentType = "reassigned"
)

// AssignmentStrategy selects the policy the Assignment Service uses to pick
// a team or user for a newly created admin instance.
type AssignmentStrategy string

const (
	AssignmentStrategyRoundRobin    AssignmentStrategy = "round_robin"
	AssignmentStrategyWorkloadBased AssignmentStrategy = "workload_based"
	AssignmentStrategyExpertise     AssignmentStrategy = "expertise_based"
	AssignmentStrategyRandom        AssignmentStrategy = "random"
	AssignmentStrategyPriority      AssignmentStrategy = "priority_based"
)
