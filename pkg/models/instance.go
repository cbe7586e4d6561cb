package models

import "time"

// TaskState is the per-task execution record embedded in an Instance.
type TaskState struct {
	Status      TaskStatus             `json:"status"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	OutputData  map[string]interface{} `json:"output_data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	WaitingFor  string                 `json:"waiting_for,omitempty"`
	TryNumber   int                    `json:"try_number"`
}

// AssignmentHistoryEntry records a prior binding before a reassignment,
// escalation, or unassignment overwrites it.
type AssignmentHistoryEntry struct {
	UserID       string     `json:"user_id,omitempty"`
	TeamID       string     `json:"team_id,omitempty"`
	Status       AssignmentStatus `json:"status"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	AssignedBy   string     `json:"assigned_by,omitempty"`
	UnassignedAt *time.Time `json:"unassigned_at,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// Assignment is the review/approval sub-record embedded in an admin
// Instance. Transitions are governed by the review state machine.
type Assignment struct {
	TeamID               string                    `json:"team_id,omitempty"`
	UserID                string                    `json:"user_id,omitempty"`
	AssignedBy            string                    `json:"assigned_by,omitempty"`
	AssignedAt            *time.Time                `json:"assigned_at,omitempty"`
	AssignmentStatus       AssignmentStatus          `json:"assignment_status"`
	AssignmentType         AssignmentType            `json:"assignment_type,omitempty"`
	AssignmentNotes        string                    `json:"assignment_notes,omitempty"`
	ReviewedBy             string                    `json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time                `json:"reviewed_at,omitempty"`
	ReviewDecision         string                    `json:"review_decision,omitempty"`
	ReviewComments         string                    `json:"review_comments,omitempty"`
	ModificationRequests   []map[string]interface{} `json:"modification_requests,omitempty"`
	ApprovedBy             string                    `json:"approved_by,omitempty"`
	ApprovedAt             *time.Time                `json:"approved_at,omitempty"`
	ApprovalComments       string                    `json:"approval_comments,omitempty"`
	RejectionReason        string                    `json:"rejection_reason,omitempty"`
	History                []AssignmentHistoryEntry `json:"history,omitempty"`
}

// Instance is a single user's execution of a Template: isolated context,
// isolated task state, no back-reference to the Template itself (the DAG
// Registry is the sole authority for template lookups).
type Instance struct {
	InstanceID       string         `json:"instance_id"`
	DAGID            string         `json:"dag_id"`
	DAGVersion       string         `json:"dag_version"`
	UserID           string         `json:"user_id"`
	ParentInstanceID string         `json:"parent_instance_id,omitempty"`
	ParentTaskID     string         `json:"parent_task_id,omitempty"`
	WorkflowType     WorkflowType   `json:"workflow_type"`
	Status           InstanceStatus `json:"status"`
	TerminalStatus   string         `json:"terminal_status,omitempty"`
	TerminalMessage  string         `json:"terminal_message,omitempty"`
	Priority         int            `json:"priority"`

	Context map[string]interface{} `json:"context"`

	TaskStates     map[string]*TaskState `json:"task_states"`
	CompletedTasks map[string]bool       `json:"completed_tasks"`
	FailedTasks    map[string]bool       `json:"failed_tasks"`
	CurrentTask    string                `json:"current_task,omitempty"`

	Assignment *Assignment `json:"assignment,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Version is the optimistic-concurrency token the Instance Store
	// compares on save and increments on each successful save.
	Version int64 `json:"version"`
}

// NewInstance seeds a fresh instance from a template: every task starts
// pending, the context is a copy of initial_data, and the version starts
// at its zero value for optimistic-concurrency comparison.
func NewInstance(instanceID string, tmpl *Template, userID string, initialData map[string]interface{}) *Instance {
	ctx := make(map[string]interface{}, len(initialData))
	for k, v := range initialData {
		ctx[k] = v
	}

	states := make(map[string]*TaskState, len(tmpl.Tasks))
	for taskID := range tmpl.Tasks {
		states[taskID] = &TaskState{Status: TaskStatusPending}
	}

	now := time.Now().UTC()
	return &Instance{
		InstanceID:     instanceID,
		DAGID:          tmpl.DAGID,
		DAGVersion:     tmpl.Version,
		UserID:         userID,
		WorkflowType:   tmpl.WorkflowType,
		Status:         InstanceStatusPending,
		Context:        ctx,
		TaskStates:     states,
		CompletedTasks: make(map[string]bool),
		FailedTasks:    make(map[string]bool),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsCompleted reports whether every task in the instance reached completed.
func (i *Instance) IsCompleted(tmpl *Template) bool {
	return len(i.CompletedTasks) == len(tmpl.Tasks)
}

// HasFailed reports whether any task of the instance is in failed state.
func (i *Instance) HasFailed() bool {
	return len(i.FailedTasks) > 0
}

// ProgressPercentage returns the fraction of tasks completed, 0-100.
func (i *Instance) ProgressPercentage(tmpl *Template) float64 {
	if len(tmpl.Tasks) == 0 {
		return 0
	}
	return (float64(len(i.CompletedTasks)) / float64(len(tmpl.Tasks))) * 100
}
