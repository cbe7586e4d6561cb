package dto

import (
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// CreateTemplateRequest registers a Template.
// Templates are authored as task/dependency lists rather than raw DAG
// edges; the builder in internal/dag turns this into a frozen Template.
type CreateTemplateRequest struct {
	DAGID        string                 `json:"dag_id" validate:"required"`
	Version      string                 `json:"version" validate:"required"`
	Name         string                 `json:"name" validate:"required"`
	Description  string                 `json:"description"`
	WorkflowType string                 `json:"workflow_type"`
	Category     string                 `json:"category"`
	Tags         []string               `json:"tags"`
	Tasks        []TaskDefDTO           `json:"tasks" validate:"required,min=1,dive"`
}

// TaskDefDTO is one task_id's binding to an operator kind in a template.
type TaskDefDTO struct {
	TaskID       string                 `json:"task_id" validate:"required"`
	Name         string                 `json:"name"`
	OperatorKind string                 `json:"operator_kind" validate:"required"`
	Dependencies []string               `json:"dependencies"`
	Config       map[string]interface{} `json:"config"`
	RetryPolicy  *RetryPolicyDTO        `json:"retry_policy,omitempty"`
}

// RetryPolicyDTO mirrors models.RetryPolicy for wire transport.
type RetryPolicyDTO struct {
	MaxAttempts int           `json:"max_attempts" validate:"min=0"`
	BaseDelay   time.Duration `json:"base_delay"`
}

// TemplateResponse reports a registered Template's shape back to the caller.
type TemplateResponse struct {
	DAGID        string       `json:"dag_id"`
	Version      string       `json:"version"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	WorkflowType string       `json:"workflow_type"`
	Category     string       `json:"category"`
	Tags         []string     `json:"tags"`
	Tasks        []TaskDefDTO `json:"tasks"`
}

func ToTemplateResponse(tmpl *models.Template) TemplateResponse {
	tasks := make([]TaskDefDTO, 0, len(tmpl.Tasks))
	for _, t := range tmpl.Tasks {
		dto := TaskDefDTO{
			TaskID:       t.TaskID,
			Name:         t.Name,
			OperatorKind: string(t.OperatorKind),
			Dependencies: t.Dependencies,
			Config:       t.Config,
		}
		if t.RetryPolicy != nil {
			dto.RetryPolicy = &RetryPolicyDTO{MaxAttempts: t.RetryPolicy.MaxAttempts, BaseDelay: t.RetryPolicy.BaseDelay}
		}
		tasks = append(tasks, dto)
	}
	return TemplateResponse{
		DAGID:        tmpl.DAGID,
		Version:      tmpl.Version,
		Name:         tmpl.Name,
		Description:  tmpl.Description,
		WorkflowType: string(tmpl.WorkflowType),
		Category:     tmpl.Category,
		Tags:         tmpl.Tags,
		Tasks:        tasks,
	}
}

// CreateInstanceRequest starts a new Instance from a registered template.
// Version empty means latest.
type CreateInstanceRequest struct {
	DAGID       string                 `json:"dag_id" validate:"required"`
	Version     string                 `json:"version"`
	UserID      string                 `json:"user_id" validate:"required"`
	InitialData map[string]interface{} `json:"initial_data"`
	AutoStart   bool                   `json:"auto_start"`
}

// SubmitInputRequest resumes a WAITING task.
type SubmitInputRequest struct {
	Payload map[string]interface{} `json:"payload"`
}

// InstanceResponse reports an Instance's current state back to the caller.
type InstanceResponse struct {
	InstanceID      string                 `json:"instance_id"`
	DAGID           string                 `json:"dag_id"`
	DAGVersion      string                 `json:"dag_version"`
	UserID          string                 `json:"user_id"`
	Status          string                 `json:"status"`
	TerminalStatus  string                 `json:"terminal_status,omitempty"`
	TerminalMessage string                 `json:"terminal_message,omitempty"`
	CurrentTask     string                 `json:"current_task,omitempty"`
	Context         map[string]interface{} `json:"context"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func ToInstanceResponse(instance *models.Instance) InstanceResponse {
	return InstanceResponse{
		InstanceID:      instance.InstanceID,
		DAGID:           instance.DAGID,
		DAGVersion:      instance.DAGVersion,
		UserID:          instance.UserID,
		Status:          string(instance.Status),
		TerminalStatus:  instance.TerminalStatus,
		TerminalMessage: instance.TerminalMessage,
		CurrentTask:     instance.CurrentTask,
		Context:         instance.Context,
		CreatedAt:       instance.CreatedAt,
		UpdatedAt:       instance.UpdatedAt,
	}
}

// InstanceListResponse is a paginated list of instances.
type InstanceListResponse struct {
	Instances  []InstanceResponse `json:"instances"`
	Pagination PaginationMeta     `json:"pagination"`
}

// HookRequest registers or updates a Hook.
type HookRequest struct {
	HookID             string                 `json:"hook_id" validate:"required"`
	ListenerWorkflowID string                 `json:"listener_workflow_id" validate:"required"`
	EventPattern       string                 `json:"event_pattern" validate:"required"`
	TriggerType        string                 `json:"trigger_type" validate:"required"`
	Priority           int                    `json:"priority"`
	Enabled            bool                   `json:"enabled"`
	Conditions         map[string]interface{} `json:"conditions"`
	RequiredEntities   []string               `json:"required_entities"`
	UserFilters        map[string]interface{} `json:"user_filters"`
	PassEventContext   bool                   `json:"pass_event_context"`
	ContextMapping     map[string]string      `json:"context_mapping"`
	AssignmentStrategy string                 `json:"assignment_strategy"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description"`
}

func (r HookRequest) ToHook() *models.Hook {
	return &models.Hook{
		HookID:             r.HookID,
		ListenerWorkflowID: r.ListenerWorkflowID,
		EventPattern:       r.EventPattern,
		TriggerType:        models.HookTriggerType(r.TriggerType),
		Priority:           r.Priority,
		Enabled:            r.Enabled,
		Conditions:         parseConditions(r.Conditions),
		RequiredEntities:   r.RequiredEntities,
		UserFilters:        r.UserFilters,
		PassEventContext:   r.PassEventContext,
		ContextMapping:     r.ContextMapping,
		AssignmentStrategy: models.AssignmentStrategy(r.AssignmentStrategy),
		Name:               r.Name,
		Description:        r.Description,
	}
}

// parseConditions decodes the wire form of a conditions map: each value is
// either a bare scalar (implicit equality) or a single-key {eq|gt|in: value}
// object. Unknown operator keys fall back to equality on the raw value.
func parseConditions(raw map[string]interface{}) map[string]models.Condition {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]models.Condition, len(raw))
	for k, v := range raw {
		if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
			for op, val := range m {
				switch models.ConditionOperator(op) {
				case models.ConditionOpEq, models.ConditionOpGt, models.ConditionOpIn:
					out[k] = models.Condition{Operator: models.ConditionOperator(op), Value: val}
				default:
					out[k] = models.Condition{Operator: models.ConditionOpEq, Value: v}
				}
			}
			continue
		}
		out[k] = models.Condition{Operator: models.ConditionOpEq, Value: v}
	}
	return out
}

// HookResponse reports a registered Hook back to the caller.
type HookResponse struct {
	HookID             string `json:"hook_id"`
	ListenerWorkflowID string `json:"listener_workflow_id"`
	EventPattern       string `json:"event_pattern"`
	TriggerType        string `json:"trigger_type"`
	Priority           int    `json:"priority"`
	Enabled            bool   `json:"enabled"`
}

func ToHookResponse(h *models.Hook) HookResponse {
	return HookResponse{
		HookID:             h.HookID,
		ListenerWorkflowID: h.ListenerWorkflowID,
		EventPattern:       h.EventPattern,
		TriggerType:        string(h.TriggerType),
		Priority:           h.Priority,
		Enabled:            h.Enabled,
	}
}

// PublishEventRequest publishes an externally-originated event.
type PublishEventRequest struct {
	EventType  string                 `json:"event_type" validate:"required"`
	WorkflowID string                 `json:"workflow_id" validate:"required"`
	InstanceID string                 `json:"instance_id"`
	UserID     string                 `json:"user_id"`
	EventData  map[string]interface{} `json:"event_data"`
}
