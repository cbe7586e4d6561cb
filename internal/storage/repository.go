package storage

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// TemplateRepository persists registered Templates.
// Templates are write-once: UpsertTemplate inserts a new dag_id+version row
// and errors if that pair already exists — "upsert" here means idempotent
// registration, not mutation of a prior version.
type TemplateRepository interface {
	UpsertTemplate(ctx context.Context, tmpl *models.Template) error
	LoadTemplate(ctx context.Context, dagID, version string) (*models.Template, error)
	ListTemplates(ctx context.Context, filters TemplateFilters) ([]*models.Template, error)
}

// TemplateFilters filters ListTemplates.
type TemplateFilters struct {
	WorkflowType string
	Category     string
	Limit        int
	Offset       int
}

// InstanceRepository persists Instances with optimistic-concurrency saves:
// Save preconditions on the version the instance was loaded at.
type InstanceRepository interface {
	Create(ctx context.Context, instance *models.Instance) error
	Load(ctx context.Context, instanceID string) (*models.Instance, error)
	// Save writes the instance back with a precondition on Version; returns
	// state.ErrOptimisticLock if the stored version has since advanced.
	Save(ctx context.Context, instance *models.Instance) error
	List(ctx context.Context, filters InstanceFilters) ([]*models.Instance, error)
}

// InstanceFilters filters List.
type InstanceFilters struct {
	DAGID  string
	UserID string
	Status *models.InstanceStatus
	After  *time.Time
	Before *time.Time
	Limit  int
	Offset int
}

// EventRepository persists published Events.
type EventRepository interface {
	Append(ctx context.Context, event *models.Event) error
	Query(ctx context.Context, filters EventFilters) ([]*models.Event, error)
	// MarkTriggered appends an instance id to an event's triggered_instances
	// list, used by the Hook Engine after spawning a listener instance.
	MarkTriggered(ctx context.Context, eventID, instanceID string) error
}

// EventFilters filters Query.
type EventFilters struct {
	WorkflowID string
	InstanceID string
	EventType  *models.EventType
	After      *time.Time
	Before     *time.Time
	Limit      int
	Offset     int
}

// HookRepository persists registered Hooks.
type HookRepository interface {
	Upsert(ctx context.Context, hook *models.Hook) error
	Delete(ctx context.Context, hookID string) error
	List(ctx context.Context, filters HookFilters) ([]*models.Hook, error)
}

// HookFilters filters List.
type HookFilters struct {
	ListenerWorkflowID string
	EnabledOnly        bool
	Limit              int
	Offset             int
}
