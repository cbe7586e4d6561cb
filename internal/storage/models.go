package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// JSONB is a custom type for JSONB columns
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// StringArray is a custom type for string array columns
type StringArray []string

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}

// TemplateModel is the database model for a frozen Template. Tasks/Edges are
// stored as a single JSONB blob rather than normalized tables: templates are
// write-once (re-registering a dag_id+version is a conflict, not an update),
// so there is no update-path that would benefit from per-task rows.
type TemplateModel struct {
	ID           uuid.UUID   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	DAGID        string      `gorm:"type:varchar(255);not null;index:idx_templates_dag_id"`
	Version      string      `gorm:"type:varchar(50);not null;index:idx_templates_dag_id"`
	Name         string      `gorm:"type:varchar(255);not null"`
	Description  string      `gorm:"type:text"`
	Category     string      `gorm:"type:varchar(100)"`
	Tags         StringArray `gorm:"type:jsonb;default:'[]'"`
	WorkflowType string      `gorm:"type:varchar(50);not null;index:idx_templates_workflow_type"`
	Tasks        JSONB       `gorm:"type:jsonb;not null"`
	Edges        JSONB       `gorm:"type:jsonb;default:'{}'"`
	CreatedAt    time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for TemplateModel
func (TemplateModel) TableName() string {
	return "templates"
}

// InstanceModel is the database model for an Instance. Context and
// per-task state are JSONB: their shapes are operator-defined and queried
// as opaque payloads, never joined on.
type InstanceModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	InstanceID       string    `gorm:"type:varchar(255);unique;not null;index:idx_instances_instance_id"`
	DAGID            string    `gorm:"type:varchar(255);not null;index:idx_instances_dag_id"`
	DAGVersion       string    `gorm:"type:varchar(50);not null"`
	UserID           string    `gorm:"type:varchar(255);not null;index:idx_instances_user_id"`
	ParentInstanceID string    `gorm:"type:varchar(255);index:idx_instances_parent"`
	ParentTaskID     string    `gorm:"type:varchar(255)"`
	WorkflowType     string    `gorm:"type:varchar(50);not null"`
	Status           string    `gorm:"type:varchar(50);not null;default:'pending';index:idx_instances_status"`
	TerminalStatus   string    `gorm:"type:varchar(50)"`
	TerminalMessage  string    `gorm:"type:text"`
	Priority         int       `gorm:"default:0"`

	Context        JSONB `gorm:"type:jsonb;default:'{}'"`
	TaskStates     JSONB `gorm:"type:jsonb;default:'{}'"`
	CompletedTasks JSONB `gorm:"type:jsonb;default:'{}'"`
	FailedTasks    JSONB `gorm:"type:jsonb;default:'{}'"`
	CurrentTask    string `gorm:"type:varchar(255)"`

	Assignment JSONB `gorm:"type:jsonb"`

	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_instances_created_at"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Version int64 `gorm:"not null;default:0"` // optimistic-concurrency token
}

// TableName specifies the table name for InstanceModel
func (InstanceModel) TableName() string {
	return "instances"
}

// EventModel is the database model for a published lifecycle Event.
type EventModel struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID            string      `gorm:"type:varchar(255);unique;not null"`
	EventType          string      `gorm:"type:varchar(50);not null;index:idx_events_type"`
	WorkflowID         string      `gorm:"type:varchar(255);not null;index:idx_events_workflow_id"`
	InstanceID         string      `gorm:"type:varchar(255);index:idx_events_instance_id"`
	UserID             string      `gorm:"type:varchar(255)"`
	EventData          JSONB       `gorm:"type:jsonb;default:'{}'"`
	Timestamp          time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_events_timestamp"`
	ProcessedAt        *time.Time
	TriggeredInstances StringArray `gorm:"type:jsonb;default:'[]'"`
}

// TableName specifies the table name for EventModel
func (EventModel) TableName() string {
	return "events"
}

// HookModel is the database model for a registered Hook.
type HookModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	HookID              string    `gorm:"type:varchar(255);unique;not null"`
	ListenerWorkflowID  string    `gorm:"type:varchar(255);not null;index:idx_hooks_listener"`
	EventPattern        string    `gorm:"type:varchar(500);not null"`
	TriggerType         string    `gorm:"type:varchar(50);not null"`
	Priority            int       `gorm:"default:0;index:idx_hooks_priority"`
	Enabled             bool      `gorm:"default:true;index:idx_hooks_enabled"`
	Conditions          JSONB     `gorm:"type:jsonb;default:'{}'"`
	RequiredEntities    StringArray `gorm:"type:jsonb;default:'[]'"`
	UserFilters         JSONB     `gorm:"type:jsonb;default:'{}'"`
	PassEventContext    bool      `gorm:"default:false"`
	ContextMapping      JSONB     `gorm:"type:jsonb;default:'{}'"`
	AssignmentStrategy  string    `gorm:"type:varchar(50)"`
	Name                string    `gorm:"type:varchar(255)"`
	Description         string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedBy           string    `gorm:"type:varchar(255)"`
}

// TableName specifies the table name for HookModel
func (HookModel) TableName() string {
	return "hooks"
}

// ToInstance converts an InstanceModel to a models.Instance.
func (m *InstanceModel) ToInstance() *models.Instance {
	inst := &models.Instance{
		InstanceID:       m.InstanceID,
		DAGID:            m.DAGID,
		DAGVersion:       m.DAGVersion,
		UserID:           m.UserID,
		ParentInstanceID: m.ParentInstanceID,
		ParentTaskID:     m.ParentTaskID,
		WorkflowType:     models.WorkflowType(m.WorkflowType),
		Status:           models.InstanceStatus(m.Status),
		TerminalStatus:   m.TerminalStatus,
		TerminalMessage:  m.TerminalMessage,
		Priority:         m.Priority,
		Context:          map[string]interface{}(m.Context),
		CompletedTasks:   map[string]bool{},
		FailedTasks:      map[string]bool{},
		CurrentTask:      m.CurrentTask,
		CreatedAt:        m.CreatedAt,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		UpdatedAt:        m.UpdatedAt,
		Version:          m.Version,
	}

	inst.TaskStates = make(map[string]*models.TaskState, len(m.TaskStates))
	for k, v := range m.TaskStates {
		raw, _ := json.Marshal(v)
		var ts models.TaskState
		if json.Unmarshal(raw, &ts) == nil {
			inst.TaskStates[k] = &ts
		}
	}

	for k, v := range m.CompletedTasks {
		if b, ok := v.(bool); ok {
			inst.CompletedTasks[k] = b
		}
	}
	for k, v := range m.FailedTasks {
		if b, ok := v.(bool); ok {
			inst.FailedTasks[k] = b
		}
	}

	if len(m.Assignment) > 0 {
		raw, _ := json.Marshal(map[string]interface{}(m.Assignment))
		var a models.Assignment
		if json.Unmarshal(raw, &a) == nil {
			inst.Assignment = &a
		}
	}

	return inst
}

// FromInstance converts a models.Instance to an InstanceModel.
func FromInstance(i *models.Instance) (*InstanceModel, error) {
	m := &InstanceModel{
		InstanceID:       i.InstanceID,
		DAGID:            i.DAGID,
		DAGVersion:       i.DAGVersion,
		UserID:           i.UserID,
		ParentInstanceID: i.ParentInstanceID,
		ParentTaskID:     i.ParentTaskID,
		WorkflowType:     string(i.WorkflowType),
		Status:           string(i.Status),
		TerminalStatus:   i.TerminalStatus,
		TerminalMessage:  i.TerminalMessage,
		Priority:         i.Priority,
		Context:          JSONB(i.Context),
		CurrentTask:      i.CurrentTask,
		CreatedAt:        i.CreatedAt,
		StartedAt:        i.StartedAt,
		CompletedAt:      i.CompletedAt,
		UpdatedAt:        i.UpdatedAt,
		Version:          i.Version,
	}

	taskStates := make(JSONB, len(i.TaskStates))
	for k, v := range i.TaskStates {
		taskStates[k] = v
	}
	m.TaskStates = taskStates

	completed := make(JSONB, len(i.CompletedTasks))
	for k, v := range i.CompletedTasks {
		completed[k] = v
	}
	m.CompletedTasks = completed

	failed := make(JSONB, len(i.FailedTasks))
	for k, v := range i.FailedTasks {
		failed[k] = v
	}
	m.FailedTasks = failed

	if i.Assignment != nil {
		raw, err := json.Marshal(i.Assignment)
		if err != nil {
			return nil, err
		}
		var a map[string]interface{}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		m.Assignment = JSONB(a)
	}

	return m, nil
}

// ToTemplate converts a TemplateModel to a models.Template. The caller is
// responsible for calling Validate/Freeze with a freshly computed
// topological order — a stored template is data, not yet a registered one.
func (m *TemplateModel) ToTemplate() (*models.Template, error) {
	tasks := make(map[string]*models.TaskDef)
	raw, err := json.Marshal(map[string]interface{}(m.Tasks))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, err
	}

	var edges []models.Edge
	if len(m.Edges) > 0 {
		if list, ok := m.Edges["edges"]; ok {
			raw, err := json.Marshal(list)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &edges); err != nil {
				return nil, err
			}
		}
	}

	return &models.Template{
		DAGID:        m.DAGID,
		Version:      m.Version,
		Name:         m.Name,
		Description:  m.Description,
		Category:     m.Category,
		Tags:         []string(m.Tags),
		WorkflowType: models.WorkflowType(m.WorkflowType),
		Tasks:        tasks,
		Edges:        edges,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

// FromTemplate converts a models.Template to a TemplateModel.
func FromTemplate(t *models.Template) (*TemplateModel, error) {
	tasksRaw, err := json.Marshal(t.Tasks)
	if err != nil {
		return nil, err
	}
	var tasks JSONB
	if err := json.Unmarshal(tasksRaw, &tasks); err != nil {
		return nil, err
	}

	return &TemplateModel{
		DAGID:        t.DAGID,
		Version:      t.Version,
		Name:         t.Name,
		Description:  t.Description,
		Category:     t.Category,
		Tags:         StringArray(t.Tags),
		WorkflowType: string(t.WorkflowType),
		Tasks:        tasks,
		Edges:        JSONB{"edges": t.Edges},
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}, nil
}

// ToEvent converts an EventModel to a models.Event.
func (m *EventModel) ToEvent() *models.Event {
	return &models.Event{
		EventID:            m.EventID,
		EventType:          models.EventType(m.EventType),
		WorkflowID:         m.WorkflowID,
		InstanceID:         m.InstanceID,
		UserID:             m.UserID,
		EventData:          map[string]interface{}(m.EventData),
		Timestamp:          m.Timestamp,
		ProcessedAt:        m.ProcessedAt,
		TriggeredInstances: []string(m.TriggeredInstances),
	}
}

// FromEvent converts a models.Event to an EventModel.
func FromEvent(e *models.Event) *EventModel {
	return &EventModel{
		EventID:            e.EventID,
		EventType:          string(e.EventType),
		WorkflowID:         e.WorkflowID,
		InstanceID:         e.InstanceID,
		UserID:             e.UserID,
		EventData:          JSONB(e.EventData),
		Timestamp:          e.Timestamp,
		ProcessedAt:        e.ProcessedAt,
		TriggeredInstances: StringArray(e.TriggeredInstances),
	}
}

// ToHook converts a HookModel to a models.Hook.
func (m *HookModel) ToHook() (*models.Hook, error) {
	conditions := make(map[string]models.Condition, len(m.Conditions))
	for k, v := range m.Conditions {
		cond, err := decodeCondition(v)
		if err != nil {
			return nil, err
		}
		conditions[k] = cond
	}

	contextMapping := make(map[string]string, len(m.ContextMapping))
	for k, v := range m.ContextMapping {
		if s, ok := v.(string); ok {
			contextMapping[k] = s
		}
	}

	return &models.Hook{
		HookID:             m.HookID,
		ListenerWorkflowID: m.ListenerWorkflowID,
		EventPattern:       m.EventPattern,
		TriggerType:        models.HookTriggerType(m.TriggerType),
		Priority:           m.Priority,
		Enabled:            m.Enabled,
		Conditions:         conditions,
		RequiredEntities:   []string(m.RequiredEntities),
		UserFilters:        map[string]interface{}(m.UserFilters),
		PassEventContext:   m.PassEventContext,
		ContextMapping:     contextMapping,
		AssignmentStrategy: models.AssignmentStrategy(m.AssignmentStrategy),
		Name:               m.Name,
		Description:        m.Description,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		CreatedBy:          m.CreatedBy,
	}, nil
}

// decodeCondition decodes a condition stored either as a bare scalar
// (implicit eq) or as {"operator": "...", "value": ...}.
func decodeCondition(raw interface{}) (models.Condition, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return models.Condition{Operator: models.ConditionOpEq, Value: raw}, nil
	}
	op, _ := m["operator"].(string)
	if op == "" {
		op = string(models.ConditionOpEq)
	}
	return models.Condition{Operator: models.ConditionOperator(op), Value: m["value"]}, nil
}

// FromHook converts a models.Hook to a HookModel.
func FromHook(h *models.Hook) HookModel {
	conditions := make(JSONB, len(h.Conditions))
	for k, c := range h.Conditions {
		conditions[k] = map[string]interface{}{"operator": string(c.Operator), "value": c.Value}
	}

	contextMapping := make(JSONB, len(h.ContextMapping))
	for k, v := range h.ContextMapping {
		contextMapping[k] = v
	}

	return HookModel{
		HookID:             h.HookID,
		ListenerWorkflowID: h.ListenerWorkflowID,
		EventPattern:       h.EventPattern,
		TriggerType:        string(h.TriggerType),
		Priority:           h.Priority,
		Enabled:            h.Enabled,
		Conditions:         conditions,
		RequiredEntities:   StringArray(h.RequiredEntities),
		UserFilters:        JSONB(h.UserFilters),
		PassEventContext:   h.PassEventContext,
		ContextMapping:     contextMapping,
		AssignmentStrategy: string(h.AssignmentStrategy),
		Name:               h.Name,
		Description:        h.Description,
		CreatedAt:          h.CreatedAt,
		UpdatedAt:          h.UpdatedAt,
		CreatedBy:          h.CreatedBy,
	}
}
