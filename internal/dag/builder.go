package dag

import (
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// TemplateBuilder provides a fluent API for constructing workflow templates,
// binding each task to one of the closed OperatorKinds instead of a shell
// command or HTTP URL.
type TemplateBuilder struct {
	tmpl  *models.Template
	tasks map[string]*models.TaskDef
}

// NewTemplateBuilder creates a new template builder.
func NewTemplateBuilder(name string) *TemplateBuilder {
	return &TemplateBuilder{
		tmpl: &models.Template{
			Name:         name,
			Tags:         []string{},
			WorkflowType: models.WorkflowTypeProcess,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		},
		tasks: make(map[string]*models.TaskDef),
	}
}

// ID sets the dag_id.
func (b *TemplateBuilder) ID(id string) *TemplateBuilder {
	b.tmpl.DAGID = id
	return b
}

// Version sets the template version string.
func (b *TemplateBuilder) Version(v string) *TemplateBuilder {
	b.tmpl.Version = v
	return b
}

// Description sets the template description.
func (b *TemplateBuilder) Description(desc string) *TemplateBuilder {
	b.tmpl.Description = desc
	return b
}

// Category sets the template category (used by template listing, which can
// filter by category).
func (b *TemplateBuilder) Category(category string) *TemplateBuilder {
	b.tmpl.Category = category
	return b
}

// WorkflowType sets the workflow type governing default assignment
// behavior.
func (b *TemplateBuilder) WorkflowType(wt models.WorkflowType) *TemplateBuilder {
	b.tmpl.WorkflowType = wt
	return b
}

// Tags adds tags to the template.
func (b *TemplateBuilder) Tags(tags ...string) *TemplateBuilder {
	b.tmpl.Tags = append(b.tmpl.Tags, tags...)
	return b
}

// Task adds a task to the template.
func (b *TemplateBuilder) Task(id string, taskBuilder *TaskBuilder) *TemplateBuilder {
	task := taskBuilder.build(id)
	b.tasks[id] = task
	return b
}

// Build constructs and validates the template. It does not freeze it or
// compute its cached topological order — that happens in the Registry at
// registration time, keeping construction and registration separate
// operations.
func (b *TemplateBuilder) Build() (*models.Template, error) {
	b.tmpl.Tasks = b.tasks

	validator := NewValidator()
	if err := validator.Validate(b.tmpl); err != nil {
		return nil, err
	}

	return b.tmpl, nil
}

// MustBuild builds the template and panics on error. Useful in tests and
// for templates defined as Go literals at startup.
func (b *TemplateBuilder) MustBuild() *models.Template {
	tmpl, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tmpl
}

// TaskBuilder provides a fluent API for building a single task, bound to
// exactly one operator kind.
type TaskBuilder struct {
	name         string
	operatorKind models.OperatorKind
	config       map[string]interface{}
	dependencies []string
	retryPolicy  *models.RetryPolicy
}

func newTaskBuilder(kind models.OperatorKind, config map[string]interface{}) *TaskBuilder {
	if config == nil {
		config = map[string]interface{}{}
	}
	return &TaskBuilder{operatorKind: kind, config: config}
}

// ActionTask creates a task bound to the ActionOperator.
func ActionTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindAction, config)
}

// ConditionalTask creates a task bound to the ConditionalOperator.
func ConditionalTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindConditional, config)
}

// ApprovalTask creates a task bound to the ApprovalOperator.
func ApprovalTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindApproval, config)
}

// UserInputTask creates a task bound to the UserInputOperator.
func UserInputTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindUserInput, config)
}

// AdminInputTask creates a task bound to the AdminInputOperator.
func AdminInputTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindAdminInput, config)
}

// IntegrationTask creates a task bound to the IntegrationOperator.
func IntegrationTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindIntegration, config)
}

// TerminalTask creates a task bound to the TerminalOperator.
func TerminalTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindTerminal, config)
}

// WorkflowStartTask creates a task bound to the WorkflowStartOperator.
func WorkflowStartTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindWorkflowStart, config)
}

// EntityValidationTask creates a task bound to the EntityValidationOperator.
func EntityValidationTask(config map[string]interface{}) *TaskBuilder {
	return newTaskBuilder(models.OperatorKindEntityValidation, config)
}

// Name sets the task's display name.
func (tb *TaskBuilder) Name(name string) *TaskBuilder {
	tb.name = name
	return tb
}

// DependsOn sets task dependencies.
func (tb *TaskBuilder) DependsOn(taskIDs ...string) *TaskBuilder {
	tb.dependencies = append(tb.dependencies, taskIDs...)
	return tb
}

// Retry sets the task's retry policy.
func (tb *TaskBuilder) Retry(maxAttempts int, baseDelay time.Duration) *TaskBuilder {
	tb.retryPolicy = &models.RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
	return tb
}

func (tb *TaskBuilder) build(id string) *models.TaskDef {
	name := tb.name
	if name == "" {
		name = id
	}

	return &models.TaskDef{
		TaskID:       id,
		Name:         name,
		OperatorKind: tb.operatorKind,
		Dependencies: tb.dependencies,
		Config:       tb.config,
		RetryPolicy:  tb.retryPolicy,
	}
}
