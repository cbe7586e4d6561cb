// Package operator implements the closed set of task behaviors a template
// can bind a task_id to. Each Operator is a pure function of its config and
// the instance's context snapshot; side effects are reported back as
// TaskResult.Data or routed through the Event Bus, never performed directly
// on shared state.
package operator

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Input is what the Executor hands an Operator on each call: the task's own
// config, a read-only snapshot of the instance context, and — when the
// Executor is re-entering a WAITING task — the resume payload that
// triggered re-entry.
type Input struct {
	InstanceID string
	TaskID     string
	UserID     string
	Config     map[string]interface{}
	Context    map[string]interface{}
	Resume     *Resume
}

// Resume carries the data that woke a WAITING task back up: a submitted
// form payload, an approval decision, or a child instance's completion.
type Resume struct {
	Payload map[string]interface{}
}

// Operator executes one task_id's behavior for one tick.
type Operator interface {
	Kind() models.OperatorKind
	Execute(ctx context.Context, in Input) (models.TaskResult, error)
}

// Deps bundles the collaborators operators need beyond their own config.
// Not every operator uses every field; kinds that don't need a collaborator
// simply never call it. Passing nil for an unused dependency is safe as
// long as no task in the template exercises the operator kind that needs
// it — the operator.Deps wiring in cmd/server and cmd/worker is responsible
// for supplying a complete set.
type Deps struct {
	EventPublisher     EventPublisher
	InstanceSpawner    InstanceSpawner
	InstanceLookup     InstanceLookup
	Assigner           Assigner
	IntegrationAdapter IntegrationAdapter
	EntityService      EntityService
}

// EventPublisher is the subset of the Event Bus operators need: firing a
// lifecycle event. Satisfied by internal/eventbus.Bus.
type EventPublisher interface {
	Publish(ctx context.Context, evt *models.Event) error
}

// InstanceSpawner is the subset of the DAG Registry a WorkflowStartOperator
// needs to create a child instance.
type InstanceSpawner interface {
	CreateInstance(dagID, version, userID string, initialData map[string]interface{}) (*models.Instance, error)
}

// InstanceLookup lets a WorkflowStartOperator re-check a child instance's
// status on re-entry. Satisfied by pkg/engine's Engine, whose GetInstance
// loads from the Instance Store.
type InstanceLookup interface {
	GetInstance(ctx context.Context, instanceID string) (*models.Instance, error)
}

// Assigner is the subset of the Assignment Service a WorkflowStartOperator
// needs to assign a newly created child instance.
type Assigner interface {
	AssignInstance(ctx context.Context, instance *models.Instance, strategy models.AssignmentStrategy) error
}

// IntegrationAdapter performs the outbound call an IntegrationOperator
// delegates to. A transport or 5xx error is reported back as an error so
// the operator can turn it into a FAILED result rather than a panic.
type IntegrationAdapter interface {
	Call(ctx context.Context, endpoint string, payload map[string]interface{}) (map[string]interface{}, error)
}

// EntityService is the outbound adapter an EntityValidationOperator uses to
// create and validate entities in the system of record.
type EntityService interface {
	CreateEntity(ctx context.Context, entityType string, fields map[string]interface{}) (map[string]interface{}, error)
	ValidateEntity(ctx context.Context, entityType string, entity map[string]interface{}) (status string, warnings []string, errs []string, err error)
}

// Registry resolves an OperatorKind to its Operator implementation,
// constructing each on demand with the shared Deps.
type Registry struct {
	deps Deps
}

// NewRegistry creates an operator Registry bound to the given dependencies.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps}
}

// Get returns the Operator for kind.
func (r *Registry) Get(kind models.OperatorKind) (Operator, error) {
	switch kind {
	case models.OperatorKindAction:
		return &ActionOperator{}, nil
	case models.OperatorKindConditional:
		return &ConditionalOperator{}, nil
	case models.OperatorKindApproval:
		return &ApprovalOperator{events: r.deps.EventPublisher}, nil
	case models.OperatorKindUserInput:
		return &UserInputOperator{}, nil
	case models.OperatorKindAdminInput:
		return &AdminInputOperator{}, nil
	case models.OperatorKindIntegration:
		return &IntegrationOperator{adapter: r.deps.IntegrationAdapter}, nil
	case models.OperatorKindTerminal:
		return &TerminalOperator{}, nil
	case models.OperatorKindWorkflowStart:
		return &WorkflowStartOperator{
			spawner:  r.deps.InstanceSpawner,
			lookup:   r.deps.InstanceLookup,
			assigner: r.deps.Assigner,
		}, nil
	case models.OperatorKindEntityValidation:
		return &EntityValidationOperator{service: r.deps.EntityService}, nil
	default:
		return nil, fmt.Errorf("unknown operator kind: %s", kind)
	}
}

func completed(data map[string]interface{}) models.TaskResult {
	return models.TaskResult{Status: models.TaskResultCompleted, Data: data}
}

func failed(format string, args ...interface{}) models.TaskResult {
	return models.TaskResult{Status: models.TaskResultFailed, Error: fmt.Sprintf(format, args...)}
}

func waiting(waitingFor string, form *models.FormConfig) models.TaskResult {
	return models.TaskResult{Status: models.TaskResultWaiting, WaitingFor: waitingFor, FormConfig: form}
}
