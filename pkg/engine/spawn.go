package engine

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// spawner adapts the Engine to operator.InstanceSpawner: a WorkflowStartOperator
// gets back a child instance that is not just minted in memory but durably
// persisted and admitted to the Executor, exactly as if create_instance and
// start had been called through the programmatic surface. InstanceSpawner's
// signature predates context.Context (it mirrors *dag.Registry.CreateInstance
// directly), so admission uses context.Background internally.
type spawner struct {
	engine *Engine
}

// InstanceSpawner returns an operator.InstanceSpawner backed by this Engine,
// for wiring into operator.Deps.
func (e *Engine) InstanceSpawner() operator.InstanceSpawner {
	return spawner{engine: e}
}

func (s spawner) CreateInstance(dagID, version, userID string, initialData map[string]interface{}) (*models.Instance, error) {
	ctx := context.Background()
	instance, err := s.engine.CreateInstance(ctx, dagID, version, userID, initialData)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Start(ctx, instance.InstanceID); err != nil {
		return nil, err
	}
	return instance, nil
}

// instanceCreator adapts the Engine to hook.InstanceCreator: a fired Hook
// spawns a listener instance from an event's context rather than a
// WorkflowStartOperator task, and always against the latest registered
// version (a Hook names a listener_workflow_id, not a pinned dag_version).
// Creation and admission are separate calls so the Hook Engine can route an
// admin-type instance through the Assignment Service in between.
type instanceCreator struct {
	engine *Engine
}

// InstanceCreator returns a hook.InstanceCreator backed by this Engine, for
// wiring into hook.New.
func (e *Engine) InstanceCreator() instanceCreator {
	return instanceCreator{engine: e}
}

func (c instanceCreator) CreateInstance(ctx context.Context, dagID, userID string, initialContext map[string]interface{}) (*models.Instance, error) {
	return c.engine.CreateInstance(ctx, dagID, "", userID, initialContext)
}

func (c instanceCreator) StartInstance(ctx context.Context, instanceID string) error {
	return c.engine.Start(ctx, instanceID)
}

// ParkForAssignment records an admin instance that could not be bound to a
// team/user: it stays in WAITING_FOR_ASSIGNMENT instead of being admitted,
// until a later AssignInstance binds it and resets it to Pending.
func (c instanceCreator) ParkForAssignment(ctx context.Context, instance *models.Instance) error {
	instance.Status = models.InstanceStatusWaitingForAssignment
	return c.engine.instances.Save(ctx, instance)
}
