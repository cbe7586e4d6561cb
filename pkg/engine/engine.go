// Package engine is the public programmatic surface of the workflow core:
// a thin facade gathering the DAG Registry, Executor, Hook Engine, and
// Assignment Service behind the handful of operations an outer service layer
// (HTTP, CLI, another internal caller) actually needs. It owns no business
// logic of its own beyond wiring — every decision still lives in the package
// that specializes in it.
package engine

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/assignment"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/eventbus"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/hook"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Executor is the subset of internal/executor.LocalExecutor the Engine
// drives an instance through. Satisfied by *executor.LocalExecutor.
type Executor interface {
	Submit(ctx context.Context, instanceID string) error
	Resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error
	Cancel(ctx context.Context, instanceID string) error
}

// Engine is the process-wide facade. Construct with New once per process;
// every field is safe for concurrent use on its own.
type Engine struct {
	registry  *dag.Registry
	templates storage.TemplateRepository
	instances storage.InstanceRepository
	hookRepo  storage.HookRepository

	executor   Executor
	hookEngine *hook.Engine
	events     *eventbus.Bus
	assigner   *assignment.Service
}

// New wires an Engine from its collaborators. events and assigner may be nil
// when a deployment has no event bus or no admin-review workflows to assign;
// every method that needs them returns an error instead of panicking when
// they're absent. The Hook Engine is attached separately via AttachHookEngine
// once constructed, since hook.New itself needs an InstanceCreator this
// Engine supplies (see InstanceCreator) — a two-phase wiring order, not a
// circular one.
func New(
	registry *dag.Registry,
	templates storage.TemplateRepository,
	instances storage.InstanceRepository,
	hookRepo storage.HookRepository,
	executor Executor,
	events *eventbus.Bus,
	assigner *assignment.Service,
) *Engine {
	return &Engine{
		registry:  registry,
		templates: templates,
		instances: instances,
		hookRepo:  hookRepo,
		executor:  executor,
		events:    events,
		assigner:  assigner,
	}
}

// AttachHookEngine wires a Hook Engine constructed with this Engine's own
// InstanceCreator into the Engine's event bus as a wildcard subscriber, so
// every published event is offered to the Hook Engine's pattern matcher
//. Call once during startup, after constructing the Hook Engine.
func (e *Engine) AttachHookEngine(he *hook.Engine) {
	e.hookEngine = he
	if e.events != nil && he != nil {
		e.events.Subscribe("", he.HandleEvent)
	}
}

// RegisterTemplate validates and registers a Template with the in-memory DAG
// Registry, then persists it durably so it survives a process restart.
func (e *Engine) RegisterTemplate(ctx context.Context, tmpl *models.Template) error {
	if err := e.registry.RegisterTemplate(tmpl); err != nil {
		return err
	}
	if e.templates == nil {
		return nil
	}
	return e.templates.UpsertTemplate(ctx, tmpl)
}

// CreateInstance mints a new Instance from the named template (empty version
// means latest) and durably persists it in the Pending state. It does not
// admit the instance to the Executor — call Start for that.
func (e *Engine) CreateInstance(ctx context.Context, dagID, version, userID string, initialData map[string]interface{}) (*models.Instance, error) {
	instance, err := e.registry.CreateInstance(dagID, version, userID, initialData)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	if err := e.instances.Create(ctx, instance); err != nil {
		return nil, fmt.Errorf("persist instance: %w", err)
	}
	return instance, nil
}

// Start admits instanceID to the Executor.
func (e *Engine) Start(ctx context.Context, instanceID string) error {
	return e.executor.Submit(ctx, instanceID)
}

// GetInstance loads a single Instance.
func (e *Engine) GetInstance(ctx context.Context, instanceID string) (*models.Instance, error) {
	return e.instances.Load(ctx, instanceID)
}

// ListInstances returns instances matching filters.
func (e *Engine) ListInstances(ctx context.Context, filters storage.InstanceFilters) ([]*models.Instance, error) {
	return e.instances.List(ctx, filters)
}

// SubmitInput resumes a WAITING task with payload.
// Validation against the task's form_config (or the approval decision
// shape) happens inside the resumed Operator, not here.
func (e *Engine) SubmitInput(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error {
	return e.executor.Resume(ctx, instanceID, taskID, payload)
}

// Cancel transitions a non-terminal instance to Cancelled.
func (e *Engine) Cancel(ctx context.Context, instanceID string) error {
	return e.executor.Cancel(ctx, instanceID)
}

// RegisterHook validates and upserts a Hook.
func (e *Engine) RegisterHook(ctx context.Context, h *models.Hook) error {
	if e.hookRepo == nil {
		return fmt.Errorf("register hook: no hook repository configured")
	}
	if err := hook.Validate(ctx, h, registryTemplateExistence{e.registry}); err != nil {
		return fmt.Errorf("register hook: %w", err)
	}
	return e.hookRepo.Upsert(ctx, h)
}

// UnregisterHook deletes a Hook.
func (e *Engine) UnregisterHook(ctx context.Context, hookID string) error {
	if e.hookRepo == nil {
		return fmt.Errorf("unregister hook: no hook repository configured")
	}
	return e.hookRepo.Delete(ctx, hookID)
}

// ListHooks returns hooks matching filters.
func (e *Engine) ListHooks(ctx context.Context, filters storage.HookFilters) ([]*models.Hook, error) {
	if e.hookRepo == nil {
		return nil, fmt.Errorf("list hooks: no hook repository configured")
	}
	return e.hookRepo.List(ctx, filters)
}

// PublishEvent publishes an externally-originated event — used by emitters
// outside the Executor's own task lifecycle (e.g. a document service
// announcing a scan result).
func (e *Engine) PublishEvent(ctx context.Context, event *models.Event) error {
	if e.events == nil {
		return fmt.Errorf("publish event: no event bus configured")
	}
	return e.events.Publish(ctx, event)
}

// registryTemplateExistence adapts *dag.Registry to hook.TemplateExistence.
type registryTemplateExistence struct {
	registry *dag.Registry
}

func (r registryTemplateExistence) Exists(ctx context.Context, dagID string) bool {
	_, err := r.registry.GetTemplate(dagID, "")
	return err == nil
}
