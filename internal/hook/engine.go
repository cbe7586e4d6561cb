// Package hook implements the Hook Engine: it subscribes to the
// Event Bus, matches published events against registered hooks, and starts
// child instances for whichever hooks fire.
package hook

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// InstanceCreator is the engine surface the Hook Engine needs to start a
// listener workflow's instance. Creation and admission are separate calls
// so an admin-type instance can be bound by the Assignment Service in
// between; ParkForAssignment records an admin instance that could not be
// bound, leaving it in WAITING_FOR_ASSIGNMENT instead of started.
// Satisfied by pkg/engine.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, dagID, userID string, initialContext map[string]interface{}) (*models.Instance, error)
	StartInstance(ctx context.Context, instanceID string) error
	ParkForAssignment(ctx context.Context, instance *models.Instance) error
}

// Assigner binds an admin instance to a team/user. Satisfied by
// pkg/engine's Assigner adapter over the Assignment Service.
type Assigner interface {
	AssignInstance(ctx context.Context, instance *models.Instance, strategy models.AssignmentStrategy) error
}

// EntityOwnership answers ENTITY_BASED trigger checks: does userID own at
// least one entity of entityType.
type EntityOwnership interface {
	UserOwnsEntity(ctx context.Context, userID, entityType string) (bool, error)
}

// TemplateExistence checks that a hook's listener_workflow_id names a
// registered template, used during hook validation.
type TemplateExistence interface {
	Exists(ctx context.Context, dagID string) bool
}

// Engine matches events against registered hooks and starts listener
// instances for matching hooks. It is wired as an eventbus.Handler via
// HandleEvent, so it fires once per published event without the caller
// blocking on hook evaluation.
type Engine struct {
	hooks     storage.HookRepository
	events    storage.EventRepository
	instances InstanceCreator
	assigner  Assigner
	templates TemplateExistence
	entities  EntityOwnership
}

// New creates a Hook Engine. entities may be nil if no ENTITY_BASED hooks
// are registered; HandleEvent will simply never match them. assigner may be
// nil, in which case every admin-type listener instance is parked in
// WAITING_FOR_ASSIGNMENT rather than started.
func New(hooks storage.HookRepository, events storage.EventRepository, instances InstanceCreator, assigner Assigner, templates TemplateExistence, entities EntityOwnership) *Engine {
	return &Engine{hooks: hooks, events: events, instances: instances, assigner: assigner, templates: templates, entities: entities}
}

// HandleEvent is an eventbus.Handler: it looks up enabled hooks, matches and
// evaluates each in priority order, and fires the ones that match. A
// per-hook failure does not stop the remaining hooks from being evaluated;
// every failure
// across the dispatch is aggregated with go-multierror and logged once as a
// single combined error, rather than one log line per hook.
func (e *Engine) HandleEvent(ctx context.Context, event *models.Event) {
	hooks, err := e.hooks.List(ctx, storage.HookFilters{EnabledOnly: true})
	if err != nil {
		log.Printf("hook engine: failed to list hooks: %v", err)
		return
	}

	var result *multierror.Error
	for _, h := range matchHooks(hooks, event) {
		if !e.evaluate(ctx, h, event) {
			continue
		}
		if err := e.fire(ctx, h, event); err != nil {
			result = multierror.Append(result, fmt.Errorf("hook %s: %w", h.HookID, err))
		}
	}

	if result != nil {
		log.Printf("hook engine: failures dispatching event %s: %v", event.EventID, result.ErrorOrNil())
	}
}

func (e *Engine) fire(ctx context.Context, h *models.Hook, event *models.Event) error {
	childContext := buildChildContext(h, event)

	instance, err := e.instances.CreateInstance(ctx, h.ListenerWorkflowID, event.UserID, childContext)
	if err != nil {
		return fmt.Errorf("failed to create listener instance: %w", err)
	}

	if err := e.events.MarkTriggered(ctx, event.EventID, instance.InstanceID); err != nil {
		return fmt.Errorf("failed to record triggered instance: %w", err)
	}

	// An admin workflow is bound to a team/user before it runs. An
	// instance that cannot be bound (no assignment service, or the service
	// found no eligible assignee) is parked in WAITING_FOR_ASSIGNMENT
	// instead of admitted.
	if instance.WorkflowType == models.WorkflowTypeAdmin {
		if e.assigner == nil {
			return e.instances.ParkForAssignment(ctx, instance)
		}
		if err := e.assigner.AssignInstance(ctx, instance, h.AssignmentStrategy); err != nil {
			if parkErr := e.instances.ParkForAssignment(ctx, instance); parkErr != nil {
				return fmt.Errorf("failed to park unassigned instance: %w (assignment error: %v)", parkErr, err)
			}
			return fmt.Errorf("failed to assign listener instance: %w", err)
		}
	}

	return e.instances.StartInstance(ctx, instance.InstanceID)
}

// Validate checks a hook at registration time: required fields
// present, the target workflow exists, and a "regex:" pattern compiles.
func Validate(ctx context.Context, h *models.Hook, templates TemplateExistence) error {
	if h.HookID == "" {
		return fmt.Errorf("hook_id is required")
	}
	if h.ListenerWorkflowID == "" {
		return fmt.Errorf("listener_workflow_id is required")
	}
	if h.EventPattern == "" {
		return fmt.Errorf("event_pattern is required")
	}
	switch h.TriggerType {
	case models.HookTriggerAlways, models.HookTriggerConditional, models.HookTriggerEntityBased, models.HookTriggerUserBased:
	default:
		return fmt.Errorf("unknown trigger_type: %s", h.TriggerType)
	}

	if templates != nil && !templates.Exists(ctx, h.ListenerWorkflowID) {
		return fmt.Errorf("listener_workflow_id %s is not a registered template", h.ListenerWorkflowID)
	}

	switch h.AssignmentStrategy {
	case "", models.AssignmentStrategyRoundRobin, models.AssignmentStrategyWorkloadBased,
		models.AssignmentStrategyExpertise, models.AssignmentStrategyRandom,
		models.AssignmentStrategyPriority:
	default:
		return fmt.Errorf("unknown assignment_strategy: %s", h.AssignmentStrategy)
	}

	if h.IsRegex() {
		if _, err := regexp.Compile(h.RegexBody()); err != nil {
			return fmt.Errorf("invalid regex event_pattern: %w", err)
		}
	}

	return nil
}
