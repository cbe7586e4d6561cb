package hook

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// evaluate reports whether hook should fire for event, per its trigger_type.
func (e *Engine) evaluate(ctx context.Context, h *models.Hook, event *models.Event) bool {
	switch h.TriggerType {
	case models.HookTriggerAlways:
		return true
	case models.HookTriggerConditional:
		return evaluateConditional(h, event)
	case models.HookTriggerEntityBased:
		return e.evaluateEntityBased(ctx, h, event)
	case models.HookTriggerUserBased:
		return evaluateUserBased(h, event)
	default:
		return false
	}
}

func evaluateConditional(h *models.Hook, event *models.Event) bool {
	for key, cond := range h.Conditions {
		actual, ok := event.EventData[key]
		if !ok || !cond.Matches(actual) {
			return false
		}
	}
	return true
}

func (e *Engine) evaluateEntityBased(ctx context.Context, h *models.Hook, event *models.Event) bool {
	if e.entities == nil {
		return false
	}
	for _, entityType := range h.RequiredEntities {
		owns, err := e.entities.UserOwnsEntity(ctx, event.UserID, entityType)
		if err != nil || !owns {
			return false
		}
	}
	return true
}

func evaluateUserBased(h *models.Hook, event *models.Event) bool {
	rawAttrs, _ := event.EventData["user_attributes"].(map[string]interface{})
	for k, want := range h.UserFilters {
		got, ok := rawAttrs[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// buildChildContext projects event data into a new instance's initial
// context: start empty, optionally copy the whole event_data, then
// apply context_mapping (source key in event -> target key in child).
func buildChildContext(h *models.Hook, event *models.Event) map[string]interface{} {
	ctx := make(map[string]interface{})

	if h.PassEventContext {
		for k, v := range event.EventData {
			ctx[k] = v
		}
	}

	for src, dst := range h.ContextMapping {
		if v, ok := event.EventData[src]; ok {
			ctx[dst] = v
		}
	}

	// The child always learns what fired it, whatever the projection above
	// did or didn't copy.
	ctx["triggering_event"] = map[string]interface{}{
		"event_id":    event.EventID,
		"event_type":  string(event.EventType),
		"workflow_id": event.WorkflowID,
		"instance_id": event.InstanceID,
	}

	return ctx
}
