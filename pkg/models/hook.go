package models

import (
	"fmt"
	"time"
)

// ConditionOperator names the comparator a CONDITIONAL hook's condition
// value uses when expressed as a map instead of a bare scalar.
type ConditionOperator string

const (
	ConditionOpEq ConditionOperator = "eq"
	ConditionOpGt ConditionOperator = "gt"
	ConditionOpIn ConditionOperator = "in"
)

// Condition is one entry of a Hook's `conditions` map: either a bare scalar
// (implicit equality) or an explicit {eq|gt|in: value}. The same comparator
// is reused by ConditionalOperator predicates, not just hooks.
type Condition struct {
	Operator ConditionOperator
	Value    interface{}
}

// Matches reports whether actual satisfies the condition. "gt" only
// compares when both sides are numeric (float64, float32, int or int64);
// any other type never matches. "in" expects Value to be a []interface{}.
func (c Condition) Matches(actual interface{}) bool {
	switch c.Operator {
	case ConditionOpGt:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		return aok && bok && a > b
	case ConditionOpIn:
		list, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range list {
			if fmt.Sprintf("%v", v) == fmt.Sprintf("%v", actual) {
				return true
			}
		}
		return false
	default: // ConditionOpEq and unset
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", c.Value)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Hook is a registered rule that starts a listener workflow in response to
// a matching event.
type Hook struct {
	HookID             string                 `json:"hook_id"`
	ListenerWorkflowID string                 `json:"listener_workflow_id"`
	EventPattern       string                 `json:"event_pattern"`
	TriggerType        HookTriggerType        `json:"trigger_type"`
	Priority           int                    `json:"priority"`
	Enabled            bool                   `json:"enabled"`
	Conditions         map[string]Condition   `json:"conditions"`
	RequiredEntities   []string               `json:"required_entities"`
	UserFilters        map[string]interface{} `json:"user_filters"`
	PassEventContext   bool                   `json:"pass_event_context"`
	ContextMapping     map[string]string      `json:"context_mapping"`

	// AssignmentStrategy overrides the Assignment Service's default
	// strategy when this hook starts an admin-type listener instance.
	// Empty means the service's documented default.
	AssignmentStrategy AssignmentStrategy `json:"assignment_strategy,omitempty"`

	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// IsRegex reports whether the event pattern uses the "regex:" prefix form
// instead of glob matching.
func (h *Hook) IsRegex() bool {
	return len(h.EventPattern) > 6 && h.EventPattern[:6] == "regex:"
}

// RegexBody returns the pattern with the "regex:" prefix stripped.
func (h *Hook) RegexBody() string {
	return h.EventPattern[6:]
}
