package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// ConditionalOperator evaluates a list of predicates in declaration order
// and selects the first matching one's outgoing edge. Config shape:
//
//	predicates: [{field, op, value, edge}, ...]
//	default_edge: "<task_id>" (optional)
//
// The Executor reads Data["selected_edge"] to decide which downstream
// task(s) the non-selected branches should be skipped for.
type ConditionalOperator struct{}

func (o *ConditionalOperator) Kind() models.OperatorKind { return models.OperatorKindConditional }

func (o *ConditionalOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	predicates, _ := in.Config["predicates"].([]interface{})

	for _, raw := range predicates {
		p, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		field, _ := p["field"].(string)
		edge, _ := p["edge"].(string)
		opStr, _ := p["op"].(string)
		if field == "" || edge == "" {
			continue
		}

		cond := models.Condition{Operator: models.ConditionOperator(opStr), Value: p["value"]}
		if cond.Matches(in.Context[field]) {
			return completed(map[string]interface{}{"selected_edge": edge}), nil
		}
	}

	if def, ok := in.Config["default_edge"].(string); ok && def != "" {
		return completed(map[string]interface{}{"selected_edge": def}), nil
	}

	return failed("no predicate matched and no default_edge configured"), nil
}
