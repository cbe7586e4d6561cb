package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// ActionOperator runs a pure function of its declared inputs and the
// instance context. It never waits: it either completes with outputs or
// fails with a message.
type ActionOperator struct{}

func (o *ActionOperator) Kind() models.OperatorKind { return models.OperatorKindAction }

func (o *ActionOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	required, _ := in.Config["required_inputs"].([]interface{})
	for _, name := range required {
		key, ok := name.(string)
		if !ok {
			continue
		}
		if _, present := in.Context[key]; !present {
			return failed("missing required input: %s", key), nil
		}
	}

	fn, _ := in.Config["fn"].(func(map[string]interface{}) (map[string]interface{}, error))
	if fn == nil {
		// Declarative actions with no registered Go function are a no-op
		// that simply echoes their static config as output — the common
		// case for data-shaping steps authored via the template parser.
		return completed(in.Config), nil
	}

	out, err := fn(in.Context)
	if err != nil {
		return failed("action failed: %v", err), nil
	}
	return completed(out), nil
}
