package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// IntegrationOperator performs a single outbound call through the
// configured adapter. Retries are the Executor's responsibility: this
// operator reports a transport or 5xx failure as FAILED and does nothing
// else.
type IntegrationOperator struct {
	adapter IntegrationAdapter
}

func (o *IntegrationOperator) Kind() models.OperatorKind { return models.OperatorKindIntegration }

func (o *IntegrationOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	if o.adapter == nil {
		return failed("no integration adapter configured"), nil
	}

	endpoint, _ := in.Config["endpoint"].(string)
	if endpoint == "" {
		return failed("integration task missing endpoint"), nil
	}

	payload, _ := in.Config["payload"].(map[string]interface{})
	if payload == nil {
		payload = in.Context
	}

	out, err := o.adapter.Call(ctx, endpoint, payload)
	if err != nil {
		return failed("integration call failed: %v", err), nil
	}

	return completed(out), nil
}
