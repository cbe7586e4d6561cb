package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// TerminalOperator records a terminal_status and completes. The Executor
// recognizes a completed TerminalOperator and marks the whole instance
// COMPLETED once every other task has also resolved.
type TerminalOperator struct{}

func (o *TerminalOperator) Kind() models.OperatorKind { return models.OperatorKindTerminal }

func (o *TerminalOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	status, _ := in.Config["terminal_status"].(string)
	if status == "" {
		status = "completed"
	}
	message, _ := in.Config["terminal_message"].(string)

	return completed(map[string]interface{}{
		"terminal_status":  status,
		"terminal_message": message,
	}), nil
}
