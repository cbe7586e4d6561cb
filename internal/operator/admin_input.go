package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// AdminInputOperator waits for an assigned admin/reviewer to submit a form
// payload via submit_input. Identical resumption contract to
// UserInputOperator; the distinct kind exists so the template declares who
// is expected to respond. The Assignment Service does not read the kind; it
// routes by the instance's workflow type.
type AdminInputOperator struct{}

func (o *AdminInputOperator) Kind() models.OperatorKind { return models.OperatorKindAdminInput }

func (o *AdminInputOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	return executeInputOperator(in, "admin_input")
}
