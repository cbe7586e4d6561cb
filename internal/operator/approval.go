package operator

import (
	"context"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// ApprovalOperator waits for a typed decision supplied by an external
// reviewer. It emits APPROVAL_REQUESTED on first entry and
// APPROVAL_COMPLETED on resume.
type ApprovalOperator struct {
	events EventPublisher
}

func (o *ApprovalOperator) Kind() models.OperatorKind { return models.OperatorKindApproval }

func (o *ApprovalOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	if in.Resume == nil {
		if o.events != nil {
			_ = o.events.Publish(ctx, &models.Event{
				EventType:  models.EventTypeApprovalRequested,
				InstanceID: in.InstanceID,
				EventData:  map[string]interface{}{"task_id": in.TaskID},
				Timestamp:  time.Now().UTC(),
			})
		}
		return waiting("approval", &models.FormConfig{Fields: []models.FormField{
			{Name: "decision", Type: "enum", Required: true, EnumValues: []string{
				string(models.ApprovalDecisionApproved),
				string(models.ApprovalDecisionRejected),
				string(models.ApprovalDecisionRequestChanges),
				string(models.ApprovalDecisionEscalate),
			}},
			{Name: "comments", Type: "string", Required: false},
		}}), nil
	}

	decision, _ := in.Resume.Payload["decision"].(string)
	if decision == "" {
		return failed("resume payload missing decision"), nil
	}

	decidedBy, _ := in.Resume.Payload["decided_by"].(string)
	comments, _ := in.Resume.Payload["comments"].(string)
	decidedAt := time.Now().UTC()

	if o.events != nil {
		_ = o.events.Publish(ctx, &models.Event{
			EventType:  models.EventTypeApprovalCompleted,
			InstanceID: in.InstanceID,
			EventData:  map[string]interface{}{"task_id": in.TaskID, "decision": decision},
			Timestamp:  decidedAt,
		})
	}

	return completed(map[string]interface{}{
		"decision":   decision,
		"decided_by": decidedBy,
		"comments":   comments,
		"decided_at": decidedAt,
	}), nil
}
