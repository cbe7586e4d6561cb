package operator

import (
	"context"
	"sync"
	"testing"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []*models.Event
}

func (f *fakeEventPublisher) Publish(ctx context.Context, evt *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func TestApprovalOperator_FirstEntryWaitsAndPublishesRequested(t *testing.T) {
	events := &fakeEventPublisher{}
	op := &ApprovalOperator{events: events}

	result, err := op.Execute(context.Background(), Input{InstanceID: "inst-1", TaskID: "approve"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.TaskResultWaiting || result.WaitingFor != "approval" {
		t.Fatalf("expected waiting on approval, got %+v", result)
	}

	if len(events.events) != 1 || events.events[0].EventType != models.EventTypeApprovalRequested {
		t.Fatalf("expected one approval_requested event, got %+v", events.events)
	}
}

func TestApprovalOperator_ResumeWithDecisionCompletesAndPublishes(t *testing.T) {
	events := &fakeEventPublisher{}
	op := &ApprovalOperator{events: events}

	in := Input{
		InstanceID: "inst-1",
		TaskID:     "approve",
		Resume: &Resume{Payload: map[string]interface{}{
			"decision":   string(models.ApprovalDecisionApproved),
			"decided_by": "reviewer-1",
			"comments":   "looks good",
		}},
	}

	result, err := op.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.TaskResultCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}
	if result.Data["decision"] != string(models.ApprovalDecisionApproved) {
		t.Fatalf("expected decision carried through, got %+v", result.Data)
	}
	if len(events.events) != 1 || events.events[0].EventType != models.EventTypeApprovalCompleted {
		t.Fatalf("expected one approval_completed event, got %+v", events.events)
	}
}

func TestApprovalOperator_ResumeMissingDecisionFails(t *testing.T) {
	op := &ApprovalOperator{}
	in := Input{Resume: &Resume{Payload: map[string]interface{}{}}}

	result, err := op.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.TaskResultFailed {
		t.Fatalf("expected FAILED when decision missing, got %s", result.Status)
	}
}
