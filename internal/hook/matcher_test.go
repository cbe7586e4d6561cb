package hook

import (
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

func testHook(id, pattern string, priority int) *models.Hook {
	return &models.Hook{
		HookID:             id,
		ListenerWorkflowID: "wf-listener",
		EventPattern:       pattern,
		TriggerType:        models.HookTriggerAlways,
		Priority:           priority,
		Enabled:            true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

func TestMatchHooks_Glob(t *testing.T) {
	event := &models.Event{
		EventType:  models.EventType("TASK_COMPLETED"),
		WorkflowID: "onboarding",
		InstanceID: "inst-1",
	}

	hooks := []*models.Hook{
		testHook("h1", "TASK_COMPLETED.onboarding.*", 5),
		testHook("h2", "TASK_COMPLETED.other", 10),
		testHook("h3", "TASK_COMPLETED.onboarding", 1),
	}

	matched := matchHooks(hooks, event)
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	if matched[0].HookID != "h1" || matched[1].HookID != "h3" {
		t.Fatalf("unexpected match order: %v", []string{matched[0].HookID, matched[1].HookID})
	}
}

func TestMatchHooks_Regex(t *testing.T) {
	event := &models.Event{
		EventType:  models.EventType("APPROVAL_DECIDED"),
		WorkflowID: "loan-approval",
	}

	hooks := []*models.Hook{
		testHook("h1", "regex:^APPROVAL_DECIDED\\.loan-.*$", 1),
		testHook("h2", "regex:^NEVER_MATCHES$", 1),
	}

	matched := matchHooks(hooks, event)
	if len(matched) != 1 || matched[0].HookID != "h1" {
		t.Fatalf("expected only h1 to match, got %v", matched)
	}
}

func TestMatchHooks_PriorityOrdering(t *testing.T) {
	event := &models.Event{EventType: "X", WorkflowID: "wf"}

	hooks := []*models.Hook{
		testHook("b", "X.wf", 5),
		testHook("a", "X.wf", 5),
		testHook("high", "X.wf", 10),
	}

	matched := matchHooks(hooks, event)
	ids := []string{matched[0].HookID, matched[1].HookID, matched[2].HookID}
	want := []string{"high", "a", "b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}

func TestMatchHooks_DisabledSkipped(t *testing.T) {
	event := &models.Event{EventType: "X", WorkflowID: "wf"}

	h := testHook("h1", "X.wf", 1)
	h.Enabled = false

	matched := matchHooks([]*models.Hook{h}, event)
	if len(matched) != 0 {
		t.Fatalf("expected disabled hook to be skipped")
	}
}
