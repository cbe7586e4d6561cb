package executor

import (
	"testing"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// branchTemplate builds start -> cond -> {left, right} -> merge, where cond
// is a ConditionalOperator whose selected_edge picks exactly one branch.
func branchTemplate() *models.Template {
	return &models.Template{
		DAGID:   "branch",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"start":  {TaskID: "start", OperatorKind: models.OperatorKindAction},
			"cond":   {TaskID: "cond", OperatorKind: models.OperatorKindConditional, Dependencies: []string{"start"}},
			"left":   {TaskID: "left", OperatorKind: models.OperatorKindAction, Dependencies: []string{"cond"}},
			"right":  {TaskID: "right", OperatorKind: models.OperatorKindAction, Dependencies: []string{"cond"}},
			"merge":  {TaskID: "merge", OperatorKind: models.OperatorKindAction, Dependencies: []string{"left", "right"}},
		},
	}
}

func freshInstance(tmpl *models.Template) *models.Instance {
	return models.NewInstance("inst-1", tmpl, "user-1", nil)
}

func TestComputeSkipped_NonSelectedBranchSkipped(t *testing.T) {
	tmpl := branchTemplate()
	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	instance.TaskStates["start"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["start"] = true

	instance.TaskStates["cond"].Status = models.TaskStatusCompleted
	instance.TaskStates["cond"].OutputData = map[string]interface{}{"selected_edge": "left"}
	instance.CompletedTasks["cond"] = true

	skipped := computeSkipped(graph, instance)

	if !skipped["right"] {
		t.Fatalf("expected right to be skipped, got %+v", skipped)
	}
	if skipped["left"] {
		t.Fatalf("left is the selected edge, must not be skipped")
	}
	if skipped["merge"] {
		t.Fatalf("merge has an unresolved dependency (left), must not be skipped yet")
	}
}

func TestComputeSkipped_MergeReadyOnceRealBranchCompletes(t *testing.T) {
	tmpl := branchTemplate()
	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	instance.TaskStates["start"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["start"] = true
	instance.TaskStates["cond"].Status = models.TaskStatusCompleted
	instance.TaskStates["cond"].OutputData = map[string]interface{}{"selected_edge": "left"}
	instance.CompletedTasks["cond"] = true
	instance.TaskStates["left"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["left"] = true

	skipped := computeSkipped(graph, instance)
	if !skipped["right"] {
		t.Fatalf("expected right still skipped")
	}

	ready := readyTasks(tmpl, graph, instance, skipped)
	if len(ready) != 1 || ready[0] != "merge" {
		t.Fatalf("expected merge to be the only ready task once left completes and right is skipped, got %v", ready)
	}
}

func TestComputeSkipped_NoConditionalCompletionsYieldsNothingSkipped(t *testing.T) {
	tmpl := branchTemplate()
	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	skipped := computeSkipped(graph, instance)
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped tasks before cond resolves, got %+v", skipped)
	}
}

func TestReadyTasks_PendingAndWaitingIncludedExecutingAndCompletedExcluded(t *testing.T) {
	tmpl := &models.Template{
		DAGID:   "simple",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"a": {TaskID: "a", OperatorKind: models.OperatorKindAction},
			"b": {TaskID: "b", OperatorKind: models.OperatorKindAction, Dependencies: []string{"a"}},
			"c": {TaskID: "c", OperatorKind: models.OperatorKindAction, Dependencies: []string{"a"}},
		},
	}
	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	instance.TaskStates["a"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["a"] = true
	instance.TaskStates["b"].Status = models.TaskStatusWaiting
	instance.TaskStates["c"].Status = models.TaskStatusPending

	ready := readyTasks(tmpl, graph, instance, nil)
	got := map[string]bool{}
	for _, id := range ready {
		got[id] = true
	}
	if !got["b"] || !got["c"] {
		t.Fatalf("expected both waiting and pending downstream tasks ready, got %v", ready)
	}

	instance.TaskStates["c"].Status = models.TaskStatusExecuting
	ready = readyTasks(tmpl, graph, instance, nil)
	for _, id := range ready {
		if id == "c" {
			t.Fatalf("an already-executing task must not be re-admitted as ready")
		}
	}
}

func TestAnyWaiting(t *testing.T) {
	tmpl := branchTemplate()
	instance := freshInstance(tmpl)

	if anyWaiting(instance) {
		t.Fatalf("fresh instance has no waiting tasks")
	}

	instance.TaskStates["left"].Status = models.TaskStatusWaiting
	if !anyWaiting(instance) {
		t.Fatalf("expected anyWaiting to detect the waiting task")
	}
}

func TestReadyTasks_AdmissionOrderFollowsCachedTopoOrder(t *testing.T) {
	tmpl := &models.Template{
		DAGID:   "fanout",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"root": {TaskID: "root", OperatorKind: models.OperatorKindAction},
			"zeta": {TaskID: "zeta", OperatorKind: models.OperatorKindAction, Dependencies: []string{"root"}},
			"beta": {TaskID: "beta", OperatorKind: models.OperatorKindAction, Dependencies: []string{"root"}},
			"echo": {TaskID: "echo", OperatorKind: models.OperatorKindAction, Dependencies: []string{"root"}},
		},
	}
	// Registration would cache this; deliberately not task_id order so the
	// test distinguishes topo rank from the string tiebreak.
	tmpl.Freeze([]string{"root", "zeta", "beta", "echo"})

	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	instance.TaskStates["root"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["root"] = true

	for i := 0; i < 10; i++ {
		ready := readyTasks(tmpl, graph, instance, nil)
		if len(ready) != 3 || ready[0] != "zeta" || ready[1] != "beta" || ready[2] != "echo" {
			t.Fatalf("expected ready set in cached topological order [zeta beta echo], got %v", ready)
		}
	}
}

func TestReadyTasks_TaskIDTiebreakWithoutCachedOrder(t *testing.T) {
	tmpl := &models.Template{
		DAGID:   "fanout",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"root": {TaskID: "root", OperatorKind: models.OperatorKindAction},
			"zeta": {TaskID: "zeta", OperatorKind: models.OperatorKindAction, Dependencies: []string{"root"}},
			"beta": {TaskID: "beta", OperatorKind: models.OperatorKindAction, Dependencies: []string{"root"}},
		},
	}
	instance := freshInstance(tmpl)
	graph := dag.NewGraph(tmpl)

	instance.TaskStates["root"].Status = models.TaskStatusCompleted
	instance.CompletedTasks["root"] = true

	ready := readyTasks(tmpl, graph, instance, nil)
	if len(ready) != 2 || ready[0] != "beta" || ready[1] != "zeta" {
		t.Fatalf("expected task_id order [beta zeta] when no topo order is cached, got %v", ready)
	}
}
