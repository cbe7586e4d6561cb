package dag

import (
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

func TestBuilder_BasicTemplate(t *testing.T) {
	tmpl, err := NewTemplateBuilder("test-dag").
		ID("dag-123").
		Version("v1").
		Description("A test template").
		Tags("test", "example").
		Task("task1", ActionTask(map[string]interface{}{"command": "echo hello"})).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	if tmpl.DAGID != "dag-123" {
		t.Errorf("Expected dag_id 'dag-123', got '%s'", tmpl.DAGID)
	}
	if tmpl.Name != "test-dag" {
		t.Errorf("Expected name 'test-dag', got '%s'", tmpl.Name)
	}
	if tmpl.Description != "A test template" {
		t.Errorf("Expected description 'A test template', got '%s'", tmpl.Description)
	}
	if len(tmpl.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(tmpl.Tags))
	}
	if len(tmpl.Tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(tmpl.Tasks))
	}
}

func TestBuilder_ComplexTemplate(t *testing.T) {
	tmpl, err := NewTemplateBuilder("onboarding-pipeline").
		ID("onboard-123").
		Version("v1").
		Description("Citizen onboarding pipeline").
		WorkflowType(models.WorkflowTypeProcess).
		Tags("onboarding", "production").
		Task("validate", EntityValidationTask(map[string]interface{}{"entity_type": "citizen"}).
			Name("Validate Entity").
			Retry(3, 30*time.Second)).
		Task("collect", UserInputTask(map[string]interface{}{"form": "profile"}).
			Name("Collect Profile").
			DependsOn("validate").
			Retry(2, 15*time.Second)).
		Task("approve", ApprovalTask(map[string]interface{}{"team": "onboarding-review"}).
			Name("Approve Profile").
			DependsOn("collect").
			Retry(3, 20*time.Second)).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	if len(tmpl.Tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tmpl.Tasks))
	}

	validateTask := tmpl.Tasks["validate"]
	if validateTask == nil {
		t.Fatal("validate task not found")
	}
	if validateTask.Name != "Validate Entity" {
		t.Errorf("Expected name 'Validate Entity', got '%s'", validateTask.Name)
	}
	if validateTask.RetryPolicy == nil || validateTask.RetryPolicy.MaxAttempts != 3 {
		t.Errorf("Expected retry policy with 3 attempts")
	}

	collectTask := tmpl.Tasks["collect"]
	if collectTask == nil {
		t.Fatal("collect task not found")
	}
	if len(collectTask.Dependencies) != 1 || collectTask.Dependencies[0] != "validate" {
		t.Errorf("Expected collect to depend on validate, got %v", collectTask.Dependencies)
	}

	approveTask := tmpl.Tasks["approve"]
	if approveTask == nil {
		t.Fatal("approve task not found")
	}
	if len(approveTask.Dependencies) != 1 || approveTask.Dependencies[0] != "collect" {
		t.Errorf("Expected approve to depend on collect, got %v", approveTask.Dependencies)
	}
}

func TestBuilder_OperatorKinds(t *testing.T) {
	tmpl, err := NewTemplateBuilder("operator-kinds").
		ID("kinds").
		Version("v1").
		Task("action", ActionTask(nil)).
		Task("conditional", ConditionalTask(nil).DependsOn("action")).
		Task("approval", ApprovalTask(nil).DependsOn("conditional")).
		Task("user_input", UserInputTask(nil).DependsOn("approval")).
		Task("admin_input", AdminInputTask(nil).DependsOn("user_input")).
		Task("integration", IntegrationTask(nil).DependsOn("admin_input")).
		Task("entity_validation", EntityValidationTask(nil).DependsOn("integration")).
		Task("workflow_start", WorkflowStartTask(nil).DependsOn("entity_validation")).
		Task("terminal", TerminalTask(nil).DependsOn("workflow_start")).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	kinds := make(map[string]models.OperatorKind)
	for id, task := range tmpl.Tasks {
		kinds[id] = task.OperatorKind
	}

	if kinds["action"] != models.OperatorKindAction {
		t.Error("Expected action operator kind")
	}
	if kinds["conditional"] != models.OperatorKindConditional {
		t.Error("Expected conditional operator kind")
	}
	if kinds["approval"] != models.OperatorKindApproval {
		t.Error("Expected approval operator kind")
	}
	if kinds["terminal"] != models.OperatorKindTerminal {
		t.Error("Expected terminal operator kind")
	}
}

func TestBuilder_MultipleDependencies(t *testing.T) {
	tmpl, err := NewTemplateBuilder("multi-dep").
		ID("multi-dep").
		Version("v1").
		Task("task1", ActionTask(nil)).
		Task("task2", ActionTask(nil)).
		Task("task3", ActionTask(nil).DependsOn("task1", "task2")).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	task3 := tmpl.Tasks["task3"]
	if task3 == nil {
		t.Fatal("task3 not found")
	}
	if len(task3.Dependencies) != 2 {
		t.Errorf("Expected 2 dependencies, got %d", len(task3.Dependencies))
	}
}

func TestBuilder_InvalidTemplate(t *testing.T) {
	_, err := NewTemplateBuilder("").
		Task("task1", ActionTask(nil)).
		Build()

	if err == nil {
		t.Error("Expected error for empty template name, got nil")
	}
}

func TestBuilder_CyclicDependency(t *testing.T) {
	_, err := NewTemplateBuilder("cyclic").
		ID("cyclic").
		Version("v1").
		Task("task1", ActionTask(nil).DependsOn("task2")).
		Task("task2", ActionTask(nil).DependsOn("task1")).
		Build()

	if err == nil {
		t.Error("Expected error for cyclic dependency, got nil")
	}
}

func TestBuilder_NonExistentDependency(t *testing.T) {
	_, err := NewTemplateBuilder("invalid-dep").
		ID("invalid-dep").
		Version("v1").
		Task("task1", ActionTask(nil).DependsOn("nonexistent")).
		Build()

	if err == nil {
		t.Error("Expected error for non-existent dependency, got nil")
	}
}

func TestBuilder_MustBuild(t *testing.T) {
	tmpl := NewTemplateBuilder("valid").
		ID("valid").
		Version("v1").
		Task("task1", ActionTask(nil)).
		MustBuild()

	if tmpl == nil {
		t.Error("Expected template to be built")
	}
}

func TestBuilder_MustBuild_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustBuild to panic on invalid template")
		}
	}()

	NewTemplateBuilder("").
		Task("task1", ActionTask(nil)).
		MustBuild()
}

func TestTaskBuilder_DefaultName(t *testing.T) {
	tmpl, err := NewTemplateBuilder("test").
		ID("test").
		Version("v1").
		Task("my-task", ActionTask(nil)).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	if tmpl.Tasks["my-task"].Name != "my-task" {
		t.Errorf("Expected task name 'my-task', got '%s'", tmpl.Tasks["my-task"].Name)
	}
}

func TestTaskBuilder_CustomName(t *testing.T) {
	tmpl, err := NewTemplateBuilder("test").
		ID("test").
		Version("v1").
		Task("task-id", ActionTask(nil).Name("Custom Name")).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	if tmpl.Tasks["task-id"].Name != "Custom Name" {
		t.Errorf("Expected task name 'Custom Name', got '%s'", tmpl.Tasks["task-id"].Name)
	}
}

func TestBuilder_ChainedDependencies(t *testing.T) {
	tmpl, err := NewTemplateBuilder("chained").
		ID("chained").
		Version("v1").
		Task("start", ActionTask(nil)).
		Task("middle1", ActionTask(nil).DependsOn("start")).
		Task("middle2", ActionTask(nil).DependsOn("middle1")).
		Task("end", ActionTask(nil).DependsOn("middle2")).
		Build()

	if err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}

	graph := NewGraph(tmpl)
	upstream, _ := graph.GetUpstreamTasks("end")

	if len(upstream) != 3 {
		t.Errorf("Expected 3 upstream tasks for 'end', got %d", len(upstream))
	}
}
