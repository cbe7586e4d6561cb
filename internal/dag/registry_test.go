package dag

import (
	"testing"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

func buildTestTemplate(t *testing.T, dagID, version string) *models.Template {
	t.Helper()
	tmpl, err := NewTemplateBuilder("Test Template").
		ID(dagID).
		Version(version).
		Task("start", ActionTask(nil)).
		Task("end", TerminalTask(nil).DependsOn("start")).
		Build()
	if err != nil {
		t.Fatalf("failed to build test template: %v", err)
	}
	return tmpl
}

func TestRegistry_RegisterAndGetTemplate(t *testing.T) {
	r := NewRegistry()
	tmpl := buildTestTemplate(t, "dag-1", "v1")

	if err := r.RegisterTemplate(tmpl); err != nil {
		t.Fatalf("unexpected error registering template: %v", err)
	}

	got, err := r.GetTemplate("dag-1", "")
	if err != nil {
		t.Fatalf("unexpected error fetching latest template: %v", err)
	}
	if !got.IsFrozen() {
		t.Error("expected registered template to be frozen")
	}
	if len(got.TopoOrder()) != 2 {
		t.Errorf("expected cached topo order of length 2, got %d", len(got.TopoOrder()))
	}
}

func TestRegistry_GetTemplate_UnknownDAGID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetTemplate("nope", ""); err == nil {
		t.Error("expected error for unknown dag_id, got nil")
	}
}

func TestRegistry_GetTemplate_UnknownVersion(t *testing.T) {
	r := NewRegistry()
	tmpl := buildTestTemplate(t, "dag-1", "v1")
	if err := r.RegisterTemplate(tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.GetTemplate("dag-1", "v2"); err == nil {
		t.Error("expected error for unknown version, got nil")
	}
}

func TestRegistry_MultipleVersionsCoexist(t *testing.T) {
	r := NewRegistry()
	v1 := buildTestTemplate(t, "dag-1", "v1")
	v2 := buildTestTemplate(t, "dag-1", "v2")

	if err := r.RegisterTemplate(v1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RegisterTemplate(v2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	latest, err := r.GetTemplate("dag-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Version != "v2" {
		t.Errorf("expected latest version v2, got %s", latest.Version)
	}

	old, err := r.GetTemplate("dag-1", "v1")
	if err != nil {
		t.Fatalf("unexpected error fetching old version: %v", err)
	}
	if old.Version != "v1" {
		t.Errorf("expected v1, got %s", old.Version)
	}
}

func TestRegistry_RegisterTemplate_RejectsInvalid(t *testing.T) {
	r := NewRegistry()
	tmpl := &models.Template{DAGID: "bad", Version: "v1", Name: "", Tasks: map[string]*models.TaskDef{}}

	if err := r.RegisterTemplate(tmpl); err == nil {
		t.Error("expected error registering invalid template, got nil")
	}
}

func TestRegistry_RegisterTemplate_RejectsEmptyVersion(t *testing.T) {
	r := NewRegistry()
	tmpl := buildTestTemplate(t, "dag-1", "")

	if err := r.RegisterTemplate(tmpl); err == nil {
		t.Error("expected error registering template with empty version, got nil")
	}
}

func TestRegistry_CreateInstance(t *testing.T) {
	r := NewRegistry()
	tmpl := buildTestTemplate(t, "dag-1", "v1")
	if err := r.RegisterTemplate(tmpl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instance, err := r.CreateInstance("dag-1", "", "user-42", map[string]interface{}{"foo": "bar"})
	if err != nil {
		t.Fatalf("unexpected error creating instance: %v", err)
	}

	if instance.InstanceID == "" {
		t.Error("expected instance to have a generated instance_id")
	}
	if instance.DAGID != "dag-1" {
		t.Errorf("expected dag_id 'dag-1', got '%s'", instance.DAGID)
	}
	if instance.DAGVersion != "v1" {
		t.Errorf("expected dag_version 'v1', got '%s'", instance.DAGVersion)
	}
	if instance.Context["foo"] != "bar" {
		t.Errorf("expected context to carry initial data, got %v", instance.Context)
	}
	if len(instance.TaskStates) != 2 {
		t.Errorf("expected 2 task states, got %d", len(instance.TaskStates))
	}
	for taskID, state := range instance.TaskStates {
		if state.Status != models.TaskStatusPending {
			t.Errorf("expected task %s to start pending, got %s", taskID, state.Status)
		}
	}
}

func TestRegistry_CreateInstance_UnknownTemplate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateInstance("nope", "", "user-1", nil); err == nil {
		t.Error("expected error creating instance from unknown template, got nil")
	}
}

func TestRegistry_ListTemplates(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterTemplate(buildTestTemplate(t, "dag-1", "v1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.RegisterTemplate(buildTestTemplate(t, "dag-2", "v1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	templates := r.ListTemplates()
	if len(templates) != 2 {
		t.Errorf("expected 2 templates, got %d", len(templates))
	}
}
