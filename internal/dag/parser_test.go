package dag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

func TestParseYAML_ValidTemplate(t *testing.T) {
	yamlData := []byte(`
dag_id: test-dag
version: v1
name: Test DAG
description: A test template for unit testing
workflow_type: process
tags:
  - test
  - example
tasks:
  - id: task1
    name: Task 1
    operator: action
    retry_attempts: 3
    retry_delay: 5m
    config:
      command: echo hello
  - id: task2
    name: Task 2
    operator: approval
    dependencies:
      - task1
    retry_attempts: 2
    retry_delay: 3m
`)

	parser := NewParser()
	tmpl, err := parser.ParseYAML(yamlData)

	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	if tmpl.DAGID != "test-dag" {
		t.Errorf("Expected dag_id 'test-dag', got '%s'", tmpl.DAGID)
	}
	if tmpl.Name != "Test DAG" {
		t.Errorf("Expected name 'Test DAG', got '%s'", tmpl.Name)
	}
	if tmpl.Description != "A test template for unit testing" {
		t.Errorf("Expected description, got '%s'", tmpl.Description)
	}
	if len(tmpl.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(tmpl.Tags))
	}
	if len(tmpl.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tmpl.Tasks))
	}

	task1 := tmpl.Tasks["task1"]
	if task1.OperatorKind != models.OperatorKindAction {
		t.Errorf("Expected action operator kind, got '%s'", task1.OperatorKind)
	}
	if task1.RetryPolicy == nil || task1.RetryPolicy.MaxAttempts != 3 {
		t.Errorf("Expected retry policy with 3 attempts")
	}

	task2 := tmpl.Tasks["task2"]
	if task2.OperatorKind != models.OperatorKindApproval {
		t.Errorf("Expected approval operator kind, got '%s'", task2.OperatorKind)
	}
	if len(task2.Dependencies) != 1 || task2.Dependencies[0] != "task1" {
		t.Errorf("Expected dependency 'task1', got %v", task2.Dependencies)
	}
}

func TestParseJSON_ValidTemplate(t *testing.T) {
	jsonData := []byte(`{
  "dag_id": "json-dag",
  "version": "v1",
  "name": "JSON DAG",
  "description": "A template from JSON",
  "workflow_type": "integration",
  "tags": ["json", "test"],
  "tasks": [
    {
      "id": "task1",
      "name": "Task 1",
      "operator": "integration",
      "config": {"endpoint": "https://api.example.com/endpoint"}
    }
  ]
}`)

	parser := NewParser()
	tmpl, err := parser.ParseJSON(jsonData)

	if err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if tmpl.DAGID != "json-dag" {
		t.Errorf("Expected dag_id 'json-dag', got '%s'", tmpl.DAGID)
	}
	if tmpl.WorkflowType != models.WorkflowTypeIntegration {
		t.Errorf("Expected integration workflow type, got '%s'", tmpl.WorkflowType)
	}
	if len(tmpl.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tmpl.Tasks))
	}

	task := tmpl.Tasks["task1"]
	if task.OperatorKind != models.OperatorKindIntegration {
		t.Errorf("Expected integration operator kind, got '%s'", task.OperatorKind)
	}
	if task.Config["endpoint"] != "https://api.example.com/endpoint" {
		t.Errorf("Expected endpoint in config, got '%v'", task.Config["endpoint"])
	}
}

func TestParseYAML_OperatorAliases(t *testing.T) {
	yamlData := []byte(`
dag_id: operator-aliases
version: v1
name: Operator Aliases Test
tasks:
  - id: t1
    operator: action
  - id: t2
    operator: condition
    dependencies: [t1]
  - id: t3
    operator: approve
    dependencies: [t2]
  - id: t4
    operator: start
    dependencies: [t3]
  - id: t5
    operator: end
    dependencies: [t4]
`)

	parser := NewParser()
	tmpl, err := parser.ParseYAML(yamlData)

	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	expectedKinds := map[string]models.OperatorKind{
		"t1": models.OperatorKindAction,
		"t2": models.OperatorKindConditional,
		"t3": models.OperatorKindApproval,
		"t4": models.OperatorKindWorkflowStart,
		"t5": models.OperatorKindTerminal,
	}

	for id, expected := range expectedKinds {
		task, ok := tmpl.Tasks[id]
		if !ok {
			t.Errorf("Missing task: %s", id)
			continue
		}
		if task.OperatorKind != expected {
			t.Errorf("Task %s: expected operator %s, got %s", id, expected, task.OperatorKind)
		}
	}
}

func TestParseYAML_InvalidOperatorKind(t *testing.T) {
	yamlData := []byte(`
dag_id: invalid-kind
version: v1
name: Invalid Kind
tasks:
  - id: task1
    name: Task 1
    operator: invalid-operator
`)

	parser := NewParser()
	_, err := parser.ParseYAML(yamlData)

	if err == nil {
		t.Error("Expected error for invalid operator kind, got nil")
	}
}

func TestParseYAML_InvalidRetryDelay(t *testing.T) {
	yamlData := []byte(`
dag_id: invalid-delay
version: v1
name: Invalid Delay
tasks:
  - id: task1
    name: Task 1
    operator: action
    retry_attempts: 1
    retry_delay: invalid
`)

	parser := NewParser()
	_, err := parser.ParseYAML(yamlData)

	if err == nil {
		t.Error("Expected error for invalid retry_delay, got nil")
	}
}

func TestParseYAML_InvalidWorkflowType(t *testing.T) {
	yamlData := []byte(`
dag_id: invalid-wftype
version: v1
name: Invalid Workflow Type
workflow_type: not-a-real-type
tasks:
  - id: task1
    name: Task 1
    operator: action
`)

	parser := NewParser()
	_, err := parser.ParseYAML(yamlData)

	if err == nil {
		t.Error("Expected error for invalid workflow type, got nil")
	}
}

func TestParseYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	yamlFile := filepath.Join(tmpDir, "test-dag.yaml")

	yamlContent := []byte(`
dag_id: file-dag
version: v1
name: File DAG
tasks:
  - id: task1
    name: Task 1
    operator: action
`)

	if err := os.WriteFile(yamlFile, yamlContent, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	parser := NewParser()
	tmpl, err := parser.ParseYAMLFile(yamlFile)

	if err != nil {
		t.Fatalf("Failed to parse YAML file: %v", err)
	}

	if tmpl.DAGID != "file-dag" {
		t.Errorf("Expected dag_id 'file-dag', got '%s'", tmpl.DAGID)
	}
}

func TestParseJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	jsonFile := filepath.Join(tmpDir, "test-dag.json")

	jsonContent := []byte(`{
  "dag_id": "file-dag",
  "version": "v1",
  "name": "File DAG",
  "tasks": [
    {
      "id": "task1",
      "name": "Task 1",
      "operator": "action"
    }
  ]
}`)

	if err := os.WriteFile(jsonFile, jsonContent, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	parser := NewParser()
	tmpl, err := parser.ParseJSONFile(jsonFile)

	if err != nil {
		t.Fatalf("Failed to parse JSON file: %v", err)
	}

	if tmpl.DAGID != "file-dag" {
		t.Errorf("Expected dag_id 'file-dag', got '%s'", tmpl.DAGID)
	}
}

func TestParseYAML_ValidationFailure(t *testing.T) {
	yamlData := []byte(`
dag_id: cyclic-dag
version: v1
name: Cyclic DAG
tasks:
  - id: task1
    name: Task 1
    operator: action
    dependencies:
      - task2
  - id: task2
    name: Task 2
    operator: action
    dependencies:
      - task1
`)

	parser := NewParser()
	_, err := parser.ParseYAML(yamlData)

	if err == nil {
		t.Error("Expected validation error for cyclic template, got nil")
	}
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{invalid json}`)

	parser := NewParser()
	_, err := parser.ParseJSON(invalidJSON)

	if err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestParseYAML_InvalidYAML(t *testing.T) {
	invalidYAML := []byte(`
invalid: yaml: content:
  - unmatched
`)

	parser := NewParser()
	_, err := parser.ParseYAML(invalidYAML)

	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestParseYAMLFile_NonExistentFile(t *testing.T) {
	parser := NewParser()
	_, err := parser.ParseYAMLFile("/nonexistent/file.yaml")

	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestParseJSON_ComplexTemplate(t *testing.T) {
	jsonData := []byte(`{
  "dag_id": "complex-dag",
  "version": "v1",
  "name": "Complex DAG",
  "description": "A complex template with multiple dependencies",
  "tags": ["production", "etl"],
  "tasks": [
    {
      "id": "extract",
      "name": "Extract Data",
      "operator": "action",
      "retry_attempts": 3,
      "retry_delay": "30s"
    },
    {
      "id": "transform",
      "name": "Transform Data",
      "operator": "action",
      "dependencies": ["extract"],
      "retry_attempts": 2,
      "retry_delay": "15s"
    },
    {
      "id": "load",
      "name": "Load Data",
      "operator": "terminal",
      "dependencies": ["transform"],
      "retry_attempts": 3,
      "retry_delay": "20s"
    }
  ]
}`)

	parser := NewParser()
	tmpl, err := parser.ParseJSON(jsonData)

	if err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if len(tmpl.Tasks) != 3 {
		t.Errorf("Expected 3 tasks, got %d", len(tmpl.Tasks))
	}

	graph := NewGraph(tmpl)
	order, err := graph.topologicalSort()
	if err != nil {
		t.Errorf("Failed to get topological order: %v", err)
	}
	if len(order) != 3 {
		t.Errorf("Expected 3 tasks in order, got %d", len(order))
	}
}
