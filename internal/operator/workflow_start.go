package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// WorkflowStartOperator creates a child Instance and optionally waits for
// it to reach a configured terminal status before letting its own task
// complete. Config shape:
//
//	child_dag_id, child_version (optional)
//	context_mapping: {source_key: target_key, ...} — projected into the
//	  child's initial context
//	wait_for_completion: bool
//	required_status: "any" | instance status | terminal status (default "any")
//	timeout_minutes: int (default 60)
//	assignment_strategy: one of models.AssignmentStrategy (optional)
type WorkflowStartOperator struct {
	spawner  InstanceSpawner
	lookup   InstanceLookup
	assigner Assigner
}

func (o *WorkflowStartOperator) Kind() models.OperatorKind { return models.OperatorKindWorkflowStart }

func (o *WorkflowStartOperator) childKey(in Input) string {
	return fmt.Sprintf("%s.child_instance_id", in.TaskID)
}

func (o *WorkflowStartOperator) startedAtKey(in Input) string {
	return fmt.Sprintf("%s.started_at", in.TaskID)
}

func (o *WorkflowStartOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	key := o.childKey(in)

	childID, alreadyStarted := in.Context[key].(string)
	if !alreadyStarted || childID == "" {
		return o.start(ctx, in)
	}

	return o.checkChild(ctx, in, childID)
}

func (o *WorkflowStartOperator) start(ctx context.Context, in Input) (models.TaskResult, error) {
	if o.spawner == nil {
		return failed("no instance spawner configured"), nil
	}

	dagID, _ := in.Config["child_dag_id"].(string)
	if dagID == "" {
		return failed("workflow_start task missing child_dag_id"), nil
	}
	version, _ := in.Config["child_version"].(string)

	mapping, _ := in.Config["context_mapping"].(map[string]interface{})
	initialData := make(map[string]interface{}, len(mapping))
	for source, targetRaw := range mapping {
		target, ok := targetRaw.(string)
		if !ok {
			continue
		}
		if v, present := in.Context[source]; present {
			initialData[target] = v
		}
	}

	child, err := o.spawner.CreateInstance(dagID, version, in.UserID, initialData)
	if err != nil {
		return failed("failed to create child instance: %v", err), nil
	}

	if o.assigner != nil {
		if strategyStr, ok := in.Config["assignment_strategy"].(string); ok && strategyStr != "" {
			if err := o.assigner.AssignInstance(ctx, child, models.AssignmentStrategy(strategyStr)); err != nil {
				return failed("failed to assign child instance: %v", err), nil
			}
		}
	}

	now := time.Now().UTC()
	data := map[string]interface{}{
		o.childKey(in):     child.InstanceID,
		o.startedAtKey(in): now.Format(time.RFC3339),
	}

	waitForCompletion, _ := in.Config["wait_for_completion"].(bool)
	if !waitForCompletion {
		data["child_instance_id"] = child.InstanceID
		return models.TaskResult{Status: models.TaskResultCompleted, Data: data}, nil
	}

	return models.TaskResult{Status: models.TaskResultWaiting, WaitingFor: "child_workflow", Data: data}, nil
}

func (o *WorkflowStartOperator) checkChild(ctx context.Context, in Input, childID string) (models.TaskResult, error) {
	if o.lookup == nil {
		return failed("no instance lookup configured"), nil
	}

	child, err := o.lookup.GetInstance(ctx, childID)
	if err != nil {
		return failed("failed to look up child instance %s: %v", childID, err), nil
	}

	requiredStatus, _ := in.Config["required_status"].(string)
	if requiredStatus == "" {
		requiredStatus = "any"
	}

	// "any" accepts whatever terminal outcome the child reaches; it still
	// has to reach one, or a running child would satisfy the wait
	// immediately.
	matched := (requiredStatus == "any" && child.Status.IsTerminal()) ||
		string(child.Status) == requiredStatus ||
		(child.TerminalStatus != "" && child.TerminalStatus == requiredStatus)

	if matched {
		data := map[string]interface{}{"child_instance_id": child.InstanceID}
		for k, v := range child.Context {
			data["child."+k] = v
		}
		return models.TaskResult{Status: models.TaskResultContinue, Data: data}, nil
	}

	// A child that has already reached a terminal status without matching
	// required_status never will; fail immediately rather than waiting out
	// the timeout budget (or waiting forever, if started_at is missing).
	if child.Status.IsTerminal() {
		return failed("child instance %s reached terminal status %q (terminal_status %q), required %q", childID, child.Status, child.TerminalStatus, requiredStatus), nil
	}

	timeoutMinutes := intConfig(in.Config, "timeout_minutes", 60)

	if startedAtStr, ok := in.Context[o.startedAtKey(in)].(string); ok {
		if startedAt, err := time.Parse(time.RFC3339, startedAtStr); err == nil {
			if time.Since(startedAt) > time.Duration(timeoutMinutes)*time.Minute {
				return failed("timed out waiting for child instance %s to reach status %q", childID, requiredStatus), nil
			}
		}
	}

	return models.TaskResult{Status: models.TaskResultWaiting, WaitingFor: "child_workflow"}, nil
}

// intConfig reads an integer config value, tolerating the float64 shape
// JSON decoding produces. Zero or negative values fall back to def.
func intConfig(config map[string]interface{}, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}
