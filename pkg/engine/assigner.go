package engine

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/assignment"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// assigner adapts internal/assignment.Service to operator.Assigner (the
// same method set hook.Assigner names): callers only ever name a strategy
// (models.AssignmentStrategy), while the Assignment Service's AssignInstance
// takes a full assignment.Rule — the rest of the Rule falls back to
// assignment.DefaultRule, with the caller's strategy substituted in when
// one is named. A successful binding is persisted, and an instance parked
// in WAITING_FOR_ASSIGNMENT is reset to Pending so it can be admitted.
type assigner struct {
	engine *Engine
}

// Assigner returns an operator.Assigner backed by this Engine's Assignment
// Service, for wiring into operator.Deps and hook.New. A nil service
// reports every AssignInstance call as failed rather than panicking.
func (e *Engine) Assigner() operator.Assigner {
	return assigner{engine: e}
}

func (a assigner) AssignInstance(ctx context.Context, instance *models.Instance, strategy models.AssignmentStrategy) error {
	if a.engine.assigner == nil {
		return fmt.Errorf("assign instance: no assignment service configured")
	}
	rule := assignment.DefaultRule()
	if strategy != "" {
		rule.Strategy = strategy
	}
	if err := a.engine.assigner.AssignInstance(ctx, instance, rule, "engine"); err != nil {
		return err
	}
	if instance.Status == models.InstanceStatusWaitingForAssignment {
		instance.Status = models.InstanceStatusPending
	}
	return a.engine.instances.Save(ctx, instance)
}
