package executor

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Resumer is the subset of LocalExecutor the WaitReaper needs: a way to
// force a suspended task back through a tick without a real resume payload.
type Resumer interface {
	Resume(ctx context.Context, instanceID, taskID string, payload map[string]interface{}) error
}

// WaitReaper periodically forces a re-entry tick on every instance whose
// current task is a WorkflowStartOperator waiting on "child_workflow" — the
// one case where progress depends on state that changes outside the
// instance's own control flow (a child instance finishing) and nothing else
// wakes it. There is a single fixed cron expression and the callback is a
// Resume poke, since a child-wait task's Execute ignores Resume.Payload and
// simply re-evaluates the child's status from context.
//
// This is not a general-purpose schedule. The reaper only ever re-ticks
// work that already exists; it never creates a new instance.
type WaitReaper struct {
	cron      *cron.Cron
	instances storage.InstanceRepository
	resumer   Resumer
}

// NewWaitReaper builds a reaper that polls on the given cron expression
// (e.g. "@every 30s"). instances is used to list candidates; resumer is
// poked once per candidate found.
func NewWaitReaper(expr string, instances storage.InstanceRepository, resumer Resumer) (*WaitReaper, error) {
	c := cron.New()
	r := &WaitReaper{cron: c, instances: instances, resumer: resumer}

	if _, err := c.AddFunc(expr, r.sweep); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the periodic sweep.
func (r *WaitReaper) Start() { r.cron.Start() }

// Stop stops the reaper and waits for an in-flight sweep to finish.
func (r *WaitReaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *WaitReaper) sweep() {
	ctx := context.Background()
	waitingStatus := models.InstanceStatusWaitingForInput

	instances, err := r.instances.List(ctx, storage.InstanceFilters{Status: &waitingStatus})
	if err != nil {
		log.Printf("wait reaper: list waiting instances: %v", err)
		return
	}

	for _, inst := range instances {
		taskID, ok := findChildWorkflowWait(inst)
		if !ok {
			continue
		}
		if err := r.resumer.Resume(ctx, inst.InstanceID, taskID, nil); err != nil {
			log.Printf("wait reaper: resume %s/%s: %v", inst.InstanceID, taskID, err)
		}
	}
}

// findChildWorkflowWait returns the task_id of the one task, if any, that is
// WAITING with waiting_for == "child_workflow".
func findChildWorkflowWait(inst *models.Instance) (string, bool) {
	for taskID, ts := range inst.TaskStates {
		if ts.Status == models.TaskStatusWaiting && ts.WaitingFor == "child_workflow" {
			return taskID, true
		}
	}
	return "", false
}

// DefaultReaperSchedule: frequent enough that a workflow_start
// timeout_minutes budget is noticed promptly, infrequent enough not to
// thrash the instance store. Timeouts are only ever checked on re-entry.
const DefaultReaperSchedule = "@every 30s"
