package executor

import (
	"sort"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/dag"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// selectedEdges collects, for every completed ConditionalOperator task, the
// downstream task_id its Data["selected_edge"] chose.
func selectedEdges(instance *models.Instance) map[string]string {
	edges := make(map[string]string)
	for taskID, ts := range instance.TaskStates {
		if ts.Status != models.TaskStatusCompleted || ts.OutputData == nil {
			continue
		}
		if edge, ok := ts.OutputData["selected_edge"].(string); ok && edge != "" {
			edges[taskID] = edge
		}
	}
	return edges
}

// computeSkipped returns the set of tasks that can never be admitted for
// real execution because every path to them runs through a conditional
// branch that was not selected. A task is resolved (completed or skipped)
// without being "endorsed" when none of its immediate dependencies is
// either a non-conditional completion or a conditional completion whose
// selected_edge names it. Skipped tasks count as resolved for downstream
// AND-join purposes (effectiveCompleted), so a merge task with one real and
// one skipped dependency still becomes ready once the real one completes.
func computeSkipped(graph *dag.Graph, instance *models.Instance) map[string]bool {
	edges := selectedEdges(instance)
	skipped := make(map[string]bool)

	effectiveDone := func(taskID string) bool {
		return instance.CompletedTasks[taskID] || skipped[taskID]
	}

	for {
		changed := false

		for taskID := range instance.TaskStates {
			if instance.CompletedTasks[taskID] || skipped[taskID] {
				continue
			}

			deps, err := graph.GetImmediateDependencies(taskID)
			if err != nil || len(deps) == 0 {
				continue
			}

			allResolved := true
			endorsed := false
			for _, dep := range deps {
				if !effectiveDone(dep) {
					allResolved = false
					break
				}
				if instance.CompletedTasks[dep] {
					if edge, ok := edges[dep]; ok {
						if edge == taskID {
							endorsed = true
						}
					} else {
						endorsed = true
					}
				}
			}

			if !allResolved {
				continue
			}
			if !endorsed {
				skipped[taskID] = true
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	return skipped
}

// effectiveCompleted is the union of genuinely completed tasks and skipped
// tasks, the map the ready-set computation treats as "done" for upstream
// AND-join purposes.
func effectiveCompleted(instance *models.Instance, skipped map[string]bool) map[string]bool {
	out := make(map[string]bool, len(instance.CompletedTasks)+len(skipped))
	for id := range instance.CompletedTasks {
		out[id] = true
	}
	for id := range skipped {
		out[id] = true
	}
	return out
}

// readyTasks computes the ready set: a task_id is ready when its own
// task_status is pending or waiting, and the graph's dependency check
// (seeded with effectiveCompleted) says every upstream task is done. A
// waiting upstream never counts as done — GetParallelTasks only treats
// genuinely completed (or skipped) tasks as satisfying the AND-join.
//
// The returned slice is ordered by the template's cached topological order,
// task_id string order as the tiebreak, so which of several simultaneously
// ready tasks gets admitted under the per-instance concurrency cap is
// deterministic tick to tick — GetParallelTasks iterates a map and promises
// nothing about order.
func readyTasks(tmpl *models.Template, graph *dag.Graph, instance *models.Instance, skipped map[string]bool) []string {
	done := effectiveCompleted(instance, skipped)

	candidates := graph.GetParallelTasks(done)

	var ready []string
	for _, taskID := range candidates {
		ts := instance.TaskStates[taskID]
		if ts == nil {
			continue
		}
		if ts.Status == models.TaskStatusPending || ts.Status == models.TaskStatusWaiting {
			ready = append(ready, taskID)
		}
	}

	order := tmpl.TopoOrder()
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	sort.Slice(ready, func(i, j int) bool {
		ri, iok := rank[ready[i]]
		rj, jok := rank[ready[j]]
		if iok && jok && ri != rj {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return ready[i] < ready[j]
	})

	return ready
}

// anyWaiting reports whether any task in the instance is currently
// WAITING — used to distinguish "DAG exhausted" from "blocked on input".
func anyWaiting(instance *models.Instance) bool {
	for _, ts := range instance.TaskStates {
		if ts.Status == models.TaskStatusWaiting {
			return true
		}
	}
	return false
}
