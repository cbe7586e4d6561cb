// Package dag validates workflow templates and exposes the graph queries
// the Executor needs to compute task readiness.
package dag

import (
	"fmt"
	"sort"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Validator checks a Template for structural well-formedness before the
// DAG Registry freezes it: no duplicate task IDs, no dangling dependency
// references, no cycles, and every task reachable from at least one root.
type Validator struct{}

// NewValidator creates a new DAG validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate rejects a Template that is not a valid DAG. It does not freeze
// the template or compute its cached topological order — that is the
// Registry's job once Validate reports success.
func (v *Validator) Validate(tmpl *models.Template) error {
	if tmpl.Name == "" {
		return fmt.Errorf("dag name cannot be empty")
	}
	if tmpl.DAGID == "" {
		return fmt.Errorf("dag_id cannot be empty")
	}
	if len(tmpl.Tasks) == 0 {
		return fmt.Errorf("dag must have at least one task")
	}

	for taskID, task := range tmpl.Tasks {
		if task.TaskID != taskID {
			return fmt.Errorf("task key %q does not match task_id %q", taskID, task.TaskID)
		}
	}

	for taskID, task := range tmpl.Tasks {
		for _, depID := range task.Dependencies {
			if _, exists := tmpl.Tasks[depID]; !exists {
				return fmt.Errorf("task %s depends on non-existent task: %s", taskID, depID)
			}
		}
	}

	if err := v.detectCycle(tmpl); err != nil {
		return err
	}

	if err := v.checkReachability(tmpl); err != nil {
		return err
	}

	return nil
}

// detectCycle runs a 3-color DFS over the dependency graph: 0 unvisited,
// 1 visiting (on the current recursion stack), 2 visited. A back-edge into
// a visiting node is a cycle.
func (v *Validator) detectCycle(tmpl *models.Template) error {
	visited := make(map[string]int)

	var dfs func(string) error
	dfs = func(taskID string) error {
		if visited[taskID] == 1 {
			return fmt.Errorf("cycle detected involving task: %s", taskID)
		}
		if visited[taskID] == 2 {
			return nil
		}

		visited[taskID] = 1
		for _, depID := range tmpl.Tasks[taskID].Dependencies {
			if err := dfs(depID); err != nil {
				return err
			}
		}
		visited[taskID] = 2
		return nil
	}

	for taskID := range tmpl.Tasks {
		if visited[taskID] == 0 {
			if err := dfs(taskID); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkReachability rejects any task not reachable from at least one root
// task by following dependency edges forward (root -> dependent -> ...).
// This replaces the orphaned-task heuristic of "has a dependency or a
// dependent": two disjoint chains of tasks can each satisfy that heuristic
// while one of them is unreachable from a root if it only ever appears as
// a dependency target whose own chain never bottoms out — this walk is the
// actual reachability check the invariant requires.
func (v *Validator) checkReachability(tmpl *models.Template) error {
	if len(tmpl.Tasks) == 1 {
		return nil
	}

	dependents := make(map[string][]string, len(tmpl.Tasks))
	var roots []string
	for taskID, task := range tmpl.Tasks {
		if len(task.Dependencies) == 0 {
			roots = append(roots, taskID)
		}
		for _, depID := range task.Dependencies {
			dependents[depID] = append(dependents[depID], taskID)
		}
	}

	if len(roots) == 0 {
		return fmt.Errorf("dag has no root task: every task declares a dependency")
	}

	reached := make(map[string]bool, len(tmpl.Tasks))
	var walk func(string)
	walk = func(taskID string) {
		if reached[taskID] {
			return
		}
		reached[taskID] = true
		for _, next := range dependents[taskID] {
			walk(next)
		}
	}
	for _, root := range roots {
		walk(root)
	}

	for taskID := range tmpl.Tasks {
		if !reached[taskID] {
			return fmt.Errorf("task %s is not reachable from any root task", taskID)
		}
	}

	return nil
}

// GetTopologicalOrder returns a stable topological order of tmpl's tasks,
// breaking ties by task_id so that the order — and therefore readiness
// admission order within a tick — is deterministic. Returns an error if the
// template contains a cycle (Validate should already have caught this).
func (v *Validator) GetTopologicalOrder(tmpl *models.Template) ([]string, error) {
	inDegree := make(map[string]int, len(tmpl.Tasks))
	dependents := make(map[string][]string, len(tmpl.Tasks))
	for taskID, task := range tmpl.Tasks {
		inDegree[taskID] = len(task.Dependencies)
		for _, depID := range task.Dependencies {
			dependents[depID] = append(dependents[depID], taskID)
		}
	}

	var queue []string
	for taskID, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, taskID)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(tmpl.Tasks))
	for len(queue) > 0 {
		taskID := queue[0]
		queue = queue[1:]
		result = append(result, taskID)

		var freed []string
		for _, next := range dependents[taskID] {
			inDegree[next]--
			if inDegree[next] == 0 {
				freed = append(freed, next)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
		sort.Strings(queue)
	}

	if len(result) != len(tmpl.Tasks) {
		return nil, fmt.Errorf("cycle detected in DAG")
	}

	return result, nil
}
