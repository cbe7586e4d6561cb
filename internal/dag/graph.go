package dag

import (
	"fmt"
	"sort"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Graph is a Template's task graph as an adjacency list, built once at
// registration time and reused by the Executor for readiness computation.
type Graph struct {
	tasks      map[string]*models.TaskDef
	adjList    map[string][]string // taskID -> dependent task IDs (downstream)
	revAdjList map[string][]string // taskID -> dependency task IDs (upstream)
}

// NewGraph builds a Graph from a Template's tasks.
func NewGraph(tmpl *models.Template) *Graph {
	g := &Graph{
		tasks:      make(map[string]*models.TaskDef, len(tmpl.Tasks)),
		adjList:    make(map[string][]string, len(tmpl.Tasks)),
		revAdjList: make(map[string][]string, len(tmpl.Tasks)),
	}

	for id, task := range tmpl.Tasks {
		g.tasks[id] = task
		g.adjList[id] = []string{}
		g.revAdjList[id] = task.Dependencies
	}

	for id, task := range tmpl.Tasks {
		for _, depID := range task.Dependencies {
			g.adjList[depID] = append(g.adjList[depID], id)
		}
	}

	return g
}

// GetParallelTasks returns the tasks whose upstream dependencies are all
// completed and which are not themselves completed — the raw readiness set
// before the Executor applies the waiting-task resumption rule. The order
// is unspecified (map iteration); admission ordering is the Executor's,
// which sorts by the template's cached topological order.
func (g *Graph) GetParallelTasks(completed map[string]bool) []string {
	var ready []string

	for taskID := range g.tasks {
		if completed[taskID] {
			continue
		}

		allDepsCompleted := true
		for _, depID := range g.revAdjList[taskID] {
			if !completed[depID] {
				allDepsCompleted = false
				break
			}
		}

		if allDepsCompleted {
			ready = append(ready, taskID)
		}
	}

	return ready
}

// GetUpstreamTasks returns all tasks (direct or transitive) that taskID
// depends on.
func (g *Graph) GetUpstreamTasks(taskID string) ([]string, error) {
	if _, exists := g.tasks[taskID]; !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	upstream := make(map[string]bool)
	visited := make(map[string]bool)

	var dfs func(string)
	dfs = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.revAdjList[id] {
			upstream[depID] = true
			dfs(depID)
		}
	}
	dfs(taskID)

	result := make([]string, 0, len(upstream))
	for id := range upstream {
		result = append(result, id)
	}
	return result, nil
}

// GetDownstreamTasks returns all tasks (direct or transitive) that depend
// on taskID.
func (g *Graph) GetDownstreamTasks(taskID string) ([]string, error) {
	if _, exists := g.tasks[taskID]; !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	downstream := make(map[string]bool)
	visited := make(map[string]bool)

	var dfs func(string)
	dfs = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depTaskID := range g.adjList[id] {
			downstream[depTaskID] = true
			dfs(depTaskID)
		}
	}
	dfs(taskID)

	result := make([]string, 0, len(downstream))
	for id := range downstream {
		result = append(result, id)
	}
	return result, nil
}

// GetImmediateDependencies returns taskID's direct upstream tasks.
func (g *Graph) GetImmediateDependencies(taskID string) ([]string, error) {
	if _, exists := g.tasks[taskID]; !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return g.revAdjList[taskID], nil
}

// GetImmediateDependents returns the tasks that directly depend on taskID.
func (g *Graph) GetImmediateDependents(taskID string) ([]string, error) {
	if _, exists := g.tasks[taskID]; !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return g.adjList[taskID], nil
}

// topologicalSort returns tasks in a stable topological order using Kahn's
// algorithm, breaking ties by task_id string order so that the Executor's
// ready-set admission order is deterministic across runs.
func (g *Graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.tasks))
	for taskID := range g.tasks {
		inDegree[taskID] = len(g.revAdjList[taskID])
	}

	var queue []string
	for taskID, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, taskID)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(g.tasks))
	for len(queue) > 0 {
		taskID := queue[0]
		queue = queue[1:]
		result = append(result, taskID)

		var freed []string
		for _, neighbor := range g.adjList[taskID] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				freed = append(freed, neighbor)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
		sort.Strings(queue)
	}

	if len(result) != len(g.tasks) {
		return nil, fmt.Errorf("cycle detected in DAG")
	}

	return result, nil
}

// GetRootTasks returns all tasks with no dependencies.
func (g *Graph) GetRootTasks() []string {
	var roots []string
	for taskID := range g.tasks {
		if len(g.revAdjList[taskID]) == 0 {
			roots = append(roots, taskID)
		}
	}
	return roots
}

// GetLeafTasks returns all tasks that no other task depends on.
func (g *Graph) GetLeafTasks() []string {
	var leaves []string
	for taskID := range g.tasks {
		if len(g.adjList[taskID]) == 0 {
			leaves = append(leaves, taskID)
		}
	}
	return leaves
}

// GetTaskCount returns the total number of tasks in the graph.
func (g *Graph) GetTaskCount() int {
	return len(g.tasks)
}

// GetTask returns a task definition by ID.
func (g *Graph) GetTask(taskID string) (*models.TaskDef, error) {
	task, exists := g.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	return task, nil
}
