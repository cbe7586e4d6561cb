package models

import "time"

// Edge is a directed dependency from one task to another within a Template.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TaskDef is a task's static definition inside a Template: which operator
// kind it binds to, its declared dependencies, and the operator's own
// configuration (form schema, predicates, retry policy, ...). The concrete
// operator behavior lives in internal/operator; TaskDef only carries the
// data the builder validated and the Executor needs to compute readiness.
type TaskDef struct {
	TaskID       string                 `json:"task_id"`
	Name         string                 `json:"name"`
	OperatorKind OperatorKind           `json:"operator_kind"`
	Dependencies []string               `json:"dependencies"`
	Config       map[string]interface{} `json:"config"`
	RetryPolicy  *RetryPolicy           `json:"retry_policy,omitempty"`
}

// RetryPolicy bounds how many times the Executor re-runs a failed task
// before giving up, and at what cadence.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
}

// Template is the immutable, versioned DAG definition a workflow instance is
// created from. It is owned by the DAG Registry; instances reference it by
// dag_id only (no back-reference), per the DESIGN NOTES.
type Template struct {
	DAGID        string             `json:"dag_id"`
	Version      string             `json:"version"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Tags         []string           `json:"tags"`
	WorkflowType WorkflowType       `json:"workflow_type"`
	Tasks        map[string]*TaskDef `json:"tasks"`
	Edges        []Edge             `json:"edges"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	// frozen is set once register_template succeeds; mutation after
	// freezing is a programming error, not a runtime one.
	frozen bool
	// topoOrder is the precomputed, cached stable topological order used to
	// break readiness ties.
	topoOrder []string
}

// IsFrozen reports whether the template has passed validation and is safe
// to hand out instances from.
func (t *Template) IsFrozen() bool { return t.frozen }

// Freeze marks the template immutable and records its cached topological
// order. Called by the DAG Registry after Validate succeeds.
func (t *Template) Freeze(order []string) {
	t.frozen = true
	t.topoOrder = order
}

// TopoOrder returns the cached stable topological order computed at
// registration time. Empty if the template was never frozen.
func (t *Template) TopoOrder() []string {
	return t.topoOrder
}

// RootTasks returns the task IDs with no declared dependencies.
func (t *Template) RootTasks() []string {
	var roots []string
	for id, task := range t.Tasks {
		if len(task.Dependencies) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Dependents returns the task IDs that declare taskID as a dependency.
func (t *Template) Dependents(taskID string) []string {
	var out []string
	for id, task := range t.Tasks {
		for _, dep := range task.Dependencies {
			if dep == taskID {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
