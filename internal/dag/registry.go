package dag

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Registry is the DAG Registry: it owns every registered Template
// version, validates and freezes templates on registration, and mints new
// Instances from a registered template. It is the sole authority for
// template lookups — Instances reference templates by dag_id/version only.
type Registry struct {
	mu        sync.RWMutex
	versions  map[string]map[string]*models.Template // dag_id -> version -> template
	latest    map[string]string                      // dag_id -> latest registered version
	validator *Validator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		versions:  make(map[string]map[string]*models.Template),
		latest:    make(map[string]string),
		validator: NewValidator(),
	}
}

// RegisterTemplate validates tmpl, computes and caches its stable
// topological order, freezes it against further mutation, and stores it
// under its dag_id and version. Re-registering the same dag_id with a new
// version does not retire instances already running against the old
// version.
func (r *Registry) RegisterTemplate(tmpl *models.Template) error {
	if tmpl.Version == "" {
		return fmt.Errorf("template %s: version cannot be empty", tmpl.DAGID)
	}

	if err := r.validator.Validate(tmpl); err != nil {
		return fmt.Errorf("template %s validation failed: %w", tmpl.DAGID, err)
	}

	order, err := r.validator.GetTopologicalOrder(tmpl)
	if err != nil {
		return fmt.Errorf("template %s: %w", tmpl.DAGID, err)
	}
	tmpl.Freeze(order)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.versions[tmpl.DAGID]; !exists {
		r.versions[tmpl.DAGID] = make(map[string]*models.Template)
	}
	r.versions[tmpl.DAGID][tmpl.Version] = tmpl
	r.latest[tmpl.DAGID] = tmpl.Version

	return nil
}

// GetTemplate returns a registered template. An empty version returns the
// most recently registered version for that dag_id.
func (r *Registry) GetTemplate(dagID, version string) (*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion, exists := r.versions[dagID]
	if !exists {
		return nil, fmt.Errorf("unknown dag_id: %s", dagID)
	}

	if version == "" {
		version = r.latest[dagID]
	}

	tmpl, exists := byVersion[version]
	if !exists {
		return nil, fmt.Errorf("unknown version %s for dag_id %s", version, dagID)
	}

	return tmpl, nil
}

// ListTemplates returns the latest version of every registered dag_id.
func (r *Registry) ListTemplates() []*models.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Template, 0, len(r.latest))
	for dagID, version := range r.latest {
		out = append(out, r.versions[dagID][version])
	}
	return out
}

// CreateInstance mints a new Instance bound to the named template version
// (empty version means latest), with an isolated context seeded from
// initialData and an isolated task_states map — no two instances of the
// same template share mutable state.
func (r *Registry) CreateInstance(dagID, version, userID string, initialData map[string]interface{}) (*models.Instance, error) {
	tmpl, err := r.GetTemplate(dagID, version)
	if err != nil {
		return nil, err
	}

	return models.NewInstance(uuid.NewString(), tmpl, userID, initialData), nil
}
