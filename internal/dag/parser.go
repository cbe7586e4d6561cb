package dag

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// Parser handles parsing workflow template definitions from YAML/JSON files,
// the declarative alternative to building templates with TemplateBuilder.
type Parser struct {
	validator *Validator
}

// NewParser creates a new template parser.
func NewParser() *Parser {
	return &Parser{
		validator: NewValidator(),
	}
}

// templateFile represents the structure of a template definition file.
type templateFile struct {
	DAGID        string     `json:"dag_id" yaml:"dag_id"`
	Version      string     `json:"version" yaml:"version"`
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description" yaml:"description"`
	Category     string     `json:"category" yaml:"category"`
	WorkflowType string     `json:"workflow_type" yaml:"workflow_type"`
	Tags         []string   `json:"tags" yaml:"tags"`
	Tasks        []taskFile `json:"tasks" yaml:"tasks"`
}

// taskFile represents the structure of a task in a template file. Config is
// a free-form map whose shape depends on the operator kind (e.g. a
// ConditionalOperator's "predicate", an IntegrationOperator's
// "adapter"/"endpoint", a UserInputOperator's "form" field list).
type taskFile struct {
	ID            string                 `json:"id" yaml:"id"`
	Name          string                 `json:"name" yaml:"name"`
	Operator      string                 `json:"operator" yaml:"operator"`
	Dependencies  []string               `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Config        map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
	RetryAttempts int                    `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	RetryDelay    string                 `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
}

// ParseYAMLFile parses a template definition from a YAML file.
func (p *Parser) ParseYAMLFile(filepath string) (*models.Template, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.ParseYAML(data)
}

// ParseYAML parses a template definition from YAML bytes.
func (p *Parser) ParseYAML(data []byte) (*models.Template, error) {
	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return p.convertToTemplate(&tf)
}

// ParseJSONFile parses a template definition from a JSON file.
func (p *Parser) ParseJSONFile(filepath string) (*models.Template, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.ParseJSON(data)
}

// ParseJSON parses a template definition from JSON bytes.
func (p *Parser) ParseJSON(data []byte) (*models.Template, error) {
	var tf templateFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return p.convertToTemplate(&tf)
}

func (p *Parser) convertToTemplate(tf *templateFile) (*models.Template, error) {
	now := time.Now().UTC()

	wfType, err := parseWorkflowType(tf.WorkflowType)
	if err != nil {
		return nil, err
	}

	tasks := make(map[string]*models.TaskDef, len(tf.Tasks))
	for _, t := range tf.Tasks {
		task, err := p.convertToTask(&t)
		if err != nil {
			return nil, fmt.Errorf("failed to convert task %s: %w", t.ID, err)
		}
		tasks[task.TaskID] = task
	}

	tmpl := &models.Template{
		DAGID:        tf.DAGID,
		Version:      tf.Version,
		Name:         tf.Name,
		Description:  tf.Description,
		Category:     tf.Category,
		Tags:         tf.Tags,
		WorkflowType: wfType,
		Tasks:        tasks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.validator.Validate(tmpl); err != nil {
		return nil, fmt.Errorf("template validation failed: %w", err)
	}

	return tmpl, nil
}

func (p *Parser) convertToTask(tf *taskFile) (*models.TaskDef, error) {
	kind, err := parseOperatorKind(tf.Operator)
	if err != nil {
		return nil, err
	}

	var retryPolicy *models.RetryPolicy
	if tf.RetryAttempts > 0 {
		var delay time.Duration
		if tf.RetryDelay != "" {
			delay, err = time.ParseDuration(tf.RetryDelay)
			if err != nil {
				return nil, fmt.Errorf("invalid retry_delay format: %w", err)
			}
		}
		retryPolicy = &models.RetryPolicy{MaxAttempts: tf.RetryAttempts, BaseDelay: delay}
	}

	name := tf.Name
	if name == "" {
		name = tf.ID
	}

	config := tf.Config
	if config == nil {
		config = map[string]interface{}{}
	}

	return &models.TaskDef{
		TaskID:       tf.ID,
		Name:         name,
		OperatorKind: kind,
		Dependencies: tf.Dependencies,
		Config:       config,
		RetryPolicy:  retryPolicy,
	}, nil
}

// parseOperatorKind converts a string to an OperatorKind, accepting a couple
// of common aliases for each kind.
func parseOperatorKind(s string) (models.OperatorKind, error) {
	switch s {
	case "action":
		return models.OperatorKindAction, nil
	case "conditional", "condition":
		return models.OperatorKindConditional, nil
	case "approval", "approve":
		return models.OperatorKindApproval, nil
	case "user_input":
		return models.OperatorKindUserInput, nil
	case "admin_input":
		return models.OperatorKindAdminInput, nil
	case "integration":
		return models.OperatorKindIntegration, nil
	case "terminal", "end":
		return models.OperatorKindTerminal, nil
	case "workflow_start", "start":
		return models.OperatorKindWorkflowStart, nil
	case "entity_validation":
		return models.OperatorKindEntityValidation, nil
	default:
		return "", fmt.Errorf("invalid operator kind: %s", s)
	}
}

// parseWorkflowType converts a string to a WorkflowType, defaulting to
// "process" when unset.
func parseWorkflowType(s string) (models.WorkflowType, error) {
	switch s {
	case "", "process":
		return models.WorkflowTypeProcess, nil
	case "admin":
		return models.WorkflowTypeAdmin, nil
	case "document_processing":
		return models.WorkflowTypeDocumentProcessing, nil
	case "integration":
		return models.WorkflowTypeIntegration, nil
	case "monitoring":
		return models.WorkflowTypeMonitoring, nil
	case "validation":
		return models.WorkflowTypeValidation, nil
	default:
		return "", fmt.Errorf("invalid workflow type: %s", s)
	}
}
