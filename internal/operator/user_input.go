package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// UserInputOperator waits for the instance's owning user to submit a form
// payload via submit_input.
type UserInputOperator struct{}

func (o *UserInputOperator) Kind() models.OperatorKind { return models.OperatorKindUserInput }

func (o *UserInputOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	return executeInputOperator(in, "user_input")
}

func executeInputOperator(in Input, waitingFor string) (models.TaskResult, error) {
	if in.Resume == nil {
		form := formConfigFromConfig(in.Config)
		return waiting(waitingFor, form), nil
	}

	form := formConfigFromConfig(in.Config)
	if violations := form.Validate(in.Resume.Payload); len(violations) > 0 {
		return failed("form validation failed: %v", violations), nil
	}

	return completed(in.Resume.Payload), nil
}

// formConfigFromConfig reads a "form" key holding a []interface{} of field
// descriptors out of a task's declarative config.
func formConfigFromConfig(config map[string]interface{}) *models.FormConfig {
	raw, _ := config["form"].([]interface{})
	fields := make([]models.FormField, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		field := models.FormField{
			Name:        stringField(m, "name"),
			Type:        stringField(m, "type"),
			Required:    boolField(m, "required"),
			Description: stringField(m, "description"),
		}
		if enumRaw, ok := m["enum_values"].([]interface{}); ok {
			for _, e := range enumRaw {
				if s, ok := e.(string); ok {
					field.EnumValues = append(field.EnumValues, s)
				}
			}
		}
		fields = append(fields, field)
	}
	return &models.FormConfig{Fields: fields}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}
