package operator

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

// entityMapping describes one entity this task creates and validates.
// Config shape: entity_mappings: [{entity_type, input_fields, output_key,
// optional}, ...] where input_fields maps an entity field name to a
// context key to read it from.
type entityMapping struct {
	entityType  string
	inputFields map[string]string
	outputKey   string
	optional    bool
}

// EntityValidationOperator creates and validates a list of entities via the
// external entity service, aggregating their individual outcomes into a
// single overall_status a downstream ConditionalOperator can branch on.
type EntityValidationOperator struct {
	service EntityService
}

func (o *EntityValidationOperator) Kind() models.OperatorKind {
	return models.OperatorKindEntityValidation
}

func (o *EntityValidationOperator) Execute(ctx context.Context, in Input) (models.TaskResult, error) {
	if o.service == nil {
		return failed("no entity service configured"), nil
	}

	mappings := parseEntityMappings(in.Config)
	if len(mappings) == 0 {
		return failed("entity_validation task has no entity_mappings configured"), nil
	}

	data := make(map[string]interface{})
	overall := "valid"
	var result *multierror.Error

	for _, m := range mappings {
		fields := make(map[string]interface{}, len(m.inputFields))
		for entityField, contextKey := range m.inputFields {
			fields[entityField] = in.Context[contextKey]
		}

		entity, err := o.service.CreateEntity(ctx, m.entityType, fields)
		if err != nil {
			if m.optional {
				continue
			}
			result = multierror.Append(result, fmt.Errorf("failed to create entity %s: %w", m.entityType, err))
			continue
		}

		status, warnings, errs, err := o.service.ValidateEntity(ctx, m.entityType, entity)
		if err != nil {
			if m.optional {
				continue
			}
			result = multierror.Append(result, fmt.Errorf("failed to validate entity %s: %w", m.entityType, err))
			continue
		}

		data[m.outputKey] = entity
		data[m.outputKey+"_status"] = status
		if len(warnings) > 0 {
			data[m.outputKey+"_warnings"] = warnings
		}
		if len(errs) > 0 {
			data[m.outputKey+"_errors"] = errs
		}

		overall = worseStatus(overall, status)
	}

	// Non-optional entity failures are aggregated across every mapping
	// rather than failing the task on the first one, so the caller sees
	// every entity that actually failed in one FAILED result.
	if err := result.ErrorOrNil(); err != nil {
		return failed("%v", err), nil
	}

	data["overall_status"] = overall
	return completed(data), nil
}

// worseStatus orders severities so the aggregate reflects the worst entity
// outcome: critical_error > has_errors > has_warnings > valid.
func worseStatus(a, b string) string {
	rank := map[string]int{"valid": 0, "has_warnings": 1, "has_errors": 2, "critical_error": 3}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func parseEntityMappings(config map[string]interface{}) []entityMapping {
	raw, _ := config["entity_mappings"].([]interface{})
	mappings := make([]entityMapping, 0, len(raw))

	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}

		entityType, _ := m["entity_type"].(string)
		outputKey, _ := m["output_key"].(string)
		if entityType == "" || outputKey == "" {
			continue
		}

		inputFields := make(map[string]string)
		if rawFields, ok := m["input_fields"].(map[string]interface{}); ok {
			for k, v := range rawFields {
				if s, ok := v.(string); ok {
					inputFields[k] = s
				}
			}
		}

		optional, _ := m["optional"].(bool)

		mappings = append(mappings, entityMapping{
			entityType:  entityType,
			inputFields: inputFields,
			outputKey:   outputKey,
			optional:    optional,
		})
	}

	return mappings
}
