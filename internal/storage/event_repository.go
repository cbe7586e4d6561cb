package storage

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, event *models.Event) error {
	model := FromEvent(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *eventRepository) Query(ctx context.Context, filters EventFilters) ([]*models.Event, error) {
	query := r.db.WithContext(ctx).Model(&EventModel{})

	if filters.WorkflowID != "" {
		query = query.Where("workflow_id = ?", filters.WorkflowID)
	}
	if filters.InstanceID != "" {
		query = query.Where("instance_id = ?", filters.InstanceID)
	}
	if filters.EventType != nil {
		query = query.Where("event_type = ?", string(*filters.EventType))
	}
	if filters.After != nil {
		query = query.Where("timestamp > ?", *filters.After)
	}
	if filters.Before != nil {
		query = query.Where("timestamp < ?", *filters.Before)
	}

	query = query.Order("timestamp DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var modelList []EventModel
	if err := query.Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]*models.Event, len(modelList))
	for i, m := range modelList {
		events[i] = m.ToEvent()
	}

	return events, nil
}

func (r *eventRepository) MarkTriggered(ctx context.Context, eventID, instanceID string) error {
	var model EventModel
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ?", eventID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
		}
		return fmt.Errorf("failed to load event for triggered-instance update: %w", err)
	}

	triggered := append([]string(model.TriggeredInstances), instanceID)

	if err := r.db.WithContext(ctx).Model(&EventModel{}).
		Where("event_id = ?", eventID).
		Update("triggered_instances", StringArray(triggered)).Error; err != nil {
		return fmt.Errorf("failed to update triggered instances: %w", err)
	}

	return nil
}
