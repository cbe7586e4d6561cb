package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
	"gorm.io/gorm"
)

type instanceRepository struct {
	db           *gorm.DB
	stateManager *state.Manager
}

// NewInstanceRepository creates a new instance repository. stateManager is
// stored but no repository method reads it; Save publishes no events and
// never rejects a legal domain transition, only a stale version.
func NewInstanceRepository(db *gorm.DB, stateManager *state.Manager) InstanceRepository {
	return &instanceRepository{db: db, stateManager: stateManager}
}

func (r *instanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	model, err := FromInstance(instance)
	if err != nil {
		return fmt.Errorf("failed to convert instance to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}

	return nil
}

func (r *instanceRepository) Load(ctx context.Context, instanceID string) (*models.Instance, error) {
	var model InstanceModel
	err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, instanceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load instance: %w", err)
	}

	return model.ToInstance(), nil
}

// Save writes the instance back with a precondition on the version it was
// loaded at (version+1 guarded by a WHERE on the old version). On success,
// Version and UpdatedAt are advanced in the caller's copy.
func (r *instanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	model, err := FromInstance(instance)
	if err != nil {
		return fmt.Errorf("failed to convert instance to model: %w", err)
	}

	now := time.Now().UTC()
	expectedVersion := instance.Version

	result := r.db.WithContext(ctx).
		Model(&InstanceModel{}).
		Where("instance_id = ? AND version = ?", instance.InstanceID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           model.Status,
			"terminal_status":  model.TerminalStatus,
			"terminal_message": model.TerminalMessage,
			"context":          model.Context,
			"task_states":      model.TaskStates,
			"completed_tasks":  model.CompletedTasks,
			"failed_tasks":     model.FailedTasks,
			"current_task":     model.CurrentTask,
			"assignment":       model.Assignment,
			"started_at":       model.StartedAt,
			"completed_at":     model.CompletedAt,
			"updated_at":       now,
			"version":          gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to save instance: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return state.ErrOptimisticLock
	}

	instance.Version++
	instance.UpdatedAt = now

	return nil
}

func (r *instanceRepository) List(ctx context.Context, filters InstanceFilters) ([]*models.Instance, error) {
	query := r.db.WithContext(ctx).Model(&InstanceModel{})

	if filters.DAGID != "" {
		query = query.Where("dag_id = ?", filters.DAGID)
	}
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", string(*filters.Status))
	}
	if filters.After != nil {
		query = query.Where("created_at > ?", *filters.After)
	}
	if filters.Before != nil {
		query = query.Where("created_at < ?", *filters.Before)
	}

	query = query.Order("created_at DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var modelList []InstanceModel
	if err := query.Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	instances := make([]*models.Instance, len(modelList))
	for i, m := range modelList {
		instances[i] = m.ToInstance()
	}

	return instances, nil
}
