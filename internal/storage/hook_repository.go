package storage

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
	"gorm.io/gorm"
)

type hookRepository struct {
	db *gorm.DB
}

// NewHookRepository creates a new hook repository.
func NewHookRepository(db *gorm.DB) HookRepository {
	return &hookRepository{db: db}
}

func (r *hookRepository) Upsert(ctx context.Context, hook *models.Hook) error {
	model := FromHook(hook)

	var existing HookModel
	err := r.db.WithContext(ctx).Where("hook_id = ?", hook.HookID).First(&existing).Error

	switch {
	case err == gorm.ErrRecordNotFound:
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create hook: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to check existing hook: %w", err)
	default:
		model.ID = existing.ID
		if err := r.db.WithContext(ctx).Model(&HookModel{}).Where("hook_id = ?", hook.HookID).Updates(&model).Error; err != nil {
			return fmt.Errorf("failed to update hook: %w", err)
		}
		return nil
	}
}

func (r *hookRepository) Delete(ctx context.Context, hookID string) error {
	if err := r.db.WithContext(ctx).Delete(&HookModel{}, "hook_id = ?", hookID).Error; err != nil {
		return fmt.Errorf("failed to delete hook: %w", err)
	}
	return nil
}

func (r *hookRepository) List(ctx context.Context, filters HookFilters) ([]*models.Hook, error) {
	query := r.db.WithContext(ctx).Model(&HookModel{})

	if filters.ListenerWorkflowID != "" {
		query = query.Where("listener_workflow_id = ?", filters.ListenerWorkflowID)
	}
	if filters.EnabledOnly {
		query = query.Where("enabled = ?", true)
	}

	query = query.Order("priority DESC, hook_id")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var modelList []HookModel
	if err := query.Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list hooks: %w", err)
	}

	hooks := make([]*models.Hook, 0, len(modelList))
	for _, m := range modelList {
		hook, err := m.ToHook()
		if err != nil {
			return nil, fmt.Errorf("failed to convert hook model %s: %w", m.HookID, err)
		}
		hooks = append(hooks, hook)
	}

	return hooks, nil
}
