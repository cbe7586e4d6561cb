package storage

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
	"gorm.io/gorm"
)

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) UpsertTemplate(ctx context.Context, tmpl *models.Template) error {
	model, err := FromTemplate(tmpl)
	if err != nil {
		return fmt.Errorf("failed to convert template to model: %w", err)
	}

	var existing TemplateModel
	err = r.db.WithContext(ctx).
		Where("dag_id = ? AND version = ?", tmpl.DAGID, tmpl.Version).
		First(&existing).Error

	switch {
	case err == nil:
		return fmt.Errorf("%w: template %s version %s already registered", ErrAlreadyExists, tmpl.DAGID, tmpl.Version)
	case err == gorm.ErrRecordNotFound:
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to check existing template: %w", err)
	}
}

func (r *templateRepository) LoadTemplate(ctx context.Context, dagID, version string) (*models.Template, error) {
	query := r.db.WithContext(ctx).Where("dag_id = ?", dagID)

	var model TemplateModel
	var err error
	if version == "" {
		err = query.Order("created_at DESC").First(&model).Error
	} else {
		err = query.Where("version = ?", version).First(&model).Error
	}

	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: template %s version %s", ErrNotFound, dagID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	return model.ToTemplate()
}

func (r *templateRepository) ListTemplates(ctx context.Context, filters TemplateFilters) ([]*models.Template, error) {
	query := r.db.WithContext(ctx).Model(&TemplateModel{})

	if filters.WorkflowType != "" {
		query = query.Where("workflow_type = ?", filters.WorkflowType)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}

	query = query.Order("dag_id, created_at DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var modelList []TemplateModel
	if err := query.Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make([]*models.Template, 0, len(modelList))
	for _, m := range modelList {
		tmpl, err := m.ToTemplate()
		if err != nil {
			return nil, fmt.Errorf("failed to convert template model %s: %w", m.DAGID, err)
		}
		templates = append(templates, tmpl)
	}

	return templates, nil
}
