package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ci-dashboard/internal/model"
	pkgErrors "ci-dashboard/pkg/errors"
)

// WorkflowRepository 工作流仓储接口
type WorkflowRepository interface {
	Upsert(ctx context.Context, workflow *model.Workflow) error
	FindByName(ctx context.Context, repo, name string) (*model.Workflow, error)
	ListByRepo(ctx context.Context, repo string) ([]*model.Workflow, error)
	Count(ctx context.Context, repo string) (int64, error)
}

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository 创建工作流仓储实例
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

// Upsert 按 (name, repo) 写入，冲突时更新 url
func (r *workflowRepository) Upsert(ctx context.Context, workflow *model.Workflow) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "repo"}},
			DoUpdates: clause.AssignmentColumns([]string{"url", "updated_at"}),
		}).
		Create(workflow).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入工作流失败", err)
	}
	return nil
}

// FindByName 按名称查询工作流
func (r *workflowRepository) FindByName(ctx context.Context, repo, name string) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).Where("name = ? AND repo = ?", name, repo).First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作流失败", err)
	}
	return &workflow, nil
}

// ListByRepo 仓库下所有工作流
func (r *workflowRepository) ListByRepo(ctx context.Context, repo string) ([]*model.Workflow, error) {
	var workflows []*model.Workflow
	if err := r.db.WithContext(ctx).Where("repo = ?", repo).Order("name").Find(&workflows).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作流列表失败", err)
	}
	return workflows, nil
}

// Count 工作流数
func (r *workflowRepository) Count(ctx context.Context, repo string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Workflow{}).Where("repo = ?", repo).Count(&total).Error; err != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计工作流失败", err)
	}
	return total, nil
}
