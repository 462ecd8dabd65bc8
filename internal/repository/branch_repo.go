package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ci-dashboard/internal/model"
	pkgErrors "ci-dashboard/pkg/errors"
)

// BranchRepository 分支仓储接口
type BranchRepository interface {
	Upsert(ctx context.Context, branch *model.Branch) (int64, error)
	FindByName(ctx context.Context, repo, name string) (*model.Branch, error)
	ListByRepo(ctx context.Context, repo string) ([]*model.Branch, error)
}

type branchRepository struct {
	db *gorm.DB
}

// NewBranchRepository 创建分支仓储实例
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

// Upsert 按 (name, repo) 写入并返回主键
// author 为空时保留已有值
func (r *branchRepository) Upsert(ctx context.Context, branch *model.Branch) (int64, error) {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "repo"}},
		DoNothing: true,
	}
	if branch.Author != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}, {Name: "repo"}},
			DoUpdates: clause.AssignmentColumns([]string{"author", "updated_at"}),
		}
	}

	if err := r.db.WithContext(ctx).Clauses(onConflict).Create(branch).Error; err != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入分支失败", err)
	}

	// 冲突时驱动不一定回填主键，重新查询
	stored, err := r.FindByName(ctx, branch.Repo, branch.Name)
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// FindByName 按名称查询分支
func (r *branchRepository) FindByName(ctx context.Context, repo, name string) (*model.Branch, error) {
	var branch model.Branch
	err := r.db.WithContext(ctx).Where("name = ? AND repo = ?", name, repo).First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询分支失败", err)
	}
	return &branch, nil
}

// ListByRepo 仓库下所有分支
func (r *branchRepository) ListByRepo(ctx context.Context, repo string) ([]*model.Branch, error) {
	var branches []*model.Branch
	if err := r.db.WithContext(ctx).Where("repo = ?", repo).Order("name").Find(&branches).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询分支列表失败", err)
	}
	return branches, nil
}
