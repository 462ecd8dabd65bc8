package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ci-dashboard/internal/model"
	pkgErrors "ci-dashboard/pkg/errors"
)

// RepoRepository 仓库仓储接口
type RepoRepository interface {
	Ensure(ctx context.Context, name string) error
	ListNames(ctx context.Context) ([]string, error)
}

type repoRepository struct {
	db *gorm.DB
}

// NewRepoRepository 创建仓库仓储实例
func NewRepoRepository(db *gorm.DB) RepoRepository {
	return &repoRepository{db: db}
}

// Ensure 仓库不存在则插入，已存在忽略
func (r *repoRepository) Ensure(ctx context.Context, name string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&model.Repo{Name: name}).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入仓库失败", err)
	}
	return nil
}

// ListNames 所有已知仓库
func (r *repoRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Repo{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询仓库列表失败", err)
	}
	return names, nil
}
