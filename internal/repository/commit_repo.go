package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ci-dashboard/internal/model"
	pkgErrors "ci-dashboard/pkg/errors"
)

// CommitRepository 提交仓储接口
type CommitRepository interface {
	Upsert(ctx context.Context, commit *model.Commit) error
	FindByHash(ctx context.Context, repo, hash string) (*model.Commit, error)
	ListByRepo(ctx context.Context, repo string) ([]*model.Commit, error)
	Count(ctx context.Context, repo string) (int64, error)
}

type commitRepository struct {
	db *gorm.DB
}

// NewCommitRepository 创建提交仓储实例
func NewCommitRepository(db *gorm.DB) CommitRepository {
	return &commitRepository{db: db}
}

// Upsert 按 (hash, repo) 写入，冲突时后写覆盖
func (r *commitRepository) Upsert(ctx context.Context, commit *model.Commit) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}, {Name: "repo"}},
			DoUpdates: clause.AssignmentColumns([]string{"author", "message", "time", "updated_at"}),
		}).
		Create(commit).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入提交失败", err)
	}
	return nil
}

// FindByHash 按哈希查询提交
func (r *commitRepository) FindByHash(ctx context.Context, repo, hash string) (*model.Commit, error) {
	var commit model.Commit
	err := r.db.WithContext(ctx).Where("hash = ? AND repo = ?", hash, repo).First(&commit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询提交失败", err)
	}
	return &commit, nil
}

// ListByRepo 仓库下所有提交，按时间倒序
func (r *commitRepository) ListByRepo(ctx context.Context, repo string) ([]*model.Commit, error) {
	var commits []*model.Commit
	if err := r.db.WithContext(ctx).Where("repo = ?", repo).Order("time DESC").Find(&commits).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询提交列表失败", err)
	}
	return commits, nil
}

// Count 提交数
func (r *commitRepository) Count(ctx context.Context, repo string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Commit{}).Where("repo = ?", repo).Count(&total).Error; err != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计提交失败", err)
	}
	return total, nil
}
