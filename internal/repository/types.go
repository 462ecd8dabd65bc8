package repository

import "gorm.io/gorm"

// QueryOption 查询条件，按需组合
type QueryOption func(*gorm.DB) *gorm.DB

// WithRepo 仓库分区
func WithRepo(repo string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("repo = ?", repo)
	}
}

// WithCreatedBetween 运行创建时间落在 [since, until]（Unix 秒，含两端）
// 时钟偏差导致 createtime 晚于 until 的运行不计入
func WithCreatedBetween(since, until int64) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("createtime IS NOT NULL AND createtime >= ? AND createtime <= ?", since, until)
	}
}

// WithBranch 按分支名过滤，空串不过滤
func WithBranch(branch string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if branch == "" {
			return db
		}
		return db.Where("archivedbranchname = ?", branch)
	}
}

// WithWorkflowName 按工作流名过滤，空串不过滤
func WithWorkflowName(name string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if name == "" {
			return db
		}
		return db.Where("archivedworkflowname = ?", name)
	}
}

// WithStatus 按状态过滤，空串不过滤
func WithStatus(status string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}
}

// WithConclusion 按结论过滤，空串不过滤
func WithConclusion(conclusion string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if conclusion == "" {
			return db
		}
		return db.Where("conclusion = ?", conclusion)
	}
}

func applyOptions(db *gorm.DB, opts []QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}
