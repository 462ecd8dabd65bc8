package model

import "time"

// BaseModel 基础模型
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

// AllModels 参与自动迁移的模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		&Repo{},
		&Branch{},
		&Commit{},
		&Workflow{},
		&WorkflowRun{},
	}
}
