package model

const RepoTableName = "repos"

// Repo 代码仓库，所有表的分区键，格式 owner/name
type Repo struct {
	BaseModel
	Name string `gorm:"column:name;size:255;not null;uniqueIndex:uk_repo_name" json:"name"`
}

// TableName 指定表名
func (Repo) TableName() string {
	return RepoTableName
}
