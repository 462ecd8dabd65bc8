package model

const BranchTableName = "branches"

// Branch 分支
type Branch struct {
	BaseModel
	Name   string `gorm:"column:name;size:255;not null;uniqueIndex:uk_branch_name_repo,priority:1" json:"name"`
	Repo   string `gorm:"column:repo;size:255;not null;uniqueIndex:uk_branch_name_repo,priority:2" json:"repo"`
	Author string `gorm:"column:author;size:255" json:"author,omitempty"`
}

// TableName 指定表名
func (Branch) TableName() string {
	return BranchTableName
}
