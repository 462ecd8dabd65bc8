package model

const CommitTableName = "commits"

// Commit 提交
type Commit struct {
	BaseModel
	Hash    string `gorm:"column:hash;size:64;not null;uniqueIndex:uk_commit_hash_repo,priority:1" json:"hash"`
	Author  string `gorm:"column:author;size:255" json:"author"`
	Message string `gorm:"column:message;type:text" json:"message"`
	Time    int64  `gorm:"column:time;not null;default:0" json:"time"` // Unix 秒，author date
	Repo    string `gorm:"column:repo;size:255;not null;uniqueIndex:uk_commit_hash_repo,priority:2" json:"repo"`
}

// TableName 指定表名
func (Commit) TableName() string {
	return CommitTableName
}
