package model

const WorkflowTableName = "workflows"

// Workflow 工作流定义
type Workflow struct {
	BaseModel
	Name string `gorm:"column:name;size:255;not null;uniqueIndex:uk_workflow_name_repo,priority:1" json:"name"`
	URL  string `gorm:"column:url;size:512" json:"url"`
	Repo string `gorm:"column:repo;size:255;not null;uniqueIndex:uk_workflow_name_repo,priority:2" json:"repo"`
}

// TableName 指定表名
func (Workflow) TableName() string {
	return WorkflowTableName
}
