package model

import "gorm.io/datatypes"

const WorkflowRunTableName = "workflowruns"

// WorkflowRun 工作流运行记录，gitid 为幂等键
//
// branch/commitid/workflow 外键在目标行尚未入库时为空，
// archived* 字段始终保留名称与哈希，聚合查询按它们分组。
type WorkflowRun struct {
	BaseModel
	GitID      int64  `gorm:"column:gitid;not null;uniqueIndex:uk_run_gitid" json:"gitid"`
	BranchID   *int64 `gorm:"column:branch" json:"branch,omitempty"`
	CommitID   *int64 `gorm:"column:commitid" json:"commitid,omitempty"`
	WorkflowID *int64 `gorm:"column:workflow" json:"workflow,omitempty"`
	Author     string `gorm:"column:author;size:255" json:"author"`

	// 时间字段均为 Unix 秒
	CreateTime *int64  `gorm:"column:createtime;index:idx_run_repo_createtime,priority:2" json:"createtime,omitempty"`
	StartTime  *int64  `gorm:"column:starttime" json:"starttime,omitempty"`
	EndTime    *int64  `gorm:"column:endtime" json:"endtime,omitempty"`
	Runtime    float64 `gorm:"column:runtime;not null" json:"runtime"`     // 秒
	QueueTime  float64 `gorm:"column:queuetime;not null" json:"queuetime"` // 秒，0 表示尚未确定

	Status     string  `gorm:"column:status;size:32;not null;index" json:"status"`
	Conclusion *string `gorm:"column:conclusion;size:32" json:"conclusion"`
	URL        string  `gorm:"column:url;size:512" json:"url"`

	ArchivedBranchName   string `gorm:"column:archivedbranchname;size:255" json:"archivedbranchname"`
	ArchivedCommitHash   string `gorm:"column:archivedcommithash;size:64;index" json:"archivedcommithash"`
	ArchivedWorkflowName string `gorm:"column:archivedworkflowname;size:255" json:"archivedworkflowname"`

	// 运行器维度，来自 workflow_job 标签或回填
	OS         string                      `gorm:"column:os;size:16" json:"os,omitempty"`
	RunnerType string                      `gorm:"column:runnertype;size:128" json:"runnertype,omitempty"`
	Labels     datatypes.JSONSlice[string] `gorm:"column:labels" json:"labels,omitempty"`

	Repo string `gorm:"column:repo;size:255;not null;index:idx_run_repo_createtime,priority:1" json:"repo"`
}

// TableName 指定表名
func (WorkflowRun) TableName() string {
	return WorkflowRunTableName
}

// ConclusionValue 结论，未结束时为空串
func (r *WorkflowRun) ConclusionValue() string {
	if r.Conclusion == nil {
		return ""
	}
	return *r.Conclusion
}

// NewLabels 运行器标签列
func NewLabels(labels []string) datatypes.JSONSlice[string] {
	if len(labels) == 0 {
		return nil
	}
	return datatypes.NewJSONSlice(labels)
}
