package dto

import "time"

// BranchEvent 分支创建事件
type BranchEvent struct {
	RefName string `json:"ref_name" binding:"required"` // main 或 refs/heads/main
	Repo    string `json:"repo" binding:"required"`
	Author  string `json:"author"`
}

// PushEvent 推送事件，commits 逐条独立入库
type PushEvent struct {
	Repo    string         `json:"repo" binding:"required"`
	Commits []CommitRecord `json:"commits"`
}

// CommitRecord 单个提交
type CommitRecord struct {
	Hash    string `json:"hash" yaml:"hash" binding:"required,max=64"`
	Author  string `json:"author" yaml:"author"`
	Message string `json:"message" yaml:"message"`
	Time    int64  `json:"time" yaml:"time" binding:"gt=0"` // Unix 秒
}

// WorkflowRunEvent 工作流运行事件
//
// 三个时间戳均为必填；RunDurationMs 为上游报告的权威执行时长（毫秒），
// RunnerLabels 非空时同时更新运行器维度。
type WorkflowRunEvent struct {
	GitID        int64      `json:"gitid" binding:"required,gt=0"`
	Repo         string     `json:"repo" binding:"required"`
	Status       string     `json:"status" binding:"required"`
	Conclusion   *string    `json:"conclusion"`
	CreatedAt    *time.Time `json:"created_at" binding:"required"`
	RunStartedAt *time.Time `json:"run_started_at" binding:"required"`
	UpdatedAt    *time.Time `json:"updated_at" binding:"required"`
	BranchName   string     `json:"branch_name"`
	CommitHash   string     `json:"commit_hash"`
	WorkflowName string     `json:"workflow_name"`
	Author       string     `json:"author"`
	URL          string     `json:"url"`

	RunDurationMs *int64   `json:"run_duration_ms,omitempty"`
	OS            string   `json:"os,omitempty"`
	RunnerLabels  []string `json:"runner_labels,omitempty"`
}

// QueueStartEvent job 从排队进入执行
// StartedAt 为空时仅更新运行器标签（workflow_job queued）
type QueueStartEvent struct {
	RunID     int64      `json:"run_id" binding:"required,gt=0"`
	StartedAt *time.Time `json:"started_at"`
	Labels    []string   `json:"labels,omitempty"`
}

// WorkflowRecord 工作流定义
type WorkflowRecord struct {
	Name string `json:"name" yaml:"name" binding:"required"`
	URL  string `json:"url" yaml:"url"`
}

// WorkflowsEvent 工作流发现（回填）
type WorkflowsEvent struct {
	Repo      string           `json:"repo" binding:"required"`
	Workflows []WorkflowRecord `json:"workflows"`
}

// IngestResult 批量入库结果
type IngestResult struct {
	Stored  int `json:"stored"`
	Dropped int `json:"dropped"`
}
