package dto

import "time"

// GitHub webhook 事件名（X-GitHub-Event）
const (
	GitHubEventPing        = "ping"
	GitHubEventCreate      = "create"
	GitHubEventPush        = "push"
	GitHubEventWorkflowRun = "workflow_run"
	GitHubEventWorkflowJob = "workflow_job"
)

// GitHubRepository 仓库
type GitHubRepository struct {
	FullName string `json:"full_name"`
}

// GitHubUser 用户
type GitHubUser struct {
	Login string `json:"login"`
}

// GitHubCreatePayload create 事件（分支/标签创建）
type GitHubCreatePayload struct {
	Ref        string           `json:"ref"`
	RefType    string           `json:"ref_type"` // branch, tag
	Repository GitHubRepository `json:"repository"`
	Sender     GitHubUser       `json:"sender"`
}

// GitHubPushPayload push 事件
type GitHubPushPayload struct {
	Ref        string             `json:"ref"` // refs/heads/main
	Repository GitHubRepository   `json:"repository"`
	Sender     GitHubUser         `json:"sender"`
	Commits    []GitHubPushCommit `json:"commits"`
}

// GitHubPushCommit push 中的提交
type GitHubPushCommit struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Author    struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"author"`
}

// GitHubWorkflowRunPayload workflow_run 事件
type GitHubWorkflowRunPayload struct {
	Action      string            `json:"action"` // requested, in_progress, completed
	WorkflowRun GitHubWorkflowRun `json:"workflow_run"`
	Workflow    *struct {
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	} `json:"workflow"`
	Repository GitHubRepository `json:"repository"`
}

// GitHubWorkflowRun 运行详情
type GitHubWorkflowRun struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Conclusion   *string    `json:"conclusion"`
	CreatedAt    *time.Time `json:"created_at"`
	RunStartedAt *time.Time `json:"run_started_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	HeadBranch   string     `json:"head_branch"`
	HeadSHA      string     `json:"head_sha"`
	HTMLURL      string     `json:"html_url"`
	Actor        GitHubUser `json:"actor"`
}

// GitHubWorkflowJobPayload workflow_job 事件
type GitHubWorkflowJobPayload struct {
	Action      string            `json:"action"` // queued, in_progress, completed, waiting
	WorkflowJob GitHubWorkflowJob `json:"workflow_job"`
	Repository  GitHubRepository  `json:"repository"`
}

// GitHubWorkflowJob job 详情
type GitHubWorkflowJob struct {
	ID          int64      `json:"id"`
	RunID       int64      `json:"run_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Conclusion  *string    `json:"conclusion"`
	CreatedAt   *time.Time `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Labels      []string   `json:"labels"`
	RunnerName  string     `json:"runner_name"`
}

// WebhookResult webhook 处理结果
type WebhookResult struct {
	Event  string `json:"event"`
	Action string `json:"action,omitempty"`
	Result string `json:"result"` // stored, skipped, dropped
}
