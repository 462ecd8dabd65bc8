package api

import "time"

// PlatformType 平台类型
type PlatformType string

const (
	PlatformGitHub PlatformType = "github"
)

// BranchInfo 分支信息
type BranchInfo struct {
	Name      string `json:"name"`
	CommitSHA string `json:"commit_sha"`
}

// WorkflowInfo 工作流定义
type WorkflowInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// CommitInfo 提交信息
type CommitInfo struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// WorkflowRunInfo 工作流运行
type WorkflowRunInfo struct {
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
	Actor        string     `json:"actor"`
}

// RunTiming 运行计时
type RunTiming struct {
	RunDurationMs int64 `json:"run_duration_ms"`
}

// JobInfo 运行下的 job
type JobInfo struct {
	ID          int64      `json:"id"`
	RunID       int64      `json:"run_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Conclusion  *string    `json:"conclusion"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Labels      []string   `json:"labels"`
	RunnerName  string     `json:"runner_name"`
}

// ProviderConfig 通用平台配置
type ProviderConfig struct {
	BaseURL string        // 平台基础URL
	Token   string        // 访问Token
	Timeout time.Duration // 单次请求超时
}
