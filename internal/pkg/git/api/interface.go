package api

import (
	"context"
	"time"
)

// ActionsProvider CI 平台数据源，回填任务通过它拉取历史数据
type ActionsProvider interface {
	// ListBranches 获取仓库全部分支
	ListBranches(ctx context.Context, repo string) ([]BranchInfo, error)

	// ListWorkflows 获取仓库的工作流定义
	ListWorkflows(ctx context.Context, repo string) ([]WorkflowInfo, error)

	// ListCommits 获取 since 之后的提交，最多 maxPages 页
	ListCommits(ctx context.Context, repo string, since time.Time, maxPages int) ([]CommitInfo, error)

	// ListWorkflowRuns 获取 since 之后创建的运行，最多 maxPages 页
	ListWorkflowRuns(ctx context.Context, repo string, since time.Time, maxPages int) ([]WorkflowRunInfo, error)

	// GetRunTiming 获取运行的计费时长
	GetRunTiming(ctx context.Context, repo string, runID int64) (*RunTiming, error)

	// ListRunJobs 获取运行下的 job
	ListRunJobs(ctx context.Context, repo string, runID int64) ([]JobInfo, error)

	// GetPlatformType 获取平台类型
	GetPlatformType() PlatformType
}
