package repository

import "gorm.io/gorm"

// Repositories 仓储集合，服务层按需取用
type Repositories struct {
	Repo        RepoRepository
	Branch      BranchRepository
	Commit      CommitRepository
	Workflow    WorkflowRepository
	WorkflowRun WorkflowRunRepository
}

// NewRepositories 基于同一连接创建全部仓储
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Repo:        NewRepoRepository(db),
		Branch:      NewBranchRepository(db),
		Commit:      NewCommitRepository(db),
		Workflow:    NewWorkflowRepository(db),
		WorkflowRun: NewWorkflowRunRepository(db),
	}
}
