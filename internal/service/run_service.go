package service

import (
	"context"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/model"
	"ci-dashboard/internal/repository"
)

// RunService 运行记录查询
type RunService interface {
	List(ctx context.Context, query *dto.RunListQuery) ([]*model.WorkflowRun, int64, error)
	GetByGitID(ctx context.Context, gitID int64) (*model.WorkflowRun, error)
}

type runService struct {
	repo repository.WorkflowRunRepository
}

// NewRunService 创建运行记录查询服务
func NewRunService(repo repository.WorkflowRunRepository) RunService {
	return &runService{repo: repo}
}

// List 分页查询，按创建时间倒序
func (s *runService) List(ctx context.Context, query *dto.RunListQuery) ([]*model.WorkflowRun, int64, error) {
	return s.repo.List(ctx, query.GetOffset(), query.GetPageSize(),
		repository.WithRepo(query.Repo),
		repository.WithBranch(query.Branch),
		repository.WithWorkflowName(query.Workflow),
		repository.WithStatus(query.Status),
		repository.WithConclusion(query.Conclusion),
	)
}

// GetByGitID 按 gitid 查询
func (s *runService) GetByGitID(ctx context.Context, gitID int64) (*model.WorkflowRun, error) {
	return s.repo.FindByGitID(ctx, gitID)
}
