package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/model"
	"ci-dashboard/internal/pkg/metrics"
	"ci-dashboard/internal/repository"
	pkgErrors "ci-dashboard/pkg/errors"
)

// 数据包格式
const (
	BundleFormatJSON = "json"
	BundleFormatYAML = "yaml"
)

// BundleService 数据包导入导出
type BundleService interface {
	Import(ctx context.Context, repo string, bundle *dto.Bundle) (*dto.BundleImportResult, error)
	Export(ctx context.Context, repo string) (*dto.Bundle, error)
}

type bundleService struct {
	reconcile ReconcileService
	repos     *repository.Repositories
	logger    *zap.Logger
}

// NewBundleService 创建数据包服务
func NewBundleService(reconcile ReconcileService, repos *repository.Repositories, logger *zap.Logger) BundleService {
	return &bundleService{
		reconcile: reconcile,
		repos:     repos,
		logger:    logger.Named("bundle"),
	}
}

// Import 导入数据包，repo 为空时使用数据包内的 repo
// 运行记录保留数据包中的 runtime/queuetime，不重新推导
func (s *bundleService) Import(ctx context.Context, repo string, bundle *dto.Bundle) (*dto.BundleImportResult, error) {
	if repo == "" {
		repo = bundle.Repo
	}
	if repo == "" {
		return nil, pkgErrors.InvalidParams("repo is required")
	}

	result := &dto.BundleImportResult{}

	for _, b := range bundle.Branches {
		if err := s.reconcile.RecordBranch(ctx, &dto.BranchEvent{RefName: b.Name, Repo: repo, Author: b.Author}); err != nil {
			return result, err
		}
		result.Branches++
	}

	workflows, err := s.reconcile.RecordWorkflows(ctx, &dto.WorkflowsEvent{Repo: repo, Workflows: bundle.Workflows})
	if err != nil {
		return result, err
	}
	result.Workflows = workflows.Stored
	result.Dropped += workflows.Dropped

	commits, err := s.reconcile.RecordCommits(ctx, &dto.PushEvent{Repo: repo, Commits: bundle.Commits})
	if err != nil {
		return result, err
	}
	result.Commits = commits.Stored
	result.Dropped += commits.Dropped

	for i := range bundle.WorkflowRuns {
		r := &bundle.WorkflowRuns[i]
		if r.GitID <= 0 || r.Status == "" {
			metrics.IncIngest(kindWorkflowRun, metrics.ResultDropped)
			s.logger.Warn("运行记录不完整，已跳过", zap.Int64("gitid", r.GitID))
			result.Dropped++
			continue
		}

		run := bundleRunToModel(repo, r)
		withRunner := run.OS != "" || len(r.Labels) > 0
		if err := s.repos.WorkflowRun.Upsert(ctx, run, withRunner); err != nil {
			return result, err
		}
		metrics.IncIngest(kindWorkflowRun, metrics.ResultStored)
		result.WorkflowRuns++
	}

	// 运行记录统一由补齐流程关联外键
	if _, err := s.reconcile.ReconcileLinks(ctx, repo); err != nil {
		return result, err
	}

	s.logger.Info("数据包已导入",
		zap.String("repo", repo),
		zap.Int("branches", result.Branches),
		zap.Int("commits", result.Commits),
		zap.Int("workflows", result.Workflows),
		zap.Int("workflow_runs", result.WorkflowRuns),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

// Export 导出仓库全部数据
func (s *bundleService) Export(ctx context.Context, repo string) (*dto.Bundle, error) {
	if repo == "" {
		return nil, pkgErrors.InvalidParams("repo is required")
	}

	branches, err := s.repos.Branch.ListByRepo(ctx, repo)
	if err != nil {
		return nil, err
	}
	commits, err := s.repos.Commit.ListByRepo(ctx, repo)
	if err != nil {
		return nil, err
	}
	workflows, err := s.repos.Workflow.ListByRepo(ctx, repo)
	if err != nil {
		return nil, err
	}
	runs, _, err := s.repos.WorkflowRun.List(ctx, 0, 0, repository.WithRepo(repo))
	if err != nil {
		return nil, err
	}

	return &dto.Bundle{
		Repo: repo,
		Branches: lo.Map(branches, func(b *model.Branch, _ int) dto.BundleBranch {
			return dto.BundleBranch{Name: b.Name, Author: b.Author}
		}),
		Commits: lo.Map(commits, func(c *model.Commit, _ int) dto.CommitRecord {
			return dto.CommitRecord{Hash: c.Hash, Author: c.Author, Message: c.Message, Time: c.Time}
		}),
		Workflows: lo.Map(workflows, func(w *model.Workflow, _ int) dto.WorkflowRecord {
			return dto.WorkflowRecord{Name: w.Name, URL: w.URL}
		}),
		WorkflowRuns: lo.Map(runs, func(r *model.WorkflowRun, _ int) dto.BundleRun {
			return dto.BundleRun{
				GitID:        r.GitID,
				BranchName:   r.ArchivedBranchName,
				CommitHash:   r.ArchivedCommitHash,
				WorkflowName: r.ArchivedWorkflowName,
				Author:       r.Author,
				Runtime:      r.Runtime,
				CreateTime:   r.CreateTime,
				StartTime:    r.StartTime,
				EndTime:      r.EndTime,
				QueueTime:    r.QueueTime,
				Status:       r.Status,
				Conclusion:   r.Conclusion,
				URL:          r.URL,
				OS:           r.OS,
				Labels:       []string(r.Labels),
			}
		}),
	}, nil
}

func bundleRunToModel(repo string, r *dto.BundleRun) *model.WorkflowRun {
	status := strings.ToLower(r.Status)
	run := &model.WorkflowRun{
		GitID:                r.GitID,
		Author:               r.Author,
		CreateTime:           r.CreateTime,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		Runtime:              lo.Max([]float64{r.Runtime, 0}),
		QueueTime:            lo.Max([]float64{r.QueueTime, 0}),
		Status:               status,
		Conclusion:           normalizeConclusion(status, r.Conclusion),
		URL:                  r.URL,
		ArchivedBranchName:   strings.TrimPrefix(r.BranchName, branchRefPrefix),
		ArchivedCommitHash:   r.CommitHash,
		ArchivedWorkflowName: r.WorkflowName,
		Repo:                 repo,
	}
	if len(r.Labels) > 0 || r.OS != "" {
		run.OS, run.RunnerType = RunnerFromLabels(r.Labels)
		if os := NormalizeOS(r.OS); os != "" {
			run.OS = os
		}
		run.Labels = model.NewLabels(r.Labels)
	}
	return run
}

// BundleFormat 按文件扩展名判断格式
func BundleFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return BundleFormatJSON, nil
	case ".yaml", ".yml":
		return BundleFormatYAML, nil
	}
	return "", pkgErrors.ErrUnsupportedFormat
}

// DecodeBundle 解析数据包
func DecodeBundle(data []byte, format string) (*dto.Bundle, error) {
	var bundle dto.Bundle
	var err error
	switch format {
	case BundleFormatJSON, "":
		err = json.Unmarshal(data, &bundle)
	case BundleFormatYAML:
		err = yaml.Unmarshal(data, &bundle)
	default:
		return nil, pkgErrors.ErrUnsupportedFormat
	}
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "数据包解析失败", err)
	}
	return &bundle, nil
}

// EncodeBundle 序列化数据包
func EncodeBundle(bundle *dto.Bundle, format string) ([]byte, error) {
	switch format {
	case BundleFormatJSON, "":
		return json.MarshalIndent(bundle, "", "  ")
	case BundleFormatYAML:
		return yaml.Marshal(bundle)
	}
	return nil, pkgErrors.ErrUnsupportedFormat
}
