package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/model"
	"ci-dashboard/internal/pkg/metrics"
	"ci-dashboard/internal/repository"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

// 事件类型，用于日志与指标
const (
	kindBranch      = "branch"
	kindCommit      = "commit"
	kindWorkflow    = "workflow"
	kindWorkflowRun = "workflow_run"
	kindQueueStart  = "queue_start"
)

const branchRefPrefix = "refs/heads/"

// ReconcileService 事件入库服务
//
// 所有写入按唯一键 upsert，重复投递与乱序到达都收敛为同一行。
// 不完整的事件记录告警后丢弃并返回 nil；存储失败返回 CodeDatabaseError，由调用方决定是否重试。
type ReconcileService interface {
	RecordBranch(ctx context.Context, event *dto.BranchEvent) error
	RecordCommits(ctx context.Context, event *dto.PushEvent) (*dto.IngestResult, error)
	RecordWorkflowRun(ctx context.Context, event *dto.WorkflowRunEvent) error
	RecordQueueStart(ctx context.Context, event *dto.QueueStartEvent) error
	RecordWorkflows(ctx context.Context, event *dto.WorkflowsEvent) (*dto.IngestResult, error)
	ReconcileLinks(ctx context.Context, repo string) (int64, error)
	ReconcileAll(ctx context.Context) (int64, error)
}

type reconcileService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewReconcileService 创建事件入库服务
func NewReconcileService(repos *repository.Repositories, logger *zap.Logger) ReconcileService {
	return &reconcileService{
		repos:  repos,
		logger: logger.Named("reconcile"),
	}
}

// RecordBranch 记录分支
func (s *reconcileService) RecordBranch(ctx context.Context, event *dto.BranchEvent) error {
	if err := utils.ValidateStruct(event); err != nil {
		s.drop(kindBranch, err, zap.String("ref", event.RefName))
		return nil
	}

	name := strings.TrimPrefix(event.RefName, branchRefPrefix)
	if name == "" {
		s.drop(kindBranch, errors.New("empty branch name"), zap.String("ref", event.RefName))
		return nil
	}

	if err := s.repos.Repo.Ensure(ctx, event.Repo); err != nil {
		return s.fail(kindBranch, err)
	}
	if _, err := s.repos.Branch.Upsert(ctx, &model.Branch{Name: name, Repo: event.Repo, Author: event.Author}); err != nil {
		return s.fail(kindBranch, err)
	}

	metrics.IncIngest(kindBranch, metrics.ResultStored)
	s.logger.Debug("分支已记录", zap.String("repo", event.Repo), zap.String("branch", name))
	return nil
}

// RecordCommits 逐条记录提交，单条不完整不影响其他提交
func (s *reconcileService) RecordCommits(ctx context.Context, event *dto.PushEvent) (*dto.IngestResult, error) {
	result := &dto.IngestResult{}
	if err := utils.ValidateStruct(event); err != nil {
		s.drop(kindCommit, err)
		result.Dropped = len(event.Commits)
		return result, nil
	}

	if err := s.repos.Repo.Ensure(ctx, event.Repo); err != nil {
		return result, s.fail(kindCommit, err)
	}

	for i := range event.Commits {
		c := &event.Commits[i]
		if err := utils.ValidateStruct(c); err != nil {
			s.drop(kindCommit, err, zap.String("repo", event.Repo), zap.String("hash", c.Hash))
			result.Dropped++
			continue
		}

		commit := &model.Commit{
			Hash:    c.Hash,
			Author:  c.Author,
			Message: c.Message,
			Time:    c.Time,
			Repo:    event.Repo,
		}
		if err := s.repos.Commit.Upsert(ctx, commit); err != nil {
			return result, s.fail(kindCommit, err)
		}
		metrics.IncIngest(kindCommit, metrics.ResultStored)
		result.Stored++
	}

	// 先到的运行记录在这里补上 commitid
	if result.Stored > 0 {
		if _, err := s.ReconcileLinks(ctx, event.Repo); err != nil {
			return result, err
		}
	}

	s.logger.Info("提交已记录",
		zap.String("repo", event.Repo),
		zap.Int("stored", result.Stored),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

// RecordWorkflowRun 记录一次工作流运行，按 gitid 覆盖写入
func (s *reconcileService) RecordWorkflowRun(ctx context.Context, event *dto.WorkflowRunEvent) error {
	log := s.logger.With(zap.Int64("gitid", event.GitID), zap.String("repo", event.Repo))

	if err := utils.ValidateStruct(event); err != nil {
		s.drop(kindWorkflowRun, err, zap.Int64("gitid", event.GitID))
		return nil
	}

	created := event.CreatedAt.Unix()
	started := event.RunStartedAt.Unix()
	updated := event.UpdatedAt.Unix()
	status := strings.ToLower(event.Status)
	branchName := strings.TrimPrefix(event.BranchName, branchRefPrefix)

	run := &model.WorkflowRun{
		GitID:                event.GitID,
		Author:               event.Author,
		CreateTime:           &created,
		StartTime:            &started,
		EndTime:              &updated,
		Runtime:              deriveRuntime(event.RunDurationMs, started, updated),
		QueueTime:            deriveQueueTime(status, created, started, updated),
		Status:               status,
		Conclusion:           normalizeConclusion(status, event.Conclusion),
		URL:                  event.URL,
		ArchivedBranchName:   branchName,
		ArchivedCommitHash:   event.CommitHash,
		ArchivedWorkflowName: event.WorkflowName,
		Repo:                 event.Repo,
	}

	withRunner := event.OS != "" || len(event.RunnerLabels) > 0
	if withRunner {
		run.OS, run.RunnerType = RunnerFromLabels(event.RunnerLabels)
		if os := NormalizeOS(event.OS); os != "" {
			run.OS = os
		}
		run.Labels = model.NewLabels(event.RunnerLabels)
	}

	if err := s.repos.Repo.Ensure(ctx, event.Repo); err != nil {
		return s.fail(kindWorkflowRun, err)
	}

	if branchName != "" {
		branchID, err := s.repos.Branch.Upsert(ctx, &model.Branch{Name: branchName, Repo: event.Repo})
		if err != nil {
			return s.fail(kindWorkflowRun, err)
		}
		run.BranchID = &branchID
	}

	// 提交和工作流可能尚未入库，外键留空，archived 字段保留关联
	if event.CommitHash != "" {
		commit, err := s.repos.Commit.FindByHash(ctx, event.Repo, event.CommitHash)
		switch {
		case err == nil:
			run.CommitID = &commit.ID
		case !errors.Is(err, pkgErrors.ErrRecordNotFound):
			return s.fail(kindWorkflowRun, err)
		}
	}
	if event.WorkflowName != "" {
		workflow, err := s.repos.Workflow.FindByName(ctx, event.Repo, event.WorkflowName)
		switch {
		case err == nil:
			run.WorkflowID = &workflow.ID
		case !errors.Is(err, pkgErrors.ErrRecordNotFound):
			return s.fail(kindWorkflowRun, err)
		}
	}

	if err := s.repos.WorkflowRun.Upsert(ctx, run, withRunner); err != nil {
		return s.fail(kindWorkflowRun, err)
	}

	metrics.IncIngest(kindWorkflowRun, metrics.ResultStored)
	log.Debug("工作流运行已记录",
		zap.String("status", run.Status),
		zap.String("conclusion", run.ConclusionValue()),
		zap.Float64("runtime", run.Runtime),
		zap.Float64("queuetime", run.QueueTime),
		zap.Bool("commit_linked", run.CommitID != nil),
		zap.Bool("workflow_linked", run.WorkflowID != nil))
	return nil
}

// RecordQueueStart job 开始执行时修正排队时长
// 只在 queuetime 仍为默认值时生效；携带标签时同时更新运行器维度
func (s *reconcileService) RecordQueueStart(ctx context.Context, event *dto.QueueStartEvent) error {
	if err := utils.ValidateStruct(event); err != nil {
		s.drop(kindQueueStart, err, zap.Int64("run_id", event.RunID))
		return nil
	}
	if event.StartedAt == nil && len(event.Labels) == 0 {
		s.drop(kindQueueStart, errors.New("neither started_at nor labels present"), zap.Int64("run_id", event.RunID))
		return nil
	}

	log := s.logger.With(zap.Int64("run_id", event.RunID))

	if event.StartedAt != nil {
		affected, err := s.repos.WorkflowRun.MarkQueueStart(ctx, event.RunID, event.StartedAt.Unix())
		if err != nil {
			return s.fail(kindQueueStart, err)
		}
		if affected == 0 {
			// 运行未知或排队时长已确定
			metrics.IncIngest(kindQueueStart, metrics.ResultSkipped)
			log.Debug("排队时长未更新")
		} else {
			metrics.IncIngest(kindQueueStart, metrics.ResultStored)
			log.Debug("排队时长已更新", zap.Time("started_at", *event.StartedAt))
		}
	}

	if len(event.Labels) > 0 {
		os, runnerType := RunnerFromLabels(event.Labels)
		if _, err := s.repos.WorkflowRun.UpdateRunner(ctx, event.RunID, os, runnerType, event.Labels); err != nil {
			return s.fail(kindQueueStart, err)
		}
	}
	return nil
}

// RecordWorkflows 记录工作流定义并补齐运行外键
func (s *reconcileService) RecordWorkflows(ctx context.Context, event *dto.WorkflowsEvent) (*dto.IngestResult, error) {
	result := &dto.IngestResult{}
	if err := utils.ValidateStruct(event); err != nil {
		s.drop(kindWorkflow, err)
		result.Dropped = len(event.Workflows)
		return result, nil
	}

	if err := s.repos.Repo.Ensure(ctx, event.Repo); err != nil {
		return result, s.fail(kindWorkflow, err)
	}

	for i := range event.Workflows {
		w := &event.Workflows[i]
		if err := utils.ValidateStruct(w); err != nil {
			s.drop(kindWorkflow, err, zap.String("repo", event.Repo))
			result.Dropped++
			continue
		}
		if err := s.repos.Workflow.Upsert(ctx, &model.Workflow{Name: w.Name, URL: w.URL, Repo: event.Repo}); err != nil {
			return result, s.fail(kindWorkflow, err)
		}
		metrics.IncIngest(kindWorkflow, metrics.ResultStored)
		result.Stored++
	}

	if result.Stored > 0 {
		if _, err := s.ReconcileLinks(ctx, event.Repo); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ReconcileLinks 补齐仓库内运行记录为空的外键
func (s *reconcileService) ReconcileLinks(ctx context.Context, repo string) (int64, error) {
	linked, err := s.repos.WorkflowRun.ReconcileLinks(ctx, repo)
	if err != nil {
		return linked, err
	}
	metrics.AddLinksReconciled(linked)
	if linked > 0 {
		s.logger.Info("运行外键已补齐", zap.String("repo", repo), zap.Int64("linked", linked))
	}
	return linked, nil
}

// ReconcileAll 对所有已知仓库执行外键补齐
func (s *reconcileService) ReconcileAll(ctx context.Context) (int64, error) {
	repos, err := s.repos.Repo.ListNames(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, repo := range repos {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		linked, err := s.ReconcileLinks(ctx, repo)
		if err != nil {
			return total, err
		}
		total += linked
	}
	return total, nil
}

// drop 丢弃不完整事件
func (s *reconcileService) drop(kind string, err error, fields ...zap.Field) {
	metrics.IncIngest(kind, metrics.ResultDropped)
	fields = append(fields, zap.String("kind", kind), zap.String("reason", utils.FormatValidationError(err)))
	s.logger.Warn("事件不完整，已丢弃", fields...)
}

// fail 存储失败，原样返回给调用方
func (s *reconcileService) fail(kind string, err error) error {
	metrics.IncIngest(kind, metrics.ResultFailed)
	s.logger.Error("事件入库失败", zap.String("kind", kind), zap.Error(err))
	return err
}

// deriveRuntime 上游报告了执行时长（毫秒）时以其为准，否则 endtime - starttime
func deriveRuntime(durationMs *int64, started, ended int64) float64 {
	if durationMs != nil && *durationMs >= 0 {
		return float64(*durationMs) / 1000
	}
	return clampSeconds(ended - started)
}

// deriveQueueTime 排队中为已等待时长，否则为实际等待时长
func deriveQueueTime(status string, created, started, updated int64) float64 {
	if status == constants.RunStatusQueued {
		return clampSeconds(updated - created)
	}
	return clampSeconds(started - created)
}

// normalizeConclusion 空串视为无结论；排队中的运行不允许有结论
func normalizeConclusion(status string, conclusion *string) *string {
	if status == constants.RunStatusQueued || conclusion == nil {
		return nil
	}
	c := strings.ToLower(strings.TrimSpace(*conclusion))
	if c == "" {
		return nil
	}
	return &c
}

func clampSeconds(delta int64) float64 {
	if delta < 0 {
		return 0
	}
	return float64(delta)
}
