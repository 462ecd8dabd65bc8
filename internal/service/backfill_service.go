package service

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/pkg/git/api"
	"ci-dashboard/internal/pkg/metrics"
)

// BackfillService 从 GitHub 拉取历史数据并走入库流程
type BackfillService interface {
	// Run 回填所有配置的仓库，单个仓库失败不影响其他仓库
	Run(ctx context.Context) (*dto.BackfillResult, error)
	// BackfillRepo 回填单个仓库
	BackfillRepo(ctx context.Context, repo string) (*dto.BackfillRepoResult, error)
}

type backfillService struct {
	provider  api.ActionsProvider
	reconcile ReconcileService
	cfg       *config.BackfillConfig
	repos     []string
	logger    *zap.Logger
	now       func() time.Time
}

// NewBackfillService 创建回填服务
func NewBackfillService(provider api.ActionsProvider, reconcile ReconcileService, cfg *config.BackfillConfig, repos []string, logger *zap.Logger) BackfillService {
	return &backfillService{
		provider:  provider,
		reconcile: reconcile,
		cfg:       cfg,
		repos:     lo.Uniq(repos),
		logger:    logger.Named("backfill"),
		now:       time.Now,
	}
}

// Run 并发回填，并发度由 backfill.concurrency 控制
func (s *backfillService) Run(ctx context.Context) (*dto.BackfillResult, error) {
	log := s.logger.Sugar()
	log.Infof("开始回填 %d 个仓库", len(s.repos))

	var (
		mu     sync.Mutex
		result = &dto.BackfillResult{Repos: make([]*dto.BackfillRepoResult, 0, len(s.repos))}
	)

	g := new(errgroup.Group)
	if s.cfg.Concurrency > 0 {
		g.SetLimit(s.cfg.Concurrency)
	}

	for _, repo := range s.repos {
		g.Go(func() error {
			repoResult, err := s.BackfillRepo(ctx, repo)
			if err != nil {
				repoResult.Error = err.Error()
			}
			mu.Lock()
			result.Repos = append(result.Repos, repoResult)
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	if err != nil {
		log.Errorf("回填完成，存在失败的仓库: %v", err)
	} else {
		log.Info("回填完成")
	}
	return result, err
}

// BackfillRepo 分支 -> 工作流 -> 提交 -> 运行，顺序保证运行入库时外键尽量可解析
func (s *backfillService) BackfillRepo(ctx context.Context, repo string) (*dto.BackfillRepoResult, error) {
	result := &dto.BackfillRepoResult{Repo: repo}
	log := s.logger.With(zap.String("repo", repo))

	if err := s.backfillRepo(ctx, repo, result); err != nil {
		metrics.IncBackfill(metrics.ResultFailed)
		log.Error("仓库回填失败", zap.Error(err))
		return result, err
	}

	metrics.IncBackfill(metrics.ResultStored)
	log.Info("仓库回填完成",
		zap.Int("branches", result.Branches),
		zap.Int("workflows", result.Workflows),
		zap.Int("commits", result.Commits),
		zap.Int("runs", result.Runs),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

func (s *backfillService) backfillRepo(ctx context.Context, repo string, result *dto.BackfillRepoResult) error {
	since := s.now().AddDate(0, 0, -s.lookbackDays())

	branches, err := s.provider.ListBranches(ctx, repo)
	if err != nil {
		return err
	}
	for _, b := range branches {
		if err := s.reconcile.RecordBranch(ctx, &dto.BranchEvent{RefName: b.Name, Repo: repo}); err != nil {
			return err
		}
		result.Branches++
	}

	workflows, err := s.provider.ListWorkflows(ctx, repo)
	if err != nil {
		return err
	}
	ingested, err := s.reconcile.RecordWorkflows(ctx, &dto.WorkflowsEvent{
		Repo: repo,
		Workflows: lo.Map(workflows, func(w api.WorkflowInfo, _ int) dto.WorkflowRecord {
			return dto.WorkflowRecord{Name: w.Name, URL: w.HTMLURL}
		}),
	})
	if err != nil {
		return err
	}
	result.Workflows = ingested.Stored
	result.Dropped += ingested.Dropped

	commits, err := s.provider.ListCommits(ctx, repo, since, s.cfg.MaxPages)
	if err != nil {
		return err
	}
	ingested, err = s.reconcile.RecordCommits(ctx, &dto.PushEvent{
		Repo: repo,
		Commits: lo.Map(commits, func(c api.CommitInfo, _ int) dto.CommitRecord {
			return dto.CommitRecord{Hash: c.SHA, Author: c.Author, Message: c.Message, Time: c.Date.Unix()}
		}),
	})
	if err != nil {
		return err
	}
	result.Commits = ingested.Stored
	result.Dropped += ingested.Dropped

	runs, err := s.provider.ListWorkflowRuns(ctx, repo, since, s.cfg.MaxPages)
	if err != nil {
		return err
	}
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.backfillRun(ctx, repo, &runs[i], result); err != nil {
			return err
		}
	}
	return nil
}

func (s *backfillService) backfillRun(ctx context.Context, repo string, run *api.WorkflowRunInfo, result *dto.BackfillRepoResult) error {
	event := &dto.WorkflowRunEvent{
		GitID:        run.ID,
		Repo:         repo,
		Status:       run.Status,
		Conclusion:   run.Conclusion,
		CreatedAt:    run.CreatedAt,
		RunStartedAt: run.RunStartedAt,
		UpdatedAt:    run.UpdatedAt,
		BranchName:   run.HeadBranch,
		CommitHash:   run.HeadSHA,
		WorkflowName: run.Name,
		Author:       run.Actor,
		URL:          run.HTMLURL,
	}

	if s.cfg.FetchTiming {
		timing, err := s.provider.GetRunTiming(ctx, repo, run.ID)
		if err != nil {
			// 计时接口失败时退回 endtime - starttime
			s.logger.Warn("获取运行计时失败", zap.Int64("gitid", run.ID), zap.Error(err))
		} else if timing.RunDurationMs > 0 {
			duration := timing.RunDurationMs
			event.RunDurationMs = &duration
		}
	}

	var firstJob *api.JobInfo
	if s.cfg.FetchJobs {
		jobs, err := s.provider.ListRunJobs(ctx, repo, run.ID)
		if err != nil {
			s.logger.Warn("获取运行 job 失败", zap.Int64("gitid", run.ID), zap.Error(err))
		} else {
			firstJob = earliestJob(jobs)
			result.Jobs += len(jobs)
		}
		if firstJob != nil {
			event.RunnerLabels = firstJob.Labels
		}
	}

	if err := s.reconcile.RecordWorkflowRun(ctx, event); err != nil {
		return err
	}
	result.Runs++

	if firstJob != nil && firstJob.StartedAt != nil {
		return s.reconcile.RecordQueueStart(ctx, &dto.QueueStartEvent{
			RunID:     run.ID,
			StartedAt: firstJob.StartedAt,
		})
	}
	return nil
}

func (s *backfillService) lookbackDays() int {
	if s.cfg.LookbackDays <= 0 {
		return 7
	}
	return s.cfg.LookbackDays
}

// earliestJob 最早开始执行的 job，均未开始时取第一个
func earliestJob(jobs []api.JobInfo) *api.JobInfo {
	if len(jobs) == 0 {
		return nil
	}
	started := lo.Filter(jobs, func(j api.JobInfo, _ int) bool { return j.StartedAt != nil })
	if len(started) == 0 {
		return &jobs[0]
	}
	first := lo.MinBy(started, func(a, b api.JobInfo) bool { return a.StartedAt.Before(*b.StartedAt) })
	return &first
}
