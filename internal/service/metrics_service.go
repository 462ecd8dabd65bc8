package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/pkg/metrics"
	"ci-dashboard/internal/repository"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

const dateLayout = "2006-01-02"

// MetricsService 看板聚合查询，只读
type MetricsService interface {
	DailySeries(ctx context.Context, repo string, days int) ([]*dto.DailyPoint, error)
	FailureRate(ctx context.Context, repo string, window time.Duration, branch string) (*dto.FailureRateResult, error)
	RedOnMain(ctx context.Context, repo string) (*dto.RedOnMainResult, error)
	TimeToRedSignal(ctx context.Context, repo string, window time.Duration) (*dto.TimeToRedSignal, error)
	QueueStatus(ctx context.Context, repo string, window time.Duration) ([]*dto.QueueGroup, error)
	WorkflowSummary(ctx context.Context, repo string) ([]*dto.WorkflowSummary, error)
	CommitResultsMatrix(ctx context.Context, repo string, days int, branch string) ([]*dto.MatrixRow, error)
	Stats(ctx context.Context, repo string) (*dto.StatsResult, error)
	Dashboard(ctx context.Context, repo string, days int) (*dto.DashboardResult, error)
}

// MetricsOption 可选项
type MetricsOption func(*metricsService)

// WithClock 替换当前时间来源
func WithClock(now func() time.Time) MetricsOption {
	return func(s *metricsService) {
		s.now = now
	}
}

type metricsService struct {
	repos         *repository.Repositories
	logger        *zap.Logger
	mainBranch    string
	strictPattern string
	location      *time.Location
	now           func() time.Time
}

// NewMetricsService 创建聚合查询服务
func NewMetricsService(repos *repository.Repositories, cfg *config.DashboardConfig, logger *zap.Logger, opts ...MetricsOption) MetricsService {
	s := &metricsService{
		repos:         repos,
		logger:        logger.Named("metrics"),
		mainBranch:    cfg.MainBranch,
		strictPattern: cfg.StrictWorkflowPattern,
		location:      cfg.Location(),
		now:           time.Now,
	}
	if s.mainBranch == "" {
		s.mainBranch = constants.DefaultMainBranch
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DailySeries 每个有运行的日期一条，按日期升序，无运行的日期不补零
func (s *metricsService) DailySeries(ctx context.Context, repo string, days int) ([]*dto.DailyPoint, error) {
	defer metrics.ObserveQuery("daily_series")()
	if err := validateRepoDays(repo, days); err != nil {
		return nil, err
	}

	outcomes, err := s.repos.WorkflowRun.ListOutcomes(ctx,
		repository.WithRepo(repo),
		s.createdWithin(daysToWindow(days)),
	)
	if err != nil {
		return nil, err
	}

	byDate := lo.GroupBy(outcomes, func(o repository.RunOutcome) string {
		return time.Unix(o.CreateTime, 0).In(s.location).Format(dateLayout)
	})

	points := make([]*dto.DailyPoint, 0, len(byDate))
	for date, runs := range byDate {
		point := &dto.DailyPoint{Date: date, Total: int64(len(runs))}
		for _, run := range runs {
			switch conclusionOf(run.Conclusion) {
			case constants.ConclusionSuccess:
				point.SuccessCount++
			case constants.ConclusionFailure:
				point.FailureCount++
			}
		}
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// FailureRate 失败数 / 有结论的运行数 * 100，无运行时为 0
func (s *metricsService) FailureRate(ctx context.Context, repo string, window time.Duration, branch string) (*dto.FailureRateResult, error) {
	defer metrics.ObserveQuery("failure_rate")()
	if err := validateRepoWindow(repo, window); err != nil {
		return nil, err
	}

	counts, err := s.repos.WorkflowRun.CountOutcomes(ctx, "",
		repository.WithRepo(repo),
		s.createdWithin(window),
		repository.WithBranch(branch),
	)
	if err != nil {
		return nil, err
	}

	return &dto.FailureRateResult{
		Rate:     percent(counts.Failures, counts.Total),
		Total:    counts.Total,
		Failures: counts.Failures,
	}, nil
}

// RedOnMain 主干最近 24 小时失败率
// 失败按工作流名是否包含 strict 模式拆为 broken 与 flaky
func (s *metricsService) RedOnMain(ctx context.Context, repo string) (*dto.RedOnMainResult, error) {
	defer metrics.ObserveQuery("red_on_main")()
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	window := constants.DefaultWindowHours * time.Hour
	counts, err := s.repos.WorkflowRun.CountOutcomes(ctx, s.strictPattern,
		repository.WithRepo(repo),
		s.createdWithin(window),
		repository.WithBranch(s.mainBranch),
	)
	if err != nil {
		return nil, err
	}

	flaky := counts.Failures - counts.StrictFailures
	return &dto.RedOnMainResult{
		Branch:      s.mainBranch,
		Rate:        percent(counts.Failures, counts.Total),
		Total:       counts.Total,
		Failures:    counts.Failures,
		Broken:      counts.StrictFailures,
		Flaky:       flaky,
		BrokenRate:  percent(counts.StrictFailures, counts.Total),
		FlakyRate:   percent(flaky, counts.Total),
		WindowHours: constants.DefaultWindowHours,
	}, nil
}

// TimeToRedSignal 失败运行从创建到结束的耗时分布，无失败时全为 0
func (s *metricsService) TimeToRedSignal(ctx context.Context, repo string, window time.Duration) (*dto.TimeToRedSignal, error) {
	defer metrics.ObserveQuery("time_to_red_signal")()
	if err := validateRepoWindow(repo, window); err != nil {
		return nil, err
	}

	durations, err := s.repos.WorkflowRun.FailureDurations(ctx,
		repository.WithRepo(repo),
		s.createdWithin(window),
	)
	if err != nil {
		return nil, err
	}

	result := &dto.TimeToRedSignal{Count: len(durations)}
	if len(durations) == 0 {
		return result, nil
	}

	values := lo.Map(durations, func(d int64, _ int) float64 { return math.Max(float64(d), 0) })
	sort.Float64s(values)
	result.Average = roundTo(lo.Sum(values)/float64(len(values)), 2)
	result.P75 = percentile(values, 75)
	result.Max = values[len(values)-1]
	return result, nil
}

// QueueStatus 按运行器类型统计排队中的运行数与平均排队时长
// queued 为当前全部排队中的运行，total 与平均排队时长只看窗口内创建的运行
func (s *metricsService) QueueStatus(ctx context.Context, repo string, window time.Duration) ([]*dto.QueueGroup, error) {
	defer metrics.ObserveQuery("queue_status")()
	if err := validateRepoWindow(repo, window); err != nil {
		return nil, err
	}

	since, until := s.bounds(window)
	rows, err := s.repos.WorkflowRun.QueueGroups(ctx, repo, since, until)
	if err != nil {
		return nil, err
	}

	// 未上报标签的运行归入 unknown，与显式 unknown 合并
	merged := make(map[string]*dto.QueueGroup, len(rows))
	weighted := make(map[string]float64, len(rows))
	for _, row := range rows {
		name := row.RunnerType
		if name == "" {
			name = constants.RunnerTypeUnknown
		}
		group, ok := merged[name]
		if !ok {
			group = &dto.QueueGroup{RunnerType: name}
			merged[name] = group
		}
		group.Queued += row.Queued
		group.Total += row.Total
		weighted[name] += row.AverageQueueTime * float64(row.Total)
	}

	groups := lo.Values(merged)
	for _, g := range groups {
		if g.Total > 0 {
			g.AverageQueueTime = roundTo(weighted[g.RunnerType]/float64(g.Total), 2)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Queued != groups[j].Queued {
			return groups[i].Queued > groups[j].Queued
		}
		return groups[i].RunnerType < groups[j].RunnerType
	})
	return groups, nil
}

// WorkflowSummary 每个工作流的运行数、成功率与平均耗时，按名称排序
// 工作流表中尚无运行的工作流也会列出
func (s *metricsService) WorkflowSummary(ctx context.Context, repo string) ([]*dto.WorkflowSummary, error) {
	defer metrics.ObserveQuery("workflow_summary")()
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	aggregates, err := s.repos.WorkflowRun.WorkflowAggregates(ctx, repo)
	if err != nil {
		return nil, err
	}
	workflows, err := s.repos.Workflow.ListByRepo(ctx, repo)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*dto.WorkflowSummary, len(aggregates)+len(workflows))
	for _, w := range workflows {
		summaries[w.Name] = &dto.WorkflowSummary{Name: w.Name}
	}
	for _, a := range aggregates {
		if a.Name == "" {
			continue
		}
		summaries[a.Name] = &dto.WorkflowSummary{
			Name:             a.Name,
			TotalRuns:        a.TotalRuns,
			SuccessRate:      percent(a.Successes, a.Concluded),
			AverageRuntime:   roundTo(a.AverageRuntime, 2),
			AverageQueueTime: roundTo(a.AverageQueueTime, 2),
		}
	}

	result := lo.Values(summaries)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CommitResultsMatrix 每个 (提交, 日期) 一行，列为 Linux/Win/Mac/Doc/Lint/Test
// 同一列命中多次时取 createtime 最新的运行
func (s *metricsService) CommitResultsMatrix(ctx context.Context, repo string, days int, branch string) ([]*dto.MatrixRow, error) {
	defer metrics.ObserveQuery("commit_results_matrix")()
	if err := validateRepoDays(repo, days); err != nil {
		return nil, err
	}

	since, until := s.bounds(daysToWindow(days))
	runs, err := s.repos.WorkflowRun.MatrixRuns(ctx, repo, since, until, branch)
	if err != nil {
		return nil, err
	}

	type rowKey struct {
		hash string
		date string
	}
	rows := make(map[rowKey]*dto.MatrixRow)
	// 每个单元格当前取值对应的运行时间
	cellTime := make(map[rowKey]map[string]int64)

	for _, run := range runs {
		key := rowKey{hash: run.CommitHash, date: time.Unix(run.CreateTime, 0).In(s.location).Format(dateLayout)}
		row, ok := rows[key]
		if !ok {
			row = newMatrixRow(run, key.date)
			rows[key] = row
			cellTime[key] = make(map[string]int64)
		}
		if run.CreateTime > row.RunTime {
			row.RunTime = run.CreateTime
		}

		symbol := ResultSymbol(run.Conclusion)
		for _, category := range []string{OSCategory(run.OS), PurposeCategory(run.WorkflowName)} {
			if category == "" {
				continue
			}
			// 同一时间的运行按 gitid 倒序返回，先到者保留
			if last, seen := cellTime[key][category]; seen && last >= run.CreateTime {
				continue
			}
			cellTime[key][category] = run.CreateTime
			row.Results[category] = symbol
		}
	}

	result := lo.Values(rows)
	sort.Slice(result, func(i, j int) bool {
		if result[i].RunTime != result[j].RunTime {
			return result[i].RunTime > result[j].RunTime
		}
		return result[i].Hash < result[j].Hash
	})
	return result, nil
}

// Stats 仓库概览
func (s *metricsService) Stats(ctx context.Context, repo string) (*dto.StatsResult, error) {
	defer metrics.ObserveQuery("stats")()
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	commits, err := s.repos.Commit.Count(ctx, repo)
	if err != nil {
		return nil, err
	}
	workflows, err := s.repos.Workflow.Count(ctx, repo)
	if err != nil {
		return nil, err
	}
	summary, err := s.repos.WorkflowRun.Summary(ctx, repo)
	if err != nil {
		return nil, err
	}

	return &dto.StatsResult{
		Commits:          commits,
		Workflows:        workflows,
		Runs:             summary.Runs,
		SuccessRate:      percent(summary.Successes, summary.Concluded),
		AverageRuntime:   roundTo(summary.AverageRuntime, 2),
		AverageQueueTime: roundTo(summary.AverageQueueTime, 2),
	}, nil
}

// Dashboard 看板首页：按日图表 + 主干失败率、失败信号耗时、排队情况
func (s *metricsService) Dashboard(ctx context.Context, repo string, days int) (*dto.DashboardResult, error) {
	series, err := s.DailySeries(ctx, repo, days)
	if err != nil {
		return nil, err
	}
	red, err := s.RedOnMain(ctx, repo)
	if err != nil {
		return nil, err
	}
	ttrs, err := s.TimeToRedSignal(ctx, repo, daysToWindow(days))
	if err != nil {
		return nil, err
	}
	queue, err := s.QueueStatus(ctx, repo, constants.DefaultWindowHours*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResult{
		ChartData: series,
		Metrics: &dto.DashboardMetrics{
			RedOnMain:       red,
			TimeToRedSignal: ttrs,
			Queue:           queue,
		},
	}, nil
}

// bounds 窗口 [now-window, now]，Unix 秒
func (s *metricsService) bounds(window time.Duration) (int64, int64) {
	now := s.now()
	return now.Add(-window).Unix(), now.Unix()
}

func (s *metricsService) createdWithin(window time.Duration) repository.QueryOption {
	return repository.WithCreatedBetween(s.bounds(window))
}

func newMatrixRow(run repository.MatrixRun, date string) *dto.MatrixRow {
	row := &dto.MatrixRow{
		Hash:    run.CommitHash,
		Author:  run.RunAuthor,
		Date:    date,
		RunTime: run.CreateTime,
		Results: make(map[string]string, len(constants.MatrixCategories)),
	}
	if run.CommitAuthor != nil && *run.CommitAuthor != "" {
		row.Author = *run.CommitAuthor
	}
	if run.CommitMessage != nil {
		row.Message = *run.CommitMessage
	}
	if run.CommitTime != nil {
		row.Time = *run.CommitTime
	}
	for _, category := range constants.MatrixCategories {
		row.Results[category] = constants.ResultUnknown
	}
	return row
}

func validateRepo(repo string) error {
	if repo == "" {
		return pkgErrors.InvalidParams("repo is required")
	}
	return nil
}

func validateRepoDays(repo string, days int) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	if days < 0 {
		return pkgErrors.InvalidParams("days must be non-negative, got %d", days)
	}
	if days > constants.MaxLookbackDays {
		return pkgErrors.InvalidParams("days must be at most %d, got %d", constants.MaxLookbackDays, days)
	}
	return nil
}

func validateRepoWindow(repo string, window time.Duration) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	if window < 0 {
		return pkgErrors.InvalidParams("window must be non-negative, got %s", window)
	}
	if window > maxLookback {
		return pkgErrors.InvalidParams("window must be at most %d days, got %s", constants.MaxLookbackDays, window)
	}
	return nil
}

const maxLookback = time.Duration(constants.MaxLookbackDays) * 24 * time.Hour

func daysToWindow(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func conclusionOf(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}

// percent 分母为 0 时返回 0
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return roundTo(float64(part)/float64(total)*100, 2)
}

// percentile 最近秩法，values 需已升序
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(values))))
	if rank < 1 {
		rank = 1
	}
	return values[rank-1]
}

func roundTo(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}
