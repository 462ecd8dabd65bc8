package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ci-dashboard/internal/model"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
)

// 每次事件都覆盖的列，os/runnertype/labels 仅在事件携带时覆盖
var runUpsertColumns = []string{
	"branch", "commitid", "workflow", "author",
	"runtime", "createtime", "starttime", "endtime", "queuetime",
	"status", "conclusion", "url",
	"archivedbranchname", "archivedcommithash", "archivedworkflowname",
	"repo", "updated_at",
}

var runRunnerColumns = []string{"os", "runnertype", "labels"}

// RunOutcome 单次运行的创建时间与结论
type RunOutcome struct {
	CreateTime int64
	Conclusion *string
}

// OutcomeCounts 有结论的运行计数
type OutcomeCounts struct {
	Total          int64
	Failures       int64
	StrictFailures int64 // 工作流名匹配 strict 模式的失败
}

// QueueRow 按运行器类型分组的排队统计
type QueueRow struct {
	RunnerType       string
	Queued           int64
	Total            int64
	AverageQueueTime float64
}

// WorkflowAggregate 按工作流名分组的统计
type WorkflowAggregate struct {
	Name             string
	TotalRuns        int64
	Concluded        int64
	Successes        int64
	AverageRuntime   float64
	AverageQueueTime float64
}

// RunSummary 仓库整体统计
type RunSummary struct {
	Runs             int64
	Concluded        int64
	Successes        int64
	AverageRuntime   float64
	AverageQueueTime float64
}

// MatrixRun 结果矩阵的原始行，提交信息来自 LEFT JOIN
type MatrixRun struct {
	CommitHash    string
	WorkflowName  string
	OS            string
	Conclusion    *string
	CreateTime    int64
	RunAuthor     string
	CommitAuthor  *string
	CommitMessage *string
	CommitTime    *int64
}

// WorkflowRunRepository 工作流运行仓储接口
type WorkflowRunRepository interface {
	Upsert(ctx context.Context, run *model.WorkflowRun, withRunner bool) error
	FindByGitID(ctx context.Context, gitID int64) (*model.WorkflowRun, error)
	MarkQueueStart(ctx context.Context, gitID, startedAt int64) (int64, error)
	UpdateRunner(ctx context.Context, gitID int64, os, runnerType string, labels []string) (int64, error)
	ReconcileLinks(ctx context.Context, repo string) (int64, error)
	List(ctx context.Context, offset, limit int, opts ...QueryOption) ([]*model.WorkflowRun, int64, error)

	ListOutcomes(ctx context.Context, opts ...QueryOption) ([]RunOutcome, error)
	CountOutcomes(ctx context.Context, strictPattern string, opts ...QueryOption) (*OutcomeCounts, error)
	FailureDurations(ctx context.Context, opts ...QueryOption) ([]int64, error)
	QueueGroups(ctx context.Context, repo string, since, until int64) ([]QueueRow, error)
	WorkflowAggregates(ctx context.Context, repo string) ([]WorkflowAggregate, error)
	Summary(ctx context.Context, repo string) (*RunSummary, error)
	MatrixRuns(ctx context.Context, repo string, since, until int64, branch string) ([]MatrixRun, error)
}

type workflowRunRepository struct {
	db *gorm.DB
}

// NewWorkflowRunRepository 创建工作流运行仓储实例
func NewWorkflowRunRepository(db *gorm.DB) WorkflowRunRepository {
	return &workflowRunRepository{db: db}
}

// Upsert 按 gitid 写入，冲突时覆盖全部字段
func (r *workflowRunRepository) Upsert(ctx context.Context, run *model.WorkflowRun, withRunner bool) error {
	columns := runUpsertColumns
	if withRunner {
		columns = append(append([]string{}, runUpsertColumns...), runRunnerColumns...)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gitid"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(run).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入工作流运行失败", err)
	}
	return nil
}

// FindByGitID 按 gitid 查询
func (r *workflowRunRepository) FindByGitID(ctx context.Context, gitID int64) (*model.WorkflowRun, error) {
	var run model.WorkflowRun
	err := r.db.WithContext(ctx).Where("gitid = ?", gitID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作流运行失败", err)
	}
	return &run, nil
}

// MarkQueueStart 单条条件更新写入开始时间并计算排队时长
// 只在 queuetime 仍为 0 时生效，返回受影响行数
func (r *workflowRunRepository) MarkQueueStart(ctx context.Context, gitID, startedAt int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Where("gitid = ? AND queuetime = 0 AND createtime IS NOT NULL", gitID).
		Updates(map[string]interface{}{
			"starttime": startedAt,
			"queuetime": gorm.Expr("CASE WHEN createtime < ? THEN ? - createtime ELSE 0 END", startedAt, startedAt),
		})
	if res.Error != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新排队时间失败", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateRunner 更新运行器维度
func (r *workflowRunRepository) UpdateRunner(ctx context.Context, gitID int64, os, runnerType string, labels []string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Where("gitid = ?", gitID).
		Updates(map[string]interface{}{
			"os":         os,
			"runnertype": runnerType,
			"labels":     model.NewLabels(labels),
		})
	if res.Error != nil {
		return 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新运行器信息失败", res.Error)
	}
	return res.RowsAffected, nil
}

// ReconcileLinks 用 archived 字段补齐为空的外键
func (r *workflowRunRepository) ReconcileLinks(ctx context.Context, repo string) (int64, error) {
	statements := []string{
		`UPDATE workflowruns SET commitid = (
			SELECT c.id FROM commits c WHERE c.hash = workflowruns.archivedcommithash AND c.repo = workflowruns.repo)
		WHERE workflowruns.repo = ? AND workflowruns.commitid IS NULL AND workflowruns.archivedcommithash <> ''
			AND EXISTS (SELECT 1 FROM commits c WHERE c.hash = workflowruns.archivedcommithash AND c.repo = workflowruns.repo)`,
		`UPDATE workflowruns SET workflow = (
			SELECT w.id FROM workflows w WHERE w.name = workflowruns.archivedworkflowname AND w.repo = workflowruns.repo)
		WHERE workflowruns.repo = ? AND workflowruns.workflow IS NULL AND workflowruns.archivedworkflowname <> ''
			AND EXISTS (SELECT 1 FROM workflows w WHERE w.name = workflowruns.archivedworkflowname AND w.repo = workflowruns.repo)`,
		`UPDATE workflowruns SET branch = (
			SELECT b.id FROM branches b WHERE b.name = workflowruns.archivedbranchname AND b.repo = workflowruns.repo)
		WHERE workflowruns.repo = ? AND workflowruns.branch IS NULL AND workflowruns.archivedbranchname <> ''
			AND EXISTS (SELECT 1 FROM branches b WHERE b.name = workflowruns.archivedbranchname AND b.repo = workflowruns.repo)`,
	}

	var total int64
	for _, stmt := range statements {
		res := r.db.WithContext(ctx).Exec(stmt, repo)
		if res.Error != nil {
			return total, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "补齐运行外键失败", res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}

// List 分页查询，limit<=0 时返回全部
func (r *workflowRunRepository) List(ctx context.Context, offset, limit int, opts ...QueryOption) ([]*model.WorkflowRun, int64, error) {
	var runs []*model.WorkflowRun
	var total int64

	query := applyOptions(r.db.WithContext(ctx).Model(&model.WorkflowRun{}), opts)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计工作流运行失败", err)
	}

	query = query.Order("createtime DESC").Order("gitid DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作流运行列表失败", err)
	}
	return runs, total, nil
}

// ListOutcomes 窗口内每次运行的创建时间与结论
func (r *workflowRunRepository) ListOutcomes(ctx context.Context, opts ...QueryOption) ([]RunOutcome, error) {
	var rows []RunOutcome
	err := applyOptions(r.db.WithContext(ctx).Model(&model.WorkflowRun{}), opts).
		Select("createtime AS create_time, conclusion").
		Where("createtime IS NOT NULL").
		Order("createtime").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询运行结论失败", err)
	}
	return rows, nil
}

// CountOutcomes 有结论的运行总数与失败数
// strictPattern 非空时额外统计工作流名包含该子串（大小写无关）的失败
func (r *workflowRunRepository) CountOutcomes(ctx context.Context, strictPattern string, opts ...QueryOption) (*OutcomeCounts, error) {
	strictExpr := "0"
	args := []interface{}{constants.ConclusionFailure}
	if strictPattern != "" {
		strictExpr = "COALESCE(SUM(CASE WHEN conclusion = ? AND LOWER(archivedworkflowname) LIKE ? THEN 1 ELSE 0 END), 0)"
		args = append(args, constants.ConclusionFailure, "%"+strings.ToLower(strictPattern)+"%")
	}

	var counts OutcomeCounts
	err := applyOptions(r.db.WithContext(ctx).Model(&model.WorkflowRun{}), opts).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN conclusion = ? THEN 1 ELSE 0 END), 0) AS failures,
			`+strictExpr+` AS strict_failures`, args...).
		Where("conclusion IS NOT NULL").
		Scan(&counts).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计运行结论失败", err)
	}
	return &counts, nil
}

// FailureDurations 失败运行的 endtime - createtime（秒）
func (r *workflowRunRepository) FailureDurations(ctx context.Context, opts ...QueryOption) ([]int64, error) {
	var durations []int64
	err := applyOptions(r.db.WithContext(ctx).Model(&model.WorkflowRun{}), opts).
		Where("conclusion = ? AND endtime IS NOT NULL AND createtime IS NOT NULL", constants.ConclusionFailure).
		Pluck("endtime - createtime", &durations).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询失败耗时失败", err)
	}
	return durations, nil
}

// QueueGroups 按运行器类型统计排队
// queued 统计仓库内当前所有排队中的运行，不受创建时间窗口限制；
// total 与平均排队时长只统计窗口 [since, until] 内创建的运行
func (r *workflowRunRepository) QueueGroups(ctx context.Context, repo string, since, until int64) ([]QueueRow, error) {
	var rows []QueueRow
	inWindow := "createtime IS NOT NULL AND createtime >= ? AND createtime <= ?"
	err := r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Select(`runnertype AS runner_type,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS queued,
			COALESCE(SUM(CASE WHEN `+inWindow+` THEN 1 ELSE 0 END), 0) AS total,
			COALESCE(AVG(CASE WHEN `+inWindow+` THEN queuetime END), 0) AS average_queue_time`,
			constants.RunStatusQueued, since, until, since, until).
		Where("repo = ?", repo).
		Where("status = ? OR ("+inWindow+")", constants.RunStatusQueued, since, until).
		Group("runnertype").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计排队情况失败", err)
	}
	return rows, nil
}

// WorkflowAggregates 按工作流名统计
func (r *workflowRunRepository) WorkflowAggregates(ctx context.Context, repo string) ([]WorkflowAggregate, error) {
	var rows []WorkflowAggregate
	err := r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Select(`archivedworkflowname AS name,
			COUNT(*) AS total_runs,
			COALESCE(SUM(CASE WHEN conclusion IS NOT NULL THEN 1 ELSE 0 END), 0) AS concluded,
			COALESCE(SUM(CASE WHEN conclusion = ? THEN 1 ELSE 0 END), 0) AS successes,
			COALESCE(AVG(CASE WHEN status = ? THEN runtime END), 0) AS average_runtime,
			COALESCE(AVG(queuetime), 0) AS average_queue_time`,
			constants.ConclusionSuccess, constants.RunStatusCompleted).
		Where("repo = ?", repo).
		Group("archivedworkflowname").
		Order("archivedworkflowname").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计工作流失败", err)
	}
	return rows, nil
}

// Summary 仓库整体统计
func (r *workflowRunRepository) Summary(ctx context.Context, repo string) (*RunSummary, error) {
	var summary RunSummary
	err := r.db.WithContext(ctx).Model(&model.WorkflowRun{}).
		Select(`COUNT(*) AS runs,
			COALESCE(SUM(CASE WHEN conclusion IS NOT NULL THEN 1 ELSE 0 END), 0) AS concluded,
			COALESCE(SUM(CASE WHEN conclusion = ? THEN 1 ELSE 0 END), 0) AS successes,
			COALESCE(AVG(CASE WHEN conclusion IS NOT NULL THEN runtime END), 0) AS average_runtime,
			COALESCE(AVG(CASE WHEN conclusion IS NOT NULL THEN queuetime END), 0) AS average_queue_time`,
			constants.ConclusionSuccess).
		Where("repo = ?", repo).
		Scan(&summary).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计运行概览失败", err)
	}
	return &summary, nil
}

// MatrixRuns 窗口内运行及其提交信息，按创建时间倒序，同一时间按 gitid 倒序
func (r *workflowRunRepository) MatrixRuns(ctx context.Context, repo string, since, until int64, branch string) ([]MatrixRun, error) {
	var rows []MatrixRun
	query := r.db.WithContext(ctx).Table(model.WorkflowRunTableName+" AS wr").
		Select(`wr.archivedcommithash AS commit_hash,
			wr.archivedworkflowname AS workflow_name,
			wr.os AS os,
			wr.conclusion AS conclusion,
			wr.createtime AS create_time,
			wr.author AS run_author,
			c.author AS commit_author,
			c.message AS commit_message,
			c.time AS commit_time`).
		Joins("LEFT JOIN "+model.CommitTableName+" AS c ON c.hash = wr.archivedcommithash AND c.repo = wr.repo").
		Where("wr.repo = ? AND wr.createtime IS NOT NULL AND wr.createtime >= ? AND wr.createtime <= ? AND wr.archivedcommithash <> ''", repo, since, until)
	if branch != "" {
		query = query.Where("wr.archivedbranchname = ?", branch)
	}

	if err := query.Order("wr.createtime DESC").Order("wr.gitid DESC").Scan(&rows).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询结果矩阵失败", err)
	}
	return rows, nil
}
