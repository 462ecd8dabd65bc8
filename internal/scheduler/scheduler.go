package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/service"
)

const defaultBackfillCron = "0 */30 * * * *"

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	backfillSvc   service.BackfillService
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(backfillSvc service.BackfillService, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持），上一轮未结束时跳过本轮
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:          c,
		logger:        logger,
		backfillSvc:   backfillSvc,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.BackfillConfig) error {
	log := s.logger.Sugar()

	if !cfg.Enabled {
		log.Info("回填任务未启用，跳过调度器启动")
		return nil
	}

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultBackfillCron
		log.Warnf("未配置backfill.cron，使用默认值: %s", cronExpr)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		log.Info("执行定时任务: GitHub 回填")
		if _, err := s.backfillSvc.Run(context.Background()); err != nil {
			log.Errorf("回填任务执行失败: %v", err)
		}
	})
	if err != nil {
		log.Errorf("注册回填任务: %v 失败: %v", cronExpr, err)
		return err
	}

	s.cronSchedules["backfill"] = entryID
	log.Infof("回填任务已注册: %s entry_id=%d", cronExpr, entryID)

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// TriggerBackfill 手动触发回填
func (s *Scheduler) TriggerBackfill(ctx context.Context) error {
	s.logger.Info("手动触发回填")
	_, err := s.backfillSvc.Run(ctx)
	return err
}
