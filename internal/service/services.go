package service

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ci-dashboard/internal/adapter/notification"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/pkg/git/api"
	"ci-dashboard/internal/repository"
)

// Services 服务集合，由 main 组装后注入路由、调度器和核心引擎
type Services struct {
	Repositories *repository.Repositories
	Reconcile    ReconcileService
	Metrics      MetricsService
	Webhook      WebhookService
	Backfill     BackfillService
	Bundle       BundleService
	Run          RunService
}

// NewServices 基于同一数据库连接创建全部服务
func NewServices(cfg *config.Config, db *gorm.DB, provider api.ActionsProvider, notifier notification.Notifier, logger *zap.Logger) *Services {
	repos := repository.NewRepositories(db)
	reconcile := NewReconcileService(repos, logger)

	return &Services{
		Repositories: repos,
		Reconcile:    reconcile,
		Metrics:      NewMetricsService(repos, &cfg.Dashboard, logger),
		Webhook:      NewWebhookService(reconcile, repos, notifier, cfg.Dashboard.MainBranch, logger),
		Backfill:     NewBackfillService(provider, reconcile, &cfg.Backfill, cfg.GitHub.Repos, logger),
		Bundle:       NewBundleService(reconcile, repos, logger),
		Run:          NewRunService(repos.WorkflowRun),
	}
}
