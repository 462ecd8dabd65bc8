package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ci-dashboard/internal/api/handler"
	"ci-dashboard/internal/api/middleware"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/pkg/metrics"
	"ci-dashboard/internal/service"
)

// Setup 设置路由
func Setup(cfg *config.Config, services *service.Services) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus 指标
	r.GET("/metrics", metrics.Handler())

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 初始化Handler
	webhookHandler := handler.NewWebhookHandler(services.Webhook)
	eventHandler := handler.NewEventHandler(services.Reconcile)
	metricsHandler := handler.NewMetricsHandler(services.Metrics, cfg.Dashboard.DefaultDays)
	bundleHandler := handler.NewBundleHandler(services.Bundle)
	runHandler := handler.NewRunHandler(services.Run)

	// GitHub webhook（无需认证）
	r.POST("/webhook", webhookHandler.Handle)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 结构化事件
		groupEvents := v1.Group("/events")
		{
			groupEvents.POST("/branch", eventHandler.RecordBranch)
			groupEvents.POST("/push", eventHandler.RecordPush)
			groupEvents.POST("/workflow-run", eventHandler.RecordWorkflowRun)
			groupEvents.POST("/queue-start", eventHandler.RecordQueueStart)
			groupEvents.POST("/workflows", eventHandler.RecordWorkflows)
		}

		// 数据包
		groupBundle := v1.Group("/bundle")
		{
			groupBundle.POST("/import", bundleHandler.Import)
			groupBundle.GET("/export", bundleHandler.Export)
		}

		// 运行记录
		groupRuns := v1.Group("/runs")
		{
			groupRuns.GET("", runHandler.List)
			groupRuns.GET("/:gitid", runHandler.GetByGitID)
		}
	}

	// 看板查询，路径与前端保持一致
	groupMetrics := r.Group("/api/metrics")
	{
		groupMetrics.GET("/daily", metricsHandler.Daily)
		groupMetrics.GET("/failure-rate", metricsHandler.FailureRate)
		groupMetrics.GET("/red-on-main", metricsHandler.RedOnMain)
		groupMetrics.GET("/ttrs", metricsHandler.TimeToRedSignal)
		groupMetrics.GET("/queue", metricsHandler.Queue)
		groupMetrics.GET("/workflow-summary", metricsHandler.WorkflowSummary)
		groupMetrics.GET("/workflow-runs", metricsHandler.CommitMatrix)
		groupMetrics.GET("/dashboard", metricsHandler.Dashboard)
	}
	r.GET("/api/stats", metricsHandler.Stats)

	return r
}
