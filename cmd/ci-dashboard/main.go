package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ci-dashboard/internal/adapter/notification"
	"ci-dashboard/internal/api/router"
	"ci-dashboard/internal/core"
	"ci-dashboard/internal/pkg/config"
	"ci-dashboard/internal/pkg/database"
	"ci-dashboard/internal/pkg/git/api"
	"ci-dashboard/internal/pkg/git/github"
	"ci-dashboard/internal/pkg/logger"
	"ci-dashboard/internal/scheduler"
	"ci-dashboard/internal/service"

	_ "ci-dashboard/docs" // Swagger docs
)

// @title CI Dashboard API
// @version 1.0
// @description CI 构建健康看板 API 文档
// @description 接收 GitHub webhook 与回填数据，提供按日统计、主干失败率、失败信号耗时、排队情况与结果矩阵

// @contact.name API Support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
	migrate    = flag.Bool("migrate", false, "执行数据库迁移后退出")
	importFile = flag.String("import", "", "导入数据包 (.json/.yaml) 后退出")
	exportFile = flag.String("export", "", "导出数据包 (.json/.yaml) 后退出")
	repoName   = flag.String("repo", "", "导入/导出的仓库 owner/name")
	backfill   = flag.Bool("backfill", false, "执行一次 GitHub 回填后退出")
)

const (
	appVersion = "1.0.0"
	appName    = "ci-dashboard"
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 显示版本信息
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// init config logger
	var cfg *config.Config
	{
		// 优先级: 命令行参数 > 环境变量 > 默认路径
		configPath := getConfigPath()

		// 加载配置
		c, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("加载配置失败: %v\n", err)
			fmt.Println("\n使用方式:")
			fmt.Println("  1. 命令行参数指定:")
			fmt.Println("     ./ci-dashboard -config=configs/config.yaml")
			fmt.Println("  2. 环境变量指定:")
			fmt.Println("     export CONFIG_FILE=configs/config.yaml")
			fmt.Println("     ./ci-dashboard")
			fmt.Println("  3. 使用默认配置:")
			fmt.Println("     ./ci-dashboard  (将使用 configs/config.yaml)")
			os.Exit(1)
		}
		cfg = c

		// 初始化日志
		if err := logger.Init(&cfg.Log); err != nil {
			fmt.Printf("初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))

		defer func() {
			_ = logger.Close()
		}()
	}

	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	// -migrate 时强制建表
	if *migrate {
		cfg.Database.AutoMigrate = true
	}

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		_ = database.Close()
	}()

	logger.Info(fmt.Sprintf("数据库连接成功 %s %s:%v", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port), zap.String("database", cfg.Database.Database))

	if *migrate {
		logger.Info("数据库迁移完成")
		return
	}

	provider, err := github.NewProvider(&api.ProviderConfig{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
		Timeout: config.ParseDuration(cfg.GitHub.Timeout, 30*time.Second),
	})
	if err != nil {
		logger.Fatal("初始化GitHub客户端失败", zap.Error(err))
	}

	notifier := notification.New(&cfg.Notification, logger.Named("notification"))
	services := service.NewServices(cfg, database.GetDB(), provider, notifier, logger.Log)

	// 一次性命令
	switch {
	case *importFile != "":
		exitOnError(runImport(services.Bundle, *importFile, *repoName))
		return
	case *exportFile != "":
		exitOnError(runExport(services.Bundle, *exportFile, *repoName))
		return
	case *backfill:
		_, err := services.Backfill.Run(context.Background())
		exitOnError(err)
		return
	}

	// 启动外键补齐引擎
	coreEngine := core.NewCoreEngine(services.Reconcile, logger.Log)
	linkInterval := config.ParseDuration(cfg.Core.LinkInterval, 5*time.Minute)
	coreEngine.Start(linkInterval)
	logger.Info("Core引擎启动成功", zap.Duration("link_interval", linkInterval))

	// 初始化并启动定时任务调度器
	taskScheduler := scheduler.NewScheduler(services.Backfill, logger.Log)
	if err := taskScheduler.Start(&cfg.Backfill); err != nil {
		logger.Warn("定时任务调度器启动失败", zap.Error(err))
	}

	// 设置路由
	r := router.Setup(cfg, services)

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	// 关闭定时任务调度器
	taskScheduler.Stop()

	// 关闭Core引擎
	coreEngine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务已关闭")
}

// runImport 从文件导入数据包
func runImport(bundleService service.BundleService, path, repo string) error {
	format, err := service.BundleFormat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取数据包失败: %w", err)
	}
	bundle, err := service.DecodeBundle(data, format)
	if err != nil {
		return err
	}

	result, err := bundleService.Import(context.Background(), repo, bundle)
	if err != nil {
		return err
	}
	fmt.Printf("导入完成: branches=%d commits=%d workflows=%d workflow_runs=%d dropped=%d\n",
		result.Branches, result.Commits, result.Workflows, result.WorkflowRuns, result.Dropped)
	return nil
}

// runExport 导出数据包到文件
func runExport(bundleService service.BundleService, path, repo string) error {
	format, err := service.BundleFormat(path)
	if err != nil {
		return err
	}
	bundle, err := bundleService.Export(context.Background(), repo)
	if err != nil {
		return err
	}
	data, err := service.EncodeBundle(bundle, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入数据包失败: %w", err)
	}
	fmt.Printf("已导出到 %s: branches=%d commits=%d workflows=%d workflow_runs=%d\n",
		path, len(bundle.Branches), len(bundle.Commits), len(bundle.Workflows), len(bundle.WorkflowRuns))
	return nil
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	logger.Error("执行失败", zap.Error(err))
	_ = logger.Close()
	_ = database.Close()
	os.Exit(1)
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	// 1. 命令行参数
	if *configFile != "" {
		return *configFile
	}

	// 2. 环境变量
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}

	// 3. 默认路径
	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
