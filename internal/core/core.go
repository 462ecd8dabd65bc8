package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ci-dashboard/internal/service"
)

// CoreEngine 外键补齐引擎
//
// 运行记录可能先于提交和工作流到达，引擎定期对所有仓库执行一次补齐，
// 兜底 RecordCommits/RecordWorkflows 之后的即时补齐。
type CoreEngine struct {
	reconcile service.ReconcileService
	logger    *zap.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCoreEngine 创建核心引擎
func NewCoreEngine(reconcile service.ReconcileService, logger *zap.Logger) *CoreEngine {
	return &CoreEngine{
		reconcile: reconcile,
		logger:    logger.Named("core"),
	}
}

// Start 启动核心引擎
func (e *CoreEngine) Start(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.logger.Warn("核心引擎已在运行中")
		return
	}

	e.running = true
	e.stopChan = make(chan struct{})
	e.done = make(chan struct{})
	e.logger.Info("CoreEngine starting...", zap.Duration("link_interval", interval))

	go e.runLinker(interval)
}

// Stop 停止核心引擎，等待正在执行的补齐结束
func (e *CoreEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	e.logger.Info("正在停止核心引擎...")
	<-done
	e.logger.Info("核心引擎已停止")
}

// LinkOnce 执行一次全量补齐
func (e *CoreEngine) LinkOnce(ctx context.Context) (int64, error) {
	linked, err := e.reconcile.ReconcileAll(ctx)
	if err != nil {
		e.logger.Error("外键补齐失败", zap.Error(err))
		return linked, err
	}
	e.logger.Debug("外键补齐完成", zap.Int64("linked", linked))
	return linked, nil
}

// runLinker 定时补齐
func (e *CoreEngine) runLinker(interval time.Duration) {
	defer close(e.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-e.stopChan
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			_, _ = e.LinkOnce(ctx)
		case <-e.stopChan:
			return
		}
	}
}
