package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"ci-dashboard/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyRedSignal NotificationType = "red_signal" // 主干运行失败
	NotifyRecovered NotificationType = "recovered"  // 主干运行恢复
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// RedSignal 主干上一次运行的结论变化
type RedSignal struct {
	Repo         string
	Branch       string
	WorkflowName string
	CommitHash   string
	Author       string
	URL          string
	GitID        int64
	Conclusion   string
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error

	// SendRedSignal 发送主干失败/恢复通知
	SendRedSignal(ctx context.Context, signal *RedSignal, notifyType NotificationType) error
}

// New 按配置创建通知器，未启用时只写日志
func New(cfg *config.NotificationConfig, logger *zap.Logger) Notifier {
	logNotifier := NewLogNotifier(logger)
	if cfg == nil || !cfg.Enabled {
		return logNotifier
	}
	switch cfg.Provider {
	case "log", "":
		return logNotifier
	case "lark":
		return NewMultiNotifier(logger, logNotifier, NewLarkNotifier(cfg.LarkWebhook, true, logger))
	default:
		logger.Warn("未知的通知渠道，仅记录日志", zap.String("provider", cfg.Provider))
		return logNotifier
	}
}

// ============= Lark 通知适配器 =============

// LarkNotifier Lark通知器
type LarkNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *resty.Client
}

// NewLarkNotifier 创建Lark通知器
func NewLarkNotifier(webhookURL string, enabled bool, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Send 发送通知
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Lark Webhook URL未配置")
		return nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(n.buildLarkMessage(msg)).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("Lark API返回错误状态码: %d", resp.StatusCode())
	}

	n.logger.Info("Lark通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title))

	return nil
}

// SendRedSignal 发送主干失败/恢复通知
func (n *LarkNotifier) SendRedSignal(ctx context.Context, signal *RedSignal, notifyType NotificationType) error {
	return n.Send(ctx, buildRedSignalMessage(signal, notifyType))
}

// buildLarkMessage 构建Lark消息格式
func (n *LarkNotifier) buildLarkMessage(msg *NotificationMessage) map[string]interface{} {
	color := "grey"
	if c, ok := msg.Extra["color"].(string); ok {
		color = c
	}

	elements := []interface{}{
		map[string]interface{}{
			"tag": "div",
			"text": map[string]interface{}{
				"tag":     "lark_md",
				"content": msg.Content,
			},
		},
	}
	if url, ok := msg.Extra["url"].(string); ok && url != "" {
		elements = append(elements, map[string]interface{}{
			"tag": "action",
			"actions": []interface{}{
				map[string]interface{}{
					"tag":  "button",
					"text": map[string]interface{}{"tag": "plain_text", "content": "查看运行"},
					"url":  url,
					"type": "default",
				},
			},
		})
	}
	elements = append(elements, map[string]interface{}{
		"tag": "div",
		"text": map[string]interface{}{
			"tag":     "plain_text",
			"content": fmt.Sprintf("时间: %s", msg.Timestamp.Format("2006-01-02 15:04:05")),
		},
	})

	// Lark富文本消息格式
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": color,
			},
			"elements": elements,
		},
	}
}

func buildRedSignalMessage(signal *RedSignal, notifyType NotificationType) *NotificationMessage {
	var title, color string
	switch notifyType {
	case NotifyRedSignal:
		title = "❌ 主干构建失败"
		color = "red"
	case NotifyRecovered:
		title = "✅ 主干构建恢复"
		color = "green"
	default:
		title = "📢 构建通知"
		color = "grey"
	}

	hash := signal.CommitHash
	if len(hash) > 8 {
		hash = hash[:8]
	}
	content := fmt.Sprintf("**仓库**: %s\n**分支**: %s\n**工作流**: %s\n**提交**: %s\n**作者**: %s\n**结论**: %s",
		signal.Repo, signal.Branch, signal.WorkflowName, hash, signal.Author, signal.Conclusion)

	return &NotificationMessage{
		Type:      notifyType,
		Title:     title,
		Content:   content,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"repo":   signal.Repo,
			"gitid":  signal.GitID,
			"url":    signal.URL,
			"color":  color,
			"branch": signal.Branch,
		},
	}
}

// ============= 多通知器 =============

// MultiNotifier 多通知器(支持同时发送到多个渠道)
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Send 发送到所有通知器
func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("发送通知失败", zap.Error(err))
			lastErr = err
			// 继续发送其他通知器
		}
	}
	return lastErr
}

// SendRedSignal 发送到所有通知器
func (m *MultiNotifier) SendRedSignal(ctx context.Context, signal *RedSignal, notifyType NotificationType) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.SendRedSignal(ctx, signal, notifyType); err != nil {
			m.logger.Error("发送构建通知失败", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ============= 日志通知器(仅记录日志,不发送实际通知) =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send 记录通知到日志
func (n *LogNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	n.logger.Info("📢 通知",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content),
		zap.Any("extra", msg.Extra))
	return nil
}

// SendRedSignal 记录构建通知到日志
func (n *LogNotifier) SendRedSignal(ctx context.Context, signal *RedSignal, notifyType NotificationType) error {
	n.logger.Info("📢 构建通知",
		zap.String("type", string(notifyType)),
		zap.String("repo", signal.Repo),
		zap.String("branch", signal.Branch),
		zap.String("workflow", signal.WorkflowName),
		zap.Int64("gitid", signal.GitID),
		zap.String("conclusion", signal.Conclusion))
	return nil
}
