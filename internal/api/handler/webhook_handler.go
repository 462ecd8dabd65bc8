package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ci-dashboard/internal/pkg/logger"
	"ci-dashboard/internal/service"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

const (
	headerGitHubEvent    = "X-GitHub-Event"
	headerGitHubDelivery = "X-GitHub-Delivery"
)

// WebhookHandler GitHub webhook 处理器
type WebhookHandler struct {
	webhookService service.WebhookService
}

// NewWebhookHandler 创建 webhook 处理器
func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Handle 接收 GitHub webhook
// @Summary 接收 GitHub webhook
// @Description 支持 create、push、workflow_run、workflow_job 事件；缺少 X-GitHub-Event 时根据负载字段判断。存储失败返回 503 以便 GitHub 重投
// @Tags Webhook
// @Accept json
// @Produce json
// @Param X-GitHub-Event header string false "事件名"
// @Success 200 {object} utils.Response{data=dto.WebhookResult}
// @Failure 400 {object} utils.Response
// @Failure 503 {object} utils.Response
// @Router /webhook [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.ErrorWithStatus(c, http.StatusBadRequest, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "读取请求体失败", err))
		return
	}

	event := c.GetHeader(headerGitHubEvent)
	result, err := h.webhookService.HandleDelivery(c.Request.Context(), event, body)
	if err != nil {
		logger.Warn("webhook 处理失败",
			zap.String("event", event),
			zap.String("delivery", c.GetHeader(headerGitHubDelivery)),
			zap.Error(err))

		status := http.StatusServiceUnavailable
		if pkgErrors.CodeOf(err) == pkgErrors.CodeBadRequest {
			status = http.StatusBadRequest
		}
		utils.ErrorWithStatus(c, status, err)
		return
	}

	utils.Success(c, result)
}
