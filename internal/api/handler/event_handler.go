package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/service"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

// EventHandler 结构化事件入口，供非 GitHub 的采集端使用
//
// 请求体只做 JSON 解析，字段校验交给入库服务：不完整的事件被丢弃而不是报错。
type EventHandler struct {
	reconcileService service.ReconcileService
}

// NewEventHandler 创建事件处理器
func NewEventHandler(reconcileService service.ReconcileService) *EventHandler {
	return &EventHandler{reconcileService: reconcileService}
}

// RecordBranch 记录分支
// @Summary 记录分支
// @Tags Event
// @Accept json
// @Produce json
// @Param request body dto.BranchEvent true "分支事件"
// @Success 200 {object} utils.Response
// @Router /api/v1/events/branch [post]
func (h *EventHandler) RecordBranch(c *gin.Context) {
	var req dto.BranchEvent
	if !decodeEvent(c, &req) {
		return
	}
	if err := h.reconcileService.RecordBranch(c.Request.Context(), &req); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, nil)
}

// RecordPush 记录推送中的提交
// @Summary 记录提交
// @Tags Event
// @Accept json
// @Produce json
// @Param request body dto.PushEvent true "推送事件"
// @Success 200 {object} utils.Response{data=dto.IngestResult}
// @Router /api/v1/events/push [post]
func (h *EventHandler) RecordPush(c *gin.Context) {
	var req dto.PushEvent
	if !decodeEvent(c, &req) {
		return
	}
	result, err := h.reconcileService.RecordCommits(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, result)
}

// RecordWorkflowRun 记录工作流运行
// @Summary 记录工作流运行
// @Tags Event
// @Accept json
// @Produce json
// @Param request body dto.WorkflowRunEvent true "运行事件"
// @Success 200 {object} utils.Response
// @Router /api/v1/events/workflow-run [post]
func (h *EventHandler) RecordWorkflowRun(c *gin.Context) {
	var req dto.WorkflowRunEvent
	if !decodeEvent(c, &req) {
		return
	}
	if err := h.reconcileService.RecordWorkflowRun(c.Request.Context(), &req); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, nil)
}

// RecordQueueStart 记录 job 开始执行
// @Summary 记录排队结束
// @Tags Event
// @Accept json
// @Produce json
// @Param request body dto.QueueStartEvent true "排队结束事件"
// @Success 200 {object} utils.Response
// @Router /api/v1/events/queue-start [post]
func (h *EventHandler) RecordQueueStart(c *gin.Context) {
	var req dto.QueueStartEvent
	if !decodeEvent(c, &req) {
		return
	}
	if err := h.reconcileService.RecordQueueStart(c.Request.Context(), &req); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, nil)
}

// RecordWorkflows 记录工作流定义
// @Summary 记录工作流定义
// @Tags Event
// @Accept json
// @Produce json
// @Param request body dto.WorkflowsEvent true "工作流定义"
// @Success 200 {object} utils.Response{data=dto.IngestResult}
// @Router /api/v1/events/workflows [post]
func (h *EventHandler) RecordWorkflows(c *gin.Context) {
	var req dto.WorkflowsEvent
	if !decodeEvent(c, &req) {
		return
	}
	result, err := h.reconcileService.RecordWorkflows(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, result)
}

// decodeEvent 解析失败时写入错误响应并返回 false
func decodeEvent(c *gin.Context, v interface{}) bool {
	body, err := c.GetRawData()
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		utils.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "请求参数错误", err.Error())
		return false
	}
	return true
}
