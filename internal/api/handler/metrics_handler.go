package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/service"
	"ci-dashboard/pkg/constants"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

// MetricsHandler 看板查询处理器
type MetricsHandler struct {
	metricsService service.MetricsService
	defaultDays    int
}

// NewMetricsHandler 创建看板查询处理器
func NewMetricsHandler(metricsService service.MetricsService, defaultDays int) *MetricsHandler {
	if defaultDays <= 0 {
		defaultDays = constants.DefaultDays
	}
	return &MetricsHandler{
		metricsService: metricsService,
		defaultDays:    defaultDays,
	}
}

// Daily 按日通过/失败数
// @Summary 按日统计
// @Description 只返回有运行的日期，无运行的日期不补零
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param days query int false "回看天数"
// @Success 200 {object} utils.Response{data=[]dto.DailyPoint}
// @Router /api/metrics/daily [get]
func (h *MetricsHandler) Daily(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.DailySeries(c.Request.Context(), query.Repo, h.days(query))
	respond(c, data, err)
}

// FailureRate 失败率
// @Summary 失败率
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param hours query int false "窗口小时数，优先于 days"
// @Param days query int false "窗口天数"
// @Param branch query string false "分支"
// @Success 200 {object} utils.Response{data=dto.FailureRateResult}
// @Router /api/metrics/failure-rate [get]
func (h *MetricsHandler) FailureRate(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.FailureRate(c.Request.Context(), query.Repo, h.window(query, constants.DefaultWindowHours*time.Hour), query.Branch)
	respond(c, data, err)
}

// RedOnMain 主干最近24小时失败率
// @Summary 主干失败率
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Success 200 {object} utils.Response{data=dto.RedOnMainResult}
// @Router /api/metrics/red-on-main [get]
func (h *MetricsHandler) RedOnMain(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.RedOnMain(c.Request.Context(), query.Repo)
	respond(c, data, err)
}

// TimeToRedSignal 失败信号耗时
// @Summary 失败信号耗时
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param hours query int false "窗口小时数，优先于 days"
// @Param days query int false "窗口天数"
// @Success 200 {object} utils.Response{data=dto.TimeToRedSignal}
// @Router /api/metrics/ttrs [get]
func (h *MetricsHandler) TimeToRedSignal(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	window := h.window(query, time.Duration(h.defaultDays)*24*time.Hour)
	data, err := h.metricsService.TimeToRedSignal(c.Request.Context(), query.Repo, window)
	respond(c, data, err)
}

// Queue 排队情况
// @Summary 按运行器类型的排队情况
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param hours query int false "窗口小时数"
// @Success 200 {object} utils.Response{data=[]dto.QueueGroup}
// @Router /api/metrics/queue [get]
func (h *MetricsHandler) Queue(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.QueueStatus(c.Request.Context(), query.Repo, h.window(query, constants.DefaultWindowHours*time.Hour))
	respond(c, data, err)
}

// WorkflowSummary 工作流汇总
// @Summary 工作流汇总
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Success 200 {object} utils.Response{data=[]dto.WorkflowSummary}
// @Router /api/metrics/workflow-summary [get]
func (h *MetricsHandler) WorkflowSummary(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.WorkflowSummary(c.Request.Context(), query.Repo)
	respond(c, data, err)
}

// CommitMatrix 提交结果矩阵
// @Summary 提交结果矩阵
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param days query int false "回看天数"
// @Param branch query string false "分支"
// @Success 200 {object} utils.Response{data=[]dto.MatrixRow}
// @Router /api/metrics/workflow-runs [get]
func (h *MetricsHandler) CommitMatrix(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.CommitResultsMatrix(c.Request.Context(), query.Repo, h.days(query), query.Branch)
	respond(c, data, err)
}

// Dashboard 看板首页
// @Summary 看板首页
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Param days query int false "回看天数"
// @Success 200 {object} utils.Response{data=dto.DashboardResult}
// @Router /api/metrics/dashboard [get]
func (h *MetricsHandler) Dashboard(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.Dashboard(c.Request.Context(), query.Repo, h.days(query))
	respond(c, data, err)
}

// Stats 仓库概览
// @Summary 仓库概览
// @Tags Metrics
// @Produce json
// @Param repo query string true "仓库 owner/name"
// @Success 200 {object} utils.Response{data=dto.StatsResult}
// @Router /api/stats [get]
func (h *MetricsHandler) Stats(c *gin.Context) {
	query, ok := h.bindQuery(c)
	if !ok {
		return
	}
	data, err := h.metricsService.Stats(c.Request.Context(), query.Repo)
	respond(c, data, err)
}

func (h *MetricsHandler) bindQuery(c *gin.Context) (*dto.MetricsQuery, bool) {
	var query dto.MetricsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return nil, false
	}
	return &query, true
}

func (h *MetricsHandler) days(query *dto.MetricsQuery) int {
	if query.Days != nil {
		return *query.Days
	}
	return h.defaultDays
}

// window hours 优先，其次 days
func (h *MetricsHandler) window(query *dto.MetricsQuery, fallback time.Duration) time.Duration {
	switch {
	case query.Hours != nil:
		return time.Duration(*query.Hours) * time.Hour
	case query.Days != nil:
		return time.Duration(*query.Days) * 24 * time.Hour
	}
	return fallback
}

func respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, data)
}
