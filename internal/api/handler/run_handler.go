package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ci-dashboard/internal/dto"
	"ci-dashboard/internal/service"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

// RunHandler 运行记录处理器
type RunHandler struct {
	runService service.RunService
}

// NewRunHandler 创建运行记录处理器
func NewRunHandler(runService service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// List 查询运行记录列表
// @Summary 查询运行记录列表
// @Tags Run
// @Produce json
// @Param repo query string true "仓库"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param branch query string false "分支"
// @Param workflow query string false "工作流名"
// @Param status query string false "状态"
// @Param conclusion query string false "结论"
// @Success 200 {object} utils.PageResponse{data=[]model.WorkflowRun}
// @Router /api/v1/runs [get]
func (h *RunHandler) List(c *gin.Context) {
	var query dto.RunListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorWithDetail(c, pkgErrors.CodeBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	runs, total, err := h.runService.List(c.Request.Context(), &query)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.PageSuccess(c, runs, total, query.GetPage(), query.GetPageSize())
}

// GetByGitID 获取运行记录详情
// @Summary 获取运行记录详情
// @Tags Run
// @Produce json
// @Param gitid path int true "GitHub 运行ID"
// @Success 200 {object} utils.Response{data=model.WorkflowRun}
// @Router /api/v1/runs/{gitid} [get]
func (h *RunHandler) GetByGitID(c *gin.Context) {
	gitID, err := strconv.ParseInt(c.Param("gitid"), 10, 64)
	if err != nil || gitID <= 0 {
		utils.ErrorWithCode(c, pkgErrors.CodeBadRequest, "无效的gitid")
		return
	}

	run, err := h.runService.GetByGitID(c.Request.Context(), gitID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, run)
}
