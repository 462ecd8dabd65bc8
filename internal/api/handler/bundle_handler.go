package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"ci-dashboard/internal/service"
	pkgErrors "ci-dashboard/pkg/errors"
	"ci-dashboard/pkg/utils"
)

// BundleHandler 数据包处理器
type BundleHandler struct {
	bundleService service.BundleService
}

// NewBundleHandler 创建数据包处理器
func NewBundleHandler(bundleService service.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService}
}

// Import 导入数据包
// @Summary 导入数据包
// @Description 请求体为 JSON 或 YAML，格式由 format 参数或 Content-Type 决定
// @Tags Bundle
// @Accept json
// @Produce json
// @Param repo query string false "仓库，为空时使用数据包内的 repo"
// @Param format query string false "json 或 yaml"
// @Param request body dto.Bundle true "数据包"
// @Success 200 {object} utils.Response{data=dto.BundleImportResult}
// @Router /api/v1/bundle/import [post]
func (h *BundleHandler) Import(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.Error(c, pkgErrors.Wrap(pkgErrors.CodeBadRequest, "读取请求体失败", err))
		return
	}

	bundle, err := service.DecodeBundle(body, bundleFormat(c))
	if err != nil {
		utils.Error(c, err)
		return
	}

	result, err := h.bundleService.Import(c.Request.Context(), c.Query("repo"), bundle)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, result)
}

// Export 导出数据包
// @Summary 导出数据包
// @Tags Bundle
// @Produce json
// @Param repo query string true "仓库"
// @Param format query string false "json 或 yaml"
// @Success 200 {object} dto.Bundle
// @Router /api/v1/bundle/export [get]
func (h *BundleHandler) Export(c *gin.Context) {
	repo := c.Query("repo")
	format := bundleFormat(c)

	bundle, err := h.bundleService.Export(c.Request.Context(), repo)
	if err != nil {
		utils.Error(c, err)
		return
	}

	data, err := service.EncodeBundle(bundle, format)
	if err != nil {
		utils.Error(c, err)
		return
	}

	contentType := "application/json; charset=utf-8"
	ext := "json"
	if format == service.BundleFormatYAML {
		contentType = "application/yaml; charset=utf-8"
		ext = "yaml"
	}
	filename := strings.ReplaceAll(repo, "/", "_")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", filename, ext))
	c.Data(200, contentType, data)
}

func bundleFormat(c *gin.Context) string {
	if format := strings.ToLower(c.Query("format")); format != "" {
		if format == "yml" {
			return service.BundleFormatYAML
		}
		return format
	}
	if strings.Contains(c.ContentType(), "yaml") {
		return service.BundleFormatYAML
	}
	return service.BundleFormatJSON
}
