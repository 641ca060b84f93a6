package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/forms/service"
)

// FormHandler 表单处理器
type FormHandler struct {
	extraction *service.ExtractionService
	forms      *service.FormService
}

// NewFormHandler 创建表单处理器
func NewFormHandler(extraction *service.ExtractionService, forms *service.FormService) *FormHandler {
	return &FormHandler{extraction: extraction, forms: forms}
}

// Create 创建表单
// POST /api/v1/forms
func (h *FormHandler) Create(c *gin.Context) {
	var req service.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.extraction.CreateForm(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, res)
}

// List 表单列表
// GET /api/v1/forms?page=1&page_size=20
func (h *FormHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	forms, total, err := h.forms.List(c.Request.Context(), page, pageSize)
	if err != nil {
		InternalError(c, "获取表单列表失败: "+err.Error())
		return
	}
	Success(c, ListResponse{Items: forms, Pagination: NewPagination(page, pageSize, total)})
}

// Get 表单详情
// GET /api/v1/forms/:id
func (h *FormHandler) Get(c *gin.Context) {
	detail, err := h.forms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, detail)
}

// Sync 重新抽取工作簿
// POST /api/v1/forms/:id/sync
func (h *FormHandler) Sync(c *gin.Context) {
	res, err := h.extraction.SyncForm(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, res)
}

// Metadata 最新版本内容
// GET /api/v1/forms/:id/metadata/:kind
func (h *FormHandler) Metadata(c *gin.Context) {
	md, err := h.forms.Metadata(c.Request.Context(), c.Param("id"), c.Param("kind"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, md)
}

// Versions 版本历史
// GET /api/v1/forms/:id/versions/:kind
func (h *FormHandler) Versions(c *gin.Context) {
	vs, err := h.forms.Versions(c.Request.Context(), c.Param("id"), c.Param("kind"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": vs})
}

// Approve 审批版本
// POST /api/v1/forms/:id/versions/:kind/:version/approve
func (h *FormHandler) Approve(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		BadRequest(c, "版本号无效")
		return
	}
	v, err := h.forms.Approve(c.Request.Context(), c.Param("id"), c.Param("kind"), version, GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, v)
}
