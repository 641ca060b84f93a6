package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/forms/service"
)

// SheetHandler 工作表直读处理器
type SheetHandler struct {
	svc *service.ExtractionService
}

// NewSheetHandler 创建工作表处理器
func NewSheetHandler(svc *service.ExtractionService) *SheetHandler {
	return &SheetHandler{svc: svc}
}

// Worksheets 列出工作表
// GET /api/v1/sheets/worksheets?url=xxx
func (h *SheetHandler) Worksheets(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		BadRequest(c, "url 不能为空")
		return
	}
	ws, err := h.svc.ListWorksheets(c.Request.Context(), url)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": ws})
}

// CellMetadata 工作表完整单元格元数据，同时保存快照
// GET /api/v1/sheets/cell-metadata?url=xxx&worksheet=yyy
func (h *SheetHandler) CellMetadata(c *gin.Context) {
	url, worksheet := c.Query("url"), c.Query("worksheet")
	if url == "" || worksheet == "" {
		BadRequest(c, "url 和 worksheet 不能为空")
		return
	}
	md, err := h.svc.CellMetadata(c.Request.Context(), url, worksheet)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, md)
}

// Snapshot 已保存的快照
// GET /api/v1/sheets/snapshots?url=xxx&worksheet=yyy
func (h *SheetHandler) Snapshot(c *gin.Context) {
	url, worksheet := c.Query("url"), c.Query("worksheet")
	if url == "" || worksheet == "" {
		BadRequest(c, "url 和 worksheet 不能为空")
		return
	}
	snap, err := h.svc.Snapshot(c.Request.Context(), url, worksheet)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, snap)
}

// Schema 根据主表和配置表生成表单结构
// POST /api/v1/sheets/schema
func (h *SheetHandler) Schema(c *gin.Context) {
	var req service.SchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	fs, err := h.svc.GenerateSchema(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, fs)
}
