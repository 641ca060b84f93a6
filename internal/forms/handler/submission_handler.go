package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/forms/service"
)

// SubmissionHandler 表单提交处理器
type SubmissionHandler struct {
	svc *service.SubmissionService
}

// NewSubmissionHandler 创建提交处理器
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

// Submit 提交表单
// POST /api/v1/forms/:id/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	res, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, res)
}

// List 表单下每个用户的最新提交
// GET /api/v1/forms/:id/submissions
func (h *SubmissionHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// History 当前用户的提交历史
// GET /api/v1/forms/:id/submissions/history
func (h *SubmissionHandler) History(c *gin.Context) {
	items, err := h.svc.History(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
