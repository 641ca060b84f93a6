package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/service"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/middleware"
	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

// Handlers 处理器集合
type Handlers struct {
	Form       *FormHandler
	Sheet      *SheetHandler
	Submission *SubmissionHandler
	Upload     *UploadHandler
	SSE        *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Form:       NewFormHandler(svc.Extraction, svc.Form),
		Sheet:      NewSheetHandler(svc.Extraction),
		Submission: NewSubmissionHandler(svc.Submission),
		Upload:     NewUploadHandler(svc.Attachment),
		SSE:        NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination 计算总页数
func NewPagination(page, pageSize int, total int64) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message, Data: data})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// 业务错误码
const (
	CodeRequiredSheetMissing = 42200
	CodeUpstreamUnavailable  = 50200
	CodeStorageUnavailable   = 50300
)

// HandleError 按错误类别返回响应
func HandleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorWithData(c, 40000, "提交内容校验失败", gin.H{"violations": verr.Violations})
	case errors.Is(err, graph.ErrInvalidURL), errors.Is(err, service.ErrInvalidKind):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrStorageNotConfigured):
		Error(c, CodeStorageUnavailable, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	default:
		switch sheet.KindOf(err) {
		case sheet.NotFound:
			NotFound(c, err.Error())
		case sheet.RequiredSheetMissing:
			Error(c, CodeRequiredSheetMissing, err.Error())
		case sheet.UpstreamUnavailable:
			Error(c, CodeUpstreamUnavailable, err.Error())
		case sheet.ValidationParseError:
			BadRequest(c, err.Error())
		default:
			InternalError(c, err.Error())
		}
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.KeyUserID)
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
