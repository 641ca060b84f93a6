package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/forms/service"
)

// UploadHandler 附件上传处理器
type UploadHandler struct {
	svc *service.AttachmentService
}

// NewUploadHandler 创建附件上传处理器
func NewUploadHandler(svc *service.AttachmentService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传附件，返回的 key 在提交时放入 files
// POST /api/v1/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "无法解析上传文件: "+err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		BadRequest(c, "没有上传文件")
		return
	}

	uploaded := make([]*service.Attachment, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			InternalError(c, "读取上传文件失败: "+err.Error())
			return
		}
		att, err := h.svc.Upload(c.Request.Context(), GetUserID(c), fh.Filename, fh.Size, fh.Header.Get("Content-Type"), src)
		src.Close()
		if err != nil {
			HandleError(c, err)
			return
		}
		uploaded = append(uploaded, att)
	}

	Success(c, uploaded)
}
