package service

import (
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet/accessor"
)

// Services 服务集合
type Services struct {
	Extraction *ExtractionService
	Form       *FormService
	Submission *SubmissionService
	Attachment *AttachmentService
}

// NewServices 创建服务集合；minioClient 为 nil 时附件上传不可用
func NewServices(acc accessor.Accessor, repos *repository.Repositories, minioClient *minio.Client, bucket string, hub *sse.Hub, logger *zap.Logger) *Services {
	var store ObjectStore
	if minioClient != nil {
		store = minioClient
	}
	return &Services{
		Extraction: NewExtractionService(acc, repos.Form, repos.Snapshot, hub, logger),
		Form:       NewFormService(repos.Form, hub),
		Submission: NewSubmissionService(repos.Form, repos.Submission, hub, logger),
		Attachment: NewAttachmentService(store, bucket),
	}
}
