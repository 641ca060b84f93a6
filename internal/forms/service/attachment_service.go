package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bitfantasy/sheetform/internal/config"
)

// ErrStorageNotConfigured 未配置对象存储
var ErrStorageNotConfigured = errors.New("storage not configured")

// ObjectStore 对象存储（*minio.Client 满足该接口）
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Attachment 已上传的附件
type Attachment struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// AttachmentService 提交附件上传
type AttachmentService struct {
	store  ObjectStore
	bucket string
	now    func() time.Time
}

// NewAttachmentService 创建附件服务，store 为 nil 时上传返回 ErrStorageNotConfigured
func NewAttachmentService(store ObjectStore, bucket string) *AttachmentService {
	return &AttachmentService{store: store, bucket: bucket, now: time.Now}
}

// NewMinioClient 根据配置创建 MinIO 客户端，未配置 endpoint 时返回 nil
func NewMinioClient(cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

// Upload 上传附件，返回对象键供提交时在 files 中引用
func (s *AttachmentService) Upload(ctx context.Context, userID, filename string, size int64, contentType string, r io.Reader) (*Attachment, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	key := fmt.Sprintf("attachments/%s/%s/%s%s",
		userID, s.now().Format("2006/01/02"), uuid.New().String()[:8], strings.ToLower(filepath.Ext(filename)))

	_, err := s.store.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"filename": filename,
			"uploader": userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	return &Attachment{Key: key, Filename: filename, Size: size, ContentType: contentType}, nil
}
