package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
)

// SubmissionStore 表单提交持久化
type SubmissionStore interface {
	// Save 覆盖用户的最新提交并追加一条历史，返回该历史记录
	Save(ctx context.Context, data *entity.FormData) (*entity.FormDataHistory, error)
	ListLatest(ctx context.Context, formID string) ([]entity.FormData, error)
	History(ctx context.Context, formID, userID string) ([]entity.FormDataHistory, error)
}

// SubmissionRepository 提交仓库
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提交仓库
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

var _ SubmissionStore = (*SubmissionRepository)(nil)

// Save 在同一事务中 upsert 最新提交、追加历史；表单行锁保证历史序号不重复
func (r *SubmissionRepository) Save(ctx context.Context, data *entity.FormData) (*entity.FormDataHistory, error) {
	var hist *entity.FormDataHistory
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f entity.Form
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", data.FormID).First(&f).Error; err != nil {
			return notFound(err)
		}

		now := time.Now()
		if data.ID == "" {
			data.ID = uuid.New().String()[:32]
		}
		data.CreatedAt, data.UpdatedAt = now, now
		data.UpdatedBy = data.CreatedBy
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "form_id"}, {Name: "created_by"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_version_id", "form_values", "files", "updated_by", "updated_at"}),
		}).Create(data).Error
		if err != nil {
			return err
		}
		// 冲突时 data.ID 仍是新生成的 ID，需按 (form_id, created_by) 读回已存在的行
		var cur entity.FormData
		if err := tx.Where("form_id = ? AND created_by = ?", data.FormID, data.CreatedBy).First(&cur).Error; err != nil {
			return err
		}
		*data = cur

		var last int
		err = tx.Model(&entity.FormDataHistory{}).
			Where("form_id = ? AND created_by = ?", data.FormID, data.CreatedBy).
			Select("COALESCE(MAX(version), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		hist = &entity.FormDataHistory{
			ID:             uuid.New().String()[:32],
			FormID:         data.FormID,
			EntryVersionID: data.EntryVersionID,
			Values:         data.Values,
			Files:          data.Files,
			Version:        last + 1,
			CreatedBy:      data.CreatedBy,
			CreatedAt:      now,
		}
		return tx.Create(hist).Error
	})
	if err != nil {
		return nil, err
	}
	return hist, nil
}

// ListLatest 表单下每个用户的最新提交
func (r *SubmissionRepository) ListLatest(ctx context.Context, formID string) ([]entity.FormData, error) {
	var out []entity.FormData
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

// History 用户在表单下的提交历史，按序号倒序
func (r *SubmissionRepository) History(ctx context.Context, formID, userID string) ([]entity.FormDataHistory, error) {
	var out []entity.FormDataHistory
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND created_by = ?", formID, userID).
		Order("version DESC").
		Find(&out).Error
	return out, err
}
