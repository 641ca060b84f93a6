package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
)

// FormStore 表单与版本的持久化
type FormStore interface {
	CreateForm(ctx context.Context, f *entity.Form) error
	UpdateForm(ctx context.Context, f *entity.Form) error
	FindForm(ctx context.Context, id string) (*entity.Form, error)
	ListForms(ctx context.Context, page, pageSize int) ([]entity.Form, int64, error)

	LatestVersion(ctx context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error)
	LatestApproved(ctx context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error)
	FindVersion(ctx context.Context, formID string, kind entity.VersionKind, version int) (*entity.FormVersion, error)
	ListVersions(ctx context.Context, formID string, kind entity.VersionKind) ([]entity.FormVersion, error)
	CreateVersion(ctx context.Context, v *entity.FormVersion) error
	SaveVersion(ctx context.Context, v *entity.FormVersion) error

	// Transaction 在一个事务中执行 fn；lockFormID 非空时先对该表单行加 FOR UPDATE 锁
	Transaction(ctx context.Context, lockFormID string, fn func(tx FormStore) error) error
}

// FormRepository 表单仓库
type FormRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建表单仓库
func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

var _ FormStore = (*FormRepository)(nil)

// CreateForm 创建表单
func (r *FormRepository) CreateForm(ctx context.Context, f *entity.Form) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// UpdateForm 更新表单
func (r *FormRepository) UpdateForm(ctx context.Context, f *entity.Form) error {
	return r.db.WithContext(ctx).Save(f).Error
}

// FindForm 根据ID查找表单
func (r *FormRepository) FindForm(ctx context.Context, id string) (*entity.Form, error) {
	var f entity.Form
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// ListForms 分页列出表单，按创建时间倒序
func (r *FormRepository) ListForms(ctx context.Context, page, pageSize int) ([]entity.Form, int64, error) {
	var (
		forms []entity.Form
		total int64
	)
	q := r.db.WithContext(ctx).Model(&entity.Form{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * pageSize
	if err := q.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&forms).Error; err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

// LatestVersion 获取最新版本，不存在时返回 nil, nil
func (r *FormRepository) LatestVersion(ctx context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error) {
	var v entity.FormVersion
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND kind = ?", formID, kind).
		Order("version DESC").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// LatestApproved 获取最新的已审批版本，不存在时返回 nil, nil
func (r *FormRepository) LatestApproved(ctx context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error) {
	var v entity.FormVersion
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND kind = ? AND approved = ?", formID, kind, true).
		Order("version DESC").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindVersion 查找指定版本
func (r *FormRepository) FindVersion(ctx context.Context, formID string, kind entity.VersionKind, version int) (*entity.FormVersion, error) {
	var v entity.FormVersion
	err := r.db.WithContext(ctx).
		Where("form_id = ? AND kind = ? AND version = ?", formID, kind, version).
		First(&v).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// ListVersions 版本历史（不含内容），按版本号倒序
func (r *FormRepository) ListVersions(ctx context.Context, formID string, kind entity.VersionKind) ([]entity.FormVersion, error) {
	var vs []entity.FormVersion
	err := r.db.WithContext(ctx).
		Omit("payload").
		Where("form_id = ? AND kind = ?", formID, kind).
		Order("version DESC").
		Find(&vs).Error
	return vs, err
}

// CreateVersion 创建版本
func (r *FormRepository) CreateVersion(ctx context.Context, v *entity.FormVersion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// SaveVersion 保存版本（审批状态）
func (r *FormRepository) SaveVersion(ctx context.Context, v *entity.FormVersion) error {
	return r.db.WithContext(ctx).Save(v).Error
}

// Transaction 事务执行
func (r *FormRepository) Transaction(ctx context.Context, lockFormID string, fn func(tx FormStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lockFormID != "" {
			var f entity.Form
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", lockFormID).
				First(&f).Error
			if err != nil {
				return notFound(err)
			}
		}
		return fn(NewFormRepository(tx))
	})
}
