package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
)

// SnapshotStore 工作表元数据快照
type SnapshotStore interface {
	Upsert(ctx context.Context, s *entity.WorksheetSnapshot) error
	Find(ctx context.Context, url, worksheet string) (*entity.WorksheetSnapshot, error)
}

// SnapshotRepository 快照仓库
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建快照仓库
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

var _ SnapshotStore = (*SnapshotRepository)(nil)

// Upsert 按 (url, worksheet) 覆盖保存
func (r *SnapshotRepository) Upsert(ctx context.Context, s *entity.WorksheetSnapshot) error {
	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.New().String()[:32]
	}
	s.CreatedAt, s.UpdatedAt = now, now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}, {Name: "worksheet"}},
		DoUpdates: clause.AssignmentColumns([]string{"metadata", "updated_at"}),
	}).Create(s).Error
}

// Find 查找快照
func (r *SnapshotRepository) Find(ctx context.Context, url, worksheet string) (*entity.WorksheetSnapshot, error) {
	var s entity.WorksheetSnapshot
	err := r.db.WithContext(ctx).
		Where("url = ? AND worksheet = ?", url, worksheet).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
