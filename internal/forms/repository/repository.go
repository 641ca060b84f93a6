package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Form       *FormRepository
	Submission *SubmissionRepository
	Snapshot   *SnapshotRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Form:       NewFormRepository(db),
		Submission: NewSubmissionRepository(db),
		Snapshot:   NewSnapshotRepository(db),
	}
}

// AutoMigrate 迁移表单相关表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.All()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
