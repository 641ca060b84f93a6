package entity

import (
	"time"

	"gorm.io/datatypes"
)

// VersionKind 版本类别
type VersionKind string

const (
	KindDisplay VersionKind = "display"
	KindEntry   VersionKind = "entry"
)

// Valid 是否为已知类别
func (k VersionKind) Valid() bool {
	return k == KindDisplay || k == KindEntry
}

// Form 由SharePoint工作簿生成的表单
type Form struct {
	ID           string         `json:"id" gorm:"primaryKey;size:32"`
	Name         string         `json:"form_name" gorm:"size:255;not null"`
	Source       string         `json:"source" gorm:"size:255"`
	URL          string         `json:"url" gorm:"type:text;not null"`
	DisplaySheet string         `json:"display_sheet" gorm:"size:255"`
	EntrySheet   string         `json:"entry_sheet" gorm:"size:255"`
	ConfigSheet  string         `json:"config_sheet" gorm:"size:255"`
	FieldRules   datatypes.JSON `json:"field_rules" gorm:"type:jsonb"`
	CreatedBy    string         `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedBy    string         `json:"updated_by" gorm:"size:64"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Form) TableName() string {
	return "forms"
}

// FormVersion 表单版本，display 与 entry 各自独立编号
type FormVersion struct {
	ID         string         `json:"id" gorm:"primaryKey;size:32"`
	FormID     string         `json:"form_id" gorm:"size:32;not null;uniqueIndex:idx_form_kind_version"`
	Form       *Form          `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Kind       VersionKind    `json:"kind" gorm:"size:16;not null;uniqueIndex:idx_form_kind_version"`
	Version    int            `json:"version" gorm:"not null;uniqueIndex:idx_form_kind_version"`
	Payload    datatypes.JSON `json:"data,omitempty" gorm:"type:jsonb;not null"`
	Approved   bool           `json:"approved" gorm:"not null;default:false"`
	ApprovedBy string         `json:"approved_by,omitempty" gorm:"size:64"`
	ApprovedAt *time.Time     `json:"approved_at,omitempty"`
	CreatedBy  string         `json:"created_by" gorm:"size:64;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedBy  string         `json:"updated_by,omitempty" gorm:"size:64"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (FormVersion) TableName() string {
	return "form_versions"
}

// FormData 用户对表单的最新提交，每个 (form, user) 一条
type FormData struct {
	ID             string         `json:"id" gorm:"primaryKey;size:32"`
	FormID         string         `json:"form_id" gorm:"size:32;not null;uniqueIndex:idx_form_data_user"`
	Form           *Form          `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	EntryVersionID string         `json:"entry_version_id" gorm:"size:32;not null"`
	Values         datatypes.JSON `json:"values" gorm:"column:form_values;type:jsonb;not null;default:'{}'"`
	Files          datatypes.JSON `json:"files" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedBy      string         `json:"created_by" gorm:"size:64;not null;uniqueIndex:idx_form_data_user"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedBy      string         `json:"updated_by" gorm:"size:64"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (FormData) TableName() string {
	return "form_data"
}

// FormDataHistory 提交历史（只追加），Version 在 (form, user) 内递增
type FormDataHistory struct {
	ID             string         `json:"id" gorm:"primaryKey;size:32"`
	FormID         string         `json:"form_id" gorm:"size:32;not null;uniqueIndex:idx_form_data_history_seq"`
	Form           *Form          `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	EntryVersionID string         `json:"entry_version_id" gorm:"size:32;not null"`
	Values         datatypes.JSON `json:"values" gorm:"column:form_values;type:jsonb;not null;default:'{}'"`
	Files          datatypes.JSON `json:"files" gorm:"type:jsonb;not null;default:'{}'"`
	Version        int            `json:"version" gorm:"not null;uniqueIndex:idx_form_data_history_seq"`
	CreatedBy      string         `json:"created_by" gorm:"size:64;not null;uniqueIndex:idx_form_data_history_seq"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (FormDataHistory) TableName() string {
	return "form_data_history"
}

// WorksheetSnapshot 已保存的工作表元数据
type WorksheetSnapshot struct {
	ID        string         `json:"id" gorm:"primaryKey;size:32"`
	URL       string         `json:"url" gorm:"size:1024;not null;uniqueIndex:idx_snapshot_url_sheet"`
	Worksheet string         `json:"worksheet" gorm:"size:255;not null;uniqueIndex:idx_snapshot_url_sheet"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (WorksheetSnapshot) TableName() string {
	return "worksheet_snapshots"
}

// All 需要迁移的实体
func All() []any {
	return []any{&Form{}, &FormVersion{}, &FormData{}, &FormDataHistory{}, &WorksheetSnapshot{}}
}
