package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

// ErrInvalidKind 版本类别不合法
var ErrInvalidKind = errors.New("kind must be one of entry, display, both")

// KindBoth 同时返回 display 与 entry
const KindBoth = "both"

// FormDetail 表单及其最新版本
type FormDetail struct {
	Form    *entity.Form        `json:"form"`
	Display *entity.FormVersion `json:"display_version"`
	Entry   *entity.FormVersion `json:"entry_version"`
}

// VersionPayload 某一版本的内容
type VersionPayload struct {
	ID       string          `json:"id"`
	Version  int             `json:"version"`
	Approved bool            `json:"approved"`
	Data     json.RawMessage `json:"data"`
}

// Metadata 表单元数据响应
type Metadata struct {
	FormID   string          `json:"form_id"`
	FormName string          `json:"form_name"`
	Display  *VersionPayload `json:"display,omitempty"`
	Entry    *VersionPayload `json:"entry,omitempty"`
}

// FormService 表单查询与审批
type FormService struct {
	forms repository.FormStore
	hub   *sse.Hub
	now   func() time.Time
}

// NewFormService 创建表单服务
func NewFormService(forms repository.FormStore, hub *sse.Hub) *FormService {
	return &FormService{forms: forms, hub: hub, now: time.Now}
}

// List 分页列出表单
func (s *FormService) List(ctx context.Context, page, pageSize int) ([]entity.Form, int64, error) {
	return s.forms.ListForms(ctx, page, pageSize)
}

// Get 获取表单及最新的 display / entry 版本
func (s *FormService) Get(ctx context.Context, id string) (*FormDetail, error) {
	form, err := s.forms.FindForm(ctx, id)
	if err != nil {
		return nil, formNotFound("get_form", id, err)
	}
	d, err := s.forms.LatestVersion(ctx, id, entity.KindDisplay)
	if err != nil {
		return nil, err
	}
	e, err := s.forms.LatestVersion(ctx, id, entity.KindEntry)
	if err != nil {
		return nil, err
	}
	return &FormDetail{Form: form, Display: d, Entry: e}, nil
}

// ParseKind 校验 entry / display
func ParseKind(kind string) (entity.VersionKind, error) {
	k := entity.VersionKind(kind)
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Metadata returns the latest payload of kind, which is entry, display or
// both.
func (s *FormService) Metadata(ctx context.Context, id, kind string) (*Metadata, error) {
	var kinds []entity.VersionKind
	if kind == KindBoth {
		kinds = []entity.VersionKind{entity.KindDisplay, entity.KindEntry}
	} else {
		k, err := ParseKind(kind)
		if err != nil {
			return nil, err
		}
		kinds = []entity.VersionKind{k}
	}

	form, err := s.forms.FindForm(ctx, id)
	if err != nil {
		return nil, formNotFound("get_metadata", id, err)
	}
	out := &Metadata{FormID: form.ID, FormName: form.Name}
	for _, k := range kinds {
		v, err := s.forms.LatestVersion(ctx, id, k)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, sheet.NewError(sheet.NotFound, "get_metadata", "", fmt.Errorf("form %s has no %s version", id, k))
		}
		p := &VersionPayload{ID: v.ID, Version: v.Version, Approved: v.Approved, Data: json.RawMessage(v.Payload)}
		if k == entity.KindDisplay {
			out.Display = p
		} else {
			out.Entry = p
		}
	}
	return out, nil
}

// Versions 版本历史（不含内容）
func (s *FormService) Versions(ctx context.Context, id, kind string) ([]entity.FormVersion, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.forms.FindForm(ctx, id); err != nil {
		return nil, formNotFound("list_versions", id, err)
	}
	return s.forms.ListVersions(ctx, id, k)
}

// Approve 审批指定版本，已审批的版本保持不变
func (s *FormService) Approve(ctx context.Context, id, kind string, version int, actor string) (*entity.FormVersion, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	var out *entity.FormVersion
	err = s.forms.Transaction(ctx, id, func(tx repository.FormStore) error {
		v, err := tx.FindVersion(ctx, id, k, version)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return sheet.NewError(sheet.NotFound, "approve_version", "", fmt.Errorf("%s version %d of form %s", k, version, id))
			}
			return err
		}
		if !v.Approved {
			now := s.now()
			v.Approved = true
			v.ApprovedBy = actor
			v.ApprovedAt = &now
			v.UpdatedBy = actor
			v.UpdatedAt = now
			if err := tx.SaveVersion(ctx, v); err != nil {
				return fmt.Errorf("approve version: %w", err)
			}
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, formNotFound("approve_version", id, err)
	}
	s.hub.PublishFormUpdate(sse.FormUpdate{FormID: id, Kind: string(k), Version: version, Action: "version_approved"})
	return out, nil
}
