package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
)

// VersionStore is the part of the form store versioning reads and writes.
// Callers pass a store bound to the transaction that guards the form.
type VersionStore interface {
	LatestVersion(ctx context.Context, formID string, kind entity.VersionKind) (*entity.FormVersion, error)
	CreateVersion(ctx context.Context, v *entity.FormVersion) error
}

// VersionResult 版本判定结果
type VersionResult struct {
	Version int                 `json:"version"`
	Created bool                `json:"created"`
	Record  *entity.FormVersion `json:"-"`
}

// Versioner creates a new version of a form artifact only when its content
// changed. Display and entry versions are numbered independently from 1.
type Versioner struct {
	now func() time.Time
}

// NewVersioner 创建版本器
func NewVersioner() *Versioner {
	return &Versioner{now: time.Now}
}

// MaybeCreate compares payload with the latest (form, kind) version and
// stores it as latest+1 when they differ, or as 1 when there is none.
func (v *Versioner) MaybeCreate(ctx context.Context, store VersionStore, formID string, kind entity.VersionKind, payload any, actor string) (VersionResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return VersionResult{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	latest, err := store.LatestVersion(ctx, formID, kind)
	if err != nil {
		return VersionResult{}, fmt.Errorf("latest %s version: %w", kind, err)
	}

	next := 1
	if latest != nil {
		same, err := SamePayload(latest.Payload, data)
		if err != nil {
			return VersionResult{}, fmt.Errorf("compare %s payload: %w", kind, err)
		}
		if same {
			return VersionResult{Version: latest.Version, Record: latest}, nil
		}
		next = latest.Version + 1
	}

	now := v.now()
	rec := &entity.FormVersion{
		ID:        uuid.New().String()[:32],
		FormID:    formID,
		Kind:      kind,
		Version:   next,
		Payload:   datatypes.JSON(data),
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedBy: actor,
		UpdatedAt: now,
	}
	if err := store.CreateVersion(ctx, rec); err != nil {
		return VersionResult{}, fmt.Errorf("create %s version %d: %w", kind, next, err)
	}
	return VersionResult{Version: next, Created: true, Record: rec}, nil
}

// SamePayload reports whether two JSON documents decode to equal trees, so
// key order, whitespace and number spelling do not count as changes.
func SamePayload(a, b []byte) (bool, error) {
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, &y); err != nil {
		return false, err
	}
	return reflect.DeepEqual(x, y), nil
}
