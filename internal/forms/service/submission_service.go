package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

// SubmitRequest 提交请求
type SubmitRequest struct {
	Values map[string]any    `json:"values" binding:"required"`
	Files  map[string]string `json:"files"`
}

// SubmissionResult 提交结果
type SubmissionResult struct {
	Submission     *entity.FormData `json:"submission"`
	HistoryVersion int              `json:"history_version"`
	EntryVersion   int              `json:"entry_version"`
}

// SubmissionService 表单提交服务
type SubmissionService struct {
	forms  repository.FormStore
	subs   repository.SubmissionStore
	rules  *RuleEngine
	hub    *sse.Hub
	logger *zap.Logger
}

// NewSubmissionService 创建提交服务
func NewSubmissionService(forms repository.FormStore, subs repository.SubmissionStore, hub *sse.Hub, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{forms: forms, subs: subs, rules: NewRuleEngine(), hub: hub, logger: logger}
}

// Submit stores values against the latest approved entry version. Field
// names must be entry headers when the entry table has any, and the form's
// config-sheet rules must hold.
func (s *SubmissionService) Submit(ctx context.Context, formID, userID string, req SubmitRequest) (*SubmissionResult, error) {
	form, err := s.forms.FindForm(ctx, formID)
	if err != nil {
		return nil, formNotFound("submit", formID, err)
	}
	ver, err := s.forms.LatestApproved(ctx, formID, entity.KindEntry)
	if err != nil {
		return nil, err
	}
	if ver == nil {
		return nil, sheet.NewError(sheet.NotFound, "submit", "", fmt.Errorf("form %s has no approved entry version", formID))
	}

	violations, err := s.validate(form, ver, req)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	values, err := json.Marshal(req.Values)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	files := req.Files
	if files == nil {
		files = map[string]string{}
	}
	fileData, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}

	data := &entity.FormData{
		FormID:         formID,
		EntryVersionID: ver.ID,
		Values:         datatypes.JSON(values),
		Files:          datatypes.JSON(fileData),
		CreatedBy:      userID,
	}
	hist, err := s.subs.Save(ctx, data)
	if err != nil {
		return nil, formNotFound("submit", formID, err)
	}

	s.logger.Info("submission saved",
		zap.String("form_id", formID), zap.String("user_id", userID), zap.Int("history_version", hist.Version))
	s.hub.PublishFormUpdate(sse.FormUpdate{FormID: formID, Action: "submitted"})
	return &SubmissionResult{Submission: data, HistoryVersion: hist.Version, EntryVersion: ver.Version}, nil
}

func (s *SubmissionService) validate(form *entity.Form, ver *entity.FormVersion, req SubmitRequest) ([]Violation, error) {
	var out []Violation

	if allowed := entryFields(ver.Payload); len(allowed) > 0 {
		names := make([]string, 0, len(req.Values)+len(req.Files))
		for k := range req.Values {
			names = append(names, k)
		}
		for k := range req.Files {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if !allowed[k] {
				out = append(out, Violation{Field: k, Rule: "unknown_field", Message: "is not a field of this form"})
			}
		}
	}

	var rules map[string]sheet.FieldConfig
	if len(form.FieldRules) > 0 {
		if err := json.Unmarshal(form.FieldRules, &rules); err != nil {
			return nil, fmt.Errorf("decode field rules: %w", err)
		}
	}
	if len(rules) == 0 {
		return out, nil
	}
	vs, err := s.rules.Validate(rules, req.Values)
	if err != nil {
		return nil, err
	}
	return append(out, vs...), nil
}

// entryFields collects the header names of an entry payload.
func entryFields(payload []byte) map[string]bool {
	var records []map[string]any
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil
	}
	out := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			out[k] = true
		}
	}
	return out
}

// List 表单下每个用户的最新提交
func (s *SubmissionService) List(ctx context.Context, formID string) ([]entity.FormData, error) {
	if _, err := s.forms.FindForm(ctx, formID); err != nil {
		return nil, formNotFound("list_submissions", formID, err)
	}
	return s.subs.ListLatest(ctx, formID)
}

// History 用户提交历史
func (s *SubmissionService) History(ctx context.Context, formID, userID string) ([]entity.FormDataHistory, error) {
	if _, err := s.forms.FindForm(ctx, formID); err != nil {
		return nil, formNotFound("submission_history", formID, err)
	}
	return s.subs.History(ctx, formID, userID)
}
