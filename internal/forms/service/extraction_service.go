package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/bitfantasy/sheetform/internal/forms/entity"
	"github.com/bitfantasy/sheetform/internal/forms/repository"
	"github.com/bitfantasy/sheetform/internal/forms/sse"
	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/accessor"
	"github.com/bitfantasy/sheetform/internal/sheet/entry"
	"github.com/bitfantasy/sheetform/internal/sheet/schema"
)

// SourceSharePoint 表单来源
const SourceSharePoint = "sharepoint"

// CreateFormRequest 创建表单请求
type CreateFormRequest struct {
	SharePointURL string `json:"sharepoint_url" binding:"required"`
	FormName      string `json:"form_name" binding:"required"`
}

// SchemaRequest 生成表单结构请求
type SchemaRequest struct {
	SharePointURL   string `json:"sharepoint_url" binding:"required"`
	MainSheetName   string `json:"main_sheet_name" binding:"required"`
	ConfigSheetName string `json:"config_sheet_name"`
}

// SheetNames 识别出的工作表
type SheetNames struct {
	Display string `json:"display"`
	Entry   string `json:"entry"`
	Config  string `json:"config,omitempty"`
}

// ExtractionResult 创建/同步结果
type ExtractionResult struct {
	FormID          string     `json:"form_id"`
	FormName        string     `json:"form_name"`
	DisplayVersion  int        `json:"display_version"`
	EntryVersion    int        `json:"entry_version"`
	VersionsUpdated []string   `json:"versions_updated"`
	Worksheets      SheetNames `json:"worksheets"`
}

// DetectSheets picks the display, entry and optional config worksheets by
// caseless substring. A name containing both "display" and "entry" is the
// display sheet. The first match of each kind wins.
func DetectSheets(ws []sheet.WorksheetInfo) (SheetNames, error) {
	var n SheetNames
	for _, w := range ws {
		switch {
		case sheet.ContainsFold(w.Name, "display"):
			if n.Display == "" {
				n.Display = w.Name
			}
		case sheet.ContainsFold(w.Name, "entry"):
			if n.Entry == "" {
				n.Entry = w.Name
			}
		case sheet.ContainsFold(w.Name, "config"):
			if n.Config == "" {
				n.Config = w.Name
			}
		}
	}
	if n.Display == "" || n.Entry == "" {
		names := make([]string, 0, len(ws))
		for _, w := range ws {
			names = append(names, w.Name)
		}
		return n, sheet.NewError(sheet.RequiredSheetMissing, "detect_sheets", "",
			fmt.Errorf("both 'display' and 'entry' worksheets are required, found [%s]", strings.Join(names, ", ")))
	}
	return n, nil
}

// extraction is everything read from the workbook for one create or sync.
type extraction struct {
	sheets  SheetNames
	display *sheet.WorksheetMetadata
	entry   []sheet.Record
	rules   map[string]sheet.FieldConfig
}

// ExtractionService 表单抽取服务
type ExtractionService struct {
	acc       accessor.Accessor
	forms     repository.FormStore
	snapshots repository.SnapshotStore
	versioner *Versioner
	hub       *sse.Hub
	logger    *zap.Logger
	now       func() time.Time
}

// NewExtractionService 创建抽取服务
func NewExtractionService(acc accessor.Accessor, forms repository.FormStore, snapshots repository.SnapshotStore, hub *sse.Hub, logger *zap.Logger) *ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionService{
		acc:       acc,
		forms:     forms,
		snapshots: snapshots,
		versioner: NewVersioner(),
		hub:       hub,
		logger:    logger,
		now:       time.Now,
	}
}

// read performs every remote read before anything is written.
func (s *ExtractionService) read(ctx context.Context, url string) (*extraction, error) {
	ws, err := s.acc.ListWorksheets(ctx, url)
	if err != nil {
		return nil, err
	}
	names, err := DetectSheets(ws)
	if err != nil {
		return nil, err
	}

	display, err := s.acc.Worksheet(ctx, url, names.Display)
	if err != nil {
		return nil, err
	}
	ur, err := s.acc.UsedRange(ctx, url, names.Entry)
	if err != nil {
		return nil, err
	}

	ex := &extraction{
		sheets:  names,
		display: display,
		entry:   entry.Extract(ur.Values),
		rules:   s.readConfig(ctx, url, names.Config),
	}
	// cancellation must stop the run before any version is committed
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ex, nil
}

// readConfig parses the config sheet. Any failure means no overrides.
func (s *ExtractionService) readConfig(ctx context.Context, url, name string) map[string]sheet.FieldConfig {
	if name == "" {
		return nil
	}
	ur, err := s.acc.UsedRange(ctx, url, name)
	if err != nil {
		s.logger.Warn("config sheet unreadable, continuing without overrides",
			zap.String("worksheet", name), zap.Error(err))
		return nil
	}
	cfg, errs := schema.ParseConfig(ur.Values)
	for _, e := range errs {
		s.logger.Warn("config rule dropped", zap.String("worksheet", name), zap.Error(e))
	}
	return cfg
}

func encodeRules(rules map[string]sheet.FieldConfig) (datatypes.JSON, error) {
	if rules == nil {
		rules = map[string]sheet.FieldConfig{}
	}
	b, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encode field rules: %w", err)
	}
	return datatypes.JSON(b), nil
}

// CreateForm reads the workbook and creates the form with display and
// entry version 1 in one transaction. Nothing is stored when a required
// worksheet is missing or any read fails.
func (s *ExtractionService) CreateForm(ctx context.Context, req CreateFormRequest, actor string) (*ExtractionResult, error) {
	ex, err := s.read(ctx, req.SharePointURL)
	if err != nil {
		return nil, err
	}
	rules, err := encodeRules(ex.rules)
	if err != nil {
		return nil, err
	}

	now := s.now()
	form := &entity.Form{
		ID:           uuid.New().String()[:32],
		Name:         req.FormName,
		Source:       SourceSharePoint,
		URL:          req.SharePointURL,
		DisplaySheet: ex.sheets.Display,
		EntrySheet:   ex.sheets.Entry,
		ConfigSheet:  ex.sheets.Config,
		FieldRules:   rules,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedBy:    actor,
		UpdatedAt:    now,
	}

	var display, entryRes VersionResult
	err = s.forms.Transaction(ctx, "", func(tx repository.FormStore) error {
		if err := tx.CreateForm(ctx, form); err != nil {
			return fmt.Errorf("create form: %w", err)
		}
		var err error
		if display, err = s.versioner.MaybeCreate(ctx, tx, form.ID, entity.KindDisplay, ex.display, actor); err != nil {
			return err
		}
		entryRes, err = s.versioner.MaybeCreate(ctx, tx, form.ID, entity.KindEntry, ex.entry, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("form created",
		zap.String("form_id", form.ID), zap.String("display_sheet", ex.sheets.Display), zap.String("entry_sheet", ex.sheets.Entry))
	s.hub.PublishFormUpdate(sse.FormUpdate{FormID: form.ID, Action: "created"})

	return &ExtractionResult{
		FormID:          form.ID,
		FormName:        form.Name,
		DisplayVersion:  display.Version,
		EntryVersion:    entryRes.Version,
		VersionsUpdated: []string{string(entity.KindDisplay), string(entity.KindEntry)},
		Worksheets:      ex.sheets,
	}, nil
}

// SyncForm re-extracts a form's workbook and adds a version for each kind
// whose content changed. The form row stays locked for the whole decision.
func (s *ExtractionService) SyncForm(ctx context.Context, formID, actor string) (*ExtractionResult, error) {
	form, err := s.forms.FindForm(ctx, formID)
	if err != nil {
		return nil, formNotFound("sync_form", formID, err)
	}
	ex, err := s.read(ctx, form.URL)
	if err != nil {
		return nil, err
	}
	rules, err := encodeRules(ex.rules)
	if err != nil {
		return nil, err
	}

	var display, entryRes VersionResult
	err = s.forms.Transaction(ctx, form.ID, func(tx repository.FormStore) error {
		form.DisplaySheet = ex.sheets.Display
		form.EntrySheet = ex.sheets.Entry
		form.ConfigSheet = ex.sheets.Config
		form.FieldRules = rules
		form.UpdatedBy = actor
		form.UpdatedAt = s.now()
		if err := tx.UpdateForm(ctx, form); err != nil {
			return fmt.Errorf("update form: %w", err)
		}
		var err error
		if display, err = s.versioner.MaybeCreate(ctx, tx, form.ID, entity.KindDisplay, ex.display, actor); err != nil {
			return err
		}
		entryRes, err = s.versioner.MaybeCreate(ctx, tx, form.ID, entity.KindEntry, ex.entry, actor)
		return err
	})
	if err != nil {
		return nil, formNotFound("sync_form", formID, err)
	}

	updated := []string{}
	for _, r := range []struct {
		kind entity.VersionKind
		res  VersionResult
	}{{entity.KindDisplay, display}, {entity.KindEntry, entryRes}} {
		if !r.res.Created {
			continue
		}
		updated = append(updated, string(r.kind))
		s.hub.PublishFormUpdate(sse.FormUpdate{FormID: form.ID, Kind: string(r.kind), Version: r.res.Version, Action: "version_created"})
	}
	s.logger.Info("form synced", zap.String("form_id", form.ID), zap.Strings("versions_updated", updated))

	return &ExtractionResult{
		FormID:          form.ID,
		FormName:        form.Name,
		DisplayVersion:  display.Version,
		EntryVersion:    entryRes.Version,
		VersionsUpdated: updated,
		Worksheets:      ex.sheets,
	}, nil
}

// ListWorksheets 列出工作簿中的工作表
func (s *ExtractionService) ListWorksheets(ctx context.Context, url string) ([]sheet.WorksheetInfo, error) {
	return s.acc.ListWorksheets(ctx, url)
}

// GenerateSchema builds a FormSchema from a main sheet and an optional
// config sheet. A config sheet that cannot be read is ignored.
func (s *ExtractionService) GenerateSchema(ctx context.Context, req SchemaRequest) (sheet.FormSchema, error) {
	main, err := s.acc.UsedRange(ctx, req.SharePointURL, req.MainSheetName)
	if err != nil {
		return sheet.FormSchema{}, err
	}
	cfg := s.readConfig(ctx, req.SharePointURL, req.ConfigSheetName)
	return schema.Build(main.Values, cfg), nil
}

// CellMetadata extracts a worksheet's complete metadata and saves it as the
// snapshot for (url, worksheet). A failed save is logged, not returned.
func (s *ExtractionService) CellMetadata(ctx context.Context, url, worksheet string) (*sheet.WorksheetMetadata, error) {
	md, err := s.acc.Worksheet(ctx, url, worksheet)
	if err != nil {
		return nil, err
	}
	if s.snapshots == nil {
		return md, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode worksheet metadata: %w", err)
	}
	snap := &entity.WorksheetSnapshot{URL: url, Worksheet: worksheet, Metadata: datatypes.JSON(data)}
	if err := s.snapshots.Upsert(ctx, snap); err != nil {
		s.logger.Warn("save worksheet snapshot failed", zap.String("worksheet", worksheet), zap.Error(err))
	}
	return md, nil
}

// Snapshot 读取已保存的工作表元数据
func (s *ExtractionService) Snapshot(ctx context.Context, url, worksheet string) (*entity.WorksheetSnapshot, error) {
	snap, err := s.snapshots.Find(ctx, url, worksheet)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, sheet.NewError(sheet.NotFound, "snapshot", worksheet, fmt.Errorf("no snapshot saved for %s", url))
		}
		return nil, err
	}
	return snap, nil
}

// formNotFound turns a repository miss into a NotFound error.
func formNotFound(op, formID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sheet.NewError(sheet.NotFound, op, "", fmt.Errorf("form %s: %w", formID, err))
	}
	return err
}
