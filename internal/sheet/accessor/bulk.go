package accessor

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet"
)

// Bulk downloads the workbook once per call and parses it locally.
type Bulk struct {
	client *graph.Client
	logger *zap.Logger
}

// NewBulk creates a bulk accessor.
func NewBulk(client *graph.Client, logger *zap.Logger) *Bulk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bulk{client: client, logger: logger}
}

func (b *Bulk) open(ctx context.Context, doc DocumentRef) (*Workbook, error) {
	data, err := resolved(ctx, b.client, doc, func(s *graph.Session, item graph.Item) ([]byte, error) {
		return s.Download(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	wb, err := OpenWorkbook(data, b.logger)
	if err != nil {
		return nil, sheet.Upstream("download", err)
	}
	return wb, nil
}

// ListWorksheets implements Accessor.
func (b *Bulk) ListWorksheets(ctx context.Context, doc DocumentRef) ([]sheet.WorksheetInfo, error) {
	wb, err := b.open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Worksheets(), nil
}

// UsedRange implements Accessor.
func (b *Bulk) UsedRange(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.UsedRange, error) {
	wb, err := b.open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.UsedRange(worksheet)
}

// Worksheet implements Accessor.
func (b *Bulk) Worksheet(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.WorksheetMetadata, error) {
	wb, err := b.open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Worksheet(worksheet)
}

// Local reads workbooks from the filesystem; the DocumentRef is a path.
type Local struct {
	logger *zap.Logger
}

// NewLocal creates a filesystem accessor.
func NewLocal(logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{logger: logger}
}

func (l *Local) open(ctx context.Context, path DocumentRef) (*Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sheet.NewError(sheet.NotFound, "open", "", fmt.Errorf("workbook %q: %w", path, err))
		}
		return nil, fmt.Errorf("read workbook %q: %w", path, err)
	}
	return OpenWorkbook(data, l.logger)
}

// ListWorksheets implements Accessor.
func (l *Local) ListWorksheets(ctx context.Context, path DocumentRef) ([]sheet.WorksheetInfo, error) {
	wb, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Worksheets(), nil
}

// UsedRange implements Accessor.
func (l *Local) UsedRange(ctx context.Context, path DocumentRef, worksheet string) (*sheet.UsedRange, error) {
	wb, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.UsedRange(worksheet)
}

// Worksheet implements Accessor.
func (l *Local) Worksheet(ctx context.Context, path DocumentRef, worksheet string) (*sheet.WorksheetMetadata, error) {
	wb, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Worksheet(worksheet)
}
