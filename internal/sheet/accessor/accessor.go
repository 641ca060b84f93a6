// Package accessor reads worksheets from a document store. Two strategies
// share one interface: Live issues Graph calls per cell over a bounded worker
// pool, Bulk downloads the file once and parses it with excelize.
package accessor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/config"
	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/normalize"
)

// DocumentRef identifies a workbook: a SharePoint URL for the Graph-backed
// strategies, a file path for Local.
type DocumentRef = string

// DefaultWorkers is the live strategy's pool size.
const DefaultWorkers = 8

// Strategy names.
const (
	StrategyLive = "live"
	StrategyBulk = "bulk"
)

// Accessor reads worksheets of a workbook.
type Accessor interface {
	ListWorksheets(ctx context.Context, doc DocumentRef) ([]sheet.WorksheetInfo, error)
	UsedRange(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.UsedRange, error)
	Worksheet(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.WorksheetMetadata, error)
}

// New returns the accessor selected by cfg.Strategy.
func New(cfg config.ExtractionConfig, client *graph.Client, logger *zap.Logger) (Accessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Strategy {
	case StrategyLive, "":
		return NewLive(client, cfg.Workers, logger), nil
	case StrategyBulk:
		return NewBulk(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", cfg.Strategy)
	}
}

// resolved resolves doc in a new session and runs fn against it. A cached
// resolution that answers 404 is evicted and fn runs once more against a
// fresh one.
func resolved[T any](ctx context.Context, client *graph.Client, doc DocumentRef, fn func(*graph.Session, graph.Item) (T, error)) (T, error) {
	var zero T
	s, err := client.Session(ctx)
	if err != nil {
		return zero, err
	}
	item, err := s.Resolve(ctx, doc)
	if err != nil {
		return zero, err
	}
	out, err := fn(s, item)
	if err == nil || !item.Cached || sheet.KindOf(err) != sheet.NotFound {
		return out, err
	}
	if ferr := client.Forget(ctx, doc); ferr != nil {
		return out, err
	}
	if item, err = s.Resolve(ctx, doc); err != nil {
		return zero, err
	}
	return fn(s, item)
}

func worksheetInfos(ws []graph.Worksheet) []sheet.WorksheetInfo {
	out := make([]sheet.WorksheetInfo, 0, len(ws))
	for _, w := range ws {
		out = append(out, sheet.WorksheetInfo{
			ID:         w.ID,
			Name:       w.Name,
			Position:   w.Position,
			Visibility: normalize.Token(w.Visibility),
		})
	}
	return out
}
