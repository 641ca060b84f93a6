package accessor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/shared/graph"
	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/cellref"
	"github.com/bitfantasy/sheetform/internal/sheet/color"
	"github.com/bitfantasy/sheetform/internal/sheet/normalize"
)

// Live reads every cell through the Graph workbook API.
type Live struct {
	client  *graph.Client
	workers int
	logger  *zap.Logger
}

// NewLive creates a live accessor with the given pool size.
func NewLive(client *graph.Client, workers int, logger *zap.Logger) *Live {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{client: client, workers: workers, logger: logger}
}

// ListWorksheets implements Accessor.
func (l *Live) ListWorksheets(ctx context.Context, doc DocumentRef) ([]sheet.WorksheetInfo, error) {
	ws, err := resolved(ctx, l.client, doc, func(s *graph.Session, item graph.Item) ([]graph.Worksheet, error) {
		return s.Worksheets(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return worksheetInfos(ws), nil
}

// liveSheet is a used range re-anchored at A1 together with its merges and
// the worksheet name as stored in the workbook.
type liveSheet struct {
	name string
	ur   *sheet.UsedRange
	ms   mergeSet
}

// usedRange fetches the used range and merges and re-anchors them at A1.
func (l *Live) usedRange(ctx context.Context, s *graph.Session, item graph.Item, worksheet string) (liveSheet, error) {
	rg, err := s.UsedRange(ctx, item, worksheet)
	if err != nil {
		return liveSheet{}, err
	}
	areas, err := s.MergedAreas(ctx, item, worksheet)
	if err != nil {
		return liveSheet{}, err
	}
	addrs := make([]string, 0, len(areas))
	for _, a := range areas {
		addrs = append(addrs, a.Address)
	}
	ms := newMergeSet(addrs)

	var rowOff, colOff int
	if r, err := cellref.ParseRange(rg.Address); err == nil {
		rowOff, colOff = r.StartRow, r.StartCol
	}
	name := sheetOf(rg.Address)
	if name == "" {
		name = worksheet
	}
	dims := dimensions(rg.Values, rowOff, colOff, ms.ranges)
	return liveSheet{
		name: name,
		ms:   ms,
		ur: &sheet.UsedRange{
			Address:     usedAddress(dims),
			RowCount:    dims.Rows,
			ColumnCount: dims.Columns,
			Values:      blankNil(grid(rg.Values, rowOff, colOff, dims, any(""))),
			Formulas:    blankNil(grid(rg.Formulas, rowOff, colOff, dims, any(""))),
			Text:        grid(rg.Text, rowOff, colOff, dims, ""),
		},
	}, nil
}

// sheetOf returns the worksheet part of an address such as 'My Sheet'!A1:B2.
func sheetOf(addr string) string {
	i := strings.LastIndex(addr, "!")
	if i <= 0 {
		return ""
	}
	name := addr[:i]
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

func usedAddress(d sheet.Dimensions) string {
	if d.Rows == 0 || d.Columns == 0 {
		return ""
	}
	return "A1:" + cellref.Encode(d.Rows-1, d.Columns-1)
}

// UsedRange implements Accessor.
func (l *Live) UsedRange(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.UsedRange, error) {
	ls, err := resolved(ctx, l.client, doc, func(s *graph.Session, item graph.Item) (liveSheet, error) {
		return l.usedRange(ctx, s, item, worksheet)
	})
	if err != nil {
		return nil, err
	}
	return ls.ur, nil
}

type cellJob struct {
	idx      int
	row, col int
	merged   bool
}

// Worksheet implements Accessor. Cells are fetched concurrently and written
// to their row-major slot, so completion order does not matter.
func (l *Live) Worksheet(ctx context.Context, doc DocumentRef, worksheet string) (*sheet.WorksheetMetadata, error) {
	var (
		s    *graph.Session
		item graph.Item
	)
	ls, err := resolved(ctx, l.client, doc, func(ss *graph.Session, it graph.Item) (liveSheet, error) {
		s, item = ss, it
		return l.usedRange(ctx, ss, it, worksheet)
	})
	if err != nil {
		return nil, err
	}
	ur, ms, name := ls.ur, ls.ms, ls.name
	dims := sheet.Dimensions{Rows: ur.RowCount, Columns: ur.ColumnCount}
	md := newMetadata(name, dims, ms)
	md.RawValues = ur.Values

	jobs := make(chan cellJob)
	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				md.Cells[j.idx] = l.fetchCell(ctx, s, item, name, j)
			}
		}()
	}

dispatch:
	for r := 0; r < dims.Rows; r++ {
		for c := 0; c < dims.Columns; c++ {
			idx := r*dims.Columns + c
			addr := cellref.Encode(r, c)
			if ms.isMember(addr) {
				md.Cells[idx] = normalize.Empty(r, c, normalize.DefaultFormat(), true)
				continue
			}
			select {
			case jobs <- cellJob{idx: idx, row: r, col: c, merged: ms.isAnchor(addr)}:
			case <-ctx.Done():
				break dispatch
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := countPartial(md.Cells); n > 0 {
		l.logger.Warn("worksheet extracted with cell errors",
			zap.String("worksheet", name), zap.Int("cells", len(md.Cells)), zap.Int("failed", n))
	}
	return md, nil
}

func countPartial(cells []sheet.CellMetadata) int {
	n := 0
	for _, c := range cells {
		if c.Error != "" {
			n++
		}
	}
	return n
}

// fetchCell reads one cell. A failed value read yields an error-marked empty
// cell; failed formatting reads keep the value and mark the cell.
func (l *Live) fetchCell(ctx context.Context, s *graph.Session, item graph.Item, worksheet string, j cellJob) sheet.CellMetadata {
	addr := cellref.Encode(j.row, j.col)
	if ctx.Err() != nil {
		return normalize.Failed(j.row, j.col, ctx.Err())
	}
	rp := graph.RangePath(item, worksheet, addr)

	rg, err := s.Range(ctx, rp)
	if err != nil {
		return normalize.Failed(j.row, j.col, sheet.CellError(worksheet, addr, err))
	}

	raw := normalize.Raw{
		Row:     j.row,
		Col:     j.col,
		Value:   first(rg.Values),
		Formula: formulaOf(first(rg.Formulas)),
		Text:    firstText(rg.Text),
		Format:  normalize.DefaultFormat(),
		Merged:  j.merged,
	}
	if nf, ok := first(rg.NumberFormat).(string); ok {
		raw.Format.NumberFormat = nf
	}
	raw.Format.ColumnHidden = rg.ColumnHidden
	raw.Format.RowHidden = rg.RowHidden

	var failed []string
	note := func(what string, err error) {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", what, err))
		}
	}

	if f, err := s.Format(ctx, rp); err == nil {
		applyFormat(&raw.Format, f)
	} else {
		note("format", err)
	}
	if f, err := s.Font(ctx, rp); err == nil {
		raw.Format.Font = liveFont(f)
	} else {
		note("font", err)
	}
	if f, err := s.Fill(ctx, rp); err == nil {
		raw.Format.Fill = liveFill(f)
	} else {
		note("fill", err)
	}
	if b, err := s.Borders(ctx, rp); err == nil {
		raw.Format.Borders = liveBorders(b)
	} else {
		note("borders", err)
	}
	if p, err := s.Protection(ctx, rp); err == nil {
		raw.Format.Locked = p.Locked
		raw.Format.FormulaHidden = p.FormulaHidden
	} else {
		note("protection", err)
	}
	if v, err := s.DataValidation(ctx, rp); err == nil {
		if v != nil {
			raw.Extras.Validation = liveValidation(v)
		}
	} else {
		note("data validation", err)
	}
	if h, err := s.Hyperlink(ctx, rp); err == nil {
		if h != nil {
			raw.Extras.Hyperlink = sheet.Hyperlink{Address: firstNonEmpty(h.Address, h.DocumentRef), DisplayText: h.TextToDisplay}
		}
	} else {
		note("hyperlink", err)
	}
	if c, err := s.Comment(ctx, rp); err == nil {
		if c != nil {
			raw.Extras.Comment = sheet.Comment{Author: c.Author, Content: c.Content, CreatedAt: c.Created}
		}
	} else {
		note("comment", err)
	}

	if len(failed) > 0 {
		raw.Err = sheet.CellError(worksheet, addr, fmt.Errorf("%s", strings.Join(failed, "; ")))
	}
	return normalize.Cell(raw, color.DefaultPalette)
}

func applyFormat(dst *normalize.RawFormat, f *graph.RangeFormat) {
	dst.ColumnWidth = f.ColumnWidth
	dst.RowHeight = f.RowHeight
	dst.Horizontal = f.HorizontalAlignment
	dst.Vertical = f.VerticalAlignment
	dst.WrapText = f.WrapText
	dst.Indent = f.IndentLevel
	dst.TextRotation = f.TextOrientation
	dst.ShrinkToFit = f.ShrinkToFit
	dst.ReadingOrder = f.ReadingOrder
}

func liveFont(f *graph.RangeFont) normalize.RawFont {
	desc := color.RGB(f.Color)
	if f.ThemeColor != nil && desc.RGB == "" {
		desc = color.Themed(*f.ThemeColor, f.TintAndShade)
	}
	return normalize.RawFont{
		Name:        f.Name,
		Size:        f.Size,
		Bold:        f.Bold,
		Italic:      f.Italic,
		Underline:   f.Underline,
		Strike:      f.Strikethrough,
		Subscript:   f.Subscript,
		Superscript: f.Superscript,
		Color:       desc,
	}
}

func liveFill(f *graph.RangeFill) normalize.RawFill {
	if f.Pattern == "" || strings.EqualFold(f.Pattern, "None") {
		return normalize.RawFill{}
	}
	return normalize.RawFill{
		Color:        color.RGB(f.Color),
		PatternType:  f.Pattern,
		PatternColor: color.RGB(f.PatternColor),
	}
}

func liveBorders(bs []graph.RangeBorder) map[string]normalize.RawBorder {
	out := make(map[string]normalize.RawBorder, 4)
	for _, b := range bs {
		side := normalize.BorderSide(b.SideIndex)
		if side == "" {
			continue
		}
		out[side] = normalize.RawBorder{Style: b.Style, Weight: b.Weight, Color: color.RGB(b.Color)}
	}
	return out
}

func liveValidation(v *graph.DataValidation) sheet.Validation {
	out := sheet.Validation{
		Type:             v.Type,
		IgnoreBlanks:     v.IgnoreBlanks,
		ShowInputMessage: v.Prompt.ShowPrompt,
		ShowErrorAlert:   v.ErrorAlert.ShowAlert,
		InputTitle:       v.Prompt.Title,
		InputMessage:     v.Prompt.Message,
		ErrorTitle:       v.ErrorAlert.Title,
		ErrorMessage:     v.ErrorAlert.Message,
	}
	rule := v.Rule
	for _, r := range []*graph.ValidationRule{rule.WholeNumber, rule.Decimal, rule.Date, rule.Time, rule.TextLength} {
		if r != nil {
			out.Operator, out.Formula1, out.Formula2 = r.Operator, r.Formula1, r.Formula2
			break
		}
	}
	if rule.List != nil {
		out.Formula1 = rule.List.Source
	}
	if rule.Custom != nil {
		out.Formula1 = rule.Custom.Formula
	}
	return out
}

func first(g [][]any) any {
	if len(g) == 0 || len(g[0]) == 0 {
		return nil
	}
	return g[0][0]
}

func firstText(g [][]string) string {
	if len(g) == 0 || len(g[0]) == 0 {
		return ""
	}
	return g[0][0]
}

func formulaOf(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
