package accessor

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/cellref"
	"github.com/bitfantasy/sheetform/internal/sheet/color"
	"github.com/bitfantasy/sheetform/internal/sheet/normalize"
)

// Workbook is a parsed xlsx file. It is not safe for concurrent use.
type Workbook struct {
	f       *excelize.File
	palette color.Palette
	font    string
}

// OpenWorkbook parses xlsx bytes. A missing or unreadable theme falls back to
// the default palette.
func OpenWorkbook(data []byte, logger *zap.Logger) (*Workbook, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	palette, err := color.ReadPalette(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn("workbook theme unreadable, using default palette", zap.Error(err))
	}
	font, err := f.GetDefaultFont()
	if err != nil || font == "" {
		font = "Calibri"
	}
	return &Workbook{f: f, palette: palette, font: font}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Worksheets lists the sheets in tab order.
func (w *Workbook) Worksheets() []sheet.WorksheetInfo {
	ids := map[string]int{}
	for id, name := range w.f.GetSheetMap() {
		ids[name] = id
	}
	names := w.f.GetSheetList()
	out := make([]sheet.WorksheetInfo, 0, len(names))
	for i, name := range names {
		vis := "visible"
		if ok, err := w.f.GetSheetVisible(name); err == nil && !ok {
			vis = "hidden"
		}
		out = append(out, sheet.WorksheetInfo{
			ID:         strconv.Itoa(ids[name]),
			Name:       name,
			Position:   i,
			Visibility: vis,
		})
	}
	return out
}

// sheetName finds the stored name of a worksheet, ignoring case.
func (w *Workbook) sheetName(name string) (string, error) {
	for _, n := range w.f.GetSheetList() {
		if sheet.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", sheet.NewError(sheet.NotFound, "worksheet", name, fmt.Errorf("worksheet %q does not exist", name))
}

func (w *Workbook) merges(name string) (mergeSet, error) {
	mcs, err := w.f.GetMergeCells(name)
	if err != nil {
		return mergeSet{}, fmt.Errorf("read merged cells: %w", err)
	}
	addrs := make([]string, 0, len(mcs))
	for _, mc := range mcs {
		addrs = append(addrs, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	return newMergeSet(addrs), nil
}

// UsedRange returns the populated rectangle anchored at A1.
func (w *Workbook) UsedRange(worksheet string) (*sheet.UsedRange, error) {
	ur, _, err := w.usedRange(worksheet)
	return ur, err
}

func (w *Workbook) usedRange(worksheet string) (*sheet.UsedRange, mergeSet, error) {
	name, err := w.sheetName(worksheet)
	if err != nil {
		return nil, mergeSet{}, err
	}
	rows, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, mergeSet{}, fmt.Errorf("read rows of %q: %w", name, err)
	}
	ms, err := w.merges(name)
	if err != nil {
		return nil, mergeSet{}, err
	}
	raw := make([][]any, len(rows))
	for r, row := range rows {
		raw[r] = make([]any, len(row))
		for c, v := range row {
			raw[r][c] = v
		}
	}
	dims := dimensions(raw, 0, 0, ms.ranges)

	ur := &sheet.UsedRange{
		Address:     usedAddress(dims),
		RowCount:    dims.Rows,
		ColumnCount: dims.Columns,
		Values:      make([][]any, dims.Rows),
		Formulas:    make([][]any, dims.Rows),
		Text:        make([][]string, dims.Rows),
	}
	for r := 0; r < dims.Rows; r++ {
		ur.Values[r] = make([]any, dims.Columns)
		ur.Formulas[r] = make([]any, dims.Columns)
		ur.Text[r] = make([]string, dims.Columns)
		for c := 0; c < dims.Columns; c++ {
			axis := cellref.Encode(r, c)
			v, err := w.value(name, axis)
			if err != nil {
				return nil, mergeSet{}, err
			}
			ur.Values[r][c] = v
			ur.Formulas[r][c] = v
			if f := w.formula(name, axis); f != "" {
				ur.Formulas[r][c] = f
			}
			ur.Text[r][c], _ = w.f.GetCellValue(name, axis)
		}
	}
	return ur, ms, nil
}

// value returns the typed literal of a cell; blanks are "".
func (w *Workbook) value(name, axis string) (any, error) {
	raw, err := w.f.GetCellValue(name, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s!%s: %w", name, axis, err)
	}
	if raw == "" {
		return "", nil
	}
	ct, err := w.f.GetCellType(name, axis)
	if err != nil {
		return raw, nil
	}
	switch ct {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
	}
	return raw, nil
}

func (w *Workbook) formula(name, axis string) string {
	f, err := w.f.GetCellFormula(name, axis)
	if err != nil || f == "" {
		return ""
	}
	if !strings.HasPrefix(f, "=") {
		f = "=" + f
	}
	return f
}

// Worksheet returns the complete metadata of one worksheet.
func (w *Workbook) Worksheet(worksheet string) (*sheet.WorksheetMetadata, error) {
	ur, ms, err := w.usedRange(worksheet)
	if err != nil {
		return nil, err
	}
	name, _ := w.sheetName(worksheet)
	dims := sheet.Dimensions{Rows: ur.RowCount, Columns: ur.ColumnCount}
	md := newMetadata(name, dims, ms)
	md.RawValues = ur.Values

	widths := make([]float64, dims.Columns)
	colHidden := make([]bool, dims.Columns)
	for c := range widths {
		col := cellref.ColumnName(c)
		if wd, err := w.f.GetColWidth(name, col); err == nil {
			widths[c] = columnPoints(wd)
		}
		if vis, err := w.f.GetColVisible(name, col); err == nil {
			colHidden[c] = !vis
		}
	}
	heights := make([]float64, dims.Rows)
	rowHidden := make([]bool, dims.Rows)
	for r := range heights {
		if h, err := w.f.GetRowHeight(name, r+1); err == nil {
			heights[r] = h
		}
		if vis, err := w.f.GetRowVisible(name, r+1); err == nil {
			rowHidden[r] = !vis
		}
	}

	comments := map[string]sheet.Comment{}
	if cs, err := w.f.GetComments(name); err == nil {
		for _, c := range cs {
			comments[strings.ToUpper(c.Cell)] = sheet.Comment{Author: c.Author, Content: c.Text}
		}
	}
	validations := w.validations(name, dims)

	for r := 0; r < dims.Rows; r++ {
		for c := 0; c < dims.Columns; c++ {
			idx := r*dims.Columns + c
			axis := cellref.Encode(r, c)
			if ms.isMember(axis) {
				md.Cells[idx] = normalize.Empty(r, c, normalize.DefaultFormat(), true)
				continue
			}
			raw := normalize.Raw{
				Row:     r,
				Col:     c,
				Value:   ur.Values[r][c],
				Formula: w.formula(name, axis),
				Text:    ur.Text[r][c],
				Format:  w.format(name, axis),
				Merged:  ms.isAnchor(axis),
			}
			raw.Format.ColumnWidth = widths[c]
			raw.Format.RowHeight = heights[r]
			raw.Format.ColumnHidden = colHidden[c]
			raw.Format.RowHidden = rowHidden[r]
			raw.Extras.Comment = comments[axis]
			raw.Extras.Validation = validations[axis]
			if ok, target, err := w.f.GetCellHyperLink(name, axis); err == nil && ok {
				raw.Extras.Hyperlink = sheet.Hyperlink{Address: target, DisplayText: ur.Text[r][c]}
			}
			md.Cells[idx] = normalize.Cell(raw, w.palette)
		}
	}
	return md, nil
}

// columnPoints converts an excelize character width to points, the unit
// Graph reports.
func columnPoints(chars float64) float64 {
	px := math.Trunc((256*chars + math.Trunc(128.0/7)) / 256 * 7)
	return px * 0.75
}

func (w *Workbook) format(name, axis string) normalize.RawFormat {
	f := normalize.DefaultFormat()
	f.Font = normalize.RawFont{Name: w.font, Size: 11, Color: color.Themed(color.Dark1, 0)}

	id, err := w.f.GetCellStyle(name, axis)
	if err != nil || id == 0 {
		return f
	}
	st, err := w.f.GetStyle(id)
	if err != nil || st == nil {
		return f
	}

	f.NumberFormat = numberFormat(st)
	if st.Font != nil {
		if st.Font.Family != "" {
			f.Font.Name = st.Font.Family
		}
		if st.Font.Size > 0 {
			f.Font.Size = st.Font.Size
		}
		f.Font.Bold = st.Font.Bold
		f.Font.Italic = st.Font.Italic
		f.Font.Underline = st.Font.Underline
		f.Font.Strike = st.Font.Strike
		f.Font.Subscript = st.Font.VertAlign == "subscript"
		f.Font.Superscript = st.Font.VertAlign == "superscript"
		switch {
		case st.Font.Color != "":
			f.Font.Color = color.RGB(st.Font.Color)
		case st.Font.ColorTheme != nil:
			f.Font.Color = color.Themed(*st.Font.ColorTheme, st.Font.ColorTint)
		}
	}
	f.Fill = fillOf(st.Fill)
	if st.Alignment != nil {
		a := st.Alignment
		f.Horizontal = a.Horizontal
		f.Vertical = verticalOf(a.Vertical)
		f.WrapText = a.WrapText
		f.Indent = a.Indent
		f.TextRotation = a.TextRotation
		f.ShrinkToFit = a.ShrinkToFit
		f.ReadingOrder = readingOrder(a.ReadingOrder)
	}
	if len(st.Border) > 0 {
		f.Borders = map[string]normalize.RawBorder{}
		for _, b := range st.Border {
			style, weight := borderStyle(b.Style)
			c := b.Color
			if c == "" {
				c = "000000"
			}
			f.Borders[b.Type] = normalize.RawBorder{Style: style, Weight: weight, Color: color.RGB(c)}
		}
	}
	if st.Protection != nil {
		f.Locked = st.Protection.Locked
		f.FormulaHidden = st.Protection.Hidden
	}
	return f
}

// excelize leaves the default vertical alignment empty.
func verticalOf(v string) string {
	if v == "" {
		return "bottom"
	}
	return v
}

func readingOrder(v uint64) string {
	switch v {
	case 1:
		return "left_to_right"
	case 2:
		return "right_to_left"
	default:
		return "context"
	}
}

// patternNames maps excelize pattern indices to the Graph vocabulary.
var patternNames = []string{
	"none", "solid", "gray50", "gray75", "gray25",
	"horizontal", "vertical", "down", "up", "checker", "semi_gray75",
	"light_horizontal", "light_vertical", "light_down", "light_up", "grid", "crisscross",
	"gray16", "gray8",
}

func fillOf(fl excelize.Fill) normalize.RawFill {
	switch fl.Type {
	case "pattern":
		if fl.Pattern <= 0 || fl.Pattern >= len(patternNames) {
			return normalize.RawFill{}
		}
		out := normalize.RawFill{PatternType: patternNames[fl.Pattern]}
		if len(fl.Color) > 0 {
			out.Color = color.RGB(fl.Color[0])
		}
		return out
	case "gradient":
		out := normalize.RawFill{GradientType: "linear", GradientShading: fl.Shading, GradientColors: fl.Color}
		if fl.Shading >= 6 {
			out.GradientType = "path"
		}
		if len(fl.Color) > 0 {
			out.Color = color.RGB(fl.Color[0])
		}
		return out
	}
	return normalize.RawFill{}
}

// borderStyle maps an excelize border style index to Graph style and weight.
func borderStyle(i int) (string, string) {
	switch i {
	case 1:
		return "continuous", "thin"
	case 2:
		return "continuous", "medium"
	case 3:
		return "dash", "thin"
	case 4:
		return "dot", "thin"
	case 5:
		return "continuous", "thick"
	case 6:
		return "double", "thick"
	case 7:
		return "continuous", "hairline"
	case 8:
		return "dash", "medium"
	case 9:
		return "dash_dot", "thin"
	case 10:
		return "dash_dot", "medium"
	case 11:
		return "dash_dot_dot", "thin"
	case 12:
		return "dash_dot_dot", "medium"
	case 13:
		return "slant_dash_dot", "medium"
	default:
		return "none", ""
	}
}

var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "m/d/yyyy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yyyy h:mm",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mm:ss.0",
	48: "##0.0E+0",
	49: "@",
}

func numberFormat(st *excelize.Style) string {
	if st.CustomNumFmt != nil && *st.CustomNumFmt != "" {
		return *st.CustomNumFmt
	}
	if f, ok := builtinFormats[st.NumFmt]; ok {
		return f
	}
	return "General"
}

// validations expands each data validation's sqref over the grid.
func (w *Workbook) validations(name string, dims sheet.Dimensions) map[string]sheet.Validation {
	out := map[string]sheet.Validation{}
	dvs, err := w.f.GetDataValidations(name)
	if err != nil {
		return out
	}
	for _, dv := range dvs {
		v := sheet.Validation{
			Type:             dv.Type,
			Operator:         dv.Operator,
			Formula1:         stripFormulaTag(dv.Formula1),
			Formula2:         stripFormulaTag(dv.Formula2),
			IgnoreBlanks:     dv.AllowBlank,
			ShowInputMessage: dv.ShowInputMessage,
			ShowErrorAlert:   dv.ShowErrorMessage,
			InputTitle:       deref(dv.PromptTitle),
			InputMessage:     deref(dv.Prompt),
			ErrorTitle:       deref(dv.ErrorTitle),
			ErrorMessage:     deref(dv.Error),
		}
		if v.Operator == "" && v.Type != "list" && v.Type != "custom" {
			v.Operator = "between"
		}
		for _, ref := range strings.Fields(dv.Sqref) {
			r, err := cellref.ParseRange(ref)
			if err != nil {
				continue
			}
			for row := r.StartRow; row <= r.EndRow && row < dims.Rows; row++ {
				for col := r.StartCol; col <= r.EndCol && col < dims.Columns; col++ {
					out[cellref.Encode(row, col)] = v
				}
			}
		}
	}
	return out
}

func stripFormulaTag(s string) string {
	s = strings.TrimPrefix(s, "<formula1>")
	s = strings.TrimSuffix(s, "</formula1>")
	s = strings.TrimPrefix(s, "<formula2>")
	s = strings.TrimSuffix(s, "</formula2>")
	return strings.Trim(s, `"`)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
