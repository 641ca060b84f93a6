// Package normalize assembles canonical CellMetadata records from raw
// accessor output. It performs no I/O.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/cellref"
	"github.com/bitfantasy/sheetform/internal/sheet/color"
	"github.com/bitfantasy/sheetform/internal/sheet/infer"
)

// RawFont is font information as read from a source.
type RawFont struct {
	Name        string
	Size        float64
	Bold        bool
	Italic      bool
	Underline   string
	Strike      bool
	Subscript   bool
	Superscript bool
	Color       color.Descriptor
}

// RawFill is fill information as read from a source.
type RawFill struct {
	Color           color.Descriptor
	PatternType     string
	PatternColor    color.Descriptor
	GradientType    string
	GradientShading int
	GradientColors  []string
}

// RawBorder is one border edge as read from a source.
type RawBorder struct {
	Style  string
	Weight string
	Color  color.Descriptor
}

// RawFormat is the formatting of one cell. Border keys may use either the
// Graph side names (EdgeTop) or plain names (top).
type RawFormat struct {
	NumberFormat  string
	Font          RawFont
	Fill          RawFill
	Horizontal    string
	Vertical      string
	WrapText      bool
	Indent        int
	TextRotation  int
	ShrinkToFit   bool
	ReadingOrder  string
	Borders       map[string]RawBorder
	Locked        bool
	FormulaHidden bool
	ColumnWidth   float64
	RowHeight     float64
	ColumnHidden  bool
	RowHidden     bool
}

// RawExtras holds the per-cell validation, comment and hyperlink.
type RawExtras struct {
	Validation sheet.Validation
	Comment    sheet.Comment
	Hyperlink  sheet.Hyperlink
}

// Raw is everything an accessor knows about one cell.
type Raw struct {
	Row     int
	Col     int
	Value   any
	Formula string
	Text    string
	Format  RawFormat
	Extras  RawExtras
	Merged  bool
	Err     error
}

// DefaultFormat is the formatting of an untouched cell.
func DefaultFormat() RawFormat {
	return RawFormat{
		NumberFormat: "General",
		Horizontal:   "general",
		Vertical:     "bottom",
		Locked:       true,
	}
}

// Cell builds the canonical record for one cell.
func Cell(raw Raw, palette color.Palette) sheet.CellMetadata {
	value := literal(raw.Value)
	formula := ""
	if strings.HasPrefix(raw.Formula, "=") {
		formula = raw.Formula
	}
	display := raw.Text
	if display == "" && value != nil {
		display = stringify(value)
	}

	f := raw.Format
	cm := sheet.CellMetadata{
		Address:      cellref.Encode(raw.Row, raw.Col),
		Row:          raw.Row,
		Column:       raw.Col,
		Value:        value,
		Formula:      formula,
		DisplayValue: display,
		DataType:     infer.InferCell(value, formula),
		NumberFormat: numberFormat(f.NumberFormat),
		Font: sheet.Font{
			Name:          f.Font.Name,
			Size:          f.Font.Size,
			Bold:          f.Font.Bold,
			Italic:        f.Font.Italic,
			Underline:     noneToEmpty(Token(f.Font.Underline)),
			Strikethrough: f.Font.Strike,
			Subscript:     f.Font.Subscript,
			Superscript:   f.Font.Superscript,
			Color:         color.Resolve(f.Font.Color, palette),
			ThemeTint:     f.Font.Color.Tint,
		},
		Fill: sheet.Fill{
			Color:        color.Resolve(f.Fill.Color, palette),
			PatternType:  noneToEmpty(Token(f.Fill.PatternType)),
			PatternColor: color.Resolve(f.Fill.PatternColor, palette),
			Gradient: sheet.Gradient{
				Type:    Token(f.Fill.GradientType),
				Shading: f.Fill.GradientShading,
				Colors:  gradientColors(f.Fill.GradientColors),
			},
		},
		Alignment: sheet.Alignment{
			Horizontal:   horizontal(f.Horizontal),
			Vertical:     defaultTo(Token(f.Vertical), "bottom"),
			WrapText:     f.WrapText,
			Indent:       f.Indent,
			TextRotation: f.TextRotation,
			ShrinkToFit:  f.ShrinkToFit,
			ReadingOrder: defaultTo(Token(f.ReadingOrder), "context"),
		},
		Borders:      borders(f.Borders, palette),
		Protection:   sheet.Protection{Locked: f.Locked, FormulaHidden: f.FormulaHidden},
		Validation:   validation(raw.Extras.Validation),
		Comment:      raw.Extras.Comment,
		Hyperlink:    raw.Extras.Hyperlink,
		ColumnWidth:  round2(f.ColumnWidth),
		RowHeight:    round2(f.RowHeight),
		ColumnHidden: f.ColumnHidden,
		RowHidden:    f.RowHidden,
		IsMerged:     raw.Merged,
	}
	if raw.Err != nil {
		cm.Error = raw.Err.Error()
	}
	return cm
}

// Empty builds the record for a cell with no content, such as a non-anchor
// member of a merged range.
func Empty(row, col int, format RawFormat, merged bool) sheet.CellMetadata {
	return Cell(Raw{Row: row, Col: col, Format: format, Merged: merged}, color.DefaultPalette)
}

// Failed builds the record for a cell whose fetch failed.
func Failed(row, col int, err error) sheet.CellMetadata {
	return Cell(Raw{Row: row, Col: col, Format: DefaultFormat(), Err: err}, color.DefaultPalette)
}

// Token folds enum spellings from different sources into lower_snake_case:
// "CenterAcrossSelection", "centerAcrossSelection" and "center across
// selection" all become "center_across_selection".
func Token(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

var synonyms = map[string]string{
	// alignment
	"center_continuous": "center_across_selection",
	// underline
	"single_accountant": "single_accounting",
	"double_accountant": "double_accounting",
	// validation types
	"whole": "whole_number",
	// validation operators
	"equal":                 "equal_to",
	"not_equal":             "not_equal_to",
	"greater_than_or_equal": "greater_than_or_equal_to",
	"less_than_or_equal":    "less_than_or_equal_to",
}

func canonical(s string) string {
	t := Token(s)
	if v, ok := synonyms[t]; ok {
		return v
	}
	return t
}

func horizontal(s string) string {
	return defaultTo(canonical(s), "general")
}

func noneToEmpty(s string) string {
	t := canonical(s)
	if t == "none" {
		return ""
	}
	return t
}

func defaultTo(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func numberFormat(s string) string {
	if s == "" {
		return "General"
	}
	return s
}

// BorderSide maps a source side name to top/bottom/left/right, or "".
func BorderSide(name string) string {
	t := Token(name)
	t = strings.TrimPrefix(t, "edge_")
	switch t {
	case "top", "bottom", "left", "right":
		return t
	}
	return ""
}

func borders(raw map[string]RawBorder, palette color.Palette) sheet.Borders {
	var out sheet.Borders
	for name, rb := range raw {
		b := sheet.Border{
			Style:  noneToEmpty(rb.Style),
			Weight: Token(rb.Weight),
			Color:  color.Resolve(rb.Color, palette),
		}
		if b.Style == "" {
			b = sheet.Border{}
		}
		switch BorderSide(name) {
		case "top":
			out.Top = b
		case "bottom":
			out.Bottom = b
		case "left":
			out.Left = b
		case "right":
			out.Right = b
		}
	}
	return out
}

func validation(v sheet.Validation) sheet.Validation {
	v.Type = noneToEmpty(v.Type)
	v.Operator = canonical(v.Operator)
	v.Formula1 = strings.TrimPrefix(v.Formula1, "=")
	v.Formula2 = strings.TrimPrefix(v.Formula2, "=")
	if v.Type == "" {
		return sheet.Validation{}
	}
	return v
}

func gradientColors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if rgb := color.Normalize(c); rgb != "" {
			out = append(out, rgb)
		}
	}
	return out
}

func literal(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func round2(f float64) float64 {
	if f == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}
