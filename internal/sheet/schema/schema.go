// Package schema derives a FormSchema from a worksheet grid and an optional
// configuration sheet.
//
// Row 0 of the main grid holds the column headers. A later row whose only
// non-empty cell is in column 0 opens a section; every other non-blank row
// yields one field per headed column. There is no escape for a genuine
// single-column data row: it is always read as a section header.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/infer"
)

// Config aspect column names, compared case-insensitively.
const (
	aspectType        = "type"
	aspectRequired    = "required"
	aspectValidation  = "validation"
	aspectOptions     = "options"
	aspectPlaceholder = "placeholder"
)

// Extract builds the schema for main, applying overrides from config when it
// is non-empty. Config problems never abort extraction; use ParseConfig
// directly to see them.
func Extract(main, config [][]any) sheet.FormSchema {
	cfg, _ := ParseConfig(config)
	return Build(main, cfg)
}

// Build builds the schema for main with already parsed field configs, keyed
// by Key(field name).
func Build(main [][]any, configs map[string]sheet.FieldConfig) sheet.FormSchema {
	out := sheet.FormSchema{
		Fields:   []sheet.FormField{},
		Sections: []sheet.FormSection{},
	}
	if len(main) == 0 {
		return out
	}
	headers := main[0]

	var current *sheet.FormSection
	for r := 1; r < len(main); r++ {
		row := main[r]
		if isBlankRow(row) {
			continue
		}
		if isSectionHeader(row) {
			out.Sections = append(out.Sections, sheet.FormSection{
				ID:     fmt.Sprintf("section_%d", len(out.Sections)),
				Name:   Text(row[0]),
				Fields: []string{},
			})
			current = &out.Sections[len(out.Sections)-1]
			continue
		}

		n := min(len(headers), len(row))
		for c := 0; c < n; c++ {
			name := strings.TrimSpace(Text(headers[c]))
			if name == "" {
				continue
			}
			f := newField(name, r, c, row[c], configs)
			out.Fields = append(out.Fields, f)
			if current != nil {
				current.Fields = append(current.Fields, f.ID)
			}
		}
	}

	out.Metadata = sheet.SchemaMetadata{
		TotalRows:    len(main),
		TotalColumns: len(headers),
		HasSections:  len(out.Sections) > 0,
	}
	return out
}

func newField(name string, row, col int, sample any, configs map[string]sheet.FieldConfig) sheet.FormField {
	f := sheet.FormField{
		ID:           fmt.Sprintf("field_%d_%d", row, col),
		Name:         name,
		Label:        name,
		Type:         string(infer.FieldType(sample)),
		Options:      []string{},
		DefaultValue: defaultValue(sample),
		Row:          row,
		Column:       col,
	}
	cfg, ok := configs[Key(name)]
	if !ok {
		return f
	}
	if cfg.Type != "" {
		f.Type = cfg.Type
	}
	f.Required = cfg.Required
	f.Validation = cfg.Validation
	if len(cfg.Options) > 0 {
		f.Options = cfg.Options
	}
	f.Placeholder = cfg.Placeholder
	return f
}

func defaultValue(v any) any {
	if isBlank(v) {
		return ""
	}
	return v
}

// isSectionHeader reports whether column 0 is the row's only non-empty cell.
func isSectionHeader(row []any) bool {
	if len(row) == 0 || isBlank(row[0]) {
		return false
	}
	for _, v := range row[1:] {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

func isBlankRow(row []any) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

func isBlank(v any) bool {
	return strings.TrimSpace(Text(v)) == ""
}

// Key is the lookup key for a field name in a parsed config.
func Key(name string) string {
	return sheet.Fold(name)
}

// Text renders a grid value as the text a user sees in the cell.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
