package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

var truthy = map[string]bool{"true": true, "yes": true, "1": true}

// ParseConfig reads a configuration sheet. Row 0 names the aspect columns;
// column 0 of every later row names the field it configures. Rows with fewer
// than two cells or no field name are ignored. Rules that fail to parse are
// dropped and reported; the rest of the field's config is kept.
func ParseConfig(grid [][]any) (map[string]sheet.FieldConfig, []error) {
	out := make(map[string]sheet.FieldConfig)
	if len(grid) < 2 {
		return out, nil
	}
	aspects := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		aspects[i] = sheet.Fold(Text(h))
	}

	var errs []error
	for _, row := range grid[1:] {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(Text(row[0]))
		if name == "" {
			continue
		}
		var fc sheet.FieldConfig
		for i := 1; i < len(aspects) && i < len(row); i++ {
			raw := strings.TrimSpace(Text(row[i]))
			if raw == "" {
				continue
			}
			switch aspects[i] {
			case aspectType:
				fc.Type = raw
			case aspectRequired:
				fc.Required = truthy[strings.ToLower(raw)]
			case aspectValidation:
				v, verrs := ParseValidation(raw)
				fc.Validation = v
				for _, err := range verrs {
					errs = append(errs, fmt.Errorf("field %q: %w", name, err))
				}
			case aspectOptions:
				fc.Options = splitOptions(raw)
			case aspectPlaceholder:
				fc.Placeholder = raw
			}
		}
		out[Key(name)] = fc
	}
	return out, errs
}

// ParseValidation parses "min:0;max:150;pattern:^\d+$". Keys are
// case-insensitive; unknown keys and pairs without ':' are ignored. A
// non-integer bound or a pattern that does not compile is dropped with a
// ValidationParseError.
func ParseValidation(s string) (sheet.FieldValidation, []error) {
	var v sheet.FieldValidation
	var errs []error
	for _, rule := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(rule, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var dst **int
		switch key {
		case "min":
			dst = &v.Min
		case "max":
			dst = &v.Max
		case "minlength":
			dst = &v.MinLength
		case "maxlength":
			dst = &v.MaxLength
		case "pattern":
			if _, err := regexp.Compile(value); err != nil {
				errs = append(errs, sheet.NewError(sheet.ValidationParseError, "config", "",
					fmt.Errorf("pattern %q: %w", value, err)))
				continue
			}
			v.Pattern = value
			continue
		default:
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, sheet.NewError(sheet.ValidationParseError, "config", "",
				fmt.Errorf("%s value %q is not an integer", key, value)))
			continue
		}
		*dst = &n
	}
	return v, errs
}

func splitOptions(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
