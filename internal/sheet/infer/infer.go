// Package infer classifies raw cell values into semantic data types using an
// ordered list of rules. The first matching rule wins.
package infer

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

// TextareaThreshold is the string length above which text becomes a textarea.
const TextareaThreshold = 100

var (
	digitsRe  = regexp.MustCompile(`^\d+$`)
	decimalRe = regexp.MustCompile(`^\d+\.\d+$`)
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	emailRe   = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
)

// Rule pairs a predicate with the type it yields.
type Rule struct {
	Name  string
	Match func(v any) bool
	Type  sheet.DataType
}

// Rules is the decision order. Inserting a rule at the right position is the
// only change needed to add a new type.
var Rules = []Rule{
	{Name: "empty", Match: isEmpty, Type: sheet.TypeEmpty},
	{Name: "bool", Match: isBool, Type: sheet.TypeBoolean},
	{Name: "numeric", Match: isNumeric, Type: sheet.TypeNumber},
	{Name: "digits", Match: stringMatches(digitsRe), Type: sheet.TypeNumber},
	{Name: "decimal", Match: stringMatches(decimalRe), Type: sheet.TypeDecimal},
	{Name: "date", Match: stringMatches(dateRe), Type: sheet.TypeDate},
	{Name: "email", Match: stringMatches(emailRe), Type: sheet.TypeEmail},
	{Name: "bool_word", Match: isBoolWord, Type: sheet.TypeBoolean},
	{Name: "long_text", Match: isLongText, Type: sheet.TypeTextarea},
	{Name: "text", Match: isString, Type: sheet.TypeText},
}

// Infer returns the data type of v.
func Infer(v any) sheet.DataType {
	for _, r := range Rules {
		if r.Match(v) {
			return r.Type
		}
	}
	return sheet.TypeUnknown
}

// InferCell is Infer for a cell whose storage marks formulas explicitly. A
// non-empty formula beginning with "=" makes the cell a formula cell.
func InferCell(v any, formula string) sheet.DataType {
	if strings.HasPrefix(formula, "=") {
		return sheet.TypeFormula
	}
	return Infer(v)
}

// FieldType infers an input type for a form field from a sample value. An
// empty sample gives a plain text field.
func FieldType(v any) sheet.DataType {
	t := Infer(trimmed(v))
	if t == sheet.TypeEmpty {
		return sheet.TypeText
	}
	return t
}

func trimmed(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func stringMatches(re *regexp.Regexp) func(any) bool {
	return func(v any) bool {
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}
}

func isBoolWord(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return true
	}
	return false
}

func isLongText(v any) bool {
	s, ok := v.(string)
	return ok && utf8.RuneCountInString(s) > TextareaThreshold
}
