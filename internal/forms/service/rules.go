package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/schema"
)

// Violation 单个字段校验失败
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError 提交内容校验失败
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// check is one compiled-once rule. Every expression sees the same variables:
// blank, text, number, isNumber, length and the rule argument arg.
type check struct {
	rule    string
	code    string
	arg     any
	message string
}

func checksFor(cfg sheet.FieldConfig) []check {
	var out []check
	if cfg.Required {
		out = append(out, check{"required", `!blank`, nil, "is required"})
	}
	v := cfg.Validation
	if v.Min != nil {
		out = append(out, check{"min", `blank || (isNumber && number >= arg)`, *v.Min, fmt.Sprintf("must be at least %d", *v.Min)})
	}
	if v.Max != nil {
		out = append(out, check{"max", `blank || (isNumber && number <= arg)`, *v.Max, fmt.Sprintf("must be at most %d", *v.Max)})
	}
	if v.MinLength != nil {
		out = append(out, check{"minLength", `blank || length >= arg`, *v.MinLength, fmt.Sprintf("must have at least %d characters", *v.MinLength)})
	}
	if v.MaxLength != nil {
		out = append(out, check{"maxLength", `blank || length <= arg`, *v.MaxLength, fmt.Sprintf("must have at most %d characters", *v.MaxLength)})
	}
	// 旧版本存下的非法正则只跳过该条规则
	if _, err := regexp.Compile(v.Pattern); v.Pattern != "" && err == nil {
		out = append(out, check{"pattern", `blank || text matches arg`, v.Pattern, "does not match " + v.Pattern})
	}
	if len(cfg.Options) > 0 {
		opts := make([]any, len(cfg.Options))
		for i, o := range cfg.Options {
			opts[i] = o
		}
		out = append(out, check{"options", `blank || text in arg`, opts, "must be one of " + strings.Join(cfg.Options, ", ")})
	}
	return out
}

func env(value, arg any) map[string]any {
	text := strings.TrimSpace(schema.Text(value))
	n, isNumber := number(value)
	return map[string]any{
		"blank":    text == "",
		"text":     text,
		"number":   n,
		"isNumber": isNumber,
		"length":   utf8.RuneCountInString(text),
		"arg":      arg,
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// RuleEngine evaluates config-sheet field rules against submitted values.
type RuleEngine struct {
	cache sync.Map // expression -> *vm.Program
}

// NewRuleEngine 创建规则引擎
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (r *RuleEngine) program(code string, e map[string]any) (*vm.Program, error) {
	if p, ok := r.cache.Load(code); ok {
		return p.(*vm.Program), nil
	}
	p, err := expr.Compile(code, expr.Env(e), expr.AsBool())
	if err != nil {
		return nil, err
	}
	r.cache.Store(code, p)
	return p, nil
}

// Validate checks values against rules keyed by schema.Key(field). Values
// are matched to rules caselessly; a rule whose field was not submitted is
// evaluated against a blank value.
func (r *RuleEngine) Validate(rules map[string]sheet.FieldConfig, values map[string]any) ([]Violation, error) {
	byKey := make(map[string]string, len(values))
	for name := range values {
		byKey[schema.Key(name)] = name
	}

	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Violation
	for _, key := range keys {
		field, ok := byKey[key]
		var value any
		if ok {
			value = values[field]
		} else {
			field = key
		}
		for _, c := range checksFor(rules[key]) {
			e := env(value, c.arg)
			p, err := r.program(c.code, e)
			if err != nil {
				return nil, fmt.Errorf("compile %s rule: %w", c.rule, err)
			}
			res, err := expr.Run(p, e)
			if err != nil {
				return nil, fmt.Errorf("evaluate %s rule for %q: %w", c.rule, field, err)
			}
			if pass, _ := res.(bool); !pass {
				out = append(out, Violation{Field: field, Rule: c.rule, Message: c.message})
			}
		}
	}
	return out, nil
}
