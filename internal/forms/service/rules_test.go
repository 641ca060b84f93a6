package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

func ip(n int) *int { return &n }

func TestRuleEngineValidate(t *testing.T) {
	rules := map[string]sheet.FieldConfig{
		"age":   {Required: true, Validation: sheet.FieldValidation{Min: ip(0), Max: ip(150)}},
		"code":  {Validation: sheet.FieldValidation{Pattern: `^[A-Z]{3}$`, MaxLength: ip(3)}},
		"shift": {Options: []string{"Day", "Night"}},
	}
	tests := []struct {
		name   string
		values map[string]any
		want   []Violation
	}{
		{
			name:   "all valid",
			values: map[string]any{"Age": 30.0, "Code": "ABC", "Shift": "Night"},
		},
		{
			name:   "missing required",
			values: map[string]any{},
			want:   []Violation{{Field: "age", Rule: "required", Message: "is required"}},
		},
		{
			name:   "numeric string passes bounds",
			values: map[string]any{"age": " 42 "},
		},
		{
			name:   "out of range",
			values: map[string]any{"Age": -1.0},
			want:   []Violation{{Field: "Age", Rule: "min", Message: "must be at least 0"}},
		},
		{
			name:   "not a number",
			values: map[string]any{"Age": "old"},
			want: []Violation{
				{Field: "Age", Rule: "min", Message: "must be at least 0"},
				{Field: "Age", Rule: "max", Message: "must be at most 150"},
			},
		},
		{
			name:   "pattern and length",
			values: map[string]any{"Age": 1, "Code": "abcd"},
			want: []Violation{
				{Field: "Code", Rule: "maxLength", Message: "must have at most 3 characters"},
				{Field: "Code", Rule: "pattern", Message: "does not match ^[A-Z]{3}$"},
			},
		},
		{
			name:   "option",
			values: map[string]any{"Age": 1, "Shift": "Evening"},
			want:   []Violation{{Field: "Shift", Rule: "options", Message: "must be one of Day, Night"}},
		},
	}

	engine := NewRuleEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Validate(rules, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleEngineSkipsUncompilablePattern(t *testing.T) {
	rules := map[string]sheet.FieldConfig{
		"code": {Validation: sheet.FieldValidation{Pattern: `[A-Z`}},
		"age":  {Required: true},
	}
	got, err := NewRuleEngine().Validate(rules, map[string]any{"Code": "abc"})
	require.NoError(t, err)
	assert.Equal(t, []Violation{{Field: "age", Rule: "required", Message: "is required"}}, got)
}

func TestRuleEngineCachesPrograms(t *testing.T) {
	engine := NewRuleEngine()
	rules := map[string]sheet.FieldConfig{"a": {Required: true}}
	_, err := engine.Validate(rules, map[string]any{"a": "x"})
	require.NoError(t, err)
	_, ok := engine.cache.Load(`!blank`)
	assert.True(t, ok)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Violations: []Violation{{Field: "Age", Message: "is required"}, {Field: "Code", Message: "too long"}}}
	assert.Equal(t, "invalid submission: Age: is required; Code: too long", err.Error())
}
