package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/color"
)

func TestCellBasic(t *testing.T) {
	cm := Cell(Raw{Row: 1, Col: 2, Value: 30.0, Text: "30", Format: DefaultFormat()}, color.DefaultPalette)

	assert.Equal(t, "C2", cm.Address)
	assert.Equal(t, 30.0, cm.Value)
	assert.Equal(t, "30", cm.DisplayValue)
	assert.Equal(t, sheet.TypeNumber, cm.DataType)
	assert.Equal(t, "General", cm.NumberFormat)
	assert.Equal(t, "general", cm.Alignment.Horizontal)
	assert.Equal(t, "bottom", cm.Alignment.Vertical)
	assert.True(t, cm.Protection.Locked)
	assert.Empty(t, cm.Error)
}

func TestCellFormulaOnlyWithEquals(t *testing.T) {
	cm := Cell(Raw{Value: 3.0, Formula: "=A1+B1", Text: "3"}, color.DefaultPalette)
	assert.Equal(t, "=A1+B1", cm.Formula)
	assert.Equal(t, sheet.TypeFormula, cm.DataType)

	cm = Cell(Raw{Value: "plain", Formula: "plain", Text: "plain"}, color.DefaultPalette)
	assert.Empty(t, cm.Formula)
	assert.Equal(t, sheet.TypeText, cm.DataType)
}

func TestCellBlankValueIsNil(t *testing.T) {
	cm := Cell(Raw{Row: 0, Col: 0, Value: ""}, color.DefaultPalette)
	assert.Nil(t, cm.Value)
	assert.Equal(t, sheet.TypeEmpty, cm.DataType)
	assert.Equal(t, "", cm.DisplayValue)
}

func TestCellColorsResolved(t *testing.T) {
	f := DefaultFormat()
	f.Font.Color = color.Themed(color.Accent1, 0.5)
	f.Fill.Color = color.RGB("#ffff00")
	f.Fill.PatternType = "Solid"
	f.Borders = map[string]RawBorder{
		"EdgeTop":    {Style: "Continuous", Weight: "Thin", Color: color.RGB("FF000000")},
		"EdgeBottom": {Style: "None", Weight: "Thin"},
	}

	cm := Cell(Raw{Value: "x", Text: "x", Format: f}, color.DefaultPalette)
	assert.Equal(t, "A2B9E2", cm.Font.Color)
	assert.Equal(t, 0.5, cm.Font.ThemeTint)
	assert.Equal(t, "FFFF00", cm.Fill.Color)
	assert.Equal(t, "solid", cm.Fill.PatternType)
	assert.Equal(t, sheet.Border{Style: "continuous", Weight: "thin", Color: "000000"}, cm.Borders.Top)
	assert.Equal(t, sheet.Border{}, cm.Borders.Bottom)
	assert.Equal(t, sheet.Border{}, cm.Borders.Left)
}

func TestCellEnumVocabularyAgreesAcrossSources(t *testing.T) {
	graph := DefaultFormat()
	graph.Horizontal = "CenterAcrossSelection"
	graph.ReadingOrder = "LeftToRight"
	graph.Font.Underline = "SingleAccountant"

	workbook := DefaultFormat()
	workbook.Horizontal = "centerContinuous"
	workbook.ReadingOrder = "left_to_right"
	workbook.Font.Underline = "singleAccounting"

	a := Cell(Raw{Format: graph}, color.DefaultPalette)
	b := Cell(Raw{Format: workbook}, color.DefaultPalette)
	assert.Equal(t, a.Alignment, b.Alignment)
	assert.Equal(t, a.Font, b.Font)
	assert.Equal(t, "center_across_selection", a.Alignment.Horizontal)
	assert.Equal(t, "single_accounting", a.Font.Underline)
}

func TestCellValidation(t *testing.T) {
	cm := Cell(Raw{Extras: RawExtras{Validation: sheet.Validation{
		Type: "WholeNumber", Operator: "Between", Formula1: "=1", Formula2: "10",
	}}}, color.DefaultPalette)
	assert.Equal(t, "whole_number", cm.Validation.Type)
	assert.Equal(t, "between", cm.Validation.Operator)
	assert.Equal(t, "1", cm.Validation.Formula1)

	cm = Cell(Raw{Extras: RawExtras{Validation: sheet.Validation{Type: "whole", Operator: "greaterThanOrEqual"}}}, color.DefaultPalette)
	assert.Equal(t, "whole_number", cm.Validation.Type)
	assert.Equal(t, "greater_than_or_equal_to", cm.Validation.Operator)

	cm = Cell(Raw{Extras: RawExtras{Validation: sheet.Validation{Type: "None", Operator: "Between"}}}, color.DefaultPalette)
	assert.Equal(t, sheet.Validation{}, cm.Validation)
}

func TestFailedCarriesMarker(t *testing.T) {
	cm := Failed(3, 0, errors.New("boom"))
	assert.Equal(t, "A4", cm.Address)
	assert.Nil(t, cm.Value)
	assert.Equal(t, "boom", cm.Error)
}

func TestEmptyMergedMember(t *testing.T) {
	cm := Empty(0, 1, DefaultFormat(), true)
	assert.Equal(t, "B1", cm.Address)
	assert.True(t, cm.IsMerged)
	assert.Equal(t, sheet.TypeEmpty, cm.DataType)
}

func TestCellJSONIsTotal(t *testing.T) {
	data, err := json.Marshal(Empty(0, 0, DefaultFormat(), false))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"font", "fill", "alignment", "borders", "protection", "validation", "comment", "hyperlink"} {
		assert.IsType(t, map[string]any{}, m[key], key)
	}
	fill := m["fill"].(map[string]any)
	assert.Equal(t, []any{}, fill["gradient"].(map[string]any)["colors"])
	assert.NotContains(t, m, "error")
}

func TestToken(t *testing.T) {
	tests := map[string]string{
		"CenterAcrossSelection": "center_across_selection",
		"centerContinuous":      "center_continuous",
		"EdgeTop":               "edge_top",
		"Gray50":                "gray50",
		"SemiGray75":            "semi_gray75",
		"text length":           "text_length",
		"TextLength":            "text_length",
		"already_snake":         "already_snake",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Token(in), in)
	}
}

func TestBorderSide(t *testing.T) {
	assert.Equal(t, "top", BorderSide("EdgeTop"))
	assert.Equal(t, "left", BorderSide("left"))
	assert.Equal(t, "", BorderSide("DiagonalDown"))
	assert.Equal(t, "", BorderSide("InsideHorizontal"))
}
