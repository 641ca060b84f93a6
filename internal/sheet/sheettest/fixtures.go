// Package sheettest builds in-memory workbooks for tests.
package sheettest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet names used by the fixtures.
const (
	DisplaySheet = "Display Sheet"
	EntrySheet   = "Entry Sheet"
	ConfigSheet  = "Config"
)

// DisplayWorkbook creates a workbook whose display sheet is:
//
//	A1: "Name" (bold, yellow fill)  B1: "Age"           C1: "Email"
//	A2: "Alice" (comment)           B2: 30 (validated)  C2: "alice@example.com" (hyperlink)
//	A3: "Bob"                       B3: 25              C3: ""
//	A4: "Region North" merged over A4:C4
//	A5: "Total"                     B5: =SUM(B2:B3)
//
// plus an entry sheet with two rows and a config sheet typing Age as number.
func DisplayWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", DisplaySheet))
	s := DisplaySheet

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFFF00"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	require.NoError(t, err)

	rows := [][]any{
		{"Name", "Age", "Email"},
		{"Alice", 30, "alice@example.com"},
		{"Bob", 25, nil},
		{"Region North"},
		{"Total"},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(s, cell, &row))
	}
	require.NoError(t, f.SetCellStyle(s, "A1", "C1", header))
	require.NoError(t, f.MergeCell(s, "A4", "C4"))
	require.NoError(t, f.SetCellFormula(s, "B5", "SUM(B2:B3)"))

	require.NoError(t, f.AddComment(s, excelize.Comment{Cell: "A2", Author: "Ops", Text: "checked"}))
	require.NoError(t, f.SetCellHyperLink(s, "C2", "mailto:alice@example.com", "External"))

	dv := excelize.NewDataValidation(true)
	dv.Sqref = "B2:B3"
	require.NoError(t, dv.SetRange(0, 150, excelize.DataValidationTypeWhole, excelize.DataValidationOperatorBetween))
	require.NoError(t, f.AddDataValidation(s, dv))

	_, err = f.NewSheet(EntrySheet)
	require.NoError(t, err)
	entry := [][]any{
		{"Name", "Age"},
		{"Bob", 25},
		{"Carol"},
	}
	for r, row := range entry {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, f.SetSheetRow(EntrySheet, cell, &row))
	}

	_, err = f.NewSheet(ConfigSheet)
	require.NoError(t, err)
	config := [][]any{
		{"Field", "Type", "Required", "Validation", "Options", "Placeholder"},
		{"Age", "number", "yes", "min:0;max:150", "", "Years"},
		{"Name", "", "true", "minLength:2", "", ""},
	}
	for r, row := range config {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, f.SetSheetRow(ConfigSheet, cell, &row))
	}
	return f
}

// Bytes serialises a workbook.
func Bytes(t *testing.T, f *excelize.File) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// WriteFile saves a workbook into a temp dir and returns its path.
func WriteFile(t *testing.T, f *excelize.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, os.WriteFile(path, Bytes(t, f), 0o644))
	return path
}
