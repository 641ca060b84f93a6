package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

func TestExtract(t *testing.T) {
	got := Extract([][]any{
		{"Name", "Age"},
		{"Bob", "25"},
		{"Carol", "31"},
	})
	assert.Equal(t, []sheet.Record{
		{"Name": "Bob", "Age": "25"},
		{"Name": "Carol", "Age": "31"},
	}, got)
}

func TestExtractPadsShortRows(t *testing.T) {
	got := Extract([][]any{
		{"Name", 2024.0, nil},
		{"Carol"},
	})
	assert.Equal(t, []sheet.Record{{"Name": "Carol", "2024": nil, "": nil}}, got)
}

func TestExtractNeedsADataRow(t *testing.T) {
	for _, g := range [][][]any{nil, {{"Name", "Age"}}} {
		got := Extract(g)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestHeaders(t *testing.T) {
	assert.Equal(t, []string{"Qty", "1.5", "TRUE"}, Headers([][]any{{"Qty", 1.5, true}}))
	assert.Equal(t, []string{}, Headers(nil))
}
