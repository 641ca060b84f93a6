// Package entry turns an entry-table grid into records keyed by header.
package entry

import (
	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/schema"
)

// Headers returns the stringified header row of grid.
func Headers(grid [][]any) []string {
	if len(grid) == 0 {
		return []string{}
	}
	out := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		out[i] = schema.Text(h)
	}
	return out
}

// Extract maps every row after the header to a record. Cells missing from a
// short row are nil. A grid without at least one data row yields an empty
// slice.
func Extract(grid [][]any) []sheet.Record {
	if len(grid) < 2 {
		return []sheet.Record{}
	}
	headers := Headers(grid)
	out := make([]sheet.Record, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rec := make(sheet.Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = nil
			}
		}
		out = append(out, rec)
	}
	return out
}
