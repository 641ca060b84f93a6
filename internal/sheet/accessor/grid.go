package accessor

import (
	"sort"

	"github.com/bitfantasy/sheetform/internal/sheet"
	"github.com/bitfantasy/sheetform/internal/sheet/cellref"
)

// mergeSet indexes the merged ranges of one worksheet.
type mergeSet struct {
	ranges  []sheet.MergedCellRange
	members map[string]string // non-anchor address -> range address
	anchors map[string]bool
}

func newMergeSet(addresses []string) mergeSet {
	ms := mergeSet{members: map[string]string{}, anchors: map[string]bool{}}
	seen := map[string]bool{}
	for _, a := range addresses {
		r, err := cellref.ParseRange(a)
		if err != nil || (r.Rows() == 1 && r.Cols() == 1) {
			continue
		}
		addr := r.String()
		if seen[addr] {
			continue
		}
		seen[addr] = true
		mr := sheet.MergedCellRange{
			Address:  addr,
			StartRow: r.StartRow,
			StartCol: r.StartCol,
			RowSpan:  r.Rows(),
			ColSpan:  r.Cols(),
		}
		ms.ranges = append(ms.ranges, mr)
		ms.anchors[cellref.Encode(r.StartRow, r.StartCol)] = true
		for row := r.StartRow; row <= r.EndRow; row++ {
			for col := r.StartCol; col <= r.EndCol; col++ {
				if row == r.StartRow && col == r.StartCol {
					continue
				}
				ms.members[cellref.Encode(row, col)] = addr
			}
		}
	}
	sort.Slice(ms.ranges, func(i, j int) bool {
		a, b := ms.ranges[i], ms.ranges[j]
		if a.StartRow != b.StartRow {
			return a.StartRow < b.StartRow
		}
		return a.StartCol < b.StartCol
	})
	return ms
}

func (m mergeSet) isMember(addr string) bool {
	_, ok := m.members[addr]
	return ok
}

func (m mergeSet) isAnchor(addr string) bool {
	return m.anchors[addr]
}

// list returns the ranges, never nil.
func (m mergeSet) list() []sheet.MergedCellRange {
	if m.ranges == nil {
		return []sheet.MergedCellRange{}
	}
	return m.ranges
}

// isBlank reports whether a grid value counts as empty.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// dimensions is the bounding box, anchored at A1, of all non-empty values
// and merged ranges. values[r][c] sits at (rowOff+r, colOff+c).
func dimensions(values [][]any, rowOff, colOff int, merges []sheet.MergedCellRange) sheet.Dimensions {
	var d sheet.Dimensions
	for r, row := range values {
		for c, v := range row {
			if isBlank(v) {
				continue
			}
			d.Rows = max(d.Rows, rowOff+r+1)
			d.Columns = max(d.Columns, colOff+c+1)
		}
	}
	for _, m := range merges {
		d.Rows = max(d.Rows, m.StartRow+m.RowSpan)
		d.Columns = max(d.Columns, m.StartCol+m.ColSpan)
	}
	return d
}

// grid re-anchors an offset block at A1 and pads it to dims. Missing
// entries become fill.
func grid[T any](src [][]T, rowOff, colOff int, dims sheet.Dimensions, fill T) [][]T {
	out := make([][]T, dims.Rows)
	for r := range out {
		row := make([]T, dims.Columns)
		for c := range row {
			row[c] = fill
			sr, sc := r-rowOff, c-colOff
			if sr >= 0 && sr < len(src) && sc >= 0 && sc < len(src[sr]) {
				row[c] = src[sr][sc]
			}
		}
		out[r] = row
	}
	return out
}

// blankNil replaces nil grid entries with "" so blanks look the same for
// both strategies.
func blankNil(g [][]any) [][]any {
	for _, row := range g {
		for c, v := range row {
			if v == nil {
				row[c] = ""
			}
		}
	}
	return g
}

func newMetadata(name string, dims sheet.Dimensions, ms mergeSet) *sheet.WorksheetMetadata {
	return &sheet.WorksheetMetadata{
		WorksheetName: name,
		Dimensions:    dims,
		Cells:         make([]sheet.CellMetadata, dims.Rows*dims.Columns),
		MergedCells:   ms.list(),
		MergedMembers: ms.members,
	}
}
