// Package cellref converts between zero-based (row, column) indices and
// spreadsheet "A1" notation.
package cellref

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode converts 0-based row and column indices to an address like "AB6".
// Negative input is a programmer error and panics.
func Encode(row, col int) string {
	if row < 0 || col < 0 {
		panic(fmt.Sprintf("cellref: negative index (row=%d, col=%d)", row, col))
	}
	return ColumnName(col) + strconv.Itoa(row+1)
}

// ColumnName converts a 0-based column index to letters.
// 0→"A", 25→"Z", 26→"AA", 702→"AAA"
func ColumnName(col int) string {
	if col < 0 {
		panic(fmt.Sprintf("cellref: negative column %d", col))
	}
	var buf [8]byte
	i := len(buf)
	col++
	for col > 0 {
		col--
		i--
		buf[i] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[i:])
}

// ColumnIndex converts column letters to a 0-based index. "A"→0, "AA"→26
func ColumnIndex(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, nil
}

// Decode is the inverse of Encode. It accepts "$" anchors and an optional
// "Sheet!" prefix.
func Decode(addr string) (row, col int, err error) {
	s := strings.TrimSpace(addr)
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.ReplaceAll(s, "$", "")

	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return 0, 0, fmt.Errorf("invalid cell address: %q", addr)
	}

	col, err = ColumnIndex(s[:i])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid row in cell address: %q", addr)
	}
	return n - 1, col, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// Range is an inclusive rectangle of cells.
type Range struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// ParseRange parses "A1:C3", "Sheet1!A1:C3" or a single cell "B2".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		s = s[idx+1:]
	}
	first, last, found := strings.Cut(s, ":")
	r1, c1, err := Decode(first)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if !found {
		return Range{StartRow: r1, StartCol: c1, EndRow: r1, EndCol: c1}, nil
	}
	r2, c2, err := Decode(last)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	return Range{StartRow: r1, StartCol: c1, EndRow: r2, EndCol: c2}, nil
}

// Rows returns the number of rows covered.
func (r Range) Rows() int { return r.EndRow - r.StartRow + 1 }

// Cols returns the number of columns covered.
func (r Range) Cols() int { return r.EndCol - r.StartCol + 1 }

// String formats the range as "A1:C3", or "A1" for a single cell.
func (r Range) String() string {
	first := Encode(r.StartRow, r.StartCol)
	if r.StartRow == r.EndRow && r.StartCol == r.EndCol {
		return first
	}
	return first + ":" + Encode(r.EndRow, r.EndCol)
}
