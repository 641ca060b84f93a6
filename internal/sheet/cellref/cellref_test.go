package cellref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "A1"},
		{0, 25, "Z1"},
		{0, 26, "AA1"},
		{5, 27, "AB6"},
		{9, 701, "ZZ10"},
		{0, 702, "AAA1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Encode(tt.row, tt.col), "Encode(%d, %d)", tt.row, tt.col)
	}
}

func TestEncodePanicsOnNegative(t *testing.T) {
	assert.Panics(t, func() { Encode(-1, 0) })
	assert.Panics(t, func() { Encode(0, -1) })
}

func TestRoundTrip(t *testing.T) {
	for row := 0; row < 1000; row++ {
		for col := 0; col < 700; col++ {
			r, c, err := Decode(Encode(row, col))
			if err != nil || r != row || c != col {
				t.Fatalf("round trip (%d, %d) -> %q -> (%d, %d, %v)", row, col, Encode(row, col), r, c, err)
			}
		}
	}
}

func TestDecodeVariants(t *testing.T) {
	row, col, err := Decode("$B$5")
	require.NoError(t, err)
	assert.Equal(t, 4, row)
	assert.Equal(t, 1, col)

	row, col, err = Decode("Sheet1!aa12")
	require.NoError(t, err)
	assert.Equal(t, 11, row)
	assert.Equal(t, 26, col)
}

func TestDecodeInvalid(t *testing.T) {
	for _, s := range []string{"", "A", "12", "A0", "A-1", "1A", "Ä1"} {
		_, _, err := Decode(s)
		assert.Error(t, err, "Decode(%q)", s)
	}
}

func TestColumnIndex(t *testing.T) {
	idx, err := ColumnIndex("ZZ")
	require.NoError(t, err)
	assert.Equal(t, 701, idx)

	_, err = ColumnIndex("")
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("Display!B2:D6")
	require.NoError(t, err)
	assert.Equal(t, Range{StartRow: 1, StartCol: 1, EndRow: 5, EndCol: 3}, r)
	assert.Equal(t, 5, r.Rows())
	assert.Equal(t, 3, r.Cols())
	assert.Equal(t, "B2:D6", r.String())

	single, err := ParseRange("C3")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Rows())
	assert.Equal(t, "C3", single.String())

	swapped, err := ParseRange("D6:B2")
	require.NoError(t, err)
	assert.Equal(t, r, swapped)

	_, err = ParseRange("A1:")
	assert.Error(t, err)
}
