// Package color resolves cell colours from direct RGB values or theme
// palette slots with tint.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Theme slot indices.
const (
	Light1 = iota
	Dark1
	Light2
	Dark2
	Accent1
	Accent2
	Accent3
	Accent4
	Accent5
	Accent6
)

// Palette maps theme indices 0..9 to 6-digit RGB strings.
type Palette [10]string

// DefaultPalette is the Office 2013+ theme, used when a workbook carries none.
var DefaultPalette = Palette{
	Light1:  "FFFFFF",
	Dark1:   "000000",
	Light2:  "E7E6E6",
	Dark2:   "44546A",
	Accent1: "4472C4",
	Accent2: "ED7D31",
	Accent3: "A5A5A5",
	Accent4: "FFC000",
	Accent5: "5B9BD5",
	Accent6: "70AD47",
}

// Descriptor is the raw colour information of a font, fill or border.
type Descriptor struct {
	RGB   string
	Theme *int
	Tint  float64
}

// RGB builds a Descriptor for a direct colour.
func RGB(hex string) Descriptor {
	return Descriptor{RGB: hex}
}

// Themed builds a Descriptor for a theme slot with tint.
func Themed(index int, tint float64) Descriptor {
	return Descriptor{Theme: &index, Tint: tint}
}

// Resolve returns the effective 6-digit RGB colour, or "" when nothing can
// be resolved. "" means inherit the default.
func Resolve(d Descriptor, p Palette) string {
	if rgb := Normalize(d.RGB); rgb != "" {
		return rgb
	}
	if d.Theme == nil || *d.Theme < 0 || *d.Theme >= len(p) {
		return ""
	}
	base := Normalize(p[*d.Theme])
	if base == "" {
		return ""
	}
	return ApplyTint(base, d.Tint)
}

// Normalize strips "#" and a leading alpha byte and upper-cases the result.
// The all-zero ARGB sentinel and malformed values yield "".
func Normalize(hex string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hex == "00000000" {
		return ""
	}
	if len(hex) == 8 {
		hex = hex[2:]
	}
	if len(hex) != 6 {
		return ""
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return ""
	}
	return strings.ToUpper(hex)
}

// ApplyTint lightens (tint > 0) or darkens (tint < 0) each channel of a
// 6-digit RGB value.
func ApplyTint(rgb string, tint float64) string {
	if tint == 0 {
		return rgb
	}
	v, err := strconv.ParseUint(rgb, 16, 32)
	if err != nil || len(rgb) != 6 {
		return rgb
	}
	channels := [3]uint64{v >> 16 & 0xFF, v >> 8 & 0xFF, v & 0xFF}
	var out [3]int
	for i, c := range channels {
		out[i] = tintChannel(float64(c), tint)
	}
	return fmt.Sprintf("%02X%02X%02X", out[0], out[1], out[2])
}

func tintChannel(c, tint float64) int {
	var v float64
	if tint > 0 {
		v = c + (255-c)*tint
	} else {
		v = c * (1 + tint)
	}
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}
