package color

import (
	"fmt"
	"io"

	"github.com/unidoc/unioffice/schema/soo/dml"
	"github.com/unidoc/unioffice/spreadsheet"
)

// ReadPalette extracts the theme palette of an xlsx document. A workbook
// without a theme part yields DefaultPalette; slots the theme leaves unset
// keep their default value.
func ReadPalette(r io.ReaderAt, size int64) (Palette, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return DefaultPalette, fmt.Errorf("read workbook theme: %w", err)
	}
	defer wb.Close()
	return PaletteOf(wb), nil
}

// PaletteOf reads the first theme of an opened workbook.
func PaletteOf(wb *spreadsheet.Workbook) Palette {
	p := DefaultPalette
	themes := wb.Themes()
	if len(themes) == 0 || themes[0] == nil || themes[0].ThemeElements == nil {
		return p
	}
	scheme := themes[0].ThemeElements.ClrScheme
	if scheme == nil {
		return p
	}

	slots := map[int]*dml.CT_Color{
		Light1:  scheme.Lt1,
		Dark1:   scheme.Dk1,
		Light2:  scheme.Lt2,
		Dark2:   scheme.Dk2,
		Accent1: scheme.Accent1,
		Accent2: scheme.Accent2,
		Accent3: scheme.Accent3,
		Accent4: scheme.Accent4,
		Accent5: scheme.Accent5,
		Accent6: scheme.Accent6,
	}
	for idx, clr := range slots {
		if rgb := slotRGB(clr); rgb != "" {
			p[idx] = rgb
		}
	}
	return p
}

// slotRGB returns the direct sRGB value or a system colour's last known value.
func slotRGB(clr *dml.CT_Color) string {
	if clr == nil {
		return ""
	}
	if clr.SrgbClr != nil && clr.SrgbClr.ValAttr != "" {
		return Normalize(clr.SrgbClr.ValAttr)
	}
	if clr.SysClr != nil && clr.SysClr.LastClrAttr != nil {
		return Normalize(*clr.SysClr.LastClrAttr)
	}
	return ""
}
