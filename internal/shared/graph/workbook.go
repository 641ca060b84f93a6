package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

// =============================================================================
// 工作簿接口
// =============================================================================

// Worksheets 列出工作簿中的工作表
func (s *Session) Worksheets(ctx context.Context, item Item) ([]Worksheet, error) {
	var res collection[Worksheet]
	if err := s.doRequest(ctx, "list_worksheets", http.MethodGet, item.Workbook()+"/worksheets", nil, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// UsedRange 获取工作表已用区域
// 工作表不存在时返回 sheet.NotFound
func (s *Session) UsedRange(ctx context.Context, item Item, worksheet string) (*Range, error) {
	var r Range
	if err := s.doRequest(ctx, "used_range", http.MethodGet, item.Worksheet(worksheet)+"/usedRange", nil, &r); err != nil {
		return nil, withSheet(err, worksheet)
	}
	return &r, nil
}

// RangePath 单元格或区域地址
func RangePath(item Item, worksheet, address string) string {
	return fmt.Sprintf("%s/range(address='%s')", item.Worksheet(worksheet), url.PathEscape(address))
}

// Range 获取区域的值、公式和显示文本
func (s *Session) Range(ctx context.Context, rangePath string) (*Range, error) {
	var r Range
	if err := s.doRequest(ctx, "range", http.MethodGet, rangePath, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Format 获取区域格式
func (s *Session) Format(ctx context.Context, rangePath string) (*RangeFormat, error) {
	var f RangeFormat
	if err := s.doRequest(ctx, "format", http.MethodGet, rangePath+"/format", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Font 获取字体
func (s *Session) Font(ctx context.Context, rangePath string) (*RangeFont, error) {
	var f RangeFont
	if err := s.doRequest(ctx, "font", http.MethodGet, rangePath+"/format/font", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Fill 获取填充
func (s *Session) Fill(ctx context.Context, rangePath string) (*RangeFill, error) {
	var f RangeFill
	if err := s.doRequest(ctx, "fill", http.MethodGet, rangePath+"/format/fill", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Borders 获取边框
func (s *Session) Borders(ctx context.Context, rangePath string) ([]RangeBorder, error) {
	var res collection[RangeBorder]
	if err := s.doRequest(ctx, "borders", http.MethodGet, rangePath+"/format/borders", nil, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Protection 获取保护设置
func (s *Session) Protection(ctx context.Context, rangePath string) (*RangeProtection, error) {
	var p RangeProtection
	if err := s.doRequest(ctx, "protection", http.MethodGet, rangePath+"/format/protection", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DataValidation 获取数据验证，不存在时返回 nil, nil
func (s *Session) DataValidation(ctx context.Context, rangePath string) (*DataValidation, error) {
	var v DataValidation
	if err := s.optional(ctx, "data_validation", rangePath+"/dataValidation", &v); err != nil {
		return nil, err
	}
	if v.Type == "" {
		return nil, nil
	}
	return &v, nil
}

// Hyperlink 获取超链接，不存在时返回 nil, nil
func (s *Session) Hyperlink(ctx context.Context, rangePath string) (*Hyperlink, error) {
	var h Hyperlink
	if err := s.optional(ctx, "hyperlink", rangePath+"/hyperlink", &h); err != nil {
		return nil, err
	}
	if h.Address == "" && h.DocumentRef == "" {
		return nil, nil
	}
	return &h, nil
}

// Comment 获取批注，不存在时返回 nil, nil
func (s *Session) Comment(ctx context.Context, rangePath string) (*Comment, error) {
	var c Comment
	if err := s.optional(ctx, "comment", rangePath+"/comment", &c); err != nil {
		return nil, err
	}
	if c.Content == "" {
		return nil, nil
	}
	return &c, nil
}

// MergedAreas 获取工作表的合并区域，接口不可用时返回空
func (s *Session) MergedAreas(ctx context.Context, item Item, worksheet string) ([]MergedArea, error) {
	var res collection[MergedArea]
	if err := s.optional(ctx, "merged_cells", item.Worksheet(worksheet)+"/usedRange/mergedAreas", &res); err != nil {
		return nil, withSheet(err, worksheet)
	}
	return res.Value, nil
}

// Download 下载文件内容
func (s *Session) Download(ctx context.Context, item Item) ([]byte, error) {
	return s.do(ctx, "download", http.MethodGet, item.Content(), nil)
}

// optional 执行可选资源请求，404 视为不存在
func (s *Session) optional(ctx context.Context, op, path string, result any) error {
	err := s.doRequest(ctx, op, http.MethodGet, path, nil, result)
	if err != nil && sheet.KindOf(err) == sheet.NotFound {
		return nil
	}
	return err
}

func withSheet(err error, worksheet string) error {
	if e, ok := err.(*sheet.Error); ok && e.Sheet == "" {
		e.Sheet = worksheet
	}
	return err
}
