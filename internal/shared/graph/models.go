package graph

// =============================================================================
// Graph API 通用响应
// =============================================================================

// ErrorResponse Graph错误响应
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// collection Graph集合响应
type collection[T any] struct {
	Value []T `json:"value"`
}

// =============================================================================
// 站点 / 文件
// =============================================================================

// Site 站点
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// DriveItem 文档库条目
type DriveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

// =============================================================================
// 工作簿
// =============================================================================

// Worksheet 工作表
type Worksheet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Visibility string `json:"visibility"`
}

// Range 区域（usedRange 或单元格）
type Range struct {
	Address      string     `json:"address"`
	RowCount     int        `json:"rowCount"`
	ColumnCount  int        `json:"columnCount"`
	RowIndex     int        `json:"rowIndex"`
	ColumnIndex  int        `json:"columnIndex"`
	Values       [][]any    `json:"values"`
	Formulas     [][]any    `json:"formulas"`
	Text         [][]string `json:"text"`
	NumberFormat [][]any    `json:"numberFormat"`
	ValueTypes   [][]string `json:"valueTypes"`
	ColumnHidden bool       `json:"columnHidden"`
	RowHidden    bool       `json:"rowHidden"`
}

// RangeFormat 区域格式
type RangeFormat struct {
	ColumnWidth         float64 `json:"columnWidth"`
	RowHeight           float64 `json:"rowHeight"`
	HorizontalAlignment string  `json:"horizontalAlignment"`
	VerticalAlignment   string  `json:"verticalAlignment"`
	WrapText            bool    `json:"wrapText"`
	IndentLevel         int     `json:"indentLevel"`
	TextOrientation     int     `json:"textOrientation"`
	ShrinkToFit         bool    `json:"shrinkToFit"`
	ReadingOrder        string  `json:"readingOrder"`
}

// RangeFont 字体
type RangeFont struct {
	Name          string  `json:"name"`
	Size          float64 `json:"size"`
	Bold          bool    `json:"bold"`
	Italic        bool    `json:"italic"`
	Underline     string  `json:"underline"`
	Strikethrough bool    `json:"strikethrough"`
	Subscript     bool    `json:"subscript"`
	Superscript   bool    `json:"superscript"`
	Color         string  `json:"color"`
	TintAndShade  float64 `json:"tintAndShade"`
	ThemeColor    *int    `json:"themeColor"`
}

// RangeFill 填充
type RangeFill struct {
	Color        string  `json:"color"`
	Pattern      string  `json:"pattern"`
	PatternColor string  `json:"patternColor"`
	TintAndShade float64 `json:"tintAndShade"`
}

// RangeBorder 边框
type RangeBorder struct {
	SideIndex string `json:"sideIndex"`
	Style     string `json:"style"`
	Weight    string `json:"weight"`
	Color     string `json:"color"`
}

// RangeProtection 保护
type RangeProtection struct {
	Locked        bool `json:"locked"`
	FormulaHidden bool `json:"formulaHidden"`
}

// DataValidation 数据验证
type DataValidation struct {
	Type         string `json:"type"`
	IgnoreBlanks bool   `json:"ignoreBlanks"`
	Rule         struct {
		WholeNumber *ValidationRule `json:"wholeNumber"`
		Decimal     *ValidationRule `json:"decimal"`
		Date        *ValidationRule `json:"date"`
		Time        *ValidationRule `json:"time"`
		TextLength  *ValidationRule `json:"textLength"`
		List        *struct {
			InCellDropDown bool   `json:"inCellDropDown"`
			Source         string `json:"source"`
		} `json:"list"`
		Custom *struct {
			Formula string `json:"formula"`
		} `json:"custom"`
	} `json:"rule"`
	Prompt struct {
		ShowPrompt bool   `json:"showPrompt"`
		Title      string `json:"title"`
		Message    string `json:"message"`
	} `json:"prompt"`
	ErrorAlert struct {
		ShowAlert bool   `json:"showAlert"`
		Title     string `json:"title"`
		Message   string `json:"message"`
	} `json:"errorAlert"`
}

// ValidationRule 比较类验证规则
type ValidationRule struct {
	Formula1 string `json:"formula1"`
	Formula2 string `json:"formula2"`
	Operator string `json:"operator"`
}

// Hyperlink 超链接
type Hyperlink struct {
	Address       string `json:"address"`
	DocumentRef   string `json:"documentReference"`
	TextToDisplay string `json:"textToDisplay"`
}

// Comment 批注
type Comment struct {
	Author   string `json:"authorName"`
	Content  string `json:"content"`
	Created  string `json:"creationDate"`
	CellAddr string `json:"cellAddress"`
}

// MergedArea 合并区域
type MergedArea struct {
	Address string `json:"address"`
}
