// Package sheet holds the worksheet, cell and form-schema types shared by the
// extraction pipeline, and the error kinds it reports.
package sheet

// DataType 单元格语义类型
type DataType string

const (
	TypeEmpty    DataType = "empty"
	TypeBoolean  DataType = "boolean"
	TypeNumber   DataType = "number"
	TypeText     DataType = "text"
	TypeFormula  DataType = "formula"
	TypeDate     DataType = "date"
	TypeEmail    DataType = "email"
	TypeDecimal  DataType = "decimal"
	TypeTextarea DataType = "textarea"
	TypeUnknown  DataType = "unknown"
)

// WorksheetInfo 工作表基本信息
type WorksheetInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Visibility string `json:"visibility,omitempty"`
}

// UsedRange is the populated rectangle of a worksheet anchored at A1.
// Values, Formulas and Text are rectangular: RowCount rows of ColumnCount cells.
type UsedRange struct {
	Address     string     `json:"address"`
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
	Values      [][]any    `json:"values"`
	Formulas    [][]any    `json:"formulas,omitempty"`
	Text        [][]string `json:"text,omitempty"`
}

// Font 字体
type Font struct {
	Name          string  `json:"name"`
	Size          float64 `json:"size"`
	Bold          bool    `json:"bold"`
	Italic        bool    `json:"italic"`
	Underline     string  `json:"underline"`
	Strikethrough bool    `json:"strikethrough"`
	Subscript     bool    `json:"subscript"`
	Superscript   bool    `json:"superscript"`
	Color         string  `json:"color"`
	ThemeTint     float64 `json:"theme_tint"`
}

// Gradient 渐变填充
type Gradient struct {
	Type    string   `json:"type"`
	Shading int      `json:"shading"`
	Colors  []string `json:"colors"`
}

// Fill 填充
type Fill struct {
	Color        string   `json:"color"`
	PatternType  string   `json:"pattern_type"`
	PatternColor string   `json:"pattern_color"`
	Gradient     Gradient `json:"gradient"`
}

// Alignment 对齐
type Alignment struct {
	Horizontal   string `json:"horizontal"`
	Vertical     string `json:"vertical"`
	WrapText     bool   `json:"wrap_text"`
	Indent       int    `json:"indent"`
	TextRotation int    `json:"text_rotation"`
	ShrinkToFit  bool   `json:"shrink_to_fit"`
	ReadingOrder string `json:"reading_order"`
}

// Border 单边边框
type Border struct {
	Style  string `json:"style"`
	Color  string `json:"color"`
	Weight string `json:"weight"`
}

// Borders 四边边框
type Borders struct {
	Top    Border `json:"top"`
	Bottom Border `json:"bottom"`
	Left   Border `json:"left"`
	Right  Border `json:"right"`
}

// Protection 保护
type Protection struct {
	Locked        bool `json:"locked"`
	FormulaHidden bool `json:"formula_hidden"`
}

// Validation 数据验证
type Validation struct {
	Type             string `json:"type"`
	Operator         string `json:"operator"`
	Formula1         string `json:"formula1"`
	Formula2         string `json:"formula2"`
	IgnoreBlanks     bool   `json:"ignore_blanks"`
	ShowInputMessage bool   `json:"show_input_message"`
	ShowErrorAlert   bool   `json:"show_error_alert"`
	InputTitle       string `json:"input_title"`
	InputMessage     string `json:"input_message"`
	ErrorTitle       string `json:"error_title"`
	ErrorMessage     string `json:"error_message"`
}

// Comment 批注
type Comment struct {
	Author  string `json:"author"`
	Content string `json:"content"`
	// CreatedAt 仅Graph在线读取可得；xlsx旧式批注不记录时间，离线解析时为空
	CreatedAt string `json:"created_at"`
}

// Hyperlink 超链接
type Hyperlink struct {
	Address     string `json:"address"`
	DisplayText string `json:"display_text"`
}

// CellMetadata is the complete extracted state of one cell. Every nested
// structure is always present; absent information is the zero value.
type CellMetadata struct {
	Address      string     `json:"address"`
	Row          int        `json:"row"`
	Column       int        `json:"column"`
	Value        any        `json:"value"`
	Formula      string     `json:"formula"`
	DisplayValue string     `json:"display_value"`
	DataType     DataType   `json:"data_type"`
	NumberFormat string     `json:"number_format"`
	Font         Font       `json:"font"`
	Fill         Fill       `json:"fill"`
	Alignment    Alignment  `json:"alignment"`
	Borders      Borders    `json:"borders"`
	Protection   Protection `json:"protection"`
	Validation   Validation `json:"validation"`
	Comment      Comment    `json:"comment"`
	Hyperlink    Hyperlink  `json:"hyperlink"`
	ColumnWidth  float64    `json:"column_width"`
	RowHeight    float64    `json:"row_height"`
	ColumnHidden bool       `json:"column_hidden"`
	RowHidden    bool       `json:"row_hidden"`
	IsMerged     bool       `json:"is_merged"`
	Error        string     `json:"error,omitempty"`
}

// MergedCellRange 合并单元格区域
type MergedCellRange struct {
	Address  string `json:"address"`
	StartRow int    `json:"start_row"`
	StartCol int    `json:"start_col"`
	RowSpan  int    `json:"row_span"`
	ColSpan  int    `json:"col_span"`
}

// Dimensions 工作表尺寸
type Dimensions struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// WorksheetMetadata is the display artifact: a dense row-major grid of
// Rows*Columns cells plus merge information.
type WorksheetMetadata struct {
	WorksheetName string            `json:"worksheet_name"`
	Dimensions    Dimensions        `json:"dimensions"`
	Cells         []CellMetadata    `json:"cells"`
	MergedCells   []MergedCellRange `json:"merged_cells"`
	// MergedMembers maps the address of every non-anchor merged cell to the
	// address of its range.
	MergedMembers map[string]string `json:"merged_members"`
	RawValues     [][]any           `json:"raw_values,omitempty"`
}

// Cell returns the record at (row, col), or nil when out of bounds.
func (w *WorksheetMetadata) Cell(row, col int) *CellMetadata {
	if row < 0 || col < 0 || row >= w.Dimensions.Rows || col >= w.Dimensions.Columns {
		return nil
	}
	idx := row*w.Dimensions.Columns + col
	if idx >= len(w.Cells) {
		return nil
	}
	return &w.Cells[idx]
}

// FieldValidation 字段校验规则
type FieldValidation struct {
	Min       *int   `json:"min,omitempty"`
	Max       *int   `json:"max,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// IsZero reports whether no rule is set.
func (v FieldValidation) IsZero() bool {
	return v.Min == nil && v.Max == nil && v.MinLength == nil && v.MaxLength == nil && v.Pattern == ""
}

// FieldConfig is one row of a configuration sheet.
type FieldConfig struct {
	Type        string          `json:"type,omitempty"`
	Required    bool            `json:"required"`
	Validation  FieldValidation `json:"validation"`
	Options     []string        `json:"options,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
}

// FormField 表单字段
type FormField struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Label        string          `json:"label"`
	Type         string          `json:"type"`
	Required     bool            `json:"required"`
	Validation   FieldValidation `json:"validation"`
	Options      []string        `json:"options"`
	Placeholder  string          `json:"placeholder"`
	DefaultValue any             `json:"default_value"`
	Row          int             `json:"row"`
	Column       int             `json:"column"`
}

// FormSection 表单分组
type FormSection struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// SchemaMetadata 表单结构统计
type SchemaMetadata struct {
	TotalRows    int  `json:"total_rows"`
	TotalColumns int  `json:"total_columns"`
	HasSections  bool `json:"has_sections"`
}

// FormSchema 表单结构
type FormSchema struct {
	Fields   []FormField    `json:"fields"`
	Sections []FormSection  `json:"sections"`
	Metadata SchemaMetadata `json:"metadata"`
}

// Record is one entry-table row keyed by header text.
type Record map[string]any
