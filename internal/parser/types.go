package parser

// SheetKind 工作表类别
type SheetKind string

const (
	SheetInvoice SheetKind = "invoice"
	SheetPacking SheetKind = "packing"
)

// Grid 工作表只读视图，行列均为 1 基
// 由 excel 适配层提供，核心阶段只读不写
type Grid interface {
	// Cell 返回单元格文本值，越界返回空串
	Cell(row, col int) string
	// CellFormat 返回单元格显示格式串，无格式返回空串
	CellFormat(row, col int) string
	Rows() int
	Cols() int
	Name() string
}

// MatchSource 字段列的匹配来源
type MatchSource int

const (
	SourceHeader MatchSource = iota
	SourceSubHeader
	SourceDataRow
)

// ColumnMap 规范字段到 0 基列索引的映射，每表构建一次
// 映射完成后仅币制回退与单价/总价列位移会再调整
type ColumnMap struct {
	Kind          SheetKind
	Columns       map[string]int
	Sources       map[string]MatchSource
	HeaderRow     int
	DataStartRow  int
	SubHeaderUsed bool
}

// Col 返回字段的 0 基列索引
func (m *ColumnMap) Col(field string) (int, bool) {
	c, ok := m.Columns[field]
	return c, ok
}

// cellCol 返回字段对应的 1 基列号，未映射返回 0
func (m *ColumnMap) cellCol(field string) int {
	if c, ok := m.Columns[field]; ok {
		return c + 1
	}
	return 0
}

// 规范字段名
const (
	FieldPartNo    = "part_no"
	FieldPONo      = "po_no"
	FieldQty       = "qty"
	FieldPrice     = "price"
	FieldAmount    = "amount"
	FieldCurrency  = "currency"
	FieldCOO       = "coo"
	FieldCOD       = "cod"
	FieldBrand     = "brand"
	FieldBrandType = "brand_type"
	FieldModel     = "model"
	FieldInvNo     = "inv_no"
	FieldSerial    = "serial"
	FieldNW        = "nw"
	FieldGW        = "gw"
	FieldPack      = "pack"
)
