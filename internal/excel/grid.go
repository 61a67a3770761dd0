package excel

import (
	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
)

// 常见内置数字格式编号到格式串的对照，未列出的按通用格式处理
var builtinNumFmts = map[int]string{
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	37: "#,##0",
	38: "#,##0",
	39: "#,##0.00",
	40: "#,##0.00",
}

// SheetGrid 工作表只读快照，实现核心层的 Grid 接口
// 单元格文本与合并范围在构建时一次读出，之后不再访问工作簿
type SheetGrid struct {
	file   *excelize.File
	sheet  string
	rows   [][]string
	cols   int
	merges []model.MergeRange

	fmtCache map[[2]int]string
}

// NewSheetGrid 读取工作表构建快照，合并范围先于其他任何读取捕获
func NewSheetGrid(f *excelize.File, sheet string) (*SheetGrid, error) {
	mergeCells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}
	merges := make([]model.MergeRange, 0, len(mergeCells))
	for _, mc := range mergeCells {
		left, top, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		right, bottom, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		merges = append(merges, model.MergeRange{Top: top, Left: left, Bottom: bottom, Right: right})
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	return &SheetGrid{
		file:     f,
		sheet:    sheet,
		rows:     rows,
		cols:     cols,
		merges:   merges,
		fmtCache: make(map[[2]int]string),
	}, nil
}

// Cell 返回单元格文本值，越界返回空串
func (g *SheetGrid) Cell(row, col int) string {
	if row < 1 || col < 1 || row > len(g.rows) {
		return ""
	}
	r := g.rows[row-1]
	if col > len(r) {
		return ""
	}
	return r[col-1]
}

// CellFormat 返回单元格的数字显示格式串，通用格式返回空串
func (g *SheetGrid) CellFormat(row, col int) string {
	key := [2]int{row, col}
	if fmtStr, ok := g.fmtCache[key]; ok {
		return fmtStr
	}
	fmtStr := g.lookupFormat(row, col)
	g.fmtCache[key] = fmtStr
	return fmtStr
}

func (g *SheetGrid) lookupFormat(row, col int) string {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	styleID, err := g.file.GetCellStyle(g.sheet, axis)
	if err != nil {
		return ""
	}
	style, err := g.file.GetStyle(styleID)
	if err != nil || style == nil {
		return ""
	}
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return *style.CustomNumFmt
	}
	return builtinNumFmts[style.NumFmt]
}

// Rows 行数
func (g *SheetGrid) Rows() int { return len(g.rows) }

// Cols 最大列数
func (g *SheetGrid) Cols() int { return g.cols }

// Name 工作表名
func (g *SheetGrid) Name() string { return g.sheet }

// MergeRanges 合并范围列表
func (g *SheetGrid) MergeRanges() []model.MergeRange { return g.merges }
