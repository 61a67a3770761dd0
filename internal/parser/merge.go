package parser

import (
	"autoconvert/internal/model"
)

// MergeTracker 合并单元格追踪器
// 范围列表在读取任何数据之前一次性捕获，之后只读
type MergeTracker struct {
	ranges []model.MergeRange
	index  map[[2]int]int
}

// NewMergeTracker 构建追踪器，复制传入的范围列表
func NewMergeTracker(ranges []model.MergeRange) *MergeTracker {
	t := &MergeTracker{
		ranges: make([]model.MergeRange, len(ranges)),
		index:  make(map[[2]int]int),
	}
	copy(t.ranges, ranges)
	for i, r := range t.ranges {
		for row := r.Top; row <= r.Bottom; row++ {
			for col := r.Left; col <= r.Right; col++ {
				t.index[[2]int{row, col}] = i
			}
		}
	}
	return t
}

// Ranges 返回全部合并范围
func (t *MergeTracker) Ranges() []model.MergeRange {
	return t.ranges
}

// OriginOf 返回所属合并范围的左上角坐标，未合并时返回自身
func (t *MergeTracker) OriginOf(row, col int) (int, int) {
	if i, ok := t.index[[2]int{row, col}]; ok {
		return t.ranges[i].Top, t.ranges[i].Left
	}
	return row, col
}

// IsInMerge 判断单元格是否处于某个合并范围内
func (t *MergeTracker) IsInMerge(row, col int) bool {
	_, ok := t.index[[2]int{row, col}]
	return ok
}

// RangeAt 返回覆盖该单元格的合并范围
func (t *MergeTracker) RangeAt(row, col int) (model.MergeRange, bool) {
	if i, ok := t.index[[2]int{row, col}]; ok {
		return t.ranges[i], true
	}
	return model.MergeRange{}, false
}

// IsFirstRowOfMerge 数值合并只在首行计数，未合并单元格视为首行
func (t *MergeTracker) IsFirstRowOfMerge(row, col int) bool {
	if i, ok := t.index[[2]int{row, col}]; ok {
		return row == t.ranges[i].Top
	}
	return true
}

// IsHeaderMerge 起始行不晚于表头行的为表头合并，其余为数据区合并
func (t *MergeTracker) IsHeaderMerge(r model.MergeRange, headerRow int) bool {
	return r.Top <= headerRow
}

// IsDataMerge 判断数据区合并
func (t *MergeTracker) IsDataMerge(r model.MergeRange, headerRow int) bool {
	return r.Top > headerRow
}

// AnchorValue 穿透合并读取文本值：返回合并范围左上角单元格的值
func (t *MergeTracker) AnchorValue(g Grid, row, col int) string {
	r, c := t.OriginOf(row, col)
	return g.Cell(r, c)
}
