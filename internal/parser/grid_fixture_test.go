package parser

import (
	"autoconvert/internal/model"
)

// fakeGrid 测试用内存表格
type fakeGrid struct {
	name  string
	rows  int
	cols  int
	cells map[[2]int]string
	fmts  map[[2]int]string
}

func newFakeGrid(rows, cols int) *fakeGrid {
	return &fakeGrid{
		name:  "Sheet1",
		rows:  rows,
		cols:  cols,
		cells: make(map[[2]int]string),
		fmts:  make(map[[2]int]string),
	}
}

func (g *fakeGrid) set(row, col int, value string) *fakeGrid {
	g.cells[[2]int{row, col}] = value
	return g
}

func (g *fakeGrid) setRow(row int, values ...string) *fakeGrid {
	for i, v := range values {
		if v != "" {
			g.set(row, i+1, v)
		}
	}
	return g
}

func (g *fakeGrid) setFmt(row, col int, format string) *fakeGrid {
	g.fmts[[2]int{row, col}] = format
	return g
}

func (g *fakeGrid) Cell(row, col int) string       { return g.cells[[2]int{row, col}] }
func (g *fakeGrid) CellFormat(row, col int) string { return g.fmts[[2]int{row, col}] }
func (g *fakeGrid) Rows() int                      { return g.rows }
func (g *fakeGrid) Cols() int                      { return g.cols }
func (g *fakeGrid) Name() string                   { return g.name }

func merge(top, left, bottom, right int) model.MergeRange {
	return model.MergeRange{Top: top, Left: left, Bottom: bottom, Right: right}
}

func mustRegistry(t interface{ Fatalf(string, ...interface{}) }) *Registry {
	reg, err := CompileRegistry(DefaultRegistryOptions())
	if err != nil {
		t.Fatalf("CompileRegistry failed: %v", err)
	}
	return reg
}
