package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"autoconvert/internal/model"
)

const (
	// 合计行在最后一条明细之后最多 15 行内
	totalSearchWindow = 15
	// 件数可信区间
	minPackets = 1
	maxPackets = 1000
)

var (
	// 件数标签及内嵌写法
	packetsLabelRe    = regexp.MustCompile(`件[数數]`)
	packetsEmbeddedRe = regexp.MustCompile(`件[数數]\s*[:：]?\s*(\d+)`)
	// 栈板指示：合计行上方 1-2 行内的 PLT 计数
	pltIndicatorRe = regexp.MustCompile(`(?i)PLT(?:\.G)?\s*#?\s*(\d+)`)
	// 合计行下方自由文本中的件数写法，栈板数优先于箱数
	palletCountRes = []*regexp.Regexp{
		regexp.MustCompile(`共\s*(\d+)\s*托`),
		regexp.MustCompile(`(\d+)\s*托`),
	}
	cartonCountRes = []*regexp.Regexp{
		regexp.MustCompile(`^(\d+)\s*[（(]`),
		regexp.MustCompile(`(?i)^(\d+)\s*(?:托|箱|件|CTNS)\b`),
		regexp.MustCompile(`共\s*(\d+)\s*(?:托|箱|件)`),
	}
)

// ExtractTotals 定位装箱合计行并提取总净重、总毛重与件数
// 总净重/总毛重缺失或非正为致命错误；件数缺失仅为警告，文件照常产出
func ExtractTotals(g Grid, t *MergeTracker, cm *ColumnMap, lastDataRow int) (model.PackingTotals, []*model.ProcessingError, []*model.ProcessingWarning) {
	var errs []*model.ProcessingError
	var warns []*model.ProcessingWarning
	totals := model.PackingTotals{}

	totalRow := findTotalRow(g, t, cm, lastDataRow)
	if totalRow == 0 {
		errs = append(errs, model.NewError(model.ErrTotalRowNotFound,
			"no total row found below row %d in sheet %q", lastDataRow, g.Name()))
		return totals, errs, warns
	}
	totals.TotalRow = totalRow

	// 总净重按合计单元格自身的显示精度取整
	nwCol := cm.cellCol(FieldNW)
	if nw, prec, ok := totalCellValue(g, totalRow, nwCol); ok && nw.IsPositive() {
		totals.TotalNW = nw
		totals.NWPrecision = prec
	} else {
		errs = append(errs, model.NewFieldError(model.ErrInvalidTotalNW, FieldNW, totalRow,
			"total net weight %q at row %d is missing or not positive", g.Cell(totalRow, nwCol), totalRow))
	}

	// 总毛重：合计行下方两行都有数值时以更下面的为准（栈板重追加写法）
	gwCol := cm.cellCol(FieldGW)
	gwRow := totalRow
	v1, _, ok1 := totalCellValue(g, totalRow+1, gwCol)
	v2, _, ok2 := totalCellValue(g, totalRow+2, gwCol)
	if ok1 && v1.IsPositive() && ok2 && v2.IsPositive() {
		gwRow = totalRow + 2
	}
	if gw, prec, ok := totalCellValue(g, gwRow, gwCol); ok && gw.IsPositive() {
		totals.TotalGW = gw
		totals.GWPrecision = prec
	} else {
		errs = append(errs, model.NewFieldError(model.ErrInvalidTotalGW, FieldGW, gwRow,
			"total gross weight %q at row %d is missing or not positive", g.Cell(gwRow, gwCol), gwRow))
	}

	packets := findTotalPackets(g, totalRow, lastDataRow)
	if packets == 0 {
		warns = append(warns, model.NewWarning(model.WarnMissingTotalPackets,
			"total packet count missing or out of range near total row %d", totalRow))
	} else {
		totals.TotalPackets = packets
	}
	return totals, errs, warns
}

// findTotalRow 先按关键词找，找不到再按隐式合计行形态找
func findTotalRow(g Grid, t *MergeTracker, cm *ColumnMap, lastDataRow int) int {
	endRow := lastDataRow + totalSearchWindow
	if endRow > g.Rows() {
		endRow = g.Rows()
	}
	for row := lastDataRow + 1; row <= endRow; row++ {
		if rowHasStopKeyword(g, row) {
			return row
		}
	}
	for row := lastDataRow + 1; row <= endRow; row++ {
		if isImplicitTotalRow(g, t, cm, row) {
			return row
		}
	}
	return 0
}

// totalCellValue 解析合计单元格：去单位后缀，按显示精度取整
// 通用格式时以解析出的小数位为精度
func totalCellValue(g Grid, row, col int) (decimal.Decimal, int32, bool) {
	if col <= 0 || row > g.Rows() {
		return decimal.Zero, 0, false
	}
	raw := g.Cell(row, col)
	if IsBlank(raw) {
		return decimal.Zero, 0, false
	}
	d, ok := ParseDecimal(raw)
	if !ok {
		return decimal.Zero, 0, false
	}
	prec := DetectFormatPrecision(g.CellFormat(row, col))
	if prec < 0 {
		d = RoundGeneral(d)
		prec = DecimalPlaces(d)
	} else {
		d = RoundHalfUp(d, prec)
	}
	return d, prec, true
}

// findTotalPackets 三级优先：件数标签、PLT 指示、合计行下方自由文本
// 候选值越界时不中断，继续看后续候选与更低优先级
func findTotalPackets(g Grid, totalRow, lastDataRow int) int {
	// 第一级：件数标签，值可内嵌、可在右侧或下方
	startRow := lastDataRow - 5
	if startRow < 1 {
		startRow = 1
	}
	endRow := totalRow + 10
	if endRow > g.Rows() {
		endRow = g.Rows()
	}
	for row := startRow; row <= endRow; row++ {
		for col := 1; col <= stopScanCols && col <= g.Cols(); col++ {
			cell := g.Cell(row, col)
			if !packetsLabelRe.MatchString(cell) {
				continue
			}
			if m := packetsEmbeddedRe.FindStringSubmatch(cell); len(m) == 2 {
				if n, err := strconv.Atoi(m[1]); err == nil && packetsInRange(n) {
					return n
				}
			}
			if n, ok := packetNumber(g.Cell(row, col+1)); ok && packetsInRange(n) {
				return n
			}
			if n, ok := packetNumber(g.Cell(row+1, col)); ok && packetsInRange(n) {
				return n
			}
		}
	}

	// 第二级：合计行上方 1-2 行的 PLT 编号指示
	for _, row := range []int{totalRow - 1, totalRow - 2} {
		if row < 1 {
			continue
		}
		for col := 1; col <= stopScanCols && col <= g.Cols(); col++ {
			if m := pltIndicatorRe.FindStringSubmatch(g.Cell(row, col)); len(m) == 2 {
				if n, err := strconv.Atoi(m[1]); err == nil && packetsInRange(n) {
					return n
				}
			}
		}
	}

	// 第三级：合计行下方自由文本，同一文本中栈板数压过箱数
	for row := totalRow + 1; row <= endRow; row++ {
		for col := 1; col <= stopScanCols && col <= g.Cols(); col++ {
			cell := strings.TrimSpace(g.Cell(row, col))
			if cell == "" {
				continue
			}
			for _, re := range palletCountRes {
				if m := re.FindStringSubmatch(cell); len(m) == 2 {
					if n, err := strconv.Atoi(m[1]); err == nil && packetsInRange(n) {
						return n
					}
				}
			}
			for _, re := range cartonCountRes {
				if m := re.FindStringSubmatch(cell); len(m) == 2 {
					if n, err := strconv.Atoi(m[1]); err == nil && packetsInRange(n) {
						return n
					}
				}
			}
		}
	}
	return 0
}

// packetsInRange 件数候选须落在可信区间内
func packetsInRange(n int) bool {
	return n >= minPackets && n <= maxPackets
}

// packetNumber 件数候选值：纯数字或带单位的整数
func packetNumber(s string) (int, bool) {
	s = StripUnitSuffix(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
