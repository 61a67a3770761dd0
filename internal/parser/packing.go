package parser

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"autoconvert/internal/model"
)

// ExtractPackingItems 自数据起始行向下提取装箱明细
// 返回值中的 lastDataRow 供合计行定位使用
func ExtractPackingItems(g Grid, t *MergeTracker, cm *ColumnMap) ([]model.PackingItem, int, []*model.ProcessingError) {
	var items []model.PackingItem
	var errs []*model.ProcessingError

	partCol := cm.cellCol(FieldPartNo)
	qtyCol := cm.cellCol(FieldQty)
	nwCol := cm.cellCol(FieldNW)
	gwCol := cm.cellCol(FieldGW)
	lastDataRow := cm.DataStartRow - 1
	prevPart := ""

	for row := cm.DataStartRow; row <= g.Rows(); row++ {
		if rowHasStopKeyword(g, row) {
			break
		}

		part := strings.TrimSpace(t.AnchorValue(g, row, partCol))
		if IsFooterKeyword(part) {
			break
		}
		if IsPalletKeyword(part) {
			break
		}
		if isImplicitTotalRow(g, t, cm, row) {
			break
		}
		if part != "" && IsHeaderContinuation(part) {
			continue
		}

		// 净重列的单位标注行（如单独一行 "KGS"）整行跳过
		nwRaw := g.Cell(row, nwCol)
		if IsWeightUnitLabel(nwRaw) {
			continue
		}

		qty, _, qtyOK := numericCell(g, t, row, qtyCol)
		if !qtyOK {
			errs = append(errs, model.NewFieldError(model.ErrInvalidNumeric, FieldQty, row,
				"row %d packing quantity %q is not numeric", row, g.Cell(row, qtyCol)))
			continue
		}

		nw, gw := decimal.Zero, decimal.Zero
		firstRowOfMerge := t.IsFirstRowOfMerge(row, nwCol)
		switch {
		case IsDittoMark(nwRaw):
			// 同上记号：该行净重按 0 计且不参与聚合计数
			firstRowOfMerge = false
		case part != "" && part == prevPart && IsBlank(nwRaw):
			// 同料号的隐式延续行，净重归于首行
		default:
			v, _, nwOK := numericCell(g, t, row, nwCol)
			if !nwOK {
				errs = append(errs, model.NewFieldError(model.ErrInvalidNumeric, FieldNW, row,
					"row %d net weight %q is not numeric", row, nwRaw))
				continue
			}
			nw = v
		}
		if v, _, gwOK := numericCell(g, t, row, gwCol); gwOK {
			gw = v
		}

		if part == "" {
			if qty.IsZero() && nw.IsZero() {
				continue
			}
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, FieldPartNo, row,
				"row %d has weight data but no part number", row))
			continue
		}
		if qty.IsZero() && nw.IsZero() {
			continue
		}

		items = append(items, model.PackingItem{
			PartNo:          part,
			Qty:             RoundGeneral(qty),
			NW:              RoundGeneral(nw),
			GW:              RoundGeneral(gw),
			Pack:            readString(g, t, cm, row, FieldPack),
			Row:             row,
			FirstRowOfMerge: firstRowOfMerge,
		})
		lastDataRow = row
		prevPart = part
	}

	if len(items) == 0 && len(errs) == 0 {
		errs = append(errs, model.NewError(model.ErrNoPackingItems,
			"no packing line items found in sheet %q", g.Name()))
	}
	errs = append(errs, validateMergedWeights(t, cm, items)...)
	return items, lastDataRow, errs
}

// isImplicitTotalRow 隐式合计行：关键列为空且不是合并延续，净重毛重均为正
// 装箱提取的停止条件与合计行定位共用此判定，避免两处各自漂移
func isImplicitTotalRow(g Grid, t *MergeTracker, cm *ColumnMap, row int) bool {
	partCol := cm.cellCol(FieldPartNo)
	nwCol := cm.cellCol(FieldNW)
	gwCol := cm.cellCol(FieldGW)
	if partCol == 0 || nwCol == 0 || gwCol == 0 {
		return false
	}
	if !IsBlank(g.Cell(row, partCol)) {
		return false
	}
	// 料号列处于合并延续行的，是多行明细而不是合计
	if t.IsInMerge(row, partCol) && !t.IsFirstRowOfMerge(row, partCol) {
		return false
	}
	nw, ok := ParseDecimal(g.Cell(row, nwCol))
	if !ok || !nw.IsPositive() {
		return false
	}
	gw, ok := ParseDecimal(g.Cell(row, gwCol))
	return ok && gw.IsPositive()
}

// validateMergedWeights 数据区的净重/数量合并不得跨越不同料号
func validateMergedWeights(t *MergeTracker, cm *ColumnMap, items []model.PackingItem) []*model.ProcessingError {
	var errs []*model.ProcessingError
	cols := []int{cm.cellCol(FieldNW), cm.cellCol(FieldQty)}
	for _, r := range t.Ranges() {
		if t.IsHeaderMerge(r, cm.HeaderRow) || r.Bottom == r.Top {
			continue
		}
		covered := false
		for _, col := range cols {
			if col > 0 && col >= r.Left && col <= r.Right {
				covered = true
				break
			}
		}
		if !covered {
			continue
		}
		parts := map[string]bool{}
		for _, it := range items {
			if it.Row >= r.Top && it.Row <= r.Bottom {
				parts[it.PartNo] = true
			}
		}
		if len(parts) > 1 {
			names := make([]string, 0, len(parts))
			for p := range parts {
				names = append(names, p)
			}
			sort.Strings(names)
			errs = append(errs, model.NewFieldError(model.ErrMergedWeightShared, FieldNW, r.Top,
				"merged weight rows %d-%d cover different part numbers %s", r.Top, r.Bottom, strings.Join(names, ", ")))
		}
	}
	return errs
}
