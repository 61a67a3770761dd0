package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"autoconvert/internal/model"
)

// 停止关键词只看行首 10 列
const stopScanCols = 10

// 固定小数位：单价 5 位、总价 2 位；数量随单元格显示格式
const (
	pricePrecision  = 5
	amountPrecision = 2
)

// ExtractInvoiceItems 自数据起始行向下提取发票明细
// headerInvNo 为表头区提取的发票号，仅回填明细行自身发票号为空的行
func ExtractInvoiceItems(g Grid, t *MergeTracker, cm *ColumnMap, headerInvNo string) ([]model.InvoiceItem, []*model.ProcessingError) {
	var items []model.InvoiceItem
	var errs []*model.ProcessingError

	partCol := cm.cellCol(FieldPartNo)
	qtyCol := cm.cellCol(FieldQty)

	for row := cm.DataStartRow; row <= g.Rows(); row++ {
		// 停止条件先于空行判断：关键列空着但别的列写了 TOTAL 也要停
		if rowHasStopKeyword(g, row) {
			break
		}

		part := strings.TrimSpace(t.AnchorValue(g, row, partCol))
		if IsFooterKeyword(part) {
			break
		}
		if part != "" && IsHeaderContinuation(part) {
			continue
		}

		qty, qtyPresent, qtyOK := numericCell(g, t, row, qtyCol)
		if part == "" {
			if !qtyPresent || qty.IsZero() {
				if len(items) > 0 {
					break
				}
				continue
			}
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, FieldPartNo, row,
				"row %d has quantity but no part number", row))
			continue
		}

		item := model.InvoiceItem{PartNo: part, Row: row}
		rowErrs := fillInvoiceRow(g, t, cm, row, qty, qtyPresent, qtyOK, &item)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		if item.InvNo == "" {
			item.InvNo = headerInvNo
		}
		items = append(items, item)
	}

	if len(items) == 0 && len(errs) == 0 {
		errs = append(errs, model.NewError(model.ErrNoInvoiceItems,
			"no invoice line items found in sheet %q", g.Name()))
	}
	return items, errs
}

// fillInvoiceRow 读取一行的全部字段并做必填校验
func fillInvoiceRow(g Grid, t *MergeTracker, cm *ColumnMap, row int, qty decimal.Decimal, qtyPresent, qtyOK bool, item *model.InvoiceItem) []*model.ProcessingError {
	var errs []*model.ProcessingError

	// 数量：按单元格显示精度取整，通用格式走清理精度
	switch {
	case !qtyOK:
		errs = append(errs, model.NewFieldError(model.ErrInvalidNumeric, FieldQty, row,
			"row %d quantity %q is not numeric", row, g.Cell(row, cm.cellCol(FieldQty))))
	case !qtyPresent:
		errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, FieldQty, row,
			"row %d quantity is empty", row))
	default:
		if p := DetectFormatPrecision(g.CellFormat(row, cm.cellCol(FieldQty))); p >= 0 {
			item.Qty = RoundHalfUp(qty, p)
		} else {
			item.Qty = RoundGeneral(qty)
		}
	}

	for _, nf := range []struct {
		field     string
		precision int32
		dst       *decimal.Decimal
	}{
		{FieldPrice, pricePrecision, &item.Price},
		{FieldAmount, amountPrecision, &item.Amount},
	} {
		v, present, ok := numericCell(g, t, row, cm.cellCol(nf.field))
		switch {
		case !ok:
			errs = append(errs, model.NewFieldError(model.ErrInvalidNumeric, nf.field, row,
				"row %d %s %q is not numeric", row, nf.field, g.Cell(row, cm.cellCol(nf.field))))
		case !present:
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, nf.field, row,
				"row %d %s is empty", row, nf.field))
		default:
			*nf.dst = RoundHalfUp(v, nf.precision)
		}
	}

	item.PONo = readString(g, t, cm, row, FieldPONo)
	item.Currency = readString(g, t, cm, row, FieldCurrency)
	item.COO = readString(g, t, cm, row, FieldCOO)
	item.COD = readString(g, t, cm, row, FieldCOD)
	item.Brand = readString(g, t, cm, row, FieldBrand)
	item.BrandType = readBrandType(g, t, cm, row, item.Brand)
	item.Model = readString(g, t, cm, row, FieldModel)
	item.InvNo = CleanInvNoPrefix(readString(g, t, cm, row, FieldInvNo))
	item.Serial = readString(g, t, cm, row, FieldSerial)

	// 品牌三项仅在列已映射时必填
	for _, rf := range []struct {
		field string
		value string
	}{
		{FieldPONo, item.PONo},
		{FieldCurrency, item.Currency},
		{FieldBrand, item.Brand},
		{FieldBrandType, item.BrandType},
		{FieldModel, item.Model},
	} {
		if cm.cellCol(rf.field) == 0 {
			continue
		}
		switch {
		case rf.value == "":
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, rf.field, row,
				"row %d %s is empty", row, rf.field))
		case IsPlaceholder(rf.value):
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, rf.field, row,
				"row %d %s %q is a placeholder", row, rf.field, rf.value))
		}
	}

	// 原产国空缺时交货国可用则放行，由转换阶段代入
	if item.COO == "" || IsPlaceholder(item.COO) {
		if item.COD == "" || IsPlaceholder(item.COD) {
			errs = append(errs, model.NewFieldError(model.ErrEmptyRequiredField, FieldCOO, row,
				"row %d has neither country of origin nor country of delivery", row))
		}
	}
	return errs
}

// rowHasStopKeyword 行首 10 列任一单元格含合计关键词
func rowHasStopKeyword(g Grid, row int) bool {
	for col := 1; col <= stopScanCols && col <= g.Cols(); col++ {
		if IsStopKeyword(g.Cell(row, col)) {
			return true
		}
	}
	return false
}

// readString 字符串字段穿透合并读取，未映射的字段返回空串
func readString(g Grid, t *MergeTracker, cm *ColumnMap, row int, field string) string {
	col := cm.cellCol(field)
	if col == 0 {
		return ""
	}
	return strings.TrimSpace(t.AnchorValue(g, row, col))
}

// readBrandType 品牌类型列横向并入品牌列时穿透取锚值，锚值为空回退品牌值
func readBrandType(g Grid, t *MergeTracker, cm *ColumnMap, row int, brand string) string {
	col := cm.cellCol(FieldBrandType)
	if col == 0 {
		return ""
	}
	if r, ok := t.RangeAt(row, col); ok && !(r.Top == row && r.Left == col) {
		if v := strings.TrimSpace(t.AnchorValue(g, row, col)); v != "" {
			return v
		}
		return brand
	}
	return strings.TrimSpace(g.Cell(row, col))
}

// numericCell 数值单元格读取：不穿透合并，合并组仅首行取值
// 返回值依次为 数值、是否有内容、是否解析成功
func numericCell(g Grid, t *MergeTracker, row, col int) (decimal.Decimal, bool, bool) {
	if col <= 0 {
		return decimal.Zero, false, true
	}
	if !t.IsFirstRowOfMerge(row, col) {
		return decimal.Zero, false, true
	}
	raw := g.Cell(row, col)
	if IsBlank(raw) {
		return decimal.Zero, false, true
	}
	d, ok := ParseDecimal(raw)
	if !ok {
		return decimal.Zero, true, false
	}
	return d, true, true
}
