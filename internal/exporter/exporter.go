package exporter

import (
	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
)

// 输出模板列位（1 基）
const (
	colPartNo       = 1  // A 企业料号
	colPONo         = 2  // B 采购订单号
	colZhengMian    = 3  // C 征免方式，固定 "3"
	colCurrency     = 4  // D 币制
	colQty          = 5  // E 申报数量
	colPrice        = 6  // F 申报单价
	colAmount       = 7  // G 申报总价
	colCOO          = 8  // H 原产国
	colSerial       = 12 // L 报关单商品序号
	colNetWeight    = 13 // M 净重
	colInvNo        = 14 // N 发票号码
	colTotalGW      = 16 // P 毛重，仅首数据行
	colDomesticDest = 18 // R 境内目的地代码
	colAdminDist    = 19 // S 行政区划代码
	colFinalDest    = 20 // T 最终目的国
	colTotalPackets = 37 // AK 件数，仅首数据行
	colBrand        = 38 // AL 品牌
	colBrandType    = 39 // AM 品牌类型
	colModel        = 40 // AN 型号
)

// 每行固定值
const (
	fixedZhengMian    = "3"
	fixedDomesticDest = "32052"
	fixedAdminDist    = "320506"
	fixedFinalDest    = "142"
)

const (
	sheetName    = "工作表1"
	firstDataRow = 5
)

// WriteTemplate 加载输出模板，从第 5 行起逐条写入明细并另存
// 模板前 4 行表头保持原样，仅填数据区；毛重与件数只写首数据行
func WriteTemplate(items []model.InvoiceItem, totals model.PackingTotals, templatePath, outputPath string) *model.ProcessingError {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return model.NewError(model.ErrTemplateLoadFailed,
			"could not load output template %q: %v", templatePath, err)
	}
	defer f.Close()

	if idx, serr := f.GetSheetIndex(sheetName); serr != nil || idx < 0 {
		return model.NewError(model.ErrTemplateLoadFailed,
			"sheet %q not found in template %q", sheetName, templatePath)
	}

	for i, item := range items {
		row := firstDataRow + i
		writeItemRow(f, row, item)

		setString(f, row, colZhengMian, fixedZhengMian)
		setString(f, row, colDomesticDest, fixedDomesticDest)
		setString(f, row, colAdminDist, fixedAdminDist)
		setString(f, row, colFinalDest, fixedFinalDest)

		if row == firstDataRow {
			gw, _ := totals.TotalGW.Float64()
			setNumber(f, row, colTotalGW, gw)
			if totals.TotalPackets > 0 {
				setNumber(f, row, colTotalPackets, float64(totals.TotalPackets))
			}
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return model.NewError(model.ErrOutputWriteFailed,
			"could not save output file %q: %v", outputPath, err)
	}
	return nil
}

func writeItemRow(f *excelize.File, row int, item model.InvoiceItem) {
	setString(f, row, colPartNo, item.PartNo)
	setString(f, row, colPONo, item.PONo)
	setString(f, row, colCurrency, item.Currency)
	setString(f, row, colCOO, item.COO)
	setString(f, row, colBrand, item.Brand)
	setString(f, row, colBrandType, item.BrandType)
	setString(f, row, colModel, item.Model)

	// 空值不写，避免覆盖模板单元格格式
	if item.InvNo != "" {
		setString(f, row, colInvNo, item.InvNo)
	}
	if item.Serial != "" {
		setString(f, row, colSerial, item.Serial)
	}

	qty, _ := item.Qty.Float64()
	price, _ := item.Price.Float64()
	amount, _ := item.Amount.Float64()
	weight, _ := item.Weight.Float64()
	setNumber(f, row, colQty, qty)
	setNumber(f, row, colPrice, price)
	setNumber(f, row, colAmount, amount)
	setNumber(f, row, colNetWeight, weight)
}

func setString(f *excelize.File, row, col int, value string) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellStr(sheetName, axis, value)
}

func setNumber(f *excelize.File, row, col int, value float64) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return
	}
	_ = f.SetCellValue(sheetName, axis, value)
}
