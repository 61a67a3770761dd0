package excel

import (
	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
	"autoconvert/internal/parser"
)

// DetectSheets 按名称模式识别发票页与装箱单页
// 工作簿内按页序取首个命中者；发票页缺失先报
func DetectSheets(f *excelize.File, reg *parser.Registry) (invoice, packing string, errs []*model.ProcessingError) {
	for _, name := range f.GetSheetList() {
		if invoice == "" && parser.MatchAny(name, reg.InvoiceSheet) {
			invoice = name
			continue
		}
		if packing == "" && parser.MatchAny(name, reg.PackingSheet) {
			packing = name
		}
	}
	if invoice == "" {
		errs = append(errs, model.NewError(model.ErrInvoiceSheetMissing,
			"no sheet name matches the invoice patterns"))
	}
	if packing == "" {
		errs = append(errs, model.NewError(model.ErrPackingSheetMissing,
			"no sheet name matches the packing list patterns"))
	}
	return invoice, packing, errs
}
