package transform

import (
	"strings"

	"autoconvert/internal/model"
	"autoconvert/internal/parser"
)

// Tables 标准化换算表，源值已规范化、去重后装载
type Tables struct {
	Currency map[string]string
	Country  map[string]string
}

// po 号在首个分隔符处截断，分隔符打头的不截
var poSeparators = "-./,(;"

// NormalizeCurrencyKey 币制查表键规范化
func NormalizeCurrencyKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeCountryKey 国别查表键规范化，压掉逗号后的空格
func NormalizeCountryKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ", ", ",")
}

// CleanPONumber 采购订单号清理：截到首个分隔符为止
func CleanPONumber(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, poSeparators); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// ApplyTransforms 对提取后的明细做标准化
// 原产国空缺时代入交货国；币制与国别查表失败降为警告，原值保留
// 同一未知值只报一次警告
func ApplyTransforms(items []model.InvoiceItem, tables Tables) ([]model.InvoiceItem, []*model.ProcessingWarning) {
	var warns []*model.ProcessingWarning
	seenCurrency := map[string]bool{}
	seenCountry := map[string]bool{}

	out := make([]model.InvoiceItem, len(items))
	copy(out, items)

	for i := range out {
		it := &out[i]

		it.PONo = CleanPONumber(it.PONo)

		if (it.COO == "" || parser.IsPlaceholder(it.COO)) && it.COD != "" && !parser.IsPlaceholder(it.COD) {
			it.COO = it.COD
		}

		curKey := NormalizeCurrencyKey(it.Currency)
		if target, ok := tables.Currency[curKey]; ok {
			it.Currency = target
		} else if curKey != "" && !seenCurrency[curKey] {
			seenCurrency[curKey] = true
			warns = append(warns, model.NewWarning(model.WarnUnknownCurrency,
				"currency %q not found in standardization table", it.Currency))
		}

		cooKey := NormalizeCountryKey(it.COO)
		if target, ok := tables.Country[cooKey]; ok {
			it.COO = target
		} else if cooKey != "" && !seenCountry[cooKey] {
			seenCountry[cooKey] = true
			warns = append(warns, model.NewWarning(model.WarnUnknownCountry,
				"country %q not found in standardization table", it.COO))
		}
	}
	return out, warns
}
