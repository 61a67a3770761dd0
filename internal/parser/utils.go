package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	placeholderRe = regexp.MustCompile(`^[/\\*\-—]+$`)
	unitSuffixRe  = regexp.MustCompile(`(?i)(?:KGS|KG|LBS|LB|PCS|EA|件|个|G)\s*$`)
	// 纯数值或含数字的字母数字编码
	numericLikeRe = regexp.MustCompile(`^\d+\.?\d*$|^[A-Za-z0-9\-]*\d[A-Za-z0-9\-]*$`)
	alnumRe       = regexp.MustCompile(`[A-Za-z0-9]`)
)

// 停止关键词：任一出现即认为进入合计区
var stopKeywords = []string{"total", "合计", "总计", "小计"}

// 表尾关键词：料号列出现即认为数据区结束
var footerKeywords = []string{"报关行", "有限公司", "口岸关别", "进境口岸"}

// 元数据标签：联系方式类行降为最低档表头候选
var metadataMarkers = []string{"tel:", "fax:", "cust id:", "contact:", "address:"}

// 栈板汇总行关键词
var palletRowRe = regexp.MustCompile(`(?i)^(?:plt\.?|pallets?|棧板|栈板)\b|^(?:plt|pallet|pallets|棧板|栈板)$`)

// 同上记号：净重列出现时该行净重按 0 计
var dittoMarks = map[string]bool{
	`"`: true, "〃": true, "同上": true, "same": true, "ditto": true,
}

// 净重列中的单位标注行（整行跳过）
var weightUnitLabels = map[string]bool{
	"kgs": true, "kg": true, "lbs": true, "lb": true,
}

// NormalizeText 规范化单元格文本：去首尾空白、压缩内部空白、转小写
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// IsBlank 判断单元格文本是否为空白
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsPlaceholder 判断占位符：全斜杠/反斜杠/星号/横线，或 N/A
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if placeholderRe.MatchString(s) {
		return true
	}
	upper := strings.ToUpper(s)
	return upper == "N/A" || upper == "NA"
}

// IsStopKeyword 判断文本是否含合计类停止关键词
func IsStopKeyword(s string) bool {
	norm := NormalizeText(s)
	if norm == "" {
		return false
	}
	for _, kw := range stopKeywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// IsFooterKeyword 判断料号单元格是否为表尾/公司落款
func IsFooterKeyword(s string) bool {
	for _, kw := range footerKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// IsMetadataLabel 判断文本是否含联系方式类元数据标签
func IsMetadataLabel(s string) bool {
	norm := NormalizeText(s)
	for _, m := range metadataMarkers {
		if strings.Contains(norm, m) {
			return true
		}
	}
	return false
}

// IsPalletKeyword 判断料号单元格是否为栈板汇总行
func IsPalletKeyword(s string) bool {
	return palletRowRe.MatchString(strings.TrimSpace(s))
}

// IsDittoMark 判断同上记号
func IsDittoMark(s string) bool {
	return dittoMarks[NormalizeText(s)]
}

// IsWeightUnitLabel 判断净重列的单位标注文本
func IsWeightUnitLabel(s string) bool {
	return weightUnitLabels[NormalizeText(s)]
}

// IsHeaderContinuation 判断料号列中重复出现的表头延续行
func IsHeaderContinuation(s string) bool {
	norm := NormalizeText(s)
	return strings.Contains(norm, "part no") || norm == "p/n" || norm == "part number"
}

// IsNumericLike 判断文本是否像数值或含数字的编码
func IsNumericLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return numericLikeRe.MatchString(s)
}

// StripUnitSuffix 去掉数值尾部的重量/数量单位
func StripUnitSuffix(s string) string {
	return strings.TrimSpace(unitSuffixRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// ParseDecimal 解析数值文本：去千分位逗号与单位后缀后按十进制解析
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = StripUnitSuffix(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// RoundHalfUp 四舍五入（远离零的半数进位）
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// StripTrailingZeros 去掉小数尾部多余的零
func StripTrailingZeros(d decimal.Decimal) decimal.Decimal {
	s := d.String()
	if !strings.Contains(s, ".") {
		return d
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	out, err := decimal.NewFromString(s)
	if err != nil {
		return d
	}
	return out
}

// RoundGeneral 通用格式数值的清理：先按 5 位四舍五入消除浮点尾差，再去尾零
func RoundGeneral(d decimal.Decimal) decimal.Decimal {
	return StripTrailingZeros(RoundHalfUp(d, 5))
}

// DecimalPlaces 返回数值的小数位数
func DecimalPlaces(d decimal.Decimal) int32 {
	if d.Exponent() >= 0 {
		return 0
	}
	return -d.Exponent()
}

// DetectFormatPrecision 从显示格式串推断小数位数
// 只统计 0 占位符，# 与 ? 为可选位不计入；通用格式或无格式返回 -1，调用方改用清理精度
func DetectFormatPrecision(format string) int32 {
	format = strings.TrimSpace(format)
	if format == "" || strings.EqualFold(format, "general") {
		return -1
	}
	// 仅看第一段（正数段），去掉引号字面量与方括号区段
	if i := strings.Index(format, ";"); i >= 0 {
		format = format[:i]
	}
	format = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`).ReplaceAllString(format, "")
	dot := strings.LastIndex(format, ".")
	if dot < 0 {
		return 0
	}
	var n int32
	for _, ch := range format[dot+1:] {
		if ch == '0' {
			n++
			continue
		}
		if ch == '#' || ch == '?' {
			continue
		}
		break
	}
	return n
}

// AlnumCount 统计字母数字字符个数
func AlnumCount(s string) int {
	return len(alnumRe.FindAllString(s, -1))
}

// MatchAny 文本匹配任一已编译模式
func MatchAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
