package parser

import (
	"strings"

	"autoconvert/internal/model"
)

const (
	// 表头打分只看前 13 列，字段映射放宽到前 20 列
	headerScoreCols = 13
	mapCols         = 20
	// 读表工具导出的占位列名前缀
	unnamedPrefix = "unnamed:"
)

// 表头行打分档位：档位越低越像表头，同档取最早的行
// 元数据行与数据形态行只降档，没有更好候选时仍可兜底
const (
	tierHeader = iota
	tierNeutral
	tierDemoted
)

// DetectHeaderRow 在限定行窗口内定位表头行
// 关键词命中先于降档判定，单个冒号标签不排除整行
func DetectHeaderRow(g Grid, t *MergeTracker, reg *Registry, kind SheetKind) (int, *model.ProcessingError) {
	endRow := reg.HeaderScanEnd
	if endRow > g.Rows() {
		endRow = g.Rows()
	}
	minCells := reg.MinHeaderCells[kind]
	fields := reg.Fields(kind)

	bestRow := 0
	bestTier := tierDemoted + 1

	for row := reg.HeaderScanStart; row <= endRow; row++ {
		nonEmpty := 0
		numericLike := 0
		hasMetadata := false
		matched := map[string]bool{}

		for col := 1; col <= headerScoreCols && col <= g.Cols(); col++ {
			raw := t.AnchorValue(g, row, col)
			if IsBlank(raw) || IsPlaceholder(raw) {
				continue
			}
			norm := NormalizeText(raw)
			if strings.HasPrefix(norm, unnamedPrefix) {
				continue
			}
			nonEmpty++
			if IsNumericLike(raw) {
				numericLike++
			}
			if IsMetadataLabel(raw) {
				hasMetadata = true
			}
			for _, f := range fields {
				if !matched[f.Field] && MatchAny(norm, f.Patterns) {
					matched[f.Field] = true
				}
			}
		}

		if nonEmpty < minCells {
			continue
		}

		tier := tierNeutral
		switch {
		case len(matched) >= 2 && numericLike < 2:
			tier = tierHeader
		case hasMetadata || numericLike >= 3:
			tier = tierDemoted
		}
		if tier < bestTier {
			bestTier = tier
			bestRow = row
		}
	}

	if bestRow == 0 {
		return 0, model.NewError(model.ErrHeaderRowNotFound,
			"no header row found in sheet %q (rows %d-%d)", g.Name(), reg.HeaderScanStart, endRow)
	}
	return bestRow, nil
}

// MapColumns 将表头文本映射到规范字段列
// 完成表头、子表头、币制数据行回退与单价/总价列位移四个阶段
func MapColumns(g Grid, t *MergeTracker, reg *Registry, kind SheetKind) (*ColumnMap, []*model.ProcessingError) {
	headerRow, herr := DetectHeaderRow(g, t, reg, kind)
	if herr != nil {
		return nil, []*model.ProcessingError{herr}
	}

	cm := &ColumnMap{
		Kind:      kind,
		Columns:   make(map[string]int),
		Sources:   make(map[string]MatchSource),
		HeaderRow: headerRow,
	}
	fields := reg.Fields(kind)

	// 阶段一：表头行，字段内模式优先级高于列位置，同一模式取最左列
	headerText := rowTexts(g, t, headerRow)
	for _, f := range fields {
		if col, ok := matchField(f, headerText); ok {
			cm.Columns[f.Field] = col
			cm.Sources[f.Field] = SourceHeader
		}
	}

	// 表头纵向合并时数据区从合并底行之后开始
	headerBottom := headerRow
	for _, r := range t.Ranges() {
		if r.Top <= headerRow && r.Bottom > headerBottom && r.Left <= mapCols {
			headerBottom = r.Bottom
		}
	}
	cm.DataStartRow = headerBottom + 1

	// 阶段二：子表头行，仅在必填字段尚未映射时评估
	if missingRequired(fields, cm) != "" {
		subRow := headerBottom + 1
		if subRow <= g.Rows() && isSubHeaderCandidate(g, t, reg, subRow) {
			subText := rowTexts(g, t, subRow)
			for i, text := range subText {
				if !subHeaderCellUsable(reg, text) {
					subText[i] = ""
				}
			}
			newMatches := map[string]int{}
			resolvesRequired := false
			for _, f := range fields {
				if _, mapped := cm.Columns[f.Field]; mapped {
					continue
				}
				if col, ok := matchField(f, subText); ok {
					newMatches[f.Field] = col
					if f.Required {
						resolvesRequired = true
					}
				}
			}
			if len(newMatches) >= 2 || resolvesRequired {
				for field, col := range newMatches {
					cm.Columns[field] = col
					cm.Sources[field] = SourceSubHeader
				}
				cm.SubHeaderUsed = true
				cm.DataStartRow = subRow + 1
			}
		}
	}

	// 阶段三：币制列缺失时在首个非空数据行找币制记号
	if _, ok := cm.Columns[FieldCurrency]; !ok {
		if col, found := currencyFallback(g, t, reg, cm, headerText); found {
			cm.Columns[FieldCurrency] = col
			cm.Sources[FieldCurrency] = SourceDataRow
		}
	}

	// 阶段四：单价/总价表头与相邻币制子列合并时右移一列
	shiftPriceAmount(g, t, reg, cm)

	var errs []*model.ProcessingError
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if _, ok := cm.Columns[f.Field]; !ok {
			errs = append(errs, model.NewFieldError(model.ErrRequiredColumnMissed, f.Field, headerRow,
				"required column %q not found in sheet %q", f.Field, g.Name()))
		}
	}
	return cm, errs
}

// rowTexts 读取一行前 20 列的规范化文本，穿透合并
func rowTexts(g Grid, t *MergeTracker, row int) []string {
	texts := make([]string, 0, mapCols)
	for col := 1; col <= mapCols; col++ {
		if col > g.Cols() {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, NormalizeText(t.AnchorValue(g, row, col)))
	}
	return texts
}

// matchField 按模式优先级匹配，同一模式命中多列取最左列
func matchField(f FieldPattern, texts []string) (int, bool) {
	for _, re := range f.Patterns {
		for i, text := range texts {
			if text == "" {
				continue
			}
			if re.MatchString(text) {
				return i, true
			}
		}
	}
	return 0, false
}

// isSubHeaderCandidate 数据行或币制/国别值行不作为子表头
func isSubHeaderCandidate(g Grid, t *MergeTracker, reg *Registry, row int) bool {
	numericLike := 0
	for col := 1; col <= headerScoreCols && col <= g.Cols(); col++ {
		raw := t.AnchorValue(g, row, col)
		if IsBlank(raw) {
			continue
		}
		if IsNumericLike(raw) {
			numericLike++
		}
	}
	return numericLike < 3
}

// subHeaderCellUsable 子表头单元格排除数据值与冒号标签
func subHeaderCellUsable(reg *Registry, text string) bool {
	if text == "" {
		return false
	}
	if reg.IsCurrencyToken(text) {
		return false
	}
	if strings.HasSuffix(text, ":") || strings.HasSuffix(text, "：") {
		return false
	}
	return true
}

// currencyFallback 在前若干数据行中找首个非空行，再从左到右找币制记号
// 已映射到其他字段的列跳过，除非其表头文本含单价/总价关键词
func currencyFallback(g Grid, t *MergeTracker, reg *Registry, cm *ColumnMap, headerText []string) (int, bool) {
	dataRow := firstNonBlankRow(g, cm.DataStartRow)
	if dataRow == 0 {
		return 0, false
	}
	colField := make(map[int]string)
	for field, col := range cm.Columns {
		colField[col] = field
	}
	for col := 1; col <= mapCols && col <= g.Cols(); col++ {
		if field, taken := colField[col-1]; taken && field != FieldCurrency {
			header := ""
			if col-1 < len(headerText) {
				header = headerText[col-1]
			}
			if !containsAnyKeyword(header, reg.PriceAmountKeywords) {
				continue
			}
		}
		if reg.IsCurrencyToken(t.AnchorValue(g, dataRow, col)) {
			return col - 1, true
		}
	}
	return 0, false
}

// shiftPriceAmount 首个数据行中单价/总价列若是币制记号且右邻列为数值则右移
// 两个字段独立判断，可在同一轮中各自位移
func shiftPriceAmount(g Grid, t *MergeTracker, reg *Registry, cm *ColumnMap) {
	dataRow := firstNonBlankRow(g, cm.DataStartRow)
	if dataRow == 0 {
		return
	}
	for _, field := range []string{FieldPrice, FieldAmount} {
		col, ok := cm.Columns[field]
		if !ok {
			continue
		}
		v := t.AnchorValue(g, dataRow, col+1)
		if !reg.IsCurrencyToken(v) {
			continue
		}
		next := g.Cell(dataRow, col+2)
		if _, numeric := ParseDecimal(next); numeric {
			cm.Columns[field] = col + 1
		}
	}
}

// firstNonBlankRow 自 start 起找首个含非空单元格的行，最多看 5 行
func firstNonBlankRow(g Grid, start int) int {
	for row := start; row < start+5 && row <= g.Rows(); row++ {
		for col := 1; col <= mapCols && col <= g.Cols(); col++ {
			if !IsBlank(g.Cell(row, col)) {
				return row
			}
		}
	}
	return 0
}

// missingRequired 返回首个未映射的必填字段名，全部映射时返回空串
func missingRequired(fields []FieldPattern, cm *ColumnMap) string {
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if _, ok := cm.Columns[f.Field]; !ok {
			return f.Field
		}
	}
	return ""
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
