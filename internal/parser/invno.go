package parser

import (
	"fmt"
	"regexp"
	"strings"

	"autoconvert/internal/model"
)

const (
	invNoScanStart = 2
	invNoScanEnd   = 15
	invNoScanCols  = 20
	// 嵌套标签递归上限，防止对抗性布局造成无界搜索
	invNoMaxDepth = 3
)

// InvNoResult 发票号提取结果，Method 记录命中方式供诊断输出
type InvNoResult struct {
	Value  string
	Row    int
	Col    int
	Method string
}

// 只有跟着显式分隔符的标签残留才剥，避免误伤 INV2024-001 这类真值
var invNoPrefixRe = regexp.MustCompile(`(?i)^(?:(?:invoice|inv)\.?\s*(?:no|number)?|no|number)\s*[:：#.]+\s*`)

// CleanInvNoPrefix 去掉值里残留的标签前缀，如 "INV# ABC123" 或 "NO.:X1"
func CleanInvNoPrefix(s string) string {
	cleaned := strings.TrimSpace(invNoPrefixRe.ReplaceAllString(strings.TrimSpace(s), ""))
	if cleaned == "" {
		return strings.TrimSpace(s)
	}
	return cleaned
}

// ExtractInvoiceNumber 在表头区域内提取发票号
// 先做标签-邻接搜索，失败后退化为单格内嵌值提取
func ExtractInvoiceNumber(g Grid, t *MergeTracker, reg *Registry) (InvNoResult, *model.ProcessingError) {
	endRow := invNoScanEnd
	if endRow > g.Rows() {
		endRow = g.Rows()
	}

	// 标签通道：找到标签格后按固定优先级看邻格
	for row := invNoScanStart; row <= endRow; row++ {
		for col := 1; col <= invNoScanCols && col <= g.Cols(); col++ {
			cell := strings.TrimSpace(g.Cell(row, col))
			if cell == "" || !MatchAny(cell, reg.InvNoLabels) {
				continue
			}
			if res, ok := searchFromLabel(g, t, reg, row, col, 1); ok {
				return res, nil
			}
		}
	}

	// 内嵌通道：标签与值在同一格，按捕获组提取
	for row := invNoScanStart; row <= endRow; row++ {
		for col := 1; col <= invNoScanCols && col <= g.Cols(); col++ {
			cell := strings.TrimSpace(g.Cell(row, col))
			if cell == "" {
				continue
			}
			for _, re := range reg.InvNoEmbedded {
				m := re.FindStringSubmatch(cell)
				if len(m) < 2 {
					continue
				}
				value := CleanInvNoPrefix(m[1])
				if validInvNoValue(reg, value) {
					return InvNoResult{Value: value, Row: row, Col: col, Method: "embedded"}, nil
				}
			}
		}
	}

	return InvNoResult{}, model.NewError(model.ErrInvoiceNoNotFound,
		"invoice number not found in sheet %q (rows %d-%d)", g.Name(), invNoScanStart, endRow)
}

// searchFromLabel 从标签格出发按 右、右2、下、下2 的顺序验证候选值
func searchFromLabel(g Grid, t *MergeTracker, reg *Registry, row, col, depth int) (InvNoResult, bool) {
	type candidate struct {
		row, col int
		method   string
	}
	candidates := []candidate{
		{row, col + 1, "1 cell(s) right"},
		{row, col + 2, "2 cell(s) right"},
		{row + 1, col, "1 row(s) below"},
		{row + 2, col, "2 row(s) below"},
	}

	for _, c := range candidates {
		if c.row > g.Rows() || c.col > g.Cols() {
			continue
		}
		value := strings.TrimSpace(t.AnchorValue(g, c.row, c.col))
		if value == "" {
			continue
		}

		// 候选本身还是标签：递归继续向其邻格找
		if isPureLabel(reg, value) {
			if depth >= invNoMaxDepth {
				continue
			}
			if res, ok := searchFromLabel(g, t, reg, c.row, c.col, depth+1); ok {
				res.Method = fmt.Sprintf("nested label of '%s'", value)
				return res, true
			}
			continue
		}

		// 候选命中排除模式（日期等）：从候选格再向右、向下各看一格
		if MatchAny(value, reg.InvNoExcludes) {
			if res, ok := extendedSearch(g, t, reg, c.row, c.col); ok {
				return res, true
			}
			continue
		}

		cleaned := CleanInvNoPrefix(value)
		if validInvNoValue(reg, cleaned) {
			return InvNoResult{Value: cleaned, Row: c.row, Col: c.col, Method: c.method}, true
		}
	}
	return InvNoResult{}, false
}

// extendedSearch 排除命中后的补充搜索：先右后下各一格
func extendedSearch(g Grid, t *MergeTracker, reg *Registry, row, col int) (InvNoResult, bool) {
	next := []struct {
		row, col int
		method   string
	}{
		{row, col + 1, "1 cell(s) right"},
		{row + 1, col, "1 row(s) below"},
	}
	for _, c := range next {
		if c.row > g.Rows() || c.col > g.Cols() {
			continue
		}
		value := CleanInvNoPrefix(t.AnchorValue(g, c.row, c.col))
		if MatchAny(value, reg.InvNoExcludes) {
			continue
		}
		if validInvNoValue(reg, value) {
			return InvNoResult{Value: value, Row: c.row, Col: c.col, Method: c.method}, true
		}
	}
	return InvNoResult{}, false
}

// isPureLabel 判断候选是否只是另一个标签
// 剥掉标签关键词（已按长度降序）后剩余字母数字不足 3 个即为纯标签
func isPureLabel(reg *Registry, s string) bool {
	if !MatchAny(s, reg.InvNoLabels) {
		return false
	}
	stripped := strings.ToLower(s)
	for _, kw := range reg.LabelKeywords {
		stripped = strings.ReplaceAll(stripped, strings.ToLower(kw), "")
	}
	return AlnumCount(stripped) < 3
}

// validInvNoValue 候选值基础校验：非空、非排除、含至少 3 个字母数字且非纯标签
func validInvNoValue(reg *Registry, s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || AlnumCount(s) < 3 {
		return false
	}
	if MatchAny(s, reg.InvNoExcludes) {
		return false
	}
	return !isPureLabel(reg, s)
}
