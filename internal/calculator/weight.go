package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"autoconvert/internal/model"
	"autoconvert/internal/parser"
)

// 聚合净重与总净重的允许偏差，超出即判定为输入数据问题而非取整分歧
var sumTolerance = decimal.RequireFromString("0.1")

const (
	minPrecision = 2
	maxPrecision = 5
	// 防零递增的精度上限比常规上限多一位
	zeroGuardCap = 6
)

// AllocateWeights 将装箱单总净重按数量比例分摊到发票明细
// 阶段推进：聚合 → 预检 → 定精度 → 取整调差 → 分摊 → 复核
// 输入明细不被修改，返回带净重的新切片，顺序与输入一致
func AllocateWeights(items []model.InvoiceItem, packing []model.PackingItem, totals model.PackingTotals) ([]model.InvoiceItem, []*model.ProcessingError) {
	var errs []*model.ProcessingError

	// 聚合：按料号累计净重，数值合并只计首行
	keys := make([]string, 0, len(packing))
	weights := make(map[string]decimal.Decimal)
	for _, p := range packing {
		key := strings.TrimSpace(p.PartNo)
		if _, seen := weights[key]; !seen {
			keys = append(keys, key)
			weights[key] = decimal.Zero
		}
		if p.FirstRowOfMerge {
			weights[key] = weights[key].Add(p.NW)
		}
	}

	// 发票侧分组，保持原始行序
	invIdx := make(map[string][]int)
	invKeys := make([]string, 0, len(items))
	invQty := make(map[string]decimal.Decimal)
	for i, it := range items {
		key := strings.TrimSpace(it.PartNo)
		if _, seen := invIdx[key]; !seen {
			invKeys = append(invKeys, key)
			invQty[key] = decimal.Zero
		}
		invIdx[key] = append(invIdx[key], i)
		invQty[key] = invQty[key].Add(it.Qty)
	}

	// 交叉校验：两侧料号必须完全对上，发票侧缺失先报
	for _, key := range invKeys {
		if _, ok := weights[key]; !ok {
			errs = append(errs, model.NewFieldError(model.ErrPartNotInPacking, "part_no", 0,
				"invoice part %q not found in packing list", key))
		}
	}
	for _, key := range keys {
		if _, ok := invIdx[key]; !ok {
			errs = append(errs, model.NewFieldError(model.ErrPackingPartNotInvoice, "part_no", 0,
				"packing part %q not found in invoice", key))
		}
	}
	for _, key := range keys {
		if !weights[key].IsPositive() {
			errs = append(errs, model.NewFieldError(model.ErrPackingPartZeroNW, "nw", 0,
				"packing part %q has aggregate net weight %s", key, weights[key]))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	// 预检：聚合和与总净重偏差超限直接失败，不进入取整
	sum := decimal.Zero
	for _, key := range keys {
		sum = sum.Add(weights[key])
	}
	if sum.Sub(totals.TotalNW).Abs().GreaterThan(sumTolerance) {
		return nil, []*model.ProcessingError{model.NewError(model.ErrPackingSumMismatch,
			"packing weights sum to %s but total net weight is %s (tolerance %s)",
			sum, totals.TotalNW, sumTolerance)}
	}

	precision, zerr := determinePrecision(keys, weights, totals.TotalNW, totals.NWPrecision)
	if zerr != nil {
		return nil, []*model.ProcessingError{zerr}
	}

	// 取整调差：逐料号取整，末位料号吸收差额保证总和精确相等
	rounded := make(map[string]decimal.Decimal, len(keys))
	acc := decimal.Zero
	for i, key := range keys {
		if i == len(keys)-1 {
			rounded[key] = totals.TotalNW.Sub(acc)
			break
		}
		rounded[key] = parser.RoundHalfUp(weights[key], precision)
		acc = acc.Add(rounded[key])
	}
	last := keys[len(keys)-1]
	if !rounded[last].IsPositive() {
		return nil, []*model.ProcessingError{model.NewFieldError(model.ErrNegativeRemainder, "nw", 0,
			"remainder weight %s for part %q is not positive after rounding", rounded[last], last)}
	}

	// 分摊：按数量占比在明细间分配，组内末行吸收自身差额
	out := make([]model.InvoiceItem, len(items))
	copy(out, items)
	allocPrecision := precision + 1
	for _, key := range keys {
		idxs := invIdx[key]
		qtyTotal := invQty[key]
		if qtyTotal.IsZero() {
			errs = append(errs, model.NewFieldError(model.ErrZeroQuantityForPart, "qty", 0,
				"invoice part %q has zero total quantity", key))
			continue
		}
		allocated := decimal.Zero
		for n, idx := range idxs {
			if n == len(idxs)-1 {
				w := rounded[key].Sub(allocated)
				if !w.IsPositive() {
					errs = append(errs, model.NewFieldError(model.ErrAllocationMismatch, "weight", out[idx].Row,
						"allocated weight %s for part %q row %d is not positive", w, key, out[idx].Row))
				}
				out[idx].Weight = w
				break
			}
			w := rounded[key].Mul(out[idx].Qty).DivRound(qtyTotal, allocPrecision)
			out[idx].Weight = w
			allocated = allocated.Add(w)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	// 复核：分摊结果必须精确等于取整后的料号重量与总净重
	if verr := verifyAllocation(out, keys, rounded, totals.TotalNW); verr != nil {
		return nil, []*model.ProcessingError{verr}
	}
	return out, nil
}

// determinePrecision 定精度
// 基准精度取总净重小数位并夹取到 [2,5]；先试 N 再试 N+1 求和吻合；
// 防零递增独立进行，最多到 6 位，一旦无料号取整为零即停
func determinePrecision(keys []string, weights map[string]decimal.Decimal, totalNW decimal.Decimal, nwPrecision int32) (int32, *model.ProcessingError) {
	base := nwPrecision
	if base < minPrecision {
		base = minPrecision
	}
	if base > maxPrecision {
		base = maxPrecision
	}

	sumMatches := func(p int32) bool {
		s := decimal.Zero
		for _, key := range keys {
			s = s.Add(parser.RoundHalfUp(weights[key], p))
		}
		return s.Equal(totalNW)
	}

	precision := base
	if !sumMatches(base) {
		next := base + 1
		if next > maxPrecision {
			next = maxPrecision
		}
		// N+1 也不吻合时仍取 N+1，由末位调差补齐
		precision = next
	}

	roundsToZero := func(p int32) string {
		for _, key := range keys {
			if parser.RoundHalfUp(weights[key], p).IsZero() {
				return key
			}
		}
		return ""
	}
	for roundsToZero(precision) != "" && precision < zeroGuardCap {
		precision++
	}
	if key := roundsToZero(precision); key != "" {
		return 0, model.NewFieldError(model.ErrWeightRoundsToZero, "nw", 0,
			"weight for part %q rounds to zero even at precision %d", key, precision)
	}
	return precision, nil
}

// verifyAllocation 复核分摊结果的精确求和不变量
func verifyAllocation(items []model.InvoiceItem, keys []string, rounded map[string]decimal.Decimal, totalNW decimal.Decimal) *model.ProcessingError {
	perKey := make(map[string]decimal.Decimal, len(keys))
	grand := decimal.Zero
	for _, it := range items {
		key := strings.TrimSpace(it.PartNo)
		perKey[key] = perKey[key].Add(it.Weight)
		grand = grand.Add(it.Weight)
	}
	for _, key := range keys {
		if !perKey[key].Equal(rounded[key]) {
			return model.NewFieldError(model.ErrAllocationMismatch, "weight", 0,
				"allocated sum %s for part %q does not equal rounded weight %s", perKey[key], key, rounded[key])
		}
	}
	if !grand.Equal(totalNW) {
		return model.NewError(model.ErrAllocationMismatch,
			"allocated grand total %s does not equal total net weight %s", grand, totalNW)
	}
	return nil
}
