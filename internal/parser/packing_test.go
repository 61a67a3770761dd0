package parser

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"autoconvert/internal/model"
)

func packingColumnMap() *ColumnMap {
	return &ColumnMap{
		Kind: SheetPacking,
		Columns: map[string]int{
			FieldPartNo: 0, FieldQty: 1, FieldNW: 2, FieldGW: 3, FieldPack: 4,
		},
		Sources:      map[string]MatchSource{},
		HeaderRow:    8,
		DataStartRow: 9,
	}
}

func TestExtractPackingItems_MergedWeightSamePart(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	g.set(10, 2, "5")
	g.setRow(11, "P2", "3", "8", "9")
	g.setRow(12, "", "", "18.5", "21")
	tracker := NewMergeTracker([]model.MergeRange{
		merge(9, 1, 10, 1), merge(9, 3, 10, 3),
	})

	items, lastDataRow, errs := ExtractPackingItems(g, tracker, packingColumnMap())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 3 {
		t.Fatalf("items: want 3 got %d", len(items))
	}
	if lastDataRow != 11 {
		t.Fatalf("lastDataRow: want 11 got %d", lastDataRow)
	}

	if !items[0].FirstRowOfMerge || !items[0].NW.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("first merge row: %+v", items[0])
	}
	// 合并延续行不重复计重
	if items[1].FirstRowOfMerge || !items[1].NW.IsZero() {
		t.Fatalf("continuation row should carry zero weight: %+v", items[1])
	}
	if items[1].PartNo != "P1" || !items[1].Qty.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("continuation row: %+v", items[1])
	}
}

func TestExtractPackingItems_DittoMark(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	g.setRow(10, "P1", "5", "〃")
	g.setRow(11, "TOTAL", "", "10.5", "12")

	items, _, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 2 {
		t.Fatalf("items: want 2 got %d", len(items))
	}
	if items[1].FirstRowOfMerge || !items[1].NW.IsZero() {
		t.Fatalf("ditto row should carry zero weight: %+v", items[1])
	}
}

func TestExtractPackingItems_SharedMergedWeightRejected(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	g.setRow(10, "P2", "3")
	g.setRow(11, "TOTAL", "", "10.5", "12")
	tracker := NewMergeTracker([]model.MergeRange{merge(9, 3, 10, 3)})

	_, _, errs := ExtractPackingItems(g, tracker, packingColumnMap())
	if len(errs) != 1 {
		t.Fatalf("want 1 error got %d: %v", len(errs), errs)
	}
	if errs[0].Code != model.ErrMergedWeightShared {
		t.Fatalf("error code: want %s got %s", model.ErrMergedWeightShared, errs[0].Code)
	}
	if !strings.Contains(errs[0].Message, "P1, P2") {
		t.Fatalf("error should name both parts: %s", errs[0].Message)
	}
}

func TestExtractPackingItems_SkipsNoiseRows(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	// 表头延续行与净重列单位标注行都整行跳过
	g.setRow(9, "Part No.", "Q'TY", "N.W.", "G.W.")
	g.set(10, 3, "KGS")
	g.setRow(11, "P1", "5", "10.5", "12")
	g.setRow(12, "TOTAL", "", "10.5", "12")

	items, _, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 1 || items[0].PartNo != "P1" {
		t.Fatalf("items: %+v", items)
	}
}

func TestExtractPackingItems_StopsAtPalletRow(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	g.setRow(10, "PLT.G", "", "2.5", "3")
	g.setRow(11, "P9", "9", "9", "9")

	items, lastDataRow, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 1 || lastDataRow != 9 {
		t.Fatalf("pallet row should end extraction: items=%d lastDataRow=%d", len(items), lastDataRow)
	}
}

func TestExtractPackingItems_StopsAtImplicitTotal(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	g.setRow(10, "P2", "3", "8", "9")
	g.setRow(11, "", "", "18.5", "21")

	items, lastDataRow, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(items) != 2 || lastDataRow != 10 {
		t.Fatalf("implicit total should end extraction: items=%d lastDataRow=%d", len(items), lastDataRow)
	}
}

func TestExtractPackingItems_WeightWithoutPart(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	g.setRow(9, "P1", "5", "10.5", "12")
	// 无料号但有数量的行是数据质量问题，不是合计行
	g.setRow(10, "", "4", "7")

	_, _, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 1 {
		t.Fatalf("want 1 error got %d: %v", len(errs), errs)
	}
	if errs[0].Code != model.ErrEmptyRequiredField || errs[0].Field != FieldPartNo {
		t.Fatalf("error: %s/%s", errs[0].Code, errs[0].Field)
	}
}

func TestExtractPackingItems_Empty(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(20, 8)
	_, _, errs := ExtractPackingItems(g, NewMergeTracker(nil), packingColumnMap())
	if len(errs) != 1 || errs[0].Code != model.ErrNoPackingItems {
		t.Fatalf("want NO_PACKING_ITEMS got %v", errs)
	}
}
