package parser

import (
	"testing"

	"autoconvert/internal/model"
)

func TestMergeTracker_OriginAndFirstRow(t *testing.T) {
	t.Parallel()

	tracker := NewMergeTracker([]model.MergeRange{
		merge(9, 1, 11, 1),
		merge(9, 4, 11, 4),
	})

	if r, c := tracker.OriginOf(10, 1); r != 9 || c != 1 {
		t.Fatalf("OriginOf(10,1): want (9,1) got (%d,%d)", r, c)
	}
	if r, c := tracker.OriginOf(5, 5); r != 5 || c != 5 {
		t.Fatalf("OriginOf unmerged: want (5,5) got (%d,%d)", r, c)
	}

	if !tracker.IsFirstRowOfMerge(9, 4) {
		t.Fatalf("top row of merge should be first")
	}
	if tracker.IsFirstRowOfMerge(10, 4) {
		t.Fatalf("continuation row should not be first")
	}
	if !tracker.IsFirstRowOfMerge(20, 4) {
		t.Fatalf("unmerged cell counts as first row")
	}
}

func TestMergeTracker_AnchorValue(t *testing.T) {
	t.Parallel()

	g := newFakeGrid(12, 5).set(9, 1, "P100-A")
	tracker := NewMergeTracker([]model.MergeRange{merge(9, 1, 11, 1)})

	if got := tracker.AnchorValue(g, 11, 1); got != "P100-A" {
		t.Fatalf("AnchorValue continuation: want P100-A got %q", got)
	}
	if got := tracker.AnchorValue(g, 9, 1); got != "P100-A" {
		t.Fatalf("AnchorValue origin: want P100-A got %q", got)
	}
}

func TestMergeTracker_HeaderVsDataMerge(t *testing.T) {
	t.Parallel()

	tracker := NewMergeTracker(nil)
	headerMerge := merge(7, 1, 8, 1)
	dataMerge := merge(9, 1, 11, 1)

	if !tracker.IsHeaderMerge(headerMerge, 8) {
		t.Fatalf("merge starting at header row should be header merge")
	}
	if !tracker.IsDataMerge(dataMerge, 8) {
		t.Fatalf("merge below header row should be data merge")
	}
	if tracker.IsDataMerge(headerMerge, 8) {
		t.Fatalf("header merge misclassified as data merge")
	}
}

func TestMergeTracker_RangeAt(t *testing.T) {
	t.Parallel()

	tracker := NewMergeTracker([]model.MergeRange{merge(3, 2, 3, 6)})

	r, ok := tracker.RangeAt(3, 4)
	if !ok || r.Left != 2 || r.Right != 6 {
		t.Fatalf("RangeAt: want cols 2-6 got %+v ok=%v", r, ok)
	}
	if _, ok := tracker.RangeAt(4, 4); ok {
		t.Fatalf("RangeAt outside merge should miss")
	}
}
