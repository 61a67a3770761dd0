package transform

import (
	"testing"

	"autoconvert/internal/model"
)

func TestCleanPONumber(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"PO123-45":    "PO123",
		"PO99.A":      "PO99",
		"PO1/2":       "PO1",
		"PO7 (rev2)":  "PO7",
		"PO555":       "PO555",
		" PO8 , PO9 ": "PO8",
		// 分隔符打头的不截
		"-PO1": "-PO1",
	}
	for in, want := range cases {
		if got := CleanPONumber(in); got != want {
			t.Fatalf("CleanPONumber(%q): want %q got %q", in, want, got)
		}
	}
}

func TestNormalizeCountryKey(t *testing.T) {
	t.Parallel()

	if got := NormalizeCountryKey(" Korea, Republic of "); got != "KOREA,REPUBLIC OF" {
		t.Fatalf("NormalizeCountryKey: got %q", got)
	}
}

func testTables() Tables {
	return Tables{
		Currency: map[string]string{"USD": "502", "RMB": "142"},
		Country:  map[string]string{"CHINA": "142", "JAPAN": "116"},
	}
}

func TestApplyTransforms_Lookups(t *testing.T) {
	t.Parallel()

	items := []model.InvoiceItem{
		{PartNo: "P1", PONo: "PO123-45", Currency: "usd", COO: "China"},
		{PartNo: "P2", PONo: "PO7", Currency: "USD", COO: "JAPAN"},
	}

	out, warns := ApplyTransforms(items, testTables())
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if out[0].PONo != "PO123" {
		t.Fatalf("po: want PO123 got %q", out[0].PONo)
	}
	if out[0].Currency != "502" || out[1].Currency != "502" {
		t.Fatalf("currency codes: got %q %q", out[0].Currency, out[1].Currency)
	}
	if out[0].COO != "142" || out[1].COO != "116" {
		t.Fatalf("country codes: got %q %q", out[0].COO, out[1].COO)
	}
	// 输入不被修改
	if items[0].Currency != "usd" {
		t.Fatalf("input items must not be mutated")
	}
}

func TestApplyTransforms_CODSubstitution(t *testing.T) {
	t.Parallel()

	items := []model.InvoiceItem{
		{PartNo: "P1", Currency: "USD", COO: "***", COD: "CHINA"},
		{PartNo: "P2", Currency: "USD", COO: "", COD: "JAPAN"},
	}

	out, warns := ApplyTransforms(items, testTables())
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if out[0].COO != "142" || out[1].COO != "116" {
		t.Fatalf("cod substitution: got %q %q", out[0].COO, out[1].COO)
	}
}

func TestApplyTransforms_UnknownValuesWarnOnce(t *testing.T) {
	t.Parallel()

	items := []model.InvoiceItem{
		{PartNo: "P1", Currency: "XXX", COO: "CHINA"},
		{PartNo: "P2", Currency: "XXX", COO: "CHINA"},
		{PartNo: "P3", Currency: "USD", COO: "ATLANTIS"},
	}

	out, warns := ApplyTransforms(items, testTables())
	if len(warns) != 2 {
		t.Fatalf("want 2 warnings got %d: %v", len(warns), warns)
	}
	if warns[0].Code != model.WarnUnknownCurrency || warns[1].Code != model.WarnUnknownCountry {
		t.Fatalf("warning codes: %s %s", warns[0].Code, warns[1].Code)
	}
	// 未知值保留原样
	if out[0].Currency != "XXX" || out[2].COO != "ATLANTIS" {
		t.Fatalf("unknown values should pass through: %q %q", out[0].Currency, out[2].COO)
	}
}
