package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"autoconvert/internal/config"
	"autoconvert/internal/model"
	"autoconvert/internal/parser"
	"autoconvert/internal/transform"
)

func testRunner(t *testing.T) (*Runner, *config.AppConfig) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()
	cfg.Data.ConfigDir = t.TempDir()
	if err := config.EnsureDirs(cfg); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	writeOutputTemplate(t, cfg.TemplatePath())

	reg, err := parser.CompileRegistry(parser.DefaultRegistryOptions())
	if err != nil {
		t.Fatalf("CompileRegistry: %v", err)
	}
	tables := transform.Tables{
		Currency: map[string]string{"USD": "502"},
		Country:  map[string]string{"CHINA": "142"},
	}
	return NewRunner(cfg, reg, tables), cfg
}

func writeOutputTemplate(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "工作表1"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for row := 1; row <= 4; row++ {
		axis, _ := excelize.CoordinatesToCellName(40, row)
		if err := f.SetCellStr("工作表1", axis, "h"); err != nil {
			t.Fatalf("SetCellStr: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func setRowValues(t *testing.T, f *excelize.File, sheet string, row int, values ...interface{}) {
	t.Helper()

	for i, v := range values {
		if v == nil {
			continue
		}
		axis, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			t.Fatalf("SetCellValue(%s!%s): %v", sheet, axis, err)
		}
	}
}

func writeVendorWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Invoice"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if _, err := f.NewSheet("Packing List"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}

	setRowValues(t, f, "Invoice", 2, "Invoice No:", "INV001")
	setRowValues(t, f, "Invoice", 8, "Part No.", "PO NO", "Q'TY", "Unit Price", "Amount", "Currency", "Country of Origin")
	setRowValues(t, f, "Invoice", 9, "P100", "PO123-1", 2, 1.5, 3, "USD", "CHINA")
	setRowValues(t, f, "Invoice", 10, "P200", "PO124", 2, 2, 4, "USD", "CHINA")
	setRowValues(t, f, "Invoice", 11, "TOTAL")

	setRowValues(t, f, "Packing List", 8, "Part No.", "Q'TY", "N.W.", "G.W.")
	setRowValues(t, f, "Packing List", 9, "P100", 2, 106.1, 110)
	setRowValues(t, f, "Packing List", 10, "P200", 2, 106.4, 112)
	setRowValues(t, f, "Packing List", 13, "TOTAL", nil, 212.5, 230)
	setRowValues(t, f, "Packing List", 14, "共2托")

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestProcessFile_EndToEnd(t *testing.T) {
	t.Parallel()

	runner, cfg := testRunner(t)
	src := filepath.Join(cfg.DataDir(), "vendor.xlsx")
	writeVendorWorkbook(t, src)

	fr := runner.ProcessFile(src)
	if fr.Status != model.StatusSuccess {
		t.Fatalf("status: want Success got %s (errs=%v warns=%v)", fr.Status, fr.Errors, fr.Warnings)
	}
	if fr.OutputPath == "" {
		t.Fatalf("successful file should have an output path")
	}

	out, err := excelize.OpenFile(fr.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()

	get := func(axis string) string {
		v, gerr := out.GetCellValue("工作表1", axis)
		if gerr != nil {
			t.Fatalf("GetCellValue(%s): %v", axis, gerr)
		}
		return v
	}

	if get("A5") != "P100" || get("A6") != "P200" {
		t.Fatalf("part numbers: %q %q", get("A5"), get("A6"))
	}
	// 采购订单号截到首个分隔符，币制与国别换算为代码
	if get("B5") != "PO123" {
		t.Fatalf("po: want PO123 got %q", get("B5"))
	}
	if get("D5") != "502" || get("H5") != "142" {
		t.Fatalf("currency/country codes: %q %q", get("D5"), get("H5"))
	}
	// 料号重量精确分摊，发票号回填，毛重与件数只在首行
	if get("M5") != "106.1" || get("M6") != "106.4" {
		t.Fatalf("weights: %q %q", get("M5"), get("M6"))
	}
	if get("N5") != "INV001" {
		t.Fatalf("invoice number: %q", get("N5"))
	}
	if get("P5") != "230" || get("AK5") != "2" {
		t.Fatalf("gw/packets: %q %q", get("P5"), get("AK5"))
	}
	if get("P6") != "" {
		t.Fatalf("gw must not repeat on later rows: %q", get("P6"))
	}
}

func writeMappedInvNoWorkbook(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Invoice"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if _, err := f.NewSheet("Packing List"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}

	// 表头区没有发票号标签，发票号只出现在映射列里
	setRowValues(t, f, "Invoice", 16, "Part No.", "PO NO", "Q'TY", "Unit Price", "Amount", "Currency", "Country of Origin", "Invoice No.")
	setRowValues(t, f, "Invoice", 17, "P100", "PO123-1", 2, 1.5, 3, "USD", "CHINA", "INV001")
	setRowValues(t, f, "Invoice", 18, "P200", "PO124", 2, 2, 4, "USD", "CHINA", "INV001")
	setRowValues(t, f, "Invoice", 19, "TOTAL")

	setRowValues(t, f, "Packing List", 8, "Part No.", "Q'TY", "N.W.", "G.W.")
	setRowValues(t, f, "Packing List", 9, "P100", 2, 106.1, 110)
	setRowValues(t, f, "Packing List", 10, "P200", 2, 106.4, 112)
	setRowValues(t, f, "Packing List", 13, "TOTAL", nil, 212.5, 230)
	setRowValues(t, f, "Packing List", 14, "共2托")

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestProcessFile_MappedInvoiceNumberColumn(t *testing.T) {
	t.Parallel()

	runner, cfg := testRunner(t)
	src := filepath.Join(cfg.DataDir(), "mapped_invno.xlsx")
	writeMappedInvNoWorkbook(t, src)

	fr := runner.ProcessFile(src)
	if fr.Status != model.StatusSuccess {
		t.Fatalf("status: want Success got %s (errs=%v warns=%v)", fr.Status, fr.Errors, fr.Warnings)
	}

	out, err := excelize.OpenFile(fr.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()

	v, gerr := out.GetCellValue("工作表1", "N5")
	if gerr != nil {
		t.Fatalf("GetCellValue: %v", gerr)
	}
	if v != "INV001" {
		t.Fatalf("invoice number from mapped column: want INV001 got %q", v)
	}
}

func TestProcessFile_MissingPackingSheet(t *testing.T) {
	t.Parallel()

	runner, cfg := testRunner(t)
	src := filepath.Join(cfg.DataDir(), "invoice_only.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Invoice"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	if err := f.SaveAs(src); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	fr := runner.ProcessFile(src)
	if fr.Status != model.StatusFailed {
		t.Fatalf("status: want Failed got %s", fr.Status)
	}
	if fr.OutputPath != "" {
		t.Fatalf("failed file must not produce output")
	}
	if len(fr.Errors) != 1 || fr.Errors[0].Code != model.ErrPackingSheetMissing {
		t.Fatalf("errors: %v", fr.Errors)
	}
}

func TestProcessFile_CorruptFile(t *testing.T) {
	t.Parallel()

	runner, cfg := testRunner(t)
	src := filepath.Join(cfg.DataDir(), "broken.xlsx")
	if err := os.WriteFile(src, []byte("not a workbook"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fr := runner.ProcessFile(src)
	if fr.Status != model.StatusFailed {
		t.Fatalf("status: want Failed got %s", fr.Status)
	}
	if len(fr.Errors) != 1 || fr.Errors[0].Code != model.ErrFileCorrupt {
		t.Fatalf("errors: %v", fr.Errors)
	}
}

func TestRun_ScansInboxAndSkipsTempFiles(t *testing.T) {
	t.Parallel()

	runner, cfg := testRunner(t)
	writeVendorWorkbook(t, filepath.Join(cfg.DataDir(), "vendor.xlsx"))
	if err := os.WriteFile(filepath.Join(cfg.DataDir(), "~$vendor.xlsx"), []byte("office lock"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.DataDir(), "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result := runner.Run("")
	if result.TotalFiles != 1 {
		t.Fatalf("total files: want 1 got %d", result.TotalFiles)
	}
	if result.SuccessCount != 1 || result.FailedCount != 0 {
		t.Fatalf("counts: %+v", result)
	}
	if result.RunID == "" {
		t.Fatalf("run id should be assigned")
	}
}
