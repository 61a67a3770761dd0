package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
)

func testConfig(configDir string) *AppConfig {
	cfg := DefaultConfig()
	cfg.Data.ConfigDir = configDir
	return cfg
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AUTOCONVERT_DATA_DIR", "/srv/inbox")
	t.Setenv("AUTOCONVERT_CONFIG_DIR", "/srv/rules")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Data.DataDir != "/srv/inbox" || cfg.Data.ConfigDir != "/srv/rules" {
		t.Fatalf("env overrides not applied: %+v", cfg.Data)
	}
	if cfg.DataDir() != "/srv/inbox" {
		t.Fatalf("absolute data dir should be used as-is: %q", cfg.DataDir())
	}
}

func TestLoadRegistry_Defaults(t *testing.T) {
	t.Parallel()

	reg, cerr := LoadRegistry(testConfig(t.TempDir()))
	if cerr != nil {
		t.Fatalf("LoadRegistry: %v", cerr)
	}
	if !reg.IsCurrencyToken("USD") {
		t.Fatalf("built-in currency tokens should be present")
	}
	if reg.HeaderScanStart != 7 || reg.HeaderScanEnd != 30 {
		t.Fatalf("scan window: %d-%d", reg.HeaderScanStart, reg.HeaderScanEnd)
	}
}

func TestLoadRegistry_YAMLOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	overlay := []byte("currency_tokens:\n  - USD\n  - AUD\n  - NTD\n")
	if err := os.WriteFile(filepath.Join(dir, "field_patterns.yaml"), overlay, 0644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	reg, cerr := LoadRegistry(testConfig(dir))
	if cerr != nil {
		t.Fatalf("LoadRegistry: %v", cerr)
	}
	if !reg.IsCurrencyToken("NTD") {
		t.Fatalf("overlay token should be present")
	}
	// 未覆盖的段保持内置模式
	if len(reg.InvoiceFields) == 0 {
		t.Fatalf("built-in field patterns should survive a partial overlay")
	}
}

func TestLoadRegistry_InvalidPattern(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	overlay := []byte("invoice_sheet:\n  - \"([\"\n")
	if err := os.WriteFile(filepath.Join(dir, "field_patterns.yaml"), overlay, 0644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	_, cerr := LoadRegistry(testConfig(dir))
	if cerr == nil || cerr.Code != model.ErrInvalidPattern {
		t.Fatalf("want INVALID_PATTERN got %v", cerr)
	}
}

func writeLookupFile(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			axis, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellStr("Sheet1", axis, v); err != nil {
				t.Fatalf("SetCellStr: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestLoadLookupTables(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLookupFile(t, filepath.Join(dir, "currency_rules.xlsx"), [][]string{
		{"Source_Value", "Target_Code"},
		{"usd", "502"},
		{"RMB", "142"},
	})
	writeLookupFile(t, filepath.Join(dir, "country_rules.xlsx"), [][]string{
		{"Source_Value", "Target_Code"},
		{"China", "142"},
		{"Korea, Republic of", "133"},
	})

	tables, cerr := LoadLookupTables(testConfig(dir))
	if cerr != nil {
		t.Fatalf("LoadLookupTables: %v", cerr)
	}
	if tables.Currency["USD"] != "502" {
		t.Fatalf("currency source values should be normalized: %v", tables.Currency)
	}
	if tables.Country["KOREA,REPUBLIC OF"] != "133" {
		t.Fatalf("country keys should squeeze comma spacing: %v", tables.Country)
	}

	keys := CurrencySourceKeys(tables)
	if len(keys) != 2 {
		t.Fatalf("currency source keys: want 2 got %d", len(keys))
	}
}

func TestLoadLookupTables_DuplicateKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLookupFile(t, filepath.Join(dir, "currency_rules.xlsx"), [][]string{
		{"Source_Value", "Target_Code"},
		{"USD", "502"},
		{"usd ", "502"},
	})
	writeLookupFile(t, filepath.Join(dir, "country_rules.xlsx"), [][]string{
		{"Source_Value", "Target_Code"},
	})

	_, cerr := LoadLookupTables(testConfig(dir))
	if cerr == nil || cerr.Code != model.ErrDuplicateLookupKey {
		t.Fatalf("want DUPLICATE_LOOKUP_KEY got %v", cerr)
	}
}

func TestLoadLookupTables_BadHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLookupFile(t, filepath.Join(dir, "currency_rules.xlsx"), [][]string{
		{"Value", "Code"},
	})

	_, cerr := LoadLookupTables(testConfig(dir))
	if cerr == nil || cerr.Code != model.ErrConfigFileMissing {
		t.Fatalf("want CONFIG_FILE_MISSING got %v", cerr)
	}
}

func TestValidateTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "output_template.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "工作表1"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	for row := 1; row <= 4; row++ {
		axis, _ := excelize.CoordinatesToCellName(40, row)
		if err := f.SetCellStr("工作表1", axis, "x"); err != nil {
			t.Fatalf("SetCellStr: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	if cerr := ValidateTemplate(path); cerr != nil {
		t.Fatalf("valid template rejected: %v", cerr)
	}
}

func TestValidateTemplate_WrongSheet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	cerr := ValidateTemplate(path)
	if cerr == nil || cerr.Code != model.ErrInvalidTemplate {
		t.Fatalf("want INVALID_TEMPLATE got %v", cerr)
	}
}

func TestValidateTemplate_MissingFile(t *testing.T) {
	t.Parallel()

	cerr := ValidateTemplate(filepath.Join(t.TempDir(), "missing.xlsx"))
	if cerr == nil || cerr.Code != model.ErrConfigFileMissing {
		t.Fatalf("want CONFIG_FILE_MISSING got %v", cerr)
	}
}
