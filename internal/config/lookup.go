package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
	"autoconvert/internal/transform"
)

// 换算表列头，首行必须按此命名
const (
	lookupSourceHeader = "Source_Value"
	lookupTargetHeader = "Target_Code"
)

// LoadLookupTables 装载币制与国别换算表
// 源值按各自的查表键规范化，规范化后的重复键为配置错误
func LoadLookupTables(cfg *AppConfig) (transform.Tables, *model.ConfigError) {
	tables := transform.Tables{}

	currency, err := loadLookupFile(
		filepath.Join(cfg.ConfigDir(), "currency_rules.xlsx"),
		transform.NormalizeCurrencyKey,
	)
	if err != nil {
		return tables, err
	}
	country, err := loadLookupFile(
		filepath.Join(cfg.ConfigDir(), "country_rules.xlsx"),
		transform.NormalizeCountryKey,
	)
	if err != nil {
		return tables, err
	}

	tables.Currency = currency
	tables.Country = country
	return tables, nil
}

func loadLookupFile(path string, normalize func(string) string) (map[string]string, *model.ConfigError) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: fmt.Sprintf("cannot open lookup table %s: %v", path, err),
		}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: fmt.Sprintf("lookup table %s has no sheets", path),
		}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		return nil, &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: fmt.Sprintf("lookup table %s is empty or unreadable", path),
		}
	}

	header := rows[0]
	if len(header) < 2 ||
		!strings.EqualFold(strings.TrimSpace(header[0]), lookupSourceHeader) ||
		!strings.EqualFold(strings.TrimSpace(header[1]), lookupTargetHeader) {
		return nil, &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: fmt.Sprintf("lookup table %s must start with %s/%s columns", path, lookupSourceHeader, lookupTargetHeader),
		}
	}

	out := make(map[string]string, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		key := normalize(row[0])
		target := strings.TrimSpace(row[1])
		if key == "" || target == "" {
			continue
		}
		if _, dup := out[key]; dup {
			return nil, &model.ConfigError{
				Code:    model.ErrDuplicateLookupKey,
				Message: fmt.Sprintf("lookup table %s row %d: duplicate source value %q", path, i+2, row[0]),
			}
		}
		out[key] = target
	}
	return out, nil
}

// CurrencySourceKeys 币制换算表的全部源值，用于补充已知币制记号
func CurrencySourceKeys(tables transform.Tables) []string {
	keys := make([]string, 0, len(tables.Currency))
	for k := range tables.Currency {
		keys = append(keys, k)
	}
	return keys
}
