package config

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"autoconvert/internal/model"
)

// 输出模板的结构要求
const (
	templateSheetName = "工作表1"
	templateMinCols   = 40
	templateMinRows   = 4
)

// TemplateSheetName 输出模板数据页名称
func TemplateSheetName() string { return templateSheetName }

// ValidateTemplate 启动时校验输出模板结构
func ValidateTemplate(path string) *model.ConfigError {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: fmt.Sprintf("cannot open output template %s: %v", path, err),
		}
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(templateSheetName)
	if err != nil || idx < 0 {
		return &model.ConfigError{
			Code:    model.ErrInvalidTemplate,
			Message: fmt.Sprintf("output template %s has no sheet %q", path, templateSheetName),
		}
	}

	rows, err := f.GetRows(templateSheetName)
	if err != nil {
		return &model.ConfigError{
			Code:    model.ErrInvalidTemplate,
			Message: fmt.Sprintf("cannot read output template %s: %v", path, err),
		}
	}
	if len(rows) < templateMinRows {
		return &model.ConfigError{
			Code:    model.ErrInvalidTemplate,
			Message: fmt.Sprintf("output template %s has %d rows, need at least %d header rows", path, len(rows), templateMinRows),
		}
	}
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols < templateMinCols {
		return &model.ConfigError{
			Code:    model.ErrInvalidTemplate,
			Message: fmt.Sprintf("output template %s has %d columns, need at least %d", path, maxCols, templateMinCols),
		}
	}
	return nil
}
