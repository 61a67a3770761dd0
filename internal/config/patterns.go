package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"autoconvert/internal/model"
	"autoconvert/internal/parser"
)

// LoadRegistry 构建模式注册表
// config/field_patterns.yaml 存在时覆盖内置模式表，缺省时用内置表
// 任一正则非法即为配置错误，进程应以退出码 2 结束
func LoadRegistry(cfg *AppConfig) (*parser.Registry, *model.ConfigError) {
	opts := parser.DefaultRegistryOptions()
	if cfg.Parser.HeaderScanStart > 0 {
		opts.HeaderScanStart = cfg.Parser.HeaderScanStart
	}
	if cfg.Parser.HeaderScanEnd > 0 {
		opts.HeaderScanEnd = cfg.Parser.HeaderScanEnd
	}
	if cfg.Parser.InvoiceMinHeaderCells > 0 {
		opts.InvoiceMinHeaderCells = cfg.Parser.InvoiceMinHeaderCells
	}
	if cfg.Parser.PackingMinHeaderCells > 0 {
		opts.PackingMinHeaderCells = cfg.Parser.PackingMinHeaderCells
	}

	path := filepath.Join(cfg.ConfigDir(), "field_patterns.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := yaml.Unmarshal(data, &opts); uerr != nil {
			return nil, &model.ConfigError{
				Code:    model.ErrInvalidPattern,
				Message: "cannot parse " + path + ": " + uerr.Error(),
			}
		}
	case !os.IsNotExist(err):
		return nil, &model.ConfigError{
			Code:    model.ErrConfigFileMissing,
			Message: "cannot read " + path + ": " + err.Error(),
		}
	}

	reg, cerr := parser.CompileRegistry(opts)
	if cerr != nil {
		return nil, &model.ConfigError{
			Code:    model.ErrInvalidPattern,
			Message: cerr.Error(),
		}
	}
	return reg, nil
}
