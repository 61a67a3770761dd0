package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Parser ParserConfig `toml:"parser"`
}

// ServerConfig 运行历史查询服务配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 目录与文件配置
type DataConfig struct {
	DataDir     string `toml:"data_dir"`
	ConfigDir   string `toml:"config_dir"`
	FinishedDir string `toml:"finished_dir"`
	LogFile     string `toml:"log_file"`
	DBFile      string `toml:"db_file"`
}

// ParserConfig 结构推断可调参数，零值回落到内置默认
type ParserConfig struct {
	HeaderScanStart       int `toml:"header_scan_start"`
	HeaderScanEnd         int `toml:"header_scan_end"`
	InvoiceMinHeaderCells int `toml:"invoice_min_header_cells"`
	PackingMinHeaderCells int `toml:"packing_min_header_cells"`
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20266,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			ConfigDir:   "config",
			FinishedDir: "finished",
			LogFile:     "process_log.txt",
			DBFile:      "autoconvert.db",
		},
		Parser: ParserConfig{
			HeaderScanStart:       7,
			HeaderScanEnd:         30,
			InvoiceMinHeaderCells: 7,
			PackingMinHeaderCells: 4,
		},
	}
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// BaseDir 配置与数据目录的根：可执行文件目录，取不到时退回当前目录
func BaseDir() string {
	dir, err := GetExeDir()
	if err != nil {
		return "."
	}
	return dir
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下，不存在时使用默认配置
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	configPath := filepath.Join(BaseDir(), "config.toml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides 环境变量覆盖（用于 E2E / 本地运行）
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("AUTOCONVERT_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("AUTOCONVERT_CONFIG_DIR"); v != "" {
		config.Data.ConfigDir = v
	}
}

// DataDir 数据收件目录的绝对路径
func (c *AppConfig) DataDir() string {
	if filepath.IsAbs(c.Data.DataDir) {
		return c.Data.DataDir
	}
	return filepath.Join(BaseDir(), c.Data.DataDir)
}

// ConfigDir 规则配置目录的绝对路径
func (c *AppConfig) ConfigDir() string {
	if filepath.IsAbs(c.Data.ConfigDir) {
		return c.Data.ConfigDir
	}
	return filepath.Join(BaseDir(), c.Data.ConfigDir)
}

// FinishedDir 输出目录的绝对路径
func (c *AppConfig) FinishedDir() string {
	return filepath.Join(c.DataDir(), c.Data.FinishedDir)
}

// LogPath 处理日志文件路径
func (c *AppConfig) LogPath() string {
	return filepath.Join(BaseDir(), c.Data.LogFile)
}

// DBPath 运行历史数据库路径
func (c *AppConfig) DBPath() string {
	return filepath.Join(BaseDir(), c.Data.DBFile)
}

// TemplatePath 输出模板路径
func (c *AppConfig) TemplatePath() string {
	return filepath.Join(c.ConfigDir(), "output_template.xlsx")
}

// EnsureDirs 确保数据目录与输出子目录存在
func EnsureDirs(config *AppConfig) error {
	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		return err
	}
	return os.MkdirAll(config.FinishedDir(), 0755)
}
