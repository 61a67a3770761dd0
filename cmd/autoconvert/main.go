package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"autoconvert/internal/batch"
	"autoconvert/internal/config"
	"autoconvert/internal/server"
	"autoconvert/internal/store"
)

const version = "1.2.0"

var (
	diagnostic  = flag.String("diagnostic", "", "单文件诊断模式，输出各阶段判定细节")
	serve       = flag.Bool("serve", false, "启动运行历史查询服务而不执行批处理")
	devMode     = flag.Bool("dev", false, "开发模式")
	dataDir     = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	showVersion = flag.Bool("version", false, "显示版本号")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("autoconvert %s\n", version)
		return
	}

	fmt.Println("==========================================")
	fmt.Println("  AutoConvert - 供应商单据转报关模板工具")
	fmt.Println("==========================================")

	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
	}

	// 命令行参数覆盖配置
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	if err := config.EnsureDirs(cfg); err != nil {
		log.Printf("创建数据目录失败: %v", err)
	}

	// 日志同时写控制台与处理日志文件，每次运行覆盖
	logFile, lerr := os.Create(cfg.LogPath())
	if lerr != nil {
		log.Printf("无法创建日志文件 %s: %v", cfg.LogPath(), lerr)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}

	if *serve {
		runServer(cfg)
		closeLog(logFile)
		return
	}

	code := runBatch(cfg)
	// os.Exit 不执行 defer，日志文件在此显式关闭
	closeLog(logFile)
	os.Exit(code)
}

func closeLog(f *os.File) {
	if f != nil {
		f.Close()
	}
}

// runBatch 执行批处理，返回进程退出码：0 全部通过、1 存在失败、2 配置错误
func runBatch(cfg *config.AppConfig) int {
	reg, cerr := config.LoadRegistry(cfg)
	if cerr != nil {
		log.Printf("%v", cerr)
		return 2
	}
	tables, cerr := config.LoadLookupTables(cfg)
	if cerr != nil {
		log.Printf("%v", cerr)
		return 2
	}
	// 换算表里的币制源值并入已知币制记号
	reg.AddCurrencyTokens(config.CurrencySourceKeys(tables))

	if cerr := config.ValidateTemplate(cfg.TemplatePath()); cerr != nil {
		log.Printf("%v", cerr)
		return 2
	}

	runner := batch.NewRunner(cfg, reg, tables)

	diagnosticFile := ""
	if *diagnostic != "" {
		runner.Diagnostic = true
		diagnosticFile = *diagnostic
		if !filepath.IsAbs(diagnosticFile) {
			diagnosticFile = filepath.Join(cfg.DataDir(), diagnosticFile)
		}
		if _, err := os.Stat(diagnosticFile); err != nil {
			log.Printf("诊断文件不存在: %s", diagnosticFile)
			return 2
		}
	}

	result := runner.Run(diagnosticFile)
	batch.PrintSummary(result)

	// 运行历史入库，失败不影响批处理结论
	if db, err := store.New(cfg.DBPath()); err != nil {
		log.Printf("无法打开运行历史数据库: %v", err)
	} else {
		defer db.Close()
		if err := db.SaveRun(result); err != nil {
			log.Printf("保存运行历史失败: %v", err)
		}
	}

	if result.FailedCount > 0 {
		return 1
	}
	return 0
}

// runServer 启动运行历史查询服务
func runServer(cfg *config.AppConfig) {
	db, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("无法打开运行历史数据库: %v", err)
	}
	defer db.Close()

	srv := server.NewServer(db, cfg.Server.DevMode)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}
