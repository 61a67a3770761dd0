package batch

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"autoconvert/internal/calculator"
	"autoconvert/internal/config"
	"autoconvert/internal/excel"
	"autoconvert/internal/exporter"
	"autoconvert/internal/model"
	"autoconvert/internal/parser"
	"autoconvert/internal/transform"
)

// Runner 批处理执行器
// 模式注册表与换算表只读，跨文件复用；每个文件独立走完整条流水线
type Runner struct {
	cfg        *config.AppConfig
	reg        *parser.Registry
	tables     transform.Tables
	Diagnostic bool
}

// NewRunner 创建批处理执行器
func NewRunner(cfg *config.AppConfig, reg *parser.Registry, tables transform.Tables) *Runner {
	return &Runner{cfg: cfg, reg: reg, tables: tables}
}

// Run 扫描收件目录并逐个处理，单文件失败不中断批次
// diagnosticFile 非空时只处理该文件
func (r *Runner) Run(diagnosticFile string) model.BatchResult {
	start := time.Now()
	result := model.BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
		LogPath:   r.cfg.LogPath(),
	}

	if err := r.clearFinishedDir(); err != nil {
		log.Printf("warning: cannot clear finished dir: %v", err)
	}

	var files []string
	if diagnosticFile != "" {
		files = []string{diagnosticFile}
	} else {
		files = r.scanInbox()
	}

	for _, path := range files {
		fr := r.ProcessFile(path)
		result.FileResults = append(result.FileResults, fr)
		switch fr.Status {
		case model.StatusSuccess:
			result.SuccessCount++
		case model.StatusAttention:
			result.AttentionCount++
		default:
			result.FailedCount++
		}
		log.Printf("%s -> %s (%.2fs)", fr.Filename, fr.Status, fr.Elapsed.Seconds())
	}

	result.TotalFiles = len(result.FileResults)
	result.ProcessingTime = time.Since(start).Seconds()
	return result
}

// scanInbox 列出收件目录中的工作簿，跳过 Office 临时文件与隐藏文件
func (r *Runner) scanInbox() []string {
	entries, err := os.ReadDir(r.cfg.DataDir())
	if err != nil {
		log.Printf("cannot read data dir %s: %v", r.cfg.DataDir(), err)
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		files = append(files, filepath.Join(r.cfg.DataDir(), name))
	}
	return files
}

// clearFinishedDir 批次开始前清空输出目录
func (r *Runner) clearFinishedDir() error {
	entries, err := os.ReadDir(r.cfg.FinishedDir())
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(r.cfg.FinishedDir(), e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ProcessFile 处理单个工作簿
// 各阶段的错误与警告累计到最后统一定论，Failed 文件不写输出
func (r *Runner) ProcessFile(path string) model.FileResult {
	start := time.Now()
	fr := model.FileResult{Filename: filepath.Base(path)}
	var errs []*model.ProcessingError
	var warns []*model.ProcessingWarning

	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsPermission(err) {
			errs = append(errs, model.NewError(model.ErrFileLocked,
				"file %s is locked by another process", fr.Filename))
		} else {
			errs = append(errs, model.NewError(model.ErrFileCorrupt,
				"file %s cannot be opened: %v", fr.Filename, err))
		}
		return r.finish(fr, errs, warns, start)
	}
	defer f.Close()

	invSheet, packSheet, serrs := excel.DetectSheets(f, r.reg)
	errs = append(errs, serrs...)
	if invSheet == "" || packSheet == "" {
		return r.finish(fr, errs, warns, start)
	}

	// 发票页
	var invItems []model.InvoiceItem
	invGrid, gerr := excel.NewSheetGrid(f, invSheet)
	if gerr != nil {
		errs = append(errs, model.NewError(model.ErrFileCorrupt,
			"cannot read sheet %q: %v", invSheet, gerr))
	} else {
		invTracker := parser.NewMergeTracker(invGrid.MergeRanges())
		invItems, errs = r.extractInvoice(invGrid, invTracker, errs)
	}

	// 装箱单页
	var packItems []model.PackingItem
	var totals model.PackingTotals
	totalsOK := false
	packGrid, gerr := excel.NewSheetGrid(f, packSheet)
	if gerr != nil {
		errs = append(errs, model.NewError(model.ErrFileCorrupt,
			"cannot read sheet %q: %v", packSheet, gerr))
	} else {
		packTracker := parser.NewMergeTracker(packGrid.MergeRanges())
		cm, merrs := parser.MapColumns(packGrid, packTracker, r.reg, parser.SheetPacking)
		errs = append(errs, merrs...)
		if cm != nil && len(merrs) == 0 {
			r.diag("packing header row %d, data starts %d", cm.HeaderRow, cm.DataStartRow)
			var perrs []*model.ProcessingError
			var lastDataRow int
			packItems, lastDataRow, perrs = parser.ExtractPackingItems(packGrid, packTracker, cm)
			errs = append(errs, perrs...)
			if len(perrs) == 0 {
				var terrs []*model.ProcessingError
				var twarns []*model.ProcessingWarning
				totals, terrs, twarns = parser.ExtractTotals(packGrid, packTracker, cm, lastDataRow)
				errs = append(errs, terrs...)
				warns = append(warns, twarns...)
				totalsOK = len(terrs) == 0
				if totalsOK {
					r.diag("totals: nw=%s gw=%s packets=%d (row %d)",
						totals.TotalNW, totals.TotalGW, totals.TotalPackets, totals.TotalRow)
				}
			}
		}
	}

	// 分摊与标准化只在前序阶段全部干净时进行
	if len(errs) == 0 && len(invItems) > 0 && len(packItems) > 0 && totalsOK {
		allocated, aerrs := calculator.AllocateWeights(invItems, packItems, totals)
		errs = append(errs, aerrs...)
		if len(aerrs) == 0 {
			transformed, twarns := transform.ApplyTransforms(allocated, r.tables)
			warns = append(warns, twarns...)
			invItems = transformed
		}
	}

	// 结论在所有阶段之后一次得出，随后才决定是否写输出
	if calculator.Classify(errs, warns) != model.StatusFailed {
		outPath := filepath.Join(r.cfg.FinishedDir(), fr.Filename)
		if werr := exporter.WriteTemplate(invItems, totals, r.cfg.TemplatePath(), outPath); werr != nil {
			errs = append(errs, werr)
		} else {
			fr.OutputPath = outPath
		}
	}
	return r.finish(fr, errs, warns, start)
}

// extractInvoice 发票页的映射、发票号与明细提取
func (r *Runner) extractInvoice(g *excel.SheetGrid, t *parser.MergeTracker, errs []*model.ProcessingError) ([]model.InvoiceItem, []*model.ProcessingError) {
	cm, merrs := parser.MapColumns(g, t, r.reg, parser.SheetInvoice)
	errs = append(errs, merrs...)

	// 发票号列已映射时逐行读取，表头区提取及其错误只在列缺失时启用
	headerInvNo := ""
	if cm != nil {
		if _, mapped := cm.Col(parser.FieldInvNo); !mapped {
			invNo, ierr := parser.ExtractInvoiceNumber(g, t, r.reg)
			if ierr != nil {
				errs = append(errs, ierr)
			} else {
				headerInvNo = invNo.Value
				r.diag("invoice number %q found at (%d,%d) via %s", invNo.Value, invNo.Row, invNo.Col, invNo.Method)
			}
		}
	}

	if cm == nil || len(merrs) > 0 {
		return nil, errs
	}
	r.diag("invoice header row %d, data starts %d, sub-header=%v", cm.HeaderRow, cm.DataStartRow, cm.SubHeaderUsed)

	items, ierrs := parser.ExtractInvoiceItems(g, t, cm, headerInvNo)
	errs = append(errs, ierrs...)
	if len(ierrs) > 0 {
		return nil, errs
	}
	return items, errs
}

func (r *Runner) finish(fr model.FileResult, errs []*model.ProcessingError, warns []*model.ProcessingWarning, start time.Time) model.FileResult {
	fr.Errors = errs
	fr.Warnings = warns
	fr.Status = calculator.Classify(errs, warns)
	fr.Elapsed = time.Since(start)
	return fr
}

func (r *Runner) diag(format string, args ...interface{}) {
	if r.Diagnostic {
		log.Printf("  "+format, args...)
	}
}
