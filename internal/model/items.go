package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MergeRange 合并单元格范围（1 基行列），在任何取消合并之前捕获
type MergeRange struct {
	Top    int
	Left   int
	Bottom int
	Right  int
}

// Contains 判断单元格是否落在该范围内
func (r MergeRange) Contains(row, col int) bool {
	return row >= r.Top && row <= r.Bottom && col >= r.Left && col <= r.Right
}

// InvoiceItem 发票明细行，Weight 由重量分摊阶段写入
type InvoiceItem struct {
	PartNo    string
	PONo      string
	Qty       decimal.Decimal
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Currency  string
	COO       string
	COD       string
	Brand     string
	BrandType string
	Model     string
	Weight    decimal.Decimal
	InvNo     string
	Serial    string
	Row       int
}

// PackingItem 装箱单明细行
// FirstRowOfMerge 标记数值合并组的首行，聚合时仅首行计入
type PackingItem struct {
	PartNo          string
	Qty             decimal.Decimal
	NW              decimal.Decimal
	GW              decimal.Decimal
	Pack            string
	Row             int
	FirstRowOfMerge bool
}

// PackingTotals 装箱单合计，TotalPackets 为 0 表示缺失
type PackingTotals struct {
	TotalNW      decimal.Decimal
	TotalGW      decimal.Decimal
	TotalPackets int
	TotalRow     int
	NWPrecision  int32
	GWPrecision  int32
}

// Status 单文件处理结论
type Status string

const (
	StatusSuccess   Status = "Success"
	StatusAttention Status = "Attention"
	StatusFailed    Status = "Failed"
)

// FileResult 单文件处理结果
type FileResult struct {
	Filename   string
	Status     Status
	Errors     []*ProcessingError
	Warnings   []*ProcessingWarning
	OutputPath string
	Elapsed    time.Duration
}

// BatchResult 一次批处理的汇总结果
type BatchResult struct {
	RunID          string
	StartedAt      time.Time
	FileResults    []FileResult
	TotalFiles     int
	SuccessCount   int
	AttentionCount int
	FailedCount    int
	ProcessingTime float64
	LogPath        string
}
