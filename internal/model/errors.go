package model

import "fmt"

// ErrorCode 致命错误码，任意一个出现即整文件 Failed，不产出输出
type ErrorCode string

const (
	// 配置阶段
	ErrConfigFileMissing  ErrorCode = "CONFIG_FILE_MISSING"
	ErrInvalidPattern     ErrorCode = "INVALID_PATTERN"
	ErrDuplicateLookupKey ErrorCode = "DUPLICATE_LOOKUP_KEY"
	ErrInvalidTemplate    ErrorCode = "INVALID_TEMPLATE"

	// 文件与工作表阶段
	ErrFileLocked           ErrorCode = "FILE_LOCKED"
	ErrFileCorrupt          ErrorCode = "FILE_CORRUPT"
	ErrInvoiceSheetMissing  ErrorCode = "INVOICE_SHEET_NOT_FOUND"
	ErrPackingSheetMissing  ErrorCode = "PACKING_SHEET_NOT_FOUND"
	ErrHeaderRowNotFound    ErrorCode = "HEADER_ROW_NOT_FOUND"
	ErrRequiredColumnMissed ErrorCode = "REQUIRED_COLUMN_MISSING"
	ErrInvoiceNoNotFound    ErrorCode = "INVOICE_NUMBER_NOT_FOUND"

	// 行提取阶段
	ErrEmptyRequiredField ErrorCode = "EMPTY_REQUIRED_FIELD"
	ErrInvalidNumeric     ErrorCode = "INVALID_NUMERIC_VALUE"
	ErrNoInvoiceItems     ErrorCode = "NO_INVOICE_ITEMS"
	ErrNoPackingItems     ErrorCode = "NO_PACKING_ITEMS"
	ErrMergedWeightShared ErrorCode = "DIFFERENT_PARTS_SHARE_MERGED_WEIGHT"

	// 合计阶段
	ErrTotalRowNotFound ErrorCode = "TOTAL_ROW_NOT_FOUND"
	ErrInvalidTotalNW   ErrorCode = "INVALID_TOTAL_NW"
	ErrInvalidTotalGW   ErrorCode = "INVALID_TOTAL_GW"

	// 重量分摊阶段
	ErrPartNotInPacking      ErrorCode = "PART_NOT_IN_PACKING"
	ErrPackingPartNotInvoice ErrorCode = "PACKING_PART_NOT_IN_INVOICE"
	ErrZeroQuantityForPart   ErrorCode = "ZERO_QUANTITY_FOR_PART"
	ErrPackingPartZeroNW     ErrorCode = "PACKING_PART_ZERO_NW"
	ErrWeightRoundsToZero    ErrorCode = "WEIGHT_ROUNDS_TO_ZERO"
	ErrPackingSumMismatch    ErrorCode = "PACKING_SUM_MISMATCH"
	ErrNegativeRemainder     ErrorCode = "NEGATIVE_REMAINDER"
	ErrAllocationMismatch    ErrorCode = "WEIGHT_ALLOCATION_MISMATCH"

	// 输出阶段
	ErrTemplateLoadFailed ErrorCode = "TEMPLATE_LOAD_FAILED"
	ErrOutputWriteFailed  ErrorCode = "OUTPUT_WRITE_FAILED"
)

// WarningCode 警告码，仅下列三种允许降级为 Attention 并仍产出输出
type WarningCode string

const (
	WarnMissingTotalPackets WarningCode = "MISSING_TOTAL_PACKETS"
	WarnUnknownCurrency     WarningCode = "UNKNOWN_CURRENCY"
	WarnUnknownCountry      WarningCode = "UNKNOWN_COUNTRY"
)

// ProcessingError 带错误码的处理错误，Field 为空时仅展示码与消息
type ProcessingError struct {
	Code    ErrorCode
	Message string
	Row     int
	Field   string
}

func (e *ProcessingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewError 构造致命错误
func NewError(code ErrorCode, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewFieldError 构造带字段名与行号的致命错误
func NewFieldError(code ErrorCode, field string, row int, format string, args ...interface{}) *ProcessingError {
	return &ProcessingError{Code: code, Field: field, Row: row, Message: fmt.Sprintf(format, args...)}
}

// ProcessingWarning 非致命警告，文件仍产出输出但标记复核
type ProcessingWarning struct {
	Code    WarningCode
	Message string
	Row     int
}

// NewWarning 构造警告
func NewWarning(code WarningCode, format string, args ...interface{}) *ProcessingWarning {
	return &ProcessingWarning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConfigError 配置加载失败，进程以退出码 2 结束
type ConfigError struct {
	Code    ErrorCode
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
