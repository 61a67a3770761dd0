package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldPatternOption 单个规范字段的原始模式配置
type FieldPatternOption struct {
	Field    string   `yaml:"field"`
	Required bool     `yaml:"required"`
	Patterns []string `yaml:"patterns"`
}

// RegistryOptions 模式注册表的原始配置，可被 YAML 覆盖
type RegistryOptions struct {
	InvoiceFields []FieldPatternOption `yaml:"invoice_fields"`
	PackingFields []FieldPatternOption `yaml:"packing_fields"`

	InvoiceSheet []string `yaml:"invoice_sheet"`
	PackingSheet []string `yaml:"packing_sheet"`

	InvNoLabels   []string `yaml:"inv_no_labels"`
	InvNoEmbedded []string `yaml:"inv_no_embedded"`
	InvNoExcludes []string `yaml:"inv_no_excludes"`
	LabelKeywords []string `yaml:"label_keywords"`

	CurrencyTokens      []string `yaml:"currency_tokens"`
	PriceAmountKeywords []string `yaml:"price_amount_keywords"`

	HeaderScanStart       int `yaml:"header_scan_start"`
	HeaderScanEnd         int `yaml:"header_scan_end"`
	InvoiceMinHeaderCells int `yaml:"invoice_min_header_cells"`
	PackingMinHeaderCells int `yaml:"packing_min_header_cells"`
}

// FieldPattern 编译后的字段模式
type FieldPattern struct {
	Field    string
	Required bool
	Patterns []*regexp.Regexp
}

// Registry 编译后的模式注册表，构建一次后只读，可跨文件复用
type Registry struct {
	InvoiceFields []FieldPattern
	PackingFields []FieldPattern

	InvoiceSheet []*regexp.Regexp
	PackingSheet []*regexp.Regexp

	InvNoLabels   []*regexp.Regexp
	InvNoEmbedded []*regexp.Regexp
	InvNoExcludes []*regexp.Regexp
	// 纯标签判定时剥离的关键词，已按长度降序排好
	LabelKeywords []string

	CurrencyTokens      map[string]bool
	PriceAmountKeywords []string

	HeaderScanStart int
	HeaderScanEnd   int
	MinHeaderCells  map[SheetKind]int
}

// Fields 返回指定工作表类别的字段模式列表
func (r *Registry) Fields(kind SheetKind) []FieldPattern {
	if kind == SheetPacking {
		return r.PackingFields
	}
	return r.InvoiceFields
}

// IsCurrencyToken 判断文本是否为已知币制记号
func (r *Registry) IsCurrencyToken(s string) bool {
	return r.CurrencyTokens[strings.ToUpper(strings.TrimSpace(s))]
}

// DefaultRegistryOptions 内置模式表，YAML 配置缺省时直接使用
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		InvoiceFields: []FieldPatternOption{
			{Field: FieldPartNo, Required: true, Patterns: []string{
				`part\s*(?:no|number|#)`, `^p/?n\.?$`, `料\s*号`, `物料(?:编码|编号|号)`, `item\s*(?:no|code)`,
			}},
			{Field: FieldPONo, Required: true, Patterns: []string{
				`^po(?:\s*(?:no|number|#))?\.?$`, `p\.?o\.?\s*(?:no|number|#)`, `customer\s*po`, `采购订单号?`, `订单号`,
			}},
			{Field: FieldQty, Required: true, Patterns: []string{
				`^q'?ty\.?$`, `quantity`, `数\s*量`, `^pcs$`,
			}},
			{Field: FieldPrice, Required: true, Patterns: []string{
				`unit\s*price`, `^u/?price$`, `单\s*价`, `^price$`,
			}},
			{Field: FieldAmount, Required: true, Patterns: []string{
				`^amount$`, `total\s*(?:amount|price|value)`, `金\s*额`, `总\s*价`,
			}},
			{Field: FieldCurrency, Required: true, Patterns: []string{
				`^curr(?:ency)?\.?$`, `币[制别种]`,
			}},
			{Field: FieldCOO, Required: true, Patterns: []string{
				`country\s*of\s*origin`, `^c\.?o\.?o\.?$`, `^origin$`, `原产[国地]`, `产\s*地`,
			}},
			{Field: FieldCOD, Patterns: []string{
				`country\s*of\s*deliver(?:y|ed)`, `^c\.?o\.?d\.?$`, `delivery\s*country`, `交货国`,
			}},
			{Field: FieldBrand, Patterns: []string{
				`^brand(?:\s*name)?$`, `品牌$`,
			}},
			{Field: FieldBrandType, Patterns: []string{
				`brand\s*type`, `品牌类型`,
			}},
			{Field: FieldModel, Patterns: []string{
				`^model(?:\s*(?:no|number))?\.?$`, `型\s*号`,
			}},
			{Field: FieldInvNo, Patterns: []string{
				`invoice\s*(?:no|number|#)`, `^inv\.?\s*(?:no|#)\.?$`, `发票号码?`,
			}},
			{Field: FieldSerial, Patterns: []string{
				`^serial(?:\s*no)?\.?$`, `^s/?n$`, `序\s*号`,
			}},
		},
		PackingFields: []FieldPatternOption{
			{Field: FieldPartNo, Required: true, Patterns: []string{
				`part\s*(?:no|number|#)`, `^p/?n\.?$`, `料\s*号`, `物料(?:编码|编号|号)`, `item\s*(?:no|code)`,
			}},
			{Field: FieldPONo, Patterns: []string{
				`^po(?:\s*(?:no|number|#))?\.?$`, `p\.?o\.?\s*(?:no|number|#)`, `采购订单号?`, `订单号`,
			}},
			{Field: FieldQty, Required: true, Patterns: []string{
				`^q'?ty\.?$`, `quantity`, `数\s*量`, `^pcs$`,
			}},
			{Field: FieldNW, Required: true, Patterns: []string{
				`^n\.?/?w\.?(?:\s*\(.*\))?$`, `net\s*weight`, `净\s*重`,
			}},
			{Field: FieldGW, Required: true, Patterns: []string{
				`^g\.?/?w\.?(?:\s*\(.*\))?$`, `gross\s*weight`, `毛\s*重`,
			}},
			{Field: FieldPack, Patterns: []string{
				`ctn\s*(?:no|#)?`, `carton`, `^pkg\.?$`, `箱\s*号`, `package\s*no`,
			}},
		},
		InvoiceSheet: []string{
			`invoice`, `^inv\b`, `^ci$`, `commercial`, `发票`,
		},
		PackingSheet: []string{
			`packing`, `pack\s*list`, `^pl$`, `装箱`, `箱单`,
		},
		InvNoLabels: []string{
			`invoice\s*(?:no|number|#)`, `^inv\.?\s*(?:no|#)`, `发票号码?`,
		},
		InvNoEmbedded: []string{
			`invoice\s*(?:no|number|#)?\.?\s*[:：#]\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`,
			`inv\.?\s*(?:no|#)\.?\s*[:：]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`,
			`发票号码?\s*[:：]\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`,
		},
		InvNoExcludes: []string{
			`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`,
			`^\d{1,2}[-/.](?:\d{1,2}|[A-Za-z]{3})[-/.]\d{2,4}$`,
			`^date\b`, `^page\b`, `^p\.?o\.?\b`,
		},
		LabelKeywords: []string{
			"invoice", "inv", "number", "no", "date",
			"发票号码", "发票号", "发票", "号码",
			"#", ":", "：", ".",
		},
		CurrencyTokens: []string{
			"USD", "US$", "USD$", "RMB", "CNY", "EUR", "JPY", "HKD", "GBP", "TWD", "KRW", "SGD",
		},
		PriceAmountKeywords: []string{
			"price", "amount", "value", "单价", "总价", "金额",
		},
		HeaderScanStart:       7,
		HeaderScanEnd:         30,
		InvoiceMinHeaderCells: 7,
		PackingMinHeaderCells: 4,
	}
}

// CompileRegistry 编译模式注册表，全部正则大小写不敏感
// 任一模式非法即返回错误，由配置层转为配置错误退出
func CompileRegistry(opts RegistryOptions) (*Registry, error) {
	reg := &Registry{
		CurrencyTokens:      make(map[string]bool),
		PriceAmountKeywords: opts.PriceAmountKeywords,
		HeaderScanStart:     opts.HeaderScanStart,
		HeaderScanEnd:       opts.HeaderScanEnd,
		MinHeaderCells: map[SheetKind]int{
			SheetInvoice: opts.InvoiceMinHeaderCells,
			SheetPacking: opts.PackingMinHeaderCells,
		},
	}
	if reg.HeaderScanStart <= 0 {
		reg.HeaderScanStart = 7
	}
	if reg.HeaderScanEnd <= 0 {
		reg.HeaderScanEnd = 30
	}

	var err error
	if reg.InvoiceFields, err = compileFields(opts.InvoiceFields); err != nil {
		return nil, err
	}
	if reg.PackingFields, err = compileFields(opts.PackingFields); err != nil {
		return nil, err
	}
	if reg.InvoiceSheet, err = compileAll(opts.InvoiceSheet); err != nil {
		return nil, err
	}
	if reg.PackingSheet, err = compileAll(opts.PackingSheet); err != nil {
		return nil, err
	}
	if reg.InvNoLabels, err = compileAll(opts.InvNoLabels); err != nil {
		return nil, err
	}
	if reg.InvNoEmbedded, err = compileAll(opts.InvNoEmbedded); err != nil {
		return nil, err
	}
	if reg.InvNoExcludes, err = compileAll(opts.InvNoExcludes); err != nil {
		return nil, err
	}

	// 剥离顺序决定纯标签判定正确性：长关键词先剥，避免短词截断长词
	reg.LabelKeywords = append(reg.LabelKeywords, opts.LabelKeywords...)
	sort.SliceStable(reg.LabelKeywords, func(i, j int) bool {
		return len(reg.LabelKeywords[i]) > len(reg.LabelKeywords[j])
	})

	for _, tok := range opts.CurrencyTokens {
		reg.CurrencyTokens[strings.ToUpper(strings.TrimSpace(tok))] = true
	}
	return reg, nil
}

// AddCurrencyTokens 合并币制换算表中的源值作为已知币制记号
func (r *Registry) AddCurrencyTokens(tokens []string) {
	for _, tok := range tokens {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok != "" {
			r.CurrencyTokens[tok] = true
		}
	}
}

func compileFields(fields []FieldPatternOption) ([]FieldPattern, error) {
	out := make([]FieldPattern, 0, len(fields))
	for _, f := range fields {
		compiled, err := compileAll(f.Patterns)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Field, err)
		}
		out = append(out, FieldPattern{Field: f.Field, Required: f.Required, Patterns: compiled})
	}
	return out, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expr := p
		if !strings.HasPrefix(expr, "(?i)") {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
