package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"salescope/internal/model"
)

// FactParser 销售事实表解析器
// 表头行: Customer / Sales Rep / Country / Product Group / 月份列 (Jan..Dec)
type FactParser struct {
	file *excelize.File
}

// NewFactParser 创建解析器
func NewFactParser(file *excelize.File) *FactParser {
	return &FactParser{file: file}
}

// ParseResult 单个 Sheet 的解析结果
type ParseResult struct {
	SheetName    string        `json:"sheetName"`
	Status       string        `json:"status"` // imported/skipped/error
	ImportedRows int           `json:"importedRows"`
	ErrorRows    int           `json:"errorRows"`
	Errors       []string      `json:"errors,omitempty"`
}

// headerAliases 表头列的别名
var headerAliases = map[string]string{
	"customer":      "customer",
	"customer name": "customer",
	"客户":            "customer",
	"sales rep":     "rep",
	"salesrep":      "rep",
	"rep":           "rep",
	"salesman":      "rep",
	"业务员":           "rep",
	"country":       "country",
	"国家":            "country",
	"product group": "product",
	"productgroup":  "product",
	"pg":            "product",
	"产品组":           "product",
}

var monthAliases = map[string]int{
	"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
	"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
	"aug": 8, "august": 8, "sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10, "nov": 11, "november": 11, "dec": 12, "december": 12,
}

// columnMap 解析出的列位置
type columnMap struct {
	customer int
	rep      int
	country  int
	product  int
	months   map[int]int // 月号 -> 列下标
}

// sortedMonths 月号升序，保证事实行产出顺序稳定
func (c columnMap) sortedMonths() []int {
	months := make([]int, 0, len(c.months))
	for m := range c.months {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

// ParseSheet 解析单个 Sheet 为事实行
// 数值为空或为零的单元格不产出事实行；无法解析的数值行计入错误行数
func (p *FactParser) ParseSheet(sheetName string, meta SheetMeta) ([]*model.RawFact, int, error) {
	rows, err := p.file.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("sheet %s has no data rows", sheetName)
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, 0, fmt.Errorf("sheet %s: %w", sheetName, err)
	}

	var facts []*model.RawFact
	errorRows := 0
	for _, row := range rows[1:] {
		customer := cellAt(row, cols.customer)
		if strings.TrimSpace(customer) == "" {
			continue
		}

		rowHasError := false
		for _, month := range cols.sortedMonths() {
			raw := strings.TrimSpace(cellAt(row, cols.months[month]))
			if raw == "" {
				continue
			}
			value, err := parseNumber(raw)
			if err != nil {
				rowHasError = true
				continue
			}
			if value == 0 {
				continue
			}
			facts = append(facts, &model.RawFact{
				Division:     meta.Division,
				Year:         meta.Year,
				Month:        month,
				DataType:     meta.DataType,
				ValuesType:   meta.ValuesType,
				CustomerName: strings.TrimSpace(customer),
				SalesRep:     strings.TrimSpace(cellAt(row, cols.rep)),
				Country:      strings.TrimSpace(cellAt(row, cols.country)),
				ProductGroup: strings.TrimSpace(cellAt(row, cols.product)),
				Value:        value,
			})
		}
		if rowHasError {
			errorRows++
		}
	}
	return facts, errorRows, nil
}

// mapColumns 按表头定位各列
func mapColumns(headers []string) (columnMap, error) {
	cols := columnMap{customer: -1, rep: -1, country: -1, product: -1, months: make(map[int]int)}
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if role, ok := headerAliases[key]; ok {
			switch role {
			case "customer":
				cols.customer = i
			case "rep":
				cols.rep = i
			case "country":
				cols.country = i
			case "product":
				cols.product = i
			}
			continue
		}
		if m, ok := monthAliases[key]; ok {
			cols.months[m] = i
			continue
		}
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 12 {
			cols.months[n] = i
		}
	}
	if cols.customer < 0 {
		return cols, fmt.Errorf("customer column not found")
	}
	if len(cols.months) == 0 {
		return cols, fmt.Errorf("no month columns found")
	}
	return cols, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseNumber 解析数值单元格，容忍千分位逗号
func parseNumber(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
