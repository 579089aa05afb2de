package model

import (
	"fmt"
	"strings"
)

// PeriodColumn 报表期间列
// Month 为期间说明（月份名/Q1-Q4/HY1-HY2/Year/YTD），聚合一律展开到具体月份
type PeriodColumn struct {
	ID     string   `json:"id,omitempty"`     // 可选稳定列 ID
	Year   int      `json:"year"`             // 年份
	Month  string   `json:"month"`            // 期间说明
	Type   DataType `json:"type"`             // Actual/Budget/Forecast
	Months []int    `json:"months,omitempty"` // 显式月份列表（优先于 Month 展开）
}

// Key 期间列的唯一键
func (c PeriodColumn) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("%d-%s-%s", c.Year, c.Month, c.Type)
}

// monthSpecs 期间说明到月份列表的映射
var monthSpecs = map[string][]int{
	"q1": {1, 2, 3}, "q2": {4, 5, 6}, "q3": {7, 8, 9}, "q4": {10, 11, 12},
	"hy1": {1, 2, 3, 4, 5, 6}, "hy2": {7, 8, 9, 10, 11, 12},
	"year": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	"january": {1}, "february": {2}, "march": {3}, "april": {4},
	"may": {5}, "june": {6}, "july": {7}, "august": {8},
	"september": {9}, "october": {10}, "november": {11}, "december": {12},
}

// monthNumbers 单月说明到月号的映射
var monthNumbers = map[string]int{
	"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
	"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
	"aug": 8, "august": 8, "sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10, "nov": 11, "november": 11, "dec": 12, "december": 12,
}

// ExpandMonths 将期间列展开为月份列表
// 未知说明按单月兜底返回 [1]，与上游一致
func (c PeriodColumn) ExpandMonths() []int {
	if len(c.Months) > 0 {
		return c.Months
	}
	key := strings.ToLower(strings.TrimSpace(c.Month))
	if months, ok := monthSpecs[key]; ok {
		return months
	}
	var n int
	if _, err := fmt.Sscanf(key, "%d", &n); err == nil && n >= 1 && n <= 12 {
		return []int{n}
	}
	return []int{1}
}

// MonthNumber 返回单月期间的月号；非单月期间（季度/半年/全年）返回 0
func (c PeriodColumn) MonthNumber() int {
	key := strings.ToLower(strings.TrimSpace(c.Month))
	if n, ok := monthNumbers[key]; ok {
		return n
	}
	var n int
	if _, err := fmt.Sscanf(key, "%d", &n); err == nil && n >= 1 && n <= 12 {
		return n
	}
	return 0
}

// IsFullYear 是否为全年期间列
func (c PeriodColumn) IsFullYear() bool {
	switch strings.ToLower(strings.TrimSpace(c.Month)) {
	case "fy", "full year", "fullyear", "full-year", "full_year", "year":
		return true
	}
	return false
}

// IsYTD 是否为年初至今期间列
func (c PeriodColumn) IsYTD() bool {
	switch strings.ToLower(strings.TrimSpace(c.Month)) {
	case "ytd", "yrtodate", "year-to-date":
		return true
	}
	return false
}

// IsBudget 是否为预算类期间列
func (c PeriodColumn) IsBudget() bool {
	switch strings.ToLower(strings.TrimSpace(string(c.Type))) {
	case "budget", "fy budget", "full year budget":
		return true
	}
	return false
}
