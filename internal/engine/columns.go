package engine

import (
	"salescope/internal/model"
)

// ExtendedColumn 展示列：期间列或相邻期间之间的差值列
// 差值列不存储数值，读取时按 (to-from)/from 计算
type ExtendedColumn struct {
	Column     model.PeriodColumn  `json:"column,omitempty"`
	IsDelta    bool                `json:"isDelta"`
	FromColumn *model.PeriodColumn `json:"fromColumn,omitempty"`
	ToColumn   *model.PeriodColumn `json:"toColumn,omitempty"`
}

// BuildExtendedColumns 在相邻期间列之间插入差值列
func BuildExtendedColumns(columns []model.PeriodColumn) []ExtendedColumn {
	out := make([]ExtendedColumn, 0, len(columns)*2)
	for i, col := range columns {
		out = append(out, ExtendedColumn{Column: col})
		if i < len(columns)-1 {
			from := columns[i]
			to := columns[i+1]
			out = append(out, ExtendedColumn{
				IsDelta:    true,
				FromColumn: &from,
				ToColumn:   &to,
			})
		}
	}
	return out
}

// ResolveBaseIndex 在过滤后的列集合里重新定位基准期间
// 基准列被过滤掉（如隐藏预算列时基准列是预算）则回落到第一列
func ResolveBaseIndex(all []model.PeriodColumn, filtered []model.PeriodColumn, baseIndex int) int {
	if baseIndex < 0 || baseIndex >= len(all) || len(filtered) == 0 {
		return 0
	}
	base := all[baseIndex]
	for i, col := range filtered {
		if col.Year == base.Year && Normalize(col.Month) == Normalize(base.Month) && col.Type == base.Type {
			return i
		}
	}
	return 0
}

// FindBudgetIndex 为基准期间解析对照预算列
// 优先级：同年同月预算 > 同年全年预算 > 同年任意预算 > 任意预算；找不到返回 -1
func FindBudgetIndex(columns []model.PeriodColumn, baseIndex int) int {
	if baseIndex < 0 || baseIndex >= len(columns) {
		return -1
	}
	base := columns[baseIndex]

	for i, c := range columns {
		if c.IsBudget() && c.Year == base.Year && Normalize(c.Month) == Normalize(base.Month) {
			return i
		}
	}
	for i, c := range columns {
		if c.IsBudget() && c.Year == base.Year && c.IsFullYear() {
			return i
		}
	}
	for i, c := range columns {
		if c.IsBudget() && c.Year == base.Year {
			return i
		}
	}
	for i, c := range columns {
		if c.IsBudget() {
			return i
		}
	}
	return -1
}

// FindPreviousYearIndex 查找与基准期间同月的上年期间列；找不到返回 -1
func FindPreviousYearIndex(columns []model.PeriodColumn, baseIndex int) int {
	if baseIndex < 0 || baseIndex >= len(columns) {
		return -1
	}
	base := columns[baseIndex]
	for i, c := range columns {
		if c.Year == base.Year-1 && Normalize(c.Month) == Normalize(base.Month) && c.Type == model.DataActual {
			return i
		}
	}
	return -1
}

// FindFullYearBudgetIndex 查找指定年份的全年预算列；找不到返回 -1
func FindFullYearBudgetIndex(columns []model.PeriodColumn, year int) int {
	for i, c := range columns {
		if c.IsBudget() && c.Year == year && (c.IsFullYear() || Normalize(c.Month) == "fy") {
			return i
		}
	}
	return -1
}

// FindYTDIndex 查找指定年份的年初至今实际列；找不到返回 -1
func FindYTDIndex(columns []model.PeriodColumn, year int) int {
	for i, c := range columns {
		if c.Type == model.DataActual && c.IsYTD() && c.Year == year {
			return i
		}
	}
	return -1
}
