package engine

import (
	"encoding/json"
	"strconv"

	"salescope/internal/model"
)

// ColumnFacts 单个期间列的原始事实索引：规范名 -> 汇总值
type ColumnFacts struct {
	ByCustomer map[string]float64
	Total      float64
}

// IndexFacts 将一个期间列的原始客户行建成哈希索引
// 同名行（大小写/空白差异）合并求和，Total 为该列全部原始值之和
func IndexFacts(rows []model.RepCustomerValue) ColumnFacts {
	facts := ColumnFacts{ByCustomer: make(map[string]float64, len(rows))}
	for _, row := range rows {
		key := Normalize(row.Customer)
		facts.ByCustomer[key] += row.Value
		facts.Total += row.Value
	}
	return facts
}

// Matrix 实体 × 期间的稠密数值矩阵
// 构建一次后全部读取为 O(1)，渲染层不得重算单元格
type Matrix struct {
	Entities []model.CanonicalEntity
	Columns  []model.PeriodColumn

	values map[string]map[string]float64 // 规范标签 -> 列键 -> 值
	totals map[string]float64            // 列键 -> 原始值总和（百分比分母）
}

// BuildMatrix 构建实体 × 期间矩阵
//
// 合并实体的值 = 其全部原始名称在该列原始值之和；构成名称的查找必须
// 使用与解析/聚合一致的规范化，否则会静默取零
func BuildMatrix(entities []model.CanonicalEntity, columns []model.PeriodColumn, facts map[string]ColumnFacts) *Matrix {
	m := &Matrix{
		Entities: entities,
		Columns:  columns,
		values:   make(map[string]map[string]float64, len(entities)),
		totals:   make(map[string]float64, len(columns)),
	}

	for _, col := range columns {
		key := col.Key()
		if cf, ok := facts[key]; ok {
			m.totals[key] = cf.Total
		}
	}

	for _, entity := range entities {
		row := make(map[string]float64, len(columns))
		for _, col := range columns {
			colKey := col.Key()
			cf, ok := facts[colKey]
			if !ok {
				row[colKey] = 0
				continue
			}
			if entity.IsMerged {
				var sum float64
				for _, name := range entity.Constituents {
					sum += cf.ByCustomer[Normalize(name)]
				}
				row[colKey] = sum
			} else {
				row[colKey] = cf.ByCustomer[Normalize(entity.Label)]
			}
		}
		m.values[Normalize(entity.Label)] = row
	}

	return m
}

// Value 读取实体在某期间列的值；未知实体或列返回 0
func (m *Matrix) Value(label, columnKey string) float64 {
	row, ok := m.values[Normalize(label)]
	if !ok {
		return 0
	}
	return row[columnKey]
}

// Total 某期间列的全量原始值总和
func (m *Matrix) Total(columnKey string) float64 {
	return m.totals[columnKey]
}

// Percent 实体值占该列总和的百分比；总和为零时返回 0
func (m *Matrix) Percent(label, columnKey string) float64 {
	total := m.totals[columnKey]
	if total == 0 {
		return 0
	}
	return m.Value(label, columnKey) / total * 100
}

// DeltaValue 期间环比差值
// 前值为零且后值为正时标记 NEW（新增），JSON 序列化为字符串 "NEW"
type DeltaValue struct {
	Pct   float64
	IsNew bool
}

// Delta 计算 (to-from)/from*100 的差值
// from==0 && to>0 -> NEW；两者均为 0 -> 0
func Delta(from, to float64) DeltaValue {
	if from == 0 {
		if to > 0 {
			return DeltaValue{IsNew: true}
		}
		return DeltaValue{}
	}
	return DeltaValue{Pct: (to - from) / from * 100}
}

// MarshalJSON NEW 序列化为字符串，其余为数值
func (d DeltaValue) MarshalJSON() ([]byte, error) {
	if d.IsNew {
		return json.Marshal("NEW")
	}
	return []byte(strconv.FormatFloat(d.Pct, 'f', -1, 64)), nil
}
