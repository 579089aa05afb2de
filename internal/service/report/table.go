package report

import (
	"salescope/internal/engine"
	"salescope/internal/model"
)

// TableRow 销售客户表的一行
// Cells 与扩展列一一对应：数据列为数值，差值列为 engine.DeltaValue
type TableRow struct {
	Label        string   `json:"label"`
	IsMerged     bool     `json:"isMerged"`
	Constituents []string `json:"constituents,omitempty"`
	SalesReps    []string `json:"salesReps,omitempty"`
	Cells        []any    `json:"cells"`
	SharePct     float64  `json:"sharePct"`
}

// TableResult 销售客户表
type TableResult struct {
	Columns   []engine.ExtendedColumn `json:"columns"`
	Rows      []TableRow              `json:"rows"`
	OthersRow *TableRow               `json:"othersRow,omitempty"`
	TotalRow  TableRow                `json:"totalRow"`
	BaseIndex int                     `json:"baseIndex"`
}

// SalesByCustomerTable 构建销售客户表
// topLimit > 0 时只展示基准期间前 N 名，其余客户汇入"其他"行
func (s *Service) SalesByCustomerTable(req Request, topLimit int) (*TableResult, error) {
	m, err := s.buildMatrix(req)
	if err != nil {
		return nil, err
	}
	if req.BaseIndex < 0 || req.BaseIndex >= len(req.Columns) {
		req.BaseIndex = 0
	}
	baseKey := req.Columns[req.BaseIndex].Key()

	result := &TableResult{
		Columns:   engine.BuildExtendedColumns(req.Columns),
		BaseIndex: req.BaseIndex,
	}

	// 实体已按基准期间降序
	shown := m.Entities
	var others []model.CanonicalEntity
	if topLimit > 0 && len(shown) > topLimit {
		others = shown[topLimit:]
		shown = shown[:topLimit]
	}

	for _, entity := range shown {
		values := func(colKey string) float64 { return m.Value(entity.Label, colKey) }
		result.Rows = append(result.Rows, TableRow{
			Label:        entity.Label,
			IsMerged:     entity.IsMerged,
			Constituents: entity.Constituents,
			SalesReps:    entity.ContributingReps,
			Cells:        renderCells(result.Columns, values),
			SharePct:     m.Percent(entity.Label, baseKey),
		})
	}

	if len(others) > 0 {
		sums := make(map[string]float64, len(req.Columns))
		var share float64
		for _, entity := range others {
			for _, col := range req.Columns {
				sums[col.Key()] += m.Value(entity.Label, col.Key())
			}
			share += m.Percent(entity.Label, baseKey)
		}
		row := TableRow{
			Label:    "Others",
			Cells:    renderCells(result.Columns, func(colKey string) float64 { return sums[colKey] }),
			SharePct: share,
		}
		result.OthersRow = &row
	}

	result.TotalRow = TableRow{
		Label:    "Total",
		Cells:    renderCells(result.Columns, m.Total),
		SharePct: totalShare(m, baseKey),
	}
	return result, nil
}

// renderCells 按扩展列渲染一行：数据列取值，差值列计算环比
func renderCells(columns []engine.ExtendedColumn, value func(colKey string) float64) []any {
	cells := make([]any, 0, len(columns))
	for _, col := range columns {
		if col.IsDelta {
			cells = append(cells, engine.Delta(value(col.FromColumn.Key()), value(col.ToColumn.Key())))
			continue
		}
		cells = append(cells, value(col.Column.Key()))
	}
	return cells
}

// totalShare 合计行份额：有数据时为 100，空表为 0
func totalShare(m *engine.Matrix, baseKey string) float64 {
	if m.Total(baseKey) > 0 {
		return 100
	}
	return 0
}
