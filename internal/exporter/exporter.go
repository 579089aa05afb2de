package exporter

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"salescope/internal/engine"
	"salescope/internal/model"
	"salescope/internal/service/report"
)

// Exporter 销售客户表导出器
type Exporter struct {
	svc *report.Service
}

// NewExporter 创建导出器
func NewExporter(svc *report.Service) *Exporter {
	return &Exporter{svc: svc}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Request  report.Request
	TopLimit int
}

// Export 生成销售客户表工作簿
// 列结构与页面一致：期间列之间插入环比差值列，表尾带其他行与合计行
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	table, err := e.svc.SalesByCustomerTable(opts.Request, opts.TopLimit)
	if err != nil {
		return nil, fmt.Errorf("构建销售客户表失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Sales by Customer"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// 表头
	headers := []interface{}{"Customer"}
	for _, col := range table.Columns {
		headers = append(headers, columnTitle(col))
	}
	headers = append(headers, "Share %")
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		_ = f.Close()
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	// 数据行
	rowNo := 2
	for _, row := range table.Rows {
		if err := writeRow(f, sheet, rowNo, row); err != nil {
			_ = f.Close()
			return nil, err
		}
		rowNo++
	}
	if table.OthersRow != nil {
		if err := writeRow(f, sheet, rowNo, *table.OthersRow); err != nil {
			_ = f.Close()
			return nil, err
		}
		rowNo++
	}
	if err := writeRow(f, sheet, rowNo, table.TotalRow); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNo), fmt.Sprintf("%s%d", lastCol, rowNo), totalStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	f.SetActiveSheet(0)
	return f, nil
}

// writeRow 写入一行：数值保持数值类型，差值列 NEW 写为文本
func writeRow(f *excelize.File, sheet string, rowNo int, row report.TableRow) error {
	cells := []interface{}{row.Label}
	for _, cell := range row.Cells {
		switch v := cell.(type) {
		case engine.DeltaValue:
			if v.IsNew {
				cells = append(cells, "NEW")
			} else {
				cells = append(cells, round2(v.Pct))
			}
		case float64:
			cells = append(cells, round2(v))
		default:
			cells = append(cells, cell)
		}
	}
	cells = append(cells, round2(row.SharePct))
	addr, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, addr, &cells)
}

// columnTitle 期间列标题
func columnTitle(col engine.ExtendedColumn) string {
	if col.IsDelta {
		return "Δ %"
	}
	return periodTitle(col.Column)
}

func periodTitle(col model.PeriodColumn) string {
	return strconv.Itoa(col.Year) + " " + col.Month + " " + string(col.Type)
}

func round2(v float64) float64 {
	return float64(int(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
