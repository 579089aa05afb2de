package importer

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"salescope/internal/model"
	"salescope/internal/store"
)

func writeTestWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "FP 2025 Actual VOLUME"
	f.SetSheetName("Sheet1", sheet)
	rows := [][]interface{}{
		{"Customer", "Sales Rep", "Country", "Product Group", "Jan", "Feb"},
		{"Acme Corp", "John", "UAE", "Films", "100", "120"},
		{"Beta Industries", "Jane", "KSA", "Bags", "30", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	// 无法识别的 Sheet 应被跳过
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "sales.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	path := writeTestWorkbook(t, dir)

	var report *ImportReport
	var sawError bool
	for event := range NewCoordinator(st).Import(ImportOptions{FilePath: path}) {
		switch event.Type {
		case "done":
			if r, ok := event.Data.(*ImportReport); ok {
				report = r
			}
		case "error":
			sawError = true
			t.Logf("错误事件: %s", event.Message)
		}
	}
	if sawError {
		t.Fatal("导入产生错误事件")
	}
	if report == nil {
		t.Fatal("未收到完成事件")
	}
	if report.ImportedSheets != 1 || report.SkippedSheets != 1 {
		t.Errorf("报告 = %+v", report)
	}
	// Acme 两个月 + Beta 一个月
	if report.ImportedRows != 3 {
		t.Errorf("导入行数 = %d，期望 3", report.ImportedRows)
	}

	rep := "John"
	rows, err := st.GetRepCustomerValues(store.FactQueryOptions{
		Division: "FP", Year: 2025, Months: []int{1, 2},
		DataType: model.DataActual, ValuesType: model.ValuesVolume, SalesRep: &rep,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Value != 220 {
		t.Errorf("导入后查询 = %+v，期望 Acme Corp 220", rows)
	}
}

func TestImportClearExisting(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	// 预置同范围旧数据
	old := []*model.RawFact{
		{Division: "FP", Year: 2025, Month: 1, DataType: model.DataActual, ValuesType: model.ValuesVolume, CustomerName: "Old Co", SalesRep: "Max", Value: 999},
	}
	if err := st.BatchInsertFacts(old, "old.xlsx", "batch-0"); err != nil {
		t.Fatal(err)
	}

	path := writeTestWorkbook(t, dir)
	for range NewCoordinator(st).Import(ImportOptions{FilePath: path, ClearExisting: true}) {
	}

	byRep, err := st.GetRepCustomerValuesByRep(store.FactQueryOptions{
		Division: "FP", Year: 2025, DataType: model.DataActual, ValuesType: model.ValuesVolume,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := byRep["Max"]; ok {
		t.Error("旧数据应被清空")
	}
	if len(byRep) != 2 {
		t.Errorf("导入后业务员 = %v", byRep)
	}
}
