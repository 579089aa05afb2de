package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"salescope/internal/parser"
	"salescope/internal/store"
)

// Coordinator 导入协调器
type Coordinator struct {
	store *store.Store
}

// NewCoordinator 创建导入协调器
func NewCoordinator(store *store.Store) *Coordinator {
	return &Coordinator{store: store}
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath      string
	ClearExisting bool // 导入前清空同范围旧数据
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/sheet_start/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// ImportReport 导入汇总报告
type ImportReport struct {
	Filename       string               `json:"filename"`
	BatchID        string               `json:"batchId"`
	TotalSheets    int                  `json:"totalSheets"`
	ImportedSheets int                  `json:"importedSheets"`
	SkippedSheets  int                  `json:"skippedSheets"`
	ImportedRows   int                  `json:"importedRows"`
	ErrorRows      int                  `json:"errorRows"`
	Sheets         []parser.ParseResult `json:"sheets"`
	Duration       time.Duration        `json:"duration"`
}

// importContext 一次导入的共享状态
type importContext struct {
	file         *excelize.File
	report       *ImportReport
	progressChan chan ProgressEvent
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doImport(opts ImportOptions, progressChan chan ProgressEvent) {
	startTime := time.Now()
	batchID := uuid.New().String()
	filename := filepath.Base(opts.FilePath)

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "start",
		Message:   "开始导入 Excel 文件",
		Data:      map[string]string{"filename": filename, "batch_id": batchID},
		Timestamp: time.Now(),
	})

	var fileSize int64
	if fi, err := os.Stat(opts.FilePath); err == nil {
		fileSize = fi.Size()
	}
	logID, err := c.store.CreateImportLog(batchID, filename, opts.FilePath, fileSize, "")
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   fmt.Sprintf("创建导入日志失败: %v", err),
			Timestamp: time.Now(),
		})
		return
	}

	file, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		c.failImport(progressChan, logID, fmt.Sprintf("打开文件失败: %v", err))
		return
	}
	defer file.Close()

	ctx := &importContext{
		file:         file,
		progressChan: progressChan,
		report: &ImportReport{
			Filename: filename,
			BatchID:  batchID,
		},
	}

	sheetList := file.GetSheetList()
	ctx.report.TotalSheets = len(sheetList)

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "info",
		Message:   fmt.Sprintf("发现 %d 个 Sheet", len(sheetList)),
		Data:      map[string]interface{}{"total_sheets": len(sheetList)},
		Timestamp: time.Now(),
	})

	for _, sheetName := range sheetList {
		c.processSheet(ctx, sheetName, opts, batchID)
	}

	ctx.report.Duration = time.Since(startTime)

	status := "completed"
	if ctx.report.ImportedSheets == 0 {
		status = "failed"
	}
	if err := c.store.UpdateImportLog(logID,
		ctx.report.ImportedRows+ctx.report.ErrorRows,
		ctx.report.ImportedRows, ctx.report.ErrorRows, status, ""); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("更新导入日志失败: %v", err),
			Timestamp: time.Now(),
		})
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "导入完成",
		Data:      ctx.report,
		Timestamp: time.Now(),
	})
}

// processSheet 处理单个 Sheet
func (c *Coordinator) processSheet(ctx *importContext, sheetName string, opts ImportOptions, batchID string) {
	c.sendProgress(ctx.progressChan, ProgressEvent{
		Type:      "sheet_start",
		Message:   fmt.Sprintf("正在解析 Sheet: %s", sheetName),
		Data:      map[string]string{"sheet_name": sheetName},
		Timestamp: time.Now(),
	})

	meta, ok := parser.RecognizeSheet(sheetName)
	if !ok {
		c.recordSheetResult(ctx, parser.ParseResult{
			SheetName: sheetName,
			Status:    "skipped",
			Errors:    []string{"无法识别 Sheet 名"},
		})
		c.sendProgress(ctx.progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("跳过无法识别的 Sheet: %s", sheetName),
			Timestamp: time.Now(),
		})
		return
	}

	facts, errorRows, err := parser.NewFactParser(ctx.file).ParseSheet(sheetName, meta)
	if err != nil {
		c.recordSheetResult(ctx, parser.ParseResult{
			SheetName: sheetName,
			Status:    "error",
			Errors:    []string{err.Error()},
		})
		return
	}

	if opts.ClearExisting && len(facts) > 0 {
		if _, err := c.store.DeleteFactsByScope(meta.Division, meta.Year, meta.DataType, meta.ValuesType); err != nil {
			c.sendProgress(ctx.progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("清空旧数据失败: %v", err),
				Timestamp: time.Now(),
			})
		}
	}

	if err := c.store.BatchInsertFacts(facts, ctx.report.Filename, batchID); err != nil {
		c.recordSheetResult(ctx, parser.ParseResult{
			SheetName: sheetName,
			Status:    "error",
			ErrorRows: len(facts),
			Errors:    []string{fmt.Sprintf("批量插入失败: %v", err)},
		})
		return
	}

	c.recordSheetResult(ctx, parser.ParseResult{
		SheetName:    sheetName,
		Status:       "imported",
		ImportedRows: len(facts),
		ErrorRows:    errorRows,
	})

	c.sendProgress(ctx.progressChan, ProgressEvent{
		Type:    "sheet_done",
		Message: fmt.Sprintf("Sheet \"%s\" 导入成功: %d 行", sheetName, len(facts)),
		Data: map[string]interface{}{
			"sheet_name":    sheetName,
			"imported_rows": len(facts),
			"division":      meta.Division,
			"year":          meta.Year,
		},
		Timestamp: time.Now(),
	})
}

// failImport 标记导入失败并发送错误事件
func (c *Coordinator) failImport(ch chan ProgressEvent, logID int64, message string) {
	if err := c.store.UpdateImportLog(logID, 0, 0, 0, "failed", message); err != nil {
		message = fmt.Sprintf("%s (更新日志失败: %v)", message, err)
	}
	c.sendProgress(ch, ProgressEvent{
		Type:      "error",
		Message:   message,
		Timestamp: time.Now(),
	})
}

// recordSheetResult 记录 Sheet 处理结果
func (c *Coordinator) recordSheetResult(ctx *importContext, result parser.ParseResult) {
	ctx.report.Sheets = append(ctx.report.Sheets, result)

	switch result.Status {
	case "imported":
		ctx.report.ImportedSheets++
		ctx.report.ImportedRows += result.ImportedRows
	case "skipped":
		ctx.report.SkippedSheets++
	}
	ctx.report.ErrorRows += result.ErrorRows
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
