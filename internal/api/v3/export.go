package v3

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"salescope/internal/exporter"
	"salescope/internal/service/report"
)

// 导出文件下载令牌有效期
const exportDownloadTTL = 10 * time.Minute

// Export 生成销售客户表 Excel 并返回一次性下载令牌
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req SalesTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	f, err := exporter.NewExporter(h.svc).Export(exporter.ExportOptions{
		Request: report.Request{
			Division:   req.Division,
			Columns:    req.Columns,
			BaseIndex:  req.BaseIndex,
			SalesRep:   req.SalesRep,
			ValuesType: req.ValuesType,
		},
		TopLimit: req.TopLimit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败", "detail": err.Error()})
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("sales_by_customer_%s_%d.xlsx", req.Division, time.Now().Unix())
	filePath := filepath.Join(os.TempDir(), filename)
	if err := f.SaveAs(filePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存导出文件失败"})
		return
	}

	token := h.downloads.put(filePath, filename, exportDownloadTTL)
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"filename":  filename,
		"expiresIn": int(exportDownloadTTL.Seconds()),
	})
}

// DownloadExport 按令牌下载导出文件，令牌一次性使用
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接不存在或已过期"})
		return
	}
	h.downloads.delete(token)
	defer os.Remove(item.filePath)

	c.FileAttachment(item.filePath, item.filename)
}
