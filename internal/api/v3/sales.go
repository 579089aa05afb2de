package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salescope/internal/engine"
	"salescope/internal/model"
	"salescope/internal/service/report"
)

// SalesTableRequest 销售客户表请求
type SalesTableRequest struct {
	Division   string               `json:"division" binding:"required"`
	Columns    []model.PeriodColumn `json:"columns" binding:"required"`
	BaseIndex  int                  `json:"baseIndex"`
	SalesRep   string               `json:"salesRep"`
	ValuesType model.ValuesType     `json:"valuesType"`
	TopLimit   int                  `json:"topLimit"`
	HideBudget bool                 `json:"hideBudget"` // 隐藏预算列，基准期间自动重新定位
}

// SalesTable 销售客户表
// POST /api/report/sales-table
func (h *Handler) SalesTable(c *gin.Context) {
	var req SalesTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	columns := req.Columns
	baseIndex := req.BaseIndex
	if req.HideBudget {
		var filtered []model.PeriodColumn
		for _, col := range columns {
			if !col.IsBudget() {
				filtered = append(filtered, col)
			}
		}
		baseIndex = engine.ResolveBaseIndex(columns, filtered, baseIndex)
		columns = filtered
	}
	if len(columns) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "期间列不能为空"})
		return
	}

	result, err := h.svc.SalesByCustomerTable(report.Request{
		Division:   req.Division,
		Columns:    columns,
		BaseIndex:  baseIndex,
		SalesRep:   req.SalesRep,
		ValuesType: req.ValuesType,
	}, req.TopLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "构建销售客户表失败", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// InsightsRequest 洞察请求
type InsightsRequest struct {
	Division  string               `json:"division" binding:"required"`
	Columns   []model.PeriodColumn `json:"columns" binding:"required"`
	BaseIndex int                  `json:"baseIndex"`
	SalesRep  string               `json:"salesRep"`
}

// Insights 客户洞察快照
// POST /api/report/insights
func (h *Handler) Insights(c *gin.Context) {
	var req InsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	snap, err := h.svc.Insights(report.Request{
		Division:  req.Division,
		Columns:   req.Columns,
		BaseIndex: req.BaseIndex,
		SalesRep:  req.SalesRep,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "洞察计算失败", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
