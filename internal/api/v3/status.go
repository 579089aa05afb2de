package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized bool     `json:"initialized"` // 是否已初始化（有数据）
	Divisions   []string `json:"divisions"`   // 有数据的事业部
}

// 系统支持的事业部
var knownDivisions = []string{"FP", "IP", "PP"}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	var divisions []string
	for _, d := range knownDivisions {
		years, err := h.store.ListYears(d)
		if err == nil && len(years) > 0 {
			divisions = append(divisions, d)
		}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Initialized: len(divisions) > 0,
		Divisions:   divisions,
	})
}

// ListSalesReps 列出事业部内的业务员与分组
// GET /api/divisions/:division/reps
func (h *Handler) ListSalesReps(c *gin.Context) {
	division := c.Param("division")

	reps, err := h.store.ListSalesReps(division)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询业务员失败"})
		return
	}
	groups, err := h.store.ListRepGroups(division)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询分组失败"})
		return
	}
	groupNames := make([]string, 0, len(groups))
	for _, g := range groups {
		groupNames = append(groupNames, g.Name)
	}

	c.JSON(http.StatusOK, gin.H{
		"reps":   reps,
		"groups": groupNames,
	})
}

// GetCustomerRepInfo 查询客户的归属业务员（合并规则编辑时定位客户用）
// GET /api/divisions/:division/customers/:customer/rep-info
func (h *Handler) GetCustomerRepInfo(c *gin.Context) {
	info, err := h.store.GetCustomerRepInfo(c.Param("division"), c.Param("customer"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询客户归属失败"})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "客户不存在"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListYears 列出事业部内有数据的年份
// GET /api/divisions/:division/years
func (h *Handler) ListYears(c *gin.Context) {
	years, err := h.store.ListYears(c.Param("division"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询年份失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}
