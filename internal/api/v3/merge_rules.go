package v3

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"salescope/internal/model"
	"salescope/internal/store"
)

// MergeRuleRequest 合并规则写入请求
type MergeRuleRequest struct {
	MergedName        string   `json:"mergedName" binding:"required"`
	OriginalCustomers []string `json:"originalCustomers" binding:"required"`
	IsActive          *bool    `json:"isActive"`
}

// ListMergeRules 列出事业部内全部合并规则
// GET /api/divisions/:division/merge-rules
func (h *Handler) ListMergeRules(c *gin.Context) {
	rules, err := h.store.GetAllMergeRules(c.Param("division"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询合并规则失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// GetRepMergeRules 查询业务员的活跃合并规则
// GET /api/divisions/:division/reps/:rep/merge-rules
func (h *Handler) GetRepMergeRules(c *gin.Context) {
	rules, err := h.store.GetMergeRules(c.Param("division"), c.Param("rep"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询合并规则失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// SaveMergeRule 新建或更新单条合并规则
// POST /api/divisions/:division/reps/:rep/merge-rules
func (h *Handler) SaveMergeRule(c *gin.Context) {
	var req MergeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	id, err := h.store.UpsertMergeRule(model.MergeRule{
		Division:          c.Param("division"),
		SalesRep:          c.Param("rep"),
		MergedName:        req.MergedName,
		OriginalCustomers: req.OriginalCustomers,
		IsActive:          active,
	})
	if err != nil {
		if errors.Is(err, store.ErrRuleOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": "规则与既有规则的原始客户重叠", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存合并规则失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ReplaceRepMergeRules 整体替换业务员的规则集
// PUT /api/divisions/:division/reps/:rep/merge-rules
func (h *Handler) ReplaceRepMergeRules(c *gin.Context) {
	var req struct {
		Rules []MergeRuleRequest `json:"rules"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	rules := make([]model.MergeRule, 0, len(req.Rules))
	for _, r := range req.Rules {
		active := true
		if r.IsActive != nil {
			active = *r.IsActive
		}
		rules = append(rules, model.MergeRule{
			MergedName:        r.MergedName,
			OriginalCustomers: r.OriginalCustomers,
			IsActive:          active,
		})
	}

	if err := h.store.ReplaceMergeRules(c.Param("division"), c.Param("rep"), rules); err != nil {
		if errors.Is(err, store.ErrRuleOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": "规则集内部原始客户重叠", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "替换合并规则失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rules)})
}

// DeleteMergeRule 删除单条规则
// DELETE /api/merge-rules/:id
func (h *Handler) DeleteMergeRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的规则 ID"})
		return
	}
	if err := h.store.DeleteMergeRule(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "规则不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
