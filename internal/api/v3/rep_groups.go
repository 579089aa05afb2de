package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salescope/internal/model"
)

// ListRepGroups 列出事业部内的业务员分组
// GET /api/divisions/:division/rep-groups
func (h *Handler) ListRepGroups(c *gin.Context) {
	groups, err := h.store.ListRepGroups(c.Param("division"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询分组失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// SaveRepGroup 新建或更新分组
// POST /api/divisions/:division/rep-groups
func (h *Handler) SaveRepGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name" binding:"required"`
		Members []string `json:"members" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	if err := h.store.SaveRepGroup(model.RepGroup{
		Division: c.Param("division"),
		Name:     req.Name,
		Members:  req.Members,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存分组失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

// DeleteRepGroup 删除分组
// DELETE /api/divisions/:division/rep-groups/:name
func (h *Handler) DeleteRepGroup(c *gin.Context) {
	if err := h.store.DeleteRepGroup(c.Param("division"), c.Param("name")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "分组不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("name")})
}
