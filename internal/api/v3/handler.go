package v3

import (
	"github.com/gin-gonic/gin"

	"salescope/internal/service/report"
	"salescope/internal/store"
)

// Handler V3 API 处理器
type Handler struct {
	store     *store.Store
	svc       *report.Service
	downloads *exportDownloadStore
}

// NewHandler 创建 V3 API 处理器
func NewHandler(store *store.Store, svc *report.Service) *Handler {
	return &Handler{
		store:     store,
		svc:       svc,
		downloads: newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 V3 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 维度元数据
	router.GET("/divisions/:division/reps", h.ListSalesReps)
	router.GET("/divisions/:division/years", h.ListYears)
	router.GET("/divisions/:division/customers/:customer/rep-info", h.GetCustomerRepInfo)

	// 合并规则管理
	router.GET("/divisions/:division/merge-rules", h.ListMergeRules)
	router.GET("/divisions/:division/reps/:rep/merge-rules", h.GetRepMergeRules)
	router.POST("/divisions/:division/reps/:rep/merge-rules", h.SaveMergeRule)
	router.PUT("/divisions/:division/reps/:rep/merge-rules", h.ReplaceRepMergeRules)
	router.DELETE("/merge-rules/:id", h.DeleteMergeRule)

	// 业务员分组管理
	router.GET("/divisions/:division/rep-groups", h.ListRepGroups)
	router.POST("/divisions/:division/rep-groups", h.SaveRepGroup)
	router.DELETE("/divisions/:division/rep-groups/:name", h.DeleteRepGroup)

	// 报表
	router.POST("/report/sales-table", h.SalesTable)
	router.POST("/report/insights", h.Insights)

	// 数据导入
	router.POST("/import", h.Import)

	// 数据导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}
