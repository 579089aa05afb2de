package model

import "time"

// MergeRule 客户合并规则
// 将若干原始名称变体映射为一个规范显示名称；作用域为 (事业部, 业务员)，
// 业务员为空表示事业部级规则（跨业务员视图使用）
type MergeRule struct {
	ID                int64     `json:"id"`
	Division          string    `json:"division"`
	SalesRep          string    `json:"salesRep"`
	MergedName        string    `json:"mergedName"`
	OriginalCustomers []string  `json:"originalCustomers"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// LineItem 单业务员合并解析后的行项目
type LineItem struct {
	Name              string   `json:"name"`              // 合并名+"*" 或原始名
	Value             float64  `json:"value"`             // 汇总值
	IsMerged          bool     `json:"isMerged"`          // 是否为合并行
	OriginalCustomers []string `json:"originalCustomers"` // 并入的原始名称
	Owner             string   `json:"owner"`             // 归属业务员
}

// CanonicalEntity 跨业务员聚合后的规范客户实体
// 每轮解析都重新生成，属派生视图，不做持久化
type CanonicalEntity struct {
	Label             string   `json:"label"`             // 展示标签（合并客户带"*"后缀）
	Value             float64  `json:"value"`             // 基准期间汇总值
	IsMerged          bool     `json:"isMerged"`          // 任一来源行为合并行即为 true
	Constituents      []string `json:"constituents"`      // 并入的原始名称（按规范名去重）
	ContributingReps  []string `json:"contributingReps"`  // 贡献值的业务员
}

// RepGroup 业务员分组
// 分组是若干业务员的别名；分组的事实数据 = 成员事实数据之并集
type RepGroup struct {
	Division string   `json:"division"`
	Name     string   `json:"name"`
	Members  []string `json:"members"`
}
