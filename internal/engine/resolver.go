package engine

import (
	"log"

	"salescope/internal/model"
)

// ResolveRep 对单个业务员名下的客户行应用该业务员的合并规则
//
// 规则按顺序匹配，已被前面规则认领的客户不再参与后续规则（先到先得）；
// 未被任何规则认领的客户原样输出。输出行项目的原始名称并集恰好等于
// 输入集合（分割性质），规则引用了该业务员数据中不存在的客户时直接跳过
func ResolveRep(owner string, rows []model.RepCustomerValue, rules []model.MergeRule) []model.LineItem {
	items := make([]model.LineItem, 0, len(rows))
	claimed := make(map[string]bool, len(rows))

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}

		// 规则引用名称的规范化集合
		wanted := make(map[string]bool, len(rule.OriginalCustomers))
		for _, name := range rule.OriginalCustomers {
			wanted[Normalize(name)] = true
		}

		var matched []model.RepCustomerValue
		for _, row := range rows {
			key := Normalize(row.Customer)
			if wanted[key] && !claimed[key] {
				matched = append(matched, row)
			}
		}
		if len(matched) == 0 {
			// 规则未命中任何数据，静默跳过
			log.Printf("合并规则未命中: rep=%s rule=%s", owner, rule.MergedName)
			continue
		}

		var sum float64
		originals := make([]string, 0, len(matched))
		for _, row := range matched {
			sum += row.Value
			originals = append(originals, row.Customer)
			claimed[Normalize(row.Customer)] = true
		}

		items = append(items, model.LineItem{
			Name:              rule.MergedName + "*",
			Value:             sum,
			IsMerged:          true,
			OriginalCustomers: originals,
			Owner:             owner,
		})
	}

	// 未认领的客户原样输出
	for _, row := range rows {
		if claimed[Normalize(row.Customer)] {
			continue
		}
		items = append(items, model.LineItem{
			Name:              row.Customer,
			Value:             row.Value,
			IsMerged:          false,
			OriginalCustomers: []string{row.Customer},
			Owner:             owner,
		})
	}

	return items
}
