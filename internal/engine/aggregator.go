package engine

import (
	"sort"

	"salescope/internal/model"
)

// Aggregate 跨业务员聚合合并后的行项目
//
// 按规范化标签分组求和；不同业务员的规则各自产出同名合并客户时也会
// 合为一个实体（按最终标签匹配，与规则无关）。原始名称按规范名去重合并，
// 贡献业务员逐个追加。聚合值总和必须等于输入值总和，不丢失、不重复
func Aggregate(items []model.LineItem) []model.CanonicalEntity {
	byKey := make(map[string]*model.CanonicalEntity)
	order := make([]string, 0, len(items))

	for _, item := range items {
		key := Normalize(item.Name)
		entity, ok := byKey[key]
		if !ok {
			entity = &model.CanonicalEntity{Label: item.Name}
			byKey[key] = entity
			order = append(order, key)
		}

		entity.Value += item.Value
		if item.IsMerged {
			entity.IsMerged = true
		}
		entity.Constituents = unionNames(entity.Constituents, item.OriginalCustomers)
		if item.Owner != "" && !containsNormalized(entity.ContributingReps, item.Owner) {
			entity.ContributingReps = append(entity.ContributingReps, item.Owner)
		}
	}

	result := make([]model.CanonicalEntity, 0, len(byKey))
	for _, key := range order {
		result = append(result, *byKey[key])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Value > result[j].Value
	})
	return result
}

// unionNames 按规范名去重合并名称列表，保留首次出现的原始写法
func unionNames(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, name := range dst {
		seen[Normalize(name)] = true
	}
	for _, name := range src {
		if key := Normalize(name); !seen[key] {
			seen[key] = true
			dst = append(dst, name)
		}
	}
	return dst
}

func containsNormalized(list []string, name string) bool {
	key := Normalize(name)
	for _, v := range list {
		if Normalize(v) == key {
			return true
		}
	}
	return false
}
