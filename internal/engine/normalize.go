package engine

import "strings"

// Normalize 客户名称规范化：小写 + 去首尾空白
// 所有身份相等判断都必须经过该函数
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StripMergeMarker 去掉末尾的单个合并标记 "*"
func StripMergeMarker(label string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), "*"))
}

// KeyName 规范化 + 去合并标记，用于跨口径（销量/金额）和留存分析的名称对齐
func KeyName(label string) string {
	return Normalize(StripMergeMarker(label))
}
