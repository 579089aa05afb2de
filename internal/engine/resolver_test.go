package engine

import (
	"math"
	"sort"
	"testing"

	"salescope/internal/model"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolveRep(t *testing.T) {
	rows := []model.RepCustomerValue{
		{Customer: "ACME CORP", Value: 100},
		{Customer: "Acme Trading LLC", Value: 50},
		{Customer: "Beta Industries", Value: 30},
	}
	rules := []model.MergeRule{
		{MergedName: "Acme Group", OriginalCustomers: []string{"Acme Corp", "Acme Trading LLC"}, IsActive: true},
	}

	items := ResolveRep("John", rows, rules)
	if len(items) != 2 {
		t.Fatalf("期望 2 个行项目，得到 %d", len(items))
	}

	merged := items[0]
	if merged.Name != "Acme Group*" {
		t.Errorf("合并行名称 = %q，期望带 * 后缀", merged.Name)
	}
	if !merged.IsMerged {
		t.Error("合并行 IsMerged 应为 true")
	}
	if !floatEquals(merged.Value, 150) {
		t.Errorf("合并行值 = %v，期望 150", merged.Value)
	}
	if len(merged.OriginalCustomers) != 2 {
		t.Errorf("合并行原始名称数 = %d，期望 2", len(merged.OriginalCustomers))
	}
	if merged.Owner != "John" {
		t.Errorf("Owner = %q，期望 John", merged.Owner)
	}

	plain := items[1]
	if plain.Name != "Beta Industries" || plain.IsMerged {
		t.Errorf("未命中客户应原样输出，得到 %+v", plain)
	}
}

func TestResolveRepFirstMatchWins(t *testing.T) {
	rows := []model.RepCustomerValue{
		{Customer: "Acme Corp", Value: 100},
		{Customer: "Acme East", Value: 40},
	}
	// 两条规则都引用 Acme Corp，先定义的规则认领
	rules := []model.MergeRule{
		{MergedName: "Group A", OriginalCustomers: []string{"Acme Corp"}, IsActive: true},
		{MergedName: "Group B", OriginalCustomers: []string{"Acme Corp", "Acme East"}, IsActive: true},
	}

	items := ResolveRep("John", rows, rules)
	if len(items) != 2 {
		t.Fatalf("期望 2 个行项目，得到 %d", len(items))
	}
	if items[0].Name != "Group A*" || !floatEquals(items[0].Value, 100) {
		t.Errorf("首条规则应认领 Acme Corp，得到 %+v", items[0])
	}
	if items[1].Name != "Group B*" || !floatEquals(items[1].Value, 40) {
		t.Errorf("后续规则只得到未认领客户，得到 %+v", items[1])
	}
}

func TestResolveRepInactiveRuleSkipped(t *testing.T) {
	rows := []model.RepCustomerValue{
		{Customer: "Acme Corp", Value: 100},
	}
	rules := []model.MergeRule{
		{MergedName: "Acme Group", OriginalCustomers: []string{"Acme Corp"}, IsActive: false},
	}
	items := ResolveRep("John", rows, rules)
	if len(items) != 1 || items[0].IsMerged {
		t.Errorf("停用规则不得生效，得到 %+v", items)
	}
}

func TestResolveRepNoMatchRule(t *testing.T) {
	rows := []model.RepCustomerValue{
		{Customer: "Beta Industries", Value: 30},
	}
	rules := []model.MergeRule{
		{MergedName: "Acme Group", OriginalCustomers: []string{"Acme Corp"}, IsActive: true},
	}
	items := ResolveRep("John", rows, rules)
	if len(items) != 1 || items[0].Name != "Beta Industries" {
		t.Errorf("未命中规则不得产出空合并行，得到 %+v", items)
	}
}

// 分割性质：输出行项目的原始名称并集恰好等于输入客户集合，值守恒
func TestResolveRepPartition(t *testing.T) {
	rows := []model.RepCustomerValue{
		{Customer: "A", Value: 1},
		{Customer: "B", Value: 2},
		{Customer: "C", Value: 4},
		{Customer: "D", Value: 8},
	}
	rules := []model.MergeRule{
		{MergedName: "AB", OriginalCustomers: []string{"a", "b"}, IsActive: true},
		{MergedName: "CX", OriginalCustomers: []string{"C", "X"}, IsActive: true},
	}

	items := ResolveRep("Jane", rows, rules)

	var total float64
	var names []string
	for _, item := range items {
		total += item.Value
		for _, n := range item.OriginalCustomers {
			names = append(names, Normalize(n))
		}
	}
	if !floatEquals(total, 15) {
		t.Errorf("值总和 = %v，期望 15", total)
	}
	sort.Strings(names)
	want := []string{"a", "b", "c", "d"}
	if len(names) != len(want) {
		t.Fatalf("原始名称并集 = %v，期望 %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("原始名称并集 = %v，期望 %v", names, want)
		}
	}
}
