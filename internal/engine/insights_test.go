package engine

import (
	"testing"
	"time"

	"salescope/internal/model"
)

// insightColumns 上年实际 / 基准实际 / 同月预算 / 全年预算
func insightColumns() []model.PeriodColumn {
	return []model.PeriodColumn{
		{Year: 2024, Month: "June", Type: model.DataActual},
		{Year: 2025, Month: "June", Type: model.DataActual},
		{Year: 2025, Month: "June", Type: model.DataBudget},
		{Year: 2025, Month: "Year", Type: model.DataBudget},
	}
}

// buildInsightMatrix 列序与 insightColumns 一致的数值矩阵
func buildInsightMatrix(columns []model.PeriodColumn, rows map[string][]float64) *Matrix {
	facts := make(map[string]ColumnFacts, len(columns))
	var entities []model.CanonicalEntity
	for i, col := range columns {
		var cv []model.RepCustomerValue
		for name, values := range rows {
			cv = append(cv, model.RepCustomerValue{Customer: name, Value: values[i]})
		}
		facts[col.Key()] = IndexFacts(cv)
	}
	for name, values := range rows {
		// 基准列数值：单列用例的基准即第 0 列
		base := values[min(1, len(values)-1)]
		entities = append(entities, model.CanonicalEntity{Label: name, Value: base, Constituents: []string{name}})
	}
	return BuildMatrix(entities, columns, facts)
}

func TestComputeInsightsTotalsAndRatios(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		// 上年, 基准, 预算, 全年预算
		"Acme":  {80, 100, 90, 1100},
		"Beta":  {40, 20, 30, 300},
		"Gamma": {0, 30, 20, 200},
	})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if snap == nil {
		t.Fatal("快照不应为 nil")
	}

	if !floatEquals(snap.Totals.Actual, 150) || !floatEquals(snap.Totals.Budget, 140) || !floatEquals(snap.Totals.Prev, 120) {
		t.Errorf("总量错误: %+v", snap.Totals)
	}
	if snap.BudgetIndex != 2 || snap.PreviousYearIndex != 0 {
		t.Errorf("对照列解析错误: budget=%d prev=%d", snap.BudgetIndex, snap.PreviousYearIndex)
	}
	if snap.VsBudgetPct == nil || !floatEquals(*snap.VsBudgetPct, (150-140)/140.0*100) {
		t.Errorf("VsBudgetPct = %v", snap.VsBudgetPct)
	}
	if snap.YoYPct == nil || !floatEquals(*snap.YoYPct, 25) {
		t.Errorf("YoYPct = %v，期望 25", snap.YoYPct)
	}
	if !floatEquals(snap.Totals.FYBudget, 1600) {
		t.Errorf("全年预算 = %v，期望 1600", snap.Totals.FYBudget)
	}
}

func TestComputeInsightsZeroActual(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {0, 0, 100, 100},
	})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	// 实际为 0 预算为正：对预算 -100%，不是除零
	if snap.VsBudgetPct == nil || !floatEquals(*snap.VsBudgetPct, -100) {
		t.Errorf("VsBudgetPct = %v，期望 -100", snap.VsBudgetPct)
	}
	// 上年为 0：同比不可用而非 0%
	if snap.YoYPct != nil {
		t.Errorf("上年为零时 YoYPct 应为 nil，得到 %v", *snap.YoYPct)
	}
}

func TestComputeInsightsNoBudgetColumn(t *testing.T) {
	columns := []model.PeriodColumn{
		{Year: 2025, Month: "June", Type: model.DataActual},
	}
	vol := buildInsightMatrix(columns, map[string][]float64{"Acme": {100}})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 0, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if snap.BudgetIndex != -1 || snap.VsBudgetPct != nil {
		t.Errorf("无预算列时对预算指标应不可用: idx=%d pct=%v", snap.BudgetIndex, snap.VsBudgetPct)
	}
}

func TestComputeInsightsConcentration(t *testing.T) {
	columns := insightColumns()
	tests := []struct {
		name string
		rows map[string][]float64
		want string
	}{
		{
			"单客户占比过半为 CRITICAL",
			map[string][]float64{
				"Acme": {0, 90, 0, 0},
				"Beta": {0, 10, 0, 0},
			},
			"CRITICAL",
		},
		{
			"头部三家超七成为 HIGH",
			map[string][]float64{
				"A": {0, 28, 0, 0}, "B": {0, 25, 0, 0}, "C": {0, 22, 0, 0},
				"D": {0, 13, 0, 0}, "E": {0, 12, 0, 0},
			},
			"HIGH",
		},
		{
			"分散组合为 LOW",
			map[string][]float64{
				"A": {0, 15, 0, 0}, "B": {0, 15, 0, 0}, "C": {0, 15, 0, 0},
				"D": {0, 15, 0, 0}, "E": {0, 14, 0, 0}, "F": {0, 13, 0, 0},
				"G": {0, 13, 0, 0},
			},
			"LOW",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol := buildInsightMatrix(columns, tt.rows)
			snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
			if snap.Concentration.Level != tt.want {
				t.Errorf("集中度 = %s，期望 %s (top1=%.2f top3=%.2f)",
					snap.Concentration.Level, tt.want, snap.Concentration.Top1Share, snap.Concentration.Top3Share)
			}
		})
	}
}

func TestComputeInsightsRetention(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Kept":    {50, 60, 0, 0}, // 留存
		"Gone":    {30, 0, 0, 0},  // 流失
		"Arrived": {0, 40, 0, 0},  // 新增
	})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())

	ret := snap.Retention
	if !ret.HasPreviousYearData {
		t.Fatal("存在上年列时 HasPreviousYearData 应为 true")
	}
	if ret.Retained != 1 || ret.Lost != 1 || ret.New != 1 || ret.TotalPrevious != 2 {
		t.Errorf("留存计数错误: %+v", ret)
	}
	if !floatEquals(ret.ChurnRate, 0.5) {
		t.Errorf("流失率 = %v，期望 0.5", ret.ChurnRate)
	}
	if ret.Risk != "HIGH" {
		t.Errorf("流失率 0.5 风险应为 HIGH，得到 %s", ret.Risk)
	}
	if len(ret.LostNames) != 1 || ret.LostNames[0] != "Gone" {
		t.Errorf("流失名单 = %v", ret.LostNames)
	}
}

func TestComputeInsightsRetentionNoPrevColumn(t *testing.T) {
	columns := []model.PeriodColumn{
		{Year: 2025, Month: "June", Type: model.DataActual},
	}
	vol := buildInsightMatrix(columns, map[string][]float64{"Acme": {100}})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 0, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	ret := snap.Retention
	// 无上年数据时不得按 0% 留存解读
	if ret.HasPreviousYearData {
		t.Error("无上年列时 HasPreviousYearData 应为 false")
	}
	if ret.RetentionRate != 0 || ret.ChurnRate != 0 || ret.Risk != "LOW" {
		t.Errorf("无上年数据时比率应保持零值: %+v", ret)
	}
}

func TestComputeInsightsRunRate(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {0, 300, 0, 1200},
	})
	// 基准为 2025 年 6 月，当前即 2025 年：剩余 6 个月，已过 6 个月
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if snap.MonthsRemaining != 6 {
		t.Fatalf("剩余月份 = %d，期望 6", snap.MonthsRemaining)
	}
	if !floatEquals(snap.RunRate.CurrentRunRate, 600) {
		t.Errorf("当前运行速率 = %v，期望 600", snap.RunRate.CurrentRunRate)
	}
	if !floatEquals(snap.RunRate.RequiredRunRate, 1200) {
		t.Errorf("目标运行速率 = %v，期望全年预算 1200", snap.RunRate.RequiredRunRate)
	}
	if snap.RunRate.IsOnTrack {
		t.Error("600 < 1200*0.85 应判定为落后")
	}
	// 追赶量 = (1200-300)/6
	if !floatEquals(snap.RunRate.CatchUpPerMonth, 150) {
		t.Errorf("月度追赶量 = %v，期望 150", snap.RunRate.CatchUpPerMonth)
	}
}

func TestComputeInsightsRunRateOtherYear(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {0, 1200, 0, 1200},
	})
	// 基准年份不是当前年份时按整年口径
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if snap.MonthsRemaining != 12 {
		t.Errorf("历史年份剩余月份 = %d，期望 12", snap.MonthsRemaining)
	}
	if !snap.RunRate.IsOnTrack {
		t.Error("达成全年预算应判定为达标")
	}
}

func TestComputeInsightsOutliers(t *testing.T) {
	columns := insightColumns()
	rows := map[string][]float64{
		"Spike": {10, 100, 0, 0}, // +900%
	}
	// 其余客户同比稳定在 ±10% 内
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		rows[n] = []float64{100, 105, 0, 0}
	}
	vol := buildInsightMatrix(columns, rows)
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if len(snap.Outliers) != 1 {
		t.Fatalf("期望 1 个异常客户，得到 %d: %+v", len(snap.Outliers), snap.Outliers)
	}
	if snap.Outliers[0].Name != "Spike" {
		t.Errorf("异常客户 = %s，期望 Spike", snap.Outliers[0].Name)
	}
	if snap.Outliers[0].ZScore <= 2 {
		t.Errorf("Z 分 = %v，期望 > 2", snap.Outliers[0].ZScore)
	}
}

func TestComputeInsightsFocusAndBuckets(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		// 上年, 基准, 预算, 全年预算
		"Grower":  {50, 100, 80, 0},  // 对预算 +25%
		"Laggard": {100, 50, 100, 0}, // 对预算 -50%
		"Steady":  {60, 62, 60, 0},   // 稳定
	})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())

	if len(snap.FocusCustomers) != 3 {
		t.Fatalf("重点客户 = %d，期望 3", len(snap.FocusCustomers))
	}
	inBucket := func(list []FocusCustomer, name string) bool {
		for _, fc := range list {
			if fc.Name == name {
				return true
			}
		}
		return false
	}
	if !inBucket(snap.GrowthDrivers, "Grower") {
		t.Errorf("Grower 应进入增长驱动: %+v", snap.GrowthDrivers)
	}
	if !inBucket(snap.Underperformers, "Laggard") {
		t.Errorf("Laggard 应进入落后客户: %+v", snap.Underperformers)
	}
	if !inBucket(snap.Stable, "Steady") {
		t.Errorf("Steady 应进入稳定客户: %+v", snap.Stable)
	}
	// 三个客户全部收录时覆盖率为全量
	if !floatEquals(snap.CoveragePct, 100) {
		t.Errorf("覆盖率 = %v，期望 100", snap.CoveragePct)
	}
}

func TestComputeInsightsExecutiveSummary(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {100, 95, 100, 1200}, // 对预算 -5%
		"Beta": {50, 48, 50, 600},
	})
	snap := ComputeInsights(Input{Volume: vol, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())
	if snap.Executive.PortfolioHealth != "AT_RISK" {
		t.Errorf("对预算 -4.7%% 应为 AT_RISK，得到 %s", snap.Executive.PortfolioHealth)
	}
	if len(snap.Executive.KeyRisks) > 3 || len(snap.Executive.Opportunities) > 3 {
		t.Error("风险与机会条目各不超过 3 条")
	}
}

func TestComputeInsightsAmountMetrics(t *testing.T) {
	columns := insightColumns()
	vol := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {1000, 2000, 1500, 0},
	})
	amt := buildInsightMatrix(columns, map[string][]float64{
		"Acme": {3000, 7000, 5000, 0},
	})
	snap := ComputeInsights(Input{Volume: vol, Amount: amt, BaseIndex: 1, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}, DefaultThresholds())

	// 千克单价 = 金额 / (销量/1000)
	if !floatEquals(snap.KiloRate.Current, 3500) {
		t.Errorf("千克单价 = %v，期望 3500", snap.KiloRate.Current)
	}
	if !floatEquals(snap.KiloRate.Prev, 3000) {
		t.Errorf("上年千克单价 = %v，期望 3000", snap.KiloRate.Prev)
	}
	if !snap.PVM.Available {
		t.Fatal("价量分解应可用")
	}
	// 价格效应 = 单价同比，数量效应 = 销量同比
	if !floatEquals(snap.PVM.PriceEffect, (3500-3000)/3000.0*100) {
		t.Errorf("价格效应 = %v", snap.PVM.PriceEffect)
	}
	if !floatEquals(snap.PVM.VolumeEffect, 100) {
		t.Errorf("数量效应 = %v，期望 100", snap.PVM.VolumeEffect)
	}
	if snap.PVM.MixEffect != 0 {
		t.Errorf("构成效应固定为 0，得到 %v", snap.PVM.MixEffect)
	}

	if len(snap.CustomerComparisons) != 1 {
		t.Fatalf("客户对比 = %d，期望 1", len(snap.CustomerComparisons))
	}
	cc := snap.CustomerComparisons[0]
	if cc.AmountYoY == nil || !floatEquals(*cc.AmountYoY, (7000-3000)/3000.0*100) {
		t.Errorf("金额同比 = %v", cc.AmountYoY)
	}
}
