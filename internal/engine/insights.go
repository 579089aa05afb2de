package engine

import (
	"math"
	"sort"
	"time"
)

// Thresholds 洞察计算的业务阈值
// 全部为产品调优值，用配置覆盖而不是改内联常量
type Thresholds struct {
	TopN                 int     `json:"topN"`                 // 榜单长度
	MaxFocus             int     `json:"maxFocus"`             // 重点客户上限
	MaxList              int     `json:"maxList"`              // 分类列表上限
	CumShareTarget       float64 `json:"cumShareTarget"`       // 重点客户累计份额覆盖目标
	GrowthVsBudgetPct    float64 `json:"growthVsBudgetPct"`    // 增长驱动：对预算增幅下限
	GrowthYoYPct         float64 `json:"growthYoYPct"`         // 增长驱动：同比增幅下限
	UnderperfVsBudgetPct float64 `json:"underperfVsBudgetPct"` // 落后客户：对预算降幅上限
	UnderperfYoYPct      float64 `json:"underperfYoYPct"`      // 落后客户：同比降幅上限
	RunRateWarn          float64 `json:"runRateWarn"`          // 运行速率达标系数
	MinVolumeShare       float64 `json:"minVolumeShare"`       // 优势分析：最小销量份额
	MinVolumeMT          float64 `json:"minVolumeMT"`          // 优势分析：最小绝对销量（吨）
	MinPerformanceGap    float64 `json:"minPerformanceGap"`    // 优势分析：最小表现差距（百分点）
	OutlierZScore        float64 `json:"outlierZScore"`        // 异常检测 Z 分阈值
	MaxOutliers          int     `json:"maxOutliers"`          // 异常客户上限
}

// DefaultThresholds 默认业务阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		TopN:                 20,
		MaxFocus:             10,
		MaxList:              6,
		CumShareTarget:       0.80,
		GrowthVsBudgetPct:    15,
		GrowthYoYPct:         20,
		UnderperfVsBudgetPct: -15,
		UnderperfYoYPct:      -10,
		RunRateWarn:          0.85,
		MinVolumeShare:       0.02,
		MinVolumeMT:          10,
		MinPerformanceGap:    10,
		OutlierZScore:        2,
		MaxOutliers:          5,
	}
}

// Input 洞察计算输入：销量矩阵（必需）+ 金额矩阵（可缺）+ 基准期间
type Input struct {
	Volume    *Matrix
	Amount    *Matrix // 可为 nil，金额相关指标将不可用
	BaseIndex int
	Now       time.Time // 用于剩余月份推算
}

// Totals 基准/对照期间的组合总量
type Totals struct {
	Actual       float64 `json:"actual"`
	Budget       float64 `json:"budget"`
	Prev         float64 `json:"prev"`
	YTDCurrent   float64 `json:"ytdCurrent"`
	YTDPrev      float64 `json:"ytdPrev"`
	FYBudget     float64 `json:"fyBudget"`
	AmountActual float64 `json:"amountActual"`
	AmountBudget float64 `json:"amountBudget"`
	AmountPrev   float64 `json:"amountPrev"`
}

// TopEntry 榜单条目
type TopEntry struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	SharePct float64 `json:"sharePct"`
}

// TopNSummary 基准期间的 Top-N 与"其他"汇总
// 份额分母一律使用列原始总和，保证各实体份额相加回到 100%
type TopNSummary struct {
	Top            []TopEntry `json:"top"`
	TopTotal       float64    `json:"topTotal"`
	TopSharePct    float64    `json:"topSharePct"`
	OthersTotal    float64    `json:"othersTotal"`
	OthersSharePct float64    `json:"othersSharePct"`
	TotalCustomers int        `json:"totalCustomers"`
}

// ConcentrationRisk 集中度风险
type ConcentrationRisk struct {
	Level                string     `json:"level"` // LOW/MEDIUM/HIGH/CRITICAL
	CustomerCount        int        `json:"customerCount"`
	TotalCustomers       int        `json:"totalCustomers"`
	Top1Share            float64    `json:"top1Share"`
	Top3Share            float64    `json:"top3Share"`
	Top5Share            float64    `json:"top5Share"`
	AvgVolumePerCustomer float64    `json:"avgVolumePerCustomer"`
	TopCustomers         []TopEntry `json:"topCustomers"`
}

// RetentionAnalysis 留存/流失分析
// 上年无同月列时 HasPreviousYearData=false，比率不得按 0% 解读
type RetentionAnalysis struct {
	HasPreviousYearData bool     `json:"hasPreviousYearData"`
	RetentionRate       float64  `json:"retentionRate"`
	ChurnRate           float64  `json:"churnRate"`
	Retained            int      `json:"retained"`
	Lost                int      `json:"lost"`
	New                 int      `json:"new"`
	TotalPrevious       int      `json:"totalPrevious"`
	LostNames           []string `json:"lostNames"`
	NewNames            []string `json:"newNames"`
	Risk                string   `json:"risk"` // LOW/MEDIUM/HIGH
}

// KiloRateInfo 千克单价（金额/吨）及其对比
type KiloRateInfo struct {
	Current     float64  `json:"current"`
	Prev        float64  `json:"prev"`
	Budget      float64  `json:"budget"`
	YoYPct      *float64 `json:"yoyPct"`
	VsBudgetPct *float64 `json:"vsBudgetPct"`
}

// PVM 价量构成分解
// 构成效应需要产品级数据，当前实现恒为 0（简化口径）
type PVM struct {
	Available    bool    `json:"available"`
	PriceEffect  float64 `json:"priceEffect"`
	VolumeEffect float64 `json:"volumeEffect"`
	MixEffect    float64 `json:"mixEffect"`
}

// RunRateInfo 运行速率与全年预算追赶
type RunRateInfo struct {
	CurrentRunRate  float64 `json:"currentRunRate"`
	RequiredRunRate float64 `json:"requiredRunRate"`
	IsOnTrack       bool    `json:"isOnTrack"`
	CatchUpPerMonth float64 `json:"catchUpPerMonth"`
}

// CustomerComparison 客户级销量/金额对比
type CustomerComparison struct {
	Name             string   `json:"name"`
	VolumeActual     float64  `json:"volumeActual"`
	AmountActual     float64  `json:"amountActual"`
	VolumeBudget     float64  `json:"volumeBudget"`
	AmountBudget     float64  `json:"amountBudget"`
	VolumePrev       float64  `json:"volumePrev"`
	AmountPrev       float64  `json:"amountPrev"`
	KiloRate         float64  `json:"kiloRate"`
	KiloRatePrev     float64  `json:"kiloRatePrev"`
	KiloRateBudget   float64  `json:"kiloRateBudget"`
	VolumeVsBudget   *float64 `json:"volumeVsBudget"`
	AmountVsBudget   *float64 `json:"amountVsBudget"`
	VolumeYoY        *float64 `json:"volumeYoY"`
	AmountYoY        *float64 `json:"amountYoY"`
	KiloRateYoY      *float64 `json:"kiloRateYoY"`
	KiloRateVsBudget *float64 `json:"kiloRateVsBudget"`
}

// Outlier 同比增速统计异常客户
type Outlier struct {
	Name    string  `json:"name"`
	YoYPct  float64 `json:"yoyPct"`
	ZScore  float64 `json:"zScore"`
	Volume  float64 `json:"volume"`
}

// FocusCustomer 重点客户（重要性×波动性评分）
type FocusCustomer struct {
	Name             string   `json:"name"`
	Actual           float64  `json:"actual"`
	Budget           float64  `json:"budget"`
	Prev             float64  `json:"prev"`
	VsBudget         *float64 `json:"vsBudget"`
	YoY              *float64 `json:"yoy"`
	Share            float64  `json:"share"`
	MaterialityScore float64  `json:"materialityScore"`
	VarianceScore    float64  `json:"varianceScore"`
	PriorityScore    float64  `json:"priorityScore"`
	CatchUpPerMonth  float64  `json:"catchUpPerMonth"`
}

// ExecutiveSummary 管理层摘要
type ExecutiveSummary struct {
	PortfolioHealth string   `json:"portfolioHealth"` // ON_TRACK/AT_RISK/UNDERPERFORMING
	KeyRisks        []string `json:"keyRisks"`
	Opportunities   []string `json:"opportunities"`
}

// Snapshot 一次洞察计算的只读结果
// 由一个矩阵 + 基准期间派生，构建后不再修改
type Snapshot struct {
	BaseIndex         int `json:"baseIndex"`
	BudgetIndex       int `json:"budgetIndex"`
	PreviousYearIndex int `json:"previousYearIndex"`
	MonthsRemaining   int `json:"monthsRemaining"`

	Totals            Totals   `json:"totals"`
	VsBudgetPct       *float64 `json:"vsBudgetPct"`
	YoYPct            *float64 `json:"yoyPct"`
	AmountVsBudgetPct *float64 `json:"amountVsBudgetPct"`
	AmountYoYPct      *float64 `json:"amountYoYPct"`

	TopN          TopNSummary       `json:"topN"`
	Concentration ConcentrationRisk `json:"concentration"`
	Retention     RetentionAnalysis `json:"retention"`
	KiloRate      KiloRateInfo      `json:"kiloRate"`
	PVM           PVM               `json:"pvm"`
	RunRate       RunRateInfo       `json:"runRate"`

	CustomerComparisons []CustomerComparison `json:"customerComparisons"`
	TopVolume           []TopEntry           `json:"topVolume"`
	TopSales            []TopEntry           `json:"topSales"`
	VolumeAdvantage     []CustomerComparison `json:"volumeAdvantage"`
	SalesAdvantage      []CustomerComparison `json:"salesAdvantage"`
	Outliers            []Outlier            `json:"outliers"`

	FocusCustomers  []FocusCustomer  `json:"focusCustomers"`
	GrowthDrivers   []FocusCustomer  `json:"growthDrivers"`
	Underperformers []FocusCustomer  `json:"underperformers"`
	Stable          []FocusCustomer  `json:"stable"`
	CoveragePct     float64          `json:"coveragePct"`
	Executive       ExecutiveSummary `json:"executive"`
}

// ratioPct 安全比率：(a-b)/b*100，分母非正返回 nil
func ratioPct(a, b float64) *float64 {
	if b <= 0 || math.IsNaN(a) || math.IsNaN(b) {
		return nil
	}
	v := (a - b) / b * 100
	return &v
}

// kiloRate 金额 / (销量/1000)，销量非正返回 0
func kiloRate(amount, volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return amount / (volume / 1000)
}

// ComputeInsights 从矩阵与基准期间计算完整洞察快照
// 纯函数：不修改矩阵，不保留共享状态
func ComputeInsights(in Input, th Thresholds) *Snapshot {
	vol := in.Volume
	if vol == nil || len(vol.Columns) == 0 || in.BaseIndex < 0 || in.BaseIndex >= len(vol.Columns) {
		return nil
	}
	columns := vol.Columns

	budgetIdx := FindBudgetIndex(columns, in.BaseIndex)
	prevIdx := FindPreviousYearIndex(columns, in.BaseIndex)
	base := columns[in.BaseIndex]
	ytdCurIdx := FindYTDIndex(columns, base.Year)
	ytdPrevIdx := FindYTDIndex(columns, base.Year-1)
	fyBudgetIdx := FindFullYearBudgetIndex(columns, base.Year)

	colKey := func(i int) string {
		if i < 0 || i >= len(columns) {
			return ""
		}
		return columns[i].Key()
	}
	volTotal := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return vol.Total(colKey(i))
	}
	amtTotal := func(i int) float64 {
		if in.Amount == nil || i < 0 {
			return 0
		}
		return in.Amount.Total(colKey(i))
	}

	totals := Totals{
		Actual:       volTotal(in.BaseIndex),
		Budget:       volTotal(budgetIdx),
		Prev:         volTotal(prevIdx),
		YTDCurrent:   volTotal(ytdCurIdx),
		YTDPrev:      volTotal(ytdPrevIdx),
		FYBudget:     volTotal(fyBudgetIdx),
		AmountActual: amtTotal(in.BaseIndex),
		AmountBudget: amtTotal(budgetIdx),
		AmountPrev:   amtTotal(prevIdx),
	}

	baseKey := colKey(in.BaseIndex)
	budgetKey := colKey(budgetIdx)
	prevKey := colKey(prevIdx)

	snap := &Snapshot{
		BaseIndex:         in.BaseIndex,
		BudgetIndex:       budgetIdx,
		PreviousYearIndex: prevIdx,
		Totals:            totals,
		VsBudgetPct:       ratioPct(totals.Actual, totals.Budget),
		YoYPct:            ratioPct(totals.Actual, totals.Prev),
		AmountVsBudgetPct: ratioPct(totals.AmountActual, totals.AmountBudget),
		AmountYoYPct:      ratioPct(totals.AmountActual, totals.AmountPrev),
	}

	// 千克单价
	krCur := kiloRate(totals.AmountActual, totals.Actual)
	krPrev := kiloRate(totals.AmountPrev, totals.Prev)
	krBudget := kiloRate(totals.AmountBudget, totals.Budget)
	snap.KiloRate = KiloRateInfo{
		Current:     krCur,
		Prev:        krPrev,
		Budget:      krBudget,
		YoYPct:      ratioPct(krCur, krPrev),
		VsBudgetPct: ratioPct(krCur, krBudget),
	}

	// 价量分解：优先上年，退回预算
	if totals.AmountPrev > 0 && totals.Prev > 0 && totals.AmountActual > 0 && totals.Actual > 0 {
		snap.PVM = PVM{
			Available:    true,
			PriceEffect:  (krCur - krPrev) / krPrev * 100,
			VolumeEffect: (totals.Actual - totals.Prev) / totals.Prev * 100,
		}
	} else if totals.Budget > 0 && totals.AmountBudget > 0 && totals.Actual > 0 && totals.AmountActual > 0 {
		snap.PVM = PVM{
			Available:    true,
			PriceEffect:  (krCur - krBudget) / krBudget * 100,
			VolumeEffect: (totals.Actual - totals.Budget) / totals.Budget * 100,
		}
	}

	// 剩余月份：基准期间为当年单月时按月号推算，否则视为整年
	monthsRemaining := 12
	if base.Year == in.Now.Year() {
		if n := base.MonthNumber(); n >= 1 && n <= 12 {
			monthsRemaining = 12 - n
		}
	}
	snap.MonthsRemaining = monthsRemaining

	elapsed := float64(12 - monthsRemaining)
	if elapsed < 1 {
		elapsed = 1
	}
	rr := RunRateInfo{
		CurrentRunRate: totals.Actual * 12 / elapsed,
	}
	if totals.FYBudget > 0 {
		rr.RequiredRunRate = totals.FYBudget
	} else {
		rr.RequiredRunRate = totals.Budget * 12 / elapsed
	}
	rr.IsOnTrack = rr.CurrentRunRate >= rr.RequiredRunRate*th.RunRateWarn
	if !rr.IsOnTrack && monthsRemaining > 0 {
		rr.CatchUpPerMonth = (rr.RequiredRunRate - totals.Actual) / float64(monthsRemaining)
	}
	snap.RunRate = rr

	// 基准期间降序排序的实体
	type rankedEntity struct {
		label string
		value float64
	}
	ranked := make([]rankedEntity, 0, len(vol.Entities))
	for _, e := range vol.Entities {
		ranked = append(ranked, rankedEntity{label: e.Label, value: vol.Value(e.Label, baseKey)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })

	// Top-N 与"其他"
	topN := TopNSummary{TotalCustomers: len(ranked)}
	for i, r := range ranked {
		if i < th.TopN {
			topN.Top = append(topN.Top, TopEntry{
				Name:     r.label,
				Value:    r.value,
				SharePct: vol.Percent(r.label, baseKey),
			})
			topN.TopTotal += r.value
		} else {
			topN.OthersTotal += r.value
		}
	}
	if total := vol.Total(baseKey); total > 0 {
		topN.TopSharePct = topN.TopTotal / total * 100
		topN.OthersSharePct = topN.OthersTotal / total * 100
	}
	snap.TopN = topN

	// 集中度：只统计基准期间有量的客户
	var active []rankedEntity
	for _, r := range ranked {
		if r.value > 0 {
			active = append(active, r)
		}
	}
	conc := ConcentrationRisk{
		CustomerCount:  len(active),
		TotalCustomers: len(ranked),
	}
	if totals.Actual > 0 {
		cum := 0.0
		for i, r := range active {
			share := r.value / totals.Actual
			cum += share
			switch {
			case i == 0:
				conc.Top1Share = share
				conc.Top3Share = cum
				conc.Top5Share = cum
			case i < 3:
				conc.Top3Share = cum
				conc.Top5Share = cum
			case i < 5:
				conc.Top5Share = cum
			}
		}
	}
	if conc.CustomerCount > 0 {
		conc.AvgVolumePerCustomer = totals.Actual / float64(conc.CustomerCount)
	}
	for i, r := range active {
		if i >= 5 {
			break
		}
		conc.TopCustomers = append(conc.TopCustomers, TopEntry{
			Name:     r.label,
			Value:    r.value,
			SharePct: vol.Percent(r.label, baseKey),
		})
	}
	switch {
	case conc.Top1Share > 0.5:
		conc.Level = "CRITICAL"
	case conc.Top1Share > 0.3 || conc.Top3Share > 0.7:
		conc.Level = "HIGH"
	case conc.Top1Share > 0.2 || conc.Top3Share > 0.5:
		conc.Level = "MEDIUM"
	default:
		conc.Level = "LOW"
	}
	snap.Concentration = conc

	// 留存/流失：按去合并标记后的规范名做集合比较
	snap.Retention = computeRetention(vol, baseKey, prevKey, prevIdx >= 0)

	// 客户级销量/金额对比
	if in.Amount != nil {
		volumeByKey := make(map[string]string, len(vol.Entities))
		for _, e := range vol.Entities {
			volumeByKey[KeyName(e.Label)] = e.Label
		}
		for _, ae := range in.Amount.Entities {
			volLabel, ok := volumeByKey[KeyName(ae.Label)]
			if !ok {
				continue
			}
			cc := CustomerComparison{Name: ae.Label}
			cc.VolumeActual = vol.Value(volLabel, baseKey)
			cc.AmountActual = in.Amount.Value(ae.Label, baseKey)
			if budgetIdx >= 0 {
				cc.VolumeBudget = vol.Value(volLabel, budgetKey)
				cc.AmountBudget = in.Amount.Value(ae.Label, budgetKey)
			}
			if prevIdx >= 0 {
				cc.VolumePrev = vol.Value(volLabel, prevKey)
				cc.AmountPrev = in.Amount.Value(ae.Label, prevKey)
			}
			cc.KiloRate = kiloRate(cc.AmountActual, cc.VolumeActual)
			cc.KiloRatePrev = kiloRate(cc.AmountPrev, cc.VolumePrev)
			cc.KiloRateBudget = kiloRate(cc.AmountBudget, cc.VolumeBudget)
			cc.VolumeVsBudget = ratioPct(cc.VolumeActual, cc.VolumeBudget)
			cc.AmountVsBudget = ratioPct(cc.AmountActual, cc.AmountBudget)
			cc.VolumeYoY = ratioPct(cc.VolumeActual, cc.VolumePrev)
			cc.AmountYoY = ratioPct(cc.AmountActual, cc.AmountPrev)
			cc.KiloRateYoY = ratioPct(cc.KiloRate, cc.KiloRatePrev)
			cc.KiloRateVsBudget = ratioPct(cc.KiloRate, cc.KiloRateBudget)
			snap.CustomerComparisons = append(snap.CustomerComparisons, cc)
		}
	}

	// 销量/金额榜单
	for i, r := range active {
		if i >= 5 {
			break
		}
		snap.TopVolume = append(snap.TopVolume, TopEntry{
			Name:     r.label,
			Value:    r.value,
			SharePct: vol.Percent(r.label, baseKey),
		})
	}
	bySales := make([]CustomerComparison, 0, len(snap.CustomerComparisons))
	for _, cc := range snap.CustomerComparisons {
		if cc.AmountActual > 0 {
			bySales = append(bySales, cc)
		}
	}
	sort.SliceStable(bySales, func(i, j int) bool { return bySales[i].AmountActual > bySales[j].AmountActual })
	for i, cc := range bySales {
		if i >= 5 {
			break
		}
		share := 0.0
		if totals.AmountActual > 0 {
			share = cc.AmountActual / totals.AmountActual * 100
		}
		snap.TopSales = append(snap.TopSales, TopEntry{Name: cc.Name, Value: cc.AmountActual, SharePct: share})
	}

	// 重要性门槛过滤的优势分析
	snap.VolumeAdvantage = advantageList(snap.CustomerComparisons, totals.Actual, th, func(c CustomerComparison) (float64, bool) {
		if c.VolumeVsBudget == nil || c.AmountVsBudget == nil {
			return 0, false
		}
		gap := *c.VolumeVsBudget - *c.AmountVsBudget
		return gap, gap > th.MinPerformanceGap
	})
	snap.SalesAdvantage = advantageList(snap.CustomerComparisons, totals.Actual, th, func(c CustomerComparison) (float64, bool) {
		if c.VolumeVsBudget == nil || c.AmountVsBudget == nil {
			return 0, false
		}
		gap := *c.AmountVsBudget - *c.VolumeVsBudget
		return gap, gap > th.MinPerformanceGap
	})

	// 同比增速异常检测（Z 分）
	if prevIdx >= 0 {
		snap.Outliers = computeOutliers(vol, baseKey, prevKey, th)
	}

	// 重点客户：重要性×波动性评分 + 份额覆盖规则
	snap.FocusCustomers, snap.CoveragePct = computeFocus(vol, baseKey, budgetKey, prevKey, budgetIdx >= 0, prevIdx >= 0, totals.Actual, monthsRemaining, th)
	for _, fc := range snap.FocusCustomers {
		switch {
		case (fc.VsBudget != nil && *fc.VsBudget >= th.GrowthVsBudgetPct) || (fc.YoY != nil && *fc.YoY >= th.GrowthYoYPct):
			if len(snap.GrowthDrivers) < th.MaxList {
				snap.GrowthDrivers = append(snap.GrowthDrivers, fc)
			}
		case (fc.VsBudget != nil && *fc.VsBudget <= th.UnderperfVsBudgetPct) || (fc.YoY != nil && *fc.YoY <= th.UnderperfYoYPct):
			if len(snap.Underperformers) < th.MaxList {
				snap.Underperformers = append(snap.Underperformers, fc)
			}
		default:
			if len(snap.Stable) < th.MaxList {
				snap.Stable = append(snap.Stable, fc)
			}
		}
	}

	snap.Executive = buildExecutiveSummary(snap, th)
	return snap
}

// computeRetention 留存/流失集合代数
func computeRetention(vol *Matrix, baseKey, prevKey string, hasPrev bool) RetentionAnalysis {
	ret := RetentionAnalysis{Risk: "LOW"}
	if !hasPrev {
		return ret
	}
	ret.HasPreviousYearData = true

	prevSet := make(map[string]string)
	curSet := make(map[string]string)
	for _, e := range vol.Entities {
		key := KeyName(e.Label)
		if vol.Value(e.Label, prevKey) > 0 {
			prevSet[key] = e.Label
		}
		if vol.Value(e.Label, baseKey) > 0 {
			curSet[key] = e.Label
		}
	}

	for key, label := range prevSet {
		if _, ok := curSet[key]; ok {
			ret.Retained++
		} else {
			ret.Lost++
			if len(ret.LostNames) < 5 {
				ret.LostNames = append(ret.LostNames, StripMergeMarker(label))
			}
		}
	}
	for key, label := range curSet {
		if _, ok := prevSet[key]; !ok {
			ret.New++
			if len(ret.NewNames) < 5 {
				ret.NewNames = append(ret.NewNames, StripMergeMarker(label))
			}
		}
	}
	sort.Strings(ret.LostNames)
	sort.Strings(ret.NewNames)

	ret.TotalPrevious = len(prevSet)
	if ret.TotalPrevious > 0 {
		ret.RetentionRate = float64(ret.Retained) / float64(ret.TotalPrevious)
		ret.ChurnRate = float64(ret.Lost) / float64(ret.TotalPrevious)
	}
	switch {
	case ret.ChurnRate >= 0.3:
		ret.Risk = "HIGH"
	case ret.ChurnRate >= 0.15:
		ret.Risk = "MEDIUM"
	}
	return ret
}

// computeOutliers 对有上年正值的客户计算同比增速分布的 Z 分异常
func computeOutliers(vol *Matrix, baseKey, prevKey string, th Thresholds) []Outlier {
	type growth struct {
		label  string
		rate   float64
		volume float64
	}
	var rates []growth
	for _, e := range vol.Entities {
		prev := vol.Value(e.Label, prevKey)
		if prev <= 0 {
			continue
		}
		cur := vol.Value(e.Label, baseKey)
		rates = append(rates, growth{
			label:  e.Label,
			rate:   (cur - prev) / prev * 100,
			volume: cur,
		})
	}
	if len(rates) < 2 {
		return nil
	}

	var sum float64
	for _, g := range rates {
		sum += g.rate
	}
	mean := sum / float64(len(rates))

	var sq float64
	for _, g := range rates {
		sq += (g.rate - mean) * (g.rate - mean)
	}
	stddev := math.Sqrt(sq / float64(len(rates)-1)) // 样本标准差
	if stddev == 0 {
		return nil
	}

	var outliers []Outlier
	for _, g := range rates {
		z := math.Abs(g.rate-mean) / stddev
		if z > th.OutlierZScore {
			outliers = append(outliers, Outlier{Name: g.label, YoYPct: g.rate, ZScore: z, Volume: g.volume})
		}
	}
	sort.SliceStable(outliers, func(i, j int) bool { return outliers[i].ZScore > outliers[j].ZScore })
	if len(outliers) > th.MaxOutliers {
		outliers = outliers[:th.MaxOutliers]
	}
	return outliers
}

// advantageList 重要性门槛过滤 + 差距降序截取前 3
func advantageList(comparisons []CustomerComparison, totalVolume float64, th Thresholds, gapOf func(CustomerComparison) (float64, bool)) []CustomerComparison {
	type scored struct {
		cc  CustomerComparison
		gap float64
	}
	var hits []scored
	for _, cc := range comparisons {
		gap, ok := gapOf(cc)
		if !ok {
			continue
		}
		share := 0.0
		if totalVolume > 0 {
			share = cc.VolumeActual / totalVolume
		}
		if share < th.MinVolumeShare || cc.VolumeActual/1000 < th.MinVolumeMT {
			continue
		}
		hits = append(hits, scored{cc: cc, gap: gap})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].gap > hits[j].gap })
	var out []CustomerComparison
	for i, h := range hits {
		if i >= 3 {
			break
		}
		out = append(out, h.cc)
	}
	return out
}

// computeFocus 重点客户评分与覆盖
func computeFocus(vol *Matrix, baseKey, budgetKey, prevKey string, hasBudget, hasPrev bool, totalActual float64, monthsRemaining int, th Thresholds) ([]FocusCustomer, float64) {
	var scored []FocusCustomer
	for _, e := range vol.Entities {
		fc := FocusCustomer{
			Name:   e.Label,
			Actual: vol.Value(e.Label, baseKey),
		}
		if hasBudget {
			fc.Budget = vol.Value(e.Label, budgetKey)
		}
		if hasPrev {
			fc.Prev = vol.Value(e.Label, prevKey)
		}
		if fc.Actual == 0 && fc.Budget == 0 {
			continue
		}
		fc.VsBudget = ratioPct(fc.Actual, fc.Budget)
		fc.YoY = ratioPct(fc.Actual, fc.Prev)
		if totalActual > 0 {
			fc.Share = fc.Actual / totalActual
		}
		fc.MaterialityScore = fc.Share * 100
		fc.VarianceScore = absOrZero(fc.VsBudget) + absOrZero(fc.YoY)
		fc.PriorityScore = fc.MaterialityScore * fc.VarianceScore
		if monthsRemaining > 0 && fc.Budget > fc.Actual {
			fc.CatchUpPerMonth = (fc.Budget - fc.Actual) / float64(monthsRemaining)
		}
		scored = append(scored, fc)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].PriorityScore > scored[j].PriorityScore })

	// 优先收录高评分客户，再按销量补齐份额覆盖
	inFocus := make(map[string]bool)
	for i, fc := range scored {
		if i >= th.MaxFocus {
			break
		}
		inFocus[fc.Name] = true
	}
	byVolume := make([]FocusCustomer, len(scored))
	copy(byVolume, scored)
	sort.SliceStable(byVolume, func(i, j int) bool { return byVolume[i].Actual > byVolume[j].Actual })
	cum := 0.0
	for _, fc := range byVolume {
		if len(inFocus) >= th.MaxFocus {
			break
		}
		cum += fc.Share
		inFocus[fc.Name] = true
		if cum >= th.CumShareTarget {
			break
		}
	}

	var focus []FocusCustomer
	var coverage float64
	for _, fc := range scored {
		if !inFocus[fc.Name] || len(focus) >= th.MaxFocus {
			continue
		}
		focus = append(focus, fc)
		coverage += fc.Share
	}
	return focus, coverage * 100
}

func absOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Abs(*v)
}

// buildExecutiveSummary 汇总风险与机会条目
func buildExecutiveSummary(snap *Snapshot, th Thresholds) ExecutiveSummary {
	es := ExecutiveSummary{}
	switch {
	case snap.VsBudgetPct != nil && *snap.VsBudgetPct >= 0:
		es.PortfolioHealth = "ON_TRACK"
	case snap.VsBudgetPct != nil && *snap.VsBudgetPct >= -10:
		es.PortfolioHealth = "AT_RISK"
	default:
		es.PortfolioHealth = "UNDERPERFORMING"
	}

	if snap.Concentration.Level == "HIGH" || snap.Concentration.Level == "CRITICAL" {
		es.KeyRisks = append(es.KeyRisks, "客户集中度过高")
	}
	if snap.Retention.HasPreviousYearData && snap.Retention.ChurnRate > 0.2 {
		es.KeyRisks = append(es.KeyRisks, "客户流失率偏高")
	}
	if len(snap.FocusCustomers) > 0 && float64(len(snap.Underperformers)) > float64(len(snap.FocusCustomers))*0.4 {
		es.KeyRisks = append(es.KeyRisks, "多个重点客户落后")
	}
	if !snap.RunRate.IsOnTrack {
		es.KeyRisks = append(es.KeyRisks, "落后于全年预算进度")
	}
	if len(es.KeyRisks) > 3 {
		es.KeyRisks = es.KeyRisks[:3]
	}

	if len(snap.GrowthDrivers) > 0 {
		es.Opportunities = append(es.Opportunities, "存在增长驱动客户")
	}
	if len(snap.VolumeAdvantage) > 0 {
		es.Opportunities = append(es.Opportunities, "存在提价空间客户")
	}
	if len(snap.SalesAdvantage) > 0 {
		es.Opportunities = append(es.Opportunities, "存在溢价能力客户")
	}
	if snap.Retention.New > 0 {
		es.Opportunities = append(es.Opportunities, "本期有新增客户")
	}
	if len(es.Opportunities) > 3 {
		es.Opportunities = es.Opportunities[:3]
	}
	return es
}
