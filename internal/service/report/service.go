package report

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"salescope/internal/config"
	"salescope/internal/engine"
	"salescope/internal/model"
	"salescope/internal/store"
)

// Service 报表服务：取数、合并解析、聚合、矩阵与洞察计算的编排层
type Service struct {
	store      *store.Store
	thresholds engine.Thresholds
	now        func() time.Time
}

// New 创建报表服务
func New(st *store.Store, biz config.BusinessConfig) *Service {
	return &Service{
		store:      st,
		thresholds: thresholdsFrom(biz),
		now:        time.Now,
	}
}

// thresholdsFrom 配置覆盖内置默认阈值，零值项保持默认
func thresholdsFrom(biz config.BusinessConfig) engine.Thresholds {
	th := engine.DefaultThresholds()
	if biz.TopN > 0 {
		th.TopN = biz.TopN
	}
	if biz.MaxFocus > 0 {
		th.MaxFocus = biz.MaxFocus
	}
	if biz.MaxList > 0 {
		th.MaxList = biz.MaxList
	}
	if biz.CumShareTarget > 0 {
		th.CumShareTarget = biz.CumShareTarget
	}
	if biz.GrowthVsBudgetPct != 0 {
		th.GrowthVsBudgetPct = biz.GrowthVsBudgetPct
	}
	if biz.GrowthYoYPct != 0 {
		th.GrowthYoYPct = biz.GrowthYoYPct
	}
	if biz.UnderperfVsBudgetPct != 0 {
		th.UnderperfVsBudgetPct = biz.UnderperfVsBudgetPct
	}
	if biz.UnderperfYoYPct != 0 {
		th.UnderperfYoYPct = biz.UnderperfYoYPct
	}
	if biz.RunRateWarn > 0 {
		th.RunRateWarn = biz.RunRateWarn
	}
	if biz.MinVolumeShare > 0 {
		th.MinVolumeShare = biz.MinVolumeShare
	}
	if biz.MinVolumeMT > 0 {
		th.MinVolumeMT = biz.MinVolumeMT
	}
	if biz.MinPerformanceGap > 0 {
		th.MinPerformanceGap = biz.MinPerformanceGap
	}
	if biz.OutlierZScore > 0 {
		th.OutlierZScore = biz.OutlierZScore
	}
	if biz.MaxOutliers > 0 {
		th.MaxOutliers = biz.MaxOutliers
	}
	return th
}

// Thresholds 当前生效的业务阈值
func (s *Service) Thresholds() engine.Thresholds {
	return s.thresholds
}

// Request 报表请求
// SalesRep 为空表示全事业部视图；也可以是业务员分组名，自动展开为成员
type Request struct {
	Division   string               `json:"division"`
	Columns    []model.PeriodColumn `json:"columns"`
	BaseIndex  int                  `json:"baseIndex"`
	SalesRep   string               `json:"salesRep"`
	ValuesType model.ValuesType     `json:"valuesType"`
}

// scopeReps 解析请求作用域：空 -> nil（全事业部），分组名 -> 成员，业务员 -> 自身
func (s *Service) scopeReps(req Request) ([]string, error) {
	if req.SalesRep == "" {
		return nil, nil
	}
	group, err := s.store.GetRepGroup(req.Division, req.SalesRep)
	if err == nil {
		return group.Members, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve rep group: %w", err)
	}
	return []string{req.SalesRep}, nil
}

// fetchColumn 取单个期间列的事实数据，按业务员分组
func (s *Service) fetchColumn(req Request, col model.PeriodColumn, reps []string) (map[string][]model.RepCustomerValue, error) {
	dataType := col.Type
	if col.IsBudget() {
		// FY Budget 等变体按预算数据查询
		dataType = model.DataBudget
	}
	opts := store.FactQueryOptions{
		Division:   req.Division,
		Year:       col.Year,
		Months:     col.ExpandMonths(),
		DataType:   dataType,
		ValuesType: req.ValuesType,
	}
	if col.IsYTD() {
		opts.Months = ytdMonths(col.Year, s.now())
	}

	if reps == nil {
		return s.store.GetRepCustomerValuesByRep(opts)
	}
	byRep := make(map[string][]model.RepCustomerValue, len(reps))
	for _, rep := range reps {
		rep := rep
		repOpts := opts
		repOpts.SalesRep = &rep
		rows, err := s.store.GetRepCustomerValues(repOpts)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			byRep[rep] = rows
		}
	}
	return byRep, nil
}

// ytdMonths 年初至今的月份列表；历史年份为整年
func ytdMonths(year int, now time.Time) []int {
	last := 12
	if year == now.Year() {
		last = int(now.Month())
	}
	months := make([]int, 0, last)
	for m := 1; m <= last; m++ {
		months = append(months, m)
	}
	return months
}

// buildMatrix 并发取数 + 合并解析 + 聚合 + 矩阵构建
// 单列取数失败记日志并按零值处理，不拖垮整张报表；基准列失败则整体报错
func (s *Service) buildMatrix(req Request) (*engine.Matrix, error) {
	if len(req.Columns) == 0 {
		return nil, errors.New("at least one period column is required")
	}
	if req.BaseIndex < 0 || req.BaseIndex >= len(req.Columns) {
		req.BaseIndex = 0
	}
	if req.ValuesType == "" {
		req.ValuesType = model.ValuesVolume
	}

	reps, err := s.scopeReps(req)
	if err != nil {
		return nil, err
	}

	facts := make(map[string]engine.ColumnFacts, len(req.Columns))
	colByRep := make([]map[string][]model.RepCustomerValue, len(req.Columns))
	var baseErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, col := range req.Columns {
		wg.Add(1)
		go func(i int, col model.PeriodColumn) {
			defer wg.Done()
			byRep, err := s.fetchColumn(req, col, reps)
			if err != nil {
				log.Printf("期间列取数失败: division=%s column=%s err=%v", req.Division, col.Key(), err)
				if i == req.BaseIndex {
					mu.Lock()
					baseErr = err
					mu.Unlock()
				}
				return
			}
			var all []model.RepCustomerValue
			for _, rows := range byRep {
				all = append(all, rows...)
			}
			mu.Lock()
			facts[col.Key()] = engine.IndexFacts(all)
			colByRep[i] = byRep
			mu.Unlock()
		}(i, col)
	}
	wg.Wait()

	if baseErr != nil {
		return nil, fmt.Errorf("failed to fetch base period: %w", baseErr)
	}

	entities, err := s.resolveEntities(req, unionCustomerRows(colByRep, req.BaseIndex))
	if err != nil {
		return nil, err
	}
	return engine.BuildMatrix(entities, req.Columns, facts), nil
}

// unionCustomerRows 跨期间列的客户全集
// 排名数值取基准期间，只出现在其他期间列的客户以零值并入，
// 流失客户因此仍进入矩阵参与留存与同比分析
func unionCustomerRows(colByRep []map[string][]model.RepCustomerValue, baseIndex int) map[string][]model.RepCustomerValue {
	// 基准列先行，保证首见写法取自基准期间
	order := make([]int, 0, len(colByRep))
	order = append(order, baseIndex)
	for i := range colByRep {
		if i != baseIndex {
			order = append(order, i)
		}
	}

	type accumulator struct {
		rows  []model.RepCustomerValue
		index map[string]int
	}
	acc := make(map[string]*accumulator)
	for _, i := range order {
		for rep, rows := range colByRep[i] {
			a := acc[rep]
			if a == nil {
				a = &accumulator{index: make(map[string]int)}
				acc[rep] = a
			}
			for _, row := range rows {
				key := engine.Normalize(row.Customer)
				pos, ok := a.index[key]
				if !ok {
					pos = len(a.rows)
					a.index[key] = pos
					a.rows = append(a.rows, model.RepCustomerValue{Customer: row.Customer})
				}
				if i == baseIndex {
					a.rows[pos].Value += row.Value
				}
			}
		}
	}

	out := make(map[string][]model.RepCustomerValue, len(acc))
	for rep, a := range acc {
		out[rep] = a.rows
	}
	return out
}

// resolveEntities 客户全集的合并解析与跨业务员聚合
func (s *Service) resolveEntities(req Request, byRep map[string][]model.RepCustomerValue) ([]model.CanonicalEntity, error) {
	if req.SalesRep == "" {
		// 事业部视图：同一客户出现在多个业务员名下时归并到最大值归属
		byRep = collapseBestOwner(byRep)
	}

	reps := make([]string, 0, len(byRep))
	for rep := range byRep {
		reps = append(reps, rep)
	}
	sort.Strings(reps)

	var items []model.LineItem
	for _, rep := range reps {
		rules, err := s.store.GetMergeRules(req.Division, rep)
		if err != nil {
			return nil, fmt.Errorf("failed to load merge rules for %s: %w", rep, err)
		}
		items = append(items, engine.ResolveRep(rep, byRep[rep], rules)...)
	}
	return engine.Aggregate(items), nil
}

// collapseBestOwner 跨业务员重复客户归并
// 同一规范名客户的全部数值合并到数值最大的业务员名下，总量不变
func collapseBestOwner(byRep map[string][]model.RepCustomerValue) map[string][]model.RepCustomerValue {
	type ownerTotal struct {
		rep   string
		total float64
	}
	perCustomer := make(map[string]map[string]float64) // 规范名 -> 业务员 -> 汇总值
	spelling := make(map[string]string)                // 规范名 -> 首见原始写法

	reps := make([]string, 0, len(byRep))
	for rep := range byRep {
		reps = append(reps, rep)
	}
	sort.Strings(reps)

	for _, rep := range reps {
		for _, row := range byRep[rep] {
			key := engine.Normalize(row.Customer)
			if perCustomer[key] == nil {
				perCustomer[key] = make(map[string]float64)
				spelling[key] = row.Customer
			}
			perCustomer[key][rep] += row.Value
		}
	}

	out := make(map[string][]model.RepCustomerValue, len(byRep))
	for key, owners := range perCustomer {
		best := ownerTotal{}
		var total float64
		ownerReps := make([]string, 0, len(owners))
		for rep := range owners {
			ownerReps = append(ownerReps, rep)
		}
		sort.Strings(ownerReps)
		for _, rep := range ownerReps {
			v := owners[rep]
			total += v
			if best.rep == "" || v > best.total {
				best = ownerTotal{rep: rep, total: v}
			}
		}
		out[best.rep] = append(out[best.rep], model.RepCustomerValue{Customer: spelling[key], Value: total})
	}
	return out
}

// Insights 计算洞察快照：销量口径为主矩阵，金额口径为辅
func (s *Service) Insights(req Request) (*engine.Snapshot, error) {
	if req.BaseIndex < 0 || req.BaseIndex >= len(req.Columns) {
		req.BaseIndex = 0
	}
	volReq := req
	volReq.ValuesType = model.ValuesVolume
	vol, err := s.buildMatrix(volReq)
	if err != nil {
		return nil, err
	}

	amtReq := req
	amtReq.ValuesType = model.ValuesAmount
	amt, err := s.buildMatrix(amtReq)
	if err != nil {
		// 金额数据缺失不阻断销量洞察
		log.Printf("金额口径取数失败，金额指标不可用: %v", err)
		amt = nil
	}

	snap := engine.ComputeInsights(engine.Input{
		Volume:    vol,
		Amount:    amt,
		BaseIndex: req.BaseIndex,
		Now:       s.now(),
	}, s.thresholds)
	if snap == nil {
		return nil, errors.New("insight computation produced no snapshot")
	}
	return snap, nil
}
