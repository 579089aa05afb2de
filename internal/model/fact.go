package model

// ValuesType 数值口径
type ValuesType string

const (
	ValuesVolume ValuesType = "VOLUME" // 销量（千克）
	ValuesAmount ValuesType = "AMOUNT" // 金额
)

// DataType 期间数据类型
type DataType string

const (
	DataActual   DataType = "Actual"   // 实际
	DataBudget   DataType = "Budget"   // 预算
	DataForecast DataType = "Forecast" // 预测
)

// RawFact 原始销售事实行
// 由数据源按 (客户, 业务员) 分组求和后产出，同一期间内同一客户可能出现多行
type RawFact struct {
	ID           int64      `json:"id"`
	Division     string     `json:"division"`     // 事业部 FP/IP/PP
	Year         int        `json:"year"`         // 年份
	Month        int        `json:"month"`        // 月份 1-12
	DataType     DataType   `json:"dataType"`     // Actual/Budget/Forecast
	ValuesType   ValuesType `json:"valuesType"`   // VOLUME/AMOUNT
	CustomerName string     `json:"customerName"` // 客户原始名称
	SalesRep     string     `json:"salesRep"`     // 业务员
	Country      string     `json:"country"`      // 国家
	ProductGroup string     `json:"productGroup"` // 产品组
	Value        float64    `json:"value"`        // 数值
}

// RepCustomerValue 单业务员名下的客户汇总值（合并解析的输入行）
type RepCustomerValue struct {
	Customer string  `json:"customer"` // 客户原始名称
	Value    float64 `json:"value"`    // 汇总值
}

// CustomerRepInfo 客户归属业务员信息（取最近一期）
type CustomerRepInfo struct {
	SalesRep string `json:"salesRep"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
}
