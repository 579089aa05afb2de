package parser

import (
	"strconv"
	"strings"

	"salescope/internal/model"
)

// SheetMeta 从 Sheet 名识别出的数据范围
type SheetMeta struct {
	Division   string
	Year       int
	DataType   model.DataType
	ValuesType model.ValuesType
}

// dataTypeAliases Sheet 名中数据类型的别名
var dataTypeAliases = map[string]model.DataType{
	"actual":   model.DataActual,
	"budget":   model.DataBudget,
	"forecast": model.DataForecast,
}

// valuesTypeAliases Sheet 名中数值口径的别名
var valuesTypeAliases = map[string]model.ValuesType{
	"volume": model.ValuesVolume,
	"kgs":    model.ValuesVolume,
	"amount": model.ValuesAmount,
	"sales":  model.ValuesAmount,
}

// RecognizeSheet 识别 Sheet 名
// 格式: "<事业部> <年份> <数据类型> <口径>"，分隔符支持空格/连字符/下划线
// 例: "FP 2025 Actual VOLUME" / "IP-2024-Budget-Amount"
func RecognizeSheet(name string) (SheetMeta, bool) {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})

	meta := SheetMeta{}
	for _, field := range fields {
		token := strings.ToLower(strings.TrimSpace(field))
		switch {
		case meta.Year == 0 && isYear(token):
			meta.Year, _ = strconv.Atoi(token)
		case meta.DataType == "" && dataTypeAliases[token] != "":
			meta.DataType = dataTypeAliases[token]
		case meta.ValuesType == "" && valuesTypeAliases[token] != "":
			meta.ValuesType = valuesTypeAliases[token]
		case meta.Division == "" && isDivision(field):
			meta.Division = strings.ToUpper(field)
		}
	}

	ok := meta.Division != "" && meta.Year != 0 && meta.DataType != "" && meta.ValuesType != ""
	return meta, ok
}

func isYear(token string) bool {
	if len(token) != 4 {
		return false
	}
	n, err := strconv.Atoi(token)
	return err == nil && n >= 2000 && n <= 2100
}

// isDivision 事业部代号：2-3 个字母
func isDivision(token string) bool {
	if len(token) < 2 || len(token) > 3 {
		return false
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
