package v3

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"salescope/internal/config"
	"salescope/internal/model"
	"salescope/internal/service/report"
	"salescope/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	router := gin.New()
	handler := NewHandler(st, report.New(st, config.BusinessConfig{}))
	handler.RegisterRoutes(router.Group("/api"))
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMergeRulesAPI(t *testing.T) {
	router, _ := newTestRouter(t)

	// 新建规则
	w := doJSON(t, router, "POST", "/api/divisions/FP/reps/John/merge-rules", gin.H{
		"mergedName":        "Acme Group",
		"originalCustomers": []string{"Acme Corp", "Acme Trading"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("新建规则状态码 = %d: %s", w.Code, w.Body.String())
	}

	// 重叠规则返回 409
	w = doJSON(t, router, "POST", "/api/divisions/FP/reps/John/merge-rules", gin.H{
		"mergedName":        "Other Group",
		"originalCustomers": []string{"ACME CORP"},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("重叠规则状态码 = %d，期望 409", w.Code)
	}

	// 查询
	w = doJSON(t, router, "GET", "/api/divisions/FP/reps/John/merge-rules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("查询状态码 = %d", w.Code)
	}
	var resp struct {
		Rules []model.MergeRule `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rules) != 1 || resp.Rules[0].MergedName != "Acme Group" {
		t.Errorf("规则 = %+v", resp.Rules)
	}
}

func TestSalesTableAPI(t *testing.T) {
	router, st := newTestRouter(t)

	facts := []*model.RawFact{
		{Division: "FP", Year: 2025, Month: 6, DataType: model.DataActual, ValuesType: model.ValuesVolume, CustomerName: "Acme Corp", SalesRep: "John", Value: 100},
		{Division: "FP", Year: 2025, Month: 6, DataType: model.DataBudget, ValuesType: model.ValuesVolume, CustomerName: "Acme Corp", SalesRep: "John", Value: 90},
	}
	if err := st.BatchInsertFacts(facts, "seed.xlsx", "batch-1"); err != nil {
		t.Fatal(err)
	}

	body := gin.H{
		"division": "FP",
		"columns": []gin.H{
			{"year": 2025, "month": "June", "type": "Budget"},
			{"year": 2025, "month": "June", "type": "Actual"},
		},
		"baseIndex": 1,
	}
	w := doJSON(t, router, "POST", "/api/report/sales-table", body)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d: %s", w.Code, w.Body.String())
	}
	var result report.TableResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 1 || result.Rows[0].Label != "Acme Corp" {
		t.Fatalf("行 = %+v", result.Rows)
	}

	// 隐藏预算列后基准期间重新定位
	body["hideBudget"] = true
	w = doJSON(t, router, "POST", "/api/report/sales-table", body)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	// 只剩实际列 + 无差值列
	if len(result.Columns) != 1 || result.BaseIndex != 0 {
		t.Errorf("过滤后列 = %d baseIndex = %d", len(result.Columns), result.BaseIndex)
	}
}

func TestInsightsAPI(t *testing.T) {
	router, st := newTestRouter(t)

	facts := []*model.RawFact{
		{Division: "FP", Year: 2025, Month: 6, DataType: model.DataActual, ValuesType: model.ValuesVolume, CustomerName: "Acme Corp", SalesRep: "John", Value: 100},
		{Division: "FP", Year: 2025, Month: 6, DataType: model.DataBudget, ValuesType: model.ValuesVolume, CustomerName: "Acme Corp", SalesRep: "John", Value: 80},
	}
	if err := st.BatchInsertFacts(facts, "seed.xlsx", "batch-1"); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, "POST", "/api/report/insights", gin.H{
		"division": "FP",
		"columns": []gin.H{
			{"year": 2025, "month": "June", "type": "Actual"},
			{"year": 2025, "month": "June", "type": "Budget"},
		},
		"baseIndex": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d: %s", w.Code, w.Body.String())
	}
	var snap struct {
		Totals struct {
			Actual float64 `json:"actual"`
			Budget float64 `json:"budget"`
		} `json:"totals"`
		VsBudgetPct *float64 `json:"vsBudgetPct"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Totals.Actual != 100 || snap.Totals.Budget != 80 {
		t.Errorf("总量 = %+v", snap.Totals)
	}
	if snap.VsBudgetPct == nil || *snap.VsBudgetPct != 25 {
		t.Errorf("对预算 = %v，期望 25", snap.VsBudgetPct)
	}
}

func TestRepGroupsAPI(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/divisions/FP/rep-groups", gin.H{
		"name":    "East Team",
		"members": []string{"John", "Jane"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("新建分组状态码 = %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/divisions/FP/rep-groups", nil)
	var resp struct {
		Groups []model.RepGroup `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Groups) != 1 || len(resp.Groups[0].Members) != 2 {
		t.Errorf("分组 = %+v", resp.Groups)
	}

	w = doJSON(t, router, "DELETE", "/api/divisions/FP/rep-groups/East%20Team", nil)
	if w.Code != http.StatusOK {
		t.Errorf("删除分组状态码 = %d", w.Code)
	}
}
