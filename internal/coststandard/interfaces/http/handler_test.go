package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agency-admin/internal/audit"
	"agency-admin/internal/auth"
	costapp "agency-admin/internal/coststandard/application"
	"agency-admin/internal/coststandard/infrastructure/memory"
	costhttp "agency-admin/internal/coststandard/interfaces/http"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type labels map[string]string

func (l labels) Label(status string) string {
	if label, ok := l[status]; ok {
		return label
	}
	return status
}

type item struct {
	ID            string `json:"id"`
	EmployeeLevel string `json:"employee_level"`
	CityType      string `json:"city_type"`
	EffectiveFrom string `json:"effective_from"`
	DailyCost     string `json:"daily_cost"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
}

type listBody struct {
	AsOf      string `json:"as_of"`
	Items     []item `json:"items"`
	Conflicts []struct {
		EmployeeLevel string `json:"employee_level"`
		CityType      string `json:"city_type"`
	} `json:"conflicts"`
}

func newTestMux(t *testing.T) (*http.ServeMux, *audit.MemoryLog) {
	t.Helper()
	seq := 0
	svc, err := costapp.NewService(memory.NewRepository(), "tenant-a",
		costapp.WithClock(fixedClock{now: time.Date(2024, 8, 1, 4, 0, 0, 0, time.UTC)}),
		costapp.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("cs-%d", seq)
		}),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	auditLog := audit.NewMemoryLog()
	handler, err := costhttp.NewHandler(svc, labels{"active": "生效中", "superseded": "已失效", "pending": "未生效"}, auditLog, zerolog.Nop())
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/cost-standards", handler)
	mux.Handle("/api/v1/cost-standards/", handler)
	return mux, auditLog
}

func do(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &payload)
	req = req.WithContext(auth.WithIdentity(context.Background(), "tenant-a", auth.RoleOperator, "alice"))
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	return resp
}

func create(t *testing.T, mux *http.ServeMux, level, city, from string, cost any) item {
	t.Helper()
	resp := do(t, mux, http.MethodPost, "/api/v1/cost-standards", map[string]any{
		"employee_level": level,
		"city_type":      city,
		"effective_from": from,
		"daily_cost":     cost,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.Code, resp.Body.String())
	}
	var created item
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	return created
}

func TestHandler_ListResolvesStatuses(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "P3", "tier2", "2024-01-01", 800)
	create(t, mux, "P3", "tier2", "2024-06-01", "900")
	create(t, mux, "P3", "tier2", "2025-01-01", 950)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards?as_of=2024-07-01", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", resp.Code, resp.Body.String())
	}
	var body listBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if body.AsOf != "2024-07-01" {
		t.Fatalf("unexpected as_of %s", body.AsOf)
	}
	want := []struct{ from, status, label string }{
		{"2025-01-01", "pending", "未生效"},
		{"2024-06-01", "active", "生效中"},
		{"2024-01-01", "superseded", "已失效"},
	}
	if len(body.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(body.Items))
	}
	for i, w := range want {
		got := body.Items[i]
		if got.EffectiveFrom != w.from || got.Status != w.status || got.StatusLabel != w.label {
			t.Fatalf("item %d: got %s %s %s, want %s %s %s", i, got.EffectiveFrom, got.Status, got.StatusLabel, w.from, w.status, w.label)
		}
	}
	if len(body.Conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %+v", body.Conflicts)
	}
}

func TestHandler_ListDefaultsToToday(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "P3", "tier2", "2024-08-01", 900)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards?status=active", nil)
	var body listBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if body.AsOf != "2024-08-01" || len(body.Items) != 1 {
		t.Fatalf("expected record effective today to be active, got %+v", body)
	}
}

func TestHandler_ListRejectsBadQuery(t *testing.T) {
	mux, _ := newTestMux(t)
	for _, target := range []string{
		"/api/v1/cost-standards?as_of=2024-13-01",
		"/api/v1/cost-standards?status=expired",
	} {
		if resp := do(t, mux, http.MethodGet, target, nil); resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestHandler_CreateValidation(t *testing.T) {
	mux, _ := newTestMux(t)
	cases := []map[string]any{
		{"employee_level": "P3", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": 0},
		{"employee_level": "", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": 1},
		{"employee_level": "P3", "city_type": "moon", "effective_from": "2024-01-01", "daily_cost": 1},
		{"employee_level": "P3", "city_type": "tier2", "daily_cost": 1},
		{"employee_level": "P3", "city_type": "tier2", "effective_from": "2024-02-30", "daily_cost": 1},
		{"employee_level": "P3", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": "800.005"},
		{"employee_level": "P3", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": "0.004"},
		{"employee_level": "P3", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": "12345678901.00"},
		{"employee_level": "   ", "city_type": "tier2", "effective_from": "2024-01-01", "daily_cost": 1},
	}
	for i, body := range cases {
		if resp := do(t, mux, http.MethodPost, "/api/v1/cost-standards", body); resp.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
}

func TestHandler_ActiveEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "P3", "tier2", "2024-01-01", 800)
	create(t, mux, "P3", "tier2", "2024-06-01", 900)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards/active?employee_level=P3&city_type=tier2&as_of=2024-03-15", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("active status %d: %s", resp.Code, resp.Body.String())
	}
	var active item
	if err := json.Unmarshal(resp.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	if active.DailyCost != "800" || active.Status != "active" {
		t.Fatalf("unexpected active record: %+v", active)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/cost-standards/active?employee_level=P3&city_type=tier2&as_of=2023-03-15", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first version, got %d", resp.Code)
	}

	create(t, mux, "P3", "tier2", "2024-06-01", 905)
	resp = do(t, mux, http.MethodGet, "/api/v1/cost-standards/active?employee_level=P3&city_type=tier2", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate dates, got %d", resp.Code)
	}

	resp = do(t, mux, http.MethodGet, "/api/v1/cost-standards/active?employee_level=P3", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without city_type, got %d", resp.Code)
	}
}

func TestHandler_ConflictsAreReported(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "P3", "tier2", "2024-01-01", 800)
	create(t, mux, "P3", "tier2", "2024-01-01", 850)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards", nil)
	var body listBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Conflicts) != 1 || body.Conflicts[0].EmployeeLevel != "P3" || body.Conflicts[0].CityType != "tier2" {
		t.Fatalf("expected P3/tier2 conflict, got %+v", body.Conflicts)
	}
	for _, it := range body.Items {
		if it.Status != "active" {
			t.Fatalf("expected every tied record active, %s is %s", it.ID, it.Status)
		}
	}
}

func TestHandler_GetUpdateDeleteAndAudit(t *testing.T) {
	mux, auditLog := newTestMux(t)
	created := create(t, mux, "P3", "tier2", "2024-01-01", 800)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards/"+created.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status %d", resp.Code)
	}

	resp = do(t, mux, http.MethodPut, "/api/v1/cost-standards/"+created.ID, map[string]any{"daily_cost": "820.50"})
	if resp.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", resp.Code, resp.Body.String())
	}
	var updated item
	if err := json.Unmarshal(resp.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.DailyCost != "820.5" || updated.EffectiveFrom != "2024-01-01" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if resp := do(t, mux, http.MethodDelete, "/api/v1/cost-standards/"+created.ID, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.Code)
	}
	if resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards/"+created.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
	if resp := do(t, mux, http.MethodDelete, "/api/v1/cost-standards/"+created.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}

	entries := auditLog.Entries()
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
		if entry.TenantID != "tenant-a" || entry.Actor != "alice" || entry.ResourceType != "cost_standard" {
			t.Fatalf("unexpected audit entry: %+v", entry)
		}
	}
	want := []string{"cost_standard.create", "cost_standard.update", "cost_standard.delete"}
	if fmt.Sprint(actions) != fmt.Sprint(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}
}

func TestHandler_Exports(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "P3", "tier2", "2024-01-01", 800)
	create(t, mux, "P3", "tier2", "2024-01-01", 850)

	cases := []struct {
		path        string
		contentType string
	}{
		{"/api/v1/cost-standards/export.pdf?as_of=2024-07-01", "application/pdf"},
		{"/api/v1/cost-standards/export.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tc := range cases {
		resp := do(t, mux, http.MethodGet, tc.path, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s status %d", tc.path, resp.Code)
		}
		if resp.Header().Get("Content-Type") != tc.contentType {
			t.Fatalf("%s content-type mismatch", tc.path)
		}
		if len(resp.Body.Bytes()) == 0 {
			t.Fatalf("%s empty", tc.path)
		}
	}
}

func TestHandler_UpdateRejectsUnstorableCost(t *testing.T) {
	mux, _ := newTestMux(t)
	created := create(t, mux, "P3", "tier2", "2024-01-01", "800.50")
	if created.DailyCost != "800.5" && created.DailyCost != "800.50" {
		t.Fatalf("unexpected created cost %s", created.DailyCost)
	}
	resp := do(t, mux, http.MethodPatch, "/api/v1/cost-standards/"+created.ID, map[string]any{"daily_cost": "900.125"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandler_PDFExportWithNonLatinLevel(t *testing.T) {
	mux, _ := newTestMux(t)
	create(t, mux, "高级顾问", "tier1", "2024-01-01", 1500)

	resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards/export.pdf", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("pdf status %d: %s", resp.Code, resp.Body.String())
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)
	if resp := do(t, mux, http.MethodPost, "/api/v1/cost-standards/active", nil); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if resp := do(t, mux, http.MethodGet, "/api/v1/cost-standards/a/b", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
