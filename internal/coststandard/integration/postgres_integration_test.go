package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"agency-admin/internal/audit"
	"agency-admin/internal/auth"
	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	costpostgres "agency-admin/internal/coststandard/infrastructure/postgres"
	costhttp "agency-admin/internal/coststandard/interfaces/http"
	"agency-admin/internal/versioning"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestCostStandards_PostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	tenantID := "tenant-cs-it"
	_, _ = db.ExecContext(ctx, "DELETE FROM cost_standards WHERE tenant_id = $1", tenantID)
	_, _ = db.ExecContext(ctx, "DELETE FROM audit_logs WHERE tenant_id = $1", tenantID)

	repo := costpostgres.NewRepository(db)
	svc, err := costapp.NewService(repo, tenantID,
		costapp.WithClock(fixedClock{now: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}))
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	create := func(level, city, from, cost string) *coststandard.CostStandard {
		item, err := svc.Create(ctx, costapp.CreateInput{
			EmployeeLevel: level,
			CityType:      city,
			EffectiveFrom: versioning.MustParseDate(from),
			DailyCost:     decimal.RequireFromString(cost),
			Remark:        "it",
		})
		if err != nil {
			t.Fatalf("create %s/%s %s: %v", level, city, from, err)
		}
		return item
	}
	old := create("P3", "tier2", "2024-01-01", "800.00")
	current := create("P3", "tier2", "2024-06-01", "900.50")
	future := create("P3", "tier2", "2025-01-01", "950")
	create("P4", "tier1", "2024-01-01", "1500")

	stored, err := repo.List(ctx, tenantID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(stored))
	}
	if !stored[0].EffectiveFrom.Equal(versioning.MustParseDate("2025-01-01")) {
		t.Fatalf("expected newest P3 row first, got %s", stored[0].EffectiveFrom)
	}

	result, err := svc.List(ctx, costapp.ListQuery{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	statuses := map[string]versioning.Status{}
	for _, item := range result.Items {
		statuses[item.ID] = item.Status
	}
	if statuses[old.ID] != versioning.StatusSuperseded ||
		statuses[current.ID] != versioning.StatusActive ||
		statuses[future.ID] != versioning.StatusPending {
		t.Fatalf("unexpected statuses: %v", statuses)
	}

	active, err := svc.ActiveDailyCost(ctx, coststandard.NewGroupKey("P3", "tier2"), versioning.Date{})
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !active.DailyCost.Equal(decimal.RequireFromString("900.5")) {
		t.Fatalf("expected 900.5, got %s", active.DailyCost)
	}

	cost := decimal.RequireFromString("910")
	updated, err := svc.Update(ctx, current.ID, costapp.UpdateInput{DailyCost: &cost})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("timestamps not maintained")
	}

	other := auth.WithIdentity(ctx, "tenant-other", auth.RoleOperator, "mallory")
	if err := svc.Delete(other, current.ID); !errors.Is(err, coststandard.ErrNotFound) {
		t.Fatalf("expected cross-tenant delete to miss, got %v", err)
	}
	if err := svc.Delete(ctx, future.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count, err := repo.Count(ctx); err != nil || count < 3 {
		t.Fatalf("count: %d %v", count, err)
	}

	handler, err := costhttp.NewHandler(svc, nil, audit.NewRepository(db), zerolog.Nop())
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/cost-standards/", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cost-standards/export.xlsx", nil)
	req = req.WithContext(auth.WithIdentity(ctx, tenantID, auth.RoleOperator, "it"))
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || len(resp.Body.Bytes()) == 0 {
		t.Fatalf("xlsx export failed: %d", resp.Code)
	}

	var audits int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE tenant_id = $1 AND action = 'cost_standard.export'", tenantID).Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Fatalf("expected one export audit entry, got %d", audits)
	}
}

func applyMigrations(db *sql.DB) error {
	path := filepath.Join(projectRoot(), "migrations", "0001_cost_standards.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = db.Exec(string(content))
	return err
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}
