package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/versioning"
)

const defaultCostStandardsTable = "cost_standards"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository is a Postgres implementation for cost standards.
type Repository struct {
	db    DBTX
	table string
}

// Option configures the repository.
type Option func(*Repository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *Repository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRepository constructs a repository.
func NewRepository(db DBTX, opts ...Option) *Repository {
	repo := &Repository{db: db, table: defaultCostStandardsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// List returns every standard of a tenant in display order.
func (r *Repository) List(ctx context.Context, tenantID string) ([]coststandard.CostStandard, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("cost standard repo: nil db")
	}
	if tenantID == "" {
		return nil, coststandard.ErrEmptyTenantID
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, employee_level, city_type, effective_from, daily_cost, currency, remark, created_at, updated_at
FROM %s
WHERE tenant_id = $1
ORDER BY employee_level ASC, city_type ASC, effective_from DESC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []coststandard.CostStandard
	for rows.Next() {
		item, err := scanCostStandard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get loads a standard by id. Returns nil when absent.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*coststandard.CostStandard, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("cost standard repo: nil db")
	}
	if id == "" {
		return nil, coststandard.ErrEmptyID
	}

	query := fmt.Sprintf(`
SELECT id, tenant_id, employee_level, city_type, effective_from, daily_cost, currency, remark, created_at, updated_at
FROM %s
WHERE tenant_id = $1 AND id = $2
LIMIT 1`, r.table)

	item, err := scanCostStandard(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Save upserts a standard.
func (r *Repository) Save(ctx context.Context, item *coststandard.CostStandard) error {
	if r == nil || r.db == nil {
		return errors.New("cost standard repo: nil db")
	}
	if item == nil {
		return errors.New("cost standard repo: nil item")
	}
	if err := item.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	tenant_id,
	employee_level,
	city_type,
	effective_from,
	daily_cost,
	currency,
	remark
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (id)
DO UPDATE SET
	employee_level = EXCLUDED.employee_level,
	city_type = EXCLUDED.city_type,
	effective_from = EXCLUDED.effective_from,
	daily_cost = EXCLUDED.daily_cost,
	currency = EXCLUDED.currency,
	remark = EXCLUDED.remark,
	updated_at = NOW()
WHERE %s.tenant_id = EXCLUDED.tenant_id
RETURNING created_at, updated_at`, r.table, r.table)

	var createdAt, updatedAt time.Time
	err := r.db.QueryRowContext(
		ctx,
		query,
		item.ID,
		item.TenantID,
		item.Key.EmployeeLevel,
		string(item.Key.CityType),
		item.EffectiveFrom,
		item.DailyCost,
		item.Currency,
		item.Remark,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return coststandard.ErrNotFound
		}
		return err
	}
	item.CreatedAt = createdAt.UTC()
	item.UpdatedAt = updatedAt.UTC()
	return nil
}

// Delete removes a standard.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	if r == nil || r.db == nil {
		return errors.New("cost standard repo: nil db")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND id = $2`, r.table)
	res, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return coststandard.ErrNotFound
	}
	return nil
}

// Count returns the number of stored standards across tenants.
func (r *Repository) Count(ctx context.Context) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("cost standard repo: nil db")
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCostStandard(row rowScanner) (coststandard.CostStandard, error) {
	var (
		item      coststandard.CostStandard
		cityType  string
		effective versioning.Date
		dailyCost decimal.Decimal
		remark    sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.TenantID,
		&item.Key.EmployeeLevel,
		&cityType,
		&effective,
		&dailyCost,
		&item.Currency,
		&remark,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return coststandard.CostStandard{}, err
	}
	item.Key.CityType = coststandard.CityType(cityType)
	item.EffectiveFrom = effective
	item.DailyCost = dailyCost
	item.Remark = remark.String
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}
