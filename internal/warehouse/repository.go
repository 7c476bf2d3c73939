// Package warehouse implements the analytics collaborator consumed by the
// reporting service, backed by the Postgres fact star schema.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

const pgUndefinedTable = "42P01"

// ErrSchemaMissing indicates the fact tables have not been provisioned.
var ErrSchemaMissing = errors.New("warehouse: fact schema missing")

// Repository provides read access to transaction facts and the entity
// dimension. All queries are read-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository over the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const factsSelect = `
SELECT account_label, customer_id, region_id, subsidiary_id, scenario, amount
FROM pnl_facts
WHERE period_month >= $1 AND period_month <= $2`

// FetchFacts returns raw facts for the period. With ytd=false the window is
// the single period month; with ytd=true it spans from the start of that year
// through the period month. Exactly one filter field is honoured, in the
// order customer ids, region, subsidiary.
func (r *Repository) FetchFacts(ctx context.Context, filter pnl.FactFilter, period time.Time, ytd bool) ([]pnl.TransactionFact, error) {
	monthStart := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := monthStart
	if ytd {
		from = time.Date(period.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	query := factsSelect
	args := []any{from, monthStart}
	switch {
	case len(filter.CustomerIDs) > 0:
		query += " AND customer_id = ANY($3)"
		args = append(args, filter.CustomerIDs)
	case filter.RegionID != "":
		query += " AND region_id = $3"
		args = append(args, filter.RegionID)
	case filter.SubsidiaryID != "":
		query += " AND subsidiary_id = $3"
		args = append(args, filter.SubsidiaryID)
	default:
		return nil, fmt.Errorf("warehouse: fact filter is empty")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapQueryErr("fetch facts", err)
	}
	defer rows.Close()

	var facts []pnl.TransactionFact
	for rows.Next() {
		var f pnl.TransactionFact
		if err := rows.Scan(&f.AccountLabel, &f.CustomerID, &f.RegionID, &f.SubsidiaryID, &f.Scenario, &f.Value); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

const entitiesSelect = `
SELECT id, label, district_id, COALESCE(census_code, ''), start_date
FROM org_entities`

// FetchEntitiesInRegion lists the facilities the warehouse attributes to the
// region.
func (r *Repository) FetchEntitiesInRegion(ctx context.Context, regionID string) ([]pnl.Entity, error) {
	return r.fetchEntities(ctx, entitiesSelect+" WHERE region_id = $1 ORDER BY label", regionID)
}

// FetchEntitiesInSubsidiary lists the facilities under the subsidiary.
func (r *Repository) FetchEntitiesInSubsidiary(ctx context.Context, subsidiaryID string) ([]pnl.Entity, error) {
	return r.fetchEntities(ctx, entitiesSelect+" WHERE subsidiary_id = $1 ORDER BY label", subsidiaryID)
}

func (r *Repository) fetchEntities(ctx context.Context, query string, arg any) ([]pnl.Entity, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapQueryErr("fetch entities", err)
	}
	defer rows.Close()

	var entities []pnl.Entity
	for rows.Next() {
		var e pnl.Entity
		if err := rows.Scan(&e.ID, &e.Label, &e.ParentDistrictID, &e.CensusCode, &e.StartDate); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entities, nil
}

func wrapQueryErr(op string, err error) error {
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("warehouse: %s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("warehouse: %s: %w", op, err)
}
