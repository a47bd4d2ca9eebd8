package database

import (
	"context"
	"fmt"

	"github.com/irfndi/foresight-go/internal/catalog"
)

// CatalogRepository reads the selector vocabularies from Postgres.
//
// Expected schema:
//
//	data_sources(label text unique, external_id text unique, periods text[], position int, enabled bool)
//	periods(label text unique, external_id text unique, unit text unique, position int)
type CatalogRepository struct {
	pool DatabasePool
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(pool DatabasePool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListSources returns the data sources in display order.
func (r *CatalogRepository) ListSources(ctx context.Context) ([]catalog.SourceDef, error) {
	query := `
		SELECT label, external_id, COALESCE(periods, '{}')
		FROM data_sources
		WHERE enabled = true
		ORDER BY position, label
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query data sources: %w", err)
	}
	defer rows.Close()

	var sources []catalog.SourceDef
	for rows.Next() {
		var s catalog.SourceDef
		if err := rows.Scan(&s.Label, &s.ID, &s.Periods); err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate data sources: %w", err)
	}

	return sources, nil
}

// ListPeriods returns the granularities in display order.
func (r *CatalogRepository) ListPeriods(ctx context.Context) ([]catalog.PeriodDef, error) {
	query := `
		SELECT label, external_id, unit
		FROM periods
		ORDER BY position, label
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var periods []catalog.PeriodDef
	for rows.Next() {
		var p catalog.PeriodDef
		if err := rows.Scan(&p.Label, &p.ID, &p.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate periods: %w", err)
	}

	return periods, nil
}
