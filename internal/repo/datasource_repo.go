package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/Freshboard/internal/domain"
)

// DataSourceRepo — репозиторий для работы с источниками данных.
type DataSourceRepo struct {
	pool *pgxpool.Pool
}

// NewDataSourceRepo создаёт новый DataSourceRepo.
func NewDataSourceRepo(pool *pgxpool.Pool) *DataSourceRepo {
	return &DataSourceRepo{pool: pool}
}

// ListAll возвращает все источники данных с организациями.
// Проход обновления схем перечисляет источники полным сканом каждый раз,
// инкрементального планирования нет.
func (r *DataSourceRepo) ListAll(ctx context.Context) ([]domain.DataSource, error) {
	query := `
		SELECT ds.id, ds.name, ds.org_id, ds.paused, ds.pause_reason,
		       o.name, o.disabled
		FROM data_sources ds
		JOIN organizations o ON o.id = ds.org_id
		ORDER BY ds.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.DataSource
	for rows.Next() {
		ds, err := r.scanDataSourceFromRows(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *ds)
	}
	return sources, rows.Err()
}

// GetByID возвращает источник данных по ID.
func (r *DataSourceRepo) GetByID(ctx context.Context, id int64) (*domain.DataSource, error) {
	query := `
		SELECT ds.id, ds.name, ds.org_id, ds.paused, ds.pause_reason,
		       o.name, o.disabled
		FROM data_sources ds
		JOIN organizations o ON o.id = ds.org_id
		WHERE ds.id = $1
	`
	return r.scanDataSource(r.pool.QueryRow(ctx, query, id))
}

// --- Helpers ---

func (r *DataSourceRepo) scanDataSource(row pgx.Row) (*domain.DataSource, error) {
	var ds domain.DataSource
	var org domain.Organization
	var pauseReason *string

	err := row.Scan(&ds.ID, &ds.Name, &ds.OrgID, &ds.Paused, &pauseReason, &org.Name, &org.Disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan data source: %w", err)
	}

	org.ID = ds.OrgID
	ds.Org = &org
	if pauseReason != nil {
		ds.PauseReason = *pauseReason
	}
	return &ds, nil
}

func (r *DataSourceRepo) scanDataSourceFromRows(rows pgx.Rows) (*domain.DataSource, error) {
	var ds domain.DataSource
	var org domain.Organization
	var pauseReason *string

	err := rows.Scan(&ds.ID, &ds.Name, &ds.OrgID, &ds.Paused, &pauseReason, &org.Name, &org.Disabled)
	if err != nil {
		return nil, fmt.Errorf("scan data source: %w", err)
	}

	org.ID = ds.OrgID
	ds.Org = &org
	if pauseReason != nil {
		ds.PauseReason = *pauseReason
	}
	return &ds, nil
}
