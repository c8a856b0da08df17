package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryResultRepo — репозиторий для работы с сохранёнными результатами queries.
type QueryResultRepo struct {
	pool *pgxpool.Pool
}

// NewQueryResultRepo создаёт новый QueryResultRepo.
func NewQueryResultRepo(pool *pgxpool.Pool) *QueryResultRepo {
	return &QueryResultRepo{pool: pool}
}

// CountUnused возвращает количество неиспользуемых результатов старше maxAge.
// Неиспользуемый результат — тот, на который не ссылается ни одна query.
func (r *QueryResultRepo) CountUnused(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM query_results qr
		LEFT JOIN queries q ON q.latest_query_result_id = qr.id
		WHERE q.id IS NULL
		  AND qr.retrieved_at < $1
	`
	var count int64
	err := r.pool.QueryRow(ctx, query, time.Now().Add(-maxAge)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unused query results: %w", err)
	}
	return count, nil
}

// DeleteUnused удаляет неиспользуемые результаты старше maxAge,
// не больше limit за один вызов. Возвращает количество удалённых строк.
func (r *QueryResultRepo) DeleteUnused(ctx context.Context, maxAge time.Duration, limit int) (int64, error) {
	query := `
		DELETE FROM query_results
		WHERE id IN (
			SELECT qr.id
			FROM query_results qr
			LEFT JOIN queries q ON q.latest_query_result_id = qr.id
			WHERE q.id IS NULL
			  AND qr.retrieved_at < $1
			ORDER BY qr.retrieved_at ASC
			LIMIT $2
		)
	`
	result, err := r.pool.Exec(ctx, query, time.Now().Add(-maxAge), limit)
	if err != nil {
		return 0, fmt.Errorf("delete unused query results: %w", err)
	}
	return result.RowsAffected(), nil
}
