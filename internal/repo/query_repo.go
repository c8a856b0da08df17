package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/Freshboard/internal/domain"
)

// QueryRepo — репозиторий для работы с queries.
type QueryRepo struct {
	pool *pgxpool.Pool
}

// NewQueryRepo создаёт новый QueryRepo.
func NewQueryRepo(pool *pgxpool.Pool) *QueryRepo {
	return &QueryRepo{pool: pool}
}

// ListOutdated возвращает snapshot запланированных queries, чьё время
// следующего обновления уже прошло к моменту now.
//
// Выборка — point-in-time список, не курсор: сначала читаются все queries
// с расписанием, затем к каждой применяется предикат ShouldRefresh
// (интервал или cron от времени последнего результата, backoff после
// неудач, истечение until).
func (r *QueryRepo) ListOutdated(ctx context.Context, now time.Time) ([]domain.Query, error) {
	query := `
		SELECT q.id, q.name, q.query_text, q.parameters, q.org_id, o.name, o.disabled,
		       q.data_source_id, ds.name, ds.org_id, ds.paused, ds.pause_reason,
		       q.user_id, q.schedule, q.schedule_failures, q.latest_query_result_id,
		       qr.retrieved_at
		FROM queries q
		JOIN organizations o ON o.id = q.org_id
		LEFT JOIN data_sources ds ON ds.id = q.data_source_id
		LEFT JOIN query_results qr ON qr.id = q.latest_query_result_id
		WHERE q.schedule IS NOT NULL
		ORDER BY q.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scheduled queries: %w", err)
	}
	defer rows.Close()

	var outdated []domain.Query
	for rows.Next() {
		q, err := r.scanQueryFromRows(rows)
		if err != nil {
			return nil, err
		}
		if q.Schedule == nil {
			continue
		}
		if q.Schedule.ShouldRefresh(q.RetrievedAt, q.ScheduleFailures, now) {
			outdated = append(outdated, *q)
		}
	}
	return outdated, rows.Err()
}

// ListPastScheduled возвращает queries, у которых расписание истекло
// (schedule.until в прошлом). Используется maintenance-проходом
// очистки расписаний.
func (r *QueryRepo) ListPastScheduled(ctx context.Context, now time.Time) ([]domain.Query, error) {
	query := `
		SELECT q.id, q.name, q.query_text, q.parameters, q.org_id, o.name, o.disabled,
		       q.data_source_id, ds.name, ds.org_id, ds.paused, ds.pause_reason,
		       q.user_id, q.schedule, q.schedule_failures, q.latest_query_result_id,
		       qr.retrieved_at
		FROM queries q
		JOIN organizations o ON o.id = q.org_id
		LEFT JOIN data_sources ds ON ds.id = q.data_source_id
		LEFT JOIN query_results qr ON qr.id = q.latest_query_result_id
		WHERE q.schedule IS NOT NULL
		  AND q.schedule->>'until' IS NOT NULL
		  AND (q.schedule->>'until')::timestamptz <= $1
		ORDER BY q.id
	`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list past scheduled queries: %w", err)
	}
	defer rows.Close()

	var queries []domain.Query
	for rows.Next() {
		q, err := r.scanQueryFromRows(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	return queries, rows.Err()
}

// GetByID возвращает query по ID.
// Используется резолвером параметров для dropdown-запросов.
func (r *QueryRepo) GetByID(ctx context.Context, id int64) (*domain.Query, error) {
	query := `
		SELECT q.id, q.name, q.query_text, q.parameters, q.org_id, o.name, o.disabled,
		       q.data_source_id, ds.name, ds.org_id, ds.paused, ds.pause_reason,
		       q.user_id, q.schedule, q.schedule_failures, q.latest_query_result_id,
		       qr.retrieved_at
		FROM queries q
		JOIN organizations o ON o.id = q.org_id
		LEFT JOIN data_sources ds ON ds.id = q.data_source_id
		LEFT JOIN query_results qr ON qr.id = q.latest_query_result_id
		WHERE q.id = $1
	`
	return r.scanQuery(r.pool.QueryRow(ctx, query, id))
}

// ClearSchedules массово очищает расписания по набору id внутри одной
// транзакции. Вторая фаза очистки истёкших расписаний: snapshot id
// делается отдельно через ListPastScheduled.
func (r *QueryRepo) ClearSchedules(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE queries SET schedule = NULL WHERE id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}
	return nil
}

// ResultValues возвращает допустимые значения dropdown-запроса из его
// сохранённого результата: колонка "value", если она есть, иначе первая
// колонка. Все значения приводятся к строкам.
func (r *QueryRepo) ResultValues(ctx context.Context, resultID int64) ([]string, error) {
	var dataJSON []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM query_results WHERE id = $1`, resultID).Scan(&dataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get query result: %w", err)
	}

	var data struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return nil, fmt.Errorf("unmarshal result data: %w", err)
	}

	column := "value"
	hasValueColumn := false
	for _, c := range data.Columns {
		if c.Name == column {
			hasValueColumn = true
			break
		}
	}
	if !hasValueColumn && len(data.Columns) > 0 {
		column = data.Columns[0].Name
	}

	values := make([]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		values = append(values, valueToString(row[column]))
	}
	return values, nil
}

// --- Helpers ---

func (r *QueryRepo) scanQuery(row pgx.Row) (*domain.Query, error) {
	var q domain.Query
	var org domain.Organization
	var paramsJSON, scheduleJSON []byte
	var dsName, dsPauseReason *string
	var dsOrgID *int64
	var dsPaused *bool

	err := row.Scan(
		&q.ID,
		&q.Name,
		&q.QueryText,
		&paramsJSON,
		&q.OrgID,
		&org.Name,
		&org.Disabled,
		&q.DataSourceID,
		&dsName,
		&dsOrgID,
		&dsPaused,
		&dsPauseReason,
		&q.UserID,
		&scheduleJSON,
		&q.ScheduleFailures,
		&q.LatestQueryResultID,
		&q.RetrievedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan query: %w", err)
	}

	return r.assembleQuery(&q, &org, paramsJSON, scheduleJSON, dsName, dsOrgID, dsPaused, dsPauseReason)
}

func (r *QueryRepo) scanQueryFromRows(rows pgx.Rows) (*domain.Query, error) {
	var q domain.Query
	var org domain.Organization
	var paramsJSON, scheduleJSON []byte
	var dsName, dsPauseReason *string
	var dsOrgID *int64
	var dsPaused *bool

	err := rows.Scan(
		&q.ID,
		&q.Name,
		&q.QueryText,
		&paramsJSON,
		&q.OrgID,
		&org.Name,
		&org.Disabled,
		&q.DataSourceID,
		&dsName,
		&dsOrgID,
		&dsPaused,
		&dsPauseReason,
		&q.UserID,
		&scheduleJSON,
		&q.ScheduleFailures,
		&q.LatestQueryResultID,
		&q.RetrievedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan query: %w", err)
	}

	return r.assembleQuery(&q, &org, paramsJSON, scheduleJSON, dsName, dsOrgID, dsPaused, dsPauseReason)
}

// assembleQuery собирает Query из отсканированных колонок:
// раскладывает JSONB поля и nullable колонки data source.
func (r *QueryRepo) assembleQuery(
	q *domain.Query,
	org *domain.Organization,
	paramsJSON, scheduleJSON []byte,
	dsName *string,
	dsOrgID *int64,
	dsPaused *bool,
	dsPauseReason *string,
) (*domain.Query, error) {
	org.ID = q.OrgID
	q.Org = org

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &q.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if scheduleJSON != nil {
		if err := json.Unmarshal(scheduleJSON, &q.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
	}

	if q.DataSourceID != nil {
		ds := domain.DataSource{ID: *q.DataSourceID}
		if dsName != nil {
			ds.Name = *dsName
		}
		if dsOrgID != nil {
			ds.OrgID = *dsOrgID
		}
		if dsPaused != nil {
			ds.Paused = *dsPaused
		}
		if dsPauseReason != nil {
			ds.PauseReason = *dsPauseReason
		}
		q.DataSource = &ds
	}

	return q, nil
}

// valueToString приводит значение из JSONB результата к строке
// для сравнения со значением параметра.
func valueToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
