package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Имена полей hash-записи статуса в общем хранилище.
const (
	statusFieldCount       = "outdated_queries_count"
	statusFieldQueryIDs    = "query_ids"
	statusFieldRefreshedAt = "last_refresh_at"
)

// StatusRecord — сводка последнего завершённого прохода обновления queries.
//
// Существует ровно один логический экземпляр под фиксированным ключом
// в общем хранилище. Каждый проход перезаписывает его целиком:
// без append, без версионирования, последняя запись побеждает.
type StatusRecord struct {
	// DispatchedCount — сколько queries отправлено на выполнение.
	DispatchedCount int `json:"outdated_queries_count"`

	// DispatchedQueryIDs — идентификаторы отправленных queries
	// в порядке отправки.
	DispatchedQueryIDs []int64 `json:"query_ids"`

	// CompletedAt — время завершения прохода.
	CompletedAt time.Time `json:"last_refresh_at"`
}

// Fields сериализует запись в поля hash для массовой перезаписи.
// Время хранится как unix-секунды с дробной частью, список id — как JSON.
func (r StatusRecord) Fields() (map[string]any, error) {
	ids := r.DispatchedQueryIDs
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal query ids: %w", err)
	}

	return map[string]any{
		statusFieldCount:       strconv.Itoa(r.DispatchedCount),
		statusFieldQueryIDs:    string(raw),
		statusFieldRefreshedAt: formatUnixSeconds(r.CompletedAt),
	}, nil
}

// StatusRecordFromFields восстанавливает запись из полей hash.
// Пустая map (записи ещё не было) даёт нулевую запись:
// у неё CompletedAt.IsZero() == true.
func StatusRecordFromFields(fields map[string]string) (StatusRecord, error) {
	var rec StatusRecord

	if v, ok := fields[statusFieldCount]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return StatusRecord{}, fmt.Errorf("parse %s: %w", statusFieldCount, err)
		}
		rec.DispatchedCount = n
	}

	if v, ok := fields[statusFieldQueryIDs]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &rec.DispatchedQueryIDs); err != nil {
			return StatusRecord{}, fmt.Errorf("parse %s: %w", statusFieldQueryIDs, err)
		}
	}

	if v, ok := fields[statusFieldRefreshedAt]; ok && v != "" {
		t, err := parseUnixSeconds(v)
		if err != nil {
			return StatusRecord{}, fmt.Errorf("parse %s: %w", statusFieldRefreshedAt, err)
		}
		rec.CompletedAt = t
	}

	return rec, nil
}

func formatUnixSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', -1, 64)
}

func parseUnixSeconds(s string) (time.Time, error) {
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(sec*float64(time.Second))).UTC(), nil
}
