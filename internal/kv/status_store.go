package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// statusKey — фиксированный ключ hash-записи статуса планировщика.
const statusKey = "freshboard:status"

// StatusStore — общее hash-хранилище сводки последнего прохода обновления.
//
// Семантика last-write-wins: запись перезаписывается целиком, без
// транзакций и compare-and-swap. Гонка чтение-затем-запись между
// перекрывающимися проходами принята осознанно.
type StatusStore struct {
	client *redis.Client
}

// NewStatusStore создаёт новый StatusStore.
func NewStatusStore(client *redis.Client) *StatusStore {
	return &StatusStore{client: client}
}

// ReadAll возвращает все поля записи статуса.
// Отсутствие записи — не ошибка: возвращается пустая map.
func (s *StatusStore) ReadAll(ctx context.Context) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, statusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	return fields, nil
}

// BulkSet перезаписывает поля записи статуса одной командой.
func (s *StatusStore) BulkSet(ctx context.Context, fields map[string]any) error {
	if err := s.client.HSet(ctx, statusKey, fields).Err(); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}
