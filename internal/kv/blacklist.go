package kv

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// blacklistKey — ключ set-хранилища blacklist обновления схем.
const blacklistKey = "freshboard:schema:blacklist"

// SchemaBlacklist — множество id источников, исключённых из обновления схем.
//
// Членство читается свежим на каждом проходе и никогда не кешируется:
// оператор может добавить источник в blacklist между проходами,
// и следующий проход обязан это увидеть.
type SchemaBlacklist struct {
	client *redis.Client
}

// NewSchemaBlacklist создаёт новый SchemaBlacklist.
func NewSchemaBlacklist(client *redis.Client) *SchemaBlacklist {
	return &SchemaBlacklist{client: client}
}

// Members возвращает текущее множество id источников в blacklist.
// Элементы, не являющиеся целыми числами, игнорируются.
func (b *SchemaBlacklist) Members(ctx context.Context) (map[int64]struct{}, error) {
	raw, err := b.client.SMembers(ctx, blacklistKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read schema blacklist: %w", err)
	}

	members := make(map[int64]struct{}, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		members[id] = struct{}{}
	}
	return members, nil
}

// Add добавляет источник в blacklist.
func (b *SchemaBlacklist) Add(ctx context.Context, dataSourceID int64) error {
	if err := b.client.SAdd(ctx, blacklistKey, dataSourceID).Err(); err != nil {
		return fmt.Errorf("add to schema blacklist: %w", err)
	}
	return nil
}

// Remove убирает источник из blacklist.
func (b *SchemaBlacklist) Remove(ctx context.Context, dataSourceID int64) error {
	if err := b.client.SRem(ctx, blacklistKey, dataSourceID).Err(); err != nil {
		return fmt.Errorf("remove from schema blacklist: %w", err)
	}
	return nil
}
