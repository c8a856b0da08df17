package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mkravets/Freshboard/internal/kv"
	"github.com/mkravets/Freshboard/internal/mq"
	"github.com/mkravets/Freshboard/internal/params"
	"github.com/mkravets/Freshboard/internal/refresh"
	"github.com/mkravets/Freshboard/internal/repo"
)

// Deps — соединения и хранилища, нужные командам CLI.
//
// CLI работает с теми же Postgres, Redis и RabbitMQ, что и сервисы.
// Соединения открываются лениво, при первом обращении: --help и
// парсинг флагов не должны требовать живой инфраструктуры.
type Deps struct {
	ctx    context.Context
	logger *slog.Logger

	pool        *pgxpool.Pool
	redisClient *redis.Client
	conn        *mq.Connection
}

// NewDeps создаёт Deps без открытия соединений.
func NewDeps(ctx context.Context, logger *slog.Logger) *Deps {
	return &Deps{ctx: ctx, logger: logger}
}

// Close закрывает открытые соединения.
func (d *Deps) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// Pool возвращает пул соединений Postgres, открывая его при первом вызове.
func (d *Deps) Pool() (*pgxpool.Pool, error) {
	if d.pool == nil {
		pool, err := repo.NewPool(d.ctx)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.pool = pool
	}
	return d.pool, nil
}

// Redis возвращает клиент Redis, открывая его при первом вызове.
func (d *Deps) Redis() (*redis.Client, error) {
	if d.redisClient == nil {
		client, err := kv.NewClient(d.ctx)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		d.redisClient = client
	}
	return d.redisClient, nil
}

// MQ возвращает соединение с RabbitMQ, открывая его при первом вызове.
func (d *Deps) MQ() (*mq.Connection, error) {
	if d.conn == nil {
		conn, err := mq.NewConnection(mq.URLFromEnv(), "freshboard-cli", d.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		if err := mq.SetupTopology(d.ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setup topology: %w", err)
		}
		d.conn = conn
	}
	return d.conn, nil
}

// Queries возвращает репозиторий запросов.
func (d *Deps) Queries() (*repo.QueryRepo, error) {
	pool, err := d.Pool()
	if err != nil {
		return nil, err
	}
	return repo.NewQueryRepo(pool), nil
}

// Results возвращает репозиторий результатов запросов.
func (d *Deps) Results() (*repo.QueryResultRepo, error) {
	pool, err := d.Pool()
	if err != nil {
		return nil, err
	}
	return repo.NewQueryResultRepo(pool), nil
}

// Status возвращает хранилище сводки проходов.
func (d *Deps) Status() (*kv.StatusStore, error) {
	client, err := d.Redis()
	if err != nil {
		return nil, err
	}
	return kv.NewStatusStore(client), nil
}

// Blacklist возвращает чёрный список обновления схем.
func (d *Deps) Blacklist() (*kv.SchemaBlacklist, error) {
	client, err := d.Redis()
	if err != nil {
		return nil, err
	}
	return kv.NewSchemaBlacklist(client), nil
}

// Pass собирает проходы обслуживания поверх живых соединений.
// Ручной запуск из CLI использует те же компоненты, что и планировщик.
func (d *Deps) Pass(refreshDisabled bool) (*refresh.Pass, error) {
	pool, err := d.Pool()
	if err != nil {
		return nil, err
	}
	redisClient, err := d.Redis()
	if err != nil {
		return nil, err
	}
	conn, err := d.MQ()
	if err != nil {
		return nil, err
	}

	queryRepo := repo.NewQueryRepo(pool)

	return refresh.New(refresh.Config{
		Queries:     queryRepo,
		DataSources: repo.NewDataSourceRepo(pool),
		Results:     repo.NewQueryResultRepo(pool),
		Dispatcher:  mq.NewPublisher(conn, d.logger),
		Status:      kv.NewStatusStore(redisClient),
		Blacklist:   kv.NewSchemaBlacklist(redisClient),
		Failures:    kv.NewFailureLog(redisClient, d.logger),
		Resolver:    params.NewResolver(queryRepo),
		Filter:      refresh.NewFilter(refreshDisabled, d.logger),
		Logger:      d.logger,
	}), nil
}
