// Freshboard Scheduler — периодические проходы обновления.
//
// Scheduler:
//   - Раз в 30 секунд диспетчеризует просроченные запросы на выполнение
//   - Периодически рассылает задания обновления схем источников
//   - Чистит истёкшие расписания и неиспользуемые результаты
//
// Одновременно может работать несколько экземпляров: проходы выполняет
// только лидер, удерживающий advisory lock в PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/mkravets/Freshboard/internal/kv"
	"github.com/mkravets/Freshboard/internal/mq"
	"github.com/mkravets/Freshboard/internal/params"
	"github.com/mkravets/Freshboard/internal/refresh"
	"github.com/mkravets/Freshboard/internal/repo"
	"github.com/mkravets/Freshboard/internal/telemetry"
)

const schedLockKey int64 = 815915

var (
	startTime = time.Now()
	jobRuns   = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshboard_scheduler_job_runs_total",
		Help: "Periodic job executions by the leading scheduler",
	}, []string{"job"})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting freshboard-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Redis: статус прохода, чёрный список, журнал пропусков
	redisClient, err := kv.NewClient(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("redis connected")

	// RabbitMQ: без брокера диспетчеризация невозможна
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), "freshboard-scheduler", logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	// Собираем проход
	queryRepo := repo.NewQueryRepo(pool)
	pass := refresh.New(refresh.Config{
		Queries:       queryRepo,
		DataSources:   repo.NewDataSourceRepo(pool),
		Results:       repo.NewQueryResultRepo(pool),
		Dispatcher:    mq.NewPublisher(mqConn, logger),
		Status:        kv.NewStatusStore(redisClient),
		Blacklist:     kv.NewSchemaBlacklist(redisClient),
		Failures:      kv.NewFailureLog(redisClient, logger),
		Resolver:      params.NewResolver(queryRepo),
		Filter:        refresh.NewFilter(boolEnv("FEATURE_DISABLE_REFRESH_QUERIES"), logger),
		Logger:        logger,
		CleanupMaxAge: time.Duration(intEnv("CLEANUP_MAX_AGE_DAYS", 7)) * 24 * time.Hour,
		CleanupLimit:  intEnv("CLEANUP_LIMIT", 100),
	})

	lock := &leaderLock{pool: pool, key: schedLockKey, logger: logger}
	defer lock.release()

	// Обёртка: проход выполняет только лидер, ошибки не валят процесс
	run := func(name string, job func(context.Context) error) func() {
		return func() {
			if !lock.acquired(ctx) {
				return
			}
			jobRuns.WithLabelValues(name).Inc()
			if err := job(ctx); err != nil {
				logger.Error("periodic job failed", "job", name, "error", err)
			}
		}
	}

	c := cron.New()
	c.AddFunc("@every 30s", run("refresh_queries", pass.RefreshQueries))
	c.AddFunc(fmt.Sprintf("@every %dm", intEnv("SCHEMAS_REFRESH_INTERVAL_MIN", 30)), run("refresh_schemas", pass.RefreshSchemas))
	c.AddFunc("@every 1h", run("empty_schedules", pass.EmptySchedules))
	c.AddFunc("@every 5m", run("cleanup_query_results", pass.CleanupQueryResults))
	c.Start()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Дожидаемся завершения текущего прохода
	<-c.Stop().Done()
	logger.Info("freshboard-scheduler stopped")
}

// leaderLock — лидерство через pg_try_advisory_lock: блокировку
// удерживает одна сессия, остальные экземпляры пропускают тики.
type leaderLock struct {
	pool   *pgxpool.Pool
	key    int64
	logger *slog.Logger

	mu   sync.Mutex
	held bool
}

// acquired пытается стать лидером (или подтвердить лидерство).
func (l *leaderLock) acquired(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return true
	}

	var ok bool
	if err := l.pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		l.logger.Error("leader lock attempt failed", "error", err)
		return false
	}
	if ok {
		l.logger.Info("became the leading scheduler")
	}
	l.held = ok
	return ok
}

func (l *leaderLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		_, _ = l.pool.Exec(context.Background(), "select pg_advisory_unlock($1)", l.key)
		l.held = false
	}
}

func boolEnv(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	if err != nil {
		return false
	}
	return v
}

func intEnv(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
