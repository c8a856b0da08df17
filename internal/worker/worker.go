package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mkravets/Freshboard/internal/mq"
	"github.com/mkravets/Freshboard/internal/repo"
)

const (
	// defaultTimeout — бюджет одной задачи обновления схемы,
	// если SCHEMA_REFRESH_TIMEOUT не задан.
	defaultTimeout = 60 * time.Second

	// defaultPrefetch — сколько заданий worker держит в обработке
	// одновременно.
	defaultPrefetch = 5
)

// Worker выполняет задания schema.refresh.
//
// Worker stateless: читает задания из очереди, дёргает сервис
// интроспекции и фиксирует исход каждой задачи в логах и метриках.
// Результат никуда не отправляется, повторов задача не инициирует.
// Несколько экземпляров могут потреблять из одной очереди.
type Worker struct {
	dataSources  *repo.DataSourceRepo
	introspector Introspector
	conn         *mq.Connection

	// timeout — бюджет одной задачи
	timeout time.Duration

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	DataSources *repo.DataSourceRepo

	// Introspector; если nil — HTTPIntrospector из INTROSPECTION_URL.
	Introspector Introspector

	Conn *mq.Connection

	// Timeout — бюджет одной задачи; если не задан, берётся
	// SCHEMA_REFRESH_TIMEOUT (секунды), иначе defaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// New создаёт Worker. Пустые поля Config получают значения
// по умолчанию.
func New(cfg Config) *Worker {
	w := &Worker{
		dataSources:  cfg.DataSources,
		introspector: cfg.Introspector,
		conn:         cfg.Conn,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}

	if w.introspector == nil {
		w.introspector = NewHTTPIntrospector()
	}
	if w.timeout <= 0 {
		w.timeout = timeoutFromEnv()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w
}

// timeoutFromEnv читает бюджет задачи из SCHEMA_REFRESH_TIMEOUT (секунды).
func timeoutFromEnv() time.Duration {
	v := os.Getenv("SCHEMA_REFRESH_TIMEOUT")
	if v == "" {
		return defaultTimeout
	}

	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return defaultTimeout
	}
	return time.Duration(sec) * time.Second
}

// Start подписывает Worker на очередь schemas.refresh и возвращается.
// Обработка заданий идёт в фоне до отмены ctx или вызова Stop.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    mq.QueueSchemasRefresh,
		Handler:  w.handleRefreshSchema,
		Prefetch: defaultPrefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("schema consumer stopped", "error", err)
		}
	}()

	w.logger.Info("worker started", "timeout", w.timeout, "prefetch", defaultPrefetch)
}

// Stop останавливает Worker и дожидается завершения обработки.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
