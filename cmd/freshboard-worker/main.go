// Freshboard Worker — исполнитель заданий schema.refresh.
//
// Читает задания из очереди RabbitMQ, запрашивает схемы источников
// у сервиса интроспекции и фиксирует исход каждой задачи
// (success / timeout / error) в логах и метриках. Экземпляров
// может быть несколько, очередь у них общая.
//
// Служебный HTTP-порт (WORKER_PORT, по умолчанию 8082) отдаёт
// /healthz и /metrics; /healthz отвечает 503, пока соединение
// с брокером разорвано.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkravets/Freshboard/internal/mq"
	"github.com/mkravets/Freshboard/internal/repo"
	"github.com/mkravets/Freshboard/internal/telemetry"
	"github.com/mkravets/Freshboard/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting freshboard-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Очередь — единственный источник заданий, без неё worker бесполезен
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), "freshboard-worker", logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	w := worker.New(worker.Config{
		DataSources: repo.NewDataSourceRepo(pool),
		Conn:        mqConn,
		Logger:      logger,
	})
	w.Start(ctx)

	go serveOps(cancel, mqConn, logger)

	<-ctx.Done()

	w.Stop()
	logger.Info("freshboard-worker stopped")
}

// serveOps поднимает служебный HTTP: /healthz и /metrics.
func serveOps(cancel context.CancelFunc, mqConn *mq.Connection, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "amqp disconnected", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		addr = ":" + v
	}

	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("http server error", "error", err)
		cancel()
	}
}
