// flowrequests-runner — выполняет runs, поставленные в очередь.
//
// Runner:
//   - Получает run.requested из RabbitMQ
//   - Подхватывает PENDING runs поллингом (если MQ недоступен или сообщение потеряно)
//   - Выполняет workflow движком и сохраняет записи шагов
//   - Публикует run.completed
//
// Runners масштабируются горизонтально: run захватывается атомарно.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowrequests/internal/mq"
	"github.com/shaiso/flowrequests/internal/plugins"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/runner"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting flowrequests-runner")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing("flowrequests-runner")
	if err != nil {
		logger.Error("failed to setup tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	seed, _ := strconv.ParseUint(os.Getenv("FAKEDATA_SEED"), 10, 64)

	cfg := runner.Config{
		Runs:      repo.NewRunRepo(pool),
		Workflows: repo.NewWorkflowRepo(pool),
		Plugins:   repo.NewPluginRepo(pool),
		Factory: runner.NewEngineFactory(runner.FactoryConfig{
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
			Linker:     plugins.Linker(plugins.Options{Logger: logger}),
			Seed:       seed,
			Observer:   metrics,
			Logger:     logger,
		}),
		Observer: metrics,
		Logger:   logger,
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.ConnectionConfig{Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	r := runner.New(cfg)
	if err := r.Start(ctx); err != nil {
		logger.Error("failed to start runner", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("RUNNER_PORT"); v != "" {
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

	r.Stop()
	logger.Info("flowrequests-runner stopped")
}
