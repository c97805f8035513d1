// flowrequests-api — HTTP API: workflows, синхронное выполнение,
// очередь runs, плагины, каталог узлов и schedules.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowrequests/internal/api"
	"github.com/shaiso/flowrequests/internal/mq"
	"github.com/shaiso/flowrequests/internal/plugins"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/runner"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting flowrequests-api")

	shutdownTracing, err := telemetry.SetupTracing("flowrequests-api")
	if err != nil {
		logger.Error("failed to setup tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if err := repo.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	cfg := api.Config{
		Workflows: repo.NewWorkflowRepo(pool),
		Runs:      repo.NewRunRepo(pool),
		Plugins:   repo.NewPluginRepo(pool),
		Schedules: repo.NewScheduleRepo(pool),
		Factory: runner.NewEngineFactory(runner.FactoryConfig{
			Linker:   plugins.Linker(plugins.Options{Logger: logger}),
			Seed:     seedFromEnv(),
			Observer: metrics,
			Logger:   logger,
		}),
		Metrics: metrics,
		Logger:  logger,
	}

	// RabbitMQ опционален: без него runs подхватывает поллинг runner
	mqConn, err := mq.NewConnection(mq.ConnectionConfig{Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, runs will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// seedFromEnv читает FAKEDATA_SEED (0 — seed по умолчанию).
func seedFromEnv() uint64 {
	seed, _ := strconv.ParseUint(os.Getenv("FAKEDATA_SEED"), 10, 64)
	return seed
}
