// flowrequests-scheduler — создаёт runs по cron/interval расписаниям.
//
// Тики выполняет только лидер (pg advisory lock), поэтому реплик
// может быть несколько.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/flowrequests/internal/mq"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/scheduler"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting flowrequests-scheduler")

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

	lock := repo.NewAdvisoryLock(pool, repo.SchedulerLockKey)
	defer lock.Release(context.Background())

	cfg := scheduler.Config{
		Schedules: repo.NewScheduleRepo(pool),
		Runs:      repo.NewRunRepo(pool),
		Workflows: repo.NewWorkflowRepo(pool),
		Leader:    lock,
		Logger:    logger,
	}

	mqConn, err := mq.NewConnection(mq.ConnectionConfig{Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, runs will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	interval := time.Second
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_TICK_SEC")); err == nil && v > 0 {
		interval = time.Duration(v) * time.Second
	}

	sched := scheduler.New(cfg)
	go sched.Run(ctx, interval)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHEDULER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port, "tick", interval)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("flowrequests-scheduler stopped")
}
