package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/mq"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
)

// RunStore — хранилище runs.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ClaimPending(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	ListPending(ctx context.Context, limit int) ([]domain.Run, error)
}

// WorkflowStore — хранилище workflows.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// PluginStore — хранилище дескрипторов плагинов.
type PluginStore interface {
	List(ctx context.Context, onlyEnabled bool) ([]domain.PluginDescriptor, error)
}

// Publisher — публикация событий о завершении.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, run *domain.Run) error
}

// RunObserver получает завершённые runs (метрики).
type RunObserver interface {
	RunFinished(status domain.RunStatus)
}

// Runner выполняет runs.
//
// Runner — stateless компонент, который:
//   - Получает run.requested из очереди RabbitMQ (event-driven)
//   - Периодически забирает PENDING runs из БД (polling fallback)
//   - Выполняет workflow движком целиком, от первого узла до конца
//   - Сохраняет записи шагов и публикует run.completed
//
// Несколько runner'ов могут работать параллельно: run забирается
// атомарным переходом PENDING → RUNNING.
type Runner struct {
	runs      RunStore
	workflows WorkflowStore
	plugins   PluginStore
	factory   *EngineFactory

	publisher Publisher
	conn      *mq.Connection
	observer  RunObserver

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Runner.
type Config struct {
	Runs      RunStore
	Workflows WorkflowStore
	Plugins   PluginStore
	Factory   *EngineFactory

	// MQ (опционально; без Conn работает только polling).
	Publisher Publisher
	Conn      *mq.Connection

	// Observer — метрики завершённых runs (опционально).
	Observer RunObserver

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // runs за один poll (default: 50)

	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	factory := cfg.Factory
	if factory == nil {
		factory = NewEngineFactory(FactoryConfig{Logger: logger})
	}

	return &Runner{
		runs:         cfg.Runs,
		workflows:    cfg.Workflows,
		plugins:      cfg.Plugins,
		factory:      factory,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		observer:     cfg.Observer,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает consumer runs.requested и polling.
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	r.logger.Info("starting runner",
		"poll_interval", r.pollInterval,
		"batch_size", r.batchSize,
	)

	if r.conn != nil {
		consumer := mq.NewConsumer(r.conn, r.logger, mq.ConsumerConfig{
			Queue:    mq.QueueRunsRequested,
			Handler:  r.handleRunRequested,
			Prefetch: defaultPrefetch,
		})

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("run consumer error", "error", err)
			}
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pollLoop(ctx)
	}()

	r.logger.Info("runner started")
	return nil
}

// Stop останавливает Runner и ждёт текущие runs.
func (r *Runner) Stop() {
	r.logger.Info("stopping runner...")

	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()

	r.logger.Info("runner stopped")
}

// handleRunRequested обрабатывает run.requested.
func (r *Runner) handleRunRequested(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](msg)
	if err != nil {
		return err
	}

	if _, err := r.Execute(ctx, payload.RunID); err != nil {
		// run уже забран или удалён: сообщение обработано
		if errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrRunNotPending) {
			r.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

// pollLoop — цикл polling для fallback.
func (r *Runner) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем runs, созданные пока runner был выключен
	r.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (r *Runner) poll(ctx context.Context) {
	runs, err := r.runs.ListPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list pending runs", "error", err)
		return
	}

	for i := range runs {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.Execute(ctx, runs[i].ID); err != nil && !errors.Is(err, ErrRunNotPending) {
			r.logger.Error("failed to execute run from poll", "run_id", runs[i].ID, "error", err)
		}
	}
}

// Execute забирает PENDING run и выполняет его до конца.
//
// Ошибки узлов не делают run FAILED: они лежат в записях шагов.
// FAILED означает, что workflow не удалось загрузить.
func (r *Runner) Execute(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	if run.Status != domain.RunStatusPending {
		return run, ErrRunNotPending
	}

	if err := r.runs.ClaimPending(ctx, run); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return run, ErrRunNotPending
		}
		return nil, fmt.Errorf("claim run: %w", err)
	}

	logger := telemetry.WithWorkflowID(telemetry.WithRunID(r.logger, run.ID.String()), run.WorkflowID.String())
	logger.Info("run started")

	wf, err := r.workflows.GetByID(ctx, run.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrWorkflowNotFound, run.WorkflowID)
		}
		run.MarkFailed(err.Error())
		return run, r.finish(ctx, run, logger)
	}

	var descriptors []domain.PluginDescriptor
	if r.plugins != nil {
		descriptors, err = r.plugins.List(ctx, true)
		if err != nil {
			// без плагинов run всё равно выполняется: их узлы получат ошибку
			logger.Warn("failed to load plugins", "error", err)
		}
	}

	state := r.factory.Build(descriptors, logger).Process(ctx, wf, run.Request)
	run.MarkCompleted(state.StepsMap())

	return run, r.finish(ctx, run, logger)
}

// finish сохраняет результат и публикует run.completed.
func (r *Runner) finish(ctx context.Context, run *domain.Run, logger *slog.Logger) error {
	if err := r.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	if r.observer != nil {
		r.observer.RunFinished(run.Status)
	}

	logger.Info("run finished",
		"status", run.Status,
		"duration", run.Duration(),
		"error", run.Error,
	)

	if r.publisher == nil {
		return nil
	}
	if err := r.publisher.PublishRunCompleted(ctx, run); err != nil {
		logger.Warn("failed to publish run.completed", "error", err)
	}
	return nil
}
