package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/runner"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

// WorkflowStore — хранилище workflow.
type WorkflowStore interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
	Update(ctx context.Context, wf *domain.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunStore — хранилище runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// PluginStore — хранилище дескрипторов плагинов.
type PluginStore interface {
	Create(ctx context.Context, p *domain.PluginDescriptor) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PluginDescriptor, error)
	List(ctx context.Context, onlyEnabled bool) ([]domain.PluginDescriptor, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScheduleStore — хранилище расписаний.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

// Publisher — публикация запросов на выполнение.
type Publisher interface {
	PublishRunRequested(ctx context.Context, runID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows WorkflowStore
	runs      RunStore
	plugins   PluginStore
	schedules ScheduleStore
	factory   *runner.EngineFactory
	publisher Publisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows WorkflowStore
	Runs      RunStore
	Plugins   PluginStore
	Schedules ScheduleStore

	// Factory собирает движок для синхронного выполнения и каталога узлов.
	Factory *runner.EngineFactory

	// Publisher (опционально). Без него runs подхватывает поллинг runner.
	Publisher Publisher

	// Metrics (опционально) — счётчик HTTP запросов.
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = runner.NewEngineFactory(runner.FactoryConfig{Logger: logger})
	}

	return &Handler{
		workflows: cfg.Workflows,
		runs:      cfg.Runs,
		plugins:   cfg.Plugins,
		schedules: cfg.Schedules,
		factory:   factory,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    telemetry.WithComponent(logger, "api"),
	}
}
