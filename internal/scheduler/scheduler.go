package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/repo"
)

// ScheduleStore — хранилище расписаний.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, sched *domain.Schedule) error
}

// RunStore — хранилище runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Run, error)
}

// WorkflowStore — хранилище workflows.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// Publisher — уведомление runner'ов о новом run.
type Publisher interface {
	PublishRunRequested(ctx context.Context, runID uuid.UUID) error
}

// Leader решает, ведёт ли этот экземпляр тики.
// При нескольких репликах тики выполняет только лидер.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
}

// Scheduler создаёт runs по расписаниям.
type Scheduler struct {
	schedules ScheduleStore
	runs      RunStore
	workflows WorkflowStore
	publisher Publisher
	leader    Leader
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Runs      RunStore
	Workflows WorkflowStore
	Publisher Publisher // опционально
	Leader    Leader    // опционально; без него экземпляр всегда лидер
	Logger    *slog.Logger
	BatchSize int // расписаний за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		runs:      cfg.Runs,
		workflows: cfg.Workflows,
		publisher: cfg.Publisher,
		leader:    cfg.Leader,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run вызывает Tick с интервалом до отмены ctx.
// Тики, на которых экземпляр не лидер, пропускаются.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if s.isLeader(ctx) {
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isLeader проверяет лидерство. Ошибка проверки пропускает тик.
func (s *Scheduler) isLeader(ctx context.Context) bool {
	if s.leader == nil {
		return true
	}
	ok, err := s.leader.TryAcquire(ctx)
	if err != nil {
		s.logger.Warn("leader check failed", "error", err)
		return false
	}
	return ok
}

// Tick выполняет один тик планировщика.
//
// Для каждого расписания с next_due_at <= now создаёт run с ключом
// идемпотентности "{schedule_id}_{next_due_at}" и сдвигает next_due_at.
// Ошибки одного расписания не блокируют остальные.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		runCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if runCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"runs_created", created,
	)
	return nil
}

// processSchedule обрабатывает одно расписание.
// Возвращает true, если run был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	if _, err := s.workflows.GetByID(ctx, sched.WorkflowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("workflow not found for schedule, skipping",
				"schedule_id", sched.ID,
				"workflow_id", sched.WorkflowID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get workflow: %w", err)
	}

	key := sched.IdempotencyKey()

	existing, err := s.runs.GetByIdempotencyKey(ctx, sched.WorkflowID, key)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var runID uuid.UUID
	runCreated := existing == nil

	if existing != nil {
		s.logger.Debug("run already exists",
			"schedule_id", sched.ID,
			"run_id", existing.ID,
			"idempotency_key", key,
		)
		runID = existing.ID
	} else {
		run := domain.NewRun(sched.WorkflowID, sched.Request)
		run.IdempotencyKey = key
		run.CreatedAt = now

		if err := s.runs.Create(ctx, run); err != nil {
			return false, fmt.Errorf("create run: %w", err)
		}

		s.logger.Info("created run from schedule",
			"run_id", run.ID,
			"schedule_id", sched.ID,
			"workflow_id", sched.WorkflowID,
		)
		runID = run.ID
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due", "schedule_id", sched.ID, "error", err)
		return runCreated, nil
	}

	sched.RecordRun(runID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return runCreated, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && runCreated {
		// run уже в БД: runner заберёт его polling'ом
		if err := s.publisher.PublishRunRequested(ctx, runID); err != nil {
			s.logger.Warn("failed to publish run.requested", "run_id", runID, "error", err)
		}
	}

	return runCreated, nil
}
