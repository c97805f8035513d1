package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/flowrequests/internal/domain"
)

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

const runColumns = `id, workflow_id, status, request, steps, started_at, finished_at,
		       error, idempotency_key, created_at`

// Create создаёт новый run.
// Повтор ключа идемпотентности для того же workflow возвращает ErrAlreadyExists.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	requestJSON, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	query := `
		INSERT INTO runs (id, workflow_id, status, request, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.WorkflowID,
		run.Status,
		requestJSON,
		nullString(run.IdempotencyKey),
		run.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: run %s", ErrAlreadyExists, run.IdempotencyKey)
	}
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает run по ключу идемпотентности.
func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE workflow_id = $1 AND idempotency_key = $2`
	return scanRun(r.pool.QueryRow(ctx, query, workflowID, key))
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2::run_status)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// Update обновляет статус, записи шагов и время выполнения.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	var stepsJSON []byte
	if run.Steps != nil {
		var err error
		stepsJSON, err = json.Marshal(run.Steps)
		if err != nil {
			return fmt.Errorf("marshal steps: %w", err)
		}
	}

	query := `
		UPDATE runs
		SET status = $2, steps = $3, started_at = $4, finished_at = $5, error = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		stepsJSON,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimPending атомарно переводит run из PENDING в RUNNING.
// Если run уже забрал другой runner, возвращает ErrInvalidState.
func (r *RunRepo) ClaimPending(ctx context.Context, run *domain.Run) error {
	run.MarkRunning()

	result, err := r.pool.Exec(ctx, `
		UPDATE runs SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, run.ID, run.StartedAt)
	if err != nil {
		return fmt.Errorf("claim run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: run %s is not pending", ErrInvalidState, run.ID)
	}
	return nil
}

// ListPending возвращает runs в статусе PENDING.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.RunStatus
	Limit      int
	Offset     int
}

func collectRuns(rows pgx.Rows) ([]domain.Run, error) {
	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var requestJSON, stepsJSON []byte
	var idempotencyKey, runError *string

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.Status,
		&requestJSON,
		&stepsJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&idempotencyKey,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if requestJSON != nil {
		if err := json.Unmarshal(requestJSON, &run.Request); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
	}
	if stepsJSON != nil {
		if err := json.Unmarshal(stepsJSON, &run.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	if idempotencyKey != nil {
		run.IdempotencyKey = *idempotencyKey
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
