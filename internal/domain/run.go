package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск workflow.
//
// Run создаётся когда:
// - Пользователь запускает workflow через API/CLI
// - Scheduler создаёт run по расписанию
//
// Движок не выставляет агрегированный признак успеха: статус COMPLETED
// означает лишь, что обход завершился. Ошибки узлов лежат в Steps.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Request — непрозрачный контекст запроса.
	// Копируется в input каждого StepRecord.
	Request any `json:"request,omitempty"`

	// Steps — записи шагов (name → {input, output}).
	// Заполняется после завершения run.
	Steps map[string]any `json:"steps,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — инфраструктурная ошибка (workflow не найден и т.п.).
	// Ошибки узлов сюда не попадают.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности.
	// Для scheduled runs: "{schedule_id}_{next_due_at}"
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(workflowID uuid.UUID, request any) *Run {
	return &Run{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     RunStatusPending,
		Request:    request,
		CreatedAt:  time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkCompleted переводит run в статус COMPLETED с записями шагов.
func (r *Run) MarkCompleted(steps map[string]any) {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
	r.Steps = steps
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
