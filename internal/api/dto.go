package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
)

// Workflow DTOs

// WorkflowRequest — запрос на создание или замену workflow.
type WorkflowRequest struct {
	Name    string          `json:"name"`
	Nodes   domain.Sequence `json:"nodes"`
	EnvData []domain.EnvVar `json:"envData,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Nodes     domain.Sequence `json:"nodes"`
	EnvData   []domain.EnvVar `json:"envData,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf domain.Workflow) WorkflowResponse {
	nodes := wf.Nodes
	if nodes == nil {
		nodes = domain.Sequence{}
	}
	return WorkflowResponse{
		ID:        wf.ID,
		Name:      wf.Name,
		Nodes:     nodes,
		EnvData:   wf.EnvData,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
}

// ExecuteRequest — запрос на синхронное выполнение workflow.
type ExecuteRequest struct {
	Request any `json:"request,omitempty"`
}

// ValidateResponse — результат валидации workflow.
type ValidateResponse struct {
	Valid bool         `json:"valid"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// Run DTOs

// CreateRunRequest — запрос на создание run.
type CreateRunRequest struct {
	Request        any    `json:"request,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID      `json:"id"`
	WorkflowID     uuid.UUID      `json:"workflow_id"`
	Status         string         `json:"status"`
	Request        any            `json:"request,omitempty"`
	Steps          map[string]any `json:"steps,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		Status:         string(r.Status),
		Request:        r.Request,
		Steps:          r.Steps,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Error:          r.Error,
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt,
	}
}

// Plugin DTOs

// CreatePluginRequest — запрос на регистрацию плагина.
// Enabled по умолчанию true.
type CreatePluginRequest struct {
	LocationReference string `json:"location_reference"`
	ExposedName       string `json:"exposed_name"`
	Enabled           *bool  `json:"enabled,omitempty"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
	Request     any    `json:"request,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
	Request     any     `json:"request,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID          uuid.UUID  `json:"id"`
	WorkflowID  uuid.UUID  `json:"workflow_id"`
	Name        string     `json:"name"`
	CronExpr    string     `json:"cron_expr,omitempty"`
	IntervalSec int        `json:"interval_sec,omitempty"`
	Timezone    string     `json:"timezone"`
	Enabled     bool       `json:"enabled"`
	NextDueAt   *time.Time `json:"next_due_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastRunID   *uuid.UUID `json:"last_run_id,omitempty"`
	Request     any        `json:"request,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:          s.ID,
		WorkflowID:  s.WorkflowID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Enabled:     s.Enabled,
		NextDueAt:   s.NextDueAt,
		LastRunAt:   s.LastRunAt,
		LastRunID:   s.LastRunID,
		Request:     s.Request,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
