package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/repo"
	"github.com/shaiso/flowrequests/internal/scheduler"
)

// ListSchedules возвращает список schedules с фильтрацией.
// GET /api/v1/schedules?workflow_id=...&enabled=...&limit=...&offset=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{}

	q := r.URL.Query()
	if idStr := q.Get("workflow_id"); idStr != "" {
		workflowID, err := uuid.Parse(idStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if enabledStr := q.Get("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filter.Enabled = &enabled
	}

	filter.Limit, filter.Offset = pagination(r)

	schedules, err := h.schedules.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт новый schedule для workflow.
// POST /api/v1/workflows/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что workflow существует
	_, err = h.workflows.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	schedule := &domain.Schedule{
		ID:          uuid.New(),
		WorkflowID:  workflowID,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    timezone,
		Enabled:     req.Enabled,
		Request:     req.Request,
	}

	if !h.planSchedule(w, schedule) {
		return
	}

	if err := h.schedules.Create(r.Context(), schedule); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, ScheduleFromDomain(schedule))
}

// GetSchedule возвращает schedule по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// UpdateSchedule обновляет schedule.
// PUT /api/v1/schedules/{id}
//
// Изменение cron, интервала или часового пояса пересчитывает next_due_at.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	replan := false
	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.CronExpr != nil {
		schedule.CronExpr = *req.CronExpr
		replan = true
	}
	if req.IntervalSec != nil {
		schedule.IntervalSec = *req.IntervalSec
		replan = true
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
		replan = true
	}
	if req.Request != nil {
		schedule.Request = req.Request
	}

	if replan && !h.planSchedule(w, schedule) {
		return
	}

	if err := h.schedules.Update(r.Context(), schedule); err != nil {
		HandleRepoError(w, h.logger, err, "schedule not found")
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.schedules.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "schedule not found")
		return
	}

	NoContent(w)
}

// SetScheduleEnabled включает или выключает schedule.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.schedules.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		HandleRepoError(w, h.logger, err, "schedule not found")
		return
	}

	// Возвращаем обновлённый schedule
	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// planSchedule валидирует расписание и вычисляет next_due_at.
// Возвращает false, если ответ с ошибкой уже отправлен.
func (h *Handler) planSchedule(w http.ResponseWriter, schedule *domain.Schedule) bool {
	if err := scheduler.Validate(schedule); err != nil {
		BadRequest(w, err.Error())
		return false
	}

	next, err := scheduler.CalculateInitialNextDue(schedule)
	if err != nil {
		BadRequest(w, err.Error())
		return false
	}
	schedule.NextDueAt = &next
	return true
}
