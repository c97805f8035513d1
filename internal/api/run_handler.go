package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/repo"
)

// Значения пагинации по умолчанию.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{}

	q := r.URL.Query()
	if idStr := q.Get("workflow_id"); idStr != "" {
		workflowID, err := uuid.Parse(idStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	filter.Limit, filter.Offset = pagination(r)

	runs, err := h.runs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun ставит выполнение workflow в очередь.
// POST /api/v1/workflows/{id}/runs
//
// С idempotency_key повторный запрос возвращает уже созданный run (200),
// новый run возвращается со статусом 202.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что workflow существует
	_, err = h.workflows.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.IdempotencyKey != "" {
		existing, err := h.runs.GetByIdempotencyKey(r.Context(), workflowID, req.IdempotencyKey)
		if err == nil {
			Success(w, RunFromDomain(*existing))
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
	}

	run := domain.NewRun(workflowID, req.Request)
	run.IdempotencyKey = req.IdempotencyKey

	if err := h.runs.Create(r.Context(), run); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) && req.IdempotencyKey != "" {
			// Параллельный запрос с тем же ключом успел раньше
			existing, getErr := h.runs.GetByIdempotencyKey(r.Context(), workflowID, req.IdempotencyKey)
			if getErr == nil {
				Success(w, RunFromDomain(*existing))
				return
			}
		}
		HandleRepoError(w, h.logger, err, "")
		return
	}

	// Публикуем событие в очередь
	if h.publisher != nil {
		if err := h.publisher.PublishRunRequested(r.Context(), run.ID); err != nil {
			h.logger.Warn("failed to publish run.requested", "run_id", run.ID, "error", err)
		}
	}

	Accepted(w, RunFromDomain(*run))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// pagination читает limit и offset из query.
// Некорректные значения заменяются значениями по умолчанию.
func pagination(r *http.Request) (limit, offset int) {
	limit = parseInt(r.URL.Query().Get("limit"), defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = parseInt(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseInt парсит строку в int с дефолтным значением.
func parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
