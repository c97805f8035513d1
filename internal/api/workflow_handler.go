package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/telemetry"
)

// ListWorkflows возвращает список всех workflow.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflows.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
//
// Пустой список узлов допустим (черновик). Непустой проходит
// структурную валидацию без разрешения типов.
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req WorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	wf := &domain.Workflow{
		ID:      uuid.New(),
		Name:    req.Name,
		Nodes:   req.Nodes,
		EnvData: req.EnvData,
	}

	if !h.checkStructure(w, wf) {
		return
	}

	if err := h.workflows.Create(r.Context(), wf); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, WorkflowFromDomain(*wf))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// UpdateWorkflow заменяет имя, узлы и переменные окружения workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req WorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != "" {
		wf.Name = req.Name
	}
	wf.Nodes = req.Nodes
	wf.EnvData = req.EnvData

	if !h.checkStructure(w, wf) {
		return
	}

	if err := h.workflows.Update(r.Context(), wf); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflows.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	NoContent(w)
}

// ValidateWorkflow проверяет workflow, включая разрешимость типов
// с учётом включённых плагинов.
// POST /api/v1/workflows/{id}/validate
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	plugins, err := h.plugins.List(r.Context(), true)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	eng := h.factory.Build(plugins, h.logger)
	if err := engine.Validate(wf, eng); err != nil {
		detail := validationDetail(err)
		Success(w, ValidateResponse{Valid: false, Error: &detail})
		return
	}

	Success(w, ValidateResponse{Valid: true})
}

// ExecuteWorkflow синхронно выполняет workflow и возвращает итоговый State.
// POST /api/v1/workflows/{id}/execute
//
// Тело необязательно: {"request": ...}. Ошибки узлов не прерывают
// выполнение и попадают в steps как {"error": ...}, поэтому ответ
// всегда 200, если workflow найден.
func (h *Handler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflows.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	plugins, err := h.plugins.List(r.Context(), true)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	logger := telemetry.WithWorkflowID(h.logger, wf.ID.String())
	state := h.factory.Build(plugins, logger).Process(r.Context(), wf, req.Request)

	logger.Info("workflow executed", "steps", state.Len())
	Success(w, state)
}

// checkStructure валидирует непустой workflow без разрешения типов.
// Возвращает false, если ответ с ошибкой уже отправлен.
func (h *Handler) checkStructure(w http.ResponseWriter, wf *domain.Workflow) bool {
	if len(wf.Nodes) == 0 {
		return true
	}
	if err := engine.Validate(wf, nil); err != nil {
		JSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: validationDetail(err)})
		return false
	}
	return true
}

// validationDetail конвертирует ошибку валидации в ErrorDetail.
func validationDetail(err error) ErrorDetail {
	detail := ErrorDetail{Code: ErrCodeInvalidFlow, Message: err.Error()}

	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		detail.Node = vErr.Node
		detail.Field = vErr.Field
	}
	return detail
}
