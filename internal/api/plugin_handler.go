package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/flowrequests/internal/domain"
)

// ListPlugins возвращает зарегистрированные плагины.
// GET /api/v1/plugins?enabled=true
func (h *Handler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	onlyEnabled := r.URL.Query().Get("enabled") == "true"

	plugins, err := h.plugins.List(r.Context(), onlyEnabled)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if plugins == nil {
		plugins = []domain.PluginDescriptor{}
	}

	List(w, plugins, len(plugins))
}

// CreatePlugin регистрирует дескриптор плагина.
// POST /api/v1/plugins
//
// Дескриптор не связывается при регистрации: плагин, который
// не удаётся связать, даёт ошибку только в узлах его типа.
func (h *Handler) CreatePlugin(w http.ResponseWriter, r *http.Request) {
	var req CreatePluginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.ExposedName == "" {
		BadRequest(w, "exposed_name is required")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	p := &domain.PluginDescriptor{
		ID:                uuid.New(),
		LocationReference: req.LocationReference,
		ExposedName:       req.ExposedName,
		Enabled:           enabled,
		CreatedAt:         time.Now(),
	}

	if err := h.plugins.Create(r.Context(), p); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	h.logger.Info("plugin registered", "plugin_id", p.ID, "exposed_name", p.ExposedName)
	Created(w, p)
}

// DeletePlugin удаляет дескриптор плагина.
// DELETE /api/v1/plugins/{id}
func (h *Handler) DeletePlugin(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plugin id")
		return
	}

	if err := h.plugins.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "plugin not found")
		return
	}

	NoContent(w)
}

// SetPluginEnabled включает или выключает плагин.
// PUT /api/v1/plugins/{id}/enabled
func (h *Handler) SetPluginEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid plugin id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.plugins.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		HandleRepoError(w, h.logger, err, "plugin not found")
		return
	}

	p, err := h.plugins.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "plugin not found") {
		return
	}

	Success(w, p)
}

// ListNodes возвращает каталог доступных типов узлов:
// встроенные и типы включённых плагинов.
// GET /api/v1/nodes
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	plugins, err := h.plugins.List(r.Context(), true)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	catalog := h.factory.Catalog(plugins)
	List(w, catalog, len(catalog))
}
