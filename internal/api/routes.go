package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(h.metrics),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/validate", chain(http.HandlerFunc(h.ValidateWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/execute", chain(http.HandlerFunc(h.ExecuteWorkflow)))

	// Runs
	mux.Handle("GET /api/v1/runs", chain(http.HandlerFunc(h.ListRuns)))
	mux.Handle("POST /api/v1/workflows/{id}/runs", chain(http.HandlerFunc(h.CreateRun)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))

	// Plugins
	mux.Handle("GET /api/v1/plugins", chain(http.HandlerFunc(h.ListPlugins)))
	mux.Handle("POST /api/v1/plugins", chain(http.HandlerFunc(h.CreatePlugin)))
	mux.Handle("DELETE /api/v1/plugins/{id}", chain(http.HandlerFunc(h.DeletePlugin)))
	mux.Handle("PUT /api/v1/plugins/{id}/enabled", chain(http.HandlerFunc(h.SetPluginEnabled)))

	// Node catalog
	mux.Handle("GET /api/v1/nodes", chain(http.HandlerFunc(h.ListNodes)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/workflows/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
