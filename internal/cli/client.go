package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, клиент не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Nodes     []map[string]any `json:"nodes"`
	EnvData   []map[string]any `json:"envData,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// ValidateResponse — результат валидации workflow.
type ValidateResponse struct {
	Valid bool `json:"valid"`
	Error *struct {
		Message string `json:"message"`
		Node    string `json:"node,omitempty"`
		Field   string `json:"field,omitempty"`
	} `json:"error,omitempty"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	Status         string         `json:"status"`
	Request        any            `json:"request,omitempty"`
	Steps          map[string]any `json:"steps,omitempty"`
	StartedAt      string         `json:"started_at,omitempty"`
	FinishedAt     string         `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// PluginResponse — дескриптор плагина из API.
type PluginResponse struct {
	ID                string `json:"id"`
	LocationReference string `json:"location_reference"`
	ExposedName       string `json:"exposed_name"`
	Enabled           bool   `json:"enabled"`
	CreatedAt         string `json:"created_at"`
}

// NodeTypeResponse — элемент каталога узлов.
type NodeTypeResponse struct {
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Description string           `json:"description,omitempty"`
	Properties  []map[string]any `json:"properties,omitempty"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"`
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone"`
	Enabled     bool   `json:"enabled"`
	NextDueAt   string `json:"next_due_at,omitempty"`
	LastRunAt   string `json:"last_run_at,omitempty"`
	LastRunID   string `json:"last_run_id,omitempty"`
	Request     any    `json:"request,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// --- Request types ---

// CreateRunRequest — создание run.
type CreateRunRequest struct {
	Request        any    `json:"request,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreatePluginRequest — регистрация плагина.
type CreatePluginRequest struct {
	LocationReference string `json:"location_reference"`
	ExposedName       string `json:"exposed_name"`
	Enabled           *bool  `json:"enabled,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
	Request     any    `json:"request,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	WorkflowID string
	Status     string
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для flowrequests API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает все workflow.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт workflow. body — {name, nodes, envData}.
func (c *Client) CreateWorkflow(body any) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows", body, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// UpdateWorkflow заменяет workflow.
func (c *Client) UpdateWorkflow(id string, body any) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.put("/api/v1/workflows/"+id, body, &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// ValidateWorkflow проверяет workflow на сервере.
func (c *Client) ValidateWorkflow(id string) (*ValidateResponse, error) {
	var res ValidateResponse
	err := c.post("/api/v1/workflows/"+id+"/validate", nil, &res)
	return &res, err
}

// ExecuteWorkflow синхронно выполняет workflow на сервере и возвращает State.
func (c *Client) ExecuteWorkflow(id string, request any) (map[string]any, error) {
	var state map[string]any
	err := c.post("/api/v1/workflows/"+id+"/execute", map[string]any{"request": request}, &state)
	return state, err
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.WorkflowID != "" {
		params.Set("workflow_id", opts.WorkflowID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun ставит выполнение workflow в очередь.
func (c *Client) CreateRun(workflowID string, req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// --- Plugins ---

// ListPlugins возвращает зарегистрированные плагины.
func (c *Client) ListPlugins() ([]PluginResponse, error) {
	var plugins []PluginResponse
	err := c.list("/api/v1/plugins", nil, &plugins)
	return plugins, err
}

// AddPlugin регистрирует плагин.
func (c *Client) AddPlugin(req CreatePluginRequest) (*PluginResponse, error) {
	var p PluginResponse
	err := c.post("/api/v1/plugins", req, &p)
	return &p, err
}

// RemovePlugin удаляет плагин.
func (c *Client) RemovePlugin(id string) error {
	return c.delete("/api/v1/plugins/" + id)
}

// SetPluginEnabled включает или выключает плагин.
func (c *Client) SetPluginEnabled(id string, enabled bool) (*PluginResponse, error) {
	var p PluginResponse
	err := c.put("/api/v1/plugins/"+id+"/enabled", map[string]bool{"enabled": enabled}, &p)
	return &p, err
}

// ListNodes возвращает каталог типов узлов.
func (c *Client) ListNodes() ([]NodeTypeResponse, error) {
	var nodes []NodeTypeResponse
	err := c.list("/api/v1/nodes", nil, &nodes)
	return nodes, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если workflowID не пустой — фильтрует.
func (c *Client) ListSchedules(workflowID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if workflowID != "" {
		params.Set("workflow_id", workflowID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для workflow.
func (c *Client) CreateSchedule(workflowID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/workflows/"+workflowID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// SetScheduleEnabled включает или выключает schedule.
func (c *Client) SetScheduleEnabled(id string, enabled bool) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id+"/enabled", map[string]bool{"enabled": enabled}, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
