package plugins

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shaiso/flowrequests/internal/engine"
)

// DefaultTodosBaseURL — API задач по умолчанию.
const DefaultTodosBaseURL = "https://dummyjson.com"

// Операции FakeTodos.
const (
	OpGetAll     = "getAll"
	OpGetByID    = "getById"
	OpDeleteByID = "deleteById"
	OpCreateTodo = "createTodo"
)

// FakeTodos работает с API задач (dummyjson).
//
// Настройки: operation, id (getById/deleteById), todo, completed, userId (createTodo).
// Неизвестная операция возвращает {ok: true} без запроса.
type FakeTodos struct {
	client  *http.Client
	baseURL string
}

// NewFakeTodos создаёт FakeTodos.
func NewFakeTodos(client *http.Client, baseURL string) *FakeTodos {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultTodosBaseURL
	}
	return &FakeTodos{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// Config возвращает описание узла.
func (n *FakeTodos) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "FakeTodos",
		Type:        "FakeTodos",
		Description: "fake todos plugin",
		Properties: []engine.Property{
			{Name: "operation", Type: "string", Label: "Operation", Required: true, Default: OpGetAll},
			{Name: "id", Type: "string", Label: "Id"},
			{Name: "todo", Type: "string", Label: "Description"},
			{Name: "completed", Type: "boolean", Label: "Is done?", Default: false},
			{Name: "userId", Type: "string", Label: "User id"},
		},
	}
}

// Execute выполняет операцию.
func (n *FakeTodos) Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error) {
	op, err := in.StringSetting("operation")
	if err != nil {
		return engine.Result{}, err
	}

	switch op {
	case OpGetAll:
		data, err := doJSON(ctx, n.client, http.MethodGet, n.baseURL+"/todos", nil, nil)
		if err != nil {
			return engine.Result{}, err
		}
		return engine.Continue(data), nil

	case OpGetByID:
		id, err := required(in, "id", "You need to provide the id")
		if err != nil {
			return engine.Result{}, err
		}
		data, err := doJSON(ctx, n.client, http.MethodGet, n.todoURL(id), nil, nil)
		if err != nil {
			return engine.Result{}, err
		}
		return engine.Continue(data), nil

	case OpDeleteByID:
		id, err := required(in, "id", "You need to provide the id")
		if err != nil {
			return engine.Result{}, err
		}
		if _, err := doJSON(ctx, n.client, http.MethodDelete, n.todoURL(id), nil, nil); err != nil {
			return engine.Result{}, err
		}
		return engine.Continue(map[string]any{"removed": true}), nil

	case OpCreateTodo:
		body := map[string]any{}
		for _, key := range []string{"todo", "completed", "userId"} {
			if v, ok := in.Setting(key); ok {
				resolved, err := in.Resolve(v)
				if err != nil {
					return engine.Result{}, err
				}
				body[key] = resolved
			}
		}
		if _, err := doJSON(ctx, n.client, http.MethodPost, n.baseURL+"/todos/add", body, nil); err != nil {
			return engine.Result{}, err
		}
		return engine.Continue(map[string]any{"created": true}), nil
	}

	return engine.Continue(map[string]any{"ok": true}), nil
}

func (n *FakeTodos) todoURL(id string) string {
	return n.baseURL + "/todos/" + url.PathEscape(id)
}
