package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/plugin"
)

func newInput(settings map[string]any, env map[string]any) *engine.NodeInput {
	return &engine.NodeInput{
		Name:     "node",
		Settings: settings,
		State:    engine.NewState(env, nil, nil),
	}
}

func TestAlertMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewAlertMessage(slog.New(slog.NewTextHandler(&buf, nil)))

	res, err := n.Execute(context.Background(), newInput(
		map[string]any{"message": "hello {{ envData.who }}"},
		map[string]any{"who": "world"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := res.Output().(map[string]any)
	if out["ok"] != true {
		t.Errorf("expected ok, got %v", out)
	}
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("expected message in log, got %q", buf.String())
	}
}

func TestFakeTodos(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/todos/404" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Todo with id '404' not found"}`))
			return
		}
		w.Write([]byte(`{"id":1,"todo":"test"}`))
	}))
	defer srv.Close()

	n := NewFakeTodos(srv.Client(), srv.URL)

	tests := []struct {
		name       string
		settings   map[string]any
		wantMethod string
		wantPath   string
		wantOutput map[string]any
	}{
		{
			name:       "get all",
			settings:   map[string]any{"operation": OpGetAll},
			wantMethod: http.MethodGet,
			wantPath:   "/todos",
			wantOutput: map[string]any{"id": float64(1), "todo": "test"},
		},
		{
			name:       "get by id with expression",
			settings:   map[string]any{"operation": OpGetByID, "id": "{{ envData.todoId }}"},
			wantMethod: http.MethodGet,
			wantPath:   "/todos/7",
			wantOutput: map[string]any{"id": float64(1), "todo": "test"},
		},
		{
			name:       "delete",
			settings:   map[string]any{"operation": OpDeleteByID, "id": "3"},
			wantMethod: http.MethodDelete,
			wantPath:   "/todos/3",
			wantOutput: map[string]any{"removed": true},
		},
		{
			name:       "create",
			settings:   map[string]any{"operation": OpCreateTodo, "todo": "buy milk", "completed": false, "userId": "5"},
			wantMethod: http.MethodPost,
			wantPath:   "/todos/add",
			wantOutput: map[string]any{"created": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := n.Execute(context.Background(), newInput(tt.settings, map[string]any{"todoId": "7"}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotMethod != tt.wantMethod || gotPath != tt.wantPath {
				t.Errorf("expected %s %s, got %s %s", tt.wantMethod, tt.wantPath, gotMethod, gotPath)
			}
			out := res.Output().(map[string]any)
			for k, v := range tt.wantOutput {
				if out[k] != v {
					t.Errorf("output[%s]: expected %v, got %v", k, v, out[k])
				}
			}
		})
	}

	if gotBody["todo"] != "buy milk" {
		t.Errorf("expected create body, got %v", gotBody)
	}
}

func TestFakeTodos_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	n := NewFakeTodos(srv.Client(), srv.URL)

	_, err := n.Execute(context.Background(), newInput(map[string]any{"operation": OpGetByID}, nil))
	if !errors.Is(err, ErrMissingSetting) || !strings.Contains(err.Error(), "You need to provide the id") {
		t.Errorf("expected missing id error, got %v", err)
	}

	_, err = n.Execute(context.Background(), newInput(map[string]any{"operation": OpGetByID, "id": "404"}, nil))
	var execErr *engine.NodeExecutionError
	if !errors.As(err, &execErr) || execErr.Status != http.StatusNotFound {
		t.Errorf("expected NodeExecutionError 404, got %v", err)
	}

	res, err := n.Execute(context.Background(), newInput(map[string]any{"operation": "other"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output().(map[string]any)["ok"] != true {
		t.Errorf("expected ok for unknown operation, got %v", res.Output())
	}
}

func TestMailtrap(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	n := NewMailtrap(srv.Client())
	settings := map[string]any{
		"token":   "{{ envData.token }}",
		"api":     srv.URL + "/api/send",
		"subject": "Hi",
		"text":    "Body",
		"from":    "from@example.com",
		"to":      "to@example.com",
	}

	res, err := n.Execute(context.Background(), newInput(settings, map[string]any{"token": "secret"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output().(map[string]any)["ok"] != true {
		t.Errorf("expected ok, got %v", res.Output())
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotBody["subject"] != "Hi" {
		t.Errorf("unexpected body %v", gotBody)
	}
	from, _ := gotBody["from"].(map[string]any)
	if from["email"] != "from@example.com" || from["name"] != "test" {
		t.Errorf("unexpected from %v", gotBody["from"])
	}

	delete(settings, "subject")
	_, err = n.Execute(context.Background(), newInput(settings, map[string]any{"token": "secret"}))
	if !errors.Is(err, ErrMissingSetting) || !strings.Contains(err.Error(), "subject") {
		t.Errorf("expected missing subject error, got %v", err)
	}
}

func TestLinker_NameMatchesType(t *testing.T) {
	linker := Linker(Options{})

	for _, name := range linker.Names() {
		factory, err := linker.Link(plugin.Descriptor{ExposedName: name})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		cfg := factory().Config()
		if cfg.Name != cfg.Type {
			t.Errorf("%s: name %q differs from type %q", name, cfg.Name, cfg.Type)
		}
	}
}

func TestPlugins_InEngine(t *testing.T) {
	var buf bytes.Buffer
	linker := Linker(Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	e := engine.New(engine.Config{
		Custom: plugin.NewRegistry(linker, []plugin.Descriptor{{ExposedName: ExposedAlertMessage}}),
	})

	state := e.Process(context.Background(), &domain.Workflow{Nodes: domain.Sequence{
		{Type: "AlertMessage", Name: "alert", Settings: map[string]any{"message": "done"}},
		{Type: "FakeTodos", Name: "todos"},
	}}, nil)

	rec, _ := state.Step("alert")
	if out, _ := rec.Output.(map[string]any); out["ok"] != true {
		t.Errorf("expected ok, got %v", rec.Output)
	}

	// FakeTodos не включён
	rec, _ = state.Step("todos")
	if !engine.IsErrorOutput(rec.Output) {
		t.Errorf("expected error output, got %v", rec.Output)
	}
}
