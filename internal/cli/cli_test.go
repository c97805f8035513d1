package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const yamlWorkflow = `
name: limits
envData:
  - key: limit
    value: 3
nodes:
  - type: start
    name: start
  - type: condition
    name: check
    settings:
      left: "{{ envData.limit }}"
      operator: ">"
      right:
        type: raw
        value: "5"
      success:
        - type: start
          name: big
      fail:
        - type: start
          name: small
`

func TestParseWorkflow(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantName  string
		wantNodes int
	}{
		{"yaml object", yamlWorkflow, "limits", 2},
		{"json object", `{"name":"j","nodes":[{"type":"start","name":"s"}]}`, "j", 1},
		{"json list", `[{"type":"start","name":"a"},{"type":"code","name":"b"}]`, "", 2},
		{"yaml list", "- type: start\n  name: a\n", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := ParseWorkflow([]byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wf.Name != tt.wantName || len(wf.Nodes) != tt.wantNodes {
				t.Errorf("expected %q with %d nodes, got %q with %d", tt.wantName, tt.wantNodes, wf.Name, len(wf.Nodes))
			}
		})
	}
}

func TestParseWorkflow_Invalid(t *testing.T) {
	for _, data := range []string{"", "just a string", `{"nodes": 5}`} {
		if _, err := ParseWorkflow([]byte(data)); !errors.Is(err, ErrInvalidWorkflowFile) {
			t.Errorf("%q: expected ErrInvalidWorkflowFile, got %v", data, err)
		}
	}
}

func TestLoadWorkflow_NameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.json")
	if err := os.WriteFile(path, []byte(`[{"type":"start","name":"s"}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	wf, err := LoadWorkflow(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Name != "nightly" {
		t.Errorf("expected name from file, got %q", wf.Name)
	}
}

func TestParseEnv(t *testing.T) {
	wf := &domain.Workflow{EnvData: []domain.EnvVar{{Key: "limit", Value: 1}}}

	if err := ParseEnv(wf, []string{"limit=10", "base=http://x", `tags=["a"]`}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := domain.EnvMap(wf.EnvData)
	if env["limit"] != float64(10) {
		t.Errorf("expected overridden numeric limit, got %v", env["limit"])
	}
	if env["base"] != "http://x" {
		t.Errorf("expected string value, got %v", env["base"])
	}
	if tags, ok := env["tags"].([]any); !ok || len(tags) != 1 {
		t.Errorf("expected JSON list, got %v", env["tags"])
	}

	if err := ParseEnv(wf, []string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestExecLocal_DivertsOnCondition(t *testing.T) {
	wf, err := ParseWorkflow([]byte(yamlWorkflow))
	if err != nil {
		t.Fatal(err)
	}

	state, err := ExecLocal(context.Background(), wf, ExecOptions{
		Env:     []string{"limit=10"},
		Request: `{"user":"u1"}`,
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := state.Step("big"); !ok {
		t.Error("expected success branch to run")
	}
	if _, ok := state.Step("small"); ok {
		t.Error("fail branch must not run")
	}

	rec, _ := state.Step("start")
	if in, _ := rec.Input.(map[string]any); in["user"] != "u1" {
		t.Errorf("expected request as input, got %v", rec.Input)
	}
}

func TestExecLocal_Plugins(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "AlertMessage", Name: "alert", Settings: map[string]any{"message": "hi"}},
	}}

	state, err := ExecLocal(context.Background(), wf, ExecOptions{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := state.Step("alert")
	if engine.IsErrorOutput(rec.Output) {
		t.Errorf("expected statically linked plugin to run, got %v", rec.Output)
	}
}

func TestExecLocal_StrictRejectsInvalid(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{{Type: "Nope", Name: "x"}}}

	_, err := ExecLocal(context.Background(), wf, ExecOptions{Strict: true, Logger: discardLogger()})
	if !errors.Is(err, engine.ErrUnknownNodeType) {
		t.Errorf("expected ErrUnknownNodeType, got %v", err)
	}

	_, err = ExecLocal(context.Background(), wf, ExecOptions{Request: "{", Logger: discardLogger()})
	if err == nil {
		t.Error("expected error for invalid request JSON")
	}
}

func TestRunExecCmd_JSONOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	if err := os.WriteFile(path, []byte(yamlWorkflow), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	out := NewOutputTo(&stdout, &stderr, true)
	cmd := NewRunCmd(func() *Client { return nil }, func() *Output { return out })
	cmd.SetArgs([]string{"exec", path, "--env", "limit=1"})
	cmd.SetOut(io.Discard)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var state struct {
		Steps   map[string]any `json:"steps"`
		EnvData map[string]any `json:"envData"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &state); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if _, ok := state.Steps["small"]; !ok {
		t.Errorf("expected fail branch for limit=1, got %v", state.Steps)
	}
	if state.EnvData["limit"] != float64(1) {
		t.Errorf("unexpected envData %v", state.EnvData)
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"workflow not found"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetWorkflow("x")
	if err == nil || err.Error() != "NOT_FOUND: workflow not found" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestClient_ImportAndList(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/workflows":
			json.NewDecoder(r.Body).Decode(&created)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"wf-1","name":"limits","nodes":[{},{}]}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/runs":
			if r.URL.Query().Get("workflow_id") != "wf-1" {
				t.Errorf("expected workflow_id filter, got %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":[{"id":"r1","workflow_id":"wf-1","status":"COMPLETED"}],"total":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte(yamlWorkflow), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	out := NewOutputTo(&stdout, &stderr, false)
	client := NewClient(srv.URL)

	cmd := NewWorkflowCmd(func() *Client { return client }, func() *Output { return out })
	cmd.SetArgs([]string{"import", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	if created["name"] != "limits" {
		t.Errorf("unexpected request body %v", created)
	}
	if !strings.Contains(stderr.String(), "Workflow saved: wf-1") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}

	runs, err := client.ListRuns(ListRunsOpts{WorkflowID: "wf-1"})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "COMPLETED" {
		t.Errorf("unexpected runs %+v", runs)
	}
}
