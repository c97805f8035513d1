package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/plugins"
	"github.com/shaiso/flowrequests/internal/repo"
)

// --- in-memory stores ---

type memRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.Run
}

func newMemRuns(runs ...*domain.Run) *memRuns {
	m := &memRuns{runs: make(map[uuid.UUID]*domain.Run)}
	for _, r := range runs {
		m.runs[r.ID] = r
	}
	return m
}

func (m *memRuns) GetByID(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRuns) ClaimPending(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs[run.ID].Status != domain.RunStatusPending {
		return repo.ErrInvalidState
	}
	run.MarkRunning()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRuns) Update(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRuns) ListPending(_ context.Context, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Run
	for _, r := range m.runs {
		if r.Status == domain.RunStatusPending && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

type memWorkflows map[uuid.UUID]*domain.Workflow

func (m memWorkflows) GetByID(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	wf, ok := m[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return wf, nil
}

type memPlugins []domain.PluginDescriptor

func (m memPlugins) List(_ context.Context, onlyEnabled bool) ([]domain.PluginDescriptor, error) {
	var out []domain.PluginDescriptor
	for _, p := range m {
		if !onlyEnabled || p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	runs []domain.Run
}

func (p *recordingPublisher) PublishRunCompleted(_ context.Context, run *domain.Run) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, *run)
	return nil
}

type countingObserver map[domain.RunStatus]int

func (o countingObserver) RunFinished(status domain.RunStatus) { o[status]++ }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestRunner_ExecuteCompletesRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	wf := &domain.Workflow{
		ID: uuid.New(),
		Nodes: domain.Sequence{
			{Type: domain.NodeTypeStart, Name: "start"},
			{Type: domain.NodeTypeAPI, Name: "fetch", Settings: map[string]any{"url": "{{ envData.base }}/users"}},
			{Type: "AlertMessage", Name: "alert", Settings: map[string]any{"message": "id {{ steps.fetch.output.id }}"}},
		},
		EnvData: []domain.EnvVar{{Key: "base", Value: srv.URL}},
	}
	run := domain.NewRun(wf.ID, map[string]any{"user": "u1"})

	runs := newMemRuns(run)
	pub := &recordingPublisher{}
	obs := countingObserver{}

	r := New(Config{
		Runs:      runs,
		Workflows: memWorkflows{wf.ID: wf},
		Plugins:   memPlugins{{ExposedName: plugins.ExposedAlertMessage, Enabled: true}},
		Factory: NewEngineFactory(FactoryConfig{
			HTTPClient: srv.Client(),
			Linker:     plugins.Linker(plugins.Options{Logger: discardLogger()}),
			Logger:     discardLogger(),
		}),
		Publisher: pub,
		Observer:  obs,
		Logger:    discardLogger(),
	})

	done, err := r.Execute(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.RunStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", done.Status)
	}

	stored, _ := runs.GetByID(context.Background(), run.ID)
	if len(stored.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(stored.Steps))
	}

	fetch := stored.Steps["fetch"].(engine.StepRecord)
	if out, _ := fetch.Output.(map[string]any); out["id"] != float64(42) {
		t.Errorf("unexpected fetch output %v", fetch.Output)
	}
	if in, _ := fetch.Input.(map[string]any); in["user"] != "u1" {
		t.Errorf("expected request as input, got %v", fetch.Input)
	}

	alert := stored.Steps["alert"].(engine.StepRecord)
	if engine.IsErrorOutput(alert.Output) {
		t.Errorf("expected plugin to run, got %v", alert.Output)
	}

	if len(pub.runs) != 1 || obs[domain.RunStatusCompleted] != 1 {
		t.Errorf("expected one completion event and metric, got %d/%d", len(pub.runs), obs[domain.RunStatusCompleted])
	}
}

func TestRunner_NodeErrorsDoNotFailRun(t *testing.T) {
	wf := &domain.Workflow{ID: uuid.New(), Nodes: domain.Sequence{
		{Type: "Unknown", Name: "bad"},
		{Type: domain.NodeTypeStart, Name: "after"},
	}}
	run := domain.NewRun(wf.ID, nil)
	runs := newMemRuns(run)

	r := New(Config{Runs: runs, Workflows: memWorkflows{wf.ID: wf}, Logger: discardLogger()})

	done, err := r.Execute(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.RunStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}

	bad := done.Steps["bad"].(engine.StepRecord)
	errObj, _ := bad.Output.(map[string]any)["error"].(map[string]any)
	if errObj["message"] != `node type "Unknown" not found` {
		t.Errorf("unexpected error output %v", bad.Output)
	}
	if _, ok := done.Steps["after"]; !ok {
		t.Error("expected traversal to continue after failed node")
	}
}

func TestRunner_WorkflowMissingFailsRun(t *testing.T) {
	run := domain.NewRun(uuid.New(), nil)
	runs := newMemRuns(run)
	obs := countingObserver{}

	r := New(Config{Runs: runs, Workflows: memWorkflows{}, Observer: obs, Logger: discardLogger()})

	done, err := r.Execute(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.RunStatusFailed {
		t.Errorf("expected FAILED, got %s", done.Status)
	}
	if obs[domain.RunStatusFailed] != 1 {
		t.Error("expected failed run metric")
	}
}

func TestRunner_ExecuteOnlyOnce(t *testing.T) {
	wf := &domain.Workflow{ID: uuid.New(), Nodes: domain.Sequence{{Type: domain.NodeTypeStart, Name: "start"}}}
	run := domain.NewRun(wf.ID, nil)

	r := New(Config{Runs: newMemRuns(run), Workflows: memWorkflows{wf.ID: wf}, Logger: discardLogger()})

	if _, err := r.Execute(context.Background(), run.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Execute(context.Background(), run.ID); !errors.Is(err, ErrRunNotPending) {
		t.Errorf("expected ErrRunNotPending, got %v", err)
	}
	if _, err := r.Execute(context.Background(), uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunner_PollExecutesPending(t *testing.T) {
	wf := &domain.Workflow{ID: uuid.New(), Nodes: domain.Sequence{{Type: domain.NodeTypeStart, Name: "start"}}}
	a := domain.NewRun(wf.ID, nil)
	b := domain.NewRun(wf.ID, nil)
	runs := newMemRuns(a, b)

	r := New(Config{Runs: runs, Workflows: memWorkflows{wf.ID: wf}, Logger: discardLogger()})
	r.poll(context.Background())

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		got, _ := runs.GetByID(context.Background(), id)
		if got.Status != domain.RunStatusCompleted {
			t.Errorf("run %s: expected COMPLETED, got %s", id, got.Status)
		}
	}
}

func TestEngineFactory_Catalog(t *testing.T) {
	f := NewEngineFactory(FactoryConfig{Linker: plugins.Linker(plugins.Options{}), Logger: discardLogger()})

	catalog := f.Catalog([]domain.PluginDescriptor{
		{ExposedName: plugins.ExposedFakeTodos, Enabled: true},
		{ExposedName: plugins.ExposedMailtrapPlugin, Enabled: false},
	})

	types := map[string]bool{}
	for _, c := range catalog {
		types[c.Type] = true
	}
	for _, want := range []string{"start", "api", "condition", "loop", "code", "FakeTodos"} {
		if !types[want] {
			t.Errorf("expected %s in catalog", want)
		}
	}
	if types["MailtrapPlugin"] {
		t.Error("disabled plugin must not be in catalog")
	}
}

func TestEngineFactory_DeterministicGenerator(t *testing.T) {
	f := NewEngineFactory(FactoryConfig{Seed: 7, Logger: discardLogger()})
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: domain.NodeTypeCode, Name: "noop"},
	}}

	a := f.Build(nil, nil).Process(context.Background(), wf, nil)
	b := f.Build(nil, nil).Process(context.Background(), wf, nil)

	va, err := engine.Lookup("person.firstName()", a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vb, _ := engine.Lookup("person.firstName()", b)
	if va != vb {
		t.Errorf("expected equal generated values, got %v and %v", va, vb)
	}
}
