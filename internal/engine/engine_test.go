package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shaiso/flowrequests/internal/domain"
)

// --- Test nodes ---

// echoNode возвращает settings.value с подставленными выражениями.
type echoNode struct{}

func (echoNode) Config() NodeConfig { return NodeConfig{Name: "Echo", Type: "echo"} }

func (echoNode) Execute(_ context.Context, in *NodeInput) (Result, error) {
	v, err := in.Resolve(in.Settings["value"])
	if err != nil {
		return Result{}, err
	}
	return Continue(v), nil
}

// failNode возвращает settings.status как NodeExecutionError
// или обычную ошибку, если статус не задан.
type failNode struct{}

func (failNode) Config() NodeConfig { return NodeConfig{Name: "Fail", Type: "fail"} }

func (failNode) Execute(_ context.Context, in *NodeInput) (Result, error) {
	if status, ok := in.Settings["status"].(int); ok {
		return Result{}, &NodeExecutionError{Status: status, Data: in.Settings["data"]}
	}
	return Result{}, errors.New("boom")
}

// branchNode уходит в settings.next.
type branchNode struct{}

func (branchNode) Config() NodeConfig { return NodeConfig{Name: "Branch", Type: "branch"} }

func (branchNode) Execute(_ context.Context, in *NodeInput) (Result, error) {
	seq, err := domain.SequenceFrom(in.Settings["next"])
	if err != nil {
		return Result{}, err
	}
	return Divert(seq), nil
}

type panicNode struct{}

func (panicNode) Config() NodeConfig { return NodeConfig{Name: "Panic", Type: "panic"} }

func (panicNode) Execute(context.Context, *NodeInput) (Result, error) {
	panic("unexpected")
}

// repeatNode выполняет settings.nodes settings.times раз через Runner.
type repeatNode struct{}

func (repeatNode) Config() NodeConfig { return NodeConfig{Name: "Repeat", Type: domain.NodeTypeLoop} }

func (repeatNode) Execute(ctx context.Context, in *NodeInput) (Result, error) {
	seq, err := domain.SequenceFrom(in.Settings["nodes"])
	if err != nil {
		return Result{}, err
	}
	times := in.Settings["times"].(int)
	for i := 1; i <= times; i++ {
		rec, _ := in.State.Step(in.Name)
		rec.CurrentItem = i
		in.State.SetStep(in.Name, rec)
		in.State.Merge(in.Runner.RunChild(ctx, seq, in.State))
	}
	return Continue(map[string]any{"iterations": times}), nil
}

func testResolver(nodes map[string]Node) Resolver {
	return ResolverFunc(func(nodeType string) (Node, error) {
		if n, ok := nodes[nodeType]; ok {
			return n, nil
		}
		return nil, ErrNodeNotFound
	})
}

func newTestEngine() *Engine {
	return New(Config{
		Builtins: testResolver(map[string]Node{
			"echo":              echoNode{},
			"fail":              failNode{},
			"branch":            branchNode{},
			"panic":             panicNode{},
			domain.NodeTypeLoop: repeatNode{},
		}),
	})
}

func echo(name string, value any) domain.NodeDef {
	return domain.NodeDef{Type: "echo", Name: name, Settings: map[string]any{"value": value}}
}

// --- Tests ---

func TestProcess_LinearOrder(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		echo("a", 1),
		echo("b", 2),
		echo("c", 3),
		echo("d", 4),
	}}

	request := map[string]any{"user": "u1"}
	state := newTestEngine().Process(context.Background(), wf, request)

	if state.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", state.Len())
	}

	want := []string{"a", "b", "c", "d"}
	if got := state.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}

	rec, _ := state.Step("c")
	if rec.Output != 3 {
		t.Errorf("expected output 3, got %v", rec.Output)
	}
	if !reflect.DeepEqual(rec.Input, request) {
		t.Errorf("expected input to echo request, got %v", rec.Input)
	}
}

func TestProcess_NilWorkflow(t *testing.T) {
	state := newTestEngine().Process(context.Background(), nil, nil)
	if state.Len() != 0 {
		t.Errorf("expected empty state, got %d records", state.Len())
	}
}

func TestProcess_DivertNeverRejoins(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		echo("before", "x"),
		{Type: "branch", Name: "fork", Settings: map[string]any{
			"next": []any{
				map[string]any{"type": "echo", "name": "inside", "settings": map[string]any{"value": "in"}},
			},
		}},
		echo("after", "y"),
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	want := []string{"before", "fork", "inside"}
	if got := state.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}

	fork, _ := state.Step("fork")
	if out, ok := fork.Output.(map[string]any); !ok || len(out) != 0 {
		t.Errorf("expected empty placeholder output, got %v", fork.Output)
	}

	if _, ok := state.Step("after"); ok {
		t.Error("node after divert should not run")
	}
}

func TestProcess_ErrorDowngradeContinues(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "fail", Name: "http", Settings: map[string]any{"status": 404, "data": "not found"}},
		{Type: "fail", Name: "generic"},
		echo("next", "ok"),
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	http, _ := state.Step("http")
	want := map[string]any{"error": map[string]any{"status": 404, "data": "not found"}}
	if !reflect.DeepEqual(http.Output, want) {
		t.Errorf("expected %v, got %v", want, http.Output)
	}

	generic, _ := state.Step("generic")
	want = map[string]any{"error": map[string]any{"message": "boom"}}
	if !reflect.DeepEqual(generic.Output, want) {
		t.Errorf("expected %v, got %v", want, generic.Output)
	}

	next, ok := state.Step("next")
	if !ok || next.Output != "ok" {
		t.Errorf("expected next node to run, got %v", next.Output)
	}
}

func TestProcess_UnknownTypeIsNodeLocal(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "missing", Name: "plugin"},
		echo("next", "ok"),
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	rec, _ := state.Step("plugin")
	if !IsErrorOutput(rec.Output) {
		t.Fatalf("expected error output, got %v", rec.Output)
	}
	msg := rec.Output.(map[string]any)["error"].(map[string]any)["message"]
	if msg != `node type "missing" not found` {
		t.Errorf("unexpected message: %v", msg)
	}

	if _, ok := state.Step("next"); !ok {
		t.Error("expected next node to run")
	}
}

func TestProcess_CustomResolver(t *testing.T) {
	e := New(Config{
		Builtins: testResolver(map[string]Node{"echo": echoNode{}}),
		Custom:   testResolver(map[string]Node{"AlertMessage": echoNode{}}),
	})

	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "AlertMessage", Name: "alert", Settings: map[string]any{"value": "hi"}},
	}}

	state := e.Process(context.Background(), wf, nil)

	rec, _ := state.Step("alert")
	if rec.Output != "hi" {
		t.Errorf("expected custom node output, got %v", rec.Output)
	}
}

func TestProcess_PanicRecovered(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "panic", Name: "bad"},
		echo("next", "ok"),
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	rec, _ := state.Step("bad")
	if !IsErrorOutput(rec.Output) {
		t.Errorf("expected error output, got %v", rec.Output)
	}
	if _, ok := state.Step("next"); !ok {
		t.Error("expected next node to run")
	}
}

func TestProcess_ReferenceIntoCompletedBranch(t *testing.T) {
	// Ветка заканчивает run, поэтому ссылка делается изнутри той же ветки
	// на узел, выполненный в ней раньше.
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "branch", Name: "fork", Settings: map[string]any{
			"next": []any{
				map[string]any{"type": "echo", "name": "node1", "settings": map[string]any{"value": map[string]any{"id": 7}}},
				map[string]any{"type": "echo", "name": "node2", "settings": map[string]any{"value": "{{ steps.node1.output }}"}},
				map[string]any{"type": "echo", "name": "node3", "settings": map[string]any{"value": "id={{steps.node1.output.id}}"}},
			},
		}},
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	rec, _ := state.Step("node2")
	want := map[string]any{"id": float64(7)}
	if !reflect.DeepEqual(rec.Output, want) {
		t.Errorf("expected %v, got %v", want, rec.Output)
	}

	rec, _ = state.Step("node3")
	if rec.Output != "id=7" {
		t.Errorf("expected id=7, got %v", rec.Output)
	}
}

func TestProcess_UnresolvedExpression(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		echo("a", "{{ steps.missing.output }}"),
		echo("b", "ok"),
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	rec, _ := state.Step("a")
	if !IsErrorOutput(rec.Output) {
		t.Errorf("expected error output, got %v", rec.Output)
	}
	if _, ok := state.Step("b"); !ok {
		t.Error("expected b to run")
	}
}

func TestProcess_LoopKeepsCurrentItem(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: domain.NodeTypeLoop, Name: "each", Settings: map[string]any{
			"times": 3,
			"nodes": []any{
				map[string]any{"type": "echo", "name": "inner", "settings": map[string]any{"value": "{{ steps.each.currentItem }}"}},
			},
		}},
	}}

	state := newTestEngine().Process(context.Background(), wf, nil)

	loop, _ := state.Step("each")
	if loop.CurrentItem != 3 {
		t.Errorf("expected currentItem 3, got %v", loop.CurrentItem)
	}

	inner, _ := state.Step("inner")
	if inner.Output != float64(3) {
		t.Errorf("expected last iteration output 3, got %v", inner.Output)
	}

	if state.Len() != 2 {
		t.Errorf("expected 2 records, got %d", state.Len())
	}
}

func TestProcess_EnvLastKeyWins(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: domain.Sequence{echo("a", "{{ envData.host }}")},
		EnvData: []domain.EnvVar{
			{Key: "host", Value: "first"},
			{Key: "host", Value: "second"},
		},
	}

	state := newTestEngine().Process(context.Background(), wf, nil)

	rec, _ := state.Step("a")
	if rec.Output != "second" {
		t.Errorf("expected second, got %v", rec.Output)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	e := New(Config{
		Builtins:  testResolver(map[string]Node{"echo": echoNode{}}),
		Generator: func() Generator { return &counterGenerator{} },
	})

	wf := &domain.Workflow{Nodes: domain.Sequence{
		echo("a", "{{ seq.next() }}"),
		echo("b", "{{ seq.next() }}-{{ steps.a.output }}"),
	}}

	first, _ := json.Marshal(e.Process(context.Background(), wf, "req").Steps())
	second, _ := json.Marshal(e.Process(context.Background(), wf, "req").Steps())

	if string(first) != string(second) {
		t.Errorf("expected identical steps, got\n%s\n%s", first, second)
	}
}

func TestProcess_ObserverCalled(t *testing.T) {
	obs := &recordingObserver{}
	e := New(Config{
		Builtins: testResolver(map[string]Node{"echo": echoNode{}, "fail": failNode{}}),
		Observer: obs,
	})

	wf := &domain.Workflow{Nodes: domain.Sequence{
		echo("a", 1),
		{Type: "fail", Name: "b"},
	}}
	e.Process(context.Background(), wf, nil)

	if obs.total != 2 || obs.failed != 1 {
		t.Errorf("expected 2 executions and 1 failure, got %d/%d", obs.total, obs.failed)
	}
}

// --- Helpers ---

type counterGenerator struct{ n int }

func (g *counterGenerator) Call(category, method string) (any, error) {
	g.n++
	return category + "." + method + "#" + string(rune('0'+g.n)), nil
}

type recordingObserver struct {
	total  int
	failed int
}

func (o *recordingObserver) NodeExecuted(_ string, _ time.Duration, failed bool) {
	o.total++
	if failed {
		o.failed++
	}
}
