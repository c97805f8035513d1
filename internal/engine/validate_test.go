package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/flowrequests/internal/domain"
)

func validResolver() Resolver {
	return testResolver(map[string]Node{
		domain.NodeTypeStart:     echoNode{},
		domain.NodeTypeAPI:       echoNode{},
		domain.NodeTypeCondition: echoNode{},
		domain.NodeTypeLoop:      echoNode{},
	})
}

func TestValidate_EmptyWorkflow(t *testing.T) {
	tests := []struct {
		name string
		wf   *domain.Workflow
	}{
		{name: "nil workflow", wf: nil},
		{name: "no nodes", wf: &domain.Workflow{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.wf, nil)
			if !errors.Is(err, ErrEmptyWorkflow) {
				t.Errorf("expected ErrEmptyWorkflow, got %v", err)
			}
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{
		{Type: "start", Name: "start"},
		{Type: "condition", Name: "check", Settings: map[string]any{
			"left":     "1",
			"right":    "1",
			"operator": "==",
			"success": []any{
				map[string]any{"type": "api", "name": "call", "settings": map[string]any{"url": "http://x"}},
			},
			// одинаковое имя в разных ветках допустимо
			"fail": []any{
				map[string]any{"type": "api", "name": "call", "settings": map[string]any{"url": "http://y"}},
			},
		}},
	}}

	if err := Validate(wf, validResolver()); err != nil {
		t.Errorf("expected valid workflow, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		nodes domain.Sequence
		err   error
		node  string
	}{
		{
			name:  "empty name",
			nodes: domain.Sequence{{Type: "start"}},
			err:   ErrEmptyNodeName,
		},
		{
			name:  "empty type",
			nodes: domain.Sequence{{Name: "a"}},
			err:   ErrEmptyNodeType,
			node:  "a",
		},
		{
			name:  "unknown type",
			nodes: domain.Sequence{{Type: "nope", Name: "a"}},
			err:   ErrUnknownNodeType,
			node:  "a",
		},
		{
			name:  "duplicate name",
			nodes: domain.Sequence{{Type: "start", Name: "a"}, {Type: "start", Name: "a"}},
			err:   ErrDuplicateNodeName,
			node:  "a",
		},
		{
			name:  "api without url",
			nodes: domain.Sequence{{Type: "api", Name: "call"}},
			err:   ErrMissingSetting,
			node:  "call",
		},
		{
			name: "loop without source",
			nodes: domain.Sequence{{Type: "loop", Name: "each", Settings: map[string]any{
				"nodes": []any{},
			}}},
			err:  ErrMissingSetting,
			node: "each",
		},
		{
			name: "invalid nested sequence",
			nodes: domain.Sequence{{Type: "loop", Name: "each", Settings: map[string]any{
				"source": "[1,2]",
				"nodes":  "not a sequence",
			}}},
			err:  domain.ErrInvalidSequence,
			node: "each",
		},
		{
			name: "duplicate inside branch",
			nodes: domain.Sequence{{Type: "condition", Name: "check", Settings: map[string]any{
				"operator": "==",
				"success": []any{
					map[string]any{"type": "start", "name": "x"},
					map[string]any{"type": "start", "name": "x"},
				},
			}}},
			err:  ErrDuplicateNodeName,
			node: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&domain.Workflow{Nodes: tt.nodes}, validResolver())
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if vErr.Node != tt.node {
				t.Errorf("expected node %q, got %q", tt.node, vErr.Node)
			}
		})
	}
}

func TestValidate_NilResolverSkipsTypes(t *testing.T) {
	wf := &domain.Workflow{Nodes: domain.Sequence{{Type: "AnyPlugin", Name: "p"}}}
	if err := Validate(wf, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestNodeResolutionError(t *testing.T) {
	err := error(&NodeResolutionError{Type: "Custom"})
	if !errors.Is(err, ErrNodeNotFound) {
		t.Error("expected NodeResolutionError to wrap ErrNodeNotFound")
	}

	linkErr := errors.New("link failed")
	err = &NodeResolutionError{Type: "Custom", Err: linkErr}
	if !errors.Is(err, linkErr) {
		t.Error("expected NodeResolutionError to wrap the link error")
	}
	if err.Error() != `resolve node type "Custom": link failed` {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestState_MergeOverwritesByName(t *testing.T) {
	parent := NewState(nil, nil, nil)
	parent.SetStep("a", StepRecord{Output: 1})
	parent.SetStep("b", StepRecord{Output: 2})

	child := parent.child()
	child.SetStep("b", StepRecord{Output: 20})
	child.SetStep("c", StepRecord{Output: 3})

	if rec, _ := parent.Step("b"); rec.Output != 2 {
		t.Fatalf("child write leaked into parent: %v", rec.Output)
	}

	parent.Merge(child)

	if rec, _ := parent.Step("b"); rec.Output != 20 {
		t.Errorf("expected b overwritten to 20, got %v", rec.Output)
	}
	if got := parent.Order(); len(got) != 3 || got[2] != "c" {
		t.Errorf("unexpected order %v", got)
	}
}
