package engine

import (
	"errors"
	"reflect"
	"testing"
)

func newExprState() *State {
	s := NewState(map[string]any{
		"baseUrl": "https://api.example.com",
		"token":   "secret",
	}, map[string]any{"userId": 42}, &counterGenerator{})

	s.SetStep("fetch", StepRecord{
		Input: nil,
		Output: map[string]any{
			"status": 200,
			"items":  []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
		},
	})
	s.SetStep("each", StepRecord{Output: map[string]any{}, CurrentItem: "b"})
	return s
}

func TestRender(t *testing.T) {
	state := newExprState()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "no template",
			template: "Plain text",
			expected: "Plain text",
		},
		{
			name:     "env value",
			template: "{{ envData.baseUrl }}/users",
			expected: "https://api.example.com/users",
		},
		{
			name:     "env alias",
			template: "Bearer {{env.token}}",
			expected: "Bearer secret",
		},
		{
			name:     "legacy prefix",
			template: "{{this.state.envData.baseUrl}}",
			expected: "https://api.example.com",
		},
		{
			name:     "nested step path",
			template: "id={{ steps.fetch.output.items.1.id }}",
			expected: "id=2",
		},
		{
			name:     "object serialized as json",
			template: "first: {{ steps.fetch.output.items.0 }}",
			expected: `first: {"id":1}`,
		},
		{
			name:     "current item",
			template: "item {{ steps.each.currentItem }}",
			expected: "item b",
		},
		{
			name:     "request",
			template: "user {{ request.userId }}",
			expected: "user 42",
		},
		{
			name:     "multiple",
			template: "{{ envData.baseUrl }}/users/{{ request.userId }}",
			expected: "https://api.example.com/users/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, state)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	state := newExprState()

	tests := []struct {
		name     string
		template string
		err      error
	}{
		{"missing step", "{{ steps.nope.output }}", ErrUnresolvedExpression},
		{"missing path", "{{ steps.fetch.output.body }}", ErrUnresolvedExpression},
		{"missing env", "{{ envData.nope }}", ErrUnresolvedExpression},
		{"unknown namespace", "{{ foo.bar }}", ErrInvalidExpression},
		{"unclosed", "{{ envData.token", ErrInvalidExpression},
		{"empty", "{{ }}", ErrInvalidExpression},
		{"bad generator call", "{{ first() }}", ErrInvalidExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.template, state)
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestEvaluate_SingleExpressionKeepsType(t *testing.T) {
	state := newExprState()

	v, err := Evaluate("{{ steps.fetch.output.items }}", state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []any{map[string]any{"id": float64(1)}, map[string]any{"id": float64(2)}}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("expected %v, got %v", want, v)
	}

	v, err = Evaluate("{{ steps.fetch.output.status }}", state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != float64(200) {
		t.Errorf("expected 200, got %v (%T)", v, v)
	}
}

func TestEvaluate_Generator(t *testing.T) {
	state := newExprState()

	v, err := Evaluate("{{ this.state.faker.person.firstName() }}", state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "person.firstName#1" {
		t.Errorf("unexpected value: %v", v)
	}
}

func TestEvaluate_NoGenerator(t *testing.T) {
	state := NewState(nil, nil, nil)

	_, err := Evaluate("{{ person.firstName() }}", state)
	if !errors.Is(err, ErrNoGenerator) {
		t.Errorf("expected ErrNoGenerator, got %v", err)
	}
}

func TestRenderValue_Nested(t *testing.T) {
	state := newExprState()

	value := map[string]any{
		"url":   "{{ envData.baseUrl }}/todos",
		"count": 3,
		"headers": []any{
			map[string]any{"key": "Authorization", "value": "Bearer {{ envData.token }}"},
		},
	}

	result, err := RenderValue(value, state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"url":   "https://api.example.com/todos",
		"count": 3,
		"headers": []any{
			map[string]any{"key": "Authorization", "value": "Bearer secret"},
		},
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("expected %v, got %v", want, result)
	}
}

func TestRenderValue_MapKeysInOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		state := NewState(nil, nil, &counterGenerator{})

		result, err := RenderValue(map[string]any{
			"c": "{{ person.firstName() }}",
			"a": "{{ person.firstName() }}",
			"b": "{{ person.firstName() }}",
			"h": map[string]string{
				"y": "{{ person.firstName() }}",
				"x": "{{ person.firstName() }}",
			},
		}, state)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := map[string]any{
			"a": "person.firstName#1",
			"b": "person.firstName#2",
			"c": "person.firstName#3",
			"h": map[string]string{
				"x": "person.firstName#4",
				"y": "person.firstName#5",
			},
		}
		if !reflect.DeepEqual(result, want) {
			t.Fatalf("attempt %d: expected %v, got %v", i, want, result)
		}
	}
}

func TestIsExpression(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1", false},
		{"hello", false},
		{"{{ steps.a.output }}", true},
		{"this.state.steps.a.output", true},
		{"steps.a.output", true},
		{"envData.key", true},
	}

	for _, tt := range tests {
		if got := IsExpression(tt.input); got != tt.expected {
			t.Errorf("IsExpression(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
