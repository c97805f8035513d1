package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shaiso/flowrequests/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other code", &pgconn.PgError{Code: "23503"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMarshalWorkflow_EmptyCollections(t *testing.T) {
	nodes, env, err := marshalWorkflow(&domain.Workflow{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(nodes) != "[]" || string(env) != "[]" {
		t.Errorf("expected empty arrays, got %s and %s", nodes, env)
	}
}

func TestMarshalWorkflow_RoundTripsSettings(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: domain.Sequence{
			{Type: "start", Name: "start"},
			{Type: "api", Name: "fetch", Settings: map[string]any{"url": "{{ envData.base }}"}},
		},
		EnvData: []domain.EnvVar{{Key: "base", Value: "http://x"}},
	}

	nodesJSON, _, err := marshalWorkflow(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back domain.Sequence
	if err := json.Unmarshal(nodesJSON, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(back) != 2 || back[1].Settings["url"] != "{{ envData.base }}" {
		t.Errorf("unexpected nodes %+v", back)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("") != nil {
		t.Error("expected nil for empty string")
	}
	if s := nullString("x"); s == nil || *s != "x" {
		t.Error("expected pointer to x")
	}
	if nullInt(0) != nil {
		t.Error("expected nil for zero")
	}
	id := uuid.Nil
	if nullUUID(&id) != nil {
		t.Error("expected nil for uuid.Nil")
	}
	if nullUUID(nil) != nil {
		t.Error("expected nil for nil pointer")
	}
}
