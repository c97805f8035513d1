package fakedata

import (
	"errors"
	"testing"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	for _, call := range [][2]string{
		{"person", "firstName"},
		{"internet", "email"},
		{"location", "city"},
		{"string", "uuid"},
	} {
		va, err := a.Call(call[0], call[1])
		if err != nil {
			t.Fatalf("%s.%s: unexpected error: %v", call[0], call[1], err)
		}
		vb, _ := b.Call(call[0], call[1])
		if va != vb {
			t.Errorf("%s.%s: expected equal values, got %v and %v", call[0], call[1], va, vb)
		}
	}
}

func TestGenerator_UnknownMethod(t *testing.T) {
	g := New(DefaultSeed)

	_, err := g.Call("person", "shoeSize")
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}

	_, err = g.Call("nope", "firstName")
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestGenerator_ZeroSeed(t *testing.T) {
	a, _ := New(0).Call("person", "firstName")
	b, _ := New(DefaultSeed).Call("person", "firstName")
	if a != b {
		t.Errorf("expected seed 0 to fall back to default, got %v and %v", a, b)
	}
}

func TestMethods(t *testing.T) {
	list := Methods()
	if len(list) == 0 {
		t.Fatal("expected methods")
	}
	found := false
	for _, m := range list {
		if m == "person.firstName" {
			found = true
		}
		g := New(DefaultSeed)
		cat, name := split(m)
		if _, err := g.Call(cat, name); err != nil {
			t.Errorf("%s: %v", m, err)
		}
	}
	if !found {
		t.Error("expected person.firstName in methods")
	}
}

func split(m string) (string, string) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] == '.' {
			return m[:i], m[i+1:]
		}
	}
	return m, ""
}
