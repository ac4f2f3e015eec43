package tools

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryExecute(t *testing.T) {
	registry := NewRegistry()

	err := registry.Register("loan", HandlerFunc(func(_ context.Context, inv Invocation) (*Result, error) {
		return &Result{
			Summary: "EMI computed for " + inv.Slots["amount"],
			Bullets: []string{"ok"},
			Data:    map[string]any{"amount": inv.Slots["amount"]},
		}, nil
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result, err := registry.Execute(context.Background(), "loan", Invocation{
		Slots: map[string]string{"amount": "1000000"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Summary != "EMI computed for 1000000" {
		t.Errorf("Summary = %q", result.Summary)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Execute(context.Background(), "missing", Invocation{})
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	noop := HandlerFunc(func(context.Context, Invocation) (*Result, error) { return &Result{}, nil })

	if err := registry.Register("loan", noop); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register("loan", noop); err == nil {
		t.Error("duplicate Register should error")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	noop := HandlerFunc(func(context.Context, Invocation) (*Result, error) { return &Result{}, nil })

	for _, name := range []string{"savings_fd", "credit_card", "loan"} {
		if err := registry.Register(name, noop); err != nil {
			t.Fatal(err)
		}
	}

	names := registry.Names()
	want := []string{"credit_card", "loan", "savings_fd"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
