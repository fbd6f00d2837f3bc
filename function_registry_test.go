package di

import (
	"reflect"
	"testing"
)

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Lookup is case insensitive.
	result, err := registry.Call("double", 21)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestFunctionRegistryRejectsInvalidRegistrations(t *testing.T) {
	registry := NewFunctionRegistry()

	if err := registry.Register("", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := registry.Register("fn", nil); err == nil {
		t.Fatalf("expected error for nil function")
	}

	if err := registry.Register("fn", func(...any) (any, error) { return nil, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("FN", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestFunctionRegistryCallUnknown(t *testing.T) {
	registry := NewFunctionRegistry()
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for unknown function")
	}

	var nilRegistry *FunctionRegistry
	if _, err := nilRegistry.Call("anything"); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestFunctionRegistryNamesSorted(t *testing.T) {
	registry := NewFunctionRegistry()
	for _, name := range []string{"zeta", "alpha", "Mid"} {
		if err := registry.Register(name, func(...any) (any, error) { return nil, nil }); err != nil {
			t.Fatalf("register %q: %v", name, err)
		}
	}

	want := []string{"alpha", "mid", "zeta"}
	if got := registry.Names(); !reflect.DeepEqual(want, got) {
		t.Fatalf("unexpected names: want %v got %v", want, got)
	}
}

func TestFunctionRegistryCloneIsDetached(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("fn", func(...any) (any, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	clone := registry.Clone()
	if err := clone.Register("extra", func(...any) (any, error) { return 2, nil }); err != nil {
		t.Fatalf("register on clone: %v", err)
	}

	if _, err := registry.Call("extra"); err == nil {
		t.Fatalf("expected clone registration not to leak into source")
	}
	if _, err := clone.Call("fn"); err != nil {
		t.Fatalf("expected clone to carry existing functions: %v", err)
	}

	var nilRegistry *FunctionRegistry
	if nilRegistry.Clone() != nil {
		t.Fatalf("expected nil clone for nil registry")
	}
}
