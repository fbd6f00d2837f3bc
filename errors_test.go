package di

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "replicas * 2", "db_pool", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "replicas * 2" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Provider != "db_pool" {
		t.Fatalf("expected provider metadata, got %q", evalErr.Provider)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "db_pool", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Provider != "db_pool" {
		t.Fatalf("provider should be filled, got %q", existing.Provider)
	}
}

func TestWrapEvaluationErrorNil(t *testing.T) {
	if err := wrapEvaluationError("expr", "1 + 1", "db_pool", nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}
	if err := wrapEvaluatorError("expr", nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}
}

func TestEvaluationErrorMessage(t *testing.T) {
	err := &EvaluationError{
		Engine:   "cel",
		Expr:     "replicas * 2",
		Provider: "db_pool",
		Err:      errors.New("boom"),
	}
	message := err.Error()
	for _, fragment := range []string{"cel", `expr="replicas * 2"`, "provider=db_pool", "boom"} {
		if !strings.Contains(message, fragment) {
			t.Fatalf("expected %q in message %q", fragment, message)
		}
	}

	empty := &EvaluationError{Engine: "expr", Err: errors.New("boom")}
	if !strings.Contains(empty.Error(), "expr=<empty>") {
		t.Fatalf("expected empty expression marker, got %q", empty.Error())
	}
}

func TestBindErrorMessage(t *testing.T) {
	base := errors.New("missing required argument")
	err := &BindError{Func: "connect", Param: "host", Err: base}

	if !errors.Is(err, base) {
		t.Fatalf("expected BindError to unwrap")
	}
	if got := err.Error(); !strings.Contains(got, "connect") || !strings.Contains(got, `"host"`) {
		t.Fatalf("unexpected message %q", got)
	}

	unnamed := &BindError{Err: base}
	if !strings.Contains(unnamed.Error(), "<func>") {
		t.Fatalf("expected placeholder for unnamed function, got %q", unnamed.Error())
	}
}
