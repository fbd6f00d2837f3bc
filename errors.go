package di

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented indicates Get fell through to a provider with no
	// default-computation strategy.
	ErrNotImplemented = errors.New("di: default computation not implemented")
	// ErrInvalidArgument indicates Inject received neither a callable nor a
	// wrapper produced by a previous Inject call.
	ErrInvalidArgument = errors.New("di: invalid argument")
)

// BindError reports that call arguments could not bind against an injected
// function's parameter descriptors.
type BindError struct {
	Func  string
	Param string
	Err   error
}

func (e *BindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Func
	if name == "" {
		name = "<func>"
	}
	if e.Param == "" {
		return fmt.Sprintf("di: %s: %v", name, e.Err)
	}
	return fmt.Sprintf("di: %s: parameter %q: %v", name, e.Param, e.Err)
}

func (e *BindError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures evaluator metadata alongside the originating error
// raised while computing a provider default.
type EvaluationError struct {
	Engine   string
	Expr     string
	Provider string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("di: %s evaluator %s provider=%s: %v", e.Engine, describeExpression(e.Expr), e.Provider, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	return fmt.Errorf("di: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, provider string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Provider == "" {
			evalErr.Provider = provider
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:   engine,
		Expr:     expr,
		Provider: provider,
		Err:      err,
	}
}
