package di

import "time"

// EvalContext carries the inputs available to an expression while computing a
// provider default.
type EvalContext struct {
	// Env is the layered environment exposed to the expression as top-level
	// bindings.
	Env map[string]any
	// Args holds per-evaluation arguments, exposed as "args".
	Args map[string]any
	// Now pins the evaluation timestamp; defaults to time.Now.
	Now *time.Time
	// Provider labels the provider being computed, for errors and logging.
	Provider string
}

func (ctx EvalContext) withDefaultNow() EvalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx EvalContext) withDefaultMaps() EvalContext {
	if ctx.Env == nil {
		ctx.Env = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx EvalContext) providerLabel() string {
	if ctx.Provider != "" {
		return ctx.Provider
	}
	return "unknown"
}

// Evaluator executes expressions against an evaluation context. Engines back
// the default-computation strategy of Computed providers.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if jsEngineName(e) != "" {
			return jsEngineName(e)
		}
		return "custom"
	}
}
