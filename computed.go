package di

import (
	"fmt"
	"reflect"
	"time"

	"github.com/bojiang/simple-di/internal/hydrate"
	"github.com/bojiang/simple-di/internal/merge"
)

// computedStateFields accretes the base provider's state with the evaluation
// environment. Computed once at package init, never per instance.
var computedStateFields = ProviderStateFields.Extend("env")

// ComputedOption configures a Computed provider.
type ComputedOption func(*computedConfig)

type computedConfig struct {
	engine       Evaluator
	env          map[string]any
	payloads     [][]byte
	cache        ProgramCache
	registry     *FunctionRegistry
	logger       EvaluatorLogger
	providerOpts []ProviderOption
}

// ComputedWithEngine selects the evaluator engine. Defaults to the expr
// engine when unset.
func ComputedWithEngine(engine Evaluator) ComputedOption {
	return func(cfg *computedConfig) {
		cfg.engine = engine
	}
}

// ComputedWithEnv layers env on top of any previously configured environment.
func ComputedWithEnv(env map[string]any) ComputedOption {
	return func(cfg *computedConfig) {
		cfg.env = merge.Envs(cfg.env, env)
	}
}

// ComputedWithEnvPayload hydrates part of the environment from a JSON
// payload. Payloads are weaker than maps given via ComputedWithEnv.
func ComputedWithEnvPayload(payload []byte) ComputedOption {
	return func(cfg *computedConfig) {
		cfg.payloads = append(cfg.payloads, payload)
	}
}

// ComputedWithProgramCache registers a compile cache on the provider.
func ComputedWithProgramCache(cache ProgramCache) ComputedOption {
	return func(cfg *computedConfig) {
		cfg.cache = cache
	}
}

// ComputedWithFunctionRegistry exposes registry functions to the expression.
func ComputedWithFunctionRegistry(registry *FunctionRegistry) ComputedOption {
	return func(cfg *computedConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// ComputedWithLogger records evaluation attempts.
func ComputedWithLogger(logger EvaluatorLogger) ComputedOption {
	return func(cfg *computedConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// ComputedWithProviderOptions forwards options to the embedded provider.
func ComputedWithProviderOptions(opts ...ProviderOption) ComputedOption {
	return func(cfg *computedConfig) {
		cfg.providerOpts = append(cfg.providerOpts, opts...)
	}
}

// Computed is a provider whose default is computed by evaluating an
// expression against a layered environment. It demonstrates state-field
// accretion: its exportable state is the base override slot plus "env".
type Computed[V any] struct {
	Provider[V]

	expression string
	engine     Evaluator
	engineName string
	program    CompiledRule
	env        map[string]any
	logger     EvaluatorLogger
}

// NewComputed compiles expression once and returns a provider computing its
// default per resolution. The expression sees the configured environment as
// top-level bindings, plus "now" and "args".
func NewComputed[V any](expression string, opts ...ComputedOption) (*Computed[V], error) {
	if expression == "" {
		return nil, wrapEvaluatorError("computed", fmt.Errorf("expression must not be empty"))
	}
	cfg := computedConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &Computed[V]{
		expression: expression,
		logger:     cfg.logger,
	}
	if c.logger == nil {
		c.logger = noopEvaluatorLogger{}
	}

	c.Provider = *NewProvider[V](nil, cfg.providerOpts...)
	c.Provider.provide = c.compute

	env, err := hydrateEnv(c.Provider.Name(), cfg.payloads)
	if err != nil {
		return nil, err
	}
	c.env = merge.Envs(env, cfg.env)

	c.engine = cfg.engine
	if c.engine == nil {
		var exprOpts []ExprEvaluatorOption
		if cfg.cache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(cfg.cache))
		}
		if cfg.registry != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.registry))
		}
		c.engine = NewExprEvaluator(exprOpts...)
	}
	c.engineName = evaluatorEngineName(c.engine)

	program, err := c.engine.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(c.engineName, expression, c.Provider.Name(), err)
	}
	c.program = program
	return c, nil
}

// Env returns a snapshot of the provider's evaluation environment.
func (c *Computed[V]) Env() map[string]any {
	return merge.Clone(c.env)
}

// Expression returns the configured expression.
func (c *Computed[V]) Expression() string {
	return c.expression
}

// StateFields returns the accreted state: override plus env.
func (c *Computed[V]) StateFields() FieldSet {
	return computedStateFields
}

// ExportState snapshots the override slot and the evaluation environment.
func (c *Computed[V]) ExportState() map[string]any {
	state := c.Provider.ExportState()
	state["env"] = merge.Clone(c.env)
	return state
}

// ImportState restores both the override slot and the environment from a
// mapping previously produced by ExportState.
func (c *Computed[V]) ImportState(state map[string]any) error {
	if err := c.Provider.ImportState(state); err != nil {
		return err
	}
	value, err := stateField(state, "env")
	if err != nil {
		return err
	}
	if value == nil {
		c.env = nil
		return nil
	}
	env, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("di: state field %q holds %T, want map[string]any", "env", value)
	}
	c.env = merge.Clone(env)
	return nil
}

func (c *Computed[V]) compute() (V, error) {
	var zero V
	ctx := EvalContext{
		Env:      c.env,
		Provider: c.Provider.Name(),
	}
	start := time.Now()
	result, err := c.program.Evaluate(ctx)
	duration := time.Since(start)
	err = wrapEvaluationError(c.engineName, c.expression, ctx.providerLabel(), err)
	c.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   c.engineName,
		Expr:     c.expression,
		Provider: ctx.providerLabel(),
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return zero, err
	}
	return convertResult[V](c.engineName, c.expression, ctx.providerLabel(), result)
}

// convertResult narrows an evaluator's result into V. Engines disagree on
// numeric widths (expr yields int, CEL yields int64), so convertible kinds
// are converted rather than rejected.
func convertResult[V any](engine, expression, provider string, result any) (V, error) {
	var zero V
	target := reflect.TypeOf(&zero).Elem()
	if result == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return zero, nil
		default:
			return zero, wrapEvaluationError(engine, expression, provider,
				fmt.Errorf("expression produced nil, want %s", target))
		}
	}
	if typed, ok := result.(V); ok {
		return typed, nil
	}
	value := reflect.ValueOf(result)
	// Integer-to-string conversion in reflect means rune conversion; reject
	// it instead of producing "A" from 65.
	if value.Type().ConvertibleTo(target) && !(target.Kind() == reflect.String && value.Kind() != reflect.String) {
		return value.Convert(target).Interface().(V), nil
	}
	return zero, wrapEvaluationError(engine, expression, provider,
		fmt.Errorf("expression produced %T, want %s", result, target))
}

func hydrateEnv(provider string, payloads [][]byte) (map[string]any, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	decoder := hydrate.NewDecoder[map[string]any]()
	env := map[string]any{}
	for _, payload := range payloads {
		decoded, err := decoder.Decode(hydrate.Context{Provider: provider}, payload)
		if err != nil {
			return nil, fmt.Errorf("di: environment payload: %w", err)
		}
		env = merge.Envs(env, decoded)
	}
	return env, nil
}
