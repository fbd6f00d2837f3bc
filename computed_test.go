package di

import (
	"errors"
	"strings"
	"testing"
)

func TestComputedComputesDefault(t *testing.T) {
	provider, err := NewComputed[int]("replicas * 2",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	got, err := provider.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestComputedOverrideWins(t *testing.T) {
	provider, err := NewComputed[int]("replicas * 2",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	provider.Set(100)
	if got, _ := provider.Get(); got != 100 {
		t.Fatalf("expected override, got %d", got)
	}

	provider.Reset()
	if got, _ := provider.Get(); got != 8 {
		t.Fatalf("expected recomputed default after reset, got %d", got)
	}
}

func TestComputedWithCELEngine(t *testing.T) {
	provider, err := NewComputed[int]("replicas * 2",
		ComputedWithEngine(NewCELEvaluator()),
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	// CEL yields int64; the result narrows to the provider's type.
	got, err := provider.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestComputedEnvLayering(t *testing.T) {
	provider, err := NewComputed[int]("replicas",
		ComputedWithEnvPayload([]byte(`{"replicas": 1, "region": "us-east-1"}`)),
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	got, err := provider.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 4 {
		t.Fatalf("expected map env to beat payload, got %d", got)
	}

	env := provider.Env()
	if env["region"] != "us-east-1" {
		t.Fatalf("expected payload keys preserved, got %#v", env)
	}
}

func TestComputedEnvSnapshotIsDetached(t *testing.T) {
	provider, err := NewComputed[int]("replicas",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	env := provider.Env()
	env["replicas"] = 99

	if got, _ := provider.Get(); got != 4 {
		t.Fatalf("Env snapshot leaked into provider state, got %d", got)
	}
}

func TestComputedRejectsBadPayload(t *testing.T) {
	_, err := NewComputed[int]("replicas",
		ComputedWithEnvPayload([]byte(`{"replicas":`)))
	if err == nil {
		t.Fatalf("expected payload error")
	}
	if !strings.Contains(err.Error(), "environment payload") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestComputedRejectsEmptyExpression(t *testing.T) {
	if _, err := NewComputed[int](""); err == nil {
		t.Fatalf("expected error for empty expression")
	}
}

func TestComputedCompileErrorAtConstruction(t *testing.T) {
	_, err := NewComputed[int]("replicas *",
		ComputedWithProviderOptions(WithProviderName("db_pool")))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", evalErr.Engine)
	}
	if evalErr.Provider != "db_pool" {
		t.Fatalf("expected provider label, got %q", evalErr.Provider)
	}
}

func TestComputedEvaluationErrorMetadata(t *testing.T) {
	provider, err := NewComputed[int]("replicas + missing",
		ComputedWithEnv(map[string]any{"replicas": 4}),
		ComputedWithProviderOptions(WithProviderName("db_pool")))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	_, err = provider.Get()
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Provider != "db_pool" || evalErr.Expr != "replicas + missing" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
}

func TestComputedRejectsMistypedResult(t *testing.T) {
	provider, err := NewComputed[string]("replicas * 2",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	// Integers never silently convert to strings.
	_, err = provider.Get()
	if err == nil || !strings.Contains(err.Error(), "want string") {
		t.Fatalf("expected conversion rejection, got %v", err)
	}
}

func TestComputedStateAccretion(t *testing.T) {
	provider, err := NewComputed[int]("replicas",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	fields := provider.StateFields()
	if !fields.Has("override") || !fields.Has("env") {
		t.Fatalf("expected accreted state fields, got %v", fields.Names())
	}
	if base := (&Provider[int]{}).StateFields(); base.Has("env") {
		t.Fatalf("accretion leaked into the base provider: %v", base.Names())
	}
}

func TestComputedStateRoundTrip(t *testing.T) {
	source, err := NewComputed[int]("replicas",
		ComputedWithEnv(map[string]any{"replicas": 4}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}
	source.Set(100)

	target, err := NewComputed[int]("replicas",
		ComputedWithEnv(map[string]any{"replicas": 1}))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	state := source.ExportState()
	if err := target.ImportState(state); err != nil {
		t.Fatalf("import: %v", err)
	}

	if got, _ := target.Get(); got != 100 {
		t.Fatalf("expected imported override, got %d", got)
	}
	target.Reset()
	if got, _ := target.Get(); got != 4 {
		t.Fatalf("expected imported env after reset, got %d", got)
	}

	// The exported mapping is a snapshot, not a live view.
	state["env"].(map[string]any)["replicas"] = 99
	target2, err := NewComputed[int]("replicas")
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}
	if err := target2.ImportState(source.ExportState()); err != nil {
		t.Fatalf("import: %v", err)
	}
	target2.Reset()
	if got, _ := target2.Get(); got != 4 {
		t.Fatalf("exported state aliased provider env, got %d", got)
	}
}

func TestComputedImportStateRejectsBadEnv(t *testing.T) {
	provider, err := NewComputed[int]("replicas")
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	if err := provider.ImportState(map[string]any{"override": 1}); err == nil {
		t.Fatalf("expected error for missing env field")
	}
	err = provider.ImportState(map[string]any{"override": 1, "env": "not a map"})
	if err == nil || !strings.Contains(err.Error(), "map[string]any") {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestComputedLoggerObservesEvaluations(t *testing.T) {
	var events []EvaluatorLogEvent
	provider, err := NewComputed[int]("replicas * 2",
		ComputedWithEnv(map[string]any{"replicas": 4}),
		ComputedWithProviderOptions(WithProviderName("db_pool")),
		ComputedWithLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	if _, err := provider.Get(); err != nil {
		t.Fatalf("get: %v", err)
	}
	provider.Set(100)
	if _, err := provider.Get(); err != nil {
		t.Fatalf("get override: %v", err)
	}

	// Overridden Gets never evaluate, so exactly one event is recorded.
	if len(events) != 1 {
		t.Fatalf("expected one evaluation event, got %d", len(events))
	}
	event := events[0]
	if event.Engine != "expr" || event.Expr != "replicas * 2" || event.Provider != "db_pool" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Err != nil {
		t.Fatalf("unexpected event error %v", event.Err)
	}
}

func TestComputedLoggerObservesFailures(t *testing.T) {
	var events []EvaluatorLogEvent
	provider, err := NewComputed[int]("replicas + missing",
		ComputedWithEnv(map[string]any{"replicas": 4}),
		ComputedWithLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	if _, err := provider.Get(); err == nil {
		t.Fatalf("expected evaluation failure")
	}
	if len(events) != 1 || events[0].Err == nil {
		t.Fatalf("expected one failing event, got %#v", events)
	}
}

func TestComputedUsesProgramCacheForDefaultEngine(t *testing.T) {
	cache := newCountingCache()
	provider, err := NewComputed[int]("replicas * 2",
		ComputedWithEnv(map[string]any{"replicas": 4}),
		ComputedWithProgramCache(cache))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := provider.Get(); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if cache.sets != 1 {
		t.Fatalf("expected a single compilation, got %d", cache.sets)
	}
}

func TestComputedRegistryFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	provider, err := NewComputed[int]("double(replicas)",
		ComputedWithEnv(map[string]any{"replicas": 4}),
		ComputedWithFunctionRegistry(registry))
	if err != nil {
		t.Fatalf("new computed: %v", err)
	}

	got, err := provider.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestComputedSyncsThroughContainer(t *testing.T) {
	type tuning struct {
		Pool *Computed[int]
	}
	newTuning := func(replicas int) *tuning {
		pool, err := NewComputed[int]("replicas * 2",
			ComputedWithEnv(map[string]any{"replicas": replicas}))
		if err != nil {
			t.Fatalf("new computed: %v", err)
		}
		return &tuning{Pool: pool}
	}

	decl := newTuning(4)
	decl.Pool.Set(100)
	target := newTuning(1)

	if err := SyncContainer(decl, target); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got, _ := target.Pool.Get(); got != 100 {
		t.Fatalf("expected synced override, got %d", got)
	}
	target.Pool.Reset()
	if got, _ := target.Pool.Get(); got != 8 {
		t.Fatalf("expected synced env, got %d", got)
	}
}
