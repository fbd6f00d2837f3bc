package di

import (
	"fmt"
	"reflect"
	"runtime"
)

// Param describes one parameter of an injected function: a name plus an
// optional default. Go reflection exposes no parameter names, so injected
// functions declare their signature as an explicit descriptor list built once
// at wrap time; no introspection happens per call.
type Param struct {
	name       string
	def        any
	hasDefault bool
}

// RequiredParam declares a parameter with no default: a call that leaves it
// unbound fails with a BindError.
func RequiredParam(name string) Param {
	return Param{name: name}
}

// DefaultParam declares a parameter with a default. The default may be a
// literal or a Dependency; a Dependency stays unresolved until call time.
func DefaultParam(name string, value any) Param {
	return Param{name: name, def: value, hasDefault: true}
}

// Name returns the declared parameter name.
func (p Param) Name() string {
	return p.name
}

// NamedArg carries a by-name call argument built with Named.
type NamedArg struct {
	Name  string
	Value any
}

// Named binds value to the parameter called name for a single call. Named
// arguments must follow all positional arguments.
func Named(name string, value any) NamedArg {
	return NamedArg{Name: name, Value: value}
}

// InjectOption configures the injection wrapper.
type InjectOption func(*injectConfig)

type injectConfig struct {
	squeezeNone bool
	name        string
}

// WithSqueezeNone makes Call drop untyped-nil arguments instead of NotPassed
// ones, so nil call sites fall back to declared defaults.
func WithSqueezeNone() InjectOption {
	return func(cfg *injectConfig) {
		cfg.squeezeNone = true
	}
}

// WithFuncName labels the wrapper in binding errors. Defaults to the runtime
// name of the target function.
func WithFuncName(name string) InjectOption {
	return func(cfg *injectConfig) {
		cfg.name = name
	}
}

// Func is an injected callable. Its parameter descriptors and reflected
// signature are computed once by Inject; Call binds, resolves and invokes.
type Func struct {
	target      reflect.Value
	ins         []reflect.Type
	params      []Param
	index       map[string]int
	name        string
	squeezeNone bool
	errOut      bool
}

// Inject wraps fn so Dependency-valued parameter defaults resolve to concrete
// values at call time while explicit call-site arguments still win. Wrapping
// an already-wrapped *Func is a no-op returning the same wrapper. Anything
// other than a function (or a previous wrapper) fails with ErrInvalidArgument.
func Inject(fn any, params []Param, opts ...InjectOption) (*Func, error) {
	if wrapped, ok := fn.(*Func); ok {
		return wrapped, nil
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: inject requires a callable", ErrInvalidArgument)
	}
	target := reflect.ValueOf(fn)
	if target.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: inject requires a callable, got %T", ErrInvalidArgument, fn)
	}

	cfg := injectConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	t := target.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic functions cannot be injected", ErrInvalidArgument)
	}
	if t.NumIn() != len(params) {
		return nil, fmt.Errorf("%w: %d parameter descriptors for a function of %d parameters",
			ErrInvalidArgument, len(params), t.NumIn())
	}

	index := make(map[string]int, len(params))
	ins := make([]reflect.Type, len(params))
	for i, param := range params {
		if param.name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrInvalidArgument, i)
		}
		if _, exists := index[param.name]; exists {
			return nil, fmt.Errorf("%w: duplicate parameter name %q", ErrInvalidArgument, param.name)
		}
		index[param.name] = i
		ins[i] = t.In(i)
	}

	name := cfg.name
	if name == "" {
		name = runtime.FuncForPC(target.Pointer()).Name()
	}

	errOut := t.NumOut() > 0 && t.Out(t.NumOut()-1) == reflect.TypeOf((*error)(nil)).Elem()

	return &Func{
		target:      target,
		ins:         ins,
		params:      params,
		index:       index,
		name:        name,
		squeezeNone: cfg.squeezeNone,
		errOut:      errOut,
	}, nil
}

// Injector returns a reusable wrapper factory carrying opts, for callers that
// configure injection once and apply it to many functions.
func Injector(opts ...InjectOption) func(fn any, params []Param) (*Func, error) {
	return func(fn any, params []Param) (*Func, error) {
		return Inject(fn, params, opts...)
	}
}

// Name returns the wrapper's label used in binding errors.
func (f *Func) Name() string {
	return f.name
}

// Call invokes the wrapped function. Arguments are positional values
// optionally followed by Named ones. Before binding, NotPassed arguments are
// dropped (or untyped-nil ones in squeeze-none mode); unbound parameters take
// their declared default, and every bound Dependency resolves via Resolve.
// Results are the target's return values with a trailing error split off.
func (f *Func) Call(args ...any) ([]any, error) {
	bound := make([]any, len(f.params))
	isBound := make([]bool, len(f.params))

	pos := 0
	sawNamed := false
	for _, arg := range args {
		if named, ok := arg.(NamedArg); ok {
			sawNamed = true
			if f.dropped(named.Value) {
				continue
			}
			i, ok := f.index[named.Name]
			if !ok {
				return nil, &BindError{Func: f.name, Param: named.Name, Err: fmt.Errorf("unexpected argument")}
			}
			if isBound[i] {
				return nil, &BindError{Func: f.name, Param: named.Name, Err: fmt.Errorf("multiple values")}
			}
			bound[i] = named.Value
			isBound[i] = true
			continue
		}
		if sawNamed {
			return nil, &BindError{Func: f.name, Err: fmt.Errorf("positional argument after named argument")}
		}
		if f.dropped(arg) {
			continue
		}
		if pos >= len(f.params) {
			return nil, &BindError{Func: f.name, Err: fmt.Errorf("too many positional arguments")}
		}
		if isBound[pos] {
			return nil, &BindError{Func: f.name, Param: f.params[pos].name, Err: fmt.Errorf("multiple values")}
		}
		bound[pos] = arg
		isBound[pos] = true
		pos++
	}

	for i, param := range f.params {
		if isBound[i] {
			continue
		}
		if !param.hasDefault {
			return nil, &BindError{Func: f.name, Param: param.name, Err: fmt.Errorf("missing required argument")}
		}
		bound[i] = param.def
	}

	in := make([]reflect.Value, len(bound))
	for i, value := range bound {
		if dep, ok := value.(Dependency); ok {
			resolved, err := dep.Resolve()
			if err != nil {
				return nil, err
			}
			value = resolved
		}
		arg, err := argValue(f.ins[i], value)
		if err != nil {
			return nil, &BindError{Func: f.name, Param: f.params[i].name, Err: err}
		}
		in[i] = arg
	}

	out := f.target.Call(in)

	if f.errOut {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	results := make([]any, len(out))
	for i, value := range out {
		results[i] = value.Interface()
	}
	return results, nil
}

// dropped reports whether an argument value is filtered out before binding:
// the NotPassed sentinel by default, untyped nil in squeeze-none mode. In
// default mode an explicit nil binds literally.
func (f *Func) dropped(value any) bool {
	if f.squeezeNone {
		return value == nil
	}
	return IsSentinel(value)
}

func argValue(t reflect.Type, value any) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", t)
		}
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", value, t)
	}
	return rv, nil
}
