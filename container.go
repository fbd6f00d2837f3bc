package di

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/bojiang/simple-di/pkg/activity"
)

// Containers are plain structs whose exported fields hold providers (any
// value implementing State) or nested container structs. The composition-root
// instance plays the role of the declaration: SyncContainer always reads from
// it and writes into a live instance of the same type.

// FieldDescriptor describes one container field path and its kind: "provider",
// "container", or the Go type name for anything else.
type FieldDescriptor struct {
	Path string
	Kind string
}

// Describe walks container's declared fields and returns descriptors with
// dotted paths, recursing into nested containers.
func Describe(container any) ([]FieldDescriptor, error) {
	value, err := containerValue(container)
	if err != nil {
		return nil, err
	}
	return describeFields(value, ""), nil
}

func describeFields(container reflect.Value, prefix string) []FieldDescriptor {
	t := container.Type()
	var fields []FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := joinPath(prefix, field.Name)
		fv := container.Field(i)
		switch classifyField(fv) {
		case fieldProvider:
			fields = append(fields, FieldDescriptor{Path: path, Kind: "provider"})
		case fieldContainer:
			fields = append(fields, FieldDescriptor{Path: path, Kind: "container"})
			fields = append(fields, describeFields(reflect.Indirect(fv), path)...)
		default:
			fields = append(fields, FieldDescriptor{Path: path, Kind: field.Type.String()})
		}
	}
	return fields
}

// Lookup returns the provider at a dotted field path inside container.
func Lookup(container any, path string) (Dependency, error) {
	value, err := containerValue(container)
	if err != nil {
		return nil, err
	}
	current := value
	segments := strings.Split(path, ".")
	for i, segment := range segments {
		if current.Kind() != reflect.Struct {
			return nil, fmt.Errorf("di: path %q: %q is not a container", path, strings.Join(segments[:i], "."))
		}
		field := current.FieldByName(segment)
		if !field.IsValid() {
			return nil, fmt.Errorf("di: path %q: no field %q", path, segment)
		}
		if i == len(segments)-1 {
			dep, ok := field.Interface().(Dependency)
			if !ok || isNilValue(field) {
				return nil, fmt.Errorf("di: path %q: not a provider", path)
			}
			return dep, nil
		}
		current = reflect.Indirect(field)
	}
	return nil, fmt.Errorf("di: path %q: not a provider", path)
}

// SyncOption configures a synchronization pass.
type SyncOption func(*syncConfig)

type syncConfig struct {
	emitter *activity.Emitter
}

// SyncWithEmitter emits a container.synced event after a successful pass.
// Emission is best effort and never alters synchronization semantics.
func SyncWithEmitter(emitter *activity.Emitter) SyncOption {
	return func(cfg *syncConfig) {
		cfg.emitter = emitter
	}
}

// SyncContainer copies provider override state from the declaration decl into
// target, a live instance of the same structural type. For every declared
// field: a provider's exported state is imported onto the target's
// corresponding provider; nested containers recurse; fields absent (nil) on
// the target, and non-provider fields, are left untouched. The declaration is
// never mutated.
func SyncContainer(decl, target any, opts ...SyncOption) error {
	_, err := syncContainer(decl, target, false, opts)
	return err
}

// SyncContainerTrace behaves like SyncContainer and additionally reports
// which fields were synchronized.
func SyncContainerTrace(decl, target any, opts ...SyncOption) (Trace, error) {
	return syncContainer(decl, target, true, opts)
}

func syncContainer(decl, target any, traced bool, opts []SyncOption) (Trace, error) {
	cfg := syncConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	dv, err := containerValue(decl)
	if err != nil {
		return Trace{}, err
	}
	tv, err := containerValue(target)
	if err != nil {
		return Trace{}, err
	}
	if dv.Type() != tv.Type() {
		return Trace{}, fmt.Errorf("di: container type mismatch: %s vs %s", dv.Type(), tv.Type())
	}
	trace := Trace{Container: dv.Type().String()}
	if err := syncFields(dv, tv, "", traced, &trace); err != nil {
		return Trace{}, err
	}
	if cfg.emitter != nil && cfg.emitter.Enabled() {
		_ = cfg.emitter.Emit(context.Background(), activity.BuildContainerSyncedEvent(activity.ProviderEventInput{
			Container: trace.Container,
		}))
	}
	return trace, nil
}

func syncFields(decl, target reflect.Value, prefix string, traced bool, trace *Trace) error {
	t := target.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		path := joinPath(prefix, field.Name)
		dField := decl.Field(i)
		tField := target.Field(i)

		switch classifyField(dField) {
		case fieldProvider:
			if isNilValue(tField) {
				recordField(traced, trace, path, "provider", false)
				continue
			}
			tgt, ok := tField.Interface().(State)
			if !ok {
				recordField(traced, trace, path, "provider", false)
				continue
			}
			src := dField.Interface().(State)
			if err := tgt.ImportState(src.ExportState()); err != nil {
				return fmt.Errorf("di: sync %s: %w", path, err)
			}
			recordField(traced, trace, path, "provider", true)
		case fieldContainer:
			if isNilValue(tField) {
				recordField(traced, trace, path, "container", false)
				continue
			}
			if err := syncFields(reflect.Indirect(dField), reflect.Indirect(tField), path, traced, trace); err != nil {
				return err
			}
		default:
			recordField(traced, trace, path, field.Type.String(), false)
		}
	}
	return nil
}

func recordField(traced bool, trace *Trace, path, kind string, synced bool) {
	if !traced {
		return
	}
	trace.Fields = append(trace.Fields, FieldTrace{Path: path, Kind: kind, Synced: synced})
}

type fieldKind int

const (
	fieldOther fieldKind = iota
	fieldProvider
	fieldContainer
)

func classifyField(v reflect.Value) fieldKind {
	if !v.IsValid() || !v.CanInterface() || isNilValue(v) {
		return fieldOther
	}
	if _, ok := v.Interface().(State); ok {
		return fieldProvider
	}
	switch v.Kind() {
	case reflect.Struct:
		return fieldContainer
	case reflect.Pointer:
		if v.Type().Elem().Kind() == reflect.Struct {
			return fieldContainer
		}
	}
	return fieldOther
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

func containerValue(container any) (reflect.Value, error) {
	if container == nil {
		return reflect.Value{}, fmt.Errorf("di: container must not be nil")
	}
	value := reflect.Indirect(reflect.ValueOf(container))
	if value.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("di: container must be a struct, got %T", container)
	}
	return value, nil
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
