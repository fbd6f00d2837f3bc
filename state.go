package di

import (
	"fmt"
	"slices"
)

// FieldSet is an immutable set of state field names attached to a provider
// type. Concrete provider types extend their ancestor's set once, at package
// init, so the full set is computed at type-definition time rather than per
// instance.
type FieldSet struct {
	names []string
}

// NewFieldSet builds a FieldSet from names, deduplicating and sorting them.
func NewFieldSet(names ...string) FieldSet {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return FieldSet{names: slices.Compact(out)}
}

// Extend returns the union of s and names. The operation is idempotent and
// order-irrelevant, so diamond-shaped type hierarchies accrete safely.
func (s FieldSet) Extend(names ...string) FieldSet {
	combined := make([]string, 0, len(s.names)+len(names))
	combined = append(combined, s.names...)
	combined = append(combined, names...)
	return NewFieldSet(combined...)
}

// Names returns a defensive copy of the field names in sorted order.
func (s FieldSet) Names() []string {
	if len(s.names) == 0 {
		return nil
	}
	return slices.Clone(s.names)
}

// Has reports whether name belongs to the set.
func (s FieldSet) Has(name string) bool {
	_, found := slices.BinarySearch(s.names, name)
	return found
}

// Len returns the number of fields in the set.
func (s FieldSet) Len() int {
	return len(s.names)
}

// ProviderStateFields is the base provider's exportable state. Embedding
// types extend it with their own additions:
//
//	var cachedStateFields = di.ProviderStateFields.Extend("cache")
var ProviderStateFields = NewFieldSet("override")

// State is implemented by providers whose override state can be exported and
// imported. Export yields a flat mapping containing exactly the type's
// declared state fields; Import sets exactly those fields from a previously
// exported mapping of identical shape. Container synchronization is the only
// consumer inside this module.
type State interface {
	StateFields() FieldSet
	ExportState() map[string]any
	ImportState(state map[string]any) error
}

// stateField fetches a required field from an exported state mapping.
func stateField(state map[string]any, name string) (any, error) {
	value, ok := state[name]
	if !ok {
		return nil, fmt.Errorf("di: state missing field %q", name)
	}
	return value, nil
}
