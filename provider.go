package di

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bojiang/simple-di/pkg/activity"
)

// Dependency is the untyped view of a provider used by the injection wrapper
// and by container synchronization. Every provider type in this module
// implements it.
type Dependency interface {
	// Resolve returns the provider's current value: the override when one is
	// set, the computed default otherwise.
	Resolve() (any, error)
	// Set replaces the override unless value is the Skip sentinel.
	Set(value any)
	// Reset forces the override back to unset.
	Reset()

	State
}

// ProviderOption configures a provider at construction time.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	name    string
	emitter *activity.Emitter
}

// WithProviderName labels the provider in activity events and evaluation
// errors. Unnamed providers fall back to a generated instance ID.
func WithProviderName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.name = name
	}
}

// WithEmitter attaches an activity emitter notified on Set, Patch and Reset.
// Emission is best effort and never alters provider semantics.
func WithEmitter(emitter *activity.Emitter) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.emitter = emitter
	}
}

// Provider produces a value of type V from either a caller-set override or a
// default-computation strategy. The zero strategy is abstract: a Provider
// constructed without one fails Get with ErrNotImplemented, mirroring how
// concrete provider types are expected to supply their own computation.
//
// Providers are not safe for unsynchronized concurrent mutation; the contract
// is single-threaded and the caller owns any cross-goroutine coordination.
type Provider[V any] struct {
	override any
	provide  func() (V, error)
	name     string
	id       string
	emitter  *activity.Emitter
}

// NewProvider builds a provider around the given default-computation
// strategy. A nil strategy yields an abstract provider whose Get fails with
// ErrNotImplemented until an override is set.
func NewProvider[V any](provide func() (V, error), opts ...ProviderOption) *Provider[V] {
	cfg := providerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Provider[V]{
		override: NotPassed,
		provide:  provide,
		name:     cfg.name,
		id:       uuid.NewString(),
		emitter:  cfg.emitter,
	}
}

// Name returns the configured provider name, or the generated instance ID
// when the provider is unnamed.
func (p *Provider[V]) Name() string {
	if p.name != "" {
		return p.name
	}
	return p.id
}

// Get returns the override when one is set, otherwise the computed default.
// The unset case never fails; only a missing computation strategy does.
func (p *Provider[V]) Get() (V, error) {
	if !IsSentinel(p.override) {
		var zero V
		if p.override == nil {
			return zero, nil
		}
		value, ok := p.override.(V)
		if !ok {
			return zero, fmt.Errorf("di: override of type %T is not assignable to %T", p.override, zero)
		}
		return value, nil
	}
	if p.provide == nil {
		var zero V
		return zero, ErrNotImplemented
	}
	return p.provide()
}

// Set replaces the override with value. Passing Skip leaves the current
// override untouched.
func (p *Provider[V]) Set(value any) {
	if IsSentinel(value) {
		return
	}
	p.override = value
	p.emit(activity.BuildProviderSetEvent(activity.ProviderEventInput{
		Provider: p.Name(),
	}))
}

// Patch installs value as the override for the duration of body and restores
// the previous override on every exit path, including panics propagating out
// of body. Passing Skip runs body with no state change and no restoration
// bookkeeping at all.
//
// Patch(Skip) is deliberately a strict no-op: there is no way to patch a
// provider into a temporarily-unset state. Callers needing that must pair
// Reset with Set themselves.
func (p *Provider[V]) Patch(value any, body func() error) error {
	if IsSentinel(value) {
		return body()
	}
	patchID := uuid.NewString()
	saved := p.override
	p.override = value
	p.emit(activity.BuildProviderPatchedEvent(activity.ProviderEventInput{
		Provider: p.Name(),
		PatchID:  patchID,
	}))
	defer func() {
		p.override = saved
		p.emit(activity.BuildProviderRestoredEvent(activity.ProviderEventInput{
			Provider: p.Name(),
			PatchID:  patchID,
		}))
	}()
	return body()
}

// Reset removes the override so Get falls back to the computed default.
func (p *Provider[V]) Reset() {
	p.override = NotPassed
	p.emit(activity.BuildProviderResetEvent(activity.ProviderEventInput{
		Provider: p.Name(),
	}))
}

// Resolve implements Dependency by boxing Get's result.
func (p *Provider[V]) Resolve() (any, error) {
	return p.Get()
}

// StateFields returns the base provider state: just the override slot.
// Embedding types shadow this with their accreted FieldSet.
func (p *Provider[V]) StateFields() FieldSet {
	return ProviderStateFields
}

// ExportState snapshots the override slot into a flat mapping.
func (p *Provider[V]) ExportState() map[string]any {
	return map[string]any{"override": p.override}
}

// ImportState restores the override slot from a mapping previously produced
// by ExportState.
func (p *Provider[V]) ImportState(state map[string]any) error {
	value, err := stateField(state, "override")
	if err != nil {
		return err
	}
	p.override = value
	return nil
}

func (p *Provider[V]) emit(event activity.Event) {
	if p.emitter == nil || !p.emitter.Enabled() {
		return
	}
	_ = p.emitter.Emit(context.Background(), event)
}
