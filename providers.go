package di

import "github.com/google/uuid"

// Static builds a provider whose default is a fixed value.
func Static[V any](value V, opts ...ProviderOption) *Provider[V] {
	return NewProvider(func() (V, error) {
		return value, nil
	}, opts...)
}

// Factory builds a provider whose default is computed by fn on every
// resolution. Results are never cached.
func Factory[V any](fn func() (V, error), opts ...ProviderOption) *Provider[V] {
	return NewProvider(fn, opts...)
}

// UUIDString builds a provider producing a fresh UUID string per resolution.
func UUIDString(opts ...ProviderOption) *Provider[string] {
	return NewProvider(func() (string, error) {
		return uuid.NewString(), nil
	}, opts...)
}
