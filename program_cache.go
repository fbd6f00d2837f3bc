package di

// ProgramCache stores compiled expression programs keyed by expression
// strings. Only compilation results are cached; computed default values are
// never cached.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
