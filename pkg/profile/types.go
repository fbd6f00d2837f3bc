package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	di "github.com/bojiang/simple-di"
)

var ErrETagMismatch = errors.New("profile: etag mismatch")

// Ref identifies one persisted profile for one container domain.
type Ref struct {
	Domain string
	Name   string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Profile maps container field paths (dotted, as returned by di.Describe) to
// override values.
type Profile map[string]any

// Store loads/saves one profile for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (profile Profile, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, profile Profile, meta Meta) (Meta, error)
}

func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("profile: domain is required")
	}
	if r.Name == "" {
		return "", fmt.Errorf("profile: name is required")
	}
	return fmt.Sprintf("%s/%s", r.Domain, r.Name), nil
}

// Merge composes profiles ordered from weakest to strongest, returning a new
// profile where later entries win per path.
func Merge(profiles ...Profile) Profile {
	merged := Profile{}
	for _, p := range profiles {
		for path, value := range p {
			merged[path] = value
		}
	}
	return merged
}

// Apply sets each profile entry as an override on the provider reachable at
// that path in container. Unknown paths fail before any override is written.
func Apply(p Profile, container any) error {
	deps := make(map[string]di.Dependency, len(p))
	for path := range p {
		dep, err := di.Lookup(container, path)
		if err != nil {
			return fmt.Errorf("profile: apply %q: %w", path, err)
		}
		deps[path] = dep
	}
	for path, dep := range deps {
		dep.Set(p[path])
	}
	return nil
}

// Mutator edits a profile in place during Mutate.
type Mutator func(Profile) error

// Resolver orchestrates profile loads and mutations against a Store.
type Resolver struct {
	Store Store
}

// Resolve loads the profiles named by refs and merges them, later refs
// winning. Missing profiles are skipped; at least one must exist.
func (r Resolver) Resolve(ctx context.Context, refs ...Ref) (Profile, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("profile: store is required")
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("profile: at least one ref is required")
	}

	loaded := make([]Profile, 0, len(refs))
	for _, ref := range refs {
		p, _, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("profile: load %q/%q: %w", ref.Domain, ref.Name, err)
		}
		if !ok {
			continue
		}
		loaded = append(loaded, p)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("profile: no profiles found")
	}
	return Merge(loaded...), nil
}

// Mutate loads one profile, applies fn, then saves. Meta.ETag, when both
// sides carry one, must match the stored value or the save is rejected.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (Profile, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("profile: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("profile: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}

	current, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("profile: load %q/%q: %w", ref.Domain, ref.Name, err)
	}
	if !ok {
		current = Profile{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(current); err != nil {
		return nil, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := r.Store.Save(ctx, ref, current, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("profile: save %q/%q: %w", ref.Domain, ref.Name, err)
	}
	return current, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
