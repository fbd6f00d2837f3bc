package di

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bojiang/simple-di/pkg/activity"
)

// PatchSetOption configures a PatchSet at construction.
type PatchSetOption func(*PatchSet)

// PatchSetWithEmitter attaches an activity emitter notified when the set is
// applied and restored.
func PatchSetWithEmitter(emitter *activity.Emitter) PatchSetOption {
	return func(s *PatchSet) {
		s.emitter = emitter
	}
}

// PatchSet applies overrides to several providers together and restores all
// of them in reverse order when the scoped body exits, with the same
// guaranteed-restore semantics as Provider.Patch. Entries whose value is the
// Skip sentinel are pure pass-through.
type PatchSet struct {
	entries []patchEntry
	id      string
	emitter *activity.Emitter
}

type patchEntry struct {
	dep   Dependency
	value any
}

// NewPatchSet builds an empty patch set with a fresh snapshot ID.
func NewPatchSet(opts ...PatchSetOption) *PatchSet {
	s := &PatchSet{id: uuid.NewString()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ID returns the set's snapshot identifier, also attached to its activity
// events.
func (s *PatchSet) ID() string {
	return s.id
}

// Add registers an override to apply when the set runs. Returns s for
// chaining.
func (s *PatchSet) Add(dep Dependency, value any) *PatchSet {
	if dep != nil {
		s.entries = append(s.entries, patchEntry{dep: dep, value: value})
	}
	return s
}

// Run applies every non-sentinel override, executes body, and restores the
// saved provider state in reverse order on every exit path, including panics
// propagating out of body.
func (s *PatchSet) Run(body func() error) (err error) {
	type savedEntry struct {
		dep   Dependency
		state map[string]any
	}
	saved := make([]savedEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if IsSentinel(entry.value) {
			continue
		}
		saved = append(saved, savedEntry{dep: entry.dep, state: entry.dep.ExportState()})
		entry.dep.Set(entry.value)
	}
	s.emit(activity.BuildPatchSetAppliedEvent(activity.ProviderEventInput{PatchID: s.id}))

	defer func() {
		var restoreErr error
		for i := len(saved) - 1; i >= 0; i-- {
			if e := saved[i].dep.ImportState(saved[i].state); e != nil {
				restoreErr = errors.Join(restoreErr, e)
			}
		}
		s.emit(activity.BuildPatchSetRestoredEvent(activity.ProviderEventInput{PatchID: s.id}))
		if restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
	}()
	return body()
}

func (s *PatchSet) emit(event activity.Event) {
	if s.emitter == nil || !s.emitter.Enabled() {
		return
	}
	_ = s.emitter.Emit(context.Background(), event)
}
