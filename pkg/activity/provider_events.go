package activity

import (
	"strings"
	"time"
)

// ProviderEventInput describes the common fields for provider lifecycle
// events.
type ProviderEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	// Provider labels the provider the event concerns.
	Provider string
	// Container labels the container for synchronization events.
	Container string
	// PatchID identifies the patch scope for patch/restore pairs.
	PatchID    string
	OccurredAt time.Time
}

// BuildProviderSetEvent constructs an event for an override replacement.
func BuildProviderSetEvent(input ProviderEventInput) Event {
	return buildProviderEvent("provider.set", "provider", input)
}

// BuildProviderPatchedEvent constructs an event for a scoped override
// installation.
func BuildProviderPatchedEvent(input ProviderEventInput) Event {
	return buildProviderEvent("provider.patched", "provider", input)
}

// BuildProviderRestoredEvent constructs an event for a patch scope unwinding.
func BuildProviderRestoredEvent(input ProviderEventInput) Event {
	return buildProviderEvent("provider.restored", "provider", input)
}

// BuildProviderResetEvent constructs an event for an override removal.
func BuildProviderResetEvent(input ProviderEventInput) Event {
	return buildProviderEvent("provider.reset", "provider", input)
}

// BuildContainerSyncedEvent constructs an event for a container state sync.
func BuildContainerSyncedEvent(input ProviderEventInput) Event {
	return buildProviderEvent("container.synced", "container", input)
}

// BuildPatchSetAppliedEvent constructs an event for a patch set application.
func BuildPatchSetAppliedEvent(input ProviderEventInput) Event {
	return buildProviderEvent("patchset.applied", "patchset", input)
}

// BuildPatchSetRestoredEvent constructs an event for a patch set unwinding.
func BuildPatchSetRestoredEvent(input ProviderEventInput) Event {
	return buildProviderEvent("patchset.restored", "patchset", input)
}

func buildProviderEvent(verb, objectType string, input ProviderEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Provider != "" {
		metadata = ensureMetadata(metadata)
		metadata["provider"] = input.Provider
	}
	if input.Container != "" {
		metadata = ensureMetadata(metadata)
		metadata["container"] = input.Container
	}
	if input.PatchID != "" {
		metadata = ensureMetadata(metadata)
		metadata["patch_id"] = input.PatchID
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.Provider)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Container)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.PatchID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
