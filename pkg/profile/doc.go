// Package profile defines persistence-facing contracts for loading and saving
// named override profiles, plus helpers that apply a profile onto a live
// provider container.
//
// Responsibilities:
//   - Store only loads/saves a single profile for a single Ref.
//   - Apply walks a profile's path/value pairs and sets provider overrides on
//     the target container; the core di package stays persistence-agnostic.
//   - Merge composes ordered profiles where later entries win per path.
//
// Data flow:
//
//	Store -> Profile -> Apply(container) -> provider overrides
//
// Provenance:
//
//	Meta.SnapshotID identifies the persisted revision a profile came from and
//	travels with Load/Save so callers can audit which snapshot is live.
package profile
