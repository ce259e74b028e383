// Package engine implements the synchronization core of satchel.
//
// Overview
//
// The engine owns the storage mode (local-only vs. cloud-enabled), performs
// dual writes, debounces remote writes, detects divergence between the local
// and remote copies of the record, and reconciles divergent copies through
// one of three resolution strategies.
//
// Architecture
//
// Data flows one way into the engine and notifications flow back out:
//
//	CLI / daemon / dashboard (consumers)
//	          │ Save / Load / SyncNow / Resolve
//	          ▼
//	       Engine ──────────────► events (mode, save, load, conflict)
//	       │     │
//	       ▼     ▼ (debounced)
//	   local    remote
//	   store    object store
//
// The local write is synchronous and defines the success of a save; the
// remote write is fire-and-forget relative to the caller, coalesced inside a
// single pending-write slot so rapid edits produce one outbound request.
//
// Mode management
//
// Entering cloud mode performs exactly one initial sync: an empty remote
// adopts the local data, an existing remote record overwrites the local
// slot. Either side missing data means "adopt the other side", never a
// conflict, so enabling cloud mode cannot silently delete data.
//
// Conflict handling
//
// A conflict exists only when the local copy is strictly newer than the
// remote copy and the two payloads differ. A remote copy that is newer is
// the normal "another device already synced" case and is simply pulled
// down. Detected conflicts are surfaced to the caller, who picks one of
// adopt-local, adopt-remote, or merge; nothing is auto-resolved.
//
// Error handling
//
//   - Local write failures surface immediately to the caller of Save.
//   - Remote failures are reported through events and self-heal on the
//     next save or an explicit SyncNow; there is no retry loop.
//   - A rejected credential falls the engine back to local mode without
//     touching local data.
package engine
