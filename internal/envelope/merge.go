package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// Merge combines a local and a remote envelope into a single merged envelope.
//
// The policy is deliberately asymmetric and device-centric: for entities
// present on both sides the local version wins, because merge only runs when
// this device holds unsynced edits that would otherwise be clobbered by an
// older remote copy. Remote-only entities are appended after the local ones,
// so the result is deterministic but not commutative.
//
// The merged envelope's Created is the minimum of both inputs and its
// LastModified is the time of the merge. Both inputs are validated first;
// a malformed side aborts the merge with nothing written.
func Merge(local, remote *Envelope) (*Envelope, error) {
	if local == nil || remote == nil {
		return nil, fmt.Errorf("merge requires both envelopes")
	}
	if err := local.Validate(); err != nil {
		return nil, fmt.Errorf("local envelope: %w", err)
	}
	if err := remote.Validate(); err != nil {
		return nil, fmt.Errorf("remote envelope: %w", err)
	}

	merged := &Envelope{
		SchemaVersion: local.SchemaVersion,
		LastModified:  time.Now().UTC(),
		Created:       minTime(local.Created, remote.Created),
		Payload:       MergePayloads(local.Payload, remote.Payload),
	}
	return merged, nil
}

// MergePayloads merges the module tree of two payloads, local side
// authoritative for overlapping entities and setting keys.
func MergePayloads(local, remote Payload) Payload {
	return Payload{
		Tasks:         mergeTasks(local.Tasks, remote.Tasks),
		Notes:         mergeNotes(local.Notes, remote.Notes),
		Ledger:        mergeLedger(local.Ledger, remote.Ledger),
		Settings:      mergeSettings(local.Settings, remote.Settings),
		DismissedTips: unionIDs(local.DismissedTips, remote.DismissedTips),
		HiddenModules: unionIDs(local.HiddenModules, remote.HiddenModules),
	}
}

// mergeTasks unions two task collections by ID: every local task is kept
// as-is, remote tasks whose ID is unseen are appended in remote order.
func mergeTasks(local, remote []Task) []Task {
	if len(remote) == 0 {
		return local
	}
	seen := make(map[string]bool, len(local))
	merged := make([]Task, 0, len(local)+len(remote))
	for _, t := range local {
		seen[t.ID] = true
		merged = append(merged, t)
	}
	for _, t := range remote {
		if !seen[t.ID] {
			merged = append(merged, t)
		}
	}
	return merged
}

func mergeNotes(local, remote []Note) []Note {
	if len(remote) == 0 {
		return local
	}
	seen := make(map[string]bool, len(local))
	merged := make([]Note, 0, len(local)+len(remote))
	for _, n := range local {
		seen[n.ID] = true
		merged = append(merged, n)
	}
	for _, n := range remote {
		if !seen[n.ID] {
			merged = append(merged, n)
		}
	}
	return merged
}

func mergeLedger(local, remote []LedgerEntry) []LedgerEntry {
	if len(remote) == 0 {
		return local
	}
	seen := make(map[string]bool, len(local))
	merged := make([]LedgerEntry, 0, len(local)+len(remote))
	for _, l := range local {
		seen[l.ID] = true
		merged = append(merged, l)
	}
	for _, l := range remote {
		if !seen[l.ID] {
			merged = append(merged, l)
		}
	}
	return merged
}

// mergeSettings overlays local settings on top of remote: remote is the
// base, any key present on both sides takes the local value.
func mergeSettings(local, remote map[string]json.RawMessage) map[string]json.RawMessage {
	if len(local) == 0 && len(remote) == 0 {
		return nil
	}
	merged := make(map[string]json.RawMessage, len(local)+len(remote))
	for k, v := range remote {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}

// unionIDs returns the deduplicated union of two identifier sets,
// local order first, then unseen remote identifiers.
func unionIDs(local, remote []string) []string {
	if len(local) == 0 && len(remote) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(local)+len(remote))
	union := make([]string, 0, len(local)+len(remote))
	for _, id := range local {
		if !seen[id] {
			seen[id] = true
			union = append(union, id)
		}
	}
	for _, id := range remote {
		if !seen[id] {
			seen[id] = true
			union = append(union, id)
		}
	}
	return union
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
