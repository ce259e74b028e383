// Package envelope defines the persisted record format shared by the local
// and remote stores, and the merge algorithm used during conflict resolution.
package envelope

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current payload schema version tag.
//
// The tag is carried on every envelope so future versions can detect and
// migrate older payload shapes. It is compared as an opaque string.
const SchemaVersion = "1"

// Envelope is the unit of persistence: a versioned wrapper around the
// application payload. Exactly one envelope is current per backend at any
// time; writes always replace the whole record.
type Envelope struct {
	// SchemaVersion tags the payload shape.
	SchemaVersion string `json:"schema_version"`

	// LastModified is updated on every successful write by either backend.
	// It is a monotonic "most recently written" indicator, not wall-clock
	// truth, and is the sole signal for deciding which side is ahead.
	LastModified time.Time `json:"last_modified"`

	// Created is set once when the record first exists and carried forward
	// on every subsequent write. A merge keeps the minimum of both sides.
	Created time.Time `json:"created"`

	// Payload is the application data.
	Payload Payload `json:"payload"`
}

// Payload is the tree of named modules making up the user's data.
// Each entity collection is ordered and keyed by a stable unique ID.
type Payload struct {
	Tasks  []Task        `json:"tasks,omitempty"`
	Notes  []Note        `json:"notes,omitempty"`
	Ledger []LedgerEntry `json:"ledger,omitempty"`

	// Settings holds scalar/object singleton fields keyed by name.
	Settings map[string]json.RawMessage `json:"settings,omitempty"`

	// DismissedTips and HiddenModules are user dismiss/opt-out preference
	// sets; merge takes the union of both sides.
	DismissedTips []string `json:"dismissed_tips,omitempty"`
	HiddenModules []string `json:"hidden_modules,omitempty"`
}

// Task is a to-do item.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Done      bool       `json:"done"`
	Priority  int        `json:"priority"` // 0-4 (P0=critical, P4=backlog)
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Note is a free-form text note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntry is a single personal-finance record. Amounts are integer
// cents; negative values are expenses.
type LedgerEntry struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category,omitempty"`
	Memo        string    `json:"memo,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns an envelope wrapping the given payload with both timestamps
// set to now and the current schema version.
func New(payload Payload) *Envelope {
	now := time.Now().UTC()
	return &Envelope{
		SchemaVersion: SchemaVersion,
		LastModified:  now,
		Created:       now,
		Payload:       payload,
	}
}

// Stamp prepares the envelope for a write: LastModified is set to now and
// Created is carried forward from prev, or set once if this is the first
// write. Created is never regenerated after that.
func (e *Envelope) Stamp(prev *Envelope) {
	now := time.Now().UTC()
	e.LastModified = now
	if prev != nil && !prev.Created.IsZero() {
		e.Created = prev.Created
	} else if e.Created.IsZero() {
		e.Created = now
	}
	if e.SchemaVersion == "" {
		e.SchemaVersion = SchemaVersion
	}
}

// Validate checks structural invariants of the envelope. A failing envelope
// must not participate in merge or resolution.
func (e *Envelope) Validate() error {
	if e.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	if e.LastModified.IsZero() {
		return fmt.Errorf("last_modified is required")
	}
	if e.Created.IsZero() {
		return fmt.Errorf("created is required")
	}
	if e.Created.After(e.LastModified) {
		return fmt.Errorf("created %s is after last_modified %s",
			e.Created.Format(time.RFC3339), e.LastModified.Format(time.RFC3339))
	}
	if err := e.Payload.validateIDs(); err != nil {
		return err
	}
	return nil
}

// validateIDs rejects empty or duplicate entity IDs within a collection.
func (p *Payload) validateIDs() error {
	if err := checkIDs("tasks", taskIDs(p.Tasks)); err != nil {
		return err
	}
	if err := checkIDs("notes", noteIDs(p.Notes)); err != nil {
		return err
	}
	if err := checkIDs("ledger", ledgerIDs(p.Ledger)); err != nil {
		return err
	}
	return nil
}

func checkIDs(collection string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%s: entity with empty id", collection)
		}
		if seen[id] {
			return fmt.Errorf("%s: duplicate entity id %q", collection, id)
		}
		seen[id] = true
	}
	return nil
}

func taskIDs(ts []Task) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

func noteIDs(ns []Note) []string {
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return ids
}

func ledgerIDs(ls []LedgerEntry) []string {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
	}
	return ids
}

// Empty reports whether the payload has no meaningful user data: all
// tracked entity collections are empty. Settings and dismiss sets do not
// count as user data for conflict purposes.
func (p *Payload) Empty() bool {
	return len(p.Tasks) == 0 && len(p.Notes) == 0 && len(p.Ledger) == 0
}

// CanonicalPayload returns the deterministic serialized form of the payload,
// excluding all envelope metadata. Two envelopes whose canonical payloads
// are byte-identical carry the same user data regardless of timestamps.
func (e *Envelope) CanonicalPayload() ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return data, nil
}

// Marshal serializes the envelope for storage.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal parses a stored envelope and validates it.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &e, nil
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string { return newID("tsk") }

// NewNoteID returns a fresh note identifier.
func NewNoteID() string { return newID("nte") }

// NewLedgerID returns a fresh ledger entry identifier.
func NewLedgerID() string { return newID("ldg") }

// newID generates a short random identifier with the given prefix.
// IDs are never reused; merge relies on them being stable and unique
// within their collection.
func newID(prefix string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure means the platform is broken; fall back to
		// a time-derived suffix rather than panic.
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b[:]))
}
