package daemon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satchel-app/satchel/internal/envelope"
)

// Item kinds accepted in the inbox.
const (
	KindTask   = "task"
	KindNote   = "note"
	KindLedger = "ledger"
)

// Item is the wire format of an inbox file: a kind tag plus exactly one
// entity matching it. Missing IDs and timestamps are filled in at import
// time, so a minimal drop like {"kind":"task","task":{"title":"buy milk"}}
// is valid.
type Item struct {
	Kind   string                `json:"kind"`
	Task   *envelope.Task        `json:"task,omitempty"`
	Note   *envelope.Note        `json:"note,omitempty"`
	Ledger *envelope.LedgerEntry `json:"ledger,omitempty"`
}

// ParseItem decodes and validates an inbox file.
func ParseItem(data []byte) (*Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("invalid item file: %w", err)
	}
	if err := item.validate(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (it *Item) validate() error {
	switch it.Kind {
	case KindTask:
		if it.Task == nil {
			return fmt.Errorf("item kind %q has no task entity", it.Kind)
		}
		if it.Task.Title == "" {
			return fmt.Errorf("task item has no title")
		}
	case KindNote:
		if it.Note == nil {
			return fmt.Errorf("item kind %q has no note entity", it.Kind)
		}
		if it.Note.Title == "" {
			return fmt.Errorf("note item has no title")
		}
	case KindLedger:
		if it.Ledger == nil {
			return fmt.Errorf("item kind %q has no ledger entity", it.Kind)
		}
	default:
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	return nil
}

// apply folds the item into the payload, stamping IDs and timestamps
// that the drop left blank. An item whose ID already exists in the
// payload replaces the existing entity.
func (it *Item) apply(payload *envelope.Payload, now time.Time) {
	switch it.Kind {
	case KindTask:
		task := *it.Task
		if task.ID == "" {
			task.ID = envelope.NewTaskID()
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		task.UpdatedAt = now
		payload.Tasks = upsertTask(payload.Tasks, task)

	case KindNote:
		note := *it.Note
		if note.ID == "" {
			note.ID = envelope.NewNoteID()
		}
		if note.CreatedAt.IsZero() {
			note.CreatedAt = now
		}
		note.UpdatedAt = now
		payload.Notes = upsertNote(payload.Notes, note)

	case KindLedger:
		entry := *it.Ledger
		if entry.ID == "" {
			entry.ID = envelope.NewLedgerID()
		}
		if entry.Date.IsZero() {
			entry.Date = now
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		payload.Ledger = upsertLedger(payload.Ledger, entry)
	}
}

func upsertTask(tasks []envelope.Task, task envelope.Task) []envelope.Task {
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			return tasks
		}
	}
	return append(tasks, task)
}

func upsertNote(notes []envelope.Note, note envelope.Note) []envelope.Note {
	for i := range notes {
		if notes[i].ID == note.ID {
			notes[i] = note
			return notes
		}
	}
	return append(notes, note)
}

func upsertLedger(entries []envelope.LedgerEntry, entry envelope.LedgerEntry) []envelope.LedgerEntry {
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}
