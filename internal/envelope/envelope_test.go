package envelope

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStampFirstWrite(t *testing.T) {
	e := &Envelope{Payload: Payload{Tasks: []Task{task("t1", "A")}}}
	e.Stamp(nil)

	if e.Created.IsZero() {
		t.Error("first stamp should set created")
	}
	if e.LastModified.IsZero() {
		t.Error("first stamp should set last_modified")
	}
	if e.SchemaVersion != SchemaVersion {
		t.Errorf("first stamp should set schema version, got %q", e.SchemaVersion)
	}
}

func TestStampCarriesCreatedForward(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := makeEnvelope(t, Payload{}, created, created)

	e := &Envelope{Payload: Payload{Tasks: []Task{task("t1", "A")}}}
	e.Stamp(prev)

	if !e.Created.Equal(created) {
		t.Errorf("created must be carried forward, want %v, got %v", created, e.Created)
	}
	if !e.LastModified.After(created) {
		t.Errorf("last_modified should be fresh, got %v", e.LastModified)
	}
}

func TestValidate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		env     Envelope
		wantErr string
	}{
		{
			name: "valid",
			env: Envelope{
				SchemaVersion: SchemaVersion,
				Created:       now.Add(-time.Hour),
				LastModified:  now,
				Payload:       Payload{Tasks: []Task{task("t1", "A")}},
			},
		},
		{
			name:    "missing schema version",
			env:     Envelope{Created: now, LastModified: now},
			wantErr: "schema_version",
		},
		{
			name:    "zero last_modified",
			env:     Envelope{SchemaVersion: SchemaVersion, Created: now},
			wantErr: "last_modified",
		},
		{
			name: "created after last_modified",
			env: Envelope{
				SchemaVersion: SchemaVersion,
				Created:       now.Add(time.Hour),
				LastModified:  now,
			},
			wantErr: "after last_modified",
		},
		{
			name: "duplicate task id",
			env: Envelope{
				SchemaVersion: SchemaVersion,
				Created:       now.Add(-time.Hour),
				LastModified:  now,
				Payload:       Payload{Tasks: []Task{task("t1", "A"), task("t1", "B")}},
			},
			wantErr: "duplicate entity id",
		},
		{
			name: "empty note id",
			env: Envelope{
				SchemaVersion: SchemaVersion,
				Created:       now.Add(-time.Hour),
				LastModified:  now,
				Payload:       Payload{Notes: []Note{{ID: "", Title: "x"}}},
			},
			wantErr: "empty id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	e := New(Payload{
		Tasks:         []Task{task("t1", "buy milk")},
		DismissedTips: []string{"tip-a"},
	})

	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(got.Payload.Tasks) != 1 || got.Payload.Tasks[0].Title != "buy milk" {
		t.Errorf("round trip lost task data: %+v", got.Payload.Tasks)
	}
	if !got.Created.Equal(e.Created) {
		t.Errorf("round trip changed created: want %v, got %v", e.Created, got.Created)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Unmarshal([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected validation error for missing metadata")
	}
}

func TestPayloadEmpty(t *testing.T) {
	empty := Payload{
		Settings:      map[string]json.RawMessage{"theme": json.RawMessage(`"dark"`)},
		DismissedTips: []string{"tip-a"},
	}
	if !empty.Empty() {
		t.Error("settings and dismiss sets alone should still count as empty")
	}

	withData := Payload{Ledger: []LedgerEntry{{ID: "l1", AmountCents: -100}}}
	if withData.Empty() {
		t.Error("payload with ledger entries is not empty")
	}
}

func TestNewIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTaskID()
		if !strings.HasPrefix(id, "tsk-") {
			t.Fatalf("unexpected id format: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate generated id: %s", id)
		}
		seen[id] = true
	}
}
