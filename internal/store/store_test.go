package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestReadMissingSlot(t *testing.T) {
	st := setupTestStore(t)

	_, err := st.Read(context.Background(), DefaultKey)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty slot, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	want := []byte(`{"schema_version":"1"}`)
	if err := st.Write(ctx, DefaultKey, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := st.Read(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("round trip mismatch: want %s, got %s", want, got)
	}
}

func TestWriteReplacesWholeRecord(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.Write(ctx, DefaultKey, []byte("first")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := st.Write(ctx, DefaultKey, []byte("second")); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	got, err := st.Read(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("expected latest record, got %s", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.Write(ctx, DefaultKey, []byte("data")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := st.Delete(ctx, DefaultKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Read(ctx, DefaultKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error
	if err := st.Delete(ctx, DefaultKey); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestSlotsAreIndependent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.Write(ctx, "a", []byte("aaa")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := st.Write(ctx, "b", []byte("bbb")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := st.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := st.Read(ctx, "b")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "bbb" {
		t.Errorf("deleting slot a should not touch slot b, got %s", got)
	}
}
