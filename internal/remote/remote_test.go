package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// staticCreds is a CredentialSource with a fixed token.
type staticCreds struct {
	token string
	ok    bool
}

func (s staticCreds) Token() (string, bool) { return s.token, s.ok }

// newTestClient wires an HTTPClient against a test server.
func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPClient(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, staticCreds{token: "test-token", ok: true})
}

func TestFindOrCreateAppFolder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/folders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer credential, got %q", got)
		}

		var body struct {
			Name string `json:"name"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		if body.Name != "Satchel" {
			t.Errorf("expected default app folder name, got %q", body.Name)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "folder-123"})
	}))

	folder, err := client.FindOrCreateAppFolder(context.Background())
	if err != nil {
		t.Fatalf("FindOrCreateAppFolder failed: %v", err)
	}
	if folder != "folder-123" {
		t.Errorf("expected folder-123, got %s", folder)
	}
}

func TestReadNamedFileNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.ReadNamedFile(context.Background(), "f1", RecordFileName)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadWriteNamedFile(t *testing.T) {
	var stored []byte
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			stored, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "file-1"})
		case http.MethodGet:
			_, _ = w.Write(stored)
		}
	}))

	ctx := context.Background()
	want := []byte(`{"schema_version":"1"}`)

	id, err := client.WriteNamedFile(ctx, "f1", RecordFileName, want)
	if err != nil {
		t.Fatalf("WriteNamedFile failed: %v", err)
	}
	if id != "file-1" {
		t.Errorf("expected file-1, got %s", id)
	}

	got, err := client.ReadNamedFile(ctx, "f1", RecordFileName)
	if err != nil {
		t.Fatalf("ReadNamedFile failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("round trip mismatch: want %s, got %s", want, got)
	}
}

func TestDeleteNamedFile(t *testing.T) {
	exists := true
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !exists {
			http.NotFound(w, r)
			return
		}
		exists = false
		w.WriteHeader(http.StatusOK)
	}))

	ctx := context.Background()

	deleted, err := client.DeleteNamedFile(ctx, "f1", RecordFileName)
	if err != nil {
		t.Fatalf("DeleteNamedFile failed: %v", err)
	}
	if !deleted {
		t.Error("expected deleted=true for existing file")
	}

	deleted, err = client.DeleteNamedFile(ctx, "f1", RecordFileName)
	if err != nil {
		t.Fatalf("second DeleteNamedFile failed: %v", err)
	}
	if deleted {
		t.Error("expected deleted=false for missing file")
	}
}

func TestListFilesWithPrefix(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("prefix"); got != "Backups/" {
			t.Errorf("expected prefix query, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"files": []FileInfo{
				{ID: "b1", Name: "Backups/satchel_2026-01-01T00:00:00Z.json", Size: 42,
					ModifiedTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
		})
	}))

	files, err := client.ListFiles(context.Background(), "f1", "Backups/")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].Size != 42 {
		t.Errorf("unexpected listing: %+v", files)
	}
}

func TestUnauthorizedStatusMapsToErrUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ReadNamedFile(context.Background(), "f1", RecordFileName)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMissingCredentialFailsWithoutRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent without a credential")
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(Config{BaseURL: srv.URL, HTTPClient: srv.Client()},
		staticCreds{ok: false})

	_, err := client.ReadNamedFile(context.Background(), "f1", RecordFileName)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestServerErrorIsStatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))

	_, err := client.ReadNamedFile(context.Background(), "f1", RecordFileName)
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", serr.Code)
	}
	if !strings.Contains(serr.Error(), "backend exploded") {
		t.Errorf("status error should carry response body, got %q", serr.Error())
	}
}

func TestBackupFileName(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	got := BackupFileName(at)
	want := "Backups/satchel_2026-03-15T10:30:00Z.json"
	if got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
