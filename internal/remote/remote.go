// Package remote provides the client for satchel's cloud object store.
//
// The remote side is a per-user private application folder on an
// object-storage service: one well-known file holds the current record and a
// Backups subfolder holds explicitly-triggered timestamped archives. This
// package is a pure protocol adapter; it carries no synchronization logic.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordFileName is the well-known name of the primary record file inside
// the app folder.
const RecordFileName = "satchel.json"

// BackupFolderName is the subfolder holding timestamped backup files.
// Backup files are never read by the sync path itself.
const BackupFolderName = "Backups"

var (
	// ErrNotFound indicates the named file does not exist remotely.
	ErrNotFound = errors.New("remote file not found")

	// ErrUnauthorized indicates the bearer credential was rejected.
	// Callers should fall back to local-only operation; local data is
	// never cleared on auth failure.
	ErrUnauthorized = errors.New("remote credential rejected")
)

// StatusError is a transport-level failure (network, rate limit, 5xx).
// These are transient: they are reported, never retried automatically,
// and self-heal on the next save or explicit sync.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote request failed with status %d", e.Code)
	}
	return fmt.Sprintf("remote request failed with status %d: %s", e.Code, e.Body)
}

// FolderID identifies a folder on the remote service.
type FolderID string

// FileID identifies a file on the remote service.
type FileID string

// FileInfo describes a remote file as reported by List.
type FileInfo struct {
	ID           FileID    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modified_time"`
	Size         int64     `json:"size"`
}

// Client is the remote store adapter interface.
//
// All operations are blocking and honor ctx cancellation; any of them may
// fail with ErrUnauthorized, ErrNotFound (reads), or a *StatusError.
type Client interface {
	// FindOrCreateAppFolder locates the per-user application folder,
	// creating it on first use.
	FindOrCreateAppFolder(ctx context.Context) (FolderID, error)

	// ReadNamedFile returns the contents of the named file inside folder.
	// Returns ErrNotFound if the file does not exist.
	ReadNamedFile(ctx context.Context, folder FolderID, name string) ([]byte, error)

	// WriteNamedFile creates or replaces the named file inside folder.
	WriteNamedFile(ctx context.Context, folder FolderID, name string, data []byte) (FileID, error)

	// DeleteNamedFile removes the named file inside folder.
	// Returns false (and no error) if the file did not exist.
	DeleteNamedFile(ctx context.Context, folder FolderID, name string) (bool, error)

	// ListFiles lists files inside folder whose name starts with prefix.
	// An empty prefix lists everything.
	ListFiles(ctx context.Context, folder FolderID, prefix string) ([]FileInfo, error)
}

// BackupFileName returns the name pattern used for backup archives:
// satchel_<timestamp> under the Backups subfolder.
func BackupFileName(at time.Time) string {
	return fmt.Sprintf("%s/satchel_%s.json", BackupFolderName, at.UTC().Format(time.RFC3339))
}
