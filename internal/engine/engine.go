package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/remote"
	"github.com/satchel-app/satchel/internal/session"
	"github.com/satchel-app/satchel/internal/store"
)

// Mode is the engine's storage mode.
type Mode string

const (
	// ModeLocal treats only the local store as authoritative.
	ModeLocal Mode = "local"

	// ModeCloud mirrors every save to the remote object store.
	ModeCloud Mode = "cloud"
)

var (
	// ErrCloudDisabled is returned by operations that require cloud mode.
	ErrCloudDisabled = errors.New("cloud mode is not enabled")

	// ErrNoCredentials is returned when EnableCloud is called without an
	// authenticated session.
	ErrNoCredentials = errors.New("no credentials available")

	// ErrResolutionInFlight is returned when a conflict resolution is
	// started while another one is still pending. Only one resolution may
	// be in flight per session; a second call is a caller error.
	ErrResolutionInFlight = errors.New("conflict resolution already in flight")

	// ErrNothingToResolve is returned by Resolve when either side has no
	// record; a missing side is adopted by the normal sync path, not
	// resolved.
	ErrNothingToResolve = errors.New("no conflict to resolve")
)

// LocalStore is the synchronous single-slot persistence interface the
// engine writes through. *store.Store implements it.
type LocalStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Config holds engine configuration.
type Config struct {
	// Key is the local slot key (default store.DefaultKey).
	Key string

	// DebounceInterval is how long a scheduled remote write waits for a
	// newer save to supersede it before firing.
	DebounceInterval time.Duration

	// Logger for engine activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Key:              store.DefaultKey,
		DebounceInterval: time.Second,
		Logger:           log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// SaveOptions modifies a single Save call.
type SaveOptions struct {
	// Immediate bypasses the debounce window: the remote write happens
	// before Save returns. Used for explicit "sync now" actions and
	// flush-on-exit paths.
	Immediate bool
}

// Engine is the synchronization core. Construct it with New, tear it down
// with Close; it is instantiable multiple times (nothing is process-global).
type Engine struct {
	cfg     *Config
	local   LocalStore
	remote  remote.Client
	session session.Provider
	logger  *log.Logger

	mu        sync.Mutex
	mode      Mode
	folder    remote.FolderID
	pending   *envelope.Envelope
	timer     *time.Timer
	resolving bool

	inflight  sync.WaitGroup
	listeners *listenerSet
}

// New creates an engine in local mode.
//
// The local store must be open; the remote client and session provider may
// be nil only if cloud mode is never enabled. If config is nil, defaults
// are used.
func New(local LocalStore, rc remote.Client, sp session.Provider, cfg *Config) (*Engine, error) {
	if local == nil {
		return nil, fmt.Errorf("local store cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Key == "" {
		cfg.Key = store.DefaultKey
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}

	return &Engine{
		cfg:       cfg,
		local:     local,
		remote:    rc,
		session:   sp,
		logger:    logger,
		mode:      ModeLocal,
		listeners: newListenerSet(),
	}, nil
}

// Mode returns the current storage mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Subscribe registers a listener for engine events and returns its
// unsubscribe function.
func (e *Engine) Subscribe(fn Listener) func() {
	return e.listeners.add(fn)
}

// EnableCloud transitions the engine to cloud mode and performs the
// one-time initial sync:
//
//   - no remote record → local data (if any) is pushed immediately
//   - remote record exists → it is pulled down and overwrites the local
//     slot; EventRemoteUpdate tells consumers to refresh
//
// Either side missing data adopts the other side; entering cloud mode
// never deletes data. On failure the engine stays in local mode.
func (e *Engine) EnableCloud(ctx context.Context) error {
	if e.remote == nil || e.session == nil {
		return fmt.Errorf("engine was built without a remote client")
	}
	if !e.session.Authenticated() {
		return ErrNoCredentials
	}

	e.mu.Lock()
	if e.mode == ModeCloud {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	folder, err := e.remote.FindOrCreateAppFolder(ctx)
	if err != nil {
		return fmt.Errorf("failed to locate app folder: %w", err)
	}

	if err := e.initialSync(ctx, folder); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	e.mu.Lock()
	e.folder = folder
	e.mode = ModeCloud
	e.mu.Unlock()

	e.logger.Printf("Cloud mode enabled (folder %s)", folder)
	e.listeners.emit(Event{Type: EventModeChange, Mode: ModeCloud})
	return nil
}

// initialSync reconciles the two sides the first time a session enters
// cloud mode.
func (e *Engine) initialSync(ctx context.Context, folder remote.FolderID) error {
	data, err := e.remote.ReadNamedFile(ctx, folder, remote.RecordFileName)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		// First-login bootstrap: push local data, if any, unconditionally.
		local, lerr := e.loadLocal(ctx)
		if lerr != nil {
			return lerr
		}
		if local == nil {
			e.logger.Printf("Initial sync: no data on either side")
			return nil
		}
		raw, merr := local.Marshal()
		if merr != nil {
			return merr
		}
		if _, werr := e.remote.WriteNamedFile(ctx, folder, remote.RecordFileName, raw); werr != nil {
			return fmt.Errorf("failed to push local record: %w", werr)
		}
		e.logger.Printf("Initial sync: pushed local record to remote")
		return nil

	case err != nil:
		return fmt.Errorf("failed to read remote record: %w", err)
	}

	// Remote record exists: validate, then adopt it locally.
	if _, perr := envelope.Unmarshal(data); perr != nil {
		return fmt.Errorf("remote record is malformed: %w", perr)
	}
	if werr := e.local.Write(ctx, e.cfg.Key, data); werr != nil {
		return fmt.Errorf("failed to adopt remote record: %w", werr)
	}
	e.logger.Printf("Initial sync: pulled remote record into local slot")
	e.listeners.emit(Event{Type: EventRemoteUpdate})
	return nil
}

// DisableCloud returns the engine to local-only mode. Any pending remote
// write is dropped: without a credential it could not be delivered anyway,
// and the local copy already holds the data.
func (e *Engine) DisableCloud() {
	e.mu.Lock()
	if e.mode == ModeLocal {
		e.mu.Unlock()
		return
	}
	e.mode = ModeLocal
	e.folder = ""
	e.pending = nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	e.logger.Printf("Cloud mode disabled, falling back to local-only")
	e.listeners.emit(Event{Type: EventModeChange, Mode: ModeLocal})
}

// Save persists the payload.
//
// The local write is synchronous and must succeed; its failure is returned
// to the caller (quota exhaustion surfaces as store.ErrQuotaExceeded). In
// cloud mode the remote write is scheduled through the debounce slot, or
// performed before returning when opts.Immediate is set. Remote failures
// never fail the save; they are reported via EventSaveError.
func (e *Engine) Save(ctx context.Context, payload envelope.Payload, opts SaveOptions) (*envelope.Envelope, error) {
	prev, err := e.loadLocal(ctx)
	if err != nil {
		return nil, err
	}

	env := &envelope.Envelope{SchemaVersion: envelope.SchemaVersion, Payload: payload}
	env.Stamp(prev)

	data, err := env.Marshal()
	if err != nil {
		return nil, err
	}
	if err := e.local.Write(ctx, e.cfg.Key, data); err != nil {
		return nil, fmt.Errorf("local write failed: %w", err)
	}
	e.listeners.emit(Event{Type: EventLocalSaved})

	if e.Mode() == ModeCloud {
		if opts.Immediate {
			if err := e.pushRemote(ctx, env); err != nil {
				e.reportRemoteError(err)
			}
		} else {
			e.schedule(env)
		}
	}

	return env, nil
}

// Load returns the current envelope, or nil if no record exists anywhere.
//
// In cloud mode the remote copy is consulted first; on success it
// overwrites the local slot and is returned. Remote errors during load are
// non-fatal: the local copy is served instead, preserving local-first
// usability.
func (e *Engine) Load(ctx context.Context) (*envelope.Envelope, error) {
	if e.Mode() != ModeCloud {
		return e.loadLocal(ctx)
	}

	folder := e.appFolder()
	data, err := e.remote.ReadNamedFile(ctx, folder, remote.RecordFileName)
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			e.DisableCloud()
		} else if !errors.Is(err, remote.ErrNotFound) {
			e.logger.Printf("Remote load failed, serving local copy: %v", err)
		}
		return e.loadLocal(ctx)
	}

	env, err := envelope.Unmarshal(data)
	if err != nil {
		e.logger.Printf("Remote record is malformed, serving local copy: %v", err)
		return e.loadLocal(ctx)
	}

	if err := e.local.Write(ctx, e.cfg.Key, data); err != nil {
		return nil, fmt.Errorf("failed to overwrite local slot: %w", err)
	}
	return env, nil
}

// loadLocal reads the local slot. A missing record is (nil, nil).
func (e *Engine) loadLocal(ctx context.Context) (*envelope.Envelope, error) {
	data, err := e.local.Read(ctx, e.cfg.Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return envelope.Unmarshal(data)
}

// SyncNow forces the pending remote write out immediately, or pushes the
// current local record if nothing is pending. This is the explicit retry
// path after a reported save_error.
func (e *Engine) SyncNow(ctx context.Context) error {
	if e.Mode() != ModeCloud {
		return ErrCloudDisabled
	}

	flushed, err := e.flush(ctx)
	if err != nil {
		return err
	}
	if flushed {
		return nil
	}

	env, err := e.loadLocal(ctx)
	if err != nil {
		return err
	}
	if env == nil {
		return nil
	}
	return e.pushRemote(ctx, env)
}

// Flush synchronously performs any pending debounced remote write. It must
// be called before process teardown so the last edit of a session is not
// lost; Close does this automatically.
func (e *Engine) Flush(ctx context.Context) error {
	_, err := e.flush(ctx)
	return err
}

// Backup archives the current local record to the remote Backups subfolder
// under a timestamped name. Backups are an explicit archival mechanism and
// are never read by the sync path.
func (e *Engine) Backup(ctx context.Context) (string, error) {
	if e.Mode() != ModeCloud {
		return "", ErrCloudDisabled
	}

	env, err := e.loadLocal(ctx)
	if err != nil {
		return "", err
	}
	if env == nil {
		return "", fmt.Errorf("nothing to back up")
	}
	data, err := env.Marshal()
	if err != nil {
		return "", err
	}

	name := remote.BackupFileName(time.Now())
	if _, err := e.remote.WriteNamedFile(ctx, e.appFolder(), name, data); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	e.logger.Printf("Backup written: %s", name)
	return name, nil
}

// ListBackups lists the timestamped backup files.
func (e *Engine) ListBackups(ctx context.Context) ([]remote.FileInfo, error) {
	if e.Mode() != ModeCloud {
		return nil, ErrCloudDisabled
	}
	files, err := e.remote.ListFiles(ctx, e.appFolder(), remote.BackupFolderName+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return files, nil
}

// Reset destroys the record: the local slot is cleared and, in cloud mode,
// the remote file is deleted as well.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.pending = nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	if err := e.local.Delete(ctx, e.cfg.Key); err != nil {
		return err
	}
	if e.Mode() == ModeCloud {
		if _, err := e.remote.DeleteNamedFile(ctx, e.appFolder(), remote.RecordFileName); err != nil {
			return fmt.Errorf("failed to delete remote record: %w", err)
		}
	}
	e.logger.Printf("Record reset")
	return nil
}

// Close flushes any pending remote write and waits for in-flight pushes.
func (e *Engine) Close() error {
	err := e.Flush(context.Background())
	e.inflight.Wait()
	return err
}

// appFolder returns the cached folder handle resolved by EnableCloud.
func (e *Engine) appFolder() remote.FolderID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.folder
}

// pushRemote writes env to the remote record file. A rejected credential
// falls the engine back to local mode; local data is untouched.
func (e *Engine) pushRemote(ctx context.Context, env *envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if _, err := e.remote.WriteNamedFile(ctx, e.appFolder(), remote.RecordFileName, data); err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			e.DisableCloud()
		}
		return fmt.Errorf("remote write failed: %w", err)
	}
	e.listeners.emit(Event{Type: EventRemoteSaved})
	return nil
}

// reportRemoteError logs and broadcasts a failed remote write. The data is
// not retried automatically: the next save carries the latest record
// forward, and SyncNow forces a retry on demand.
func (e *Engine) reportRemoteError(err error) {
	e.logger.Printf("Remote save failed: %v", err)
	e.listeners.emit(Event{Type: EventSaveError, Err: err})
}
