package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/envelope"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a queued item file must sit quiet
	// before it is imported. This batches editors that write a file in
	// several steps.
	DebounceInterval time.Duration

	// SyncInterval is how often to trigger a full sync while cloud mode
	// is active. Zero disables periodic syncs.
	SyncInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 100 * time.Millisecond,
		SyncInterval:     5 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the inbox directory and imports dropped items into the
// record through the engine.
type Daemon struct {
	eng      *engine.Engine
	inboxDir string
	config   *Config

	watcher       *InboxWatcher
	importQueue   map[string]time.Time // filepath -> last event time
	importQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - eng: the sync engine, already constructed and (optionally) in cloud mode
//   - inboxDir: directory to watch for dropped item files (*.json)
//
// Use Start() to begin watching and importing.
func New(eng *engine.Engine, inboxDir string) (*Daemon, error) {
	return NewWithConfig(eng, inboxDir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(eng *engine.Engine, inboxDir string, config *Config) (*Daemon, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if inboxDir == "" {
		return nil, fmt.Errorf("inboxDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := NewInboxWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		eng:         eng,
		inboxDir:    inboxDir,
		config:      config,
		watcher:     watcher,
		importQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Import any item files already sitting in the inbox
// 2. Start watching for new drops
// 3. Process queued drops with debouncing
// 4. Periodically trigger a sync while cloud mode is active
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.inboxDir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	// Drain anything that accumulated while the daemon was down.
	if err := d.SweepInbox(); err != nil {
		return fmt.Errorf("initial inbox sweep failed: %w", err)
	}

	if err := d.watcher.Start(d.inboxDir); err != nil {
		return err
	}

	d.config.Logger.Printf("Watching: %s", d.inboxDir)

	d.wg.Add(3)
	go d.watchInboxEvents()
	go d.processImportQueue()
	go d.periodicSync()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon, flushing any remote write the
// engine still has pending.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Stop(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	if err := d.eng.Flush(context.Background()); err != nil {
		d.config.Logger.Printf("Error flushing pending write: %v", err)
	}

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// SweepInbox imports every item file currently in the inbox.
// It is called on startup and can be triggered manually.
func (d *Daemon) SweepInbox() error {
	matches, err := filepath.Glob(filepath.Join(d.inboxDir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan inbox: %w", err)
	}

	if len(matches) == 0 {
		return nil
	}

	d.config.Logger.Printf("Importing %d queued items", len(matches))
	for _, path := range matches {
		if err := d.importFile(path); err != nil {
			d.config.Logger.Printf("Warning: failed to import %s: %v", path, err)
		}
	}
	return nil
}

// watchInboxEvents forwards watcher events into the import queue.
func (d *Daemon) watchInboxEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.config.Logger.Printf("Inbox event: %s %s", event.Op, event.Path)
			d.queueImport(event.Path)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueImport records a file in the import queue with debouncing.
func (d *Daemon) queueImport(path string) {
	d.importQueueMu.Lock()
	defer d.importQueueMu.Unlock()

	d.importQueue[path] = time.Now()
}

// processImportQueue imports queued files once they have sat quiet for a
// full debounce interval.
func (d *Daemon) processImportQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingImports()
		}
	}
}

// processPendingImports imports files that have been queued long enough.
func (d *Daemon) processPendingImports() {
	d.importQueueMu.Lock()
	now := time.Now()
	var ready []string
	for path, queuedAt := range d.importQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.importQueue, path)
	}
	d.importQueueMu.Unlock()

	for _, path := range ready {
		if err := d.importFile(path); err != nil {
			d.config.Logger.Printf("Error importing %s: %v", path, err)
		}
	}
}

// importFile reads one item file, folds it into the record, and removes
// the file on success. A file that vanished before import is a no-op:
// the drop was withdrawn.
func (d *Daemon) importFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read item file: %w", err)
	}

	item, err := ParseItem(data)
	if err != nil {
		return err
	}

	env, err := d.eng.Load(d.ctx)
	if err != nil {
		return fmt.Errorf("failed to load record: %w", err)
	}
	var payload envelope.Payload
	if env != nil {
		payload = env.Payload
	}

	item.apply(&payload, time.Now().UTC())

	if _, err := d.eng.Save(d.ctx, payload, engine.SaveOptions{}); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	d.config.Logger.Printf("Imported %s item from %s", item.Kind, filepath.Base(path))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove imported file: %w", err)
	}
	return nil
}

// periodicSync triggers a full sync on a timer while cloud mode is
// active. Failures are logged, never fatal; the next tick tries again.
func (d *Daemon) periodicSync() {
	defer d.wg.Done()

	if d.config.SyncInterval <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if d.eng.Mode() != engine.ModeCloud {
				continue
			}
			if err := d.eng.SyncNow(d.ctx); err != nil {
				d.config.Logger.Printf("Periodic sync failed: %v", err)
			}
		}
	}
}
