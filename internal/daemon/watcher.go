package daemon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new item file appeared in the inbox.
	OpCreate EventOp = iota
	// OpModify indicates an existing item file was rewritten.
	OpModify
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	default:
		return "unknown"
	}
}

// ItemEvent is a file system event for an inbox item file.
type ItemEvent struct {
	// Path is the path to the item file that changed.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// InboxWatcher watches the inbox directory for dropped item files.
// It uses fsnotify for cross-platform file system event monitoring.
type InboxWatcher struct {
	watcher  *fsnotify.Watcher
	events   chan ItemEvent
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	inboxDir string
}

// NewInboxWatcher creates a new InboxWatcher instance.
// The watcher must be started with Start() before it will emit events.
func NewInboxWatcher() (*InboxWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &InboxWatcher{
		watcher: watcher,
		events:  make(chan ItemEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the inbox directory for *.json item files.
func (iw *InboxWatcher) Start(inboxDir string) error {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.running {
		return fmt.Errorf("watcher already running")
	}

	iw.inboxDir = inboxDir
	if err := iw.watcher.Add(inboxDir); err != nil {
		return fmt.Errorf("failed to watch inbox directory %s: %w", inboxDir, err)
	}

	iw.running = true
	iw.wg.Add(1)
	go iw.processEvents()

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (iw *InboxWatcher) Stop() error {
	iw.mu.Lock()
	if !iw.running {
		iw.mu.Unlock()
		return nil
	}
	iw.running = false
	iw.mu.Unlock()

	// Signal shutdown
	close(iw.done)

	// Close the underlying watcher (this unblocks the event loop)
	if err := iw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	// Wait for event processing to finish
	iw.wg.Wait()

	close(iw.events)
	close(iw.errors)

	return nil
}

// Events returns the channel that emits ItemEvent notifications.
// This channel is closed when the watcher is stopped.
func (iw *InboxWatcher) Events() <-chan ItemEvent {
	return iw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (iw *InboxWatcher) Errors() <-chan error {
	return iw.errors
}

// IsRunning returns true if the watcher is currently running.
func (iw *InboxWatcher) IsRunning() bool {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.running
}

// processEvents is the main event loop that converts fsnotify events to
// ItemEvent notifications.
func (iw *InboxWatcher) processEvents() {
	defer iw.wg.Done()

	for {
		select {
		case <-iw.done:
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}

			if itemEvent, ok := convertEvent(event); ok {
				select {
				case iw.events <- itemEvent:
				case <-iw.done:
					return
				}
			}

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case iw.errors <- err:
			case <-iw.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to an ItemEvent.
// Returns (ItemEvent{}, false) for events that should be ignored:
// non-JSON files, removals (the daemon deletes files it has imported),
// chmod noise.
func convertEvent(event fsnotify.Event) (ItemEvent, bool) {
	if !strings.HasSuffix(event.Name, ".json") {
		return ItemEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Rename):
		// A rename into the inbox surfaces as Create on the new name;
		// the old-name half carries nothing to import.
		return ItemEvent{}, false
	default:
		return ItemEvent{}, false
	}

	return ItemEvent{Path: event.Name, Op: op}, true
}
