package engine

import (
	"sync"
	"time"
)

// EventType identifies an engine notification.
type EventType string

const (
	// EventModeChange fires when the engine switches between local and
	// cloud mode.
	EventModeChange EventType = "mode_change"

	// EventLocalSaved fires after a successful synchronous local write.
	EventLocalSaved EventType = "local_saved"

	// EventRemoteSaved fires when a remote write (debounced or immediate)
	// completes successfully.
	EventRemoteSaved EventType = "remote_saved"

	// EventSaveError fires when a remote write fails. The pending data is
	// not retried automatically; the next save carries it forward.
	EventSaveError EventType = "save_error"

	// EventRemoteUpdate fires when remote data has overwritten the local
	// slot (initial sync pull, cloud load, adopt-remote). Consumers should
	// refresh from the local copy.
	EventRemoteUpdate EventType = "remote_update"

	// EventConflict fires when DetectConflict finds a real divergence.
	EventConflict EventType = "conflict_detected"

	// EventSyncComplete fires after a resolution writes both sides.
	EventSyncComplete EventType = "sync_complete"
)

// Event is a status notification delivered to subscribers.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Mode is set on EventModeChange.
	Mode Mode

	// Err is set on EventSaveError.
	Err error
}

// Listener receives engine events. Listeners are invoked synchronously on
// the goroutine producing the event and must not block.
type Listener func(Event)

// listenerSet is the subscriber registry, guarded separately from the
// engine state so event delivery never contends with save/load paths.
type listenerSet struct {
	mu   sync.RWMutex
	next int
	subs map[int]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{subs: make(map[int]Listener)}
}

// add registers fn and returns its removal function.
func (ls *listenerSet) add(fn Listener) func() {
	ls.mu.Lock()
	id := ls.next
	ls.next++
	ls.subs[id] = fn
	ls.mu.Unlock()

	return func() {
		ls.mu.Lock()
		delete(ls.subs, id)
		ls.mu.Unlock()
	}
}

// emit delivers ev to every subscriber.
func (ls *listenerSet) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	ls.mu.RLock()
	subs := make([]Listener, 0, len(ls.subs))
	for _, fn := range ls.subs {
		subs = append(subs, fn)
	}
	ls.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
