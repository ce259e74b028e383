package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/satchel-app/satchel/internal/remote"
)

// fakeRemote is an in-memory remote.Client with failure injection.
type fakeRemote struct {
	mu           sync.Mutex
	files        map[string][]byte
	modified     map[string]time.Time
	writeCount   map[string]int
	failWrites   bool
	failReads    bool
	unauthorized bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:      make(map[string][]byte),
		modified:   make(map[string]time.Time),
		writeCount: make(map[string]int),
	}
}

func (f *fakeRemote) FindOrCreateAppFolder(ctx context.Context) (remote.FolderID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return "", remote.ErrUnauthorized
	}
	return "folder-1", nil
}

func (f *fakeRemote) ReadNamedFile(ctx context.Context, folder remote.FolderID, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return nil, remote.ErrUnauthorized
	}
	if f.failReads {
		return nil, &remote.StatusError{Code: 503}
	}
	data, ok := f.files[name]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return data, nil
}

func (f *fakeRemote) WriteNamedFile(ctx context.Context, folder remote.FolderID, name string, data []byte) (remote.FileID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return "", remote.ErrUnauthorized
	}
	if f.failWrites {
		return "", &remote.StatusError{Code: 503}
	}
	f.files[name] = append([]byte(nil), data...)
	f.modified[name] = time.Now()
	f.writeCount[name]++
	return remote.FileID("file-" + name), nil
}

func (f *fakeRemote) DeleteNamedFile(ctx context.Context, folder remote.FolderID, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return false, remote.ErrUnauthorized
	}
	if _, ok := f.files[name]; !ok {
		return false, nil
	}
	delete(f.files, name)
	return true, nil
}

func (f *fakeRemote) ListFiles(ctx context.Context, folder remote.FolderID, prefix string) ([]remote.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return nil, remote.ErrUnauthorized
	}
	var files []remote.FileInfo
	for name, data := range f.files {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, remote.FileInfo{
			ID:           remote.FileID("file-" + name),
			Name:         name,
			ModifiedTime: f.modified[name],
			Size:         int64(len(data)),
		})
	}
	return files, nil
}

// record returns the current remote record bytes, or nil.
func (f *fakeRemote) record() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[remote.RecordFileName]
}

// recordWrites returns how many times the record file was written.
func (f *fakeRemote) recordWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCount[remote.RecordFileName]
}

// setRecord seeds the remote record directly.
func (f *fakeRemote) setRecord(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[remote.RecordFileName] = data
	f.modified[remote.RecordFileName] = time.Now()
}

func (f *fakeRemote) setFailWrites(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = v
}

func (f *fakeRemote) setUnauthorized(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = v
}

func (f *fakeRemote) setFailReads(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = v
}

// failingStore wraps a LocalStore and fails writes on demand, simulating
// quota exhaustion.
type failingStore struct {
	LocalStore
	failWith error
}

func (s *failingStore) Write(ctx context.Context, key string, data []byte) error {
	if s.failWith != nil {
		return s.failWith
	}
	return s.LocalStore.Write(ctx, key, data)
}

// eventRecorder captures engine events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// has reports whether an event of the given type was recorded.
func (r *eventRecorder) has(t EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

// waitFor polls until an event of the given type arrives or the timeout
// elapses.
func (r *eventRecorder) waitFor(t EventType, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.has(t) {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return r.has(t)
}

var errDiskFull = errors.New("disk full")
