// Package session supplies the current bearer credential and authentication
// status. The engine only checks presence or absence of a credential; login,
// logout, and token refresh belong to the authentication subsystem and are
// out of scope here.
package session

import (
	"os"
	"strings"
	"sync"
)

// Provider reports the current session state.
type Provider interface {
	// Authenticated reports whether the user is currently signed in.
	Authenticated() bool

	// Token returns the opaque bearer credential. ok is false when no
	// valid credential is available.
	Token() (token string, ok bool)
}

// Static is a fixed-credential provider, mainly for tests and scripting.
type Static struct {
	mu    sync.RWMutex
	token string
}

// NewStatic returns a provider holding the given token. An empty token
// means not authenticated.
func NewStatic(token string) *Static {
	return &Static{token: token}
}

// SetToken replaces the credential; an empty value signs the session out.
func (s *Static) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Authenticated implements Provider.
func (s *Static) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Token implements Provider.
func (s *Static) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// File reads the credential from a token file on every call, so an external
// login flow can drop or remove the file without restarting satchel.
type File struct {
	path string
}

// NewFile returns a provider backed by the token file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Authenticated implements Provider.
func (f *File) Authenticated() bool {
	_, ok := f.Token()
	return ok
}

// Token implements Provider.
func (f *File) Token() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}
