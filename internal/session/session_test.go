package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticProvider(t *testing.T) {
	p := NewStatic("")
	if p.Authenticated() {
		t.Error("empty token should not be authenticated")
	}

	p.SetToken("secret")
	if !p.Authenticated() {
		t.Error("expected authenticated after SetToken")
	}
	token, ok := p.Token()
	if !ok || token != "secret" {
		t.Errorf("expected secret token, got %q (ok=%v)", token, ok)
	}

	p.SetToken("")
	if p.Authenticated() {
		t.Error("clearing the token should sign the session out")
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	p := NewFile(path)

	if p.Authenticated() {
		t.Error("missing token file should not be authenticated")
	}

	if err := os.WriteFile(path, []byte("  tok-abc\n"), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}
	token, ok := p.Token()
	if !ok || token != "tok-abc" {
		t.Errorf("expected trimmed token, got %q (ok=%v)", token, ok)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove token file: %v", err)
	}
	if p.Authenticated() {
		t.Error("removing the token file should sign the session out")
	}
}
