package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tinytelemetry/vwatch/internal/model"
)

func TestItemsPersistAcrossOpen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state", "storage.yml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetToken("tok-123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Token(); got != "tok-123" {
		t.Fatalf("Token() = %q, want tok-123", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	if err := s.SetItem("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveItem("a"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, ok := s.GetItem("a"); ok {
		t.Error("expected key to be removed")
	}
	if err := s.RemoveItem("missing"); err != nil {
		t.Errorf("RemoveItem(missing) = %v, want nil", err)
	}
}

func TestRemoveItemKeepsValueWhenFlushFails(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := Open(filepath.Join(dir, "storage.yml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetToken("tok-123"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	// Replace the directory with a plain file so the next write cannot land.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearToken(); err == nil {
		t.Fatal("ClearToken should fail when the file cannot be written")
	}
	if got := s.Token(); got != "tok-123" {
		t.Errorf("Token() = %q after failed removal, want tok-123", got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()
	s, err := Open(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("expected empty store, got keys %v", s.Keys())
	}
}

func TestOpenCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("- [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProjectConfigs(t *testing.T) {
	t.Parallel()
	s := NewMemory()

	saved, err := s.SaveProjectConfigs([]model.ProjectConfig{
		{URL: "https://alpha.vercel.app"},
		{URL: "   "},
		{ID: "keep", URL: " https://beta.vercel.app "},
	})
	if err != nil {
		t.Fatalf("SaveProjectConfigs: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d configs, want 2", len(saved))
	}
	if saved[0].ID == "" {
		t.Error("expected generated ID")
	}
	if saved[1].ID != "keep" || saved[1].URL != "https://beta.vercel.app" {
		t.Errorf("unexpected second config %+v", saved[1])
	}

	urls := s.ProjectURLs()
	if len(urls) != 2 || urls[0] != "https://alpha.vercel.app" {
		t.Errorf("ProjectURLs = %v", urls)
	}
}

func TestProjectConfigsCorrupt(t *testing.T) {
	t.Parallel()
	s := NewMemory()
	if err := s.SetItem(KeyProjects, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ProjectConfigs(); err == nil {
		t.Error("expected decode error")
	}
	if urls := s.ProjectURLs(); len(urls) != 0 {
		t.Errorf("ProjectURLs = %v, want empty", urls)
	}
}
