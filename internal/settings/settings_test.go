package settings

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, ok := doc.Get(KeySyncBooks); !ok {
		t.Fatal("expected default document to define sync.books")
	}

	opts := SyncOptions(doc)
	if opts.SyncBooks || opts.SyncBooksFiles || opts.SyncSettings || opts.SyncProgress {
		t.Fatalf("expected every flag off by default, got %+v", opts)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	doc := Default()
	if !doc.Set(KeySyncBooks, json.RawMessage("true")) {
		t.Fatal("expected sync.books to exist in the default document")
	}
	if !doc.Set(KeySyncStrategy, json.RawMessage(`"remote_wins"`)) {
		t.Fatal("expected sync.strategy to exist in the default document")
	}

	now := time.Unix(1700000000, 0).UTC()
	if err := Touch(path, doc, now); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.UpdatedAt != now.UnixMilli() {
		t.Fatalf("expected UpdatedAt %d, got %d", now.UnixMilli(), loaded.UpdatedAt)
	}

	opts := SyncOptions(loaded)
	if !opts.SyncBooks {
		t.Fatal("expected sync.books to round-trip as true")
	}
	if opts.Strategy != "remote_wins" {
		t.Fatalf("expected strategy remote_wins, got %q", opts.Strategy)
	}
}

func TestSetUnknownKeyReturnsFalse(t *testing.T) {
	doc := Default()
	if doc.Set("nonexistent.key", json.RawMessage("true")) {
		t.Fatal("expected Set on an unknown key to report false")
	}
}
