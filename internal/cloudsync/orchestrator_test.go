package cloudsync

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/settings"
	"github.com/yomiyougu/core/internal/snapshot"
)

type fakeTransport struct {
	snapshotData []byte
	snapshotID   string
	uploaded     [][]byte
	bookHashes   map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{bookHashes: make(map[string]bool)}
}

func (f *fakeTransport) FindSnapshot(ctx context.Context, cachedID string) (string, bool, error) {
	if f.snapshotID == "" {
		return "", false, nil
	}
	return f.snapshotID, true, nil
}

func (f *fakeTransport) DownloadSnapshot(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(f.snapshotData))), nil
}

func (f *fakeTransport) UploadSnapshot(ctx context.Context, data []byte, existingID string) (string, error) {
	f.uploaded = append(f.uploaded, data)
	f.snapshotData = data
	f.snapshotID = "snap-1"
	return f.snapshotID, nil
}

func (f *fakeTransport) FindBookFile(ctx context.Context, hash string) (string, bool, error) {
	return hash, f.bookHashes[hash], nil
}

func (f *fakeTransport) UploadBookFile(ctx context.Context, localPath, hash string) (string, error) {
	f.bookHashes[hash] = true
	return hash, nil
}

func (f *fakeTransport) DownloadBookFile(ctx context.Context, hash, targetPath string) error {
	return nil
}

func (f *fakeTransport) ListBookFiles(ctx context.Context) ([]string, error) {
	var hashes []string
	for h, ok := range f.bookHashes {
		if ok {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func (f *fakeTransport) DeleteBookFile(ctx context.Context, hash string) (bool, error) {
	existed := f.bookHashes[hash]
	delete(f.bookHashes, hash)
	return existed, nil
}

type fakeTokens struct {
	expiresAt time.Time
	refreshed bool
	failRefresh bool
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, time.Time, error) {
	return "token", f.expiresAt, nil
}

func (f *fakeTokens) Refresh(ctx context.Context) (string, time.Time, error) {
	f.refreshed = true
	if f.failRefresh {
		return "", time.Time{}, errors.New("refresh denied")
	}
	f.expiresAt = time.Now().Add(time.Hour)
	return "token2", f.expiresAt, nil
}

type fakeVault struct {
	authed  bool
	cleared bool
}

func (f *fakeVault) IsAuthenticated(ctx context.Context) (bool, error) { return f.authed, nil }
func (f *fakeVault) Clear(ctx context.Context) error                  { f.cleared = true; return nil }

func TestSyncNowFailsWhenNotAuthenticated(t *testing.T) {
	store := newTestStore(t)
	o := New(Config{
		Store:        store,
		Transport:    newFakeTransport(),
		Tokens:       &fakeTokens{expiresAt: time.Now().Add(time.Hour)},
		Vault:        &fakeVault{authed: false},
		SettingsPath: filepath.Join(t.TempDir(), "settings.json"),
		DeviceID:     "device-a",
	})

	_, err := o.SyncNow(context.Background())
	if err == nil {
		t.Fatal("expected an error when not authenticated")
	}
}

func TestSyncNowSkipsWhenEveryFlagOff(t *testing.T) {
	store := newTestStore(t)
	transport := newFakeTransport()
	o := New(Config{
		Store:        store,
		Transport:    transport,
		Tokens:       &fakeTokens{expiresAt: time.Now().Add(time.Hour)},
		Vault:        &fakeVault{authed: true},
		SettingsPath: filepath.Join(t.TempDir(), "settings.json"),
		DeviceID:     "device-a",
	})

	result, err := o.SyncNow(context.Background())
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.BooksUploaded != 0 || len(transport.uploaded) != 0 {
		t.Fatalf("expected no cloud interaction, got %+v", result)
	}
}

func TestSyncNowUploadsLocalBookAndFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := "feedface"
	bookPath := filepath.Join(t.TempDir(), "book.cbz")
	if err := os.WriteFile(bookPath, []byte("archive bytes"), 0o644); err != nil {
		t.Fatalf("writing book file: %v", err)
	}
	book, err := store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: bookPath, Filename: "book.cbz", FileHash: &hash, Title: "t", TotalPages: 1,
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	_ = book

	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	doc := settings.Default()
	doc.Set(settings.KeySyncBooks, []byte("true"))
	doc.Set(settings.KeySyncBooksFiles, []byte("true"))
	if err := settings.Save(settingsPath, doc); err != nil {
		t.Fatalf("settings.Save: %v", err)
	}

	transport := newFakeTransport()
	o := New(Config{
		Store:        store,
		Transport:    transport,
		Tokens:       &fakeTokens{expiresAt: time.Now().Add(time.Hour)},
		Vault:        &fakeVault{authed: true},
		SettingsPath: settingsPath,
		DeviceID:     "device-a",
	})

	result, err := o.SyncNow(ctx)
	if err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if result.BooksUploaded != 1 {
		t.Fatalf("expected 1 book uploaded, got %d", result.BooksUploaded)
	}
	if len(transport.uploaded) != 1 {
		t.Fatalf("expected one snapshot upload, got %d", len(transport.uploaded))
	}

	snap, err := snapshot.Decode(transport.uploaded[0])
	if err != nil {
		t.Fatalf("decoding uploaded snapshot: %v", err)
	}
	if len(snap.Books) != 1 {
		t.Fatalf("expected 1 book in uploaded snapshot, got %d", len(snap.Books))
	}

	if len(result.FileErrors) != 0 {
		t.Fatalf("expected book file to upload cleanly, got errors: %v", result.FileErrors)
	}
}

func TestSyncNowRefreshesExpiredToken(t *testing.T) {
	store := newTestStore(t)
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	doc := settings.Default()
	doc.Set(settings.KeySyncBooks, []byte("true"))
	if err := settings.Save(settingsPath, doc); err != nil {
		t.Fatalf("settings.Save: %v", err)
	}

	tokens := &fakeTokens{expiresAt: time.Now().Add(-time.Minute)}
	o := New(Config{
		Store:        store,
		Transport:    newFakeTransport(),
		Tokens:       tokens,
		Vault:        &fakeVault{authed: true},
		SettingsPath: settingsPath,
		DeviceID:     "device-a",
	})

	if _, err := o.SyncNow(context.Background()); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if !tokens.refreshed {
		t.Fatal("expected an expired token to trigger a refresh")
	}
}

func TestSyncNowClearsVaultOnRefreshFailure(t *testing.T) {
	store := newTestStore(t)
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	doc := settings.Default()
	doc.Set(settings.KeySyncBooks, []byte("true"))
	if err := settings.Save(settingsPath, doc); err != nil {
		t.Fatalf("settings.Save: %v", err)
	}

	vault := &fakeVault{authed: true}
	o := New(Config{
		Store:        store,
		Transport:    newFakeTransport(),
		Tokens:       &fakeTokens{expiresAt: time.Now().Add(-time.Minute), failRefresh: true},
		Vault:        vault,
		SettingsPath: settingsPath,
		DeviceID:     "device-a",
	})

	if _, err := o.SyncNow(context.Background()); err == nil {
		t.Fatal("expected an error when refresh fails")
	}
	if !vault.cleared {
		t.Fatal("expected the token vault to be cleared after a failed refresh")
	}
}

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yomiyougu.db")
	store, err := catalog.Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
