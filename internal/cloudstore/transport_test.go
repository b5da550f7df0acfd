package cloudstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type staticToken struct{ token string }

func (s staticToken) Token(ctx context.Context) (string, error) { return s.token, nil }

func newTestTransport(t *testing.T, handler http.HandlerFunc) *CloudTransport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, server.Client(), staticToken{"test-token"}, nil)
	return NewCloudTransport(client)
}

func TestFindSnapshotFallsBackToListing(t *testing.T) {
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/root/children" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(apiItemList{Items: []apiItem{
			{ID: "abc123", Name: snapshotFilename},
		}})
	})

	id, found, err := transport.FindSnapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("FindSnapshot: %v", err)
	}
	if !found || id != "abc123" {
		t.Fatalf("got (%q, %v), want (abc123, true)", id, found)
	}
}

func TestFindSnapshotTrustsCachedID(t *testing.T) {
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/cached-id" {
			t.Fatalf("unexpected path %s, cached id lookup should short-circuit listing", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(apiItem{ID: "cached-id"})
	})

	id, found, err := transport.FindSnapshot(context.Background(), "cached-id")
	if err != nil {
		t.Fatalf("FindSnapshot: %v", err)
	}
	if !found || id != "cached-id" {
		t.Fatalf("got (%q, %v), want (cached-id, true)", id, found)
	}
}

func TestUploadAndDownloadBookFile(t *testing.T) {
	const hash = "deadbeef"
	var uploaded []byte
	present := false

	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			uploaded = data
			present = true
			_ = json.NewEncoder(w).Encode(apiItem{ID: "blob-1", Name: bookFileName(hash)})
		case r.Method == http.MethodGet && r.URL.Path == "/root/children":
			items := apiItemList{}
			if present {
				items.Items = []apiItem{{ID: "blob-1", Name: bookFileName(hash)}}
			}
			_ = json.NewEncoder(w).Encode(items)
		case r.Method == http.MethodGet && r.URL.Path == "/items/blob-1/content":
			w.Write(uploaded)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "book.cbz")
	if err := os.WriteFile(srcPath, []byte("archive bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	id, err := transport.UploadBookFile(context.Background(), srcPath, hash)
	if err != nil {
		t.Fatalf("UploadBookFile: %v", err)
	}
	if id != "blob-1" {
		t.Fatalf("got id %q, want blob-1", id)
	}

	dstPath := filepath.Join(dir, "restored.cbz")
	if err := transport.DownloadBookFile(context.Background(), hash, dstPath); err != nil {
		t.Fatalf("DownloadBookFile: %v", err)
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "archive bytes" {
		t.Fatalf("got %q, want %q", data, "archive bytes")
	}
}

func TestListBookFilesEmptyFolderIsNotAnError(t *testing.T) {
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	hashes, err := transport.ListBookFiles(context.Background())
	if err != nil {
		t.Fatalf("ListBookFiles: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("got %v, want empty", hashes)
	}
}

func TestClientRetriesOn503ThenSucceeds(t *testing.T) {
	attempts := 0
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(apiItemList{})
	})
	transport.client.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }

	if _, err := transport.listRoot(context.Background()); err != nil {
		t.Fatalf("listRoot: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("got %d attempts, want 2", attempts)
	}
}
