package pageserver

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/yomerr"
)

func writeArchive(t *testing.T, path string, pages [][]byte) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, data := range pages {
		name := filepath.Join("pages", padded(i)+".jpg")
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func padded(i int) string {
	digits := "000"
	s := digits + itoa(i)
	return s[len(s)-3:]
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{byte('0' + i%10)}, buf...)
		i /= 10
	}
	return string(buf)
}

// TestPageCacheCoherence covers S7: after reading all pages in order, an
// explicit invalidation must not change the bytes returned for a page.
func TestPageCacheCoherence(t *testing.T) {
	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "yomiyougu.db"), nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "book.cbz")
	pages := [][]byte{[]byte("page0"), []byte("page1"), []byte("page2")}
	writeArchive(t, archivePath, pages)

	hash := "h1"
	book, err := store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: archivePath, Filename: "book.cbz", FileHash: &hash, Title: "book", TotalPages: 3,
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	server, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got [][]byte
	for i := 0; i < 3; i++ {
		page, err := server.GetPage(ctx, book.ID, i)
		if err != nil {
			t.Fatalf("GetPage(%d): %v", i, err)
		}
		got = append(got, page.Bytes)
	}

	server.Invalidate(book.ID)

	again, err := server.GetPage(ctx, book.ID, 2)
	if err != nil {
		t.Fatalf("GetPage after invalidate: %v", err)
	}

	if string(again.Bytes) != string(got[2]) {
		t.Fatalf("got %q after invalidate, want %q", again.Bytes, got[2])
	}
}

func TestPageOutOfRange(t *testing.T) {
	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "yomiyougu.db"), nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "book.cbz")
	writeArchive(t, archivePath, [][]byte{[]byte("only page")})

	hash := "h2"
	book, err := store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: archivePath, Filename: "book.cbz", FileHash: &hash, Title: "book", TotalPages: 1,
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	server, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = server.GetPage(ctx, book.ID, 5)
	if !errors.Is(err, yomerr.ErrPageOutOfRange) {
		t.Fatalf("expected PageOutOfRange, got %v", err)
	}
}

func TestCloudOnlyBookRejected(t *testing.T) {
	ctx := context.Background()

	store, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "yomiyougu.db"), nil)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hash := "h3"
	book, err := store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: catalog.CloudPathPrefix + "some-uuid", Filename: "book.cbz", FileHash: &hash, Title: "book",
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	server, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := server.GetPage(ctx, book.ID, 0); err == nil {
		t.Fatal("expected an error for a cloud-only book")
	}
}
