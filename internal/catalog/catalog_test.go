package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "yomiyougu.db")
	store, err := Open(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestCreateAndGetBook(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := "abc123"
	book, err := store.CreateBook(ctx, nil, NewBook{
		FilePath: "/library/one.cbz",
		Filename: "one.cbz",
		FileHash: &hash,
		Title:    "one",
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	if book.UUID == "" {
		t.Fatal("expected a generated UUID")
	}

	got, err := store.GetBookByID(ctx, nil, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got == nil || got.Title != "one" {
		t.Fatalf("got %+v", got)
	}
}

func TestSoftDeleteAndRestorePreservesUUID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := "deadbeef"
	book, err := store.CreateBook(ctx, nil, NewBook{FilePath: "/a.cbz", Filename: "a.cbz", FileHash: &hash, Title: "a"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	if err := store.SoftDeleteBook(ctx, nil, book.ID); err != nil {
		t.Fatalf("SoftDeleteBook: %v", err)
	}

	deleted, err := store.GetBookByHashDeleted(ctx, nil, hash)
	if err != nil {
		t.Fatalf("GetBookByHashDeleted: %v", err)
	}
	if deleted == nil || deleted.UUID != book.UUID {
		t.Fatalf("expected tombstoned row with same UUID, got %+v", deleted)
	}

	if err := store.RestoreBookWithPath(ctx, nil, book.ID, "/b.cbz", 3); err != nil {
		t.Fatalf("RestoreBookWithPath: %v", err)
	}

	restored, err := store.GetBookByID(ctx, nil, book.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Fatal("expected restored book to have no deleted_at")
	}
	if restored.UUID != book.UUID {
		t.Fatalf("expected UUID preserved across restore, got %s want %s", restored.UUID, book.UUID)
	}
	if restored.FilePath != "/b.cbz" {
		t.Fatalf("got file_path %s, want /b.cbz", restored.FilePath)
	}
}

func TestCollectionNameReclaimAfterDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c1, err := store.CreateCollection(ctx, nil, "favorites", nil, nil)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	if err := store.SoftDeleteCollection(ctx, nil, c1.ID); err != nil {
		t.Fatalf("SoftDeleteCollection: %v", err)
	}

	c2, err := store.CreateCollection(ctx, nil, "favorites", nil, nil)
	if err != nil {
		t.Fatalf("expected name reuse to succeed after soft-delete, got %v", err)
	}
	if c2.UUID == c1.UUID {
		t.Fatal("expected a new UUID for the reclaimed name")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := "rollback-hash"
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := store.CreateBook(ctx, tx, NewBook{FilePath: "/r.cbz", Filename: "r.cbz", FileHash: &hash, Title: "r"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}

	got, err := store.GetBookByHashLive(ctx, nil, hash)
	if err != nil {
		t.Fatalf("GetBookByHashLive: %v", err)
	}
	if got != nil {
		t.Fatal("expected rolled-back insert to not be visible")
	}
}
