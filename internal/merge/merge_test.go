package merge

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// device simulates one device's catalog plus the merge engine over it,
// letting scenario tests exchange snapshots between two independent
// stores the way two real devices would via the cloud.
type device struct {
	store *catalog.Store
	eng   *Engine
}

func newDevice(t *testing.T) *device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yomiyougu.db")
	store, err := catalog.Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &device{store: store, eng: New(store)}
}

func (d *device) sync(t *testing.T, remote *snapshot.Snapshot, opts Options, now time.Time) *snapshot.Snapshot {
	t.Helper()
	var result *Result
	err := d.store.WithTx(context.Background(), func(tx *sql.Tx) error {
		r, err := d.eng.Merge(context.Background(), tx, remote, AppSettings{UpdatedAt: now}, opts, now)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	return result.Snapshot
}

func fullOptions() Options {
	return Options{SyncBooks: true, SyncBooksFiles: true, SyncSettings: true, SyncProgress: true}
}

// TestMergeUUIDDriftConvergence covers scenario S3: two devices import
// the same archive independently before either has synced; the second
// device's sync must adopt the first device's UUID rather than create a
// duplicate.
func TestMergeUUIDDriftConvergence(t *testing.T) {
	hash := "deadbeef"
	x := newDevice(t)
	y := newDevice(t)
	ctx := context.Background()

	bookX, err := x.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/x/a.cbz", Filename: "a.cbz", FileHash: &hash, Title: "a", TotalPages: 2,
	})
	if err != nil {
		t.Fatalf("CreateBook x: %v", err)
	}

	if _, err := y.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/y/a.cbz", Filename: "a.cbz", FileHash: &hash, Title: "a", TotalPages: 2,
	}); err != nil {
		t.Fatalf("CreateBook y: %v", err)
	}

	now := time.Now().UTC()
	snapAfterX := x.sync(t, snapshot.Empty(), fullOptions(), now)

	if len(snapAfterX.Books) != 1 {
		t.Fatalf("expected 1 book in snapshot after X syncs, got %d", len(snapAfterX.Books))
	}
	if _, ok := snapAfterX.Books[bookX.UUID]; !ok {
		t.Fatalf("expected snapshot keyed by X's UUID %s, got %+v", bookX.UUID, snapAfterX.Books)
	}

	snapAfterY := y.sync(t, snapAfterX, fullOptions(), now.Add(time.Second))

	if len(snapAfterY.Books) != 1 {
		t.Fatalf("expected exactly one book entry after Y converges, got %d", len(snapAfterY.Books))
	}
	if _, ok := snapAfterY.Books[bookX.UUID]; !ok {
		t.Fatalf("expected Y's merged snapshot to key the book by X's UUID, got %+v", snapAfterY.Books)
	}

	yBooks, err := y.store.ListAllBooks(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBooks y: %v", err)
	}
	if len(yBooks) != 1 || yBooks[0].UUID != bookX.UUID {
		t.Fatalf("expected Y's local row to adopt X's UUID, got %+v", yBooks)
	}
}

// TestMergeJunctionPairDriftConvergence covers two devices independently
// linking the same book to the same collection before either has synced
// the link: the second device's sync must adopt the first device's
// junction UUID rather than attempt a duplicate live insert.
func TestMergeJunctionPairDriftConvergence(t *testing.T) {
	hash := "feedface"
	x := newDevice(t)
	y := newDevice(t)
	ctx := context.Background()

	bookX, err := x.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/x/e.cbz", Filename: "e.cbz", FileHash: &hash, Title: "e", TotalPages: 3,
	})
	if err != nil {
		t.Fatalf("CreateBook x: %v", err)
	}
	if _, err := y.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/y/e.cbz", Filename: "e.cbz", FileHash: &hash, Title: "e", TotalPages: 3,
	}); err != nil {
		t.Fatalf("CreateBook y: %v", err)
	}

	t0 := time.Now().UTC().Add(-time.Hour)
	snap := x.sync(t, snapshot.Empty(), fullOptions(), t0)
	snap = y.sync(t, snap, fullOptions(), t0.Add(time.Second))

	collX, err := x.store.CreateCollection(ctx, nil, "favorites", nil, nil)
	if err != nil {
		t.Fatalf("CreateCollection x: %v", err)
	}

	snap = x.sync(t, snap, fullOptions(), t0.Add(2*time.Second))
	snap = y.sync(t, snap, fullOptions(), t0.Add(3*time.Second))

	collY, err := y.store.GetCollectionByUUID(ctx, nil, collX.UUID)
	if err != nil || collY == nil {
		t.Fatalf("expected Y to have downloaded the collection, got %+v, err=%v", collY, err)
	}

	if _, err := x.store.AddToCollection(ctx, nil, bookX.ID, collX.ID); err != nil {
		t.Fatalf("AddToCollection x: %v", err)
	}
	yBook, err := y.store.GetBookByUUID(ctx, nil, bookX.UUID)
	if err != nil || yBook == nil {
		t.Fatalf("expected Y to know the converged book, got %+v, err=%v", yBook, err)
	}
	if _, err := y.store.AddToCollection(ctx, nil, yBook.ID, collY.ID); err != nil {
		t.Fatalf("AddToCollection y: %v", err)
	}

	snapAfterX := x.sync(t, snap, fullOptions(), t0.Add(4*time.Second))

	snapAfterY := y.sync(t, snapAfterX, fullOptions(), t0.Add(5*time.Second))

	if len(snapAfterY.BookCollections) != 1 {
		t.Fatalf("expected exactly one junction entry after Y converges, got %d: %+v", len(snapAfterY.BookCollections), snapAfterY.BookCollections)
	}

	yJunctions, err := y.store.ListAllBookCollections(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBookCollections y: %v", err)
	}
	if len(yJunctions) != 1 {
		t.Fatalf("expected Y's local store to hold exactly one junction row, got %d", len(yJunctions))
	}
}

// TestMergeBookSettingsUUIDConvergence covers two devices independently
// writing reader settings for the same book before either has synced: the
// second device's local row must adopt the first device's settings UUID
// so the two sides converge on one identity instead of re-downloading the
// same record forever.
func TestMergeBookSettingsUUIDConvergence(t *testing.T) {
	hash := "baadf00d"
	x := newDevice(t)
	y := newDevice(t)
	ctx := context.Background()

	bookX, err := x.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/x/f.cbz", Filename: "f.cbz", FileHash: &hash, Title: "f", TotalPages: 4,
	})
	if err != nil {
		t.Fatalf("CreateBook x: %v", err)
	}
	if _, err := y.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/y/f.cbz", Filename: "f.cbz", FileHash: &hash, Title: "f", TotalPages: 4,
	}); err != nil {
		t.Fatalf("CreateBook y: %v", err)
	}

	t0 := time.Now().UTC().Add(-time.Hour)
	snap := x.sync(t, snapshot.Empty(), fullOptions(), t0)
	snap = y.sync(t, snap, fullOptions(), t0.Add(time.Second))

	if _, err := x.store.UpsertBookSettings(ctx, nil, bookX.ID, catalog.BookSettings{SyncProgress: true}, nil); err != nil {
		t.Fatalf("UpsertBookSettings x: %v", err)
	}
	yBook, err := y.store.GetBookByUUID(ctx, nil, bookX.UUID)
	if err != nil || yBook == nil {
		t.Fatalf("expected Y to know the converged book, got %+v, err=%v", yBook, err)
	}
	if _, err := y.store.UpsertBookSettings(ctx, nil, yBook.ID, catalog.BookSettings{SyncProgress: false}, nil); err != nil {
		t.Fatalf("UpsertBookSettings y: %v", err)
	}

	snapAfterX := x.sync(t, snap, fullOptions(), t0.Add(2*time.Second))
	snapAfterY := y.sync(t, snapAfterX, fullOptions(), t0.Add(3*time.Second))

	if len(snapAfterY.BookSettings) != 1 {
		t.Fatalf("expected exactly one settings entry after Y converges, got %d: %+v", len(snapAfterY.BookSettings), snapAfterY.BookSettings)
	}

	var mapUUID string
	for k := range snapAfterY.BookSettings {
		mapUUID = k
	}

	got, err := y.store.GetBookSettings(ctx, nil, yBook.ID)
	if err != nil {
		t.Fatalf("GetBookSettings y: %v", err)
	}
	if got == nil {
		t.Fatal("expected Y to have a local settings row")
	}
	if got.UUID != mapUUID {
		t.Fatalf("expected Y's local row UUID %q to match the converged snapshot key %q", got.UUID, mapUUID)
	}
}

// TestMergeProgressOnlySync covers scenario S4: progress-only sync moves
// current_page but never creates new books and never touches title.
func TestMergeProgressOnlySync(t *testing.T) {
	hash := "cafef00d"
	x := newDevice(t)
	y := newDevice(t)
	ctx := context.Background()

	bookX, _ := x.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/x/b.cbz", Filename: "b.cbz", FileHash: &hash, Title: "b", TotalPages: 100,
	})
	bookY, _ := y.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/y/b.cbz", Filename: "b.cbz", FileHash: &hash, Title: "b", TotalPages: 100,
	})

	// Converge UUIDs first via a full sync round, as S3 establishes.
	t0 := time.Now().UTC().Add(-time.Hour)
	snap := x.sync(t, snapshot.Empty(), fullOptions(), t0)
	snap = y.sync(t, snap, fullOptions(), t0.Add(time.Second))
	snap = x.sync(t, snap, fullOptions(), t0.Add(2*time.Second))

	progressOnly := Options{SyncProgress: true}

	page := 42
	if err := x.store.UpdateBook(ctx, nil, bookX.ID, catalog.BookPatch{CurrentPage: &page}, nil); err != nil {
		t.Fatalf("UpdateBook x: %v", err)
	}
	t1 := time.Now().UTC().Add(time.Minute)
	// Force updated_at to a known, later value for deterministic comparison.
	forced := t1
	_ = x.store.UpdateBook(ctx, nil, bookX.ID, catalog.BookPatch{CurrentPage: &page}, &forced)

	snapAfterX := x.sync(t, snap, progressOnly, t1)

	beforeCount, err := y.store.ListAllBooks(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBooks y before: %v", err)
	}

	snapAfterY := y.sync(t, snapAfterX, progressOnly, t1.Add(time.Second))
	_ = snapAfterY

	afterCount, err := y.store.ListAllBooks(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBooks y after: %v", err)
	}
	if len(afterCount) != len(beforeCount) {
		t.Fatalf("progress-only sync must not create books: before=%d after=%d", len(beforeCount), len(afterCount))
	}

	got, err := y.store.GetBookByID(ctx, nil, bookY.ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got.CurrentPage != 42 {
		t.Fatalf("expected Y's current_page to become 42, got %d", got.CurrentPage)
	}
	if got.Title != "b" {
		t.Fatalf("progress-only sync must not touch title, got %q", got.Title)
	}
}

// TestMergeDeletionDominance covers scenario S5: a tombstone always
// wins over a later-timestamped edit to a live row on the other side.
func TestMergeDeletionDominance(t *testing.T) {
	hash := "0ff1ce"
	x := newDevice(t)
	y := newDevice(t)
	ctx := context.Background()

	bookX, _ := x.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/x/c.cbz", Filename: "c.cbz", FileHash: &hash, Title: "c", TotalPages: 10,
	})
	_, _ = y.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath: "/y/c.cbz", Filename: "c.cbz", FileHash: &hash, Title: "c", TotalPages: 10,
	})

	t0 := time.Now().UTC().Add(-time.Hour)
	snap := x.sync(t, snapshot.Empty(), fullOptions(), t0)
	snap = y.sync(t, snap, fullOptions(), t0.Add(time.Second))

	t2 := t0.Add(2 * time.Minute)
	if err := x.store.SoftDeleteBook(ctx, nil, bookX.ID); err != nil {
		t.Fatalf("SoftDeleteBook: %v", err)
	}

	snapAfterX := x.sync(t, snap, fullOptions(), t2)

	t15 := t0.Add(90 * time.Second)
	yBooks, _ := y.store.ListAllBooks(ctx, nil)
	title := "c (edited)"
	_ = y.store.UpdateBook(ctx, nil, yBooks[0].ID, catalog.BookPatch{Title: &title}, &t15)

	snapAfterY := y.sync(t, snapAfterX, fullOptions(), t2.Add(time.Second))

	for _, rb := range snapAfterY.Books {
		if rb.DeletedAt == nil {
			t.Fatalf("expected the book to be tombstoned after Y's sync, got %+v", rb)
		}
	}

	got, err := y.store.GetBookByID(ctx, nil, yBooks[0].ID)
	if err != nil {
		t.Fatalf("GetBookByID: %v", err)
	}
	if got.DeletedAt == nil {
		t.Fatal("expected Y's local row to be tombstoned despite the later title edit")
	}
}

// TestMergeBookmarkReferentialDeferral covers scenario S6: a bookmark
// whose parent book is unknown locally is skipped, then materializes
// once sync_books is enabled and the book arrives.
func TestMergeBookmarkReferentialDeferral(t *testing.T) {
	y := newDevice(t)
	now := time.Now().UTC()

	remote := snapshot.Empty()
	bookUUID := "11111111-1111-1111-1111-111111111111"
	bmUUID := "22222222-2222-2222-2222-222222222222"
	remote.Books[bookUUID] = snapshot.RemoteBook{
		UUID: bookUUID, FilePath: catalog.CloudPathPrefix + bookUUID, Filename: "d.cbz",
		Title: "d", TotalPages: 5, AddedAt: now.UnixMilli(), UpdatedAt: now.UnixMilli(),
	}
	remote.Bookmarks[bmUUID] = snapshot.RemoteBookmark{
		UUID: bmUUID, BookUUID: bookUUID, Name: "cliffhanger", Page: 3,
		CreatedAt: now.UnixMilli(), UpdatedAt: now.UnixMilli(),
	}

	progressOnly := Options{SyncProgress: true}
	snap1 := y.sync(t, remote, progressOnly, now)

	ctx := context.Background()
	bms, err := y.store.ListAllBookmarks(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBookmarks: %v", err)
	}
	if len(bms) != 0 {
		t.Fatalf("expected bookmark to be deferred with sync_books off, got %d", len(bms))
	}
	if _, ok := snap1.Bookmarks[bmUUID]; !ok {
		t.Fatal("expected the deferred bookmark to still round-trip in the snapshot")
	}

	snap2 := y.sync(t, snap1, fullOptions(), now.Add(time.Second))

	bms, err = y.store.ListAllBookmarks(ctx, nil)
	if err != nil {
		t.Fatalf("ListAllBookmarks after: %v", err)
	}
	if len(bms) != 1 {
		t.Fatalf("expected the bookmark to materialize once sync_books is on, got %d", len(bms))
	}
	if _, ok := snap2.Books[bookUUID]; !ok {
		t.Fatal("expected the cloud-only book to be created locally")
	}
}
