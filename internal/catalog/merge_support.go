package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/yomiyougu/core/internal/yomerr"
)

// The operations in this file exist for the merge engine, which needs to
// see every row regardless of tombstone state, mint rows whose identity
// (UUID, timestamps) is dictated by a remote record rather than "now",
// and rewrite a book's UUID in place when two devices imported the same
// archive before ever syncing. Nothing outside a merge pass should need
// these; ordinary CRUD goes through the operations in books.go et al.

// ListAllBooks returns every book row, live or tombstoned, for merge's
// full-catalog comparison against a remote snapshot.
func (s *Store) ListAllBooks(ctx context.Context, tx *sql.Tx) ([]*Book, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT `+bookColumns+` FROM books`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing all books")
	}
	defer rows.Close()

	var out []*Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RewriteBookUUID changes a book's UUID in place. Used when a remote
// book's UUID has no local match but its file_hash matches a local live
// book: the two rows represent the same archive imported independently
// on two devices before ever syncing, and converge by adopting the
// remote's UUID rather than creating a duplicate.
func (s *Store) RewriteBookUUID(ctx context.Context, tx *sql.Tx, id int64, newUUID string) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE books SET uuid = ? WHERE id = ?`, newUUID, id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "rewriting uuid for book %d", id)
	}
	return nil
}

// CreateBookWithIdentity inserts a book whose UUID and timestamps are
// dictated by a remote record rather than generated locally, used to
// materialize a cloud-only placeholder during merge.
func (s *Store) CreateBookWithIdentity(ctx context.Context, tx *sql.Tx, uuid string, in NewBook, addedAt, updatedAt time.Time) (*Book, error) {
	b := &Book{
		UUID:          uuid,
		FilePath:      in.FilePath,
		Filename:      in.Filename,
		FileSize:      in.FileSize,
		FileHash:      in.FileHash,
		Title:         in.Title,
		TotalPages:    in.TotalPages,
		ReadingStatus: StatusUnread,
		AddedAt:       addedAt,
		UpdatedAt:     updatedAt,
	}

	res, err := s.q(tx).ExecContext(ctx, `INSERT INTO books
		(uuid, file_path, filename, file_size, file_hash, title, current_page,
		 total_pages, reading_status, is_favorite, last_read_at, added_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, 0, NULL, ?, ?, NULL)`,
		b.UUID, b.FilePath, b.Filename, b.FileSize, b.FileHash, b.Title, b.TotalPages, string(b.ReadingStatus),
		toMillis(b.AddedAt), toMillis(b.UpdatedAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "inserting book from remote record %s", uuid)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted book id")
	}
	b.ID = id

	return b, nil
}

// SetBookDeletedAt sets a book's tombstone to an exact timestamp (or
// clears it when deletedAt is nil), bypassing the "now" semantics of
// SoftDeleteBook/RestoreBookWithPath. Merge uses this to adopt the
// remote side's authoritative deletion timestamp verbatim.
func (s *Store) SetBookDeletedAt(ctx context.Context, tx *sql.Tx, id int64, deletedAt *time.Time) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE books SET deleted_at = ? WHERE id = ?`, toNullMillis(deletedAt), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "setting deleted_at for book %d", id)
	}
	return nil
}

// ListAllCollections returns every collection row, live or tombstoned.
func (s *Store) ListAllCollections(ctx context.Context, tx *sql.Tx) ([]*Collection, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT `+collectionColumns+` FROM collections`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing all collections")
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		c, err := scanCollectionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCollectionWithIdentity inserts a collection whose UUID and
// timestamps come from a remote record.
func (s *Store) CreateCollectionWithIdentity(ctx context.Context, tx *sql.Tx, uuid, name string, description, coverPath *string, createdAt, updatedAt time.Time) (*Collection, error) {
	c := &Collection{
		UUID: uuid, Name: name, Description: description, CoverPath: coverPath,
		CreatedAt: createdAt, UpdatedAt: updatedAt,
	}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO collections (uuid, name, description, cover_path, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		uuid, name, description, coverPath, toMillis(createdAt), toMillis(updatedAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDuplicateConstraint, err, "creating collection %q from remote record", name)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted collection id")
	}
	c.ID = id

	return c, nil
}

// SetCollectionDeletedAt sets or clears a collection's tombstone at an
// exact timestamp without the live-name-reclaim rewrite SoftDeleteCollection
// performs; merge copies the remote's name verbatim (already rewritten,
// if tombstoned, by whichever device performed the original delete).
func (s *Store) SetCollectionDeletedAt(ctx context.Context, tx *sql.Tx, id int64, name string, deletedAt *time.Time) error {
	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE collections SET deleted_at = ?, name = ? WHERE id = ?`, toNullMillis(deletedAt), name, id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "setting deleted_at for collection %d", id)
	}
	return nil
}

// ListAllBookCollections returns every junction row, live or tombstoned.
func (s *Store) ListAllBookCollections(ctx context.Context, tx *sql.Tx) ([]*BookCollection, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT `+junctionColumns+` FROM book_collections`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing all junction rows")
	}
	defer rows.Close()

	var out []*BookCollection
	for rows.Next() {
		bc, err := scanJunctionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

// CreateJunctionWithIdentity inserts a book_collections row whose UUID and
// timestamp come from a remote record.
func (s *Store) CreateJunctionWithIdentity(ctx context.Context, tx *sql.Tx, uuid string, bookID, collectionID int64, createdAt time.Time) (*BookCollection, error) {
	bc := &BookCollection{UUID: uuid, BookID: bookID, CollectionID: collectionID, CreatedAt: createdAt}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO book_collections (uuid, book_id, collection_id, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, NULL)`,
		uuid, bookID, collectionID, toMillis(createdAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDuplicateConstraint, err, "creating junction row from remote record")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted junction id")
	}
	bc.ID = id

	return bc, nil
}

// SetJunctionDeletedAt sets or clears a junction row's tombstone at an
// exact timestamp.
func (s *Store) SetJunctionDeletedAt(ctx context.Context, tx *sql.Tx, id int64, deletedAt *time.Time) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE book_collections SET deleted_at = ? WHERE id = ?`, toNullMillis(deletedAt), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "setting deleted_at for junction row %d", id)
	}
	return nil
}

// RewriteJunctionUUID changes a junction row's UUID in place. Used when a
// remote junction row has no local UUID match but a live local row already
// links the same (book_id, collection_id) pair under a different UUID: two
// devices linked the same book to the same collection independently before
// ever syncing, and converge by adopting the remote's UUID rather than
// inserting a second row that would violate the live-pair unique index.
func (s *Store) RewriteJunctionUUID(ctx context.Context, tx *sql.Tx, id int64, newUUID string) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE book_collections SET uuid = ? WHERE id = ?`, newUUID, id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "rewriting uuid for junction row %d", id)
	}
	return nil
}

// ListAllBookmarks returns every bookmark row, live or tombstoned.
func (s *Store) ListAllBookmarks(ctx context.Context, tx *sql.Tx) ([]*Bookmark, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing all bookmarks")
	}
	defer rows.Close()

	var out []*Bookmark
	for rows.Next() {
		bm, err := scanBookmarkRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	return out, rows.Err()
}

// CreateBookmarkWithIdentity inserts a bookmark whose UUID and timestamps
// come from a remote record.
func (s *Store) CreateBookmarkWithIdentity(ctx context.Context, tx *sql.Tx, uuid string, bookID int64, name string, description *string, page int, createdAt, updatedAt time.Time) (*Bookmark, error) {
	bm := &Bookmark{UUID: uuid, BookID: bookID, Name: name, Description: description, Page: page, CreatedAt: createdAt, UpdatedAt: updatedAt}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO bookmarks (uuid, book_id, name, description, page, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		uuid, bookID, name, description, page, toMillis(createdAt), toMillis(updatedAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "creating bookmark from remote record")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted bookmark id")
	}
	bm.ID = id

	return bm, nil
}

// SetBookmarkDeletedAt sets or clears a bookmark's tombstone at an exact
// timestamp.
func (s *Store) SetBookmarkDeletedAt(ctx context.Context, tx *sql.Tx, id int64, deletedAt *time.Time) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE bookmarks SET deleted_at = ? WHERE id = ?`, toNullMillis(deletedAt), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "setting deleted_at for bookmark %d", id)
	}
	return nil
}

// ListAllBookSettings returns every book_settings row (there is at most
// one per book, live or not — the table has no tombstone column).
func (s *Store) ListAllBookSettings(ctx context.Context, tx *sql.Tx) ([]*BookSettings, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT `+bookSettingsColumns+` FROM book_settings`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing all book_settings")
	}
	defer rows.Close()

	var out []*BookSettings
	for rows.Next() {
		bs, err := scanBookSettingsRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	return out, rows.Err()
}
