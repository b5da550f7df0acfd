package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yomiyougu/core/internal/yomerr"
)

const bookmarkColumns = `id, uuid, book_id, name, description, page, created_at, updated_at, deleted_at`

// CreateBookmark inserts a new bookmark for a book.
func (s *Store) CreateBookmark(ctx context.Context, tx *sql.Tx, bookID int64, name string, description *string, page int) (*Bookmark, error) {
	now := time.Now().UTC()
	bm := &Bookmark{
		UUID:        uuid.NewString(),
		BookID:      bookID,
		Name:        name,
		Description: description,
		Page:        page,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO bookmarks (uuid, book_id, name, description, page, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		bm.UUID, bookID, name, description, page, toMillis(now), toMillis(now))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "creating bookmark for book %d", bookID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted bookmark id")
	}
	bm.ID = id

	return bm, nil
}

// UpdateBookmark updates a bookmark's mutable fields.
func (s *Store) UpdateBookmark(ctx context.Context, tx *sql.Tx, id int64, name string, description *string, page int, forceUpdatedAt *time.Time) error {
	updatedAt := time.Now().UTC()
	if forceUpdatedAt != nil {
		updatedAt = *forceUpdatedAt
	}

	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE bookmarks SET name = ?, description = ?, page = ?, updated_at = ? WHERE id = ?`,
		name, description, page, toMillis(updatedAt), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "updating bookmark %d", id)
	}
	return nil
}

// SoftDeleteBookmark tombstones a bookmark.
func (s *Store) SoftDeleteBookmark(ctx context.Context, tx *sql.Tx, id int64) error {
	now := time.Now().UTC()
	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE bookmarks SET deleted_at = ?, updated_at = ? WHERE id = ?`, toMillis(now), toMillis(now), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "soft-deleting bookmark %d", id)
	}
	return nil
}

// ListBookmarksByBook returns every live bookmark for a book.
func (s *Store) ListBookmarksByBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]*Bookmark, error) {
	rows, err := s.q(tx).QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE book_id = ? AND deleted_at IS NULL ORDER BY page`, bookID)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing bookmarks for book %d", bookID)
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

// GetBookmarkByUUID returns a bookmark by UUID regardless of tombstone
// state, or (nil, nil) if none exists.
func (s *Store) GetBookmarkByUUID(ctx context.Context, tx *sql.Tx, id string) (*Bookmark, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE uuid = ?`, id)
	bm, err := scanBookmarkRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return bm, err
}

func scanBookmarkRow(row rowScanner) (*Bookmark, error) {
	var (
		bm          Bookmark
		description sql.NullString
		deletedAt   sql.NullInt64
		createdAtMs, updatedAtMs int64
	)

	err := row.Scan(&bm.ID, &bm.UUID, &bm.BookID, &bm.Name, &description, &bm.Page, &createdAtMs, &updatedAtMs, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "scanning bookmark row")
	}

	if description.Valid {
		bm.Description = &description.String
	}
	bm.CreatedAt = fromMillis(createdAtMs)
	bm.UpdatedAt = fromMillis(updatedAtMs)
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		bm.DeletedAt = &t
	}

	return &bm, nil
}
